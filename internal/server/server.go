package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"PatternSentinel/internal/chart"
	"PatternSentinel/internal/collector"
	"PatternSentinel/internal/history"
	"PatternSentinel/internal/metrics"
	"PatternSentinel/internal/model"
	"PatternSentinel/internal/projector"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// Server exposes projections over HTTP and WebSocket.
type Server struct {
	Buffer  *history.Buffer
	Hub     *Hub
	Metrics *metrics.Metrics
	Health  *metrics.HealthStatus
	// Defaults fill omitted fields of POST /api/v1/project.
	Defaults projector.Options
	Logger   *zap.Logger

	router *gin.Engine
	http   *http.Server
}

// New builds the gin router.
func New(buf *history.Buffer, hub *Hub, m *metrics.Metrics, health *metrics.HealthStatus, defaults projector.Options, logger *zap.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)
	s := &Server{
		Buffer:   buf,
		Hub:      hub,
		Metrics:  m,
		Health:   health,
		Defaults: defaults,
		Logger:   logger,
	}

	router := gin.New()
	router.Use(gin.Recovery(), s.accessLog())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(m.Handler()))
	router.GET("/ws", s.handleWS)

	v1 := router.Group("/api/v1")
	v1.GET("/series", s.handleSeries)
	v1.GET("/projections", s.handleProjections)
	v1.POST("/project", s.handleProject)
	v1.GET("/chart", s.handleChart)

	s.router = router
	return s
}

// Handler returns the HTTP handler, mainly for tests.
func (s *Server) Handler() http.Handler { return s.router }

// Run serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context, addr string) error {
	s.http = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.Logger.Info("http server listening", zap.String("addr", addr))
		if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	s.Hub.Close()
	if err := s.http.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("http shutdown: %w", err)
	}
	s.Logger.Info("http server stopped")
	return nil
}

func (s *Server) accessLog() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.Logger.Debug("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("took", time.Since(start)))
	}
}

// statusFor maps projection and fetch errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, projector.ErrInsufficientData):
		return http.StatusUnprocessableEntity
	case errors.Is(err, projector.ErrInvalidIndex), errors.Is(err, projector.ErrInvalidParameter):
		return http.StatusBadRequest
	case errors.Is(err, collector.ErrPermanent):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	snap := s.Health.Snapshot()
	code := http.StatusOK
	if snap.Status == "degraded" {
		code = http.StatusServiceUnavailable
	}
	c.JSON(code, snap)
}

func (s *Server) handleSeries(c *gin.Context) {
	keys := s.Buffer.Keys()
	out := make([]gin.H, 0, len(keys))
	for _, k := range keys {
		item := gin.H{"symbol": k.Symbol, "interval": k.Interval, "batches": len(s.Buffer.Snapshot(k))}
		if b, ok := s.Buffer.Latest(k); ok {
			item["updated_at"] = b.CreatedAt
		}
		out = append(out, item)
	}
	c.JSON(http.StatusOK, out)
}

// seriesKey reads symbol and interval query parameters.
func seriesKey(c *gin.Context) (model.SeriesKey, error) {
	symbol := strings.TrimSpace(c.Query("symbol"))
	if symbol == "" {
		return model.SeriesKey{}, errors.New("symbol is required")
	}
	interval, err := strconv.Atoi(c.DefaultQuery("interval", "15"))
	if err != nil || interval <= 0 {
		return model.SeriesKey{}, fmt.Errorf("invalid interval %q", c.Query("interval"))
	}
	return model.SeriesKey{Symbol: symbol, Interval: interval}, nil
}

func (s *Server) handleProjections(c *gin.Context) {
	key, err := seriesKey(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	batches := s.Buffer.Snapshot(key)
	if len(batches) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no projections for series", "symbol": key.Symbol, "interval": key.Interval})
		return
	}
	views := make([]BatchView, len(batches))
	for i, b := range batches {
		views[i] = NewBatchView(b)
	}
	c.JSON(http.StatusOK, gin.H{"symbol": key.Symbol, "interval": key.Interval, "batches": views})
}

// ProjectRequest runs the projector on caller supplied prices.
type ProjectRequest struct {
	Points        []model.PricePoint `json:"points" binding:"required,min=1"`
	Policy        string             `json:"policy"`
	PatternLength int                `json:"pattern_length"`
	MaxLength     int                `json:"max_length"`
	MinLength     int                `json:"min_length"`
	Horizon       *int               `json:"horizon" binding:"omitempty,min=0,max=500"`
	Lines         *int               `json:"lines" binding:"omitempty,min=0,max=50"`
	QueryEnd      *int               `json:"query_end" binding:"omitempty,min=0"`
	StepMinutes   int                `json:"step_minutes"`
}

// ProjectResponse is the result of POST /api/v1/project.
type ProjectResponse struct {
	AnchorIndex int                    `json:"anchor_index"`
	Pattern     string                 `json:"pattern"`
	Matches     []model.PatternMatch   `json:"matches"`
	Lines       []model.ProjectionLine `json:"lines"`
}

func (s *Server) projectOptions(req ProjectRequest) (projector.Options, error) {
	opts := s.Defaults
	if req.Policy != "" || req.PatternLength != 0 || req.MaxLength != 0 || req.MinLength != 0 {
		length, maxLen, minLen := req.PatternLength, req.MaxLength, req.MinLength
		if length == 0 {
			length = projector.DefaultFixed.Length
		}
		if maxLen == 0 {
			maxLen = projector.DefaultVariable.Max
		}
		if minLen == 0 {
			minLen = projector.DefaultVariable.Min
		}
		policy, err := projector.ParsePolicy(req.Policy, length, maxLen, minLen)
		if err != nil {
			return opts, err
		}
		opts.Policy = policy
	}
	if req.Horizon != nil {
		opts.Horizon = *req.Horizon
	}
	if req.Lines != nil {
		opts.MaxLines = *req.Lines
	}
	opts.QueryEnd = -1
	if req.QueryEnd != nil {
		opts.QueryEnd = *req.QueryEnd
		if opts.QueryEnd < 0 {
			return opts, fmt.Errorf("query_end %d: %w", opts.QueryEnd, projector.ErrInvalidIndex)
		}
	}
	opts.Step = 0
	if req.StepMinutes != 0 {
		opts.Step = projector.StepForInterval(req.StepMinutes)
		if opts.Step <= 0 {
			return opts, fmt.Errorf("step_minutes %d: %w", req.StepMinutes, projector.ErrInvalidParameter)
		}
	}
	return opts, nil
}

func (s *Server) handleProject(c *gin.Context) {
	var req ProjectRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body", "details": err.Error()})
		return
	}
	opts, err := s.projectOptions(req)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	res, err := projector.Generate(model.PriceHistory(req.Points), opts)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error()})
		return
	}
	matches := res.Matches
	if matches == nil {
		matches = []model.PatternMatch{}
	}
	c.JSON(http.StatusOK, ProjectResponse{
		AnchorIndex: res.AnchorIndex,
		Pattern:     res.Pattern,
		Matches:     matches,
		Lines:       res.Lines,
	})
}

func (s *Server) handleChart(c *gin.Context) {
	key, err := seriesKey(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	prices, ok := s.Buffer.Prices(key)
	if !ok || len(prices) == 0 {
		c.JSON(http.StatusNotFound, gin.H{"error": "no prices for series", "symbol": key.Symbol, "interval": key.Interval})
		return
	}
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	in := chart.Input{
		Title:   fmt.Sprintf("%s %dm", key.Symbol, key.Interval),
		History: prices,
		Batches: s.Buffer.Snapshot(key),
		Keep:    s.Buffer.Keep(),
	}
	if err := chart.Render(c.Writer, in); err != nil {
		s.Logger.Error("render chart", zap.Error(err))
	}
}

func (s *Server) handleWS(c *gin.Context) {
	var initial []*model.Batch
	for _, k := range s.Buffer.Keys() {
		if b, ok := s.Buffer.Latest(k); ok {
			initial = append(initial, b)
		}
	}
	s.Hub.Serve(c.Writer, c.Request, initial)
}
