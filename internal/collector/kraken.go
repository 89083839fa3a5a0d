package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"PatternSentinel/internal/model"
)

const krakenBaseURL = "https://api.kraken.com"

// KrakenFetcher implements Fetcher using the Kraken public OHLC endpoint.
type KrakenFetcher struct {
	BaseURL string
	Client  *http.Client
}

// NewKrakenFetcher creates a Kraken fetcher with optional proxy support.
func NewKrakenFetcher(baseURL, proxyURL string) *KrakenFetcher {
	if baseURL == "" {
		baseURL = krakenBaseURL
	}
	return &KrakenFetcher{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Client:  newHTTPClient(proxyURL),
	}
}

func (f *KrakenFetcher) Name() string { return "kraken" }

// krakenOHLC is the response envelope. Each row is
// [time, open, high, low, close, vwap, volume, count] with prices as strings.
type krakenOHLC struct {
	Error  []string                   `json:"error"`
	Result map[string]json.RawMessage `json:"result"`
}

func (f *KrakenFetcher) FetchHistory(ctx context.Context, symbol string, intervalMinutes int) (model.PriceHistory, error) {
	q := url.Values{}
	q.Set("pair", symbol)
	q.Set("interval", strconv.Itoa(intervalMinutes))
	endpoint := f.BaseURL + "/0/public/OHLC?" + q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("kraken fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("kraken read body: %w", err)
	}
	if err := statusError("kraken", resp.StatusCode, body); err != nil {
		return nil, err
	}

	var payload krakenOHLC
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("kraken decode: %w", err)
	}
	if len(payload.Error) > 0 {
		msg := strings.Join(payload.Error, "; ")
		if strings.Contains(msg, "Rate limit exceeded") {
			return nil, fmt.Errorf("kraken api error: %s", msg)
		}
		return nil, fmt.Errorf("%w: kraken api error: %s", ErrPermanent, msg)
	}

	raw, err := pairRows(payload.Result, symbol)
	if err != nil {
		return nil, err
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("kraken decode rows: %w", err)
	}
	points := make([]model.PricePoint, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		var ts int64
		if err := json.Unmarshal(row[0], &ts); err != nil {
			continue
		}
		var closeStr string
		if err := json.Unmarshal(row[4], &closeStr); err != nil {
			continue
		}
		c, err := strconv.ParseFloat(closeStr, 64)
		if err != nil {
			continue
		}
		points = append(points, model.PricePoint{Time: time.Unix(ts, 0).UTC(), Close: c})
	}
	history := normalize(points)
	if len(history) == 0 {
		return nil, fmt.Errorf("kraken: no data returned for %s", symbol)
	}
	return history, nil
}

// pairRows picks the rows for symbol. Kraken answers BTCUSD with its canonical
// XXBTZUSD key, so a single other pair key is accepted in place of the exact one.
func pairRows(result map[string]json.RawMessage, symbol string) (json.RawMessage, error) {
	if raw, ok := result[symbol]; ok {
		return raw, nil
	}
	var keys []string
	for k := range result {
		if k != "last" {
			keys = append(keys, k)
		}
	}
	switch len(keys) {
	case 0:
		return nil, fmt.Errorf("%w: kraken: no data for %s", ErrPermanent, symbol)
	case 1:
		return result[keys[0]], nil
	default:
		sort.Strings(keys)
		return nil, fmt.Errorf("%w: kraken: ambiguous pairs %s for %s", ErrPermanent, strings.Join(keys, ","), symbol)
	}
}
