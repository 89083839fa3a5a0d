package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"
)

// Watch is one symbol/interval stream refreshed by the scheduler.
type Watch struct {
	Symbol   string `yaml:"symbol" validate:"required"`
	Interval int    `yaml:"interval" validate:"oneof=1 5 15 30 60 240 1440"`
}

// Config holds all application configuration.
type Config struct {
	LogLevel   string `yaml:"log_level" validate:"omitempty,oneof=debug info warn warning error"`
	DataSource struct {
		Provider      string  `yaml:"provider" validate:"oneof=kraken yahoo mock"`
		BaseURL       string  `yaml:"base_url" validate:"omitempty,url"`
		Proxy         string  `yaml:"proxy" validate:"omitempty,url"`
		RatePerMinute float64 `yaml:"rate_per_minute" validate:"gt=0"`
		MaxRetries    *int    `yaml:"max_retries" validate:"omitempty,gte=0,lte=10"`
	} `yaml:"data_source"`
	Watch      []Watch `yaml:"watch" validate:"min=1,dive"`
	Projection struct {
		Policy        string `yaml:"policy" validate:"oneof=fixed variable"`
		PatternLength int    `yaml:"pattern_length" validate:"gt=0"`
		MaxLength     int    `yaml:"max_length" validate:"gtefield=MinLength"`
		MinLength     int    `yaml:"min_length" validate:"gt=0"`
		Horizon       int    `yaml:"horizon" validate:"gt=0,lte=500"`
		Lines         int    `yaml:"lines" validate:"gt=0,lte=50"`
	} `yaml:"projection"`
	History struct {
		KeepBatches int `yaml:"keep_batches" validate:"gt=0,lte=100"`
	} `yaml:"history"`
	Schedule struct {
		RefreshCron string `yaml:"refresh_cron" validate:"required"`
	} `yaml:"schedule"`
	Server struct {
		Addr string `yaml:"addr"`
	} `yaml:"server"`
	Telegram struct {
		BotToken string `yaml:"bot_token"`
		ChatID   string `yaml:"chat_id" validate:"required_with=BotToken"`
	} `yaml:"telegram"`
	Database struct {
		SQLitePath string `yaml:"sqlite_path"`
	} `yaml:"database"`
}

// Load reads config from a YAML file, then applies environment variable overrides and defaults.
// A missing file is not an error.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	data, err := os.ReadFile(path)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("read config: %w", err)
	}
	if len(data) > 0 {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config: %w", err)
		}
	}

	// Environment variable overrides
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.LogLevel = v
	}
	if v := os.Getenv("DATA_PROVIDER"); v != "" {
		cfg.DataSource.Provider = v
	}
	if v := os.Getenv("DATA_BASE_URL"); v != "" {
		cfg.DataSource.BaseURL = v
	}
	if v := os.Getenv("HTTPS_PROXY"); v != "" {
		cfg.DataSource.Proxy = v
	}
	if v := os.Getenv("REFRESH_CRON"); v != "" {
		cfg.Schedule.RefreshCron = v
	}
	if v := os.Getenv("SERVER_ADDR"); v != "" {
		cfg.Server.Addr = v
	}
	if v := os.Getenv("TELEGRAM_BOT_TOKEN"); v != "" {
		cfg.Telegram.BotToken = v
	}
	if v := os.Getenv("TELEGRAM_CHAT_ID"); v != "" {
		cfg.Telegram.ChatID = v
	}
	if v := os.Getenv("SQLITE_PATH"); v != "" {
		cfg.Database.SQLitePath = v
	}
	if v := os.Getenv("PROJECTION_POLICY"); v != "" {
		cfg.Projection.Policy = v
	}
	if v := os.Getenv("PROJECTION_HORIZON"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Projection.Horizon = n
		}
	}

	cfg.applyDefaults()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LogLevel == "" {
		c.LogLevel = "info"
	}
	if c.DataSource.Provider == "" {
		c.DataSource.Provider = "kraken"
	}
	if c.DataSource.RatePerMinute == 0 {
		c.DataSource.RatePerMinute = 15
	}
	// An explicit max_retries: 0 disables retries.
	if c.DataSource.MaxRetries == nil {
		retries := 3
		c.DataSource.MaxRetries = &retries
	}
	if len(c.Watch) == 0 {
		c.Watch = []Watch{{Symbol: "XXBTZUSD", Interval: 15}}
	}
	for i := range c.Watch {
		if c.Watch[i].Interval == 0 {
			c.Watch[i].Interval = 15
		}
	}
	if c.Projection.Policy == "" {
		c.Projection.Policy = "fixed"
	}
	if c.Projection.PatternLength == 0 {
		c.Projection.PatternLength = 6
	}
	if c.Projection.MaxLength == 0 {
		c.Projection.MaxLength = 8
	}
	if c.Projection.MinLength == 0 {
		c.Projection.MinLength = 6
	}
	if c.Projection.Horizon == 0 {
		c.Projection.Horizon = 10
	}
	if c.Projection.Lines == 0 {
		c.Projection.Lines = 3
	}
	if c.History.KeepBatches == 0 {
		c.History.KeepBatches = 5
	}
	if c.Schedule.RefreshCron == "" {
		c.Schedule.RefreshCron = "*/15 * * * * *"
	}
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Database.SQLitePath == "" {
		c.Database.SQLitePath = "data/pattern_sentinel.db"
	}
}

var validate = validator.New()

// Validate checks field constraints declared in the struct tags.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config validation: %w", err)
	}
	return nil
}

// TelegramEnabled reports whether both Telegram credentials are set.
func (c *Config) TelegramEnabled() bool {
	return c.Telegram.BotToken != "" && c.Telegram.ChatID != ""
}
