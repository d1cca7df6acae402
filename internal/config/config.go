// Package config loads runtime settings from the environment, an optional
// .env file and, when PARAM_PREFIX is set, SSM Parameter Store.
package config

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"medai-intake/internal/integrations/analysis"
	"medai-intake/internal/usecase"
)

// Session store kinds.
const (
	StoreFile     = "file"
	StoreMemory   = "memory"
	StoreDynamoDB = "dynamodb"
)

// Parameter names read below PARAM_PREFIX.
const (
	ParamAnalysisBaseURL = "analysis_base_url"
	ParamDemoRequestURL  = "demo_request_url"
)

type Config struct {
	AnalysisBaseURL string
	DemoRequestURL  string
	HTTPTimeout     time.Duration
	KeywordTimeout  time.Duration
	TurnDelay       time.Duration
	FinishDelay     time.Duration
	LogLevel        string

	SessionStore string
	SessionFile  string
	SessionTable string
	SessionOwner string

	ParamPrefix string
	MetricsAddr string
}

// ParamLookup resolves parameters below a prefix. *paramstore.Client
// satisfies it.
type ParamLookup interface {
	Lookup(ctx context.Context, prefix string, suffixes ...string) (map[string]string, error)
}

// Load reads .env when present and then the process environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("config: could not read .env", "err", err)
	}
	return FromEnv()
}

// FromEnv builds a Config from environment variables only.
func FromEnv() (*Config, error) {
	cfg := &Config{
		AnalysisBaseURL: getEnv("ANALYSIS_BASE_URL", analysis.DefaultBaseURL),
		DemoRequestURL:  getEnv("DEMO_REQUEST_URL", ""),
		HTTPTimeout:     getEnvAsDuration("HTTP_TIMEOUT", 10*time.Second),
		KeywordTimeout:  getEnvAsDuration("KEYWORD_TIMEOUT", usecase.DefaultKeywordTimeout),
		TurnDelay:       getEnvAsDuration("INTAKE_TURN_DELAY", usecase.DefaultTurnDelay),
		FinishDelay:     getEnvAsDuration("INTAKE_FINISH_DELAY", usecase.DefaultFinishDelay),
		LogLevel:        strings.ToLower(getEnv("LOG_LEVEL", "info")),
		SessionStore:    strings.ToLower(getEnv("SESSION_STORE", StoreFile)),
		SessionFile:     getEnv("SESSION_FILE", ""),
		SessionTable:    getEnv("SESSION_TABLE", ""),
		SessionOwner:    getEnv("SESSION_OWNER", ""),
		ParamPrefix:     strings.TrimRight(getEnv("PARAM_PREFIX", ""), "/"),
		MetricsAddr:     getEnv("METRICS_ADDR", ""),
	}
	return cfg, cfg.Validate()
}

// Validate reports the first setting that cannot work.
func (c *Config) Validate() error {
	switch c.SessionStore {
	case StoreFile, StoreMemory:
	case StoreDynamoDB:
		if c.SessionTable == "" {
			return fmt.Errorf("config: SESSION_TABLE is required when SESSION_STORE=%s", StoreDynamoDB)
		}
	default:
		return fmt.Errorf("config: unknown SESSION_STORE %q", c.SessionStore)
	}
	if strings.TrimSpace(c.AnalysisBaseURL) == "" {
		return errors.New("config: ANALYSIS_BASE_URL must not be empty")
	}
	if c.HTTPTimeout <= 0 || c.KeywordTimeout <= 0 {
		return errors.New("config: timeouts must be positive")
	}
	if c.TurnDelay < 0 || c.FinishDelay < 0 {
		return errors.New("config: delays must not be negative")
	}
	return nil
}

// NeedsAWS reports whether any configured component talks to AWS.
func (c *Config) NeedsAWS() bool {
	return c.ParamPrefix != "" || c.SessionStore == StoreDynamoDB
}

// ApplyParams overlays URLs stored in Parameter Store. Missing parameters
// leave the environment values untouched.
func (c *Config) ApplyParams(ctx context.Context, params ParamLookup) error {
	if c.ParamPrefix == "" || params == nil {
		return nil
	}
	vals, err := params.Lookup(ctx, c.ParamPrefix, ParamAnalysisBaseURL, ParamDemoRequestURL)
	if err != nil {
		return fmt.Errorf("config: load parameters under %s: %w", c.ParamPrefix, err)
	}
	if v := vals[ParamAnalysisBaseURL]; v != "" {
		c.AnalysisBaseURL = v
	}
	if v := vals[ParamDemoRequestURL]; v != "" {
		c.DemoRequestURL = v
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	slog.Warn("config: invalid duration, using default", "key", key, "value", valueStr, "default", defaultValue)
	return defaultValue
}
