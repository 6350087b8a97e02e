// Package config reads server settings from the environment.
package config

import (
	"encoding/hex"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Environment names
const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

// Defaults
const (
	DefaultAddr           = ":8080"
	DefaultDBPath         = "groomdesk.db"
	DefaultAPIBaseURL     = "http://localhost:3000/api"
	DefaultAPITimeout     = 10 * time.Second
	DefaultSlowRequestMs  = 200
	DefaultSlowAPICallMs  = 500
	DefaultSlowQueryMs    = 50
	DefaultSearchMinChars = 1
	DefaultRateLimit      = 10
	DefaultOTLPEndpoint   = "localhost:4317"
)

// Config holds every runtime setting.
type Config struct {
	Addr           string
	Env            string
	DBPath         string
	APIBaseURL     string
	APITimeout     time.Duration
	CSRFKey        []byte
	ResendKey      string
	NotifyFrom     string
	NotifyRelayTo  []string
	LogLevel       slog.Level
	SlowRequestMs  int
	SlowAPICallMs  int
	SlowQueryMs    int
	SearchMinChars int
	RateLimit      int
	StaticDir      string

	OTelEnabled  bool
	OTLPEndpoint string
	SampleRatio  float64

	problems []string
}

// IsProduction reports whether the server runs in production mode.
func (c *Config) IsProduction() bool {
	return c.Env == EnvProduction
}

// Load reads .env (outside production) and then the process environment.
// Values that fail to parse keep their defaults and are reported by Validate.
// POST: returned Config is never nil
func Load() *Config {
	if os.Getenv("GROOMDESK_ENV") != EnvProduction {
		if err := godotenv.Load(); err == nil {
			slog.Debug("config_env_file_loaded")
		}
	}
	return FromLookup(os.LookupEnv)
}

// FromLookup builds a Config from an arbitrary variable source.
func FromLookup(lookup func(string) (string, bool)) *Config {
	r := reader{lookup: lookup}
	c := &Config{
		Addr:           r.str("GROOMDESK_ADDR", DefaultAddr),
		Env:            strings.ToLower(r.str("GROOMDESK_ENV", EnvDevelopment)),
		DBPath:         r.str("GROOMDESK_DB_PATH", DefaultDBPath),
		APIBaseURL:     r.str("GROOMDESK_API_BASE_URL", ""),
		APITimeout:     r.duration("GROOMDESK_API_TIMEOUT", DefaultAPITimeout),
		ResendKey:      r.str("GROOMDESK_RESEND_KEY", ""),
		NotifyFrom:     r.str("GROOMDESK_NOTIFY_FROM", "GroomDesk <noreply@groomdesk.local>"),
		NotifyRelayTo:  r.list("GROOMDESK_NOTIFY_RELAY_TO"),
		LogLevel:       r.level("GROOMDESK_LOG_LEVEL"),
		SlowRequestMs:  r.positiveInt("GROOMDESK_SLOW_REQUEST_MS", DefaultSlowRequestMs),
		SlowAPICallMs:  r.positiveInt("GROOMDESK_SLOW_API_MS", DefaultSlowAPICallMs),
		SlowQueryMs:    r.positiveInt("GROOMDESK_SLOW_QUERY_MS", DefaultSlowQueryMs),
		SearchMinChars: r.positiveInt("GROOMDESK_SEARCH_MIN_CHARS", DefaultSearchMinChars),
		RateLimit:      r.positiveInt("GROOMDESK_RATE_LIMIT", DefaultRateLimit),
		StaticDir:      r.str("GROOMDESK_STATIC_DIR", "static"),
		OTelEnabled:    r.boolean("OTEL_ENABLED", false),
		OTLPEndpoint:   r.str("OTEL_EXPORTER_OTLP_ENDPOINT", DefaultOTLPEndpoint),
		SampleRatio:    r.ratio("OTEL_SAMPLING_RATIO", 1),
	}
	if keyHex := r.str("GROOMDESK_CSRF_KEY", ""); keyHex != "" {
		key, err := hex.DecodeString(keyHex)
		if err != nil || len(key) != 32 {
			r.problem("GROOMDESK_CSRF_KEY must be 64 hex characters (32 bytes)")
		} else {
			c.CSRFKey = key
		}
	}
	c.problems = r.problems
	return c
}

// Validate reports every invalid or missing setting in one error.
func (c *Config) Validate() error {
	problems := append([]string(nil), c.problems...)
	switch c.Env {
	case EnvDevelopment, EnvProduction:
	default:
		problems = append(problems, fmt.Sprintf("GROOMDESK_ENV must be development or production (got %q)", c.Env))
	}
	if c.IsProduction() {
		if c.APIBaseURL == "" {
			problems = append(problems, "GROOMDESK_API_BASE_URL is required in production")
		}
		if len(c.CSRFKey) == 0 {
			problems = append(problems, "GROOMDESK_CSRF_KEY is required in production")
		}
	}
	if c.APIBaseURL != "" {
		if u, err := url.Parse(c.APIBaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			problems = append(problems, fmt.Sprintf("GROOMDESK_API_BASE_URL must be an absolute URL (got %q)", c.APIBaseURL))
		}
	}
	if c.ResendKey != "" && len(c.NotifyRelayTo) == 0 {
		problems = append(problems, "GROOMDESK_NOTIFY_RELAY_TO is required when GROOMDESK_RESEND_KEY is set")
	}
	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}

// BaseURL returns the API base URL, falling back to the development default.
func (c *Config) BaseURL() string {
	if c.APIBaseURL == "" {
		return DefaultAPIBaseURL
	}
	return c.APIBaseURL
}

type reader struct {
	lookup   func(string) (string, bool)
	problems []string
}

func (r *reader) problem(msg string) {
	r.problems = append(r.problems, msg)
}

func (r *reader) str(key, fallback string) string {
	if v, ok := r.lookup(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func (r *reader) list(key string) []string {
	var out []string
	for _, part := range strings.Split(r.str(key, ""), ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func (r *reader) positiveInt(key string, fallback int) int {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		r.problem(fmt.Sprintf("%s must be a positive integer (got %q)", key, v))
		return fallback
	}
	return n
}

func (r *reader) duration(key string, fallback time.Duration) time.Duration {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		r.problem(fmt.Sprintf("%s must be a positive duration such as 10s (got %q)", key, v))
		return fallback
	}
	return d
}

func (r *reader) boolean(key string, fallback bool) bool {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		r.problem(fmt.Sprintf("%s must be true or false (got %q)", key, v))
		return fallback
	}
	return b
}

func (r *reader) ratio(key string, fallback float64) float64 {
	v := r.str(key, "")
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil || f < 0 || f > 1 {
		r.problem(fmt.Sprintf("%s must be between 0 and 1 (got %q)", key, v))
		return fallback
	}
	return f
}

func (r *reader) level(key string) slog.Level {
	v := r.str(key, "info")
	var l slog.Level
	if err := l.UnmarshalText([]byte(v)); err != nil {
		r.problem(fmt.Sprintf("%s must be debug, info, warn or error (got %q)", key, v))
		return slog.LevelInfo
	}
	return l
}
