// Package config loads designgen settings from environment variables. Both
// the mock server and the client read from the same Config; command-line
// flags override individual fields afterwards.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"
)

// MaxLatency caps the mock server's artificial delay so a response still
// fits in the server's write timeout and the client's request timeout.
const MaxLatency = 20 * time.Second

type Config struct {
	// Mock server
	Host            string
	Port            string
	LatencyMin      time.Duration
	LatencyMax      time.Duration
	PreviewDelay    time.Duration
	PreviewFailRate float64
	RateLimit       float64 // requests per second per client IP, 0 disables
	RateBurst       int
	FixturesFile    string

	// Client
	APIURL          string
	PollInterval    time.Duration
	MaxPollAttempts int
	DBPath          string
	Offline         bool // serve designs in-process instead of calling APIURL
	Verbose         bool
}

// Load reads configuration through getenv (os.Getenv when nil).
func Load(getenv func(string) string) (*Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	e := env{get: getenv}

	cfg := &Config{
		Host:            e.str("DESIGNGEN_HOST", "127.0.0.1"),
		Port:            e.str("DESIGNGEN_PORT", "3001"),
		LatencyMin:      e.duration("DESIGNGEN_LATENCY_MIN", time.Second),
		LatencyMax:      e.duration("DESIGNGEN_LATENCY_MAX", 3*time.Second),
		PreviewDelay:    e.duration("DESIGNGEN_PREVIEW_DELAY", 4*time.Second),
		PreviewFailRate: e.float("DESIGNGEN_PREVIEW_FAIL_RATE", 0),
		RateLimit:       e.float("DESIGNGEN_RATE_LIMIT", 10),
		RateBurst:       e.int("DESIGNGEN_RATE_BURST", 20),
		FixturesFile:    getenv("DESIGNGEN_FIXTURES"),

		APIURL:          e.str("DESIGNGEN_API_URL", "http://localhost:3001"),
		PollInterval:    e.duration("DESIGNGEN_POLL_INTERVAL", 2*time.Second),
		MaxPollAttempts: e.int("DESIGNGEN_MAX_POLL_ATTEMPTS", 30),
		DBPath:          getenv("DESIGNGEN_DB"),
		Offline:         e.bool("DESIGNGEN_OFFLINE", false),
		Verbose:         e.bool("DESIGNGEN_VERBOSE", false),
	}

	if e.err != nil {
		return nil, e.err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) Validate() error {
	if c.LatencyMin < 0 || c.LatencyMax < 0 {
		return fmt.Errorf("latency must not be negative")
	}
	if c.LatencyMax < c.LatencyMin {
		return fmt.Errorf("latency max (%s) is below min (%s)", c.LatencyMax, c.LatencyMin)
	}
	if c.LatencyMax > MaxLatency {
		return fmt.Errorf("latency max (%s) exceeds %s", c.LatencyMax, MaxLatency)
	}
	if c.PreviewFailRate < 0 || c.PreviewFailRate > 1 {
		return fmt.Errorf("preview fail rate must be within [0, 1], got %g", c.PreviewFailRate)
	}
	if c.PollInterval <= 0 {
		return fmt.Errorf("poll interval must be positive")
	}
	if c.MaxPollAttempts < 1 {
		return fmt.Errorf("max poll attempts must be at least 1")
	}
	return nil
}

func (c *Config) Addr() string {
	return c.Host + ":" + c.Port
}

// DatabasePath returns DBPath, falling back to ~/.designgen/designs.db.
func (c *Config) DatabasePath() (string, error) {
	if c.DBPath != "" {
		return c.DBPath, nil
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, ".designgen", "designs.db"), nil
}

// env accumulates the first parse error so Load can report it once.
type env struct {
	get func(string) string
	err error
}

func (e *env) str(key, fallback string) string {
	if v := e.get(key); v != "" {
		return v
	}
	return fallback
}

func (e *env) duration(key string, fallback time.Duration) time.Duration {
	v := e.get(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return d
}

func (e *env) int(key string, fallback int) int {
	v := e.get(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return n
}

func (e *env) float(key string, fallback float64) float64 {
	v := e.get(key)
	if v == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return f
}

func (e *env) bool(key string, fallback bool) bool {
	v := e.get(key)
	if v == "" {
		return fallback
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		e.fail(key, v, err)
		return fallback
	}
	return b
}

func (e *env) fail(key, value string, err error) {
	if e.err == nil {
		e.err = fmt.Errorf("invalid %s=%q: %w", key, value, err)
	}
}
