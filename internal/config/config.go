// Package config loads the binaries' configuration from the environment
// and optional .env files.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/optimode/contactkit"
)

// Config holds runtime configuration loaded from environment variables.
type Config struct {
	Level              contactkit.Level
	Concurrency        int
	URLTimeout         time.Duration
	URLCacheTTL        time.Duration
	SMTPHelo           string
	SMTPFrom           string
	DisposableFile     string
	DNSTimeoutInvalid  bool
	RedisURL           string
	DatabaseURL        string
	HTTPAddr           string
	LogLevel           string
	FilterInvalid      bool
	RequireEmail       bool
	HTTPRequestsPerSec float64
}

// Load reads CONTACTKIT_* variables. Values from envFiles fill in
// variables that are not set in the process environment; missing files
// are skipped.
func Load(envFiles ...string) (Config, error) {
	env, err := readFiles(envFiles)
	if err != nil {
		return Config{}, err
	}

	level, err := contactkit.ParseLevel(env.get("CONTACTKIT_LEVEL", string(contactkit.LevelStandard)))
	if err != nil {
		return Config{}, fmt.Errorf("parse CONTACTKIT_LEVEL: %w", err)
	}

	cfg := Config{
		Level:          level,
		SMTPHelo:       env.get("CONTACTKIT_SMTP_HELO", ""),
		SMTPFrom:       env.get("CONTACTKIT_SMTP_FROM", ""),
		DisposableFile: env.get("CONTACTKIT_DISPOSABLE_FILE", ""),
		RedisURL:       env.get("CONTACTKIT_REDIS_URL", ""),
		DatabaseURL:    env.get("CONTACTKIT_DB_URL", ""),
		HTTPAddr:       env.get("CONTACTKIT_HTTP_ADDR", ":8080"),
		LogLevel:       env.get("CONTACTKIT_LOG_LEVEL", "info"),
	}

	if cfg.Concurrency, err = env.int("CONTACTKIT_CONCURRENCY", contactkit.DefaultMaxConcurrent); err != nil {
		return Config{}, err
	}
	if cfg.URLTimeout, err = env.duration("CONTACTKIT_URL_TIMEOUT", 5*time.Second); err != nil {
		return Config{}, err
	}
	if cfg.URLCacheTTL, err = env.duration("CONTACTKIT_URL_CACHE_TTL", time.Hour); err != nil {
		return Config{}, err
	}
	if cfg.DNSTimeoutInvalid, err = env.bool("CONTACTKIT_DNS_TIMEOUT_INVALID", false); err != nil {
		return Config{}, err
	}
	if cfg.FilterInvalid, err = env.bool("CONTACTKIT_FILTER_INVALID", false); err != nil {
		return Config{}, err
	}
	if cfg.RequireEmail, err = env.bool("CONTACTKIT_REQUIRE_EMAIL", false); err != nil {
		return Config{}, err
	}
	if cfg.HTTPRequestsPerSec, err = env.float("CONTACTKIT_HTTP_RPS", 0); err != nil {
		return Config{}, err
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate reports inconsistent settings.
func (c Config) Validate() error {
	if c.Concurrency < 1 {
		return errors.New("CONTACTKIT_CONCURRENCY must be at least 1")
	}
	if c.URLTimeout <= 0 {
		return errors.New("CONTACTKIT_URL_TIMEOUT must be positive")
	}
	if c.URLCacheTTL <= 0 {
		return errors.New("CONTACTKIT_URL_CACHE_TTL must be positive")
	}
	if (c.SMTPHelo == "") != (c.SMTPFrom == "") {
		return errors.New("set both CONTACTKIT_SMTP_HELO and CONTACTKIT_SMTP_FROM or neither")
	}
	if c.HTTPRequestsPerSec < 0 {
		return errors.New("CONTACTKIT_HTTP_RPS must not be negative")
	}
	if c.HTTPAddr == "" {
		return errors.New("CONTACTKIT_HTTP_ADDR is required")
	}
	return nil
}

// Verification returns the preset for Level with the configured overrides.
func (c Config) Verification() contactkit.VerificationConfig {
	vc, _ := contactkit.ConfigForLevel(c.Level)
	vc.MaxConcurrent = c.Concurrency
	vc.URLTimeout = c.URLTimeout
	vc.FilterInvalid = c.FilterInvalid
	vc.RequireEmail = c.RequireEmail
	return vc
}

// Options returns the Verifier options implied by the config. Options
// that need live connections (Redis, logger, metrics) are added by the
// caller; a Redis URL cache must use URLCacheTTL as well.
func (c Config) Options() []contactkit.Option {
	opts := []contactkit.Option{
		contactkit.WithDNSOptions(contactkit.DNSOptions{TimeoutIsInvalid: c.DNSTimeoutInvalid}),
		contactkit.WithHTTPOptions(contactkit.HTTPOptions{
			RequestsPerSecond: c.HTTPRequestsPerSec,
			Burst:             5,
			CacheTTL:          c.URLCacheTTL,
		}),
	}
	if c.SMTPHelo != "" {
		opts = append(opts, contactkit.WithSMTPOptions(contactkit.SMTPOptions{
			HeloDomain: c.SMTPHelo,
			MailFrom:   c.SMTPFrom,
		}))
	}
	if c.DisposableFile != "" {
		opts = append(opts, contactkit.WithDisposableOptions(contactkit.DisposableOptions{ListPath: c.DisposableFile}))
	}
	return opts
}

// source resolves variables from the process environment first and the
// .env files second.
type source map[string]string

func readFiles(files []string) (source, error) {
	var existing []string
	for _, f := range files {
		if _, err := os.Stat(f); err == nil {
			existing = append(existing, f)
		}
	}
	if len(existing) == 0 {
		return source{}, nil
	}
	vals, err := godotenv.Read(existing...)
	if err != nil {
		return nil, fmt.Errorf("read env files: %w", err)
	}
	return source(vals), nil
}

func (s source) get(key, defaultVal string) string {
	if val := strings.TrimSpace(os.Getenv(key)); val != "" {
		return val
	}
	if val := strings.TrimSpace(s[key]); val != "" {
		return val
	}
	return defaultVal
}

func (s source) bool(key string, defaultVal bool) (bool, error) {
	val := s.get(key, "")
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseBool(val)
	if err != nil {
		return false, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func (s source) int(key string, defaultVal int) (int, error) {
	val := s.get(key, "")
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.Atoi(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

func (s source) float(key string, defaultVal float64) (float64, error) {
	val := s.get(key, "")
	if val == "" {
		return defaultVal, nil
	}
	parsed, err := strconv.ParseFloat(val, 64)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}

// duration accepts Go durations ("750ms") and plain seconds ("5").
func (s source) duration(key string, defaultVal time.Duration) (time.Duration, error) {
	val := s.get(key, "")
	if val == "" {
		return defaultVal, nil
	}
	if secs, err := strconv.ParseFloat(val, 64); err == nil {
		return time.Duration(secs * float64(time.Second)), nil
	}
	parsed, err := time.ParseDuration(val)
	if err != nil {
		return 0, fmt.Errorf("parse %s: %w", key, err)
	}
	return parsed, nil
}
