package contactkit

import (
	"fmt"
	"strings"
	"time"
)

// Level selects a verification depth.
type Level string

const (
	// LevelQuick checks formats and disposable domains without any network
	// traffic.
	LevelQuick Level = "quick"
	// LevelStandard adds the MX lookup.
	LevelStandard Level = "standard"
	// LevelFull adds the mail-server handshake and URL reachability probes.
	LevelFull Level = "full"
)

// ParseLevel converts "quick", "standard" or "full" (any case) to a Level.
func ParseLevel(s string) (Level, error) {
	switch l := Level(strings.ToLower(strings.TrimSpace(s))); l {
	case LevelQuick, LevelStandard, LevelFull:
		return l, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownLevel, s)
}

// DefaultURLFields are the record keys holding URLs, in verification order.
var DefaultURLFields = []string{"website", "linkedin", "platform_link"}

// DefaultMaxConcurrent is the batch concurrency used when none is set.
const DefaultMaxConcurrent = 10

// VerificationConfig selects which tiers run and how results are filtered.
// It is a plain value; start from Quick, Standard or Full and adjust.
type VerificationConfig struct {
	Level Level

	EmailCheckFormat     bool
	EmailCheckMX         bool
	EmailCheckDisposable bool
	// EmailCheckHandshake enables the SMTP RCPT TO probe. Slow and visible
	// to the remote server.
	EmailCheckHandshake bool

	URLCheckFormat       bool
	URLCheckReachability bool
	// URLTimeout bounds one reachability probe. Default: 5s
	URLTimeout time.Duration

	FilterInvalid     bool
	RequireEmail      bool
	RequireAnyContact bool

	// MaxConcurrent is the default number of records verified at once by
	// VerifyBatch. Zero means DefaultMaxConcurrent.
	MaxConcurrent int
	// URLFields overrides DefaultURLFields.
	URLFields []string
}

func base(level Level) VerificationConfig {
	return VerificationConfig{
		Level:                level,
		EmailCheckFormat:     true,
		EmailCheckDisposable: true,
		URLCheckFormat:       true,
		URLTimeout:           5 * time.Second,
		RequireAnyContact:    true,
		MaxConcurrent:        DefaultMaxConcurrent,
	}
}

// Quick checks syntax, disposable domains and URL shape only.
func Quick() VerificationConfig {
	return base(LevelQuick)
}

// Standard adds the MX record lookup to Quick.
func Standard() VerificationConfig {
	c := base(LevelStandard)
	c.EmailCheckMX = true
	return c
}

// Full adds the mail-server handshake and URL reachability probes.
func Full() VerificationConfig {
	c := base(LevelFull)
	c.EmailCheckMX = true
	c.EmailCheckHandshake = true
	c.URLCheckReachability = true
	return c
}

// ConfigForLevel returns the preset for l.
func ConfigForLevel(l Level) (VerificationConfig, error) {
	switch l {
	case LevelQuick:
		return Quick(), nil
	case LevelStandard:
		return Standard(), nil
	case LevelFull:
		return Full(), nil
	}
	return VerificationConfig{}, fmt.Errorf("%w: %q", ErrUnknownLevel, l)
}

// Validate reports configuration mistakes. New calls it.
func (c VerificationConfig) Validate() error {
	if !c.EmailCheckFormat && !c.URLCheckFormat {
		return ErrNoChecksConfigured
	}
	if !c.EmailCheckFormat && (c.EmailCheckMX || c.EmailCheckDisposable || c.EmailCheckHandshake) {
		return fmt.Errorf("%w: email tiers enabled without EmailCheckFormat", ErrFormatCheckRequired)
	}
	if !c.URLCheckFormat && c.URLCheckReachability {
		return fmt.Errorf("%w: URL reachability enabled without URLCheckFormat", ErrFormatCheckRequired)
	}
	if c.URLCheckReachability && c.URLTimeout <= 0 {
		return ErrInvalidTimeout
	}
	if c.MaxConcurrent < 0 {
		return ErrInvalidConcurrency
	}
	return nil
}

// FilterPolicy returns the partition policy implied by the config.
func (c VerificationConfig) FilterPolicy() FilterPolicy {
	return FilterPolicy{RequireEmail: c.RequireEmail, RequireAnyContact: c.RequireAnyContact}
}

func (c VerificationConfig) urlFields() []string {
	if len(c.URLFields) > 0 {
		return c.URLFields
	}
	return DefaultURLFields
}

func (c VerificationConfig) maxConcurrent() int {
	if c.MaxConcurrent > 0 {
		return c.MaxConcurrent
	}
	return DefaultMaxConcurrent
}
