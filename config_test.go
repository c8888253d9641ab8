package contactkit_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/optimode/contactkit"
)

func TestPresets(t *testing.T) {
	q := contactkit.Quick()
	assert.True(t, q.EmailCheckFormat)
	assert.True(t, q.EmailCheckDisposable)
	assert.False(t, q.EmailCheckMX)
	assert.False(t, q.EmailCheckHandshake)
	assert.False(t, q.URLCheckReachability)
	assert.True(t, q.RequireAnyContact)
	assert.False(t, q.RequireEmail)

	s := contactkit.Standard()
	assert.True(t, s.EmailCheckMX)
	assert.False(t, s.EmailCheckHandshake)

	f := contactkit.Full()
	assert.True(t, f.EmailCheckHandshake)
	assert.True(t, f.URLCheckReachability)
	assert.Equal(t, 5*time.Second, f.URLTimeout)

	for _, c := range []contactkit.VerificationConfig{q, s, f} {
		assert.NoError(t, c.Validate())
	}
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]contactkit.Level{
		"quick":      contactkit.LevelQuick,
		" Standard ": contactkit.LevelStandard,
		"FULL":       contactkit.LevelFull,
	} {
		got, err := contactkit.ParseLevel(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got)

		cfg, err := contactkit.ConfigForLevel(got)
		require.NoError(t, err)
		assert.Equal(t, want, cfg.Level)
	}

	_, err := contactkit.ParseLevel("paranoid")
	assert.ErrorIs(t, err, contactkit.ErrUnknownLevel)
	_, err = contactkit.ConfigForLevel("paranoid")
	assert.ErrorIs(t, err, contactkit.ErrUnknownLevel)
}

func TestVerificationConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*contactkit.VerificationConfig)
		want   error
	}{
		{"mx without format", func(c *contactkit.VerificationConfig) { c.EmailCheckFormat = false; c.EmailCheckMX = true }, contactkit.ErrFormatCheckRequired},
		{"reachability without format", func(c *contactkit.VerificationConfig) { c.URLCheckFormat = false; c.URLCheckReachability = true }, contactkit.ErrFormatCheckRequired},
		{"zero timeout", func(c *contactkit.VerificationConfig) { c.URLCheckReachability = true; c.URLTimeout = 0 }, contactkit.ErrInvalidTimeout},
		{"negative concurrency", func(c *contactkit.VerificationConfig) { c.MaxConcurrent = -1 }, contactkit.ErrInvalidConcurrency},
		{"url only", func(c *contactkit.VerificationConfig) { c.EmailCheckFormat, c.EmailCheckDisposable = false, false }, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := contactkit.Quick()
			tt.mutate(&cfg)
			err := cfg.Validate()
			if tt.want == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.want)
		})
	}
}
