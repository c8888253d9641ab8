package contactkit

import "errors"

var (
	// ErrNoChecksConfigured is returned by New when neither email nor URL
	// format checking is enabled, so nothing would ever be verified.
	ErrNoChecksConfigured = errors.New("contactkit: no verification checks configured")

	// ErrFormatCheckRequired is returned when a later tier is enabled
	// without the format tier it depends on.
	ErrFormatCheckRequired = errors.New("contactkit: format check is required by the enabled tiers")

	// ErrInvalidTimeout is returned when reachability probing is enabled
	// with a non-positive URL timeout.
	ErrInvalidTimeout = errors.New("contactkit: URL timeout must be positive")

	// ErrInvalidConcurrency is returned for a negative MaxConcurrent.
	ErrInvalidConcurrency = errors.New("contactkit: concurrency limit must not be negative")

	// ErrInvalidSMTPOptions is returned when WithSMTPOptions is used
	// without HeloDomain or MailFrom.
	ErrInvalidSMTPOptions = errors.New("contactkit: SMTPOptions requires HeloDomain and MailFrom")

	// ErrVerifierClosed is returned by Close when called more than once.
	ErrVerifierClosed = errors.New("contactkit: verifier already closed")

	// ErrUnknownLevel is returned by ParseLevel.
	ErrUnknownLevel = errors.New("contactkit: unknown verification level")
)
