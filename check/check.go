package check

import (
	"context"

	"github.com/optimode/contactkit/internal/parse"
	"github.com/optimode/contactkit/types"
)

// EmailOutcome is the verdict of a single email tier.
type EmailOutcome struct {
	Status  types.Status
	Message string
	// Type is set by tiers that classify the address; empty otherwise.
	Type    types.EmailType
	Details types.Details
}

// EmailChecker is one email verification tier.
type EmailChecker interface {
	// Tier is the 1-based position of the checker in the email pipeline.
	Tier() int
	Check(ctx context.Context, email parse.Email) EmailOutcome
}

// URLOutcome is the verdict of a single URL tier.
type URLOutcome struct {
	Status   types.Status
	Message  string
	Type     types.URLType // empty when the tier does not classify
	HTTPCode int
	FinalURL string
	Details  types.Details
}

// URLChecker is one URL verification tier.
type URLChecker interface {
	Tier() int
	Check(ctx context.Context, u parse.URL) URLOutcome
}

// Tier numbers.
const (
	TierSyntax       = 1
	TierMX           = 2
	TierDisposable   = 3
	TierHandshake    = 4
	TierURLFormat    = 1
	TierPlatform     = 2
	TierReachability = 3
)

// truncate shortens error text for messages and details.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
