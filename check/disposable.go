package check

import (
	"context"

	"github.com/optimode/contactkit/internal/disposable"
	"github.com/optimode/contactkit/internal/parse"
	"github.com/optimode/contactkit/types"
)

// DisposableChecker flags throwaway mailbox domains. A listed domain is
// Invalid; a domain that only matches a name heuristic is Risky.
type DisposableChecker struct {
	list *disposable.Checker
}

// NewDisposableChecker uses list, or the built-in list when list is nil.
func NewDisposableChecker(list *disposable.Checker) *DisposableChecker {
	if list == nil {
		list = disposable.New()
	}
	return &DisposableChecker{list: list}
}

func (c *DisposableChecker) Tier() int { return TierDisposable }

func (c *DisposableChecker) Check(_ context.Context, email parse.Email) EmailOutcome {
	m := c.list.Check(email.Domain)
	switch {
	case m.Listed:
		return EmailOutcome{
			Status:  types.StatusInvalid,
			Message: "disposable email domain: " + email.Domain,
			Type:    types.EmailDisposable,
			Details: types.Details{
				types.DetailDisposable: true,
				types.DetailDomain:     email.Domain,
			},
		}
	case m.Pattern != "":
		return EmailOutcome{
			Status:  types.StatusRisky,
			Message: "suspected disposable email domain: " + email.Domain,
			Type:    types.EmailDisposable,
			Details: types.Details{
				types.DetailPattern: m.Pattern,
				types.DetailDomain:  email.Domain,
			},
		}
	}
	return EmailOutcome{Status: types.StatusValid, Message: "not a disposable domain"}
}
