package check

import (
	"context"
	"fmt"

	"github.com/optimode/contactkit/internal/parse"
	"github.com/optimode/contactkit/internal/urlpattern"
	"github.com/optimode/contactkit/types"
)

// PlatformChecker recognises professional-network and freelance-platform
// URLs and extracts the embedded profile or posting identifier. A URL on a
// strict platform whose path matches no known pattern is Unknown.
type PlatformChecker struct {
	table *urlpattern.Table
}

func NewPlatformChecker(table *urlpattern.Table) *PlatformChecker {
	if table == nil {
		table = urlpattern.Default()
	}
	return &PlatformChecker{table: table}
}

func (c *PlatformChecker) Tier() int { return TierPlatform }

func (c *PlatformChecker) Check(_ context.Context, u parse.URL) URLOutcome {
	m := c.table.Match(u.Host, u.Path)
	if m.Platform == "" {
		return URLOutcome{Status: types.StatusValid, Message: "not a platform URL", Type: m.Type}
	}

	if !m.Recognized {
		status := types.StatusValid
		msg := fmt.Sprintf("%s URL", m.Platform)
		if m.Strict {
			status = types.StatusUnknown
			msg = fmt.Sprintf("unrecognized %s URL pattern", m.Platform)
		}
		return URLOutcome{
			Status:  status,
			Message: msg,
			Type:    m.Type,
			Details: types.Details{
				types.DetailPlatform: m.Platform,
				types.DetailNote:     "path matches no known pattern",
			},
		}
	}

	details := types.Details{types.DetailPlatform: m.Platform, types.DetailKind: m.Kind}
	if m.Identifier != "" {
		details[types.DetailIdentifier] = m.Identifier
	}
	return URLOutcome{
		Status:  types.StatusValid,
		Message: fmt.Sprintf("valid %s %s URL", m.Platform, m.Kind),
		Type:    m.Type,
		Details: details,
	}
}
