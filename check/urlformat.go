package check

import (
	"context"

	"github.com/optimode/contactkit/internal/parse"
	"github.com/optimode/contactkit/internal/urlpattern"
	"github.com/optimode/contactkit/types"
)

// URLFormatChecker requires an explicit http(s) scheme and a host, and
// classifies the URL type from the platform table.
type URLFormatChecker struct {
	table *urlpattern.Table
}

// NewURLFormatChecker uses table, or the default table when table is nil.
func NewURLFormatChecker(table *urlpattern.Table) *URLFormatChecker {
	if table == nil {
		table = urlpattern.Default()
	}
	return &URLFormatChecker{table: table}
}

func (c *URLFormatChecker) Tier() int { return TierURLFormat }

func (c *URLFormatChecker) Check(_ context.Context, u parse.URL) URLOutcome {
	if !u.Valid() {
		return URLOutcome{
			Status:  types.StatusInvalid,
			Message: "invalid URL: " + u.Problem,
			Type:    types.URLOther,
			Details: types.Details{types.DetailErrorKind: string(types.KindFormat)},
		}
	}
	m := c.table.Match(u.Host, u.Path)
	return URLOutcome{
		Status:  types.StatusValid,
		Message: "valid URL format",
		Type:    m.Type,
		Details: types.Details{types.DetailDomain: u.Host},
	}
}
