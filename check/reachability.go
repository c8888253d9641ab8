package check

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/optimode/contactkit/internal/httpprobe"
	"github.com/optimode/contactkit/internal/parse"
	"github.com/optimode/contactkit/types"
)

// ReachabilityChecker probes the URL over HTTP. 2xx and 3xx answers on the
// requested host are Valid, answers from another host are Redirect, 4xx is
// Invalid. Server errors, timeouts and connection failures are Unknown.
type ReachabilityChecker struct {
	prober *httpprobe.Prober
}

func NewReachabilityChecker(prober *httpprobe.Prober) *ReachabilityChecker {
	return &ReachabilityChecker{prober: prober}
}

func (c *ReachabilityChecker) Tier() int { return TierReachability }

func (c *ReachabilityChecker) Check(ctx context.Context, u parse.URL) URLOutcome {
	if c.prober == nil {
		return URLOutcome{
			Status:  types.StatusUnknown,
			Message: "reachability probe unavailable",
			Details: types.Details{types.DetailErrorKind: string(types.KindUnavailable)},
		}
	}

	res, err := c.prober.Probe(ctx, u.Input)
	if err != nil {
		if httpprobe.IsTimeout(err) {
			return URLOutcome{
				Status:  types.StatusUnknown,
				Message: fmt.Sprintf("request timed out (%s)", c.prober.Timeout()),
				Details: types.Details{types.DetailErrorKind: string(types.KindTimeout)},
			}
		}
		return URLOutcome{
			Status:  types.StatusUnknown,
			Message: "connection failed",
			Details: types.Details{
				types.DetailErrorKind: string(types.KindTransport),
				types.DetailError:     truncate(err.Error(), 100),
			},
		}
	}

	code := res.StatusCode
	details := types.Details{types.DetailMethod: res.Method}
	finalURL := ""
	if res.FinalURL != nil {
		finalURL = res.FinalURL.String()
	}

	switch {
	case code >= 200 && code < 400:
		finalHost := u.Host
		if res.FinalURL != nil {
			finalHost = strings.ToLower(res.FinalURL.Hostname())
			if ascii, _, ok := parse.Domain(finalHost); ok {
				finalHost = ascii
			}
		}
		if finalHost != u.Host {
			details[types.DetailFinalURL] = finalURL
			details[types.DetailFinalHost] = finalHost
			details[types.DetailSameSite] = httpprobe.SameSite(u.Host, finalHost)
			return URLOutcome{
				Status:   types.StatusRedirect,
				Message:  "redirects to " + finalHost,
				HTTPCode: code,
				FinalURL: finalURL,
				Details:  details,
			}
		}
		return URLOutcome{
			Status:   types.StatusValid,
			Message:  "reachable",
			HTTPCode: code,
			FinalURL: finalURL,
			Details:  details,
		}
	case code >= 400 && code < 500:
		return URLOutcome{
			Status:   types.StatusInvalid,
			Message:  clientErrorMessage(code),
			HTTPCode: code,
			Details:  details,
		}
	}
	return URLOutcome{
		Status:   types.StatusUnknown,
		Message:  fmt.Sprintf("server error (%d)", code),
		HTTPCode: code,
		Details:  details,
	}
}

func clientErrorMessage(code int) string {
	switch code {
	case http.StatusNotFound:
		return "page not found (404)"
	case http.StatusForbidden:
		return "access forbidden (403)"
	case http.StatusUnauthorized:
		return "authentication required (401)"
	}
	return fmt.Sprintf("client error (%d)", code)
}
