// Package types contains the shared result types for contactkit.
// This package does not import anything from other contactkit packages
// to avoid circular imports.
package types

// Status is the outcome of a single email or URL verification.
type Status string

const (
	StatusValid   Status = "valid"
	StatusInvalid Status = "invalid"
	// StatusUnknown means the probe could not complete. It must never be
	// treated as StatusInvalid by downstream filtering.
	StatusUnknown Status = "unknown"
	// StatusRisky is only used for suspected, unconfirmed disposable emails.
	StatusRisky Status = "risky"
	// StatusRedirect is reported by the URL reachability probe when the
	// final host differs from the requested one.
	StatusRedirect Status = "redirect"
)

// Overall is the aggregated verdict for one record.
type Overall string

const (
	OverallValid   Overall = "valid"
	OverallPartial Overall = "partial"
	OverallInvalid Overall = "invalid"
	OverallUnknown Overall = "unknown"
)

// EmailType classifies an email address by its domain.
type EmailType string

const (
	EmailCorporate  EmailType = "corporate"
	EmailFree       EmailType = "free"
	EmailDisposable EmailType = "disposable"
	EmailUnknown    EmailType = "unknown"
)

// URLType classifies a URL by its structure.
type URLType string

const (
	URLWebsite         URLType = "website"
	URLLinkedInCompany URLType = "linkedin_company"
	URLLinkedInPerson  URLType = "linkedin_person"
	URLLinkedInJob     URLType = "linkedin_job"
	URLUpwork          URLType = "upwork"
	URLToptal          URLType = "toptal"
	URLDribbble        URLType = "dribbble"
	URLFiverr          URLType = "fiverr"
	URLBehance         URLType = "behance"
	URLOther           URLType = "other"
)

// IsLinkedInProfile reports whether t is a LinkedIn company or person page.
func (t URLType) IsLinkedInProfile() bool {
	return t == URLLinkedInCompany || t == URLLinkedInPerson
}

// ErrorKind is the failure taxonomy recorded under Details[DetailErrorKind].
type ErrorKind string

const (
	KindFormat      ErrorKind = "format_error"
	KindResolution  ErrorKind = "resolution_failure"
	KindTransport   ErrorKind = "transport_failure"
	KindTimeout     ErrorKind = "timeout"
	KindUnavailable ErrorKind = "capability_unavailable"
)

// Well-known detail map keys.
const (
	DetailCached     = "cached"
	DetailDomain     = "domain"
	DetailErrorKind  = "error_kind"
	DetailError      = "error"
	DetailLastError  = "last_error"
	DetailMXHosts    = "mx_hosts"
	DetailMXHost     = "mx_host"
	DetailSMTPCode   = "smtp_code"
	DetailSuggestion = "suggestion"
	DetailPattern    = "suspicious_pattern"
	DetailDisposable = "is_disposable"
	DetailIdentifier = "identifier"
	DetailPlatform   = "platform"
	DetailKind       = "kind"
	DetailFinalURL   = "final_url"
	DetailFinalHost  = "final_host"
	DetailSameSite   = "same_site"
	DetailMethod     = "method"
	DetailNote       = "note"
)

// Details is a free-form detail map attached to every result.
type Details map[string]any

// Clone returns a copy of d. String slices are copied as well so that
// callers cannot reach cached data through the clone.
func (d Details) Clone() Details {
	if d == nil {
		return nil
	}
	out := make(Details, len(d))
	for k, v := range d {
		switch vv := v.(type) {
		case []string:
			out[k] = append([]string(nil), vv...)
		case []any:
			out[k] = append([]any(nil), vv...)
		default:
			out[k] = v
		}
	}
	return out
}

// EmailResult is the outcome of the tiered email verification.
type EmailResult struct {
	Email   string    `json:"email"`
	Status  Status    `json:"status"`
	Message string    `json:"message"`
	Type    EmailType `json:"email_type"`
	// Tier is the highest tier that executed, 0 to 4.
	Tier    int     `json:"tier_reached"`
	Details Details `json:"details,omitempty"`
}

// Clone returns a deep copy of r.
func (r EmailResult) Clone() EmailResult {
	r.Details = r.Details.Clone()
	return r
}

// URLResult is the outcome of the tiered URL verification.
type URLResult struct {
	URL      string  `json:"url"`
	Field    string  `json:"field_name"`
	Status   Status  `json:"status"`
	Message  string  `json:"message"`
	Type     URLType `json:"url_type"`
	HTTPCode int     `json:"http_code,omitempty"`
	FinalURL string  `json:"final_url,omitempty"`
	Tier     int     `json:"tier_reached"`
	Details  Details `json:"details,omitempty"`
}

// Clone returns a deep copy of r.
func (r URLResult) Clone() URLResult {
	r.Details = r.Details.Clone()
	return r
}
