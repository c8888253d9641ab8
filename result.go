package contactkit

import (
	"encoding/json"
	"time"

	"github.com/optimode/contactkit/types"
)

// ProjectResult is the verification outcome of one record.
type ProjectResult struct {
	ID     string        `json:"project_id"`
	Status types.Overall `json:"status"`
	// Email is nil when the record had no email or email checks are off.
	Email *types.EmailResult         `json:"email_result"`
	URLs  map[string]types.URLResult `json:"url_results"`
	// Notes describe every field that did not verify as Valid.
	Notes      []string  `json:"validation_notes"`
	VerifiedAt time.Time `json:"verified_at"`
}

// HasValidContact reports whether the record can be reached: a Valid
// email, a Valid "linkedin" field, or any Valid LinkedIn company or person
// URL.
func (r ProjectResult) HasValidContact() bool {
	return hasValidContact(r.Email, r.URLs)
}

// IsValid reports whether every checked field was Valid.
func (r ProjectResult) IsValid() bool {
	return r.Status == types.OverallValid
}

// MarshalJSON adds the derived has_valid_contact flag and formats
// verified_at as RFC 3339.
func (r ProjectResult) MarshalJSON() ([]byte, error) {
	type plain ProjectResult
	notes := r.Notes
	if notes == nil {
		notes = []string{}
	}
	urls := r.URLs
	if urls == nil {
		urls = map[string]types.URLResult{}
	}
	p := plain(r)
	p.Notes, p.URLs = notes, urls
	return json.Marshal(struct {
		plain
		VerifiedAt      string `json:"verified_at"`
		HasValidContact bool   `json:"has_valid_contact"`
	}{
		plain:           p,
		VerifiedAt:      r.VerifiedAt.Format(time.RFC3339),
		HasValidContact: r.HasValidContact(),
	})
}

// ToMap flattens the result into plain maps, slices and scalars.
func (r ProjectResult) ToMap() map[string]any {
	var email any
	if r.Email != nil {
		email = emailMap(*r.Email)
	}
	notes := make([]string, len(r.Notes))
	copy(notes, r.Notes)
	return map[string]any{
		"project_id":        r.ID,
		"status":            string(r.Status),
		"email_result":      email,
		"url_results":       urlMaps(r.URLs),
		"validation_notes":  notes,
		"verified_at":       r.VerifiedAt.Format(time.RFC3339),
		"has_valid_contact": r.HasValidContact(),
	}
}

func emailMap(e types.EmailResult) map[string]any {
	return map[string]any{
		"email":        e.Email,
		"status":       string(e.Status),
		"message":      e.Message,
		"email_type":   string(e.Type),
		"tier_reached": e.Tier,
		"details":      map[string]any(e.Details.Clone()),
	}
}

func urlMap(u types.URLResult) map[string]any {
	m := map[string]any{
		"url":          u.URL,
		"field_name":   u.Field,
		"status":       string(u.Status),
		"message":      u.Message,
		"url_type":     string(u.Type),
		"http_code":    nil,
		"final_url":    nil,
		"tier_reached": u.Tier,
		"details":      map[string]any(u.Details.Clone()),
	}
	if u.HTTPCode != 0 {
		m["http_code"] = u.HTTPCode
	}
	if u.FinalURL != "" {
		m["final_url"] = u.FinalURL
	}
	return m
}

func urlMaps(urls map[string]types.URLResult) map[string]any {
	out := make(map[string]any, len(urls))
	for k, u := range urls {
		out[k] = urlMap(u)
	}
	return out
}
