package contactkit

import (
	"fmt"
	"strings"
	"time"

	"github.com/optimode/contactkit/types"
)

// Record is one scraped listing. Only "email", the URL fields and the
// identifier keys "id" and "client" are read.
type Record map[string]any

// EmailField is the record key holding the email address.
const EmailField = "email"

// ID returns the record identifier: "id", else "client", else "unknown".
func (r Record) ID() string {
	for _, k := range []string{"id", "client"} {
		if s, ok := r.text(k); ok {
			return s
		}
	}
	return "unknown"
}

// text returns the trimmed value of key. ok is false for missing, nil and
// blank values. Non-string values are formatted with fmt.
func (r Record) text(key string) (string, bool) {
	v, ok := r[key]
	if !ok || v == nil {
		return "", false
	}
	s, isString := v.(string)
	if !isString {
		s = fmt.Sprint(v)
	}
	s = strings.TrimSpace(s)
	return s, s != ""
}

// field is like text but also reports whether the value was a string.
func (r Record) field(key string) (value string, isString, present bool) {
	value, present = r.text(key)
	if !present {
		return "", false, false
	}
	_, isString = r[key].(string)
	return value, isString, true
}

// Apply returns a copy of rec with the verification outcome merged in
// under is_valid, validation_status, validation_notes, validated_at,
// email_validation, url_validations and has_valid_contact.
func Apply(rec Record, res ProjectResult) Record {
	out := make(Record, len(rec)+7)
	for k, v := range rec {
		out[k] = v
	}

	notes := make([]string, len(res.Notes))
	copy(notes, res.Notes)

	out["is_valid"] = res.IsValid()
	out["validation_status"] = string(res.Status)
	out["validation_notes"] = notes
	out["validated_at"] = res.VerifiedAt.Format(time.RFC3339)
	if res.Email != nil {
		out["email_validation"] = emailMap(*res.Email)
	}
	if len(res.URLs) > 0 {
		out["url_validations"] = urlMaps(res.URLs)
	}
	out["has_valid_contact"] = res.HasValidContact()
	return out
}

// FilterPolicy decides which verified records are kept by Partition.
//
// The zero value only requires an overall Valid or Partial status, so it
// keeps a Valid record whose only fields are plain websites. Set
// RequireAnyContact, or use VerificationConfig.FilterPolicy with a preset,
// to also demand a valid contact.
type FilterPolicy struct {
	// RequireEmail additionally requires a Valid email.
	RequireEmail bool
	// RequireAnyContact requires HasValidContact. Presets enable it.
	RequireAnyContact bool
}

// Keep reports whether res passes the policy. The overall status must be
// Valid or Partial.
func (p FilterPolicy) Keep(res ProjectResult) bool {
	if res.Status != types.OverallValid && res.Status != types.OverallPartial {
		return false
	}
	if p.RequireAnyContact && !res.HasValidContact() {
		return false
	}
	if p.RequireEmail && (res.Email == nil || res.Email.Status != types.StatusValid) {
		return false
	}
	return true
}

// Partition splits records into kept and dropped, pairing recs[i] with
// res[i]. Both lists hold Apply-ed copies. Extra elements of the longer
// slice are ignored.
func Partition(recs []Record, res []ProjectResult, policy FilterPolicy) (kept, dropped []Record) {
	n := min(len(recs), len(res))
	for i := range n {
		enhanced := Apply(recs[i], res[i])
		if policy.Keep(res[i]) {
			kept = append(kept, enhanced)
		} else {
			dropped = append(dropped, enhanced)
		}
	}
	return kept, dropped
}

// Summary counts batch results by overall status.
type Summary struct {
	Total   int `json:"total"`
	Valid   int `json:"valid"`
	Partial int `json:"partial"`
	Invalid int `json:"invalid"`
	Unknown int `json:"unknown"`
}

// Summarize counts results by overall status.
func Summarize(results []ProjectResult) Summary {
	s := Summary{Total: len(results)}
	for _, r := range results {
		switch r.Status {
		case types.OverallValid:
			s.Valid++
		case types.OverallPartial:
			s.Partial++
		case types.OverallInvalid:
			s.Invalid++
		default:
			s.Unknown++
		}
	}
	return s
}
