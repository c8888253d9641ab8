package check

import (
	"context"
	"strings"
	"unicode"

	"github.com/optimode/contactkit/internal/levenshtein"
	"github.com/optimode/contactkit/internal/parse"
	"github.com/optimode/contactkit/types"
)

// typoDistance is the largest edit distance that yields a suggestion.
const typoDistance = 2

// SyntaxChecker validates the address shape (RFC 5321 lengths, dot-atom
// local part, host name domain with an alphabetic TLD) and classifies the
// domain as free or corporate. Internationalised local parts (RFC 6531)
// and domains (IDNA2008) are accepted.
type SyntaxChecker struct{}

func NewSyntaxChecker() *SyntaxChecker {
	return &SyntaxChecker{}
}

func (c *SyntaxChecker) Tier() int { return TierSyntax }

func (c *SyntaxChecker) Check(_ context.Context, email parse.Email) EmailOutcome {
	if email.Address == "" {
		return formatError("empty email address")
	}
	if !email.Valid {
		return formatError("invalid email format")
	}

	if len(email.Address) > 254 {
		return formatError("email address exceeds 254 characters")
	}
	if len(email.Local) > 64 {
		return formatError("local part exceeds 64 characters")
	}
	if msg := validateLocal(email.Local); msg != "" {
		return formatError(msg)
	}
	if msg := validateDomain(email.DomainUnicode); msg != "" {
		return formatError(msg)
	}

	out := EmailOutcome{
		Status:  types.StatusValid,
		Message: "valid email format",
		Type:    types.EmailCorporate,
		Details: types.Details{types.DetailDomain: email.Domain},
	}
	if IsFreeProvider(email.Domain) {
		out.Type = types.EmailFree
		return out
	}
	if s := levenshtein.Nearest(email.DomainUnicode, typoCandidates, typoDistance); s != "" {
		out.Details[types.DetailSuggestion] = email.Local + "@" + s
	}
	return out
}

func formatError(msg string) EmailOutcome {
	return EmailOutcome{
		Status:  types.StatusInvalid,
		Message: msg,
		Details: types.Details{types.DetailErrorKind: string(types.KindFormat)},
	}
}

// validateLocal returns error text, or "" if the local part is acceptable.
func validateLocal(local string) string {
	if local == "" {
		return "local part is empty"
	}

	const asciiSpecial = "!#$%&'*+/=?^_`{|}~-."
	for _, ch := range local {
		if ch > 127 {
			if unicode.IsControl(ch) || unicode.IsSpace(ch) {
				return "local part contains invalid character"
			}
			continue
		}
		if (ch >= 'a' && ch <= 'z') || (ch >= '0' && ch <= '9') {
			continue
		}
		if !strings.ContainsRune(asciiSpecial, ch) {
			return "local part contains invalid character: " + string(ch)
		}
	}

	if strings.HasPrefix(local, ".") || strings.HasSuffix(local, ".") {
		return "local part cannot start or end with a dot"
	}
	if strings.Contains(local, "..") {
		return "local part cannot contain consecutive dots"
	}
	return ""
}

// validateDomain checks the Unicode form of the domain. Address literals
// such as [127.0.0.1] are not contact addresses and are rejected.
func validateDomain(domain string) string {
	if domain == "" {
		return "domain is empty"
	}
	if strings.HasPrefix(domain, "[") {
		return "IP address literals are not accepted"
	}

	labels := strings.Split(domain, ".")
	if len(labels) < 2 {
		return "domain must have at least two labels"
	}
	for _, label := range labels {
		if label == "" {
			return "domain contains empty label"
		}
		if len(label) > 63 {
			return "domain label exceeds 63 characters"
		}
		if strings.HasPrefix(label, "-") || strings.HasSuffix(label, "-") {
			return "domain label cannot start or end with a hyphen"
		}
		for _, ch := range label {
			if !unicode.IsLetter(ch) && !unicode.IsDigit(ch) && ch != '-' && !unicode.Is(unicode.Mn, ch) {
				return "domain label contains invalid character: " + string(ch)
			}
		}
	}

	tld := []rune(labels[len(labels)-1])
	if len(tld) < 2 {
		return "top-level domain is too short"
	}
	for _, ch := range tld {
		if !unicode.IsLetter(ch) && !unicode.Is(unicode.Mn, ch) {
			return "top-level domain must be alphabetic"
		}
	}
	return ""
}
