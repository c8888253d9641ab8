// Package parse turns raw contact strings into normalised values for the
// check/ packages.
package parse

import (
	"net/mail"
	"strings"

	"golang.org/x/net/idna"
)

// Email is a parsed email address. All fields are lower-cased.
type Email struct {
	Address       string // normalised local@domain, as reported in results
	Local         string // the part before @
	Domain        string // the part after @, ASCII/Punycode form (for DNS/SMTP)
	DomainUnicode string // the part after @, Unicode form (for display/typo detection)
	Valid         bool   // false if Address cannot be split into local and domain
}

// NewEmail trims and lower-cases raw and attempts to parse it.
// If parsing fails, Valid=false but Address is always populated.
// Internationalised local parts (RFC 6531) and domains (IDNA2008) are accepted.
func NewEmail(raw string) Email {
	norm := strings.ToLower(strings.TrimSpace(raw))
	if norm == "" {
		return Email{}
	}

	// Display-name forms ("Jane <jane@x.com>") are not contact addresses.
	if strings.ContainsAny(norm, "<> ") {
		return Email{Address: norm}
	}

	addr, err := mail.ParseAddress(norm)
	if err != nil {
		// net/mail rejects Unicode local parts; split by hand instead
		return splitManual(norm)
	}

	local, domain, ok := strings.Cut(addr.Address, "@")
	if !ok || local == "" || domain == "" {
		return Email{Address: norm}
	}
	return build(norm, local, domain)
}

func splitManual(norm string) Email {
	at := strings.LastIndex(norm, "@")
	if at < 1 || at >= len(norm)-1 {
		return Email{Address: norm}
	}
	return build(norm, norm[:at], norm[at+1:])
}

func build(norm, local, domain string) Email {
	ascii, unicode, ok := Domain(domain)
	if !ok {
		return Email{Address: norm}
	}
	return Email{
		Address:       local + "@" + ascii,
		Local:         local,
		Domain:        ascii,
		DomainUnicode: unicode,
		Valid:         true,
	}
}

// Domain converts a host name to its ASCII/Punycode and Unicode forms.
// ok is false if a non-ASCII name fails IDNA2008 validation.
func Domain(domain string) (ascii, unicode string, ok bool) {
	domain = strings.ToLower(strings.TrimSuffix(domain, "."))

	for _, r := range domain {
		if r > 127 {
			a, err := idna.Lookup.ToASCII(domain)
			if err != nil {
				return "", "", false
			}
			return a, domain, true
		}
	}

	// Existing Punycode like xn--mnchen-3ya.de decodes to münchen.de
	u, err := idna.Display.ToUnicode(domain)
	if err != nil {
		u = domain
	}
	return domain, u, true
}
