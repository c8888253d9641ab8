// Package urlpattern recognises professional-network and freelance-platform
// URLs with an ordered, data-driven rule table.
package urlpattern

import (
	"regexp"
	"strings"

	"github.com/optimode/contactkit/types"
)

// Rule maps a (host, path pattern) pair to a URL type.
// The first capture group of Path, if any, is the embedded identifier.
type Rule struct {
	Platform string
	Kind     string
	Host     string         // bare host; subdomains match too
	Path     *regexp.Regexp // nil matches every path
	Type     types.URLType
}

// Match is the result of evaluating the table against a URL.
type Match struct {
	// Platform is empty when the host belongs to no known platform.
	Platform   string
	Kind       string
	Type       types.URLType
	Identifier string
	// Recognized is false when the host is a known platform but no path
	// rule matched.
	Recognized bool
	// Strict platforms report unrecognised paths as unknown.
	Strict bool
}

// Table is an ordered rule list; rules are evaluated in order and the first
// match wins. It is immutable after construction.
type Table struct {
	rules  []Rule
	strict map[string]bool
}

// New builds a table. Platforms named in strict have no catch-all rule.
func New(rules []Rule, strict ...string) *Table {
	t := &Table{rules: append([]Rule(nil), rules...), strict: make(map[string]bool)}
	for _, p := range strict {
		t.strict[p] = true
	}
	return t
}

func re(expr string) *regexp.Regexp {
	return regexp.MustCompile(`(?i)` + expr)
}

// Default returns the built-in rules for LinkedIn and the freelance
// platforms. LinkedIn is strict.
func Default() *Table {
	return New([]Rule{
		{Platform: "linkedin", Kind: "company", Host: "linkedin.com", Path: re(`^/company/([a-z0-9_-]+)`), Type: types.URLLinkedInCompany},
		{Platform: "linkedin", Kind: "person", Host: "linkedin.com", Path: re(`^/in/([a-z0-9_-]+)`), Type: types.URLLinkedInPerson},
		{Platform: "linkedin", Kind: "job", Host: "linkedin.com", Path: re(`^/jobs/view/(\d+)`), Type: types.URLLinkedInJob},

		{Platform: "upwork", Kind: "freelancer", Host: "upwork.com", Path: re(`^/freelancers/(~?[a-z0-9_-]+)`), Type: types.URLUpwork},
		{Platform: "upwork", Kind: "job", Host: "upwork.com", Path: re(`^/jobs/([a-z0-9_~-]+)`), Type: types.URLUpwork},
		{Platform: "upwork", Kind: "page", Host: "upwork.com", Type: types.URLUpwork},

		{Platform: "toptal", Kind: "resume", Host: "toptal.com", Path: re(`^/resume/([a-z0-9_-]+)`), Type: types.URLToptal},
		{Platform: "toptal", Kind: "page", Host: "toptal.com", Type: types.URLToptal},

		{Platform: "dribbble", Kind: "shot", Host: "dribbble.com", Path: re(`^/shots/(\d+)`), Type: types.URLDribbble},
		{Platform: "dribbble", Kind: "profile", Host: "dribbble.com", Path: re(`^/([a-z0-9_-]+)/?$`), Type: types.URLDribbble},
		{Platform: "dribbble", Kind: "page", Host: "dribbble.com", Type: types.URLDribbble},

		{Platform: "fiverr", Kind: "profile", Host: "fiverr.com", Path: re(`^/([a-z0-9_]+)/?$`), Type: types.URLFiverr},
		{Platform: "fiverr", Kind: "page", Host: "fiverr.com", Type: types.URLFiverr},

		{Platform: "behance", Kind: "gallery", Host: "behance.net", Path: re(`^/gallery/(\d+)`), Type: types.URLBehance},
		{Platform: "behance", Kind: "profile", Host: "behance.net", Path: re(`^/([a-z0-9_-]+)/?$`), Type: types.URLBehance},
		{Platform: "behance", Kind: "page", Host: "behance.net", Type: types.URLBehance},
	}, "linkedin")
}

// Match evaluates the table for a lower-cased host and a path.
func (t *Table) Match(host, path string) Match {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	platform := ""

	for _, r := range t.rules {
		if host != r.Host && !strings.HasSuffix(host, "."+r.Host) {
			continue
		}
		if platform == "" {
			platform = r.Platform
		}
		if r.Path == nil {
			return Match{Platform: r.Platform, Kind: r.Kind, Type: r.Type, Recognized: true, Strict: t.strict[r.Platform]}
		}
		if m := r.Path.FindStringSubmatch(path); m != nil {
			id := ""
			if len(m) > 1 {
				id = m[1]
			}
			return Match{Platform: r.Platform, Kind: r.Kind, Type: r.Type, Identifier: id, Recognized: true, Strict: t.strict[r.Platform]}
		}
	}

	if platform == "" {
		return Match{Type: types.URLWebsite}
	}
	return Match{Platform: platform, Type: types.URLOther, Strict: t.strict[platform]}
}
