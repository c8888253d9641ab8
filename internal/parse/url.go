package parse

import (
	"net/url"
	"strings"
)

// URL is a parsed http(s) URL.
type URL struct {
	Input  string   // the trimmed input
	Scheme string   // lower-cased scheme
	Host   string   // lower-cased ASCII host name without port
	Path   string   // the path as given, never empty ("/" at least)
	Parsed *url.URL // nil if the input could not be parsed
	// Problem describes why the URL is unusable; empty when it is usable.
	Problem string
}

// Valid reports whether the URL can be probed.
func (u URL) Valid() bool {
	return u.Problem == ""
}

// NewURL parses raw, requiring an explicit http or https scheme and a host.
func NewURL(raw string) URL {
	in := strings.TrimSpace(raw)
	u := URL{Input: in}
	if in == "" {
		u.Problem = "empty URL"
		return u
	}

	lower := strings.ToLower(in)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") {
		u.Problem = "missing http/https scheme"
		return u
	}

	p, err := url.Parse(in)
	if err != nil {
		u.Problem = "unparseable URL"
		return u
	}
	u.Parsed = p
	u.Scheme = strings.ToLower(p.Scheme)

	host := p.Hostname()
	if host == "" {
		u.Problem = "missing host"
		return u
	}
	ascii, _, ok := Domain(host)
	if !ok {
		u.Problem = "invalid host name"
		return u
	}
	u.Host = ascii

	u.Path = p.EscapedPath()
	if u.Path == "" {
		u.Path = "/"
	}
	return u
}

// BareHost strips a leading "www." from host.
func BareHost(host string) string {
	return strings.TrimPrefix(strings.ToLower(host), "www.")
}
