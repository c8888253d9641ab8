// Package disposable detects throwaway email domains from a built-in list,
// an optional on-disk list and a set of name heuristics.
package disposable

import (
	"bufio"
	_ "embed"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"regexp"
	"strings"
)

//go:embed list.txt
var builtin string

// defaultPatterns flag domains that look disposable but are not listed.
var defaultPatterns = []string{
	`temp.*mail`, `throw.*away`, `fake.*mail`, `trash.*mail`,
	`spam.*`, `junk.*mail`, `burner.*`, `10.*minute`,
}

// Match describes why a domain is considered disposable.
type Match struct {
	// Listed is set when the domain or one of its parents is on the list.
	Listed bool
	// Pattern is the heuristic that matched when the domain is not listed.
	Pattern string
}

// Disposable reports whether the domain matched at all.
func (m Match) Disposable() bool {
	return m.Listed || m.Pattern != ""
}

// Checker holds the combined domain list. It is read-only after
// construction and safe for concurrent use.
type Checker struct {
	domains  map[string]struct{}
	patterns []*regexp.Regexp
}

// New returns a Checker with the built-in list plus extra domains.
func New(extra ...string) *Checker {
	c := &Checker{domains: make(map[string]struct{})}
	_ = c.read(strings.NewReader(builtin))
	for _, d := range extra {
		c.add(d)
	}
	for _, p := range defaultPatterns {
		c.patterns = append(c.patterns, regexp.MustCompile(`(?i)`+p))
	}
	return c
}

// Load returns New(extra...) merged with the list at path.
// A missing file is not an error; the built-in list is still used.
func Load(path string, extra ...string) (*Checker, error) {
	c := New(extra...)
	if path == "" {
		return c, nil
	}
	f, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) {
		return c, nil
	}
	if err != nil {
		return nil, fmt.Errorf("disposable: open %s: %w", path, err)
	}
	defer func() { _ = f.Close() }()

	if err := c.read(f); err != nil {
		return nil, fmt.Errorf("disposable: read %s: %w", path, err)
	}
	return c, nil
}

// Check classifies domain. The lookup is case-insensitive, and a
// subdomain of a listed domain is listed too.
func (c *Checker) Check(domain string) Match {
	domain = strings.ToLower(strings.TrimSpace(domain))
	for d := domain; d != ""; {
		if _, ok := c.domains[d]; ok {
			return Match{Listed: true}
		}
		i := strings.IndexByte(d, '.')
		if i < 0 {
			break
		}
		d = d[i+1:]
	}
	for _, re := range c.patterns {
		if re.MatchString(domain) {
			return Match{Pattern: strings.TrimPrefix(re.String(), "(?i)")}
		}
	}
	return Match{}
}

// Len returns the number of listed domains.
func (c *Checker) Len() int {
	return len(c.domains)
}

// read adds one domain per line; blank lines and # comments are skipped.
func (c *Checker) read(r io.Reader) error {
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		c.add(sc.Text())
	}
	return sc.Err()
}

func (c *Checker) add(line string) {
	line = strings.ToLower(strings.TrimSpace(line))
	if line != "" && !strings.HasPrefix(line, "#") {
		c.domains[line] = struct{}{}
	}
}
