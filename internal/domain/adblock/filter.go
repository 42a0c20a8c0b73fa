package adblock

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"

	"github.com/pelletier/go-toml/v2"
)

// DefaultPatterns is the built-in blocklist: the major ad and tracking
// networks. Overridable with a TOML file, see LoadFile.
var DefaultPatterns = []string{
	"*://*.doubleclick.net/*",
	"*://googleads.g.doubleclick.net/*",
	"*://*.googlesyndication.com/*",
	"*://*.google-analytics.com/*",
	"*://*.googletagmanager.com/*",
	"*://*.google.com/pagead/*",
	"*://*.facebook.com/tr*",
	"*://*.amazon-adsystem.com/*",
}

// rule is one compiled pattern, split into its scheme, host, and path parts.
type rule struct {
	scheme string // "*" or a literal scheme
	host   string // literal host, or "*.suffix" matching the suffix and its subdomains
	path   *regexp.Regexp
}

// Filter answers block/allow for request URLs. It is immutable after
// construction, so lookups need no locking.
type Filter struct {
	rules []rule
}

// New compiles a filter from patterns. Patterns use the form
// scheme://host/path where each part may contain * wildcards. A path * spans
// any run of characters, separators included, so /tr* covers /tr, /tr/ and
// /tr/anything alike.
func New(patterns []string) (*Filter, error) {
	f := &Filter{rules: make([]rule, 0, len(patterns))}
	for _, p := range patterns {
		r, err := compile(p)
		if err != nil {
			return nil, err
		}
		f.rules = append(f.rules, r)
	}
	return f, nil
}

// Default returns a filter over the built-in blocklist.
func Default() *Filter {
	f, err := New(DefaultPatterns)
	if err != nil {
		// The built-in patterns are static and always compile.
		panic(err)
	}
	return f
}

// fileFormat is the TOML override schema.
type fileFormat struct {
	Patterns []string `toml:"patterns"`
}

// LoadFile reads a TOML blocklist override. The file replaces the built-in
// patterns wholesale rather than extending them.
func LoadFile(path string) (*Filter, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read blocklist: %w", err)
	}
	var doc fileFormat
	if err := toml.Unmarshal(raw, &doc); err != nil {
		return nil, fmt.Errorf("failed to parse blocklist: %w", err)
	}
	return New(doc.Patterns)
}

// Blocked reports whether the request URL matches any rule. Unparseable URLs
// are allowed through.
func (f *Filter) Blocked(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return false
	}
	host := u.Hostname()
	path := u.Path
	if path == "" {
		path = "/"
	}
	for _, r := range f.rules {
		if r.matches(u.Scheme, host, path) {
			return true
		}
	}
	return false
}

// Len returns the number of compiled rules.
func (f *Filter) Len() int {
	return len(f.rules)
}

func (r rule) matches(scheme, host, path string) bool {
	if r.scheme != "*" && r.scheme != scheme {
		return false
	}
	if !matchHost(r.host, host) {
		return false
	}
	return r.path.MatchString(path)
}

func matchHost(pattern, host string) bool {
	if pattern == "*" {
		return true
	}
	if suffix, ok := strings.CutPrefix(pattern, "*."); ok {
		return host == suffix || strings.HasSuffix(host, "."+suffix)
	}
	return host == pattern
}

func compile(pattern string) (rule, error) {
	scheme, rest, ok := strings.Cut(pattern, "://")
	if !ok || scheme == "" {
		return rule{}, fmt.Errorf("invalid pattern %q: missing scheme", pattern)
	}
	host, path, ok := strings.Cut(rest, "/")
	if host == "" {
		return rule{}, fmt.Errorf("invalid pattern %q: missing host", pattern)
	}
	if !ok {
		path = "*"
	}
	re, err := compilePath("/" + path)
	if err != nil {
		return rule{}, fmt.Errorf("invalid pattern %q: %w", pattern, err)
	}
	return rule{scheme: scheme, host: host, path: re}, nil
}

// compilePath translates a path wildcard into an anchored regexp. Each *
// matches any characters including /, so /pagead/* covers /pagead/ads/view
// and /tr* covers /tr/anything.
func compilePath(glob string) (*regexp.Regexp, error) {
	parts := strings.Split(glob, "*")
	for i, p := range parts {
		parts[i] = regexp.QuoteMeta(p)
	}
	return regexp.Compile("^" + strings.Join(parts, ".*") + "$")
}
