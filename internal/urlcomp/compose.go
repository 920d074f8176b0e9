// Package urlcomp merges a base endpoint, a resource and appended query
// parameters into one absolute URL.
package urlcomp

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

var (
	// ErrMalformedResource is returned when a resource looks absolute but cannot be parsed.
	ErrMalformedResource = errors.New("malformed resource url")
	// ErrMalformedBase is returned when a relative resource needs a base that is empty or not absolute.
	ErrMalformedBase = errors.New("malformed base url")
)

// QueryParam is one appended key/value pair. Order matters.
type QueryParam struct {
	Key   string
	Value string
}

// Compose resolves resource against base and appends params to the query
// string. Query text already present in resource is kept verbatim and
// precedes the appended parameters.
func Compose(base, resource string, params []QueryParam) (string, error) {
	target, err := join(base, resource)
	if err != nil {
		return "", err
	}
	if len(params) == 0 {
		return target, nil
	}

	head, fragment, hasFragment := strings.Cut(target, "#")
	var b strings.Builder
	b.WriteString(head)
	sep := "?"
	if i := strings.IndexByte(head, '?'); i >= 0 {
		sep = "&"
		if i == len(head)-1 || strings.HasSuffix(head, "&") {
			sep = ""
		}
	}
	for _, p := range params {
		b.WriteString(sep)
		b.WriteString(url.QueryEscape(p.Key))
		b.WriteByte('=')
		b.WriteString(url.QueryEscape(p.Value))
		sep = "&"
	}
	if hasFragment {
		b.WriteByte('#')
		b.WriteString(fragment)
	}
	return b.String(), nil
}

// IsAbsolute reports whether resource carries its own scheme and host.
func IsAbsolute(resource string) bool {
	scheme, rest, ok := strings.Cut(resource, "://")
	if !ok || scheme == "" {
		return false
	}
	for _, r := range scheme {
		if !(r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '+' || r == '-' || r == '.') {
			return false
		}
	}
	return rest != ""
}

func join(base, resource string) (string, error) {
	if IsAbsolute(resource) {
		u, err := url.Parse(resource)
		if err != nil || u.Host == "" {
			return "", fmt.Errorf("%w: %q", ErrMalformedResource, resource)
		}
		return resource, nil
	}

	b := strings.TrimSpace(base)
	if b == "" {
		return "", fmt.Errorf("%w: empty base for relative resource %q", ErrMalformedBase, resource)
	}
	u, err := url.Parse(b)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return "", fmt.Errorf("%w: %q", ErrMalformedBase, base)
	}
	if u.RawQuery != "" || u.Fragment != "" {
		return "", fmt.Errorf("%w: %q carries a query or fragment", ErrMalformedBase, base)
	}

	b = strings.TrimSuffix(b, "/")
	r := strings.TrimPrefix(resource, "/")
	if r == "" {
		return b, nil
	}
	return b + "/" + r, nil
}
