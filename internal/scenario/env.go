package scenario

import (
	"maps"
	"os"
	"regexp"
	"strings"
)

var varPattern = regexp.MustCompile(`\{\{[^{}]+\}\}`)

// expander replaces {{var}} tokens using the provided map or environment variables.
type expander struct {
	vars map[string]string
}

func newExpander(vars map[string]string) *expander {
	m := map[string]string{}
	maps.Copy(m, vars)
	return &expander{vars: m}
}

func (e *expander) get(key string) (string, bool) {
	if e == nil {
		return "", false
	}
	if after, ok := strings.CutPrefix(key, "env."); ok {
		return os.LookupEnv(after)
	}
	if v, ok := e.vars[key]; ok {
		return v, true
	}
	if v, ok := os.LookupEnv(key); ok {
		return v, true
	}
	return "", false
}

func (e *expander) set(key, val string) {
	if e == nil {
		return
	}
	if e.vars == nil {
		e.vars = map[string]string{}
	}
	e.vars[key] = val
}

// expand leaves unknown tokens in place so the failure is visible in the
// request that was sent.
func (e *expander) expand(s string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		inner := strings.TrimSpace(match[2 : len(match)-2])
		if v, ok := e.get(inner); ok {
			return v
		}
		return match
	})
}

// expandValue walks a decoded TOML value and expands every string in it.
func (e *expander) expandValue(v any) any {
	switch t := v.(type) {
	case string:
		return e.expand(t)
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			out[k] = e.expandValue(val)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, val := range t {
			out[i] = e.expandValue(val)
		}
		return out
	default:
		return v
	}
}

// unresolved reports the {{var}} tokens still present in s.
func unresolved(s string) []string {
	return varPattern.FindAllString(s, -1)
}
