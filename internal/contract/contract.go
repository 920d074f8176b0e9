// Package contract checks observed responses against an OpenAPI 3 document:
// the request must map to a documented operation, the status must be
// documented for it, and a JSON body must satisfy the documented schema.
package contract

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime"
	"net/url"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

var (
	// ErrUnknownOperation is returned when no path/method in the document matches.
	ErrUnknownOperation = errors.New("operation not in contract")
	// ErrUndocumentedStatus is returned when the operation does not list the status.
	ErrUndocumentedStatus = errors.New("status not documented")
	// ErrSchemaMismatch is returned when a JSON body violates the documented schema.
	ErrSchemaMismatch = errors.New("body does not match schema")
)

// Contract is a loaded, validated OpenAPI document.
type Contract struct {
	doc      *openapi3.T
	prefixes []string
	routes   []route
}

type route struct {
	template string
	segments []string
	params   int
	item     *openapi3.PathItem
}

// Load reads and validates an OpenAPI 3 document from path (YAML or JSON).
func Load(ctx context.Context, path string) (*Contract, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	c, err := Parse(ctx, data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return c, nil
}

// Parse loads an OpenAPI 3 document from memory.
func Parse(ctx context.Context, data []byte) (*Contract, error) {
	loader := openapi3.NewLoader()
	loader.Context = ctx
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return nil, fmt.Errorf("load openapi: %w", err)
	}
	if err := doc.Validate(ctx); err != nil {
		return nil, fmt.Errorf("validate openapi: %w", err)
	}

	c := &Contract{doc: doc}
	for _, srv := range doc.Servers {
		if srv == nil || strings.Contains(srv.URL, "{") {
			continue
		}
		if u, err := url.Parse(srv.URL); err == nil {
			if p := strings.TrimSuffix(u.Path, "/"); p != "" {
				c.prefixes = append(c.prefixes, p)
			}
		}
	}
	for template, item := range doc.Paths.Map() {
		segs := splitPath(template)
		params := 0
		for _, s := range segs {
			if isParam(s) {
				params++
			}
		}
		c.routes = append(c.routes, route{template: template, segments: segs, params: params, item: item})
	}
	// literal segments beat parameters: /users/me before /users/{id}
	sort.Slice(c.routes, func(i, j int) bool {
		if c.routes[i].params == c.routes[j].params {
			return c.routes[i].template < c.routes[j].template
		}
		return c.routes[i].params < c.routes[j].params
	})
	return c, nil
}

// Title is the document's info.title.
func (c *Contract) Title() string {
	if c.doc.Info == nil {
		return ""
	}
	return c.doc.Info.Title
}

// Operation finds the operation serving method on rawURL and returns it
// with its path template.
func (c *Contract) Operation(method, rawURL string) (*openapi3.Operation, string, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrUnknownOperation, err)
	}
	candidates := []string{u.Path}
	for _, prefix := range c.prefixes {
		if rest, ok := strings.CutPrefix(u.Path, prefix); ok {
			candidates = append(candidates, rest)
		}
	}
	for _, p := range candidates {
		segs := splitPath(p)
		for _, r := range c.routes {
			if !r.matches(segs) {
				continue
			}
			if op := operationFor(r.item, method); op != nil {
				return op, r.template, nil
			}
		}
	}
	return nil, "", fmt.Errorf("%w: %s %s", ErrUnknownOperation, strings.ToUpper(method), u.Path)
}

// Check verifies that a response with status, content type and body is
// documented for method on rawURL.
func (c *Contract) Check(method, rawURL string, status int, contentType string, body []byte) error {
	op, template, err := c.Operation(method, rawURL)
	if err != nil {
		return err
	}
	ref := responseFor(op, status)
	if ref == nil {
		return fmt.Errorf("%w: %d for %s %s", ErrUndocumentedStatus, status, strings.ToUpper(method), template)
	}
	if ref.Value == nil || ref.Value.Content == nil || len(body) == 0 {
		return nil
	}
	mediaType := "application/json"
	if contentType != "" {
		if mt, _, err := mime.ParseMediaType(contentType); err == nil {
			mediaType = mt
		}
	}
	if mediaType != "application/json" && !strings.HasSuffix(mediaType, "+json") {
		return nil
	}
	media := ref.Value.Content.Get(mediaType)
	if media == nil {
		media = ref.Value.Content.Get("application/json")
	}
	if media == nil || media.Schema == nil || media.Schema.Value == nil {
		return nil
	}
	var value any
	if err := json.Unmarshal(body, &value); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaMismatch, err)
	}
	if err := media.Schema.Value.VisitJSON(value); err != nil {
		return fmt.Errorf("%w: %s %s %d: %v", ErrSchemaMismatch, strings.ToUpper(method), template, status, err)
	}
	return nil
}

func responseFor(op *openapi3.Operation, status int) *openapi3.ResponseRef {
	if op.Responses == nil {
		return nil
	}
	responses := op.Responses.Map()
	code := strconv.Itoa(status)
	if rr, ok := responses[code]; ok {
		return rr
	}
	if len(code) == 3 {
		if rr, ok := responses[code[:1]+"XX"]; ok {
			return rr
		}
		if rr, ok := responses[code[:1]+"xx"]; ok {
			return rr
		}
	}
	return responses["default"]
}

func operationFor(item *openapi3.PathItem, method string) *openapi3.Operation {
	if item == nil {
		return nil
	}
	ops := map[string]*openapi3.Operation{
		"get":     item.Get,
		"post":    item.Post,
		"put":     item.Put,
		"patch":   item.Patch,
		"delete":  item.Delete,
		"options": item.Options,
		"head":    item.Head,
		"trace":   item.Trace,
	}
	return ops[strings.ToLower(method)]
}

func (r route) matches(segs []string) bool {
	if len(segs) != len(r.segments) {
		return false
	}
	for i, s := range r.segments {
		if isParam(s) {
			if segs[i] == "" {
				return false
			}
			continue
		}
		if s != segs[i] {
			return false
		}
	}
	return true
}

func splitPath(p string) []string {
	p = strings.Trim(p, "/")
	if p == "" {
		return nil
	}
	return strings.Split(p, "/")
}

func isParam(seg string) bool {
	return strings.HasPrefix(seg, "{") && strings.HasSuffix(seg, "}")
}
