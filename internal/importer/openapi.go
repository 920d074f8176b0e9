// Package importer turns OpenAPI 3 and Swagger 2 documents into scenario
// files: one step per documented operation, checked against the document.
package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"sort"
	"strconv"
	"strings"
	"unicode"

	"github.com/getkin/kin-openapi/openapi2"
	"github.com/getkin/kin-openapi/openapi2conv"
	"github.com/getkin/kin-openapi/openapi3"
	"github.com/oasdiff/yaml"
	"github.com/pelletier/go-toml/v2"
	"pkt.systems/pslog"
	"pkt.systems/screenplay/internal/request"
	"pkt.systems/screenplay/internal/scenario"
)

const (
	defaultBaseURL = "https://api.example.com"
	defaultActor   = "client"
	placeholder    = "CHANGEME"
)

// Operations are emitted in this order within a route.
var verbOrder = []string{"get", "post", "put", "patch", "delete", "head", "options"}

type scenarioFile struct {
	Name     string               `toml:"name"`
	Contract string               `toml:"contract,omitempty"`
	Vars     map[string]string    `toml:"vars,omitempty"`
	Actors   map[string]actorFile `toml:"actors"`
	Steps    []stepFile           `toml:"steps"`
}

type actorFile struct {
	BaseURL string `toml:"base_url"`
}

type stepFile struct {
	Name        string            `toml:"name"`
	Actor       string            `toml:"actor,omitempty"`
	Verb        string            `toml:"verb"`
	Resource    string            `toml:"resource"`
	Tags        []string          `toml:"tags,omitempty"`
	Headers     []scenario.Header `toml:"headers,omitempty"`
	Query       []scenario.Param  `toml:"query,omitempty"`
	JSON        any               `toml:"json,omitempty"`
	ContentType string            `toml:"content_type,omitempty"`
	Status      int               `toml:"status,omitempty"`
	Documented  bool              `toml:"documented,omitempty"`
}

// ImportOpenAPI loads opts.Source and renders a scenario TOML document. The
// document is written to opts.OutputFile when set and always returned.
func ImportOpenAPI(ctx context.Context, opts Options) ([]byte, error) {
	var (
		doc      *openapi3.T
		err      error
		data     []byte
		location *url.URL
		remote   = isURL(opts.Source)
	)

	if remote {
		client := http.DefaultClient
		if opts.Insecure {
			client = insecureHTTPClient()
		}
		data, err = fetchWithClient(opts.Source, client)
		if err == nil {
			location, err = url.Parse(opts.Source)
		}
	} else {
		if !filepath.IsAbs(opts.Source) {
			if abs, errAbs := filepath.Abs(opts.Source); errAbs == nil {
				opts.Source = abs
			}
		}
		data, err = os.ReadFile(opts.Source)
		location = &url.URL{Path: filepath.ToSlash(opts.Source)}
	}
	if err != nil {
		return nil, fmt.Errorf("load openapi source: %w", err)
	}

	data = normalizeExampleValues(data)

	swagger2 := isSwagger2Data(data)
	if swagger2 {
		doc, err = loadSwaggerAsV3(ctx, data, location, opts)
	} else {
		doc, err = loadOpenAPIv3(ctx, data, location, opts)
	}
	if err != nil {
		return nil, fmt.Errorf("load openapi: %w", err)
	}

	log := opts.Logger
	if log == nil {
		log = pslog.NewWithOptions(os.Stdout, pslog.Options{Mode: pslog.ModeConsole, MinLevel: pslog.InfoLevel})
	}
	log = log.With("fn", pslog.CurrentFn())

	if verr := doc.Validate(ctx); verr != nil {
		log.Warn("import.openapi.validate.warn", "err", verr)
	}
	log.Info("import.openapi.start", "source", opts.Source, "output", opts.OutputFile, "paths", len(doc.Paths.Map()))

	out := scenarioFile{
		Name:   opts.ScenarioName,
		Vars:   map[string]string{},
		Actors: map[string]actorFile{},
	}
	if out.Name == "" {
		if doc.Info != nil && doc.Info.Title != "" {
			out.Name = doc.Info.Title
		} else {
			out.Name = "imported-openapi"
		}
	}
	baseURL := defaultBaseURL
	if len(doc.Servers) > 0 && doc.Servers[0].URL != "" {
		baseURL = doc.Servers[0].URL
	}
	out.Vars["baseUrl"] = baseURL
	actor := opts.ActorName
	if actor == "" {
		actor = defaultActor
	}
	out.Actors[actor] = actorFile{BaseURL: "{{baseUrl}}"}

	// Documented checks need an OpenAPI 3 contract the runner can open
	// from disk.
	documented := !remote && !swagger2
	if documented {
		out.Contract = contractRef(opts.Source, opts.OutputFile)
	}

	routes := make([]string, 0, len(doc.Paths.Map()))
	for route := range doc.Paths.Map() {
		if shouldIncludePath(route, opts.IncludePaths) {
			routes = append(routes, route)
		}
	}
	sort.Strings(routes)

	for _, route := range routes {
		item := doc.Paths.Value(route)
		if item == nil {
			continue
		}
		if item.Trace != nil {
			log.Debug("import.openapi.skip", "route", route, "verb", "trace")
		}
		for _, verb := range verbOrder {
			op := item.GetOperation(strings.ToUpper(verb))
			if op == nil {
				continue
			}
			st := buildStep(route, verb, item, op, doc, out.Vars)
			st.Documented = documented
			out.Steps = append(out.Steps, st)
			log.Debug("import.openapi.step", "name", st.Name, "verb", st.Verb, "resource", st.Resource)
		}
	}
	if len(out.Steps) == 0 {
		return nil, fmt.Errorf("no operations found in %s", opts.Source)
	}

	rendered, err := toml.Marshal(out)
	if err != nil {
		return nil, fmt.Errorf("encode scenario: %w", err)
	}
	if opts.OutputFile != "" {
		if err := os.MkdirAll(filepath.Dir(opts.OutputFile), 0o755); err != nil {
			return nil, err
		}
		if err := os.WriteFile(opts.OutputFile, rendered, 0o644); err != nil {
			return nil, err
		}
	}
	log.Info("import.openapi.done", "steps", len(out.Steps))
	return rendered, nil
}

func buildStep(route, verb string, item *openapi3.PathItem, op *openapi3.Operation, doc *openapi3.T, vars map[string]string) stepFile {
	st := stepFile{
		Name:     op.OperationID,
		Verb:     strings.ToUpper(verb),
		Resource: strings.TrimPrefix(toScenarioRoute(route), "/"),
		Tags:     slices.Clone(op.Tags),
		Status:   lowestSuccess(op),
	}
	if st.Name == "" {
		st.Name = op.Summary
	}
	if st.Name == "" {
		st.Name = st.Verb + " " + route
	}

	params := append(slices.Clone(item.Parameters), op.Parameters...)
	for _, pref := range params {
		if pref == nil || pref.Value == nil {
			continue
		}
		p := pref.Value
		varName := toVarName(p.Name)
		switch p.In {
		case openapi3.ParameterInPath:
			setVar(vars, p.Name, paramExample(p))
		case openapi3.ParameterInQuery:
			if !p.Required {
				continue
			}
			st.Query = append(st.Query, scenario.Param{Key: p.Name, Value: "{{" + varName + "}}"})
			setVar(vars, varName, paramExample(p))
		case openapi3.ParameterInHeader:
			if !p.Required {
				continue
			}
			st.Headers = append(st.Headers, scenario.Header{Name: p.Name, Value: "{{" + varName + "}}"})
			setVar(vars, varName, paramExample(p))
		}
	}

	headers, queries, env := authHeaders(firstSecurity(op, doc), doc)
	for _, name := range sortedKeys(headers) {
		st.Headers = append(st.Headers, scenario.Header{Name: name, Value: headers[name]})
	}
	for _, name := range sortedKeys(queries) {
		st.Query = append(st.Query, scenario.Param{Key: name, Value: queries[name]})
	}
	for k, v := range env {
		setVar(vars, k, v)
	}

	if op.RequestBody != nil && op.RequestBody.Value != nil && request.Verb(st.Verb).Bodied() {
		mediaType, media := pickJSONMedia(op.RequestBody.Value.Content)
		if media != nil {
			if body, ok := exampleBody(media); ok {
				st.JSON = body
				if mediaType != "application/json" {
					st.ContentType = mediaType
				}
			}
		}
	}
	return st
}

func setVar(vars map[string]string, name, value string) {
	if _, ok := vars[name]; !ok {
		vars[name] = value
	}
}

func paramExample(p *openapi3.Parameter) string {
	if p.Example != nil {
		return fmt.Sprint(p.Example)
	}
	for _, name := range sortedKeys(p.Examples) {
		if ex := p.Examples[name]; ex != nil && ex.Value != nil && ex.Value.Value != nil {
			return fmt.Sprint(ex.Value.Value)
		}
	}
	if p.Schema != nil && p.Schema.Value != nil {
		s := p.Schema.Value
		if s.Example != nil {
			return fmt.Sprint(s.Example)
		}
		if s.Default != nil {
			return fmt.Sprint(s.Default)
		}
		if len(s.Enum) > 0 {
			return fmt.Sprint(s.Enum[0])
		}
		switch firstType(s) {
		case "integer", "number":
			return "1"
		case "boolean":
			return "true"
		}
	}
	return placeholder
}

func lowestSuccess(op *openapi3.Operation) int {
	if op.Responses == nil {
		return 0
	}
	best := 0
	for code := range op.Responses.Map() {
		n, err := strconv.Atoi(code)
		if err != nil || n < 200 || n > 299 {
			continue
		}
		if best == 0 || n < best {
			best = n
		}
	}
	return best
}

func pickJSONMedia(content openapi3.Content) (string, *openapi3.MediaType) {
	if media := content.Get("application/json"); media != nil {
		return "application/json", media
	}
	for _, mt := range sortedKeys(content) {
		if strings.Contains(strings.ToLower(mt), "json") {
			return mt, content[mt]
		}
	}
	return "", nil
}

// exampleBody prefers named examples, then the media example, then the
// schema example, and finally synthesizes one from required fields.
func exampleBody(media *openapi3.MediaType) (any, bool) {
	for _, name := range sortedKeys(media.Examples) {
		ex := media.Examples[name]
		if ex != nil && ex.Value != nil && ex.Value.Value != nil {
			return stripNulls(ex.Value.Value), true
		}
	}
	if media.Example != nil {
		return stripNulls(media.Example), true
	}
	if media.Schema != nil && media.Schema.Value != nil && media.Schema.Value.Example != nil {
		return stripNulls(media.Schema.Value.Example), true
	}
	if ex, ok := synthesizeExample(media.Schema); ok {
		return ex, true
	}
	return nil, false
}

// stripNulls drops null members; TOML has no null.
func stripNulls(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, val := range t {
			if val == nil {
				continue
			}
			out[k] = stripNulls(val)
		}
		return out
	case []any:
		out := make([]any, 0, len(t))
		for _, val := range t {
			if val == nil {
				continue
			}
			out = append(out, stripNulls(val))
		}
		return out
	default:
		return v
	}
}

func synthesizeExample(sref *openapi3.SchemaRef) (any, bool) {
	if sref == nil || sref.Value == nil {
		return nil, false
	}
	s := sref.Value
	switch firstType(s) {
	case "object":
		obj := map[string]any{}
		for name, prop := range s.Properties {
			if prop == nil || prop.Value == nil {
				continue
			}
			if len(s.Required) > 0 && !slices.Contains(s.Required, name) {
				continue
			}
			if ex, ok := synthesizeExample(prop); ok {
				obj[name] = ex
			}
		}
		return obj, true
	case "array":
		if s.Items != nil {
			if ex, ok := synthesizeExample(s.Items); ok {
				return []any{ex}, true
			}
		}
		return []any{}, true
	case "integer", "number":
		return 0, true
	case "boolean":
		return true, true
	default:
		return "string", true
	}
}

func firstType(s *openapi3.Schema) string {
	if s == nil || s.Type == nil || len(*s.Type) == 0 {
		return ""
	}
	return (*s.Type)[0]
}

// contractRef points the scenario at its source document, relative to the
// output file when both live on disk.
func contractRef(source, outputFile string) string {
	if outputFile == "" {
		return source
	}
	outAbs, err := filepath.Abs(outputFile)
	if err != nil {
		return source
	}
	rel, err := filepath.Rel(filepath.Dir(outAbs), source)
	if err != nil {
		return source
	}
	return filepath.ToSlash(rel)
}

func normalizeExampleValues(data []byte) []byte {
	var obj any
	if err := yaml.Unmarshal(data, &obj); err != nil {
		return data
	}
	obj = fixExampleValue(obj, "")
	out, err := json.Marshal(obj)
	if err != nil {
		return data
	}
	return out
}

// fixExampleValue hydrates vendor exampleValue and x-example members into
// the standard example fields.
func fixExampleValue(node any, parentKey string) any {
	switch v := node.(type) {
	case map[string]any:
		out := make(map[string]any, len(v))
		for k, val := range v {
			switch k {
			case "exampleValue":
				fixed := fixExampleValue(val, k)
				if _, ok := out["example"]; !ok {
					out["example"] = fixed
				}
				if parentKey == "examples" {
					if _, ok := out["value"]; !ok {
						out["value"] = fixed
					}
				}
			case "x-example":
				if _, ok := out["example"]; !ok {
					out["example"] = fixExampleValue(val, k)
				}
			default:
				out[k] = fixExampleValue(val, k)
			}
		}
		return out
	case []any:
		for i := range v {
			v[i] = fixExampleValue(v[i], parentKey)
		}
		return v
	default:
		return v
	}
}

func firstSecurity(op *openapi3.Operation, doc *openapi3.T) openapi3.SecurityRequirement {
	if op != nil && op.Security != nil && len(*op.Security) > 0 {
		return (*op.Security)[0]
	}
	if doc != nil && len(doc.Security) > 0 {
		return doc.Security[0]
	}
	return nil
}

// authHeaders maps a security requirement onto headers, query parameters
// and the vars they reference.
func authHeaders(sec openapi3.SecurityRequirement, doc *openapi3.T) (map[string]string, map[string]string, map[string]string) {
	headers := map[string]string{}
	queries := map[string]string{}
	vars := map[string]string{}
	if sec == nil || doc == nil || doc.Components == nil || doc.Components.SecuritySchemes == nil {
		return headers, queries, vars
	}
	for name := range sec {
		sref := doc.Components.SecuritySchemes[name]
		if sref == nil || sref.Value == nil {
			continue
		}
		s := sref.Value
		switch strings.ToLower(s.Type) {
		case "apikey":
			varName := toVarName(name)
			switch strings.ToLower(s.In) {
			case "header":
				headers[s.Name] = fmt.Sprintf("{{%s}}", varName)
			case "query":
				queries[s.Name] = fmt.Sprintf("{{%s}}", varName)
			case "cookie":
				headers["Cookie"] = fmt.Sprintf("%s={{%s}}", s.Name, varName)
			default:
				continue
			}
			vars[varName] = placeholder
		case "http":
			switch strings.ToLower(s.Scheme) {
			case "bearer":
				headers["Authorization"] = "Bearer {{bearerToken}}"
				vars["bearerToken"] = placeholder
			case "basic":
				headers["Authorization"] = "Basic {{basicAuth}}"
				vars["basicAuth"] = placeholder
			}
		case "oauth2", "openidconnect":
			headers["Authorization"] = "Bearer {{accessToken}}"
			vars["accessToken"] = placeholder
		}
	}
	return headers, queries, vars
}

var nonAlnum = regexp.MustCompile(`[^a-zA-Z0-9]+`)

func toVarName(name string) string {
	name = strings.Trim(nonAlnum.ReplaceAllString(strings.TrimSpace(name), "_"), "_")
	if name == "" {
		return "auth"
	}
	parts := strings.Split(name, "_")
	for i := range parts {
		if i == 0 {
			parts[i] = strings.ToLower(parts[i])
		} else {
			parts[i] = titleCase(parts[i])
		}
	}
	return strings.Join(parts, "")
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	rs := []rune(strings.ToLower(s))
	rs[0] = unicode.ToUpper(rs[0])
	return string(rs)
}

func shouldIncludePath(route string, includes []string) bool {
	if len(includes) == 0 {
		return true
	}
	for _, p := range includes {
		if p == route || strings.HasPrefix(route, p) {
			return true
		}
	}
	return false
}

var pathParamRe = regexp.MustCompile(`\{([^}]+)\}`)

func toScenarioRoute(route string) string {
	return pathParamRe.ReplaceAllString(route, "{{$1}}")
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func isSwagger2Data(data []byte) bool {
	lower := bytes.ToLower(data)
	return bytes.Contains(lower, []byte("swagger")) && bytes.Contains(lower, []byte("2.0"))
}

func newLoader(ctx context.Context, opts Options) *openapi3.Loader {
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = true
	loader.Context = ctx
	client := http.DefaultClient
	if opts.Insecure {
		client = insecureHTTPClient()
	}
	loader.ReadFromURIFunc = func(_ *openapi3.Loader, u *url.URL) ([]byte, error) {
		return fetchExternal(u, client, opts)
	}
	return loader
}

func loadOpenAPIv3(ctx context.Context, data []byte, location *url.URL, opts Options) (*openapi3.T, error) {
	loader := newLoader(ctx, opts)
	if location != nil {
		return loader.LoadFromDataWithPath(data, location)
	}
	return loader.LoadFromData(data)
}

func loadSwaggerAsV3(ctx context.Context, data []byte, location *url.URL, opts Options) (*openapi3.T, error) {
	var doc2 openapi2.T
	if err := json.Unmarshal(data, &doc2); err != nil {
		if err2 := yaml.Unmarshal(data, &doc2); err2 != nil {
			return nil, fmt.Errorf("unmarshal swagger: %v / %v", err, err2)
		}
	}
	if doc2.Swagger == "" {
		return nil, fmt.Errorf("invalid swagger: missing swagger field")
	}
	return openapi2conv.ToV3WithLoader(&doc2, newLoader(ctx, opts), location)
}
