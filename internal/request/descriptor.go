// Package request accumulates the parts of one outbound HTTP request and
// finalizes them into an *http.Request.
package request

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"slices"

	"github.com/tidwall/sjson"
	"pkt.systems/screenplay/internal/urlcomp"
)

var (
	// ErrMissingResource is returned when a descriptor is finalized before a resource was bound.
	ErrMissingResource = errors.New("missing resource: call To(...) before dispatch")
	// ErrUnknownVerb is returned for methods outside the supported set.
	ErrUnknownVerb = errors.New("unknown verb")
	// ErrBodyEncode is returned when the body cannot be serialized.
	ErrBodyEncode = errors.New("encode body")
)

const jsonContentType = "application/json"

// BodyKind is the serialization hint attached to a body.
type BodyKind int

const (
	NoBody BodyKind = iota
	JSONBody
	TextBody
	RawBody
)

type fieldPatch struct {
	path  string
	value any
}

// Descriptor is a mutable builder for a single request. Every With* method
// returns the receiver so calls chain. Headers and query parameters
// accumulate; the rest overwrite.
type Descriptor struct {
	verb        Verb
	resource    string
	hasResource bool
	header      http.Header
	query       []urlcomp.QueryParam
	bodyKind    BodyKind
	body        any
	contentType string
	patches     []fieldPatch
}

// New returns an empty descriptor defaulting to GET.
func New() *Descriptor {
	return &Descriptor{verb: Get, header: http.Header{}}
}

func (d *Descriptor) WithVerb(v Verb) *Descriptor {
	d.verb = v
	return d
}

// WithContentAsJSON sets v as the body, serialized with encoding/json at
// dispatch. json.RawMessage values are sent verbatim.
func (d *Descriptor) WithContentAsJSON(v any) *Descriptor {
	d.bodyKind = JSONBody
	d.body = v
	d.contentType = jsonContentType
	return d
}

// WithContentAsText sets a plain string body with the given content type
// (text/plain when empty).
func (d *Descriptor) WithContentAsText(s, contentType string) *Descriptor {
	if contentType == "" {
		contentType = "text/plain"
	}
	d.bodyKind = TextBody
	d.body = s
	d.contentType = contentType
	return d
}

// WithContentAsBytes sets a raw body. No Content-Type is implied when contentType is empty.
func (d *Descriptor) WithContentAsBytes(b []byte, contentType string) *Descriptor {
	d.bodyKind = RawBody
	d.body = slices.Clone(b)
	d.contentType = contentType
	return d
}

// WithBodyField patches a single field of the JSON body using sjson path
// syntax. A descriptor without a body starts from an empty object.
func (d *Descriptor) WithBodyField(path string, value any) *Descriptor {
	if d.bodyKind == NoBody {
		d.bodyKind = JSONBody
		d.body = json.RawMessage(`{}`)
		d.contentType = jsonContentType
	}
	d.patches = append(d.patches, fieldPatch{path: path, value: value})
	return d
}

func (d *Descriptor) WithResourceName(r string) *Descriptor {
	d.resource = r
	d.hasResource = true
	return d
}

// WithHeader adds a value; earlier values for the same name are kept.
func (d *Descriptor) WithHeader(name, value string) *Descriptor {
	d.header.Add(name, value)
	return d
}

// WithQueryParameter appends a pair; repeated keys are all emitted in order.
func (d *Descriptor) WithQueryParameter(key, value string) *Descriptor {
	d.query = append(d.query, urlcomp.QueryParam{Key: key, Value: value})
	return d
}

func (d *Descriptor) Verb() Verb { return d.verb }

// Resource returns the bound resource and whether To/WithResourceName was called.
func (d *Descriptor) Resource() (string, bool) { return d.resource, d.hasResource }

func (d *Descriptor) Header() http.Header { return d.header.Clone() }

func (d *Descriptor) Query() []urlcomp.QueryParam { return slices.Clone(d.query) }

func (d *Descriptor) BodyKind() BodyKind { return d.bodyKind }

// URL composes the final URL against base without building a request.
func (d *Descriptor) URL(base string) (string, error) {
	if !d.hasResource {
		return "", ErrMissingResource
	}
	return urlcomp.Compose(base, d.resource, d.query)
}

// Build finalizes the descriptor into a request bound to ctx. The
// descriptor itself is left untouched so an interaction can run again.
func (d *Descriptor) Build(ctx context.Context, base string) (*http.Request, error) {
	if !d.verb.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrUnknownVerb, string(d.verb))
	}
	target, err := d.URL(base)
	if err != nil {
		return nil, err
	}
	payload, err := d.encodeBody()
	if err != nil {
		return nil, err
	}

	var body io.Reader = http.NoBody
	if payload != nil {
		body = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, string(d.verb), target, body)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", urlcomp.ErrMalformedResource, err)
	}
	for name, values := range d.header {
		for _, v := range values {
			req.Header.Add(name, v)
		}
	}
	if host := d.header.Get("Host"); host != "" {
		req.Host = host
	}
	if d.contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", d.contentType)
	}
	return req, nil
}

func (d *Descriptor) encodeBody() ([]byte, error) {
	var payload []byte
	switch d.bodyKind {
	case NoBody:
		return nil, nil
	case TextBody:
		s, _ := d.body.(string)
		payload = []byte(s)
	case RawBody:
		b, _ := d.body.([]byte)
		payload = slices.Clone(b)
	case JSONBody:
		b, err := json.Marshal(d.body)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", ErrBodyEncode, err)
		}
		payload = b
	}
	for _, p := range d.patches {
		out, err := sjson.SetBytes(payload, p.path, p.value)
		if err != nil {
			return nil, fmt.Errorf("%w: set %s: %w", ErrBodyEncode, p.path, err)
		}
		payload = out
	}
	return payload, nil
}
