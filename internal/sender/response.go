package sender

import (
	"encoding/json"
	"net/http"
	"net/url"
	"slices"
	"time"
)

// Response is a verb-agnostic, read-only view of a received HTTP response.
// Accessors return copies so questions cannot alter what the actor remembers.
type Response struct {
	statusCode int
	status     string
	header     http.Header
	body       []byte
	uri        *url.URL
	elapsed    time.Duration
}

// NewResponse builds a response, typically for programming a Recorder.
func NewResponse(statusCode int, header http.Header, body []byte) *Response {
	if header == nil {
		header = http.Header{}
	}
	return &Response{
		statusCode: statusCode,
		status:     http.StatusText(statusCode),
		header:     header.Clone(),
		body:       slices.Clone(body),
	}
}

// JSONResponse marshals v as the body and sets a JSON content type.
func JSONResponse(statusCode int, v any) (*Response, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return NewResponse(statusCode, http.Header{"Content-Type": {"application/json"}}, b), nil
}

func (r *Response) StatusCode() int { return r.statusCode }

// Status is the reason phrase, e.g. "Not Found".
func (r *Response) Status() string { return r.status }

func (r *Response) Header() http.Header { return r.header.Clone() }

func (r *Response) Body() []byte { return slices.Clone(r.body) }

func (r *Response) Text() string { return string(r.body) }

// URI is the absolute URL the request was sent to.
func (r *Response) URI() string {
	if r.uri == nil {
		return ""
	}
	return r.uri.String()
}

// Elapsed is the time spent inside the sender.
func (r *Response) Elapsed() time.Duration { return r.elapsed }

// DecodeJSON unmarshals the body into v.
func (r *Response) DecodeJSON(v any) error {
	return json.Unmarshal(r.body, v)
}

// at returns a copy targeted at u with the given elapsed time.
func (r *Response) at(u *url.URL, elapsed time.Duration) *Response {
	out := *r
	out.header = r.header.Clone()
	out.body = slices.Clone(r.body)
	if u != nil {
		cp := *u
		out.uri = &cp
	}
	out.elapsed = elapsed
	return &out
}
