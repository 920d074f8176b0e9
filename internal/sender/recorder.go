package sender

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"slices"
	"sync"
)

// Sent is a snapshot of a request as the recorder observed it.
type Sent struct {
	Method string
	URL    *url.URL
	Header http.Header
	Body   []byte
}

// Recorder is an in-memory Sender for tests. It records every request and
// answers with the programmed response (200 with an empty body by default)
// or the programmed error. Each test owns its own Recorder.
type Recorder struct {
	mu       sync.Mutex
	sent     []Sent
	response *Response
	err      error
}

func NewRecorder() *Recorder {
	return &Recorder{response: NewResponse(http.StatusOK, nil, nil)}
}

// SetupResponse programs the response returned by subsequent sends and clears any programmed error.
func (r *Recorder) SetupResponse(resp *Response) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.response = resp
	r.err = nil
}

// SetupError makes subsequent sends fail with err after recording the request.
func (r *Recorder) SetupError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
}

func (r *Recorder) Send(_ context.Context, req *http.Request) (*Response, error) {
	if req == nil {
		return nil, fmt.Errorf("nil request")
	}
	var body []byte
	if req.Body != nil {
		b, err := io.ReadAll(req.Body)
		if err != nil {
			return nil, fmt.Errorf("read request body: %w", err)
		}
		_ = req.Body.Close()
		req.Body = io.NopCloser(bytes.NewReader(b))
		body = b
	}
	u := *req.URL
	snap := Sent{Method: req.Method, URL: &u, Header: req.Header.Clone(), Body: body}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.sent = append(r.sent, snap)
	if r.err != nil {
		return nil, r.err
	}
	resp := r.response
	if resp == nil {
		resp = NewResponse(http.StatusOK, nil, nil)
	}
	return resp.at(req.URL, 0), nil
}

// LastSent returns the most recent request, false when nothing was sent.
func (r *Recorder) LastSent() (Sent, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.sent) == 0 {
		return Sent{}, false
	}
	return r.sent[len(r.sent)-1], true
}

// All returns every recorded request in send order.
func (r *Recorder) All() []Sent {
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Clone(r.sent)
}
