package sender

import (
	"bytes"
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"pkt.systems/pslog"
)

type roundTripFunc func(*http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(r *http.Request) (*http.Response, error) { return f(r) }

func TestHTTPSenderReturnsNon2xxAsResponse(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Trace", "abc")
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"error":"nope"}`)
	}))
	defer srv.Close()

	s := NewHTTP(WithHTTPClient(srv.Client()), WithLogger(pslog.NewStructured(&bytes.Buffer{})))
	req, _ := http.NewRequest(http.MethodGet, srv.URL+"/missing", nil)
	resp, err := s.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.StatusCode() != http.StatusNotFound || resp.Status() != "Not Found" {
		t.Fatalf("unexpected status %d %q", resp.StatusCode(), resp.Status())
	}
	if resp.Header().Get("X-Trace") != "abc" {
		t.Fatalf("missing header, got %v", resp.Header())
	}
	if resp.Text() != `{"error":"nope"}` {
		t.Fatalf("body = %q", resp.Text())
	}
	if resp.URI() != srv.URL+"/missing" {
		t.Fatalf("uri = %q", resp.URI())
	}
}

func TestHTTPSenderPassesTransportErrorThrough(t *testing.T) {
	cause := errors.New("dial tcp: refused")
	client := &http.Client{Transport: roundTripFunc(func(*http.Request) (*http.Response, error) {
		return nil, cause
	})}
	s := NewHTTP(WithHTTPClient(client), WithLogger(pslog.NewStructured(&bytes.Buffer{})))
	req, _ := http.NewRequest(http.MethodGet, "http://example.invalid", nil)
	_, err := s.Send(context.Background(), req)
	if !errors.Is(err, cause) {
		t.Fatalf("expected wrapped transport error, got %v", err)
	}
}

func TestHTTPSenderSendsAllHeaderValues(t *testing.T) {
	var seen []string
	client := &http.Client{Transport: roundTripFunc(func(r *http.Request) (*http.Response, error) {
		seen = r.Header.Values("Accept")
		return &http.Response{StatusCode: 200, Header: http.Header{}, Body: io.NopCloser(strings.NewReader("")), Request: r}, nil
	})}
	s := NewHTTP(WithHTTPClient(client), WithLogger(pslog.NewStructured(&bytes.Buffer{})))
	req, _ := http.NewRequest(http.MethodGet, "http://h/x", nil)
	req.Header.Add("Accept", "a")
	req.Header.Add("Accept", "b")
	if _, err := s.Send(context.Background(), req); err != nil {
		t.Fatalf("send: %v", err)
	}
	if len(seen) != 2 {
		t.Fatalf("expected 2 accept values, got %v", seen)
	}
}

func TestRecorderRecordsAndAnswers(t *testing.T) {
	rec := NewRecorder()
	if _, ok := rec.LastSent(); ok {
		t.Fatalf("expected nothing recorded")
	}
	rec.SetupResponse(NewResponse(http.StatusCreated, http.Header{"Location": {"/users/9"}}, []byte("ok")))

	req, _ := http.NewRequest(http.MethodPost, "http://h/users", strings.NewReader(`{"a":1}`))
	resp, err := rec.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.StatusCode() != http.StatusCreated || resp.URI() != "http://h/users" {
		t.Fatalf("unexpected response %d %s", resp.StatusCode(), resp.URI())
	}
	last, ok := rec.LastSent()
	if !ok || last.Method != http.MethodPost || string(last.Body) != `{"a":1}` {
		t.Fatalf("unexpected recorded request %+v", last)
	}
	// the request body stays readable for anyone after the recorder
	b, _ := io.ReadAll(req.Body)
	if string(b) != `{"a":1}` {
		t.Fatalf("request body consumed: %q", b)
	}
}

func TestRecorderProgrammedError(t *testing.T) {
	rec := NewRecorder()
	boom := errors.New("boom")
	rec.SetupError(boom)
	req, _ := http.NewRequest(http.MethodGet, "http://h", nil)
	if _, err := rec.Send(context.Background(), req); !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	if len(rec.All()) != 1 {
		t.Fatalf("expected failed send to be recorded")
	}
}

func TestResponseAccessorsReturnCopies(t *testing.T) {
	resp := NewResponse(200, http.Header{"A": {"1"}}, []byte("body"))
	b := resp.Body()
	b[0] = 'X'
	h := resp.Header()
	h.Set("A", "2")
	if resp.Text() != "body" || resp.Header().Get("A") != "1" {
		t.Fatalf("response mutated through accessor")
	}
}

func TestHandlerSender(t *testing.T) {
	s := HandlerSender(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
		_, _ = io.WriteString(w, r.URL.Query().Get("q"))
	}))
	req, _ := http.NewRequest(http.MethodGet, "http://local/x?q=hi", nil)
	resp, err := s.Send(context.Background(), req)
	if err != nil {
		t.Fatalf("send: %v", err)
	}
	if resp.StatusCode() != http.StatusTeapot || resp.Text() != "hi" {
		t.Fatalf("unexpected %d %q", resp.StatusCode(), resp.Text())
	}
}
