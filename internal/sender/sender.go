// Package sender defines the transport capability interactions dispatch
// through, a net/http implementation and an in-memory recorder for tests.
//
// Implement Sender to route requests elsewhere (a service mesh client, a
// replay cassette, an in-process handler). The interaction engine never
// retries or interprets status codes; a Sender returns a Response for any
// status it received and an error only when no response exists.
package sender

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"
)

// Sender transmits one finalized request and returns what came back.
type Sender interface {
	Send(ctx context.Context, req *http.Request) (*Response, error)
}

// Func adapts a function to Sender.
type Func func(ctx context.Context, req *http.Request) (*Response, error)

func (f Func) Send(ctx context.Context, req *http.Request) (*Response, error) { return f(ctx, req) }

// HTTPClient abstracts HTTP request execution. *http.Client satisfies it.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// HandlerSender serves requests in-process through h, without a network.
func HandlerSender(h http.Handler) Sender {
	return Func(func(ctx context.Context, req *http.Request) (*Response, error) {
		start := time.Now()
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req.WithContext(ctx))
		return NewResponse(rec.Code, rec.Header(), rec.Body.Bytes()).at(req.URL, time.Since(start)), nil
	})
}
