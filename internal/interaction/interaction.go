// Package interaction turns a declarative HTTP interaction into one request,
// dispatches it through the actor's CallAnAPI ability and stores the
// response on the actor.
//
//	juliet := actor.Named("Juliet").WhoCan(interaction.CallAnAPIAt(base).With(rec))
//	err := juliet.AttemptsTo(ctx,
//		interaction.Post.DataAsJSON(user).To("api/users").WithHeader("Accept", "application/json"),
//	)
package interaction

import (
	"context"
	"errors"
	"fmt"
	"time"

	"pkt.systems/screenplay/internal/actor"
	"pkt.systems/screenplay/internal/request"
	"pkt.systems/screenplay/internal/sender"
)

// ErrNoResponse is returned when a sender reports success without a response.
var ErrNoResponse = errors.New("sender returned no response")

// HTTPInteraction is a recipe for one HTTP exchange. Construction fixes
// verb and body, To fixes the resource; the With* methods add headers,
// query parameters and body fields. It holds no execution state, so the
// same value may be performed repeatedly.
type HTTPInteraction struct {
	desc *request.Descriptor
}

// Request starts an interaction for an arbitrary supported verb.
func Request(verb request.Verb) *HTTPInteraction {
	return &HTTPInteraction{desc: request.New().WithVerb(verb)}
}

// To binds the target resource, relative to the ability's base URL or absolute.
func (i *HTTPInteraction) To(resource string) *HTTPInteraction {
	i.desc.WithResourceName(resource)
	return i
}

// WithHeader adds a header value; repeated calls keep every value.
func (i *HTTPInteraction) WithHeader(name, value string) *HTTPInteraction {
	i.desc.WithHeader(name, value)
	return i
}

// WithQueryParameter appends a query pair after any query in the resource.
func (i *HTTPInteraction) WithQueryParameter(key, value string) *HTTPInteraction {
	i.desc.WithQueryParameter(key, value)
	return i
}

// WithBodyField sets one field of the JSON body (sjson path syntax).
func (i *HTTPInteraction) WithBodyField(path string, value any) *HTTPInteraction {
	i.desc.WithBodyField(path, value)
	return i
}

// WithContentAsJSON replaces the body with v serialized as JSON.
func (i *HTTPInteraction) WithContentAsJSON(v any) *HTTPInteraction {
	i.desc.WithContentAsJSON(v)
	return i
}

// WithContentAsText replaces the body with s.
func (i *HTTPInteraction) WithContentAsText(s, contentType string) *HTTPInteraction {
	i.desc.WithContentAsText(s, contentType)
	return i
}

func (i *HTTPInteraction) Verb() request.Verb { return i.desc.Verb() }

// Descriptor exposes the underlying request descriptor.
func (i *HTTPInteraction) Descriptor() *request.Descriptor { return i.desc }

func (i *HTTPInteraction) String() string {
	resource, ok := i.desc.Resource()
	if !ok {
		resource = "<unbound>"
	}
	return fmt.Sprintf("%s %s", i.desc.Verb(), resource)
}

// PerformAs executes the interaction for a: one request, one send, and the
// response stored as the actor's last response. Sender errors are returned
// unchanged and leave the previous last response in place.
func (i *HTTPInteraction) PerformAs(ctx context.Context, a *actor.Actor) error {
	api, err := actor.AbilityOf[*CallAnAPI](a)
	if err != nil {
		return err
	}
	req, err := i.desc.Build(ctx, api.BaseURL())
	if err != nil {
		return err
	}

	logger := a.Logger()
	s := api.Sender()
	if s == nil {
		s = sender.NewHTTP(sender.WithLogger(logger))
	}

	logger.Debug("interaction.send", "actor", a.Name(), "verb", req.Method, "url", req.URL.String())
	start := time.Now()
	resp, err := s.Send(ctx, req)
	if err != nil {
		logger.Warn("interaction.failed", "actor", a.Name(), "verb", req.Method, "url", req.URL.String(), "err", err)
		return err
	}
	if resp == nil {
		return fmt.Errorf("%w: %s %s", ErrNoResponse, req.Method, req.URL)
	}
	a.RememberResponse(resp)
	logger.Debug("interaction.done", "actor", a.Name(), "verb", req.Method, "url", req.URL.String(), "status", resp.StatusCode(), "elapsed", time.Since(start))
	return nil
}
