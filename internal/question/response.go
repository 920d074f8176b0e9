// Package question answers questions about what an actor has observed,
// chiefly its last HTTP response.
package question

import (
	"errors"
	"fmt"

	"github.com/tidwall/gjson"
	"pkt.systems/screenplay/internal/actor"
	"pkt.systems/screenplay/internal/sender"
)

var (
	// ErrPathNotFound is returned by JSONValue when the path selects nothing.
	ErrPathNotFound = errors.New("json path not found")
	// ErrNotJSON is returned when a JSON question meets a non-JSON body.
	ErrNotJSON = errors.New("not json")
)

// LastResponse answers with the response of the actor's most recent interaction.
func LastResponse() actor.Question[*sender.Response] {
	return actor.QuestionFunc[*sender.Response](func(a *actor.Actor) (*sender.Response, error) {
		return a.LastResponse()
	})
}

func fromLast[T any](pick func(*sender.Response) (T, error)) actor.Question[T] {
	return actor.QuestionFunc[T](func(a *actor.Actor) (T, error) {
		resp, err := a.LastResponse()
		if err != nil {
			var zero T
			return zero, err
		}
		return pick(resp)
	})
}

func StatusCode() actor.Question[int] {
	return fromLast(func(r *sender.Response) (int, error) { return r.StatusCode(), nil })
}

// HeaderValue answers with the first value of the named response header.
func HeaderValue(name string) actor.Question[string] {
	return fromLast(func(r *sender.Response) (string, error) { return r.Header().Get(name), nil })
}

// HeaderValues answers with every value of the named response header.
func HeaderValues(name string) actor.Question[[]string] {
	return fromLast(func(r *sender.Response) ([]string, error) { return r.Header().Values(name), nil })
}

func Body() actor.Question[[]byte] {
	return fromLast(func(r *sender.Response) ([]byte, error) { return r.Body(), nil })
}

func Text() actor.Question[string] {
	return fromLast(func(r *sender.Response) (string, error) { return r.Text(), nil })
}

// TargetURI answers with the absolute URL the last request went to.
func TargetURI() actor.Question[string] {
	return fromLast(func(r *sender.Response) (string, error) { return r.URI(), nil })
}

// JSONPath selects from the last response body with gjson path syntax.
// A missing path yields a Result whose Exists() is false.
func JSONPath(path string) actor.Question[gjson.Result] {
	return fromLast(func(r *sender.Response) (gjson.Result, error) {
		return selectJSON(r, path)
	})
}

// JSONValue is JSONPath exported to plain Go values, failing with
// ErrPathNotFound when nothing matches.
func JSONValue(path string) actor.Question[any] {
	return fromLast(func(r *sender.Response) (any, error) {
		res, err := selectJSON(r, path)
		if err != nil {
			return nil, err
		}
		if !res.Exists() {
			return nil, fmt.Errorf("%w: %s", ErrPathNotFound, path)
		}
		return res.Value(), nil
	})
}

func selectJSON(r *sender.Response, path string) (gjson.Result, error) {
	body := r.Body()
	if !gjson.ValidBytes(body) {
		return gjson.Result{}, fmt.Errorf("%w: response body is not json", ErrNotJSON)
	}
	return gjson.GetBytes(body, path), nil
}
