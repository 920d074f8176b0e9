package request

import (
	"fmt"
	"net/http"
	"strings"
)

// Verb is the closed set of HTTP methods an interaction can carry.
type Verb string

const (
	Get     Verb = http.MethodGet
	Post    Verb = http.MethodPost
	Put     Verb = http.MethodPut
	Patch   Verb = http.MethodPatch
	Delete  Verb = http.MethodDelete
	Head    Verb = http.MethodHead
	Options Verb = http.MethodOptions
)

var verbs = []Verb{Get, Post, Put, Patch, Delete, Head, Options}

// ParseVerb maps a case-insensitive method name onto a Verb.
func ParseVerb(s string) (Verb, error) {
	up := Verb(strings.ToUpper(strings.TrimSpace(s)))
	for _, v := range verbs {
		if v == up {
			return v, nil
		}
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownVerb, s)
}

// Valid reports whether v is one of the supported verbs.
func (v Verb) Valid() bool {
	for _, known := range verbs {
		if known == v {
			return true
		}
	}
	return false
}

// Bodied reports whether the verb conventionally carries a request body.
func (v Verb) Bodied() bool {
	switch v {
	case Post, Put, Patch:
		return true
	default:
		return false
	}
}

func (v Verb) String() string { return string(v) }
