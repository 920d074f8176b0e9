package interaction

import "pkt.systems/screenplay/internal/request"

// Bodiless builds interactions for verbs that carry no request body.
type Bodiless struct{ verb request.Verb }

// Bodied builds interactions for verbs that carry a request body.
type Bodied struct{ verb request.Verb }

var (
	Get     = Bodiless{verb: request.Get}
	Delete  = Bodiless{verb: request.Delete}
	Head    = Bodiless{verb: request.Head}
	Options = Bodiless{verb: request.Options}

	Post  = Bodied{verb: request.Post}
	Put   = Bodied{verb: request.Put}
	Patch = Bodied{verb: request.Patch}
)

// ResourceAt returns an interaction bound to resource.
func (b Bodiless) ResourceAt(resource string) *HTTPInteraction {
	return Request(b.verb).To(resource)
}

// DataAsJSON returns an interaction carrying v as a JSON body. Bind the
// target with To before performing it.
func (b Bodied) DataAsJSON(v any) *HTTPInteraction {
	i := Request(b.verb)
	i.desc.WithContentAsJSON(v)
	return i
}

// Text returns an interaction carrying s with contentType (text/plain when empty).
func (b Bodied) Text(s, contentType string) *HTTPInteraction {
	i := Request(b.verb)
	i.desc.WithContentAsText(s, contentType)
	return i
}

// Bytes returns an interaction carrying a raw body.
func (b Bodied) Bytes(body []byte, contentType string) *HTTPInteraction {
	i := Request(b.verb)
	i.desc.WithContentAsBytes(body, contentType)
	return i
}

// Empty returns an interaction with no body.
func (b Bodied) Empty() *HTTPInteraction {
	return Request(b.verb)
}
