package interaction

import (
	"pkt.systems/screenplay/internal/sender"
)

// CallAnAPI is the ability to call an HTTP API rooted at a base URL through
// a Sender. It is immutable; With returns a new ability.
type CallAnAPI struct {
	baseURL string
	sender  sender.Sender
}

// CallAnAPIAt starts an ability for baseURL. Without With, interactions use
// a default network sender that logs through the actor's logger.
func CallAnAPIAt(baseURL string) *CallAnAPI {
	return &CallAnAPI{baseURL: baseURL}
}

// With returns a copy of the ability that dispatches through s.
func (c *CallAnAPI) With(s sender.Sender) *CallAnAPI {
	return &CallAnAPI{baseURL: c.baseURL, sender: s}
}

func (c *CallAnAPI) AbilityName() string { return "call an API at " + c.baseURL }

func (c *CallAnAPI) BaseURL() string { return c.baseURL }

// Sender returns the configured sender, nil when none was given.
func (c *CallAnAPI) Sender() sender.Sender { return c.sender }
