// Package actor holds the Screenplay actor: a named persona with a typed
// ability registry and a single slot remembering the last response.
package actor

import (
	"context"
	"errors"
	"fmt"
	"os"
	"reflect"

	"pkt.systems/pslog"
	"pkt.systems/screenplay/internal/sender"
)

var (
	// ErrMissingAbility is returned when an actor is asked for an ability it never acquired.
	ErrMissingAbility = errors.New("missing ability")
	// ErrNoPriorInteraction is returned when the last response is recalled before any interaction ran.
	ErrNoPriorInteraction = errors.New("no prior interaction")
)

// Ability is a capability an actor holds. Abilities are registered under
// their dynamic type, so an actor holds at most one ability per type.
type Ability interface {
	AbilityName() string
}

// Performable is anything an actor can attempt: an interaction or a task
// composed of interactions.
type Performable interface {
	PerformAs(ctx context.Context, a *Actor) error
}

// PerformableFunc adapts a function to Performable.
type PerformableFunc func(ctx context.Context, a *Actor) error

func (f PerformableFunc) PerformAs(ctx context.Context, a *Actor) error { return f(ctx, a) }

// Actor is not safe for concurrent use. Run one interaction at a time per
// actor; distinct actors share nothing and may run in parallel.
type Actor struct {
	name      string
	abilities map[reflect.Type]Ability
	last      *sender.Response
	logger    pslog.Base
}

type config struct {
	logger pslog.Base
}

// Option configures an Actor at construction time.
type Option func(*config)

// WithLogger overrides the default logger (pslog console, info level).
func WithLogger(logger pslog.Base) Option {
	return func(c *config) { c.logger = logger }
}

// Named creates an actor without abilities.
func Named(name string, opts ...Option) *Actor {
	cfg := config{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = pslog.NewWithOptions(os.Stdout, pslog.Options{MinLevel: pslog.InfoLevel})
	}
	return &Actor{
		name:      name,
		abilities: map[reflect.Type]Ability{},
		logger:    cfg.logger,
	}
}

func (a *Actor) Name() string { return a.name }

func (a *Actor) String() string { return a.name }

// Logger is the logger interactions performed by this actor write to.
func (a *Actor) Logger() pslog.Base { return a.logger }

// Can grants an ability, silently replacing one of the same type.
func (a *Actor) Can(ability Ability) *Actor {
	if ability == nil {
		return a
	}
	a.abilities[reflect.TypeOf(ability)] = ability
	return a
}

// WhoCan grants several abilities and returns the actor for chaining.
func (a *Actor) WhoCan(abilities ...Ability) *Actor {
	for _, ab := range abilities {
		a.Can(ab)
	}
	return a
}

// AbilityOf returns the actor's ability of type T or ErrMissingAbility.
func AbilityOf[T Ability](a *Actor) (T, error) {
	var zero T
	if a == nil {
		return zero, fmt.Errorf("%w: nil actor", ErrMissingAbility)
	}
	key := reflect.TypeFor[T]()
	ab, ok := a.abilities[key]
	if !ok {
		return zero, fmt.Errorf("%w: %s cannot %s", ErrMissingAbility, a.name, abilityLabel(key))
	}
	typed, ok := ab.(T)
	if !ok {
		return zero, fmt.Errorf("%w: %s holds %T under %s", ErrMissingAbility, a.name, ab, key)
	}
	return typed, nil
}

func abilityLabel(t reflect.Type) string {
	if t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t.Name()
}

// AttemptsTo performs each task in order and stops at the first error,
// which is returned unchanged.
func (a *Actor) AttemptsTo(ctx context.Context, tasks ...Performable) error {
	if ctx == nil {
		return errors.New("nil context")
	}
	for _, task := range tasks {
		if task == nil {
			continue
		}
		if err := task.PerformAs(ctx, a); err != nil {
			return err
		}
	}
	return nil
}

// RememberResponse overwrites the last-response slot.
func (a *Actor) RememberResponse(resp *sender.Response) {
	a.last = resp
}

// LastResponse returns the response stored by the most recent interaction.
func (a *Actor) LastResponse() (*sender.Response, error) {
	if a.last == nil {
		return nil, fmt.Errorf("%w: %s has not performed any interaction", ErrNoPriorInteraction, a.name)
	}
	return a.last, nil
}
