package screenplay

import (
	"context"
	"runtime/debug"

	"pkt.systems/screenplay/internal/actor"
	"pkt.systems/screenplay/internal/contract"
	"pkt.systems/screenplay/internal/interaction"
	"pkt.systems/screenplay/internal/question"
	"pkt.systems/screenplay/internal/request"
	"pkt.systems/screenplay/internal/scenario"
	"pkt.systems/screenplay/internal/sender"
	"pkt.systems/screenplay/internal/urlcomp"
)

// Public type aliases to the internal packages

type (
	// Actor is a named persona holding abilities and its last response.
	Actor = actor.Actor
	// Ability is a capability an actor can hold.
	Ability = actor.Ability
	// Performable is anything an actor can attempt.
	Performable = actor.Performable
	// PerformableFunc adapts a function to Performable.
	PerformableFunc = actor.PerformableFunc
	// ActorOption configures an actor.
	ActorOption = actor.Option

	// CallAnAPI is the ability to call an HTTP API at a base URL.
	CallAnAPI = interaction.CallAnAPI
	// HTTPInteraction is one HTTP exchange an actor can perform.
	HTTPInteraction = interaction.HTTPInteraction
	// Verb is an HTTP method.
	Verb = request.Verb

	// Response is an immutable view of a received HTTP response.
	Response = sender.Response
	// Sender transmits finalized requests.
	Sender = sender.Sender
	// SenderFunc adapts a function to Sender.
	SenderFunc = sender.Func
	// HTTPClient is satisfied by *http.Client.
	HTTPClient = sender.HTTPClient
	// HTTPSender sends through net/http.
	HTTPSender = sender.HTTPSender
	// SenderOption configures an HTTPSender.
	SenderOption = sender.Option
	// Recorder is the in-memory Sender used by tests.
	Recorder = sender.Recorder
	// Sent is one request captured by a Recorder.
	Sent = sender.Sent

	// Contract is a loaded OpenAPI 3 document.
	Contract = contract.Contract
	// QueryParam is one appended query pair.
	QueryParam = urlcomp.QueryParam

	// Runner executes scenario files.
	Runner = scenario.Runner
	// Scenario is a parsed scenario file.
	Scenario = scenario.Scenario
	// RunOptions configure a single run invocation.
	RunOptions = scenario.RunOptions
	// StepResult captures the outcome of a single step.
	StepResult = scenario.StepResult
	// Summary aggregates step results of a run.
	Summary = scenario.Summary
	// AssertionFailure is one expectation that did not hold.
	AssertionFailure = scenario.AssertionFailure
	// HookInfo carries step metadata provided to hooks.
	HookInfo = scenario.HookInfo
	// PreStepHook runs before each step's request is sent.
	PreStepHook = scenario.PreStepHook
	// PostStepHook runs after each step.
	PostStepHook = scenario.PostStepHook
)

// Question is something an actor can answer about its state.
type Question[T any] = actor.Question[T]

// QuestionFunc adapts a function to Question.
type QuestionFunc[T any] = actor.QuestionFunc[T]

// Option tweaks runner construction.
type Option = scenario.Option

const (
	VerbGet     = request.Get
	VerbPost    = request.Post
	VerbPut     = request.Put
	VerbPatch   = request.Patch
	VerbDelete  = request.Delete
	VerbHead    = request.Head
	VerbOptions = request.Options
)

// Interaction factories.
var (
	Get     = interaction.Get
	Delete  = interaction.Delete
	Head    = interaction.Head
	Options = interaction.Options
	Post    = interaction.Post
	Put     = interaction.Put
	Patch   = interaction.Patch
	// Request starts an interaction for any supported verb.
	Request = interaction.Request
)

var (
	// Named creates an actor without abilities.
	Named = actor.Named
	// WithActorLogger sets an actor's logger.
	WithActorLogger = actor.WithLogger
	// CallAnAPIAt grants the ability to call an API at a base URL.
	CallAnAPIAt = interaction.CallAnAPIAt
	// ParseVerb validates a method name.
	ParseVerb = request.ParseVerb
	// ComposeURL joins a base URL, a resource and query parameters.
	ComposeURL = urlcomp.Compose

	// NewHTTPSender builds the net/http Sender.
	NewHTTPSender = sender.NewHTTP
	// WithSenderHTTPClient injects the client an HTTPSender uses.
	WithSenderHTTPClient = sender.WithHTTPClient
	// WithSenderLogger sets an HTTPSender's logger.
	WithSenderLogger = sender.WithLogger
	// NewRecorder builds a Recorder answering 200 with an empty body.
	NewRecorder = sender.NewRecorder
	// NewResponse builds a response for programming a Recorder.
	NewResponse = sender.NewResponse
	// JSONResponse builds a JSON response for programming a Recorder.
	JSONResponse = sender.JSONResponse
	// HandlerSender serves requests in-process through an http.Handler.
	HandlerSender = sender.HandlerSender

	// LoadContract reads an OpenAPI 3 document from disk.
	LoadContract = contract.Load
	// ParseContract reads an OpenAPI 3 document from memory.
	ParseContract = contract.Parse
)

// Questions about the last response.
var (
	LastResponse = question.LastResponse
	StatusCode   = question.StatusCode
	HeaderValue  = question.HeaderValue
	HeaderValues = question.HeaderValues
	Body         = question.Body
	Text         = question.Text
	TargetURI    = question.TargetURI
	JSONPath     = question.JSONPath
	JSONValue    = question.JSONValue
	Expect       = question.Expect
	Documented   = question.Documented
)

var (
	// WithLogger supplies a custom pslog logger to the runner.
	WithLogger = scenario.WithLogger
	// WithHTTPClient injects a custom HTTP client into the runner.
	WithHTTPClient = scenario.WithHTTPClient
	// WithSender routes every step through a custom Sender.
	WithSender = scenario.WithSender
	// WithTimeout sets a default per-step timeout.
	WithTimeout = scenario.WithTimeout
	// WithPreStepHook registers a Go hook invoked before each step's request.
	WithPreStepHook = scenario.WithPreStepHook
	// WithPostStepHook registers a Go hook invoked after each step.
	WithPostStepHook = scenario.WithPostStepHook
	// LoadScenario reads and validates a scenario file.
	LoadScenario = scenario.Load
	// ParseScenario decodes and validates a TOML scenario.
	ParseScenario = scenario.Parse
)

// Errors.
var (
	ErrMissingAbility     = actor.ErrMissingAbility
	ErrNoPriorInteraction = actor.ErrNoPriorInteraction
	ErrMissingResource    = request.ErrMissingResource
	ErrUnknownVerb        = request.ErrUnknownVerb
	ErrBodyEncode         = request.ErrBodyEncode
	ErrMalformedResource  = urlcomp.ErrMalformedResource
	ErrMalformedBase      = urlcomp.ErrMalformedBase
	ErrNoResponse         = interaction.ErrNoResponse
	ErrPathNotFound       = question.ErrPathNotFound
	ErrNotJSON            = question.ErrNotJSON
	ErrScript             = question.ErrScript
	ErrUnknownOperation   = contract.ErrUnknownOperation
	ErrUndocumentedStatus = contract.ErrUndocumentedStatus
	ErrSchemaMismatch     = contract.ErrSchemaMismatch
	ErrInvalidScenario    = scenario.ErrInvalidScenario
)

// AbilityOf returns the actor's ability of type T.
func AbilityOf[T Ability](a *Actor) (T, error) {
	return actor.AbilityOf[T](a)
}

// Recall asks the actor a question.
func Recall[T any](a *Actor, q Question[T]) (T, error) {
	return actor.Recall(a, q)
}

// New constructs a scenario Runner.
func New(ctx context.Context, opts ...Option) (Runner, error) {
	return scenario.New(ctx, opts...)
}

// Version returns the current module version (best effort).
func Version() string {
	return moduleVersion(modulePath)
}

const modulePath = "pkt.systems/screenplay"

var moduleVersion = buildInfoVersion

func buildInfoVersion(path string) string {
	bi, ok := debug.ReadBuildInfo()
	if !ok {
		return "(devel)"
	}
	if bi.Main.Path == path && bi.Main.Version != "" {
		return bi.Main.Version
	}
	for _, dep := range bi.Deps {
		if dep.Path == path {
			if dep.Replace != nil && dep.Replace.Version != "" {
				return dep.Replace.Version
			}
			return dep.Version
		}
	}
	return "(devel)"
}
