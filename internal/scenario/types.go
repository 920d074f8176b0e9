package scenario

import (
	"context"
	"net/http"
	"time"

	"pkt.systems/pslog"
	"pkt.systems/screenplay/internal/sender"
)

// Runner executes scenario files. It is safe to hold and use concurrently
// from multiple goroutines; every run builds its own actors.
type Runner interface {
	RunFile(ctx context.Context, path string, opts RunOptions) (Summary, error)
	Run(ctx context.Context, sc *Scenario, opts RunOptions) (Summary, error)
}

// RunOptions controls one execution of a scenario.
type RunOptions struct {
	// Vars override the scenario's [vars] table.
	Vars map[string]string
	// ContractPath replaces the scenario's contract document.
	ContractPath string
	Tags         []string
	ExcludeTags  []string
	// CSVFilePath points to a CSV dataset used for data-driven iterations.
	CSVFilePath string
	// JSONFilePath points to a JSON array dataset used for data-driven iterations.
	JSONFilePath string
	// IterationCount executes the scenario this many times (default 1). Ignored when a data file is provided.
	IterationCount int
	HTTPClient     *http.Client
	// Sender replaces the HTTP transport entirely; HTTPClient is ignored when set.
	Sender  sender.Sender
	Logger  pslog.Base
	Timeout time.Duration // per step timeout; 0 means default (15s)
	Delay   time.Duration // delay between steps; 0 to skip
	Bail    bool          // stop after first failure

	// Reporter/output hints (used by CLI layer).
	OutputPath    string
	OutputFormat  string // json|junit|html
	ReporterJSON  string
	ReporterJUnit string
	ReporterHTML  string
	// ReporterSkipAllHeaders omits all request/response headers from reporter outputs.
	ReporterSkipAllHeaders bool
	// ReporterSkipHeaders removes specific headers (case-insensitive) from reporter outputs.
	ReporterSkipHeaders []string
	PreHookCmd          []string
	PostHookCmd         []string
}

// HookInfo describes the step a hook is called for.
type HookInfo struct {
	Scenario  string
	Step      string
	Index     int
	Iteration int
	Actor     string
	Tags      []string
	Method    string
	URL       string
}

// PreStepHook is invoked with the finalized request right before it is sent.
// It can mutate the *http.Request or return an error to abort the run.
type PreStepHook func(ctx context.Context, info HookInfo, req *http.Request, logger pslog.Base) error

// PostStepHook is invoked after a step's expectations were evaluated. It may
// return an error to abort the run.
type PostStepHook func(ctx context.Context, info HookInfo, res StepResult, logger pslog.Base) error

// StepResult captures the outcome of a single step.
type StepResult struct {
	ID        string
	Iteration int
	Index     int
	Name      string
	Actor     string
	Method    string
	URL       string
	// RequestHeaders captures the request headers sent for this step.
	RequestHeaders map[string]string
	// ResponseHeaders captures the response headers returned for this step.
	ResponseHeaders map[string]string
	Status          int
	Tags            []string
	Duration        time.Duration
	Passed          bool
	Skipped         bool
	Failures        []AssertionFailure
	ErrorText       string // set when the request could not be performed
}

// Summary aggregates the step results of a run.
type Summary struct {
	Scenario     string
	Steps        []StepResult
	Iterations   int
	Total        int
	Passed       int
	Failed       int
	Skipped      int
	TotalElapsed time.Duration
}

// AssertionFailure is one expectation that did not hold.
type AssertionFailure struct {
	Name    string
	Message string
}

// Option modifies a Runner at construction time.
type Option func(*runnerConfig)

// WithPreStepHook registers a Go hook invoked before each step's request is sent.
func WithPreStepHook(h PreStepHook) Option {
	return func(rc *runnerConfig) { rc.preHook = h }
}

// WithPostStepHook registers a Go hook invoked after each step finishes.
func WithPostStepHook(h PostStepHook) Option {
	return func(rc *runnerConfig) { rc.postHook = h }
}

// WithLogger overrides the default logger (pslog console).
func WithLogger(logger pslog.Base) Option {
	return func(rc *runnerConfig) { rc.logger = logger }
}

// WithHTTPClient sets a custom HTTP client for the default sender.
func WithHTTPClient(client *http.Client) Option {
	return func(rc *runnerConfig) { rc.httpClient = client }
}

// WithSender routes every step through s instead of net/http.
func WithSender(s sender.Sender) Option {
	return func(rc *runnerConfig) { rc.sender = s }
}

// WithTimeout sets the default per-step timeout.
func WithTimeout(timeout time.Duration) Option {
	return func(rc *runnerConfig) { rc.timeout = timeout }
}
