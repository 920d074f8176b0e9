package scenario

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"net/http"
	"os"
	"path/filepath"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"pkt.systems/pslog"
	"pkt.systems/screenplay/internal/actor"
	"pkt.systems/screenplay/internal/contract"
	"pkt.systems/screenplay/internal/interaction"
	"pkt.systems/screenplay/internal/question"
	"pkt.systems/screenplay/internal/sender"
)

const defaultTimeout = 15 * time.Second

// runner implements Runner.
type runner struct {
	logger     pslog.Base
	httpClient *http.Client
	sender     sender.Sender
	timeout    time.Duration
	preHook    PreStepHook
	postHook   PostStepHook
}

type runnerConfig struct {
	logger     pslog.Base
	httpClient *http.Client
	sender     sender.Sender
	timeout    time.Duration
	preHook    PreStepHook
	postHook   PostStepHook
}

// New constructs a Runner with optional configuration.
func New(ctx context.Context, opts ...Option) (Runner, error) {
	if ctx == nil {
		return nil, errors.New("nil context")
	}
	cfg := runnerConfig{}
	for _, opt := range opts {
		if opt != nil {
			opt(&cfg)
		}
	}
	if cfg.logger == nil {
		cfg.logger = pslog.New(os.Stdout)
	}
	if cfg.httpClient == nil {
		cfg.httpClient = &http.Client{Timeout: defaultTimeout}
	}
	if cfg.timeout == 0 {
		cfg.timeout = defaultTimeout
	}
	return &runner{
		logger:     cfg.logger,
		httpClient: cfg.httpClient,
		sender:     cfg.sender,
		timeout:    cfg.timeout,
		preHook:    cfg.preHook,
		postHook:   cfg.postHook,
	}, nil
}

// RunFile loads the scenario at path and runs it.
func (r *runner) RunFile(ctx context.Context, path string, opts RunOptions) (Summary, error) {
	sc, err := Load(path)
	if err != nil {
		return Summary{}, err
	}
	return r.Run(ctx, sc, opts)
}

// run is the state shared by the steps of one Run call.
type run struct {
	sc        *Scenario
	opts      RunOptions
	logger    pslog.Base
	transport sender.Sender
	contract  *contract.Contract
}

// Run executes every step of sc in order, once per iteration. Failed
// expectations and unreachable servers are recorded in the summary; only
// setup problems and hook failures are returned as errors.
func (r *runner) Run(ctx context.Context, sc *Scenario, opts RunOptions) (Summary, error) {
	start := time.Now()
	if sc == nil {
		return Summary{}, fmt.Errorf("%w: nil scenario", ErrInvalidScenario)
	}
	plan := *sc
	plan.Actors = maps.Clone(sc.Actors)
	plan.Steps = slices.Clone(sc.Steps)
	if err := plan.validate(); err != nil {
		return Summary{}, err
	}

	st := &run{sc: &plan, opts: opts, logger: r.logger}
	if opts.Logger != nil {
		st.logger = opts.Logger
	}
	switch {
	case opts.Sender != nil:
		st.transport = opts.Sender
	case opts.HTTPClient != nil:
		st.transport = sender.NewHTTP(sender.WithHTTPClient(opts.HTTPClient), sender.WithLogger(st.logger))
	case r.sender != nil:
		st.transport = r.sender
	default:
		st.transport = sender.NewHTTP(sender.WithHTTPClient(r.httpClient), sender.WithLogger(st.logger))
	}

	contractPath := plan.Contract
	if opts.ContractPath != "" {
		contractPath = opts.ContractPath
	} else if contractPath != "" && plan.Path != "" && !filepath.IsAbs(contractPath) {
		contractPath = filepath.Join(filepath.Dir(plan.Path), contractPath)
	}
	if contractPath != "" {
		c, err := contract.Load(ctx, contractPath)
		if err != nil {
			return Summary{}, fmt.Errorf("load contract: %w", err)
		}
		st.contract = c
	}
	for i, step := range plan.Steps {
		if step.Documented && st.contract == nil {
			return Summary{}, fmt.Errorf("%w: %s: documented requires a contract", ErrInvalidScenario, stepLabel(i, step))
		}
	}

	iterations, err := buildIterations(opts)
	if err != nil {
		return Summary{}, err
	}

	var runnable []int
	for i, step := range plan.Steps {
		if passesTagFilter(step.Tags, opts.Tags, opts.ExcludeTags) {
			runnable = append(runnable, i)
		}
	}

	summary := Summary{
		Scenario:   plan.Name,
		Iterations: len(iterations),
		Total:      len(runnable) * len(iterations),
	}
	st.logger.Info("scenario.start", "scenario", plan.Name, "steps", len(runnable), "iterations", len(iterations))

	stepCount := 0
	for iterIdx, iterVars := range iterations {
		// vars start fresh each iteration so captures do not leak between rows
		vars := cloneStringMap(plan.Vars)
		maps.Copy(vars, opts.Vars)
		maps.Copy(vars, iterVars)
		exp := newExpander(vars)
		cast := r.cast(st)

		for _, idx := range runnable {
			if opts.Delay > 0 && stepCount > 0 {
				select {
				case <-ctx.Done():
					return Summary{}, ctx.Err()
				case <-time.After(opts.Delay):
				}
			}
			res, err := r.executeStep(ctx, st, cast, exp, iterIdx, idx)
			if err != nil {
				return Summary{}, err
			}
			summary.Steps = append(summary.Steps, res)
			switch {
			case res.Skipped:
				summary.Skipped++
			case res.Passed:
				summary.Passed++
			default:
				summary.Failed++
			}
			stepCount++
			if opts.Bail && !res.Passed && !res.Skipped {
				summary.TotalElapsed = time.Since(start)
				st.logger.Warn("scenario.bail", "scenario", plan.Name, "step", res.Name)
				return summary, nil
			}
		}
	}
	summary.TotalElapsed = time.Since(start)
	st.logger.Info("scenario.done", "scenario", plan.Name, "passed", summary.Passed, "failed", summary.Failed, "skipped", summary.Skipped, "elapsed", summary.TotalElapsed)
	return summary, nil
}

// cast creates the iteration's actors. Their abilities are re-granted per
// step so each step's hooks see the right step.
func (r *runner) cast(st *run) map[string]*actor.Actor {
	out := make(map[string]*actor.Actor, len(st.sc.Actors))
	for _, name := range st.sc.ActorNames() {
		out[name] = actor.Named(name, actor.WithLogger(st.logger))
	}
	return out
}

func (r *runner) executeStep(ctx context.Context, st *run, cast map[string]*actor.Actor, exp *expander, iterIdx, idx int) (StepResult, error) {
	step := st.sc.Steps[idx]
	spec := st.sc.Actors[step.Actor]
	a := cast[step.Actor]

	result := StepResult{
		ID:        uuid.NewString(),
		Iteration: iterIdx,
		Index:     idx,
		Name:      step.Name,
		Actor:     step.Actor,
		Method:    step.verb.String(),
		Tags:      step.Tags,
	}
	if result.Name == "" {
		result.Name = fmt.Sprintf("%s %s", step.verb, step.Resource)
	}
	if step.Skip {
		result.Passed = true
		result.Skipped = true
		return result, nil
	}

	act := buildInteraction(step, exp)
	base := exp.expand(spec.BaseURL)
	if u, err := act.Descriptor().URL(base); err == nil {
		result.URL = u
		if missing := unresolved(u); len(missing) > 0 {
			st.logger.Warn("scenario.unresolved", "step", result.Name, "vars", strings.Join(missing, ","))
		}
	}
	info := HookInfo{
		Scenario:  st.sc.Name,
		Step:      result.Name,
		Index:     idx,
		Iteration: iterIdx,
		Actor:     step.Actor,
		Tags:      step.Tags,
		Method:    result.Method,
		URL:       result.URL,
	}

	hooked := sender.Func(func(ctx context.Context, req *http.Request) (*sender.Response, error) {
		info.URL = req.URL.String()
		if r.preHook != nil {
			if err := r.preHook(ctx, info, req, st.logger); err != nil {
				return nil, &hookError{err: fmt.Errorf("pre-step hook: %w", err)}
			}
		}
		if err := runExternalHook(ctx, st.logger, "pre", st.opts.PreHookCmd, info, nil); err != nil {
			return nil, &hookError{err: err}
		}
		result.URL = req.URL.String()
		result.RequestHeaders = headerMap(req.Header)
		return st.transport.Send(ctx, req)
	})
	a.Can(interaction.CallAnAPIAt(base).With(hooked))

	timeout := r.timeout
	if st.opts.Timeout > 0 {
		timeout = st.opts.Timeout
	}
	if spec.timeout > 0 {
		timeout = spec.timeout
	}
	if step.timeout > 0 {
		timeout = step.timeout
	}
	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	begin := time.Now()
	err := a.AttemptsTo(stepCtx, act)
	result.Duration = time.Since(begin)
	cancel()
	if err != nil {
		var he *hookError
		if errors.As(err, &he) {
			return StepResult{}, he.err
		}
		if ctx.Err() != nil {
			return StepResult{}, ctx.Err()
		}
		// unreachable servers fail the step, not the run
		result.ErrorText = fmt.Sprintf("request failed: %v", err)
		st.logger.Warn("scenario.step.error", "step", result.Name, "err", err)
		return r.finishStep(ctx, st, info, result)
	}

	resp, err := a.LastResponse()
	if err != nil {
		return StepResult{}, err
	}
	result.Status = resp.StatusCode()
	result.ResponseHeaders = headerMap(resp.Header())
	result.Failures = r.evaluate(st, a, step, exp)
	result.Passed = len(result.Failures) == 0
	return r.finishStep(ctx, st, info, result)
}

func (r *runner) finishStep(ctx context.Context, st *run, info HookInfo, result StepResult) (StepResult, error) {
	if r.postHook != nil {
		if err := r.postHook(ctx, info, result, st.logger); err != nil {
			return StepResult{}, fmt.Errorf("post-step hook: %w", err)
		}
	}
	if err := runExternalHook(ctx, st.logger, "post", st.opts.PostHookCmd, info, &result); err != nil {
		return StepResult{}, err
	}
	level := st.logger.Info
	if !result.Passed {
		level = st.logger.Warn
	}
	level("scenario.step", "step", result.Name, "actor", result.Actor, "method", result.Method, "url", result.URL,
		"status", result.Status, "passed", result.Passed, "failures", len(result.Failures), "elapsed", result.Duration)
	return result, nil
}

func buildInteraction(step Step, exp *expander) *interaction.HTTPInteraction {
	act := interaction.Request(step.verb).To(exp.expand(step.Resource))
	for _, h := range step.Headers {
		act.WithHeader(exp.expand(h.Name), exp.expand(h.Value))
	}
	for _, q := range step.Query {
		act.WithQueryParameter(exp.expand(q.Key), exp.expand(q.Value))
	}
	switch {
	case step.JSON != nil:
		act.WithContentAsJSON(exp.expandValue(step.JSON))
		if step.ContentType != "" {
			act.WithHeader("Content-Type", step.ContentType)
		}
	case step.Text != "":
		act.WithContentAsText(exp.expand(step.Text), step.ContentType)
	}
	for _, f := range step.Fields {
		act.WithBodyField(exp.expand(f.Path), exp.expandValue(f.Value))
	}
	return act
}

// evaluate checks the step's expectations against the actor's last response
// and applies captures for later steps.
func (r *runner) evaluate(st *run, a *actor.Actor, step Step, exp *expander) []AssertionFailure {
	var failures []AssertionFailure
	if step.Status != 0 {
		got, err := actor.Recall(a, question.StatusCode())
		if err != nil || got != step.Status {
			failures = append(failures, AssertionFailure{
				Name:    "status",
				Message: fmt.Sprintf("expected %d, got %d", step.Status, got),
			})
		}
	}
	for _, script := range step.Expect {
		script = exp.expand(script)
		ok, err := actor.Recall(a, question.Expect(script))
		switch {
		case err != nil:
			failures = append(failures, AssertionFailure{Name: script, Message: err.Error()})
		case !ok:
			failures = append(failures, AssertionFailure{Name: script, Message: "expectation evaluated to false"})
		}
	}
	if step.Documented {
		resp, err := actor.Recall(a, question.LastResponse())
		if err == nil {
			err = question.CheckContract(st.contract, step.verb.String(), resp)
		}
		if err != nil {
			failures = append(failures, AssertionFailure{Name: "documented", Message: err.Error()})
		}
	}
	names := make([]string, 0, len(step.Capture))
	for name := range step.Capture {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		path := exp.expand(step.Capture[name])
		res, err := actor.Recall(a, question.JSONPath(path))
		if err == nil && !res.Exists() {
			err = fmt.Errorf("%w: %s", question.ErrPathNotFound, path)
		}
		if err != nil {
			failures = append(failures, AssertionFailure{Name: "capture " + name, Message: err.Error()})
			continue
		}
		exp.set(name, res.String())
	}
	return failures
}

func passesTagFilter(tags []string, include []string, exclude []string) bool {
	if len(include) > 0 {
		match := false
		for _, t := range tags {
			if slices.Contains(include, t) {
				match = true
			}
		}
		if !match {
			return false
		}
	}
	for _, t := range tags {
		if slices.Contains(exclude, t) {
			return false
		}
	}
	return true
}

func headerMap(h http.Header) map[string]string {
	if h == nil {
		return nil
	}
	out := map[string]string{}
	for k, vals := range h {
		out[strings.ToLower(k)] = strings.Join(vals, ", ")
	}
	return out
}
