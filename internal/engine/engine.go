// Package engine implements the execution loop (C7): the per-pass
// select/claim/dispatch/record/relocate sequence that drains the ready
// queue. Grounded on
// original_source/agents/engage_agent.py's process_single_directive/
// run/run_batch_processing, and on the teacher's
// internal/campaign/orchestrator_execution.go for the
// claim-then-dispatch-then-record sequencing style.
package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/computer-project/computer/internal/batch"
	"github.com/computer-project/computer/internal/bridge"
	"github.com/computer-project/computer/internal/config"
	"github.com/computer-project/computer/internal/directive"
	"github.com/computer-project/computer/internal/logging"
	"github.com/computer-project/computer/internal/provider"
	"github.com/computer-project/computer/internal/session"
	"github.com/computer-project/computer/internal/store"
)

// Mode selects whether RunSingle dispatches one directive at a time
// through the provider gateway, or accumulates the whole ready set for
// one batch round.
type Mode string

const (
	ModeSequential Mode = "sequential"
	ModeBatch      Mode = "batch"
)

// Fallback executes a directive's prompt when no provider is configured,
// standing in for the original project's local script substitute. The
// engine enforces the wall-clock ceiling itself via ctx.
type Fallback interface {
	Execute(ctx context.Context, prompt string) (string, error)
}

// Engine owns one worker's pass over the ready queue.
type Engine struct {
	store    *store.Store
	ctx      *session.Context
	gateway  *provider.Gateway
	coord    *batch.Coordinator
	fallback Fallback
	br       *bridge.Bridge
	todos    []bridge.TodoItem
	cfg      *config.Config
	log      *logging.Logger
	tracker  *logging.PerformanceTracker
	mode     Mode
}

// New constructs an Engine. gateway, coord, fallback, and br may all be
// nil; in sequential mode a nil gateway falls back to fallback, while
// batch mode with a nil coord fails every pass with an error. A nil br
// means bridge mirroring (§4.6 step 8) is skipped unconditionally.
func New(
	s *store.Store,
	sctx *session.Context,
	gateway *provider.Gateway,
	coord *batch.Coordinator,
	fallback Fallback,
	br *bridge.Bridge,
	cfg *config.Config,
	log *logging.Logger,
	tracker *logging.PerformanceTracker,
	mode Mode,
) *Engine {
	return &Engine{
		store: s, ctx: sctx, gateway: gateway, coord: coord,
		fallback: fallback, br: br, cfg: cfg, log: log, tracker: tracker, mode: mode,
	}
}

// SetTodos seeds the in-memory to-do list the bridge mirrors status
// into. Only relevant when the directives being processed were created
// via bridge.Forward.
func (e *Engine) SetTodos(todos []bridge.TodoItem) { e.todos = todos }

// Todos returns the current in-memory to-do list, after any Sync
// mirroring performed by completed passes.
func (e *Engine) Todos() []bridge.TodoItem { return e.todos }

// Run loops RunSingle until a pass does no work.
func (e *Engine) Run(ctx context.Context) error {
	for {
		did, err := e.RunSingle(ctx)
		if err != nil {
			return err
		}
		if !did {
			return nil
		}
	}
}

// RunSingle executes exactly one pass and reports whether it found work.
func (e *Engine) RunSingle(ctx context.Context) (bool, error) {
	if e.mode == ModeBatch {
		return e.runBatchPass(ctx)
	}
	return e.runSequentialPass(ctx)
}

func (e *Engine) runSequentialPass(ctx context.Context) (bool, error) {
	candidates, err := e.store.ListReady()
	if err != nil {
		return false, fmt.Errorf("engine: list ready: %w", err)
	}
	if len(candidates) == 0 {
		return false, nil
	}

	top := candidates[0]
	claimed, err := e.store.Claim(top.Path)
	if err != nil {
		return false, fmt.Errorf("engine: claim: %w", err)
	}
	if !claimed {
		// Another worker won the race; this pass still found work to
		// try, a later pass will pick up whatever remains ready.
		return true, nil
	}

	d := top.Directive
	e.log.DirectiveStarted(d.Header.ID, d.Path)

	prompt := e.ctx.ContextBlock(d, e.relatedTodos(d)) + "\n\n" + d.Prompt
	start := time.Now()
	result, callErr := e.dispatchSequential(ctx, d, prompt)
	e.finish(d, result, callErr, time.Since(start))

	return true, nil
}

func (e *Engine) dispatchSequential(ctx context.Context, d directive.Directive, prompt string) (provider.Result, error) {
	if e.gateway != nil {
		return e.gateway.Call(ctx, provider.Request{Platform: d.Header.Platform, Model: d.Header.Model, Prompt: prompt})
	}
	return e.runFallback(ctx, prompt)
}

var ErrNoExecutionPath = errors.New("engine: no provider configured and no fallback available")

// runFallback enforces the local-execution wall-clock ceiling (§4.6,
// "Timeout") when no provider is configured.
func (e *Engine) runFallback(ctx context.Context, prompt string) (provider.Result, error) {
	if e.fallback == nil {
		return provider.Result{}, ErrNoExecutionPath
	}

	timeout := e.cfg.MaxProcessingTime()
	fctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	content, err := e.fallback.Execute(fctx, prompt)
	if err != nil {
		if errors.Is(fctx.Err(), context.DeadlineExceeded) {
			return provider.Result{}, fmt.Errorf("engine: local execution exceeded %s: %w", timeout, err)
		}
		return provider.Result{}, err
	}
	return provider.Result{Success: true, Content: content}, nil
}

func (e *Engine) runBatchPass(ctx context.Context) (bool, error) {
	if e.coord == nil {
		return false, errors.New("engine: batch mode requires a coordinator")
	}

	candidates, err := e.store.ListReady()
	if err != nil {
		return false, fmt.Errorf("engine: list ready: %w", err)
	}
	if len(candidates) == 0 {
		return false, nil
	}

	claimed := make([]store.Candidate, 0, len(candidates))
	for _, c := range candidates {
		ok, err := e.store.Claim(c.Path)
		if err != nil {
			return false, fmt.Errorf("engine: claim: %w", err)
		}
		if ok {
			claimed = append(claimed, c)
		}
	}
	if len(claimed) == 0 {
		return true, nil
	}

	requests := make([]batch.Request, len(claimed))
	starts := make(map[string]time.Time, len(claimed))
	for i, c := range claimed {
		e.log.DirectiveStarted(c.Directive.Header.ID, c.Directive.Path)
		prompt := e.ctx.ContextBlock(c.Directive, e.relatedTodos(c.Directive)) + "\n\n" + c.Directive.Prompt
		requests[i] = batch.Request{
			DirectiveID: c.Directive.Header.ID,
			Platform:    c.Directive.Header.Platform,
			Model:       c.Directive.Header.Model,
			Prompt:      prompt,
		}
		starts[c.Directive.Header.ID] = time.Now()
	}

	results, err := e.coord.Run(ctx, requests)
	if err != nil {
		return true, fmt.Errorf("engine: batch run: %w", err)
	}

	for _, c := range claimed {
		res := results[c.Directive.Header.ID]
		duration := time.Since(starts[c.Directive.Header.ID])

		var callErr error
		if !res.Success {
			callErr = errors.New(res.Error)
		}
		e.finish(c.Directive, provider.Result{
			Success: res.Success, Content: res.Content,
			TokensIn: res.TokensIn, TokensOut: res.TokensOut, Cost: res.Cost,
		}, callErr, duration)
	}

	return true, nil
}

// finish performs steps 6-10 of §4.6: update the output artifact,
// append the session completion (before relocation, per §5's ordering
// guarantee), mirror status via the bridge, rewrite the header, and
// relocate to the classified terminal folder.
func (e *Engine) finish(d directive.Directive, result provider.Result, callErr error, duration time.Duration) {
	success := callErr == nil && result.Success

	body := result.Content
	errMsg := ""
	if callErr != nil {
		errMsg = callErr.Error()
		body = errMsg
	}

	artifact := directive.OutputArtifact{
		DirectiveID: d.Header.ID,
		Slug:        d.Header.Slug,
		Priority:    d.Header.Priority,
		Success:     success,
		Duration:    duration,
		TokensIn:    result.TokensIn,
		TokensOut:   result.TokensOut,
		Cost:        result.Cost,
		Platform:    d.Header.Platform,
		Model:       d.Header.Model,
		Body:        body,
		Summary:     directive.Summarize(body),
		CompletedAt: time.Now(),
	}
	if err := e.store.UpdateOutput(d, artifact); err != nil {
		e.log.Error("engine: update output artifact failed", zap.Error(err))
	}

	completion := session.CompletionEntry{
		DirectiveID: d.Header.ID,
		Slug:        d.Header.Slug,
		Task:        d.Prompt,
		Success:     success,
		Duration:    duration.Seconds(),
		TokensIn:    result.TokensIn,
		TokensOut:   result.TokensOut,
		Cost:        result.Cost,
		Summary:     artifact.Summary,
		Timestamp:   artifact.CompletedAt,
	}
	if err := e.ctx.AppendCompletion(completion); err != nil {
		e.log.Error("engine: append session completion failed", zap.Error(err))
	}

	if d.Header.ClaudeTodoID != "" && e.br != nil {
		newStatus := bridge.TodoStatusPending
		if success {
			newStatus = bridge.TodoStatusCompleted
		}
		e.todos = e.br.Sync(e.todos, d, newStatus)
	}

	folder := store.ClassifyOutcome(success, duration, e.cfg.ExemplarEnabled, e.cfg.ExemplarThreshold(), e.cfg.SlowThreshold())
	if err := e.store.Relocate(d, folder); err != nil {
		e.log.Error("engine: relocate failed", zap.Error(err))
	}

	if e.tracker != nil {
		e.tracker.TrackDirective(success, duration.Seconds(), result.TokensIn, result.TokensOut, result.Cost)
	}
	e.log.DirectiveCompleted(d.Header.ID, success, duration.Seconds(), result.TokensIn, result.TokensOut, result.Cost)
}

// relatedTodos surfaces the bridge-known to-dos relevant to a directive,
// for the context block's "related external-todos" field (§4.3). With
// no bridge wired, this is always empty.
func (e *Engine) relatedTodos(d directive.Directive) []string {
	if e.br == nil || d.Header.ClaudeTodoID == "" {
		return nil
	}
	var related []string
	for _, t := range e.todos {
		if t.ID != d.Header.ClaudeTodoID {
			related = append(related, t.Content)
		}
	}
	return related
}
