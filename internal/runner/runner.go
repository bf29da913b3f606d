// Package runner executes an ordered sequence of idempotent state
// assertions against the local host, then drains the handlers those steps
// notified. Each handler runs at most once per run, in the order it was
// first notified, and only after the whole main sequence has succeeded.
package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/gobwas/glob"
	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/hostforge/hostforge/internal/actions"
	"github.com/hostforge/hostforge/internal/color"
)

// Task pairs a named action with the handlers it notifies on change.
type Task struct {
	Name   string
	Action actions.Action
	Notify []string
}

// Runner executes tasks in order and then the notified handlers.
type Runner struct {
	Tasks    []Task
	Handlers map[string]Task

	// DryRun executes checks but prints applies instead of running them.
	// Steps that would change still enqueue their notifications, so the
	// plan shows which handlers the run would trigger.
	DryRun bool

	// CheckOnly reports each step's current state without applying anything
	// and without enqueueing notifications (the status command).
	CheckOnly bool

	// Only and Skip filter steps by name. Filtered steps report skipped and
	// notify nothing. Handlers are never filtered.
	Only []glob.Glob
	Skip []glob.Glob

	Out io.Writer
}

// Execute runs the main sequence, then drains notifications. The returned
// error is non-nil only for fatal conditions (a check or apply failure in
// the main sequence); handler failures are recorded in the result and
// reported via RunResult.Failed.
func (r *Runner) Execute(ctx context.Context) (*RunResult, error) {
	res := &RunResult{
		ID:      uuid.NewString(),
		DryRun:  r.DryRun,
		Started: time.Now(),
	}
	queue := newNotifySet()

	log.Info().Str("run", res.ID).Int("steps", len(r.Tasks)).Msg("run started")

	for _, t := range r.Tasks {
		if !r.selected(t.Name) {
			res.Steps = append(res.Steps, StepResult{Name: t.Name, Outcome: OutcomeSkipped})
			fmt.Fprintf(r.Out, "  %s %s\n", color.Dim("skip     "), color.Dim(t.Name))
			continue
		}
		sr, fatal := r.runStep(ctx, t, queue)
		res.Steps = append(res.Steps, sr)
		if fatal != nil {
			res.Finished = time.Now()
			log.Error().Str("run", res.ID).Err(fatal).Msg("run aborted")
			return res, fatal
		}
	}

	if r.CheckOnly {
		res.Finished = time.Now()
		return res, nil
	}

	if queue.Len() > 0 {
		fmt.Fprintf(r.Out, "\n%s\n", color.Bold("Handlers:"))
	}
	// The queue can grow while draining: a handler whose apply changed state
	// notifies further handlers, which join at the tail in first-notified
	// order. Duplicates are suppressed by the set, so this terminates.
	for i := 0; i < queue.Len(); i++ {
		name := queue.At(i)
		h, ok := r.Handlers[name]
		if !ok {
			// Validate rejects unknown targets at load time; this guards
			// programmatic construction.
			err := &HandlerError{Handler: name, Err: fmt.Errorf("not declared")}
			res.Handlers = append(res.Handlers, StepResult{Name: name, Outcome: OutcomeFailed, Err: err})
			fmt.Fprintf(r.Out, "  %s %s: %v\n", color.BoldRed("failed   "), name, err.Err)
			continue
		}
		res.Handlers = append(res.Handlers, r.runHandler(ctx, h, queue))
	}

	res.Finished = time.Now()
	log.Info().
		Str("run", res.ID).
		Dur("elapsed", res.Finished.Sub(res.Started)).
		Str("summary", res.Summary()).
		Msg("run finished")
	return res, nil
}

// runStep converges one main-sequence task. Check and apply failures are
// both fatal here: a failed check means the host's state is unknowable, a
// failed apply means convergence stopped partway.
func (r *Runner) runStep(ctx context.Context, t Task, queue *notifySet) (StepResult, error) {
	start := time.Now()
	sr := StepResult{Name: t.Name}

	satisfied, err := t.Action.Check(ctx)
	if err != nil {
		sr.Outcome = OutcomeFailed
		sr.Err = &CheckError{Step: t.Name, Err: err}
		sr.Duration = time.Since(start)
		fmt.Fprintf(r.Out, "  %s %s: %v\n", color.BoldRed("failed   "), t.Name, err)
		return sr, sr.Err
	}

	if satisfied {
		sr.Outcome = OutcomeUnchanged
		sr.Duration = time.Since(start)
		fmt.Fprintf(r.Out, "  %s %s\n", color.Green("ok       "), t.Name)
		return sr, nil
	}

	if r.CheckOnly {
		sr.Outcome = OutcomeChanged
		sr.Duration = time.Since(start)
		fmt.Fprintf(r.Out, "  %s %s  %s\n", color.Yellow("pending  "), t.Name, color.Dim(t.Action.Describe()))
		return sr, nil
	}

	if r.DryRun {
		sr.Outcome = OutcomeChanged
		sr.Duration = time.Since(start)
		fmt.Fprintf(r.Out, "  %s %s  %s\n", color.Yellow("would    "), t.Name, color.Dim(t.Action.Describe()))
		r.enqueue(t, queue)
		return sr, nil
	}

	log.Debug().Str("step", t.Name).Str("action", t.Action.Describe()).Msg("applying")
	if err := t.Action.Apply(ctx); err != nil {
		sr.Outcome = OutcomeFailed
		sr.Err = &ApplyError{Step: t.Name, Err: err}
		sr.Duration = time.Since(start)
		fmt.Fprintf(r.Out, "  %s %s: %v\n", color.BoldRed("failed   "), t.Name, err)
		return sr, sr.Err
	}

	sr.Outcome = OutcomeChanged
	sr.Duration = time.Since(start)
	fmt.Fprintf(r.Out, "  %s %s  %s\n", color.BoldYellow("changed  "), t.Name, color.Dim(t.Action.Describe()))
	r.enqueue(t, queue)
	return sr, nil
}

// runHandler converges one notified handler. Failures are recorded, not
// fatal: the drain continues so an independent handler still runs even when
// an earlier one broke. Chained notifications fire only when this handler's
// apply actually changed state.
func (r *Runner) runHandler(ctx context.Context, h Task, queue *notifySet) StepResult {
	start := time.Now()
	sr := StepResult{Name: h.Name}

	satisfied, err := h.Action.Check(ctx)
	if err != nil {
		sr.Outcome = OutcomeFailed
		sr.Err = &HandlerError{Handler: h.Name, Err: err}
		sr.Duration = time.Since(start)
		fmt.Fprintf(r.Out, "  %s %s: %v\n", color.BoldRed("failed   "), h.Name, err)
		return sr
	}

	if satisfied {
		sr.Outcome = OutcomeUnchanged
		sr.Duration = time.Since(start)
		fmt.Fprintf(r.Out, "  %s %s\n", color.Green("ok       "), h.Name)
		return sr
	}

	if r.DryRun {
		sr.Outcome = OutcomeChanged
		sr.Duration = time.Since(start)
		fmt.Fprintf(r.Out, "  %s %s  %s\n", color.Yellow("would    "), h.Name, color.Dim(h.Action.Describe()))
		r.enqueue(h, queue)
		return sr
	}

	log.Debug().Str("handler", h.Name).Str("action", h.Action.Describe()).Msg("applying")
	if err := h.Action.Apply(ctx); err != nil {
		sr.Outcome = OutcomeFailed
		sr.Err = &HandlerError{Handler: h.Name, Err: err}
		sr.Duration = time.Since(start)
		fmt.Fprintf(r.Out, "  %s %s: %v\n", color.BoldRed("failed   "), h.Name, err)
		return sr
	}

	sr.Outcome = OutcomeChanged
	sr.Duration = time.Since(start)
	fmt.Fprintf(r.Out, "  %s %s  %s\n", color.BoldYellow("changed  "), h.Name, color.Dim(h.Action.Describe()))
	r.enqueue(h, queue)
	return sr
}

func (r *Runner) enqueue(t Task, queue *notifySet) {
	for _, name := range t.Notify {
		if queue.Add(name) {
			log.Debug().Str("step", t.Name).Str("handler", name).Msg("notified")
		}
	}
}

func (r *Runner) selected(name string) bool {
	if len(r.Only) > 0 {
		matched := false
		for _, g := range r.Only {
			if g.Match(name) {
				matched = true
				break
			}
		}
		if !matched {
			return false
		}
	}
	for _, g := range r.Skip {
		if g.Match(name) {
			return false
		}
	}
	return true
}
