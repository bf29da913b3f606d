package runner

import (
	"fmt"
	"strings"
	"time"
)

// Outcome classifies how a single step or handler concluded.
type Outcome string

const (
	OutcomeUnchanged Outcome = "unchanged" // check was satisfied, apply skipped
	OutcomeChanged   Outcome = "changed"   // apply ran (or would run, in dry-run)
	OutcomeFailed    Outcome = "failed"    // check or apply returned an error
	OutcomeSkipped   Outcome = "skipped"   // filtered out by --only / --skip
)

// StepResult records one step's or handler's outcome within a run.
type StepResult struct {
	Name     string
	Outcome  Outcome
	Err      error
	Duration time.Duration
}

// RunResult is the full record of one run: every step in sequence order,
// then every drained handler in notification order.
type RunResult struct {
	ID       string // random per-run identifier, appears in the journal
	DryRun   bool
	Started  time.Time
	Finished time.Time
	Steps    []StepResult
	Handlers []StepResult
}

// Failed reports whether any step or handler failed. A run with a failed
// handler still drains the remaining handlers but exits non-zero.
func (r *RunResult) Failed() bool {
	for _, s := range r.Steps {
		if s.Outcome == OutcomeFailed {
			return true
		}
	}
	for _, h := range r.Handlers {
		if h.Outcome == OutcomeFailed {
			return true
		}
	}
	return false
}

// Summary returns a one-line tally, e.g. "3 changed, 5 unchanged, 1 skipped".
// Zero counts are omitted except unchanged, which always appears so an
// all-quiet run still says something.
func (r *RunResult) Summary() string {
	counts := map[Outcome]int{}
	for _, s := range r.Steps {
		counts[s.Outcome]++
	}
	for _, h := range r.Handlers {
		counts[h.Outcome]++
	}

	var parts []string
	add := func(o Outcome) {
		if n := counts[o]; n > 0 || o == OutcomeUnchanged {
			parts = append(parts, fmt.Sprintf("%d %s", n, o))
		}
	}
	add(OutcomeChanged)
	add(OutcomeUnchanged)
	add(OutcomeSkipped)
	add(OutcomeFailed)
	return strings.Join(parts, ", ")
}
