package runner

import "fmt"

// CheckError means a step could not determine the host's current state.
// It is fatal: the run cannot know whether an apply is needed.
type CheckError struct {
	Step string
	Err  error
}

func (e *CheckError) Error() string {
	return fmt.Sprintf("check %q: %v", e.Step, e.Err)
}

func (e *CheckError) Unwrap() error { return e.Err }

// ApplyError means a main-sequence apply failed. It is fatal: remaining
// steps do not run and no handlers fire. Effects of earlier steps stand;
// re-running the manifest after fixing the cause converges the host.
type ApplyError struct {
	Step string
	Err  error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf("apply %q: %v", e.Step, e.Err)
}

func (e *ApplyError) Unwrap() error { return e.Err }

// HandlerError means a notified handler failed. It is reported and makes
// the run exit non-zero, but does not stop the notification drain: the
// main sequence's effects stand and remaining handlers still run.
type HandlerError struct {
	Handler string
	Err     error
}

func (e *HandlerError) Error() string {
	return fmt.Sprintf("handler %q: %v", e.Handler, e.Err)
}

func (e *HandlerError) Unwrap() error { return e.Err }
