// Package actions implements the idempotent state assertions a manifest
// step can declare: package present, file content, service running, and so
// on. Each action is a check/apply pair over the host's OS state.
package actions

import "context"

// Action asserts a single piece of host state.
//
// Check reports whether the desired state is already in place. It must be
// side-effect free; a check that cannot determine the current state returns
// an error, which the runner treats as fatal. Actions with no cheap way to
// inspect state (an unguarded command, a service restart) report false so
// that apply always runs.
//
// Apply mutates the host to match the declaration. Applies are written to be
// safe to re-run: a failed run is recovered by fixing the cause and running
// the whole manifest again.
type Action interface {
	// Describe returns a human-readable summary of the declared state.
	Describe() string
	// Check reports whether the desired state already holds.
	Check(ctx context.Context) (bool, error)
	// Apply mutates the host to match the desired state.
	Apply(ctx context.Context) error
}
