package actions

import (
	"context"
	"fmt"
	"os"

	"github.com/hostforge/hostforge/internal/shell"
)

// CommandAction runs a shell command. Idempotency comes from the optional
// guards: Creates (skip when the path exists) and Unless (skip when the
// command exits 0). With neither guard the command runs on every invocation.
type CommandAction struct {
	Command string
	Creates string
	Unless  string
}

func (a *CommandAction) Describe() string {
	guard := ""
	if a.Creates != "" {
		guard = fmt.Sprintf(" (creates %s)", a.Creates)
	} else if a.Unless != "" {
		guard = fmt.Sprintf(" (unless %q)", a.Unless)
	}
	return fmt.Sprintf("run %q%s", a.Command, guard)
}

func (a *CommandAction) Check(ctx context.Context) (bool, error) {
	if a.Creates != "" {
		_, err := os.Stat(a.Creates)
		if err == nil {
			return true, nil
		}
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", a.Creates, err)
	}
	if a.Unless != "" {
		ok, err := shell.Eval(ctx, a.Unless)
		if err != nil {
			return false, fmt.Errorf("evaluate unless guard: %w", err)
		}
		return ok, nil
	}
	return false, nil
}

func (a *CommandAction) Apply(ctx context.Context) error {
	return shell.Run(ctx, a.Command)
}
