package actions

import (
	"context"
	"fmt"

	"github.com/hostforge/hostforge/internal/shell"
)

// ServiceAction drives a systemd unit. Declarative states (started,
// stopped) have real checks; imperative states (restarted, reloaded) always
// report unsatisfied, which is what makes them useful as handlers.
type ServiceAction struct {
	Name    string
	State   string // "started" | "stopped" | "restarted" | "reloaded" | ""
	Enabled *bool  // nil leaves enablement alone
}

func (a *ServiceAction) Describe() string {
	desc := fmt.Sprintf("service %s", a.Name)
	if a.State != "" {
		desc += " " + a.State
	}
	if a.Enabled != nil {
		if *a.Enabled {
			desc += " enabled"
		} else {
			desc += " disabled"
		}
	}
	return desc
}

func (a *ServiceAction) Check(ctx context.Context) (bool, error) {
	switch a.State {
	case "restarted", "reloaded":
		return false, nil // imperative, apply always runs
	case "started", "":
		active, err := shell.Succeeds(ctx, "systemctl", "is-active", "--quiet", a.Name)
		if err != nil {
			return false, fmt.Errorf("query service %s: %w", a.Name, err)
		}
		if a.State == "started" || a.State == "" {
			if !active {
				return false, nil
			}
		}
	case "stopped":
		active, err := shell.Succeeds(ctx, "systemctl", "is-active", "--quiet", a.Name)
		if err != nil {
			return false, fmt.Errorf("query service %s: %w", a.Name, err)
		}
		if active {
			return false, nil
		}
	default:
		return false, fmt.Errorf("unknown service state %q", a.State)
	}

	if a.Enabled != nil {
		enabled, err := shell.Succeeds(ctx, "systemctl", "is-enabled", "--quiet", a.Name)
		if err != nil {
			return false, fmt.Errorf("query service %s: %w", a.Name, err)
		}
		if enabled != *a.Enabled {
			return false, nil
		}
	}
	return true, nil
}

func (a *ServiceAction) Apply(ctx context.Context) error {
	if a.Enabled != nil {
		verb := "enable"
		if !*a.Enabled {
			verb = "disable"
		}
		if err := shell.Exec(ctx, "systemctl", verb, a.Name); err != nil {
			return fmt.Errorf("%s %s: %w", verb, a.Name, err)
		}
	}

	verb := ""
	switch a.State {
	case "started", "":
		verb = "start"
	case "stopped":
		verb = "stop"
	case "restarted":
		verb = "restart"
	case "reloaded":
		verb = "reload"
	default:
		return fmt.Errorf("unknown service state %q", a.State)
	}
	if err := shell.Exec(ctx, "systemctl", verb, a.Name); err != nil {
		return fmt.Errorf("%s %s: %w", verb, a.Name, err)
	}
	return nil
}

// DaemonReloadAction runs `systemctl daemon-reload`. It is imperative and
// typically declared as a handler notified by unit-file steps.
type DaemonReloadAction struct{}

func (a *DaemonReloadAction) Describe() string {
	return "systemd daemon-reload"
}

func (a *DaemonReloadAction) Check(ctx context.Context) (bool, error) {
	return false, nil
}

func (a *DaemonReloadAction) Apply(ctx context.Context) error {
	return shell.Exec(ctx, "systemctl", "daemon-reload")
}
