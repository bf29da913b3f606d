package actions

import (
	"context"
	"fmt"
	"os/user"
	"strings"

	"github.com/hostforge/hostforge/internal/shell"
)

// UserAction ensures a user account exists. The check uses the local user
// database; attributes of an existing user are not reconciled.
type UserAction struct {
	Name   string
	System bool
	Home   string
	Shell  string
	Groups []string // supplementary groups
}

func (a *UserAction) Describe() string {
	kind := "user"
	if a.System {
		kind = "system user"
	}
	return fmt.Sprintf("%s %q present", kind, a.Name)
}

func (a *UserAction) Check(ctx context.Context) (bool, error) {
	_, err := user.Lookup(a.Name)
	if err == nil {
		return true, nil
	}
	if _, ok := err.(user.UnknownUserError); ok {
		return false, nil
	}
	return false, fmt.Errorf("lookup user %q: %w", a.Name, err)
}

func (a *UserAction) Apply(ctx context.Context) error {
	argv := []string{"useradd"}
	if a.System {
		argv = append(argv, "--system")
	}
	if a.Home != "" {
		argv = append(argv, "--create-home", "--home-dir", a.Home)
	} else {
		argv = append(argv, "--no-create-home")
	}
	if a.Shell != "" {
		argv = append(argv, "--shell", a.Shell)
	}
	if len(a.Groups) > 0 {
		argv = append(argv, "--groups", strings.Join(a.Groups, ","))
	}
	argv = append(argv, a.Name)
	return shell.Exec(ctx, argv...)
}

// GroupAction ensures a group exists.
type GroupAction struct {
	Name   string
	System bool
}

func (a *GroupAction) Describe() string {
	kind := "group"
	if a.System {
		kind = "system group"
	}
	return fmt.Sprintf("%s %q present", kind, a.Name)
}

func (a *GroupAction) Check(ctx context.Context) (bool, error) {
	_, err := user.LookupGroup(a.Name)
	if err == nil {
		return true, nil
	}
	if _, ok := err.(user.UnknownGroupError); ok {
		return false, nil
	}
	return false, fmt.Errorf("lookup group %q: %w", a.Name, err)
}

func (a *GroupAction) Apply(ctx context.Context) error {
	argv := []string{"groupadd"}
	if a.System {
		argv = append(argv, "--system")
	}
	argv = append(argv, a.Name)
	return shell.Exec(ctx, argv...)
}
