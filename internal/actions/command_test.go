package actions

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestCommandCreatesGuard(t *testing.T) {
	ctx := context.Background()
	marker := filepath.Join(t.TempDir(), "dhparam.pem")

	a := &CommandAction{Command: "touch " + marker, Creates: marker}
	ok, err := a.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("missing marker should not be satisfied")
	}

	if err := a.Apply(ctx); err != nil {
		t.Fatal(err)
	}
	if _, err := os.Stat(marker); err != nil {
		t.Fatal("apply should have created the marker")
	}

	ok, err = a.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("existing marker should satisfy the guard")
	}
}

func TestCommandUnlessGuard(t *testing.T) {
	ctx := context.Background()

	a := &CommandAction{Command: "echo run", Unless: "true"}
	ok, err := a.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("unless exiting 0 should satisfy")
	}

	b := &CommandAction{Command: "echo run", Unless: "false"}
	ok, err = b.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unless exiting non-zero should not satisfy")
	}
}

func TestCommandNoGuard(t *testing.T) {
	a := &CommandAction{Command: "true"}
	ok, err := a.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unguarded command should always run")
	}
}

func TestCommandApplyFailure(t *testing.T) {
	a := &CommandAction{Command: "false"}
	if err := a.Apply(context.Background()); err == nil {
		t.Error("expected error for failing command")
	}
}

func TestCommandDescribe(t *testing.T) {
	a := &CommandAction{Command: "nginx -t", Creates: "/tmp/x"}
	if got := a.Describe(); !strings.Contains(got, "creates") {
		t.Errorf("Describe() = %q", got)
	}
	b := &CommandAction{Command: "nginx -t", Unless: "test -f /tmp/x"}
	if got := b.Describe(); !strings.Contains(got, "unless") {
		t.Errorf("Describe() = %q", got)
	}
}
