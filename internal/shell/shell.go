// Package shell executes external commands for action checks, applies, and
// user-supplied idempotency guards (creates / unless).
package shell

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/rs/zerolog/log"
)

// Run executes command via "sh -c" and returns an error on non-zero exit.
// Stdout and stderr are streamed line by line into the structured log.
func Run(ctx context.Context, command string) error {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	writer := LineWriter{Source: command}
	cmd.Stdout = writer
	cmd.Stderr = writer
	logCommand(cmd)
	return cmd.Run()
}

// Eval executes command and returns true when it exits 0 (success).
// A non-zero exit is not treated as a Go error; only execution failures are.
func Eval(ctx context.Context, command string) (exitsZero bool, err error) {
	cmd := exec.CommandContext(ctx, "sh", "-c", command)
	runErr := cmd.Run()
	if runErr == nil {
		return true, nil
	}
	if _, ok := runErr.(*exec.ExitError); ok {
		return false, nil // non-zero exit is expected and not an error
	}
	return false, runErr // real execution failure (binary not found, etc.)
}

// Exec runs argv directly (no shell) and returns an error on non-zero exit.
func Exec(ctx context.Context, argv ...string) error {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	writer := LineWriter{Source: argv[0]}
	cmd.Stdout = writer
	cmd.Stderr = writer
	logCommand(cmd)
	return cmd.Run()
}

// Output runs argv directly and returns its combined output.
// Non-zero exits are reported through err with the output still returned,
// so callers parsing state-query commands can distinguish "absent" from
// "query failed".
func Output(ctx context.Context, argv ...string) (string, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	var buf bytes.Buffer
	cmd.Stdout = &buf
	cmd.Stderr = &buf
	err := cmd.Run()
	return buf.String(), err
}

// Succeeds runs argv directly and reports whether it exited 0.
// Used for state queries like `systemctl is-active`.
func Succeeds(ctx context.Context, argv ...string) (bool, error) {
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	runErr := cmd.Run()
	if runErr == nil {
		return true, nil
	}
	if _, ok := runErr.(*exec.ExitError); ok {
		return false, nil
	}
	return false, runErr
}

// LineWriter forwards process output into the structured log one line at a
// time, tagged with the command that produced it.
type LineWriter struct {
	Source string
}

func (w LineWriter) Write(p []byte) (int, error) {
	msg := strings.TrimSuffix(string(p), "\n")
	for _, line := range strings.Split(msg, "\n") {
		log.Debug().Str("command", w.Source).Msg(line)
	}
	return len(p), nil
}

func logCommand(cmd *exec.Cmd) {
	log.Debug().
		Strs("argv", cmd.Args).
		Msg("running command")
}
