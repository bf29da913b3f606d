// Package journal keeps an append-only record of every run: one JSON line
// per step or handler, tagged with the run ID so a whole run can be
// reconstructed later with `hostforge log`.
package journal

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hostforge/hostforge/internal/runner"
)

// Entry records one step's or handler's outcome within a run.
type Entry struct {
	Time    time.Time `json:"time"`
	RunID   string    `json:"run_id"`
	Command string    `json:"command"` // "apply" | "plan" | "status"
	Step    string    `json:"step"`
	Handler bool      `json:"handler,omitempty"`
	Outcome string    `json:"outcome"` // "changed" | "unchanged" | "failed" | "skipped"
	Error   string    `json:"error,omitempty"`
}

// Log appends e to the journal. Errors are swallowed so that journaling
// never halts a run.
func Log(e Entry) {
	if e.Time.IsZero() {
		e.Time = time.Now().UTC()
	}
	path, err := logPath()
	if err != nil {
		return
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return
	}
	defer f.Close()
	line, _ := json.Marshal(e)
	f.WriteString(string(line) + "\n")
}

// RecordRun journals every step and handler result of a finished run.
func RecordRun(command string, res *runner.RunResult) {
	for _, s := range res.Steps {
		Log(entryFor(command, res, s, false))
	}
	for _, h := range res.Handlers {
		Log(entryFor(command, res, h, true))
	}
}

func entryFor(command string, res *runner.RunResult, s runner.StepResult, handler bool) Entry {
	e := Entry{
		Time:    res.Finished.UTC(),
		RunID:   res.ID,
		Command: command,
		Step:    s.Name,
		Handler: handler,
		Outcome: string(s.Outcome),
	}
	if s.Err != nil {
		e.Error = s.Err.Error()
	}
	return e
}

// Read loads journal entries, optionally filtered by step name.
// It returns the last limit entries (all if limit <= 0).
func Read(stepFilter string, limit int) ([]Entry, error) {
	path, err := logPath()
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var entries []Entry
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var e Entry
		if err := json.Unmarshal(line, &e); err != nil {
			continue // skip malformed lines
		}
		if stepFilter != "" && e.Step != stepFilter {
			continue
		}
		entries = append(entries, e)
	}
	if err := scanner.Err(); err != nil {
		return nil, err
	}

	if limit > 0 && len(entries) > limit {
		entries = entries[len(entries)-limit:]
	}
	return entries, nil
}

// LogPath returns the journal file path.
func LogPath() string {
	p, _ := logPath()
	return p
}

// logDir is a variable so tests can redirect the journal.
var logDir = func() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	return filepath.Join(home, ".local", "share", "hostforge"), nil
}

func logPath() (string, error) {
	dir, err := logDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "journal.log"), nil
}
