package actions

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
)

// FileAction ensures a file exists with exactly the declared content, mode,
// and ownership. Content is resolved before the action is built (literal,
// source file, or decrypted source), so the check is a pure comparison.
type FileAction struct {
	Path    string
	Content []byte
	Mode    string // Unix octal string, e.g. "0644"; empty leaves mode alone
	Owner   string
	Group   string
}

func (a *FileAction) Describe() string {
	return fmt.Sprintf("file %s (%d bytes%s)", a.Path, len(a.Content), modeSuffix(a.Mode))
}

func (a *FileAction) Check(ctx context.Context) (bool, error) {
	current, err := os.ReadFile(a.Path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read %s: %w", a.Path, err)
	}
	if !bytes.Equal(current, a.Content) {
		return false, nil
	}
	return metadataMatches(a.Path, a.Mode, a.Owner, a.Group)
}

func (a *FileAction) Apply(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	mode := os.FileMode(0o644)
	if a.Mode != "" {
		m, err := parseMode(a.Mode)
		if err != nil {
			return fmt.Errorf("invalid mode %q: %w", a.Mode, err)
		}
		mode = m
	}
	if err := os.WriteFile(a.Path, a.Content, mode); err != nil {
		return fmt.Errorf("write %s: %w", a.Path, err)
	}
	// WriteFile only applies mode on creation; enforce on existing files too.
	if err := os.Chmod(a.Path, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", a.Path, err)
	}
	return applyOwnership(a.Path, a.Owner, a.Group)
}

// DirectoryAction ensures a directory exists with the declared mode and
// ownership.
type DirectoryAction struct {
	Path  string
	Mode  string
	Owner string
	Group string
}

func (a *DirectoryAction) Describe() string {
	return fmt.Sprintf("directory %s%s", a.Path, modeSuffix(a.Mode))
}

func (a *DirectoryAction) Check(ctx context.Context) (bool, error) {
	info, err := os.Stat(a.Path)
	if os.IsNotExist(err) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", a.Path, err)
	}
	if !info.IsDir() {
		return false, nil
	}
	return metadataMatches(a.Path, a.Mode, a.Owner, a.Group)
}

func (a *DirectoryAction) Apply(ctx context.Context) error {
	mode := os.FileMode(0o755)
	if a.Mode != "" {
		m, err := parseMode(a.Mode)
		if err != nil {
			return fmt.Errorf("invalid mode %q: %w", a.Mode, err)
		}
		mode = m
	}
	if err := os.MkdirAll(a.Path, mode); err != nil {
		return fmt.Errorf("create %s: %w", a.Path, err)
	}
	if err := os.Chmod(a.Path, mode); err != nil {
		return fmt.Errorf("chmod %s: %w", a.Path, err)
	}
	return applyOwnership(a.Path, a.Owner, a.Group)
}

// SymlinkAction ensures a symbolic link at Path resolves to Target.
type SymlinkAction struct {
	Path   string
	Target string
}

func (a *SymlinkAction) Describe() string {
	return fmt.Sprintf("symlink %s -> %s", a.Path, a.Target)
}

func (a *SymlinkAction) Check(ctx context.Context) (bool, error) {
	current, err := os.Readlink(a.Path)
	if err != nil {
		return false, nil // missing or not a symlink
	}
	return current == a.Target, nil
}

func (a *SymlinkAction) Apply(ctx context.Context) error {
	if err := os.MkdirAll(filepath.Dir(a.Path), 0o755); err != nil {
		return fmt.Errorf("create parent directory: %w", err)
	}
	if _, err := os.Lstat(a.Path); err == nil {
		if err := os.Remove(a.Path); err != nil {
			return fmt.Errorf("remove existing path: %w", err)
		}
	}
	return os.Symlink(a.Target, a.Path)
}

// AbsentAction ensures a path does not exist.
type AbsentAction struct {
	Path string
}

func (a *AbsentAction) Describe() string {
	return fmt.Sprintf("path %s absent", a.Path)
}

func (a *AbsentAction) Check(ctx context.Context) (bool, error) {
	_, err := os.Lstat(a.Path)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("stat %s: %w", a.Path, err)
	}
	return false, nil
}

func (a *AbsentAction) Apply(ctx context.Context) error {
	return os.RemoveAll(a.Path)
}

// --- helpers -----------------------------------------------------------------

func parseMode(s string) (os.FileMode, error) {
	v, err := strconv.ParseUint(s, 8, 32)
	if err != nil {
		return 0, err
	}
	return os.FileMode(v), nil
}

func modeSuffix(mode string) string {
	if mode == "" {
		return ""
	}
	return ", mode " + mode
}

// metadataMatches reports whether path's mode and ownership match the
// declared values. Empty declarations match anything.
func metadataMatches(path, mode, owner, group string) (bool, error) {
	if mode != "" {
		want, err := parseMode(mode)
		if err != nil {
			return false, fmt.Errorf("invalid mode %q: %w", mode, err)
		}
		info, err := os.Stat(path)
		if err != nil {
			return false, err
		}
		if info.Mode().Perm() != want {
			return false, nil
		}
	}
	if owner == "" && group == "" {
		return true, nil
	}
	return ownershipMatches(path, owner, group)
}
