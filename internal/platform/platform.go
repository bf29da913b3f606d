// Package platform answers questions about the host hostforge is converging:
// path expansion, OS identification, and package manager detection.
package platform

import (
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
)

// Current returns the runtime.GOOS value ("linux", "darwin", …).
func Current() string {
	return runtime.GOOS
}

// ExpandPath expands a leading "~/" and environment variables in path.
func ExpandPath(path string) string {
	if path == "~" {
		if home, err := os.UserHomeDir(); err == nil {
			return home
		}
	}
	if strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[2:])
		}
	}
	return os.ExpandEnv(path)
}

// managers lists known package managers in detection preference order.
// The first one whose binary is on PATH wins.
var managers = []string{"apt-get", "dnf", "yum", "pacman", "apk", "zypper", "brew"}

// DetectPackageManager returns the name of the first available package
// manager on this host, or "" when none is found.
func DetectPackageManager() string {
	for _, m := range managers {
		if _, err := exec.LookPath(m); err == nil {
			if m == "apt-get" {
				return "apt"
			}
			return m
		}
	}
	return ""
}

// KnownManager reports whether name is a package manager hostforge can drive.
func KnownManager(name string) bool {
	switch name {
	case "apt", "apt-get", "dnf", "yum", "pacman", "apk", "zypper", "brew":
		return true
	}
	return false
}
