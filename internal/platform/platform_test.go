package platform

import (
	"os"
	"path/filepath"
	"runtime"
	"testing"
)

func TestCurrent(t *testing.T) {
	if got := Current(); got != runtime.GOOS {
		t.Errorf("Current() = %q, want %q", got, runtime.GOOS)
	}
}

func TestExpandPathTilde(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}
	got := ExpandPath("~/manifests")
	want := filepath.Join(home, "manifests")
	if got != want {
		t.Errorf("ExpandPath(~/manifests) = %q, want %q", got, want)
	}
}

func TestExpandPathTildeAlone(t *testing.T) {
	home, err := os.UserHomeDir()
	if err != nil {
		t.Skip("cannot determine home dir")
	}
	if got := ExpandPath("~"); got != home {
		t.Errorf("ExpandPath(~) = %q, want %q", got, home)
	}
}

func TestExpandPathEnvVar(t *testing.T) {
	t.Setenv("HOSTFORGE_TEST_DIR", "/srv/data")
	got := ExpandPath("$HOSTFORGE_TEST_DIR/prometheus")
	if got != "/srv/data/prometheus" {
		t.Errorf("ExpandPath() = %q", got)
	}
}

func TestExpandPathPlain(t *testing.T) {
	if got := ExpandPath("/etc/nginx/nginx.conf"); got != "/etc/nginx/nginx.conf" {
		t.Errorf("ExpandPath() = %q", got)
	}
}

func TestKnownManager(t *testing.T) {
	tests := []struct {
		name string
		want bool
	}{
		{"apt", true},
		{"apt-get", true},
		{"dnf", true},
		{"pacman", true},
		{"apk", true},
		{"brew", true},
		{"winget", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := KnownManager(tt.name); got != tt.want {
			t.Errorf("KnownManager(%q) = %v, want %v", tt.name, got, tt.want)
		}
	}
}
