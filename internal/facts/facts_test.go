package facts

import (
	"runtime"
	"testing"
)

func TestGather(t *testing.T) {
	f := Gather()
	if f.OS != runtime.GOOS {
		t.Errorf("OS = %q, want %q", f.OS, runtime.GOOS)
	}
	if f.Arch != runtime.GOARCH {
		t.Errorf("Arch = %q, want %q", f.Arch, runtime.GOARCH)
	}
	if f.Hostname == "" {
		t.Error("expected non-empty hostname")
	}
}

func TestMap(t *testing.T) {
	f := Facts{Hostname: "web1", OS: "linux", Arch: "amd64", PackageManager: "apt"}
	m := f.Map()
	if m["hostname"] != "web1" {
		t.Errorf("hostname = %v", m["hostname"])
	}
	if m["os"] != "linux" {
		t.Errorf("os = %v", m["os"])
	}
	if m["package_manager"] != "apt" {
		t.Errorf("package_manager = %v", m["package_manager"])
	}
}
