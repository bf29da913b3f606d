// Package facts gathers basic information about the host, exposed to
// manifest templates as {{ .facts.xxx }}.
package facts

import (
	"os"
	"runtime"

	"github.com/hostforge/hostforge/internal/platform"
)

// Facts describes the host a run converges.
type Facts struct {
	Hostname       string `yaml:"hostname"`
	OS             string `yaml:"os"`
	Arch           string `yaml:"arch"`
	PackageManager string `yaml:"package_manager"`
}

// Gather collects facts about the current host. It never fails; fields that
// cannot be determined are left empty.
func Gather() Facts {
	hostname, _ := os.Hostname()
	return Facts{
		Hostname:       hostname,
		OS:             platform.Current(),
		Arch:           runtime.GOARCH,
		PackageManager: platform.DetectPackageManager(),
	}
}

// Map returns the facts as a template data map.
func (f Facts) Map() map[string]any {
	return map[string]any{
		"hostname":        f.Hostname,
		"os":              f.OS,
		"arch":            f.Arch,
		"package_manager": f.PackageManager,
	}
}
