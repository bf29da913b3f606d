package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/hostforge/hostforge/internal/shell"
)

// PackageAction ensures a package is installed via the host's package
// manager. The check queries the manager's database and is side-effect free.
type PackageAction struct {
	Package string
	Manager string // e.g. "apt", "dnf", "pacman"
}

func (a *PackageAction) Describe() string {
	return fmt.Sprintf("package %q present via %s", a.Package, a.Manager)
}

func (a *PackageAction) Check(ctx context.Context) (bool, error) {
	argv, err := queryArgs(a.Manager, a.Package)
	if err != nil {
		return false, err
	}
	out, err := shell.Output(ctx, argv...)
	if err != nil {
		// Most managers exit non-zero for "not installed"; treat any query
		// failure as not installed and let apply surface real problems.
		return false, nil
	}
	if a.Manager == "apt" || a.Manager == "apt-get" {
		return strings.Contains(out, "install ok installed"), nil
	}
	return true, nil
}

func (a *PackageAction) Apply(ctx context.Context) error {
	argv, err := installArgs(a.Manager, a.Package)
	if err != nil {
		return err
	}
	return shell.Exec(ctx, argv...)
}

// installArgs returns the command + arguments needed to install pkg with the
// given manager.
func installArgs(manager, pkg string) ([]string, error) {
	switch manager {
	case "apt", "apt-get":
		return []string{"apt-get", "install", "-y", pkg}, nil
	case "dnf":
		return []string{"dnf", "install", "-y", pkg}, nil
	case "yum":
		return []string{"yum", "install", "-y", pkg}, nil
	case "pacman":
		return []string{"pacman", "-S", "--noconfirm", pkg}, nil
	case "apk":
		return []string{"apk", "add", pkg}, nil
	case "zypper":
		return []string{"zypper", "--non-interactive", "install", pkg}, nil
	case "brew":
		return []string{"brew", "install", pkg}, nil
	default:
		return nil, fmt.Errorf("unknown package manager: %q", manager)
	}
}

// queryArgs returns the command + arguments that report whether pkg is
// installed. The command must be read-only.
func queryArgs(manager, pkg string) ([]string, error) {
	switch manager {
	case "apt", "apt-get":
		return []string{"dpkg-query", "-W", "-f=${Status}", pkg}, nil
	case "dnf", "yum", "zypper":
		return []string{"rpm", "-q", pkg}, nil
	case "pacman":
		return []string{"pacman", "-Qi", pkg}, nil
	case "apk":
		return []string{"apk", "info", "-e", pkg}, nil
	case "brew":
		return []string{"brew", "list", pkg}, nil
	default:
		return nil, fmt.Errorf("unknown package manager: %q", manager)
	}
}
