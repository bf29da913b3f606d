package actions

import (
	"context"
	"fmt"
	"strings"

	"github.com/hostforge/hostforge/internal/shell"
)

// FirewallAction asserts ufw state: a port allowed through, or the firewall
// enabled. Checks parse `ufw status`, which is read-only.
type FirewallAction struct {
	Rule string // "allow" | "enable"
	Port string // "9090/tcp", "443", or an application profile like "Nginx Full"
}

func (a *FirewallAction) Describe() string {
	if a.Rule == "enable" {
		return "firewall enabled"
	}
	return fmt.Sprintf("firewall allows %s", a.Port)
}

func (a *FirewallAction) Check(ctx context.Context) (bool, error) {
	out, err := shell.Output(ctx, "ufw", "status")
	if err != nil {
		return false, fmt.Errorf("query ufw: %w", err)
	}
	switch a.Rule {
	case "enable":
		return strings.Contains(out, "Status: active"), nil
	case "allow":
		return ruleAllowed(out, a.Port), nil
	default:
		return false, fmt.Errorf("unknown firewall rule %q", a.Rule)
	}
}

func (a *FirewallAction) Apply(ctx context.Context) error {
	switch a.Rule {
	case "enable":
		return shell.Exec(ctx, "ufw", "--force", "enable")
	case "allow":
		return shell.Exec(ctx, "ufw", "allow", a.Port)
	default:
		return fmt.Errorf("unknown firewall rule %q", a.Rule)
	}
}

// ruleAllowed reports whether the `ufw status` output contains an ALLOW line
// for the given port spec.
func ruleAllowed(status, port string) bool {
	for _, line := range strings.Split(status, "\n") {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			continue
		}
		// Lines look like "9090/tcp  ALLOW  Anywhere" or
		// "Nginx Full  ALLOW  Anywhere"; the rule name may contain spaces.
		allowIdx := -1
		for i, f := range fields {
			if f == "ALLOW" {
				allowIdx = i
				break
			}
		}
		if allowIdx < 1 {
			continue
		}
		if strings.Join(fields[:allowIdx], " ") == port {
			return true
		}
	}
	return false
}
