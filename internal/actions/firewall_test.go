package actions

import (
	"context"
	"testing"
)

const ufwStatusActive = `Status: active

To                         Action      From
--                         ------      ----
22/tcp                     ALLOW       Anywhere
9090/tcp                   ALLOW       Anywhere
Nginx Full                 ALLOW       Anywhere
22/tcp (v6)                ALLOW       Anywhere (v6)
`

func TestRuleAllowed(t *testing.T) {
	tests := []struct {
		port string
		want bool
	}{
		{"22/tcp", true},
		{"9090/tcp", true},
		{"Nginx Full", true},
		{"443/tcp", false},
		{"9090", false},
	}
	for _, tt := range tests {
		t.Run(tt.port, func(t *testing.T) {
			if got := ruleAllowed(ufwStatusActive, tt.port); got != tt.want {
				t.Errorf("ruleAllowed(%q) = %v, want %v", tt.port, got, tt.want)
			}
		})
	}
}

func TestRuleAllowedInactive(t *testing.T) {
	if ruleAllowed("Status: inactive\n", "22/tcp") {
		t.Error("inactive status should have no allowed rules")
	}
}

func TestFirewallDescribe(t *testing.T) {
	a := &FirewallAction{Rule: "allow", Port: "443/tcp"}
	if got := a.Describe(); got != "firewall allows 443/tcp" {
		t.Errorf("Describe() = %q", got)
	}
	b := &FirewallAction{Rule: "enable"}
	if got := b.Describe(); got != "firewall enabled" {
		t.Errorf("Describe() = %q", got)
	}
}

func TestFirewallUnknownRule(t *testing.T) {
	a := &FirewallAction{Rule: "deny"}
	if err := a.Apply(context.Background()); err == nil {
		t.Error("expected error for unknown rule")
	}
}
