package actions

import (
	"context"
	"strings"
	"testing"
)

func TestServiceDescribe(t *testing.T) {
	enabled := true
	tests := []struct {
		name   string
		action ServiceAction
		want   string
	}{
		{"started", ServiceAction{Name: "nginx", State: "started"}, "service nginx started"},
		{"reloaded", ServiceAction{Name: "nginx", State: "reloaded"}, "service nginx reloaded"},
		{"enabled", ServiceAction{Name: "prometheus", State: "started", Enabled: &enabled}, "service prometheus started enabled"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.action.Describe(); got != tt.want {
				t.Errorf("Describe() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestServiceImperativeStatesNeverSatisfied(t *testing.T) {
	for _, state := range []string{"restarted", "reloaded"} {
		a := &ServiceAction{Name: "nginx", State: state}
		ok, err := a.Check(context.Background())
		if err != nil {
			t.Fatal(err)
		}
		if ok {
			t.Errorf("state %q should never be pre-satisfied", state)
		}
	}
}

func TestServiceUnknownState(t *testing.T) {
	a := &ServiceAction{Name: "nginx", State: "paused"}
	if err := a.Apply(context.Background()); err == nil || !strings.Contains(err.Error(), "unknown service state") {
		t.Errorf("Apply() err = %v", err)
	}
}

func TestDaemonReload(t *testing.T) {
	a := &DaemonReloadAction{}
	ok, err := a.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("daemon-reload should never be pre-satisfied")
	}
	if got := a.Describe(); !strings.Contains(got, "daemon-reload") {
		t.Errorf("Describe() = %q", got)
	}
}
