package runner

import "testing"

func TestNotifySetOrderAndDedup(t *testing.T) {
	s := newNotifySet()

	if !s.Add("restart-prometheus") {
		t.Error("first add should report newly added")
	}
	if !s.Add("reload-nginx") {
		t.Error("first add should report newly added")
	}
	if s.Add("restart-prometheus") {
		t.Error("duplicate add should report already present")
	}
	s.Add("daemon-reload")
	s.Add("reload-nginx")

	want := []string{"restart-prometheus", "reload-nginx", "daemon-reload"}
	if s.Len() != len(want) {
		t.Fatalf("Len() = %d, want %d", s.Len(), len(want))
	}
	for i, name := range want {
		if got := s.At(i); got != name {
			t.Errorf("At(%d) = %q, want %q", i, got, name)
		}
	}
}

func TestNotifySetEmpty(t *testing.T) {
	s := newNotifySet()
	if s.Len() != 0 {
		t.Errorf("Len() = %d, want 0", s.Len())
	}
}
