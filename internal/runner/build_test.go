package runner

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/hostforge/hostforge/internal/actions"
	"github.com/hostforge/hostforge/internal/config"
)

func TestBuildActionTypes(t *testing.T) {
	dir := t.TempDir()
	os.WriteFile(filepath.Join(dir, "prometheus.yml"), []byte("scrape_configs: []\n"), 0o644)
	opts := BuildOptions{BaseDir: dir, Manager: "apt"}

	tests := []struct {
		name string
		step config.Step
		want any
	}{
		{"package", config.Step{Package: "nginx"}, &actions.PackageAction{}},
		{"file-source", config.Step{File: "/etc/prometheus/prometheus.yml", Source: "prometheus.yml"}, &actions.FileAction{}},
		{"file-content", config.Step{File: "/etc/motd", Content: "hi\n"}, &actions.FileAction{}},
		{"directory", config.Step{Directory: "/var/lib/prometheus"}, &actions.DirectoryAction{}},
		{"symlink", config.Step{Symlink: "/etc/nginx/sites-enabled/x", Target: "/etc/nginx/sites-available/x"}, &actions.SymlinkAction{}},
		{"absent", config.Step{Absent: "/etc/nginx/sites-enabled/default"}, &actions.AbsentAction{}},
		{"fetch", config.Step{Fetch: "https://example.com/a.tar.gz", Dest: "/opt", Unpack: true}, &actions.FetchAction{}},
		{"command", config.Step{Command: "nginx -t"}, &actions.CommandAction{}},
		{"service", config.Step{Service: "nginx", State: "started"}, &actions.ServiceAction{}},
		{"daemon-reload", config.Step{DaemonReload: true}, &actions.DaemonReloadAction{}},
		{"firewall", config.Step{Firewall: "allow", Port: "443/tcp"}, &actions.FirewallAction{}},
		{"certificate", config.Step{Certificate: "/etc/ssl/m.crt", CommonName: "m.internal"}, &actions.CertificateAction{}},
		{"user", config.Step{User: "prometheus", System: true}, &actions.UserAction{}},
		{"group", config.Step{Group: "prometheus", System: true}, &actions.GroupAction{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := buildAction(tt.step, opts)
			if err != nil {
				t.Fatal(err)
			}
			if wantT, gotT := typeName(tt.want), typeName(got); wantT != gotT {
				t.Errorf("built %s, want %s", gotT, wantT)
			}
		})
	}
}

func typeName(v any) string {
	switch v.(type) {
	case *actions.PackageAction:
		return "package"
	case *actions.FileAction:
		return "file"
	case *actions.DirectoryAction:
		return "directory"
	case *actions.SymlinkAction:
		return "symlink"
	case *actions.AbsentAction:
		return "absent"
	case *actions.FetchAction:
		return "fetch"
	case *actions.CommandAction:
		return "command"
	case *actions.ServiceAction:
		return "service"
	case *actions.DaemonReloadAction:
		return "daemon-reload"
	case *actions.FirewallAction:
		return "firewall"
	case *actions.CertificateAction:
		return "certificate"
	case *actions.UserAction:
		return "user"
	case *actions.GroupAction:
		return "group"
	}
	return "unknown"
}

func TestBuildActionErrors(t *testing.T) {
	opts := BuildOptions{BaseDir: t.TempDir()}
	tests := []struct {
		name string
		step config.Step
	}{
		{"package without manager", config.Step{Package: "nginx"}},
		{"symlink without target", config.Step{Symlink: "/etc/x"}},
		{"fetch without dest", config.Step{Fetch: "https://example.com/a"}},
		{"certificate without cn", config.Step{Certificate: "/etc/ssl/m.crt"}},
		{"file without content", config.Step{File: "/etc/x"}},
		{"file content and source", config.Step{File: "/etc/x", Content: "a", Source: "b"}},
		{"file missing source", config.Step{File: "/etc/x", Source: "nope.conf"}},
		{"encrypted without key", config.Step{File: "/etc/x", Source: "s.conf", Encrypted: true}},
		{"unknown manager", config.Step{Package: "nginx", Manager: "portage"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := buildAction(tt.step, opts); err == nil {
				t.Error("expected error")
			}
		})
	}
}

func TestCertificateKeyDefault(t *testing.T) {
	a, err := buildAction(config.Step{
		Certificate: "/etc/ssl/certs/monitoring.crt",
		CommonName:  "monitoring.internal",
	}, BuildOptions{})
	if err != nil {
		t.Fatal(err)
	}
	cert := a.(*actions.CertificateAction)
	if cert.KeyPath != "/etc/ssl/certs/monitoring.key" {
		t.Errorf("KeyPath = %q", cert.KeyPath)
	}
}

func TestBuildWiresHandlers(t *testing.T) {
	m := &config.Manifest{
		Steps: []config.Step{
			{Name: "motd", File: "/etc/motd", Content: "hi\n", Notify: []string{"rebuild"}},
		},
		Handlers: []config.Step{
			{Name: "rebuild", Command: "update-motd"},
		},
	}
	r, err := Build(m, BuildOptions{Manager: "apt"})
	if err != nil {
		t.Fatal(err)
	}
	if len(r.Tasks) != 1 || r.Tasks[0].Name != "motd" {
		t.Fatalf("tasks = %+v", r.Tasks)
	}
	if _, ok := r.Handlers["rebuild"]; !ok {
		t.Error("handler not registered")
	}
}
