package actions

import (
	"strings"
	"testing"
)

func TestInstallArgs(t *testing.T) {
	tests := []struct {
		manager string
		want    string
	}{
		{"apt", "apt-get install -y nginx"},
		{"apt-get", "apt-get install -y nginx"},
		{"dnf", "dnf install -y nginx"},
		{"yum", "yum install -y nginx"},
		{"pacman", "pacman -S --noconfirm nginx"},
		{"apk", "apk add nginx"},
		{"zypper", "zypper --non-interactive install nginx"},
		{"brew", "brew install nginx"},
	}
	for _, tt := range tests {
		t.Run(tt.manager, func(t *testing.T) {
			argv, err := installArgs(tt.manager, "nginx")
			if err != nil {
				t.Fatal(err)
			}
			if got := strings.Join(argv, " "); got != tt.want {
				t.Errorf("installArgs(%s) = %q, want %q", tt.manager, got, tt.want)
			}
		})
	}
}

func TestInstallArgsUnknown(t *testing.T) {
	if _, err := installArgs("winget", "nginx"); err == nil {
		t.Error("expected error for unknown manager")
	}
}

func TestQueryArgs(t *testing.T) {
	tests := []struct {
		manager string
		first   string
	}{
		{"apt", "dpkg-query"},
		{"dnf", "rpm"},
		{"yum", "rpm"},
		{"zypper", "rpm"},
		{"pacman", "pacman"},
		{"apk", "apk"},
		{"brew", "brew"},
	}
	for _, tt := range tests {
		argv, err := queryArgs(tt.manager, "nginx")
		if err != nil {
			t.Fatal(err)
		}
		if argv[0] != tt.first {
			t.Errorf("queryArgs(%s)[0] = %q, want %q", tt.manager, argv[0], tt.first)
		}
	}
	if _, err := queryArgs("scoop", "nginx"); err == nil {
		t.Error("expected error for unknown manager")
	}
}

func TestPackageDescribe(t *testing.T) {
	a := &PackageAction{Package: "nginx", Manager: "apt"}
	desc := a.Describe()
	if !strings.Contains(desc, "nginx") || !strings.Contains(desc, "apt") {
		t.Errorf("Describe() = %q", desc)
	}
}
