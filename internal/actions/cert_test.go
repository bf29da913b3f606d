package actions

import (
	"context"
	"os"
	"path/filepath"
	"testing"
)

func TestCertificateActionConverges(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := &CertificateAction{
		CertPath: filepath.Join(dir, "ssl", "monitoring.crt"),
		KeyPath:  filepath.Join(dir, "ssl", "private", "monitoring.key"),
		CN:       "monitoring.internal",
		AltNames: []string{"monitoring.internal"},
		Days:     90,
	}

	ok, err := a.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Fatal("missing certificate should not be satisfied")
	}

	if err := a.Apply(ctx); err != nil {
		t.Fatal(err)
	}

	ok, err = a.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if !ok {
		t.Error("fresh certificate should be satisfied")
	}

	info, err := os.Stat(a.KeyPath)
	if err != nil {
		t.Fatal(err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Errorf("key mode = %o, want 0600", info.Mode().Perm())
	}
}

func TestCertificateActionWrongCN(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	a := &CertificateAction{
		CertPath: filepath.Join(dir, "m.crt"),
		KeyPath:  filepath.Join(dir, "m.key"),
		CN:       "old.internal",
	}
	if err := a.Apply(ctx); err != nil {
		t.Fatal(err)
	}

	// Same files, new declared CN: must converge again.
	b := &CertificateAction{CertPath: a.CertPath, KeyPath: a.KeyPath, CN: "new.internal"}
	ok, err := b.Check(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("certificate with wrong CN should not be satisfied")
	}
}

func TestCertificateActionGarbageCert(t *testing.T) {
	dir := t.TempDir()
	certPath := filepath.Join(dir, "m.crt")
	keyPath := filepath.Join(dir, "m.key")
	os.WriteFile(certPath, []byte("garbage"), 0o644)
	os.WriteFile(keyPath, []byte("garbage"), 0o600)

	a := &CertificateAction{CertPath: certPath, KeyPath: keyPath, CN: "monitoring.internal"}
	ok, err := a.Check(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	if ok {
		t.Error("unparseable certificate should converge, not satisfy")
	}
}
