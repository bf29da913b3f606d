package actions

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/hostforge/hostforge/internal/pki"
)

// renewWindow is how much validity must remain before a certificate is
// considered satisfied; anything expiring sooner is regenerated.
const renewWindow = 30 * 24 * time.Hour

// CertificateAction ensures a self-signed TLS certificate and key exist at
// the declared paths. The check verifies the certificate parses, carries the
// declared common name, and will not expire within the renew window.
type CertificateAction struct {
	CertPath string
	KeyPath  string
	CN       string
	AltNames []string
	Days     int
	Owner    string
	Group    string
}

func (a *CertificateAction) Describe() string {
	return fmt.Sprintf("self-signed certificate for %q at %s", a.CN, a.CertPath)
}

func (a *CertificateAction) Check(ctx context.Context) (bool, error) {
	if _, err := os.Stat(a.KeyPath); err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("stat %s: %w", a.KeyPath, err)
	}
	cert, err := pki.Load(a.CertPath)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		// An unparseable certificate is a state to converge, not a failure.
		return false, nil
	}
	return pki.Valid(cert, a.CN, renewWindow), nil
}

func (a *CertificateAction) Apply(ctx context.Context) error {
	days := a.Days
	if days == 0 {
		days = 365
	}
	certPEM, keyPEM, err := pki.SelfSigned(pki.Request{
		CommonName: a.CN,
		DNSNames:   a.AltNames,
		Validity:   time.Duration(days) * 24 * time.Hour,
	})
	if err != nil {
		return err
	}

	for _, dir := range []string{filepath.Dir(a.CertPath), filepath.Dir(a.KeyPath)} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("create directory %s: %w", dir, err)
		}
	}
	if err := os.WriteFile(a.KeyPath, keyPEM, 0o600); err != nil {
		return fmt.Errorf("write key: %w", err)
	}
	if err := os.WriteFile(a.CertPath, certPEM, 0o644); err != nil {
		return fmt.Errorf("write certificate: %w", err)
	}
	for _, p := range []string{a.CertPath, a.KeyPath} {
		if err := applyOwnership(p, a.Owner, a.Group); err != nil {
			return err
		}
	}
	return nil
}
