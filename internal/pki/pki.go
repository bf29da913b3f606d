// Package pki generates the self-signed TLS material that the certificate
// action writes to the host.
package pki

import (
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"time"
)

// Request describes the certificate to generate.
type Request struct {
	CommonName string
	DNSNames   []string
	IPs        []string
	Validity   time.Duration
	Bits       int // RSA key size; defaults to 2048
}

// SelfSigned generates a self-signed certificate and returns PEM-encoded
// certificate and private key.
func SelfSigned(req Request) (certPEM, keyPEM []byte, err error) {
	if req.CommonName == "" {
		return nil, nil, errors.New("pki: common name required")
	}
	bits := req.Bits
	if bits == 0 {
		bits = 2048
	}
	validity := req.Validity
	if validity == 0 {
		validity = 365 * 24 * time.Hour
	}

	key, err := rsa.GenerateKey(rand.Reader, bits)
	if err != nil {
		return nil, nil, fmt.Errorf("generate key: %w", err)
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, fmt.Errorf("generate serial: %w", err)
	}

	var ips []net.IP
	for _, raw := range req.IPs {
		if ip := net.ParseIP(raw); ip != nil {
			ips = append(ips, ip)
		}
	}

	tmpl := &x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: req.CommonName},
		NotBefore:    time.Now().Add(-5 * time.Minute),
		NotAfter:     time.Now().Add(validity),
		KeyUsage:     x509.KeyUsageDigitalSignature | x509.KeyUsageKeyEncipherment,
		ExtKeyUsage:  []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		DNSNames:     req.DNSNames,
		IPAddresses:  ips,
	}

	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		return nil, nil, fmt.Errorf("create certificate: %w", err)
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "RSA PRIVATE KEY", Bytes: x509.MarshalPKCS1PrivateKey(key)})
	return certPEM, keyPEM, nil
}

// Load parses a PEM-encoded certificate from path.
func Load(path string) (*x509.Certificate, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(data)
	if block == nil || block.Type != "CERTIFICATE" {
		return nil, errors.New("pki: no certificate PEM block found")
	}
	return x509.ParseCertificate(block.Bytes)
}

// Valid reports whether cert matches commonName and remains valid for at
// least minRemaining from now.
func Valid(cert *x509.Certificate, commonName string, minRemaining time.Duration) bool {
	if cert.Subject.CommonName != commonName {
		return false
	}
	now := time.Now()
	if now.Before(cert.NotBefore) {
		return false
	}
	return now.Add(minRemaining).Before(cert.NotAfter)
}
