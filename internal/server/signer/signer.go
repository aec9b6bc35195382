// Package signer binds document fingerprints to time with the server's RSA
// key. The payload format and offline verification live in stampx.
package signer

import (
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/stampx"
)

// Signer signs with the private key at keyPath and verifies with the
// certificate loaded at construction.
type Signer struct {
	keyPath string
	cert    *x509.Certificate
	certPEM []byte
}

// New loads the certificate and checks that the private key is readable and
// belongs to it. Any problem is reported as common.ErrKeyMaterialUnavailable.
func New(keyPath, certPath string) (*Signer, error) {
	cert, certPEM, err := LoadCertificate(certPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyMaterialUnavailable, err)
	}
	s := &Signer{keyPath: keyPath, cert: cert, certPEM: certPEM}
	if _, err := s.privateKey(); err != nil {
		return nil, err
	}
	return s, nil
}

// privateKey re-reads the key so it can be rotated on disk without a restart.
// The replacement must still match the certificate.
func (s *Signer) privateKey() (*rsa.PrivateKey, error) {
	key, err := LoadPrivateKey(s.keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrKeyMaterialUnavailable, err)
	}
	if !key.PublicKey.Equal(s.cert.PublicKey) {
		return nil, fmt.Errorf("%w: private key does not match certificate", common.ErrKeyMaterialUnavailable)
	}
	return key, nil
}

// Sign returns the base64 signature binding digest to ts.
func (s *Signer) Sign(digest string, ts time.Time) (string, error) {
	key, err := s.privateKey()
	if err != nil {
		return "", err
	}
	sig, err := rsa.SignPKCS1v15(rand.Reader, key, crypto.SHA256, stampx.Digest(digest, ts))
	if err != nil {
		return "", fmt.Errorf("sign: %w", err)
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

// Verify checks signature against the server certificate.
func (s *Signer) Verify(digest string, ts time.Time, signature string) bool {
	return stampx.VerifyWithCertificate(s.cert, digest, ts, signature)
}

// Certificate returns the parsed server certificate.
func (s *Signer) Certificate() *x509.Certificate {
	return s.cert
}

// CertificatePEM returns the server certificate in PEM form for publication.
func (s *Signer) CertificatePEM() []byte {
	out := make([]byte, len(s.certPEM))
	copy(out, s.certPEM)
	return out
}
