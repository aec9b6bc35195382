// Package stampx defines the timestamp binding shared by the server, which
// signs it, and the client, which checks it offline.
//
// The signed payload is
//
//	<hex fingerprint>|<UTC time, RFC 3339 with exactly six fractional digits>
//
// signed with RSASSA-PKCS1-v1_5 over SHA-256 and transported as standard
// base64. Anybody holding the certificate can check a (fingerprint, time,
// signature) triple with VerifyWithCertificate; the server's database is
// not needed.
package stampx

import (
	"crypto"
	"crypto/rsa"
	"crypto/sha256"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"fmt"
	"time"
)

// TimeLayout is the canonical timestamp form inside the signed payload.
const TimeLayout = "2006-01-02T15:04:05.000000Z07:00"

const separator = "|"

// Canonical normalises t to what the payload can represent: UTC, truncated
// to microseconds. Store exactly this value next to the signature.
func Canonical(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}

// Payload builds the byte string that gets signed for digest at ts.
func Payload(digest string, ts time.Time) []byte {
	return []byte(digest + separator + ts.UTC().Format(TimeLayout))
}

// Digest is the SHA-256 of Payload, the value the RSA signature covers.
func Digest(digest string, ts time.Time) []byte {
	sum := sha256.Sum256(Payload(digest, ts))
	return sum[:]
}

// VerifyWithCertificate reports whether signature is a valid binding of
// digest to ts under cert's public key. Every failure (undecodable
// signature, non-RSA certificate, wrong key, altered payload) yields false.
func VerifyWithCertificate(cert *x509.Certificate, digest string, ts time.Time, signature string) bool {
	if cert == nil {
		return false
	}
	pub, ok := cert.PublicKey.(*rsa.PublicKey)
	if !ok {
		return false
	}
	sig, err := base64.StdEncoding.DecodeString(signature)
	if err != nil || len(sig) == 0 {
		return false
	}
	return rsa.VerifyPKCS1v15(pub, crypto.SHA256, Digest(digest, ts), sig) == nil
}

// ParseCertificatePEM decodes the first CERTIFICATE block in data.
func ParseCertificatePEM(data []byte) (*x509.Certificate, error) {
	for {
		var block *pem.Block
		block, data = pem.Decode(data)
		if block == nil {
			return nil, fmt.Errorf("no certificate PEM block found")
		}
		if block.Type == "CERTIFICATE" {
			return x509.ParseCertificate(block.Bytes)
		}
	}
}
