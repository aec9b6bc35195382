// Package otp generates one-time passcodes for the second authentication
// factor. It holds no state; persistence and expiry checks belong to the
// callers.
package otp

import (
	"crypto/rand"
	"fmt"
	"io"
	"math/big"
	"time"
)

// Digits is the code length.
const Digits = 6

// TTL is how long a freshly issued code stays valid.
const TTL = 5 * time.Minute

var (
	random = rand.Reader
	limit  = big.NewInt(1_000_000)
)

// Generate returns a uniformly random zero-padded 6-digit code.
func Generate() (string, error) {
	return generate(random)
}

func generate(r io.Reader) (string, error) {
	n, err := rand.Int(r, limit)
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	return fmt.Sprintf("%0*d", Digits, n.Int64()), nil
}

// ExpiresAt is the expiry of a code issued at now with the default TTL.
func ExpiresAt(now time.Time) time.Time {
	return now.Add(TTL)
}

// WellFormed reports whether code looks like a passcode at all, so obviously
// bogus input can be rejected without a store lookup.
func WellFormed(code string) bool {
	if len(code) != Digits {
		return false
	}
	for _, c := range code {
		if c < '0' || c > '9' {
			return false
		}
	}
	return true
}
