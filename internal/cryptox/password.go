// Package cryptox wraps password hashing and the password strength policy.
package cryptox

import (
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"golang.org/x/crypto/bcrypt"
)

// MinPasswordLength is the shortest password the policy accepts.
const MinPasswordLength = 8

// PasswordSymbols is the allow-set of non-alphanumeric characters.
const PasswordSymbols = "-@$!%*?&_"

// bcrypt ignores everything past 72 bytes.
const maxPasswordBytes = 72

// HashCost is the bcrypt cost used for new hashes. Tests lower it.
var HashCost = bcrypt.DefaultCost

// dummyHash is compared against when the account does not exist so that
// unknown usernames cost the same as wrong passwords.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("gophstamp-timing-equaliser"), bcrypt.DefaultCost)

// CheckPasswordPolicy returns common.ErrWeakPassword unless p has at least
// MinPasswordLength characters including an upper-case letter, a lower-case
// letter, a digit and a symbol from PasswordSymbols, and nothing else.
func CheckPasswordPolicy(p string) error {
	if utf8.RuneCountInString(p) < MinPasswordLength || len(p) > maxPasswordBytes {
		return common.ErrWeakPassword
	}

	var upper, lower, digit, symbol bool
	for _, r := range p {
		switch {
		case r >= 'A' && r <= 'Z':
			upper = true
		case r >= 'a' && r <= 'z':
			lower = true
		case r >= '0' && r <= '9':
			digit = true
		case strings.ContainsRune(PasswordSymbols, r):
			symbol = true
		default:
			return common.ErrWeakPassword
		}
	}

	if !upper || !lower || !digit || !symbol {
		return common.ErrWeakPassword
	}
	return nil
}

// HashPassword returns the bcrypt hash of password.
func HashPassword(password string) ([]byte, error) {
	h, err := bcrypt.GenerateFromPassword([]byte(password), HashCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}
	return h, nil
}

// ComparePassword reports whether password matches hash. A nil hash is
// compared against a fixed dummy so the caller spends the same time either
// way.
func ComparePassword(hash []byte, password string) bool {
	if len(hash) == 0 {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(password))
		return false
	}
	return bcrypt.CompareHashAndPassword(hash, []byte(password)) == nil
}
