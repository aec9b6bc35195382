// Package metadata stores small client-side key/value settings in the local
// SQLite database: the current session, the signed-in identity and the
// cached server certificate.
package metadata

import (
	"context"
)

// Well-known keys.
const (
	KeySessionToken = "session_token"
	KeyUsername     = "username"
	KeyRole         = "role"
	KeyCertificate  = "certificate_pem"
)

// SessionKeys are removed on logout. The cached certificate survives.
var SessionKeys = []string{KeySessionToken, KeyUsername, KeyRole}

type Repository interface {
	// Get returns (nil, nil) when key is absent.
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte) error
	Delete(ctx context.Context, keys ...string) error
	List(ctx context.Context) (map[string][]byte, error)
	Clear(ctx context.Context) error
}
