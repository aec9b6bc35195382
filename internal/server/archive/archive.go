// Package archive keeps a copy of every timestamped document in object
// storage so owners can download exactly the bytes that were signed.
package archive

import (
	"context"
	"errors"
)

// ErrDisabled is returned by Disabled for every operation.
var ErrDisabled = errors.New("document archive is disabled")

// Store is an object store addressed by key.
type Store interface {
	Put(ctx context.Context, key string, data []byte) error
	PresignGet(ctx context.Context, key string) (string, error)
	Enabled() bool
}

// Key is the object key for a document with the given fingerprint. Keys are
// content-addressed, so re-uploading the same bytes overwrites nothing new.
func Key(fingerprint string) string {
	if len(fingerprint) < 2 {
		return "documents/" + fingerprint
	}
	return "documents/" + fingerprint[:2] + "/" + fingerprint
}

// Disabled is the Store used when no object storage is configured.
type Disabled struct{}

func (Disabled) Put(context.Context, string, []byte) error { return nil }

func (Disabled) PresignGet(context.Context, string) (string, error) { return "", ErrDisabled }

func (Disabled) Enabled() bool { return false }
