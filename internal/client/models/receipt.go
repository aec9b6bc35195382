// Package models holds the client-side view of signed timestamp records.
package models

import (
	"fmt"
	"time"
)

// Receipt is a locally saved copy of a timestamp record. It carries
// everything needed to check the signature offline against the server
// certificate.
type Receipt struct {
	ID          string
	FileName    string
	Fingerprint string
	Signature   string
	CreatedAt   time.Time
	OwnerName   string
	Archived    bool
	SavedAt     time.Time
}

func (r Receipt) String() string {
	return fmt.Sprintf("%s  %s  %s  %s", r.ID, r.CreatedAt.UTC().Format(time.RFC3339), r.Fingerprint, r.FileName)
}
