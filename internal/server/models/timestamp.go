package models

import "time"

// TimestampRecord binds a document fingerprint to the time it was first
// signed. Records are immutable; they can only be deleted.
type TimestampRecord struct {
	// ID is the record identifier (uuid).
	ID string
	// FileName is what the uploader called the file. Advisory only.
	FileName string
	// Fingerprint is the hex SHA-256 of the content. Unique.
	Fingerprint string
	// Signature is the base64 signature over fingerprint and CreatedAt.
	Signature string
	// CreatedAt is the signed instant, UTC with microsecond precision.
	CreatedAt time.Time
	// OwnerID references the user who first submitted the content.
	OwnerID string
	// OwnerName is the owner's username, filled by read queries.
	OwnerName string
	// ArchiveKey is the object-storage key of the archived bytes, if any.
	ArchiveKey string
}
