package timestamps

import (
	"context"

	"github.com/dmitrijs2005/gophstamp/internal/server/models"
)

// Repository persists timestamp records. Fingerprints are unique; Create
// reports a duplicate as common.ErrConflict.
type Repository interface {
	Create(ctx context.Context, rec *models.TimestampRecord) (*models.TimestampRecord, error)
	GetByID(ctx context.Context, id string) (*models.TimestampRecord, error)
	GetByFingerprint(ctx context.Context, fingerprint string) (*models.TimestampRecord, error)
	// List pages through records newest first. An empty ownerID lists all.
	List(ctx context.Context, ownerID string, offset, limit int) ([]*models.TimestampRecord, error)
	Delete(ctx context.Context, id string) error
}
