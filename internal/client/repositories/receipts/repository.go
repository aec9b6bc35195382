// Package receipts keeps local copies of signed timestamp records in the
// client database so they can be listed and verified offline.
package receipts

import (
	"context"

	"github.com/dmitrijs2005/gophstamp/internal/client/models"
)

// Repository describes storage of Receipt objects.
type Repository interface {
	// Save inserts a receipt or replaces the one with the same id.
	Save(ctx context.Context, r *models.Receipt) error

	// GetByID returns common.ErrorNotFound when nothing matches.
	GetByID(ctx context.Context, id string) (*models.Receipt, error)

	// GetByFingerprint returns common.ErrorNotFound when nothing matches.
	GetByFingerprint(ctx context.Context, fingerprint string) (*models.Receipt, error)

	// List returns all receipts, newest first.
	List(ctx context.Context) ([]*models.Receipt, error)

	// DeleteByID removes a receipt. Deleting an unknown id is not an error.
	DeleteByID(ctx context.Context, id string) error
}
