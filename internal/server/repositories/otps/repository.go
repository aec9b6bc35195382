package otps

import (
	"context"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/server/models"
)

// Repository persists one-time codes.
type Repository interface {
	Create(ctx context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error)
	// FindValid returns the newest unused, unexpired code equal to code that
	// belongs to userID, or common.ErrorNotFound.
	FindValid(ctx context.Context, userID, code string, now time.Time) (*models.OneTimeCode, error)
	// MarkUsed flips used to true. It returns common.ErrorNotFound when the
	// code does not exist or was already used.
	MarkUsed(ctx context.Context, id string) error
}
