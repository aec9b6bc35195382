package users

import (
	"context"

	"github.com/dmitrijs2005/gophstamp/internal/server/models"
)

// Repository persists identities.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUserName(ctx context.Context, userName string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	MarkVerified(ctx context.Context, id string) error
	SetRole(ctx context.Context, id string, role models.Role) error
	Count(ctx context.Context) (int64, error)
	// ClaimBootstrap records userID as the bootstrap admin unless somebody
	// already holds that slot. It reports whether the claim succeeded.
	ClaimBootstrap(ctx context.Context, userID string) (bool, error)
}
