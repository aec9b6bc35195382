// Package otps provides a PostgreSQL-backed repository for the one-time
// passcodes issued during registration and login.
package otps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/dbx"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
)

// PostgresRepository works over dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Create inserts code and fills in its ID and CreatedAt.
func (r *PostgresRepository) Create(ctx context.Context, code *models.OneTimeCode) (*models.OneTimeCode, error) {
	query := `
		INSERT INTO one_time_codes (user_id, code, expires_at)
		VALUES ($1, $2, $3)
		RETURNING id, created_at
	`
	if err := r.db.QueryRowContext(ctx, query, code.UserID, code.Code, code.ExpiresAt).Scan(&code.ID, &code.CreatedAt); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	code.CreatedAt = code.CreatedAt.UTC()
	return code, nil
}

// FindValid locks the matching row so a concurrent redemption of the same
// code in another transaction waits for this one.
func (r *PostgresRepository) FindValid(ctx context.Context, userID, code string, now time.Time) (*models.OneTimeCode, error) {
	query := `
		SELECT id, user_id, code, expires_at, used, created_at
		FROM one_time_codes
		WHERE user_id = $1 AND code = $2 AND used = FALSE AND expires_at > $3
		ORDER BY created_at DESC
		LIMIT 1
		FOR UPDATE
	`
	c := &models.OneTimeCode{}
	err := r.db.QueryRowContext(ctx, query, userID, code, now).
		Scan(&c.ID, &c.UserID, &c.Code, &c.ExpiresAt, &c.Used, &c.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	c.ExpiresAt = c.ExpiresAt.UTC()
	c.CreatedAt = c.CreatedAt.UTC()
	return c, nil
}

// MarkUsed is conditional on used = FALSE so a code flips at most once.
func (r *PostgresRepository) MarkUsed(ctx context.Context, id string) error {
	query := `
		UPDATE one_time_codes SET used = TRUE
		WHERE id = $1 AND used = FALSE
	`
	res, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}
