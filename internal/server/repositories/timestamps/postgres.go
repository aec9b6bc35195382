// Package timestamps provides the PostgreSQL-backed store of signed
// timestamp records.
package timestamps

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/dbx"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
)

// FingerprintConstraint is the unique constraint on timestamps.fingerprint.
const FingerprintConstraint = "timestamps_fingerprint_key"

// PostgresRepository implements Repository over a dbx.DBTX (*sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

const selectRecord = `
	SELECT t.id, t.file_name, t.fingerprint, t.signature, t.created_at, t.owner_id, u.username, t.archive_key
	FROM timestamps t
	JOIN users u ON u.id = t.owner_id
`

// Create inserts rec. CreatedAt must already be in its canonical signed form.
func (r *PostgresRepository) Create(ctx context.Context, rec *models.TimestampRecord) (*models.TimestampRecord, error) {
	query := `
		INSERT INTO timestamps (file_name, fingerprint, signature, created_at, owner_id, archive_key)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id
	`
	err := r.db.QueryRowContext(ctx, query,
		rec.FileName, rec.Fingerprint, rec.Signature, rec.CreatedAt, rec.OwnerID, rec.ArchiveKey).Scan(&rec.ID)
	if err != nil {
		if dbx.IsUniqueViolation(err, FingerprintConstraint) {
			return nil, fmt.Errorf("%w: fingerprint %s", common.ErrConflict, rec.Fingerprint)
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*models.TimestampRecord, error) {
	return r.getOne(ctx, selectRecord+` WHERE t.id = $1`, id)
}

func (r *PostgresRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*models.TimestampRecord, error) {
	return r.getOne(ctx, selectRecord+` WHERE t.fingerprint = $1`, fingerprint)
}

func (r *PostgresRepository) getOne(ctx context.Context, query string, arg any) (*models.TimestampRecord, error) {
	rec, err := scanRecord(r.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return rec, nil
}

func (r *PostgresRepository) List(ctx context.Context, ownerID string, offset, limit int) ([]*models.TimestampRecord, error) {
	var (
		rows *sql.Rows
		err  error
	)
	if ownerID == "" {
		rows, err = r.db.QueryContext(ctx,
			selectRecord+` ORDER BY t.created_at DESC, t.id OFFSET $1 LIMIT $2`, offset, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			selectRecord+` WHERE t.owner_id = $1 ORDER BY t.created_at DESC, t.id OFFSET $2 LIMIT $3`, ownerID, offset, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to select timestamps: %w", err)
	}
	defer rows.Close()

	result := make([]*models.TimestampRecord, 0)
	for rows.Next() {
		rec, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("db error: %w", err)
		}
		result = append(result, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return result, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM timestamps WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected error: %w", err)
	}
	if n == 0 {
		return common.ErrorNotFound
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRecord(s scanner) (*models.TimestampRecord, error) {
	rec := &models.TimestampRecord{}
	if err := s.Scan(&rec.ID, &rec.FileName, &rec.Fingerprint, &rec.Signature, &rec.CreatedAt,
		&rec.OwnerID, &rec.OwnerName, &rec.ArchiveKey); err != nil {
		return nil, err
	}
	rec.CreatedAt = rec.CreatedAt.UTC()
	return rec, nil
}
