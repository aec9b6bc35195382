package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/client/models"
	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/dbx"
	"github.com/dmitrijs2005/gophstamp/internal/stampx"
)

// SQLiteRepository implements Repository using a DBTX (either *sql.DB or *sql.Tx).
// Instants are stored as text in stampx.TimeLayout so the signed microsecond
// value round-trips exactly.
type SQLiteRepository struct {
	db dbx.DBTX
}

// NewSQLiteRepository returns a new SQLiteRepository bound to the given DBTX.
func NewSQLiteRepository(db dbx.DBTX) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

const selectReceipt = `
	SELECT id, file_name, fingerprint, signature, created_at, owner_name, archived, saved_at
	FROM receipts
`

// Save stores a receipt. Any saved receipt with the same id or the same
// fingerprint is replaced: a record deleted on the server and stamped again
// comes back under a new id.
func (r *SQLiteRepository) Save(ctx context.Context, rc *models.Receipt) error {
	query := `INSERT OR REPLACE INTO receipts (id, file_name, fingerprint, signature, created_at, owner_name, archived, saved_at)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		rc.ID, rc.FileName, rc.Fingerprint, rc.Signature,
		rc.CreatedAt.UTC().Format(stampx.TimeLayout), rc.OwnerName, rc.Archived,
		rc.SavedAt.UTC().Format(stampx.TimeLayout))
	if err != nil {
		return fmt.Errorf("failed to save receipt: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetByID(ctx context.Context, id string) (*models.Receipt, error) {
	return r.getOne(r.db.QueryRowContext(ctx, selectReceipt+` WHERE id = ?`, id))
}

func (r *SQLiteRepository) GetByFingerprint(ctx context.Context, fingerprint string) (*models.Receipt, error) {
	return r.getOne(r.db.QueryRowContext(ctx, selectReceipt+` WHERE fingerprint = ?`, fingerprint))
}

func (r *SQLiteRepository) List(ctx context.Context) ([]*models.Receipt, error) {
	rows, err := r.db.QueryContext(ctx, selectReceipt+` ORDER BY created_at DESC, id`)
	if err != nil {
		return nil, fmt.Errorf("failed to select receipts: %w", err)
	}
	defer rows.Close()

	var result []*models.Receipt
	for rows.Next() {
		rc, err := scan(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, rc)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return result, nil
}

func (r *SQLiteRepository) DeleteByID(ctx context.Context, id string) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM receipts WHERE id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete receipt: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) getOne(row *sql.Row) (*models.Receipt, error) {
	rc, err := scan(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, common.ErrorNotFound
	}
	return rc, err
}

type scanner interface {
	Scan(dest ...any) error
}

func scan(s scanner) (*models.Receipt, error) {
	var (
		rc                 models.Receipt
		createdAt, savedAt string
	)
	if err := s.Scan(&rc.ID, &rc.FileName, &rc.Fingerprint, &rc.Signature,
		&createdAt, &rc.OwnerName, &rc.Archived, &savedAt); err != nil {
		return nil, err
	}

	var err error
	if rc.CreatedAt, err = time.Parse(stampx.TimeLayout, createdAt); err != nil {
		return nil, fmt.Errorf("receipt %s: created_at: %w", rc.ID, err)
	}
	if rc.SavedAt, err = time.Parse(stampx.TimeLayout, savedAt); err != nil {
		return nil, fmt.Errorf("receipt %s: saved_at: %w", rc.ID, err)
	}
	return &rc, nil
}
