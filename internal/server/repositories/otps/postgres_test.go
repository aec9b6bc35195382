package otps

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRepoWithMock(t *testing.T) (*PostgresRepository, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	if err != nil {
		t.Fatalf("sqlmock.New error: %v", err)
	}
	t.Cleanup(func() {
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Errorf("unmet expectations: %v", err)
		}
		db.Close()
	})
	return NewPostgresRepository(db), mock
}

const (
	insertQ = `(?s)^\s*INSERT\s+INTO\s+one_time_codes\s*\(user_id,\s*code,\s*expires_at\)\s*VALUES\s*\(\$1,\s*\$2,\s*\$3\)\s*RETURNING\s+id,\s*created_at\s*$`
	findQ   = `(?s)^\s*SELECT\s+id,\s*user_id,\s*code,\s*expires_at,\s*used,\s*created_at\s+FROM\s+one_time_codes\s+WHERE\s+user_id\s*=\s*\$1\s+AND\s+code\s*=\s*\$2\s+AND\s+used\s*=\s*FALSE\s+AND\s+expires_at\s*>\s*\$3.*FOR\s+UPDATE\s*$`
	markQ   = `(?s)^\s*UPDATE\s+one_time_codes\s+SET\s+used\s*=\s*TRUE\s+WHERE\s+id\s*=\s*\$1\s+AND\s+used\s*=\s*FALSE\s*$`
)

func TestCreate(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	exp := time.Date(2024, 1, 1, 10, 5, 0, 0, time.UTC)
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	mock.ExpectQuery(insertQ).
		WithArgs("u-1", "123456", exp).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow("c-1", created))

	got, err := repo.Create(context.Background(), &models.OneTimeCode{UserID: "u-1", Code: "123456", ExpiresAt: exp})
	require.NoError(t, err)
	assert.Equal(t, "c-1", got.ID)
	assert.Equal(t, created, got.CreatedAt)
}

func TestCreate_DBError(t *testing.T) {
	repo, mock := newRepoWithMock(t)
	mock.ExpectQuery(insertQ).WillReturnError(errors.New("db down"))

	_, err := repo.Create(context.Background(), &models.OneTimeCode{UserID: "u-1", Code: "1"})
	require.ErrorContains(t, err, "db error: db down")
}

func TestFindValid(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 1, 0, 0, time.UTC)
	exp := now.Add(4 * time.Minute)

	t.Run("found", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(findQ).
			WithArgs("u-1", "123456", now).
			WillReturnRows(sqlmock.NewRows([]string{"id", "user_id", "code", "expires_at", "used", "created_at"}).
				AddRow("c-1", "u-1", "123456", exp, false, now.Add(-time.Minute)))

		got, err := repo.FindValid(context.Background(), "u-1", "123456", now)
		require.NoError(t, err)
		assert.Equal(t, "c-1", got.ID)
		assert.True(t, got.IsValidAt(now))
	})

	t.Run("none", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(findQ).WithArgs("u-1", "000000", now).WillReturnError(sql.ErrNoRows)

		_, err := repo.FindValid(context.Background(), "u-1", "000000", now)
		require.ErrorIs(t, err, common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectQuery(findQ).WillReturnError(errors.New("db err"))

		_, err := repo.FindValid(context.Background(), "u-1", "000000", now)
		require.Error(t, err)
		assert.NotErrorIs(t, err, common.ErrorNotFound)
	})
}

func TestMarkUsed(t *testing.T) {
	t.Run("flips once", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(markQ).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(markQ).WithArgs("c-1").WillReturnResult(sqlmock.NewResult(0, 0))

		require.NoError(t, repo.MarkUsed(context.Background(), "c-1"))
		require.ErrorIs(t, repo.MarkUsed(context.Background(), "c-1"), common.ErrorNotFound)
	})

	t.Run("db error", func(t *testing.T) {
		repo, mock := newRepoWithMock(t)
		mock.ExpectExec(markQ).WithArgs("c-1").WillReturnError(errors.New("db err"))
		require.Error(t, repo.MarkUsed(context.Background(), "c-1"))
	})
}
