package repomanager

import (
	"context"
	"database/sql"

	"github.com/dmitrijs2005/gophstamp/internal/dbx"
	"github.com/dmitrijs2005/gophstamp/internal/server/repositories/otps"
	"github.com/dmitrijs2005/gophstamp/internal/server/repositories/timestamps"
	"github.com/dmitrijs2005/gophstamp/internal/server/repositories/users"
)

// RepositoryManager vends repositories bound to a DBTX, so the same
// repository code runs inside and outside a transaction.
type RepositoryManager interface {
	RunMigrations(context.Context, *sql.DB) error
	Users(db dbx.DBTX) users.Repository
	OTPs(db dbx.DBTX) otps.Repository
	Timestamps(db dbx.DBTX) timestamps.Repository
}
