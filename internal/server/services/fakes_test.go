package services

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/cryptox"
	"github.com/dmitrijs2005/gophstamp/internal/dbx"
	"github.com/dmitrijs2005/gophstamp/internal/server/archive"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
	"github.com/dmitrijs2005/gophstamp/internal/server/repositories/otps"
	"github.com/dmitrijs2005/gophstamp/internal/server/repositories/timestamps"
	"github.com/dmitrijs2005/gophstamp/internal/server/repositories/users"
	"github.com/dmitrijs2005/gophstamp/internal/server/signer"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
	_ "modernc.org/sqlite"
)

var keyPath, certPath string

func TestMain(m *testing.M) {
	cryptox.HashCost = bcrypt.MinCost

	dir, err := os.MkdirTemp("", "gophstamp-services")
	if err != nil {
		panic(err)
	}
	keyPath = filepath.Join(dir, "server.key")
	certPath = filepath.Join(dir, "server.crt")
	if err := signer.GenerateSelfSigned(keyPath, certPath, signer.Subject{CommonName: "test tsa"}, time.Hour); err != nil {
		panic(err)
	}

	code := m.Run()
	_ = os.RemoveAll(dir)
	os.Exit(code)
}

// openTxDB gives dbx.WithTx something real to begin and commit. The fake
// repositories ignore the handle they are bound to.
func openTxDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func newTestSigner(t *testing.T) *signer.Signer {
	t.Helper()
	s, err := signer.New(keyPath, certPath)
	require.NoError(t, err)
	return s
}

// memStore is an in-memory stand-in for the Postgres schema.
type memStore struct {
	mu          sync.Mutex
	users       map[string]*models.User
	codes       map[string]*models.OneTimeCode
	records     map[string]*models.TimestampRecord
	bootstrap   string
	seq         int
	createTSErr error
}

func newMemStore() *memStore {
	return &memStore{
		users:   map[string]*models.User{},
		codes:   map[string]*models.OneTimeCode{},
		records: map[string]*models.TimestampRecord{},
	}
}

func (m *memStore) RunMigrations(context.Context, *sql.DB) error { return nil }
func (m *memStore) Users(dbx.DBTX) users.Repository              { return (*memUsers)(m) }
func (m *memStore) OTPs(dbx.DBTX) otps.Repository                { return (*memOTPs)(m) }
func (m *memStore) Timestamps(dbx.DBTX) timestamps.Repository    { return (*memTimestamps)(m) }

func (m *memStore) tick() time.Time {
	m.seq++
	return time.Date(2024, 1, 1, 0, 0, m.seq, 0, time.UTC)
}

func (m *memStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

func (m *memStore) codeCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.codes)
}

func (m *memStore) recordCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.records)
}

type memUsers memStore

func (r *memUsers) Create(_ context.Context, u *models.User) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, other := range r.users {
		if other.UserName == u.UserName || other.Email == u.Email {
			return nil, common.ErrConflict
		}
	}
	u.ID = uuid.NewString()
	u.CreatedAt = (*memStore)(r).tick()
	cp := *u
	r.users[u.ID] = &cp
	return u, nil
}

func (r *memUsers) find(match func(*models.User) bool) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if match(u) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memUsers) GetByID(_ context.Context, id string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.ID == id })
}

func (r *memUsers) GetByUserName(_ context.Context, name string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.UserName == name })
}

func (r *memUsers) GetByEmail(_ context.Context, email string) (*models.User, error) {
	return r.find(func(u *models.User) bool { return u.Email == email })
}

func (r *memUsers) update(id string, fn func(*models.User)) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return common.ErrorNotFound
	}
	fn(u)
	return nil
}

func (r *memUsers) MarkVerified(_ context.Context, id string) error {
	return r.update(id, func(u *models.User) { u.Verified = true })
}

func (r *memUsers) SetRole(_ context.Context, id string, role models.Role) error {
	return r.update(id, func(u *models.User) { u.Role = role })
}

func (r *memUsers) Count(context.Context) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return int64(len(r.users)), nil
}

func (r *memUsers) ClaimBootstrap(_ context.Context, userID string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.bootstrap != "" {
		return false, nil
	}
	r.bootstrap = userID
	return true, nil
}

type memOTPs memStore

func (r *memOTPs) Create(_ context.Context, c *models.OneTimeCode) (*models.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	c.ID = uuid.NewString()
	c.CreatedAt = (*memStore)(r).tick()
	cp := *c
	r.codes[c.ID] = &cp
	return c, nil
}

func (r *memOTPs) FindValid(_ context.Context, userID, code string, now time.Time) (*models.OneTimeCode, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var best *models.OneTimeCode
	for _, c := range r.codes {
		if c.UserID != userID || c.Code != code || !c.IsValidAt(now) {
			continue
		}
		if best == nil || c.CreatedAt.After(best.CreatedAt) {
			best = c
		}
	}
	if best == nil {
		return nil, common.ErrorNotFound
	}
	cp := *best
	return &cp, nil
}

func (r *memOTPs) MarkUsed(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	c, ok := r.codes[id]
	if !ok || c.Used {
		return common.ErrorNotFound
	}
	c.Used = true
	return nil
}

type memTimestamps memStore

func (r *memTimestamps) Create(_ context.Context, rec *models.TimestampRecord) (*models.TimestampRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.createTSErr != nil {
		return nil, r.createTSErr
	}
	for _, other := range r.records {
		if other.Fingerprint == rec.Fingerprint {
			return nil, common.ErrConflict
		}
	}
	rec.ID = uuid.NewString()
	cp := *rec
	r.records[rec.ID] = &cp
	return rec, nil
}

func (r *memTimestamps) withOwner(rec *models.TimestampRecord) *models.TimestampRecord {
	cp := *rec
	if u, ok := r.users[rec.OwnerID]; ok {
		cp.OwnerName = u.UserName
	}
	return &cp
}

func (r *memTimestamps) GetByID(_ context.Context, id string) (*models.TimestampRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	rec, ok := r.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return r.withOwner(rec), nil
}

func (r *memTimestamps) GetByFingerprint(_ context.Context, fp string) (*models.TimestampRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, rec := range r.records {
		if rec.Fingerprint == fp {
			return r.withOwner(rec), nil
		}
	}
	return nil, common.ErrorNotFound
}

func (r *memTimestamps) List(_ context.Context, ownerID string, offset, limit int) ([]*models.TimestampRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := []*models.TimestampRecord{}
	for _, rec := range r.records {
		if ownerID == "" || rec.OwnerID == ownerID {
			out = append(out, r.withOwner(rec))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if offset >= len(out) {
		return []*models.TimestampRecord{}, nil
	}
	out = out[offset:]
	if limit < len(out) {
		out = out[:limit]
	}
	return out, nil
}

func (r *memTimestamps) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.records[id]; !ok {
		return common.ErrorNotFound
	}
	delete(r.records, id)
	return nil
}

// sentCode is one captured dispatch.
type sentCode struct {
	destination string
	code        string
}

// syncDispatcher captures codes instead of mailing them.
type syncDispatcher struct {
	mu   sync.Mutex
	sent []sentCode
}

func (d *syncDispatcher) Dispatch(_ context.Context, destination, code string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sentCode{destination, code})
}

func (d *syncDispatcher) last(t *testing.T) sentCode {
	t.Helper()
	d.mu.Lock()
	defer d.mu.Unlock()
	require.NotEmpty(t, d.sent, "no code dispatched")
	return d.sent[len(d.sent)-1]
}

func (d *syncDispatcher) count() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.sent)
}

// memArchive records uploads and signs nothing.
type memArchive struct {
	mu      sync.Mutex
	objects map[string][]byte
	putErr  error
}

func newMemArchive() *memArchive { return &memArchive{objects: map[string][]byte{}} }

func (a *memArchive) Put(_ context.Context, key string, data []byte) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.putErr != nil {
		return a.putErr
	}
	a.objects[key] = append([]byte(nil), data...)
	return nil
}

func (a *memArchive) PresignGet(_ context.Context, key string) (string, error) {
	return "https://archive.test/" + key + "?sig=1", nil
}

func (a *memArchive) Enabled() bool { return true }

var _ archive.Store = (*memArchive)(nil)
