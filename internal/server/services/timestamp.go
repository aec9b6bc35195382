package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/fingerprint"
	"github.com/dmitrijs2005/gophstamp/internal/logging"
	"github.com/dmitrijs2005/gophstamp/internal/server/archive"
	"github.com/dmitrijs2005/gophstamp/internal/server/auth"
	"github.com/dmitrijs2005/gophstamp/internal/server/metrics"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
	"github.com/dmitrijs2005/gophstamp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophstamp/internal/stampx"
	"github.com/google/uuid"
)

const (
	DefaultListLimit = 100
	MaxListLimit     = 1000

	maxFileNameLength = 255
	unnamedFile       = "unnamed"
)

// Signer signs and checks (fingerprint, instant) pairs.
type Signer interface {
	Sign(digest string, ts time.Time) (string, error)
	Verify(digest string, ts time.Time, signature string) bool
	CertificatePEM() []byte
}

// VerifyResult is the outcome of checking content against the store.
type VerifyResult struct {
	Valid       bool
	Fingerprint string
	Record      *models.TimestampRecord
}

type TimestampService struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
	signer      Signer
	archive     archive.Store
	now         func() time.Time
	log         logging.Logger
}

func NewTimestampService(db *sql.DB, m repomanager.RepositoryManager, s Signer, store archive.Store,
	log logging.Logger) *TimestampService {
	if store == nil {
		store = archive.Disabled{}
	}
	return &TimestampService{
		db:          db,
		repomanager: m,
		signer:      s,
		archive:     store,
		now:         time.Now,
		log:         log.With("module", "timestamps"),
	}
}

// CanAccess reports whether id may see or manage rec: admins see
// everything, everybody else only what they own.
func CanAccess(id *auth.Identity, rec *models.TimestampRecord) bool {
	if id == nil || rec == nil {
		return false
	}
	return id.IsAdmin() || id.Subject == rec.OwnerID
}

// CreateTimestamp fingerprints content and binds it to the current time.
// Content that was already timestamped yields the existing record, its
// original owner included, and created=false.
func (s *TimestampService) CreateTimestamp(ctx context.Context, fileName string, content []byte,
	requester *auth.Identity) (*models.TimestampRecord, bool, error) {
	if requester == nil {
		return nil, false, common.ErrInvalidToken
	}

	fp := fingerprint.Of(content)
	repo := s.repomanager.Timestamps(s.db)

	existing, err := repo.GetByFingerprint(ctx, fp)
	if err == nil {
		metrics.RecordTimestamp(false)
		return existing, false, nil
	}
	if !errors.Is(err, common.ErrorNotFound) {
		return nil, false, fmt.Errorf("lookup fingerprint: %w", err)
	}

	owner, err := s.repomanager.Users(s.db).GetByID(ctx, requester.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, false, common.ErrInvalidToken
		}
		return nil, false, fmt.Errorf("lookup owner: %w", err)
	}

	var key string
	if s.archive.Enabled() {
		key = archive.Key(fp)
		if err := s.archive.Put(ctx, key, content); err != nil {
			return nil, false, fmt.Errorf("%w: archive: %v", common.ErrorInternal, err)
		}
	}

	ts := stampx.Canonical(s.now())
	sig, err := s.signer.Sign(fp, ts)
	if err != nil {
		return nil, false, fmt.Errorf("%w: sign: %v", common.ErrorInternal, err)
	}

	rec := &models.TimestampRecord{
		FileName:    sanitizeFileName(fileName),
		Fingerprint: fp,
		Signature:   sig,
		CreatedAt:   ts,
		OwnerID:     owner.ID,
		ArchiveKey:  key,
	}

	created, err := repo.Create(ctx, rec)
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			// Lost a race on the same content; the winner's record stands.
			existing, err := repo.GetByFingerprint(ctx, fp)
			if err != nil {
				return nil, false, fmt.Errorf("read after conflict: %w", err)
			}
			metrics.RecordTimestamp(false)
			return existing, false, nil
		}
		return nil, false, fmt.Errorf("store timestamp: %w", err)
	}
	created.OwnerName = owner.UserName

	metrics.RecordTimestamp(true)
	s.log.Info(ctx, "timestamp created", "id", created.ID, "fingerprint", fp, "owner", owner.ID)
	return created, true, nil
}

// VerifyTimestamp looks content up by fingerprint and re-checks the stored
// signature with the server certificate. It needs no identity.
func (s *TimestampService) VerifyTimestamp(ctx context.Context, content []byte) (*VerifyResult, error) {
	fp := fingerprint.Of(content)

	rec, err := s.repomanager.Timestamps(s.db).GetByFingerprint(ctx, fp)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			metrics.RecordVerification("not_found")
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("lookup fingerprint: %w", err)
	}

	valid := s.signer.Verify(rec.Fingerprint, rec.CreatedAt, rec.Signature)
	if valid {
		metrics.RecordVerification("valid")
	} else {
		metrics.RecordVerification("invalid")
		s.log.Warn(ctx, "stored signature does not verify", "id", rec.ID, "fingerprint", fp)
	}

	return &VerifyResult{Valid: valid, Fingerprint: fp, Record: rec}, nil
}

// ListTimestamps pages through the records visible to requester, newest
// first. A non-positive limit means DefaultListLimit.
func (s *TimestampService) ListTimestamps(ctx context.Context, requester *auth.Identity,
	offset, limit int) ([]*models.TimestampRecord, error) {
	if requester == nil {
		return nil, common.ErrInvalidToken
	}
	if offset < 0 {
		offset = 0
	}
	if limit <= 0 {
		limit = DefaultListLimit
	}
	limit = min(limit, MaxListLimit)

	owner := requester.Subject
	if requester.IsAdmin() {
		owner = ""
	}

	recs, err := s.repomanager.Timestamps(s.db).List(ctx, owner, offset, limit)
	if err != nil {
		return nil, fmt.Errorf("list timestamps: %w", err)
	}
	return recs, nil
}

// GetTimestamp returns one record if requester may see it. Records the
// requester may not see are reported as ErrForbidden.
func (s *TimestampService) GetTimestamp(ctx context.Context, id string, requester *auth.Identity) (*models.TimestampRecord, error) {
	if requester == nil {
		return nil, common.ErrInvalidToken
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	rec, err := s.repomanager.Timestamps(s.db).GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("get timestamp: %w", err)
	}
	if !CanAccess(requester, rec) {
		return nil, common.ErrForbidden
	}
	return rec, nil
}

// DeleteTimestamp removes a record. Signatures already handed out stay
// verifiable offline; the archived object is kept because its key is shared
// by any later upload of the same bytes.
func (s *TimestampService) DeleteTimestamp(ctx context.Context, id string, requester *auth.Identity) error {
	rec, err := s.GetTimestamp(ctx, id, requester)
	if err != nil {
		return err
	}

	if err := s.repomanager.Timestamps(s.db).Delete(ctx, rec.ID); err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return common.ErrorNotFound
		}
		return fmt.Errorf("delete timestamp: %w", err)
	}

	s.log.Info(ctx, "timestamp deleted", "id", rec.ID, "by", requester.Subject)
	return nil
}

// DownloadURL returns a short-lived link to the archived document.
func (s *TimestampService) DownloadURL(ctx context.Context, id string, requester *auth.Identity) (string, error) {
	rec, err := s.GetTimestamp(ctx, id, requester)
	if err != nil {
		return "", err
	}
	if !s.archive.Enabled() || rec.ArchiveKey == "" {
		return "", common.ErrorNotFound
	}

	url, err := s.archive.PresignGet(ctx, rec.ArchiveKey)
	if err != nil {
		return "", fmt.Errorf("%w: presign: %v", common.ErrorInternal, err)
	}
	return url, nil
}

// Certificate returns the PEM certificate third parties verify against.
func (s *TimestampService) Certificate() []byte {
	return s.signer.CertificatePEM()
}

func sanitizeFileName(name string) string {
	name = strings.TrimSpace(strings.ReplaceAll(name, "\\", "/"))
	if name == "" {
		return unnamedFile
	}
	name = filepath.Base(name)
	if name == "." || name == "/" || name == ".." {
		return unnamedFile
	}
	if utf8.RuneCountInString(name) > maxFileNameLength {
		name = string([]rune(name)[:maxFileNameLength])
	}
	return name
}
