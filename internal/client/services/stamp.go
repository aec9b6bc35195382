package services

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/api"
	"github.com/dmitrijs2005/gophstamp/internal/client/client"
	"github.com/dmitrijs2005/gophstamp/internal/client/models"
	"github.com/dmitrijs2005/gophstamp/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophstamp/internal/client/repositories/receipts"
	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/filex"
	"github.com/dmitrijs2005/gophstamp/internal/fingerprint"
	"github.com/dmitrijs2005/gophstamp/internal/netx"
	"github.com/dmitrijs2005/gophstamp/internal/stampx"
)

var (
	// ErrNoReceipt is returned by offline verification when no receipt for
	// the document was saved locally.
	ErrNoReceipt = errors.New("no saved receipt for this document")
	// ErrSignatureMismatch means the receipt does not verify under the
	// server certificate.
	ErrSignatureMismatch = errors.New("signature does not match the server certificate")
	// ErrContentMismatch means a downloaded original hashes differently
	// from its record.
	ErrContentMismatch = errors.New("downloaded content does not match the recorded fingerprint")
)

// VerifyOutcome is the result of an online verification.
type VerifyOutcome struct {
	Fingerprint string
	Receipt     *models.Receipt
	// ServerValid is the server's own signature check.
	ServerValid bool
	// LocalValid is the check against the cached certificate.
	LocalValid bool
}

// StampService defines the document operations of the CLI.
type StampService interface {
	Stamp(ctx context.Context, path string) (*models.Receipt, bool, error)
	Verify(ctx context.Context, path string) (*VerifyOutcome, error)
	VerifyOffline(ctx context.Context, path string) (*models.Receipt, error)
	List(ctx context.Context, offset, limit int) ([]*models.Receipt, error)
	Saved(ctx context.Context) ([]*models.Receipt, error)
	Show(ctx context.Context, id string) (*models.Receipt, error)
	Delete(ctx context.Context, id string) error
	Download(ctx context.Context, id string) (string, error)
	Certificate(ctx context.Context, refresh bool) (*x509.Certificate, error)
}

type stampService struct {
	client      client.Client
	meta        metadata.Repository
	receipts    receipts.Repository
	downloadDir string
	httpClient  *http.Client
	now         func() time.Time
}

// NewStampService wires the document operations. Downloads land in
// downloadDir (relative to the working directory unless absolute).
func NewStampService(c client.Client, meta metadata.Repository, rr receipts.Repository, downloadDir string) StampService {
	return &stampService{
		client:      c,
		meta:        meta,
		receipts:    rr,
		downloadDir: downloadDir,
		httpClient:  &http.Client{Timeout: 5 * time.Minute},
		now:         time.Now,
	}
}

func (s *stampService) receipt(ts *api.Timestamp) *models.Receipt {
	return &models.Receipt{
		ID:          ts.ID,
		FileName:    ts.FileName,
		Fingerprint: ts.Fingerprint,
		Signature:   ts.Signature,
		CreatedAt:   ts.CreatedAt,
		OwnerName:   ts.OwnerName,
		Archived:    ts.Archived,
		SavedAt:     s.now(),
	}
}

func (s *stampService) keep(ctx context.Context, ts *api.Timestamp) (*models.Receipt, error) {
	rc := s.receipt(ts)
	if err := s.receipts.Save(ctx, rc); err != nil {
		return nil, err
	}
	return rc, nil
}

// Stamp uploads the file at path and saves the returned receipt. created is
// false when the document had been stamped before.
func (s *stampService) Stamp(ctx context.Context, path string) (*models.Receipt, bool, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, false, err
	}

	ts, created, err := s.client.CreateTimestamp(ctx, filepath.Base(path), content)
	if err != nil {
		return nil, false, err
	}

	rc, err := s.keep(ctx, ts)
	if err != nil {
		return nil, false, err
	}
	return rc, created, nil
}

func (s *stampService) Verify(ctx context.Context, path string) (*VerifyOutcome, error) {
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	resp, err := s.client.VerifyTimestamp(ctx, content)
	if err != nil {
		return nil, err
	}

	out := &VerifyOutcome{
		Fingerprint: resp.Fingerprint,
		Receipt:     s.receipt(&resp.Timestamp),
		ServerValid: resp.Valid,
	}

	cert, err := s.Certificate(ctx, false)
	if err != nil {
		return nil, err
	}
	out.LocalValid = resp.Fingerprint == resp.Timestamp.Fingerprint &&
		stampx.VerifyWithCertificate(cert, resp.Timestamp.Fingerprint, resp.Timestamp.CreatedAt, resp.Timestamp.Signature)
	return out, nil
}

// VerifyOffline checks path against the locally saved receipt and the
// cached certificate without contacting the server.
func (s *stampService) VerifyOffline(ctx context.Context, path string) (*models.Receipt, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	fp, err := fingerprint.FromReader(f)
	if err != nil {
		return nil, err
	}

	rc, err := s.receipts.GetByFingerprint(ctx, fp)
	if errors.Is(err, common.ErrorNotFound) {
		return nil, ErrNoReceipt
	}
	if err != nil {
		return nil, err
	}

	cert, err := s.cachedCertificate(ctx)
	if err != nil {
		return nil, err
	}
	if !stampx.VerifyWithCertificate(cert, rc.Fingerprint, rc.CreatedAt, rc.Signature) {
		return rc, ErrSignatureMismatch
	}
	return rc, nil
}

// List returns the server-side records visible to the session. Listed
// records are not saved locally.
func (s *stampService) List(ctx context.Context, offset, limit int) ([]*models.Receipt, error) {
	items, err := s.client.ListTimestamps(ctx, offset, limit)
	if err != nil {
		return nil, err
	}
	out := make([]*models.Receipt, 0, len(items))
	for i := range items {
		out = append(out, s.receipt(&items[i]))
	}
	return out, nil
}

func (s *stampService) Saved(ctx context.Context) ([]*models.Receipt, error) {
	return s.receipts.List(ctx)
}

// Show fetches one record and saves it as a receipt.
func (s *stampService) Show(ctx context.Context, id string) (*models.Receipt, error) {
	ts, err := s.client.GetTimestamp(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.keep(ctx, ts)
}

func (s *stampService) Delete(ctx context.Context, id string) error {
	if err := s.client.DeleteTimestamp(ctx, id); err != nil {
		return err
	}
	return s.receipts.DeleteByID(ctx, id)
}

// Download fetches the archived original of id into the download directory
// and checks it against the recorded fingerprint. It returns the file path.
func (s *stampService) Download(ctx context.Context, id string) (string, error) {
	ts, err := s.client.GetTimestamp(ctx, id)
	if err != nil {
		return "", err
	}
	url, err := s.client.GetDownloadURL(ctx, id)
	if err != nil {
		return "", err
	}

	dir, err := filex.EnsureSubdDir(s.downloadDir)
	if err != nil {
		return "", err
	}
	path, err := filex.FreePath(dir, ts.FileName)
	if err != nil {
		return "", err
	}

	if _, err := netx.DownloadTo(ctx, s.httpClient, url, path); err != nil {
		return "", err
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return "", err
	}
	if fingerprint.Of(content) != ts.Fingerprint {
		return path, ErrContentMismatch
	}
	return path, nil
}

// Certificate returns the server certificate, fetching and caching it when
// it is not cached yet or refresh is set.
func (s *stampService) Certificate(ctx context.Context, refresh bool) (*x509.Certificate, error) {
	if !refresh {
		pem, err := s.meta.Get(ctx, metadata.KeyCertificate)
		if err != nil {
			return nil, err
		}
		if len(pem) > 0 {
			return stampx.ParseCertificatePEM(pem)
		}
	}

	pem, err := s.client.GetCertificate(ctx)
	if err != nil {
		return nil, err
	}
	cert, err := stampx.ParseCertificatePEM(pem)
	if err != nil {
		return nil, fmt.Errorf("server certificate: %w", err)
	}

	if err := s.meta.Set(ctx, metadata.KeyCertificate, pem); err != nil {
		return nil, err
	}
	return cert, nil
}

// cachedCertificate never touches the network.
func (s *stampService) cachedCertificate(ctx context.Context) (*x509.Certificate, error) {
	pem, err := s.meta.Get(ctx, metadata.KeyCertificate)
	if err != nil {
		return nil, err
	}
	if len(pem) == 0 {
		return nil, errors.New("no cached server certificate; run 'cert' while online")
	}
	return stampx.ParseCertificatePEM(pem)
}
