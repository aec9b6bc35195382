package cli

import (
	"bufio"
	"bytes"
	"context"
	"crypto/x509"
	"crypto/x509/pkix"
	"io"
	"math/big"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/api"
	"github.com/dmitrijs2005/gophstamp/internal/client/models"
	"github.com/dmitrijs2005/gophstamp/internal/client/services"
	"github.com/dmitrijs2005/gophstamp/internal/common"
)

type fakeAuth struct {
	pending services.Purpose

	mu      sync.Mutex
	pingErr error

	regUser, regEmail string
	regPass           []byte
	loginErr          error
	resent            bool
	code              string
	loggedOut         bool
	closed            bool
	restore           *services.Session
}

func (f *fakeAuth) Register(_ context.Context, username, email string, password []byte) error {
	f.regUser, f.regEmail, f.regPass = username, email, append([]byte(nil), password...)
	f.pending = services.PurposeRegistration
	return nil
}

func (f *fakeAuth) ResendRegistrationOTP(context.Context, string, []byte) error {
	f.resent = true
	f.pending = services.PurposeRegistration
	return nil
}

func (f *fakeAuth) Login(context.Context, string, []byte) error {
	if f.loginErr != nil {
		return f.loginErr
	}
	f.pending = services.PurposeLogin
	return nil
}

func (f *fakeAuth) VerifyOTP(_ context.Context, code string) (*services.Session, error) {
	if f.pending == services.PurposeNone {
		return nil, services.ErrNoPendingCode
	}
	if code != "123456" {
		return nil, common.ErrInvalidOTP
	}
	f.code = code
	f.pending = services.PurposeNone
	return &services.Session{Username: "alice", Role: "admin"}, nil
}

func (f *fakeAuth) Pending() services.Purpose { return f.pending }

func (f *fakeAuth) Restore(context.Context) (*services.Session, error) { return f.restore, nil }

func (f *fakeAuth) Me(context.Context) (*api.UserInfo, error) {
	return &api.UserInfo{Username: "alice", Email: "alice@example.com", Role: "admin", Verified: true,
		CreatedAt: time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)}, nil
}

func (f *fakeAuth) Logout(context.Context) error { f.loggedOut = true; return nil }
func (f *fakeAuth) Ping(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.pingErr
}

func (f *fakeAuth) setPingErr(err error) {
	f.mu.Lock()
	f.pingErr = err
	f.mu.Unlock()
}

func (f *fakeAuth) Close() error { f.closed = true; return nil }

type fakeStamps struct {
	receipt   *models.Receipt
	created   bool
	verify    *services.VerifyOutcome
	offErr    error
	dlErr     error
	deleted   string
	listed    [2]int
	refreshed bool
}

func (f *fakeStamps) Stamp(context.Context, string) (*models.Receipt, bool, error) {
	return f.receipt, f.created, nil
}

func (f *fakeStamps) Verify(context.Context, string) (*services.VerifyOutcome, error) {
	return f.verify, nil
}

func (f *fakeStamps) VerifyOffline(context.Context, string) (*models.Receipt, error) {
	return f.receipt, f.offErr
}

func (f *fakeStamps) List(_ context.Context, offset, limit int) ([]*models.Receipt, error) {
	f.listed = [2]int{offset, limit}
	return []*models.Receipt{f.receipt}, nil
}

func (f *fakeStamps) Saved(context.Context) ([]*models.Receipt, error) { return nil, nil }

func (f *fakeStamps) Show(_ context.Context, id string) (*models.Receipt, error) {
	if id != f.receipt.ID {
		return nil, common.ErrorNotFound
	}
	return f.receipt, nil
}

func (f *fakeStamps) Delete(_ context.Context, id string) error {
	f.deleted = id
	return nil
}

func (f *fakeStamps) Download(context.Context, string) (string, error) {
	return "/tmp/download/report.pdf", f.dlErr
}

func (f *fakeStamps) Certificate(_ context.Context, refresh bool) (*x509.Certificate, error) {
	f.refreshed = refresh
	return &x509.Certificate{
		Subject:      pkix.Name{CommonName: "gophstamp TSA"},
		Issuer:       pkix.Name{CommonName: "gophstamp TSA"},
		SerialNumber: big.NewInt(255),
		NotBefore:    time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC),
		NotAfter:     time.Date(2035, 1, 1, 0, 0, 0, 0, time.UTC),
	}, nil
}

func sampleReceipt() *models.Receipt {
	return &models.Receipt{
		ID:          "0b6f1c1e-1111-4222-8333-444455556666",
		FileName:    "report.pdf",
		Fingerprint: "ab12",
		Signature:   "c2ln",
		CreatedAt:   time.Date(2025, 3, 4, 5, 6, 7, 123456000, time.UTC),
		OwnerName:   "alice",
		Archived:    true,
	}
}

// newTestApp returns an App reading input from in and writing to the
// returned buffer.
func newTestApp(in string) (*App, *fakeAuth, *fakeStamps, *bytes.Buffer) {
	fa := &fakeAuth{}
	fs := &fakeStamps{receipt: sampleReceipt(), created: true}
	out := &bytes.Buffer{}
	a := &App{
		authService:  fa,
		stampService: fs,
		reader:       bufio.NewReader(bytes.NewBufferString(in)),
		out:          io.Writer(out),
	}
	return a, fa, fs, out
}
