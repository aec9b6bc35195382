package services

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/base64"
	"encoding/pem"
	"math/big"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/api"
	"github.com/dmitrijs2005/gophstamp/internal/client/client"
	"github.com/dmitrijs2005/gophstamp/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophstamp/internal/client/repositories/receipts"
	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/fingerprint"
	"github.com/dmitrijs2005/gophstamp/internal/stampx"
	"github.com/stretchr/testify/require"
)

// testAuthority plays the server's signing key for the fake client.
type testAuthority struct {
	key     *rsa.PrivateKey
	cert    *x509.Certificate
	certPEM []byte
}

var testSigner *testAuthority

func TestMain(m *testing.M) {
	key, err := rsa.GenerateKey(rand.Reader, 1024)
	if err != nil {
		panic(err)
	}
	tmpl := &x509.Certificate{
		SerialNumber: big.NewInt(1),
		Subject:      pkix.Name{CommonName: "test tsa"},
		NotBefore:    time.Now().Add(-time.Hour),
		NotAfter:     time.Now().Add(time.Hour),
	}
	der, err := x509.CreateCertificate(rand.Reader, tmpl, tmpl, &key.PublicKey, key)
	if err != nil {
		panic(err)
	}
	cert, err := x509.ParseCertificate(der)
	if err != nil {
		panic(err)
	}
	testSigner = &testAuthority{
		key:     key,
		cert:    cert,
		certPEM: pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der}),
	}

	os.Exit(m.Run())
}

func (a *testAuthority) Sign(digest string, ts time.Time) (string, error) {
	sig, err := rsa.SignPKCS1v15(rand.Reader, a.key, crypto.SHA256, stampx.Digest(digest, ts))
	if err != nil {
		return "", err
	}
	return base64.StdEncoding.EncodeToString(sig), nil
}

func (a *testAuthority) Verify(digest string, ts time.Time, signature string) bool {
	return stampx.VerifyWithCertificate(a.cert, digest, ts, signature)
}

func (a *testAuthority) CertificatePEM() []byte { return a.certPEM }

// fakeClient is an in-memory StampService that signs with testSigner.
type fakeClient struct {
	token  string
	closed bool

	authErr   error
	verifyErr error
	calls     []string

	records     map[string]*api.Timestamp
	downloadURL string
	certPEM     []byte
}

var _ client.Client = (*fakeClient)(nil)

func newFakeClient() *fakeClient {
	return &fakeClient{records: map[string]*api.Timestamp{}, certPEM: testSigner.CertificatePEM()}
}

func (f *fakeClient) Close() error          { f.closed = true; return nil }
func (f *fakeClient) SetToken(token string) { f.token = token }

func (f *fakeClient) pending(call string) (*api.AuthResponse, error) {
	f.calls = append(f.calls, call)
	if f.authErr != nil {
		return nil, f.authErr
	}
	return &api.AuthResponse{Token: "temp-" + call, RequiresOTP: true}, nil
}

func (f *fakeClient) session(call, temp, code string) (*api.AuthResponse, error) {
	f.calls = append(f.calls, call+":"+temp)
	if f.verifyErr != nil {
		return nil, f.verifyErr
	}
	if code != "123456" {
		return nil, common.ErrInvalidOTP
	}
	return &api.AuthResponse{Token: "session-token", Role: "user", UserID: "u1"}, nil
}

func (f *fakeClient) Register(_ context.Context, _, _ string, _ []byte) (*api.AuthResponse, error) {
	return f.pending("register")
}

func (f *fakeClient) ResendRegistrationOTP(_ context.Context, _ string, _ []byte) (*api.AuthResponse, error) {
	return f.pending("resend")
}

func (f *fakeClient) VerifyRegistrationOTP(_ context.Context, temp, code string) (*api.AuthResponse, error) {
	return f.session("verify-registration", temp, code)
}

func (f *fakeClient) Login(_ context.Context, _ string, _ []byte) (*api.AuthResponse, error) {
	return f.pending("login")
}

func (f *fakeClient) VerifyLoginOTP(_ context.Context, temp, code string) (*api.AuthResponse, error) {
	return f.session("verify-login", temp, code)
}

func (f *fakeClient) Me(context.Context) (*api.UserInfo, error) {
	if f.token == "" {
		return nil, common.ErrInvalidToken
	}
	return &api.UserInfo{ID: "u1", Username: "alice", Role: "user", Verified: true}, nil
}

func (f *fakeClient) CreateTimestamp(_ context.Context, fileName string, content []byte) (*api.Timestamp, bool, error) {
	fp := fingerprint.Of(content)
	for _, ts := range f.records {
		if ts.Fingerprint == fp {
			return ts, false, nil
		}
	}
	now := stampx.Canonical(time.Now())
	sig, err := testSigner.Sign(fp, now)
	if err != nil {
		return nil, false, err
	}
	ts := &api.Timestamp{
		ID:          "id-" + fp[:8],
		FileName:    fileName,
		Fingerprint: fp,
		Signature:   sig,
		CreatedAt:   now,
		OwnerName:   "alice",
		Archived:    true,
	}
	f.records[ts.ID] = ts
	return ts, true, nil
}

func (f *fakeClient) VerifyTimestamp(_ context.Context, content []byte) (*api.VerifyTimestampResponse, error) {
	fp := fingerprint.Of(content)
	for _, ts := range f.records {
		if ts.Fingerprint == fp {
			return &api.VerifyTimestampResponse{Valid: testSigner.Verify(fp, ts.CreatedAt, ts.Signature), Fingerprint: fp, Timestamp: *ts}, nil
		}
	}
	return nil, common.ErrorNotFound
}

func (f *fakeClient) ListTimestamps(_ context.Context, _, _ int) ([]api.Timestamp, error) {
	out := make([]api.Timestamp, 0, len(f.records))
	for _, ts := range f.records {
		out = append(out, *ts)
	}
	return out, nil
}

func (f *fakeClient) GetTimestamp(_ context.Context, id string) (*api.Timestamp, error) {
	ts, ok := f.records[id]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return ts, nil
}

func (f *fakeClient) DeleteTimestamp(_ context.Context, id string) error {
	if _, ok := f.records[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.records, id)
	return nil
}

func (f *fakeClient) GetDownloadURL(_ context.Context, id string) (string, error) {
	if _, ok := f.records[id]; !ok {
		return "", common.ErrorNotFound
	}
	return f.downloadURL, nil
}

func (f *fakeClient) GetCertificate(context.Context) ([]byte, error) {
	f.calls = append(f.calls, "certificate")
	return f.certPEM, nil
}

func (f *fakeClient) Ping(context.Context) error { return nil }

type stores struct {
	meta     *metadata.SQLiteRepository
	receipts *receipts.SQLiteRepository
}

func openStores(t *testing.T) stores {
	t.Helper()
	db, err := client.InitDatabase(context.Background(), filepath.Join(t.TempDir(), "client.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return stores{meta: metadata.NewSQLiteRepository(db), receipts: receipts.NewSQLiteRepository(db)}
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}
