package grpc

import (
	"context"
	"net"
	"testing"

	"github.com/dmitrijs2005/gophstamp/internal/api"
	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/logging"
	"github.com/dmitrijs2005/gophstamp/internal/server/auth"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
	"github.com/dmitrijs2005/gophstamp/internal/server/services"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/test/bufconn"
)

// fakeAuth accepts "good-session" and "admin-session" as session tokens.
type fakeAuth struct {
	result *services.AuthResult
	err    error
	user   *models.User

	lastUsername string
	lastCode     string
}

func (f *fakeAuth) Register(_ context.Context, username, _, _ string) (*services.AuthResult, error) {
	f.lastUsername = username
	return f.result, f.err
}

func (f *fakeAuth) VerifyRegistrationOTP(_ context.Context, _, code string) (*services.AuthResult, error) {
	f.lastCode = code
	return f.result, f.err
}

func (f *fakeAuth) ResendRegistrationOTP(_ context.Context, username, _ string) (*services.AuthResult, error) {
	f.lastUsername = username
	return f.result, f.err
}

func (f *fakeAuth) Login(_ context.Context, username, _ string) (*services.AuthResult, error) {
	f.lastUsername = username
	return f.result, f.err
}

func (f *fakeAuth) VerifyLoginOTP(_ context.Context, _, code string) (*services.AuthResult, error) {
	f.lastCode = code
	return f.result, f.err
}

func (f *fakeAuth) Authenticate(_ context.Context, token string) (*auth.Identity, error) {
	switch token {
	case "good-session":
		return &auth.Identity{Subject: "alice-id", Role: models.RoleUser}, nil
	case "admin-session":
		return &auth.Identity{Subject: "admin-id", Role: models.RoleAdmin}, nil
	}
	return nil, common.ErrInvalidToken
}

func (f *fakeAuth) Me(_ context.Context, id *auth.Identity) (*models.User, error) {
	if f.user == nil {
		return &models.User{ID: id.Subject, UserName: "alice", Role: id.Role}, nil
	}
	return f.user, nil
}

type fakeStamps struct {
	rec     *models.TimestampRecord
	created bool
	recs    []*models.TimestampRecord
	verify  *services.VerifyResult
	url     string
	err     error

	lastRequester *auth.Identity
	lastContent   []byte
	lastOffset    int
	lastLimit     int
}

func (f *fakeStamps) CreateTimestamp(_ context.Context, _ string, content []byte, id *auth.Identity) (*models.TimestampRecord, bool, error) {
	f.lastRequester, f.lastContent = id, content
	return f.rec, f.created, f.err
}

func (f *fakeStamps) VerifyTimestamp(_ context.Context, content []byte) (*services.VerifyResult, error) {
	f.lastContent = content
	return f.verify, f.err
}

func (f *fakeStamps) ListTimestamps(_ context.Context, id *auth.Identity, offset, limit int) ([]*models.TimestampRecord, error) {
	f.lastRequester, f.lastOffset, f.lastLimit = id, offset, limit
	return f.recs, f.err
}

func (f *fakeStamps) GetTimestamp(_ context.Context, _ string, id *auth.Identity) (*models.TimestampRecord, error) {
	f.lastRequester = id
	return f.rec, f.err
}

func (f *fakeStamps) DeleteTimestamp(_ context.Context, _ string, id *auth.Identity) error {
	f.lastRequester = id
	return f.err
}

func (f *fakeStamps) DownloadURL(_ context.Context, _ string, id *auth.Identity) (string, error) {
	f.lastRequester = id
	return f.url, f.err
}

func (f *fakeStamps) Certificate() []byte {
	return []byte("-----BEGIN CERTIFICATE-----\nabc\n-----END CERTIFICATE-----\n")
}

func newServer(a *fakeAuth, s *fakeStamps) *GRPCServer {
	return NewGRPCServer("127.0.0.1:0", logging.Nop{}, a, s, NoLimits, 1<<20)
}

// startBufconn serves srv over an in-memory listener and returns a client.
func startBufconn(t *testing.T, srv *GRPCServer) (*api.StampServiceClient, *grpc.ClientConn) {
	t.Helper()
	lis := bufconn.Listen(1 << 20)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- srv.Serve(ctx, lis) }()
	t.Cleanup(func() {
		cancel()
		<-done
	})

	conn, err := grpc.NewClient("passthrough:///bufnet",
		grpc.WithContextDialer(func(ctx context.Context, _ string) (net.Conn, error) { return lis.DialContext(ctx) }),
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })

	return api.NewStampServiceClient(conn), conn
}
