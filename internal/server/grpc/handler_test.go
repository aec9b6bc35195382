package grpc

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/api"
	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/server/auth"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
	"github.com/dmitrijs2005/gophstamp/internal/server/services"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestPing_OK(t *testing.T) {
	s := newServer(&fakeAuth{}, &fakeStamps{})
	resp, err := s.Ping(context.Background(), &api.PingRequest{})
	require.NoError(t, err)
	assert.Equal(t, "OK", resp.Status)
}

func TestRegister_OK(t *testing.T) {
	a := &fakeAuth{result: &services.AuthResult{Token: "tmp", RequiresOTP: true, UserID: "u1", Role: models.RoleUser}}
	s := newServer(a, &fakeStamps{})

	resp, err := s.Register(context.Background(), &api.RegisterRequest{Username: "alice", Password: "p", Email: "e"})
	require.NoError(t, err)
	assert.Equal(t, &api.AuthResponse{Token: "tmp", RequiresOTP: true, UserID: "u1", Role: "user"}, resp)
	assert.Equal(t, "alice", a.lastUsername)
}

func TestAuthHandlers_MapErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code codes.Code
	}{
		{"conflict", common.ErrConflict, codes.AlreadyExists},
		{"weak", common.ErrWeakPassword, codes.InvalidArgument},
		{"credentials", common.ErrInvalidCredentials, codes.Unauthenticated},
		{"not verified", common.ErrNotVerified, codes.FailedPrecondition},
		{"otp", common.ErrInvalidOTP, codes.Unauthenticated},
		{"internal", errors.New("db down"), codes.Internal},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newServer(&fakeAuth{err: tt.err}, &fakeStamps{})
			ctx := context.Background()

			_, err := s.Register(ctx, &api.RegisterRequest{})
			assert.Equal(t, tt.code, status.Code(err))
			_, err = s.Login(ctx, &api.LoginRequest{})
			assert.Equal(t, tt.code, status.Code(err))
			_, err = s.VerifyLoginOTP(ctx, &api.VerifyOTPRequest{})
			assert.Equal(t, tt.code, status.Code(err))
			_, err = s.VerifyRegistrationOTP(ctx, &api.VerifyOTPRequest{})
			assert.Equal(t, tt.code, status.Code(err))
			_, err = s.ResendRegistrationOTP(ctx, &api.ResendOTPRequest{})
			assert.Equal(t, tt.code, status.Code(err))
		})
	}
}

func TestCreateTimestamp_UsesContextIdentity(t *testing.T) {
	created := time.Date(2024, 3, 4, 5, 6, 7, 891000, time.UTC)
	st := &fakeStamps{
		rec: &models.TimestampRecord{
			ID: "r1", FileName: "a.txt", Fingerprint: "fp", Signature: "sig",
			CreatedAt: created, OwnerID: "alice-id", OwnerName: "alice", ArchiveKey: "documents/fp",
		},
		created: true,
	}
	s := newServer(&fakeAuth{}, st)
	id := &auth.Identity{Subject: "alice-id", Role: models.RoleUser}

	resp, err := s.CreateTimestamp(withIdentity(context.Background(), id), &api.CreateTimestampRequest{FileName: "a.txt", Content: []byte("x")})
	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.Equal(t, api.Timestamp{
		ID: "r1", FileName: "a.txt", Fingerprint: "fp", Signature: "sig",
		CreatedAt: created, OwnerID: "alice-id", OwnerName: "alice", Archived: true,
	}, resp.Timestamp)
	assert.Same(t, id, st.lastRequester)
}

func TestCreateTimestamp_EmptyDocumentIsAccepted(t *testing.T) {
	st := &fakeStamps{rec: &models.TimestampRecord{ID: "r1", FileName: "empty.txt"}, created: true}
	s := newServer(&fakeAuth{}, st)

	resp, err := s.CreateTimestamp(context.Background(), &api.CreateTimestampRequest{FileName: "empty.txt", Content: []byte{}})
	require.NoError(t, err)
	assert.True(t, resp.Created)
	assert.Equal(t, "r1", resp.Timestamp.ID)
	assert.NotNil(t, st.lastContent)
	assert.Empty(t, st.lastContent)
}

func TestVerifyTimestamp(t *testing.T) {
	st := &fakeStamps{verify: &services.VerifyResult{
		Valid: true, Fingerprint: "fp", Record: &models.TimestampRecord{ID: "r1", OwnerName: "alice"},
	}}
	s := newServer(&fakeAuth{}, st)

	resp, err := s.VerifyTimestamp(context.Background(), &api.VerifyTimestampRequest{Content: []byte("doc")})
	require.NoError(t, err)
	assert.True(t, resp.Valid)
	assert.Equal(t, "alice", resp.Timestamp.OwnerName)
	assert.Equal(t, []byte("doc"), st.lastContent)

	st.err = common.ErrorNotFound
	_, err = s.VerifyTimestamp(context.Background(), &api.VerifyTimestampRequest{Content: []byte("doc")})
	assert.Equal(t, codes.NotFound, status.Code(err))
}

func TestListTimestamps(t *testing.T) {
	st := &fakeStamps{recs: []*models.TimestampRecord{{ID: "1"}, {ID: "2"}}}
	s := newServer(&fakeAuth{}, st)

	resp, err := s.ListTimestamps(context.Background(), &api.ListTimestampsRequest{Offset: 5, Limit: 7})
	require.NoError(t, err)
	assert.Len(t, resp.Timestamps, 2)
	assert.Equal(t, 5, st.lastOffset)
	assert.Equal(t, 7, st.lastLimit)

	st.recs = nil
	resp, err = s.ListTimestamps(context.Background(), &api.ListTimestampsRequest{})
	require.NoError(t, err)
	assert.NotNil(t, resp.Timestamps)
}

func TestDeleteAndDownload_MapErrors(t *testing.T) {
	st := &fakeStamps{err: common.ErrForbidden}
	s := newServer(&fakeAuth{}, st)
	ctx := context.Background()

	_, err := s.DeleteTimestamp(ctx, &api.DeleteTimestampRequest{ID: "x"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	_, err = s.GetDownloadURL(ctx, &api.GetDownloadURLRequest{ID: "x"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))
	_, err = s.GetTimestamp(ctx, &api.GetTimestampRequest{ID: "x"})
	assert.Equal(t, codes.PermissionDenied, status.Code(err))

	st.err = nil
	st.url = "https://example/x"
	resp, err := s.GetDownloadURL(ctx, &api.GetDownloadURLRequest{ID: "x"})
	require.NoError(t, err)
	assert.Equal(t, "https://example/x", resp.URL)
}

func TestGetCertificate(t *testing.T) {
	s := newServer(&fakeAuth{}, &fakeStamps{})
	resp, err := s.GetCertificate(context.Background(), &api.GetCertificateRequest{})
	require.NoError(t, err)
	assert.Contains(t, resp.PEM, "BEGIN CERTIFICATE")
}

func TestMessageLimit(t *testing.T) {
	assert.Equal(t, 4<<20, messageLimit(0))
	assert.Greater(t, messageLimit(32<<20), 32<<20)
}
