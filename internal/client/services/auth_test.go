package services

import (
	"context"
	"testing"

	"github.com/dmitrijs2005/gophstamp/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAuth_RegisterThenVerifyStoresSession(t *testing.T) {
	st := openStores(t)
	fc := newFakeClient()
	svc := NewAuthService(fc, st.meta)
	ctx := context.Background()

	require.NoError(t, svc.Register(ctx, "alice", "alice@example.com", []byte("Secret#1")))
	assert.Equal(t, PurposeRegistration, svc.Pending())

	s, err := svc.VerifyOTP(ctx, "123456")
	require.NoError(t, err)
	assert.Equal(t, &Session{Username: "alice", Role: "user"}, s)
	assert.Equal(t, PurposeNone, svc.Pending())
	assert.Equal(t, "session-token", fc.token)
	assert.Contains(t, fc.calls, "verify-registration:temp-register")

	tok, err := st.meta.Get(ctx, metadata.KeySessionToken)
	require.NoError(t, err)
	assert.Equal(t, "session-token", string(tok))
}

func TestAuth_LoginUsesLoginVerification(t *testing.T) {
	st := openStores(t)
	fc := newFakeClient()
	svc := NewAuthService(fc, st.meta)
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "alice", []byte("Secret#1")))
	assert.Equal(t, PurposeLogin, svc.Pending())
	assert.Empty(t, fc.token, "no session before the code")

	_, err := svc.VerifyOTP(ctx, "123456")
	require.NoError(t, err)
	assert.Contains(t, fc.calls, "verify-login:temp-login")
}

func TestAuth_WrongCodeKeepsPending(t *testing.T) {
	st := openStores(t)
	svc := NewAuthService(newFakeClient(), st.meta)
	ctx := context.Background()

	require.NoError(t, svc.Login(ctx, "alice", []byte("Secret#1")))
	_, err := svc.VerifyOTP(ctx, "000000")
	require.ErrorIs(t, err, common.ErrInvalidOTP)
	assert.Equal(t, PurposeLogin, svc.Pending())

	_, err = svc.VerifyOTP(ctx, "123456")
	require.NoError(t, err)
}

func TestAuth_VerifyWithoutPendingCode(t *testing.T) {
	st := openStores(t)
	svc := NewAuthService(newFakeClient(), st.meta)

	_, err := svc.VerifyOTP(context.Background(), "123456")
	require.ErrorIs(t, err, ErrNoPendingCode)
}

func TestAuth_FailedLoginLeavesNothingPending(t *testing.T) {
	st := openStores(t)
	fc := newFakeClient()
	fc.authErr = common.ErrInvalidCredentials
	svc := NewAuthService(fc, st.meta)

	err := svc.Login(context.Background(), "alice", []byte("nope"))
	require.ErrorIs(t, err, common.ErrInvalidCredentials)
	assert.Equal(t, PurposeNone, svc.Pending())
}

func TestAuth_ResendSwitchesToRegistration(t *testing.T) {
	st := openStores(t)
	fc := newFakeClient()
	svc := NewAuthService(fc, st.meta)
	ctx := context.Background()

	require.NoError(t, svc.ResendRegistrationOTP(ctx, "alice", []byte("Secret#1")))
	assert.Equal(t, PurposeRegistration, svc.Pending())

	_, err := svc.VerifyOTP(ctx, "123456")
	require.NoError(t, err)
	assert.Contains(t, fc.calls, "verify-registration:temp-resend")
}

func TestAuth_RestoreAndLogout(t *testing.T) {
	st := openStores(t)
	ctx := context.Background()

	first := NewAuthService(newFakeClient(), st.meta)
	require.NoError(t, first.Login(ctx, "alice", []byte("Secret#1")))
	_, err := first.VerifyOTP(ctx, "123456")
	require.NoError(t, err)

	fc := newFakeClient()
	second := NewAuthService(fc, st.meta)
	s, err := second.Restore(ctx)
	require.NoError(t, err)
	require.NotNil(t, s)
	assert.Equal(t, "alice", s.Username)
	assert.Equal(t, "session-token", fc.token)

	me, err := second.Me(ctx)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)

	require.NoError(t, second.Logout(ctx))
	assert.Empty(t, fc.token)

	s, err = NewAuthService(newFakeClient(), st.meta).Restore(ctx)
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestAuth_Close(t *testing.T) {
	fc := newFakeClient()
	require.NoError(t, NewAuthService(fc, openStores(t).meta).Close())
	assert.True(t, fc.closed)
}

func TestSession_IsAdmin(t *testing.T) {
	assert.True(t, (&Session{Role: "admin"}).IsAdmin())
	assert.False(t, (&Session{Role: "user"}).IsAdmin())
	assert.False(t, (*Session)(nil).IsAdmin())
}
