package api

import (
	"errors"
	"fmt"
	"testing"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestToStatus_CodesAndReasons(t *testing.T) {
	tests := []struct {
		err    error
		code   codes.Code
		reason string
	}{
		{common.ErrConflict, codes.AlreadyExists, ReasonConflict},
		{fmt.Errorf("register: %w", common.ErrConflict), codes.AlreadyExists, ReasonConflict},
		{common.ErrWeakPassword, codes.InvalidArgument, ReasonWeakPassword},
		{common.ErrInvalidCredentials, codes.Unauthenticated, ReasonInvalidCredentials},
		{common.ErrNotVerified, codes.FailedPrecondition, ReasonNotVerified},
		{common.ErrInvalidOTP, codes.Unauthenticated, ReasonInvalidOTP},
		{common.ErrorNotFound, codes.NotFound, ReasonNotFound},
		{common.ErrForbidden, codes.PermissionDenied, ReasonForbidden},
		{common.ErrInvalidToken, codes.Unauthenticated, ReasonInvalidToken},
		{fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired), codes.Unauthenticated, ReasonTokenExpired},
		{common.ErrRateLimited, codes.ResourceExhausted, ReasonRateLimited},
		{errors.New("pq: connection refused"), codes.Internal, ReasonInternal},
	}
	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			err := ToStatus(tt.err)
			assert.Equal(t, tt.code, status.Code(err))
			assert.Equal(t, tt.reason, Reason(err))
		})
	}
}

func TestToStatus_DoesNotLeakInternals(t *testing.T) {
	err := ToStatus(fmt.Errorf("db error: %w", errors.New("password=hunter2")))
	st, _ := status.FromError(err)
	assert.Equal(t, common.ErrorInternal.Error(), st.Message())

	err = ToStatus(fmt.Errorf("lookup: %w: user table", common.ErrorNotFound))
	st, _ = status.FromError(err)
	assert.Equal(t, common.ErrorNotFound.Error(), st.Message())
}

func TestToStatus_PassesStatusThrough(t *testing.T) {
	in := status.Error(codes.Canceled, "gone")
	assert.Equal(t, in, ToStatus(in))
	assert.NoError(t, ToStatus(nil))
}

func TestFromStatus_RoundTrip(t *testing.T) {
	for _, sentinel := range []error{
		common.ErrConflict, common.ErrWeakPassword, common.ErrInvalidArgument, common.ErrInvalidCredentials,
		common.ErrNotVerified, common.ErrInvalidOTP, common.ErrorNotFound, common.ErrForbidden,
		common.ErrInvalidToken, common.ErrRateLimited,
	} {
		got := FromStatus(ToStatus(fmt.Errorf("ctx: %w", sentinel)))
		require.ErrorIs(t, got, sentinel)
	}

	expired := FromStatus(ToStatus(fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)))
	require.ErrorIs(t, expired, common.ErrTokenExpired)
	require.ErrorIs(t, expired, common.ErrInvalidToken)

	require.ErrorIs(t, FromStatus(ToStatus(errors.New("boom"))), common.ErrorInternal)
}

func TestFromStatus_KeepsPolicyDetail(t *testing.T) {
	err := FromStatus(ToStatus(fmt.Errorf("%w: username must be 1-64 characters", common.ErrInvalidArgument)))
	require.ErrorIs(t, err, common.ErrInvalidArgument)
	assert.Contains(t, err.Error(), "username must be 1-64 characters")
}

func TestFromStatus_PlainStatuses(t *testing.T) {
	require.ErrorIs(t, FromStatus(status.Error(codes.Unavailable, "connection refused")), ErrUnavailable)
	require.ErrorIs(t, FromStatus(status.Error(codes.DeadlineExceeded, "context deadline exceeded")), ErrUnavailable)

	other := status.Error(codes.Aborted, "slow")
	assert.Equal(t, other, FromStatus(other))

	plain := errors.New("plain")
	assert.Equal(t, plain, FromStatus(plain))
	assert.NoError(t, FromStatus(nil))
}
