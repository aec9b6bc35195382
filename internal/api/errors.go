package api

import (
	"errors"
	"fmt"
	"strings"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"google.golang.org/genproto/googleapis/rpc/errdetails"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// ErrorDomain is the ErrorInfo domain set on every status the server emits.
const ErrorDomain = "gophstamp"

// Reasons carried in errdetails.ErrorInfo.
const (
	ReasonConflict           = "CONFLICT"
	ReasonWeakPassword       = "WEAK_PASSWORD"
	ReasonInvalidArgument    = "INVALID_ARGUMENT"
	ReasonInvalidCredentials = "INVALID_CREDENTIALS"
	ReasonNotVerified        = "NOT_VERIFIED"
	ReasonInvalidOTP         = "INVALID_OTP"
	ReasonNotFound           = "NOT_FOUND"
	ReasonForbidden          = "FORBIDDEN"
	ReasonInvalidToken       = "INVALID_TOKEN"
	ReasonTokenExpired       = "TOKEN_EXPIRED"
	ReasonRateLimited        = "RATE_LIMITED"
	ReasonInternal           = "INTERNAL"
)

type errorKind struct {
	err    error
	code   codes.Code
	reason string
	// detailed kinds may show the wrapped message to the caller.
	detailed bool
}

// Order matters: ErrTokenExpired travels wrapped together with
// ErrInvalidToken and must be matched first.
var errorKinds = []errorKind{
	{common.ErrConflict, codes.AlreadyExists, ReasonConflict, false},
	{common.ErrWeakPassword, codes.InvalidArgument, ReasonWeakPassword, true},
	{common.ErrInvalidArgument, codes.InvalidArgument, ReasonInvalidArgument, true},
	{common.ErrInvalidCredentials, codes.Unauthenticated, ReasonInvalidCredentials, false},
	{common.ErrNotVerified, codes.FailedPrecondition, ReasonNotVerified, false},
	{common.ErrInvalidOTP, codes.Unauthenticated, ReasonInvalidOTP, false},
	{common.ErrorNotFound, codes.NotFound, ReasonNotFound, false},
	{common.ErrForbidden, codes.PermissionDenied, ReasonForbidden, false},
	{common.ErrTokenExpired, codes.Unauthenticated, ReasonTokenExpired, false},
	{common.ErrInvalidToken, codes.Unauthenticated, ReasonInvalidToken, false},
	{common.ErrRateLimited, codes.ResourceExhausted, ReasonRateLimited, false},
}

// ToStatus converts a service error into a gRPC status error. Unknown
// errors become Internal without their text.
func ToStatus(err error) error {
	if err == nil {
		return nil
	}
	if _, ok := status.FromError(err); ok {
		return err
	}

	code, reason, msg := codes.Internal, ReasonInternal, common.ErrorInternal.Error()
	for _, k := range errorKinds {
		if errors.Is(err, k.err) {
			code, reason, msg = k.code, k.reason, k.err.Error()
			if k.detailed {
				msg = err.Error()
			}
			break
		}
	}

	st := status.New(code, msg)
	if withInfo, derr := st.WithDetails(&errdetails.ErrorInfo{Reason: reason, Domain: ErrorDomain}); derr == nil {
		st = withInfo
	}
	return st.Err()
}

// Reason returns the ErrorInfo reason attached to a status error, if any.
func Reason(err error) string {
	st, ok := status.FromError(err)
	if !ok {
		return ""
	}
	for _, d := range st.Details() {
		if info, ok := d.(*errdetails.ErrorInfo); ok && info.GetDomain() == ErrorDomain {
			return info.GetReason()
		}
	}
	return ""
}

// FromStatus decodes a status error produced by ToStatus back into the
// matching common sentinel, keeping the server message.
func FromStatus(err error) error {
	if err == nil {
		return nil
	}
	st, ok := status.FromError(err)
	if !ok {
		return err
	}

	reason := Reason(err)
	switch reason {
	case ReasonTokenExpired:
		return fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
	case ReasonInternal:
		return common.ErrorInternal
	}
	for _, k := range errorKinds {
		if k.reason != reason {
			continue
		}
		if k.detailed && st.Message() != k.err.Error() {
			return fmt.Errorf("%w: %s", k.err, strings.TrimPrefix(st.Message(), k.err.Error()+": "))
		}
		return k.err
	}

	switch st.Code() {
	case codes.Unavailable, codes.DeadlineExceeded:
		return fmt.Errorf("%w: %s", ErrUnavailable, st.Message())
	}
	return err
}

// ErrUnavailable is returned when the server cannot be reached.
var ErrUnavailable = errors.New("server unavailable")
