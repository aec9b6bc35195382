package grpc

import (
	"context"
	"net"
	"strings"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/api"
	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/server/auth"
	"github.com/dmitrijs2005/gophstamp/internal/server/metrics"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/peer"
	"google.golang.org/grpc/status"
)

type ctxKey string

const identityKey ctxKey = "identity"

// publicMethods need no session token.
var publicMethods = map[string]bool{
	api.MethodRegister:              true,
	api.MethodVerifyRegistrationOTP: true,
	api.MethodResendRegistrationOTP: true,
	api.MethodLogin:                 true,
	api.MethodVerifyLoginOTP:        true,
	api.MethodVerifyTimestamp:       true,
	api.MethodGetCertificate:        true,
	api.MethodPing:                  true,
}

func withIdentity(ctx context.Context, id *auth.Identity) context.Context {
	return context.WithValue(ctx, identityKey, id)
}

// identityFromContext returns the identity the access token interceptor
// stored, or nil on public methods.
func identityFromContext(ctx context.Context) *auth.Identity {
	id, _ := ctx.Value(identityKey).(*auth.Identity)
	return id
}

func bearerToken(ctx context.Context) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	values := md.Get(common.AuthorizationHeaderName)
	if len(values) == 0 {
		return ""
	}
	v := values[0]
	if len(v) < len(common.BearerPrefix) || !strings.EqualFold(v[:len(common.BearerPrefix)], common.BearerPrefix) {
		return ""
	}
	return strings.TrimSpace(v[len(common.BearerPrefix):])
}

// accessTokenInterceptor guards every StampService method that is not
// public. Other services (health) pass through.
func (s *GRPCServer) accessTokenInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if !strings.HasPrefix(info.FullMethod, "/"+api.ServiceName+"/") || publicMethods[info.FullMethod] {
		return handler(ctx, req)
	}

	token := bearerToken(ctx)
	if token == "" {
		return nil, api.ToStatus(common.ErrInvalidToken)
	}

	id, err := s.auth.Authenticate(ctx, token)
	if err != nil {
		return nil, api.ToStatus(err)
	}

	return handler(withIdentity(ctx, id), req)
}

// peerKey is the client address without its port.
func peerKey(ctx context.Context) string {
	p, ok := peer.FromContext(ctx)
	if !ok || p.Addr == nil {
		return "unknown"
	}
	addr := p.Addr.String()
	if host, _, err := net.SplitHostPort(addr); err == nil {
		return host
	}
	return addr
}

func (s *GRPCServer) rateLimitInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	if l, ok := s.limiters[info.FullMethod]; ok && !l.Allow(peerKey(ctx)) {
		metrics.RecordRateLimited("grpc")
		s.logger.Warn(ctx, "rate limited", "method", info.FullMethod, "peer", peerKey(ctx))
		return nil, api.ToStatus(common.ErrRateLimited)
	}
	return handler(ctx, req)
}

func (s *GRPCServer) loggingInterceptor(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
	start := time.Now()
	resp, err := handler(ctx, req)
	elapsed := time.Since(start)

	code := status.Code(err)
	metrics.RecordGRPC(info.FullMethod, code.String(), elapsed)
	if event, ok := authEvents[info.FullMethod]; ok {
		outcome := "ok"
		if err != nil {
			outcome = strings.ToLower(api.Reason(err))
		}
		if outcome == "" {
			outcome = "error"
		}
		metrics.RecordAuth(event, outcome)
	}

	s.logger.Info(ctx, "grpc request",
		"method", info.FullMethod,
		"code", code.String(),
		"duration", elapsed,
	)
	return resp, err
}

var authEvents = map[string]string{
	api.MethodRegister:              "register",
	api.MethodVerifyRegistrationOTP: "verify_registration",
	api.MethodResendRegistrationOTP: "resend_registration",
	api.MethodLogin:                 "login",
	api.MethodVerifyLoginOTP:        "verify_login",
}
