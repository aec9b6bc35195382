// Package grpc exposes the auth and timestamping services as the
// gophstamp.v1.StampService gRPC API.
package grpc

import (
	"context"
	"net"

	"github.com/dmitrijs2005/gophstamp/internal/api"
	"github.com/dmitrijs2005/gophstamp/internal/logging"
	"github.com/dmitrijs2005/gophstamp/internal/server/auth"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
	"github.com/dmitrijs2005/gophstamp/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophstamp/internal/server/services"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type authService interface {
	Register(ctx context.Context, username, password, email string) (*services.AuthResult, error)
	VerifyRegistrationOTP(ctx context.Context, tempToken, code string) (*services.AuthResult, error)
	ResendRegistrationOTP(ctx context.Context, username, password string) (*services.AuthResult, error)
	Login(ctx context.Context, username, password string) (*services.AuthResult, error)
	VerifyLoginOTP(ctx context.Context, tempToken, code string) (*services.AuthResult, error)
	Authenticate(ctx context.Context, sessionToken string) (*auth.Identity, error)
	Me(ctx context.Context, id *auth.Identity) (*models.User, error)
}

type stampService interface {
	CreateTimestamp(ctx context.Context, fileName string, content []byte, requester *auth.Identity) (*models.TimestampRecord, bool, error)
	VerifyTimestamp(ctx context.Context, content []byte) (*services.VerifyResult, error)
	ListTimestamps(ctx context.Context, requester *auth.Identity, offset, limit int) ([]*models.TimestampRecord, error)
	GetTimestamp(ctx context.Context, id string, requester *auth.Identity) (*models.TimestampRecord, error)
	DeleteTimestamp(ctx context.Context, id string, requester *auth.Identity) error
	DownloadURL(ctx context.Context, id string, requester *auth.Identity) (string, error)
	Certificate() []byte
}

// Limits are the per-client request budgets enforced by the server.
type Limits struct {
	Auth   ratelimit.Rule
	Upload ratelimit.Rule
	Delete ratelimit.Rule
}

// NoLimits disables rate limiting.
var NoLimits = Limits{Auth: ratelimit.Unlimited, Upload: ratelimit.Unlimited, Delete: ratelimit.Unlimited}

type GRPCServer struct {
	address    string
	auth       authService
	stamps     stampService
	logger     logging.Logger
	limiters   map[string]*ratelimit.Keyed
	maxMsgSize int
}

func NewGRPCServer(a string, l logging.Logger, as authService, ss stampService, limits Limits, maxUploadBytes int64) *GRPCServer {
	authLimiter := ratelimit.NewKeyed(limits.Auth)
	limiters := map[string]*ratelimit.Keyed{
		api.MethodRegister:              authLimiter,
		api.MethodVerifyRegistrationOTP: authLimiter,
		api.MethodResendRegistrationOTP: authLimiter,
		api.MethodLogin:                 authLimiter,
		api.MethodVerifyLoginOTP:        authLimiter,
		api.MethodCreateTimestamp:       ratelimit.NewKeyed(limits.Upload),
		api.MethodDeleteTimestamp:       ratelimit.NewKeyed(limits.Delete),
	}

	return &GRPCServer{
		address:    a,
		logger:     l.With("module", "grpc_server"),
		auth:       as,
		stamps:     ss,
		limiters:   limiters,
		maxMsgSize: messageLimit(maxUploadBytes),
	}
}

// messageLimit leaves room for the base64 expansion of document bytes in
// JSON messages.
func messageLimit(maxUploadBytes int64) int {
	const envelope = 64 << 10
	if maxUploadBytes <= 0 {
		return 4 << 20
	}
	return int(maxUploadBytes/3*4) + envelope
}

// NewServer builds the grpc.Server with the service, the health service and
// the interceptor chain registered.
func (s *GRPCServer) NewServer() (*grpc.Server, *health.Server) {
	srv := grpc.NewServer(
		grpc.MaxRecvMsgSize(s.maxMsgSize),
		grpc.ChainUnaryInterceptor(
			s.loggingInterceptor,
			s.rateLimitInterceptor,
			s.accessTokenInterceptor,
		),
	)

	api.RegisterStampServiceServer(srv, s)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(srv, hs)
	hs.SetServingStatus(api.ServiceName, healthpb.HealthCheckResponse_SERVING)

	return srv, hs
}

func (s *GRPCServer) Run(ctx context.Context) error {

	// announces address
	listen, err := net.Listen("tcp", s.address)
	if err != nil {
		return err
	}

	return s.Serve(ctx, listen)
}

// Serve accepts connections on lis until ctx is done.
func (s *GRPCServer) Serve(ctx context.Context, lis net.Listener) error {
	srv, hs := s.NewServer()
	defer s.stopLimiters()

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping gRPC server...")
		hs.Shutdown()
		srv.GracefulStop()
	}()

	s.logger.Info(ctx, "Starting gRPC server", "address", lis.Addr().String())

	// starts accepting incoming connections
	if err := srv.Serve(lis); err != nil {
		return err
	}

	return nil
}

func (s *GRPCServer) stopLimiters() {
	seen := map[*ratelimit.Keyed]bool{}
	for _, l := range s.limiters {
		if !seen[l] {
			l.Stop()
			seen[l] = true
		}
	}
}

var _ api.StampServiceServer = (*GRPCServer)(nil)
