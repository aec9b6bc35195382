package grpc

import (
	"context"

	"github.com/dmitrijs2005/gophstamp/internal/api"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
	"github.com/dmitrijs2005/gophstamp/internal/server/services"
)

func toAuthResponse(r *services.AuthResult) *api.AuthResponse {
	return &api.AuthResponse{
		Token:       r.Token,
		RequiresOTP: r.RequiresOTP,
		UserID:      r.UserID,
		Role:        string(r.Role),
	}
}

func toTimestamp(r *models.TimestampRecord) api.Timestamp {
	if r == nil {
		return api.Timestamp{}
	}
	return api.Timestamp{
		ID:          r.ID,
		FileName:    r.FileName,
		Fingerprint: r.Fingerprint,
		Signature:   r.Signature,
		CreatedAt:   r.CreatedAt.UTC(),
		OwnerID:     r.OwnerID,
		OwnerName:   r.OwnerName,
		Archived:    r.ArchiveKey != "",
	}
}

func (s *GRPCServer) Register(ctx context.Context, req *api.RegisterRequest) (*api.AuthResponse, error) {
	result, err := s.auth.Register(ctx, req.Username, req.Password, req.Email)
	if err != nil {
		return nil, api.ToStatus(err)
	}

	s.logger.Info(ctx, "Registered", "username", req.Username, "user_id", result.UserID)
	return toAuthResponse(result), nil
}

func (s *GRPCServer) VerifyRegistrationOTP(ctx context.Context, req *api.VerifyOTPRequest) (*api.AuthResponse, error) {
	result, err := s.auth.VerifyRegistrationOTP(ctx, req.Token, req.Code)
	if err != nil {
		return nil, api.ToStatus(err)
	}
	return toAuthResponse(result), nil
}

func (s *GRPCServer) ResendRegistrationOTP(ctx context.Context, req *api.ResendOTPRequest) (*api.AuthResponse, error) {
	result, err := s.auth.ResendRegistrationOTP(ctx, req.Username, req.Password)
	if err != nil {
		return nil, api.ToStatus(err)
	}
	return toAuthResponse(result), nil
}

func (s *GRPCServer) Login(ctx context.Context, req *api.LoginRequest) (*api.AuthResponse, error) {
	result, err := s.auth.Login(ctx, req.Username, req.Password)
	if err != nil {
		return nil, api.ToStatus(err)
	}
	return toAuthResponse(result), nil
}

func (s *GRPCServer) VerifyLoginOTP(ctx context.Context, req *api.VerifyOTPRequest) (*api.AuthResponse, error) {
	result, err := s.auth.VerifyLoginOTP(ctx, req.Token, req.Code)
	if err != nil {
		return nil, api.ToStatus(err)
	}
	return toAuthResponse(result), nil
}

func (s *GRPCServer) Me(ctx context.Context, _ *api.MeRequest) (*api.UserInfo, error) {
	u, err := s.auth.Me(ctx, identityFromContext(ctx))
	if err != nil {
		return nil, api.ToStatus(err)
	}
	return &api.UserInfo{
		ID:        u.ID,
		Username:  u.UserName,
		Email:     u.Email,
		Role:      string(u.Role),
		Verified:  u.Verified,
		CreatedAt: u.CreatedAt.UTC(),
	}, nil
}

func (s *GRPCServer) CreateTimestamp(ctx context.Context, req *api.CreateTimestampRequest) (*api.CreateTimestampResponse, error) {
	rec, created, err := s.stamps.CreateTimestamp(ctx, req.FileName, req.Content, identityFromContext(ctx))
	if err != nil {
		if !isDomainError(err) {
			s.logger.Error(ctx, "create timestamp failed", "error", err)
		}
		return nil, api.ToStatus(err)
	}
	return &api.CreateTimestampResponse{Timestamp: toTimestamp(rec), Created: created}, nil
}

func (s *GRPCServer) VerifyTimestamp(ctx context.Context, req *api.VerifyTimestampRequest) (*api.VerifyTimestampResponse, error) {
	res, err := s.stamps.VerifyTimestamp(ctx, req.Content)
	if err != nil {
		return nil, api.ToStatus(err)
	}
	return &api.VerifyTimestampResponse{
		Valid:       res.Valid,
		Fingerprint: res.Fingerprint,
		Timestamp:   toTimestamp(res.Record),
	}, nil
}

func (s *GRPCServer) ListTimestamps(ctx context.Context, req *api.ListTimestampsRequest) (*api.ListTimestampsResponse, error) {
	recs, err := s.stamps.ListTimestamps(ctx, identityFromContext(ctx), req.Offset, req.Limit)
	if err != nil {
		return nil, api.ToStatus(err)
	}

	out := make([]api.Timestamp, 0, len(recs))
	for _, r := range recs {
		out = append(out, toTimestamp(r))
	}
	return &api.ListTimestampsResponse{Timestamps: out}, nil
}

func (s *GRPCServer) GetTimestamp(ctx context.Context, req *api.GetTimestampRequest) (*api.GetTimestampResponse, error) {
	rec, err := s.stamps.GetTimestamp(ctx, req.ID, identityFromContext(ctx))
	if err != nil {
		return nil, api.ToStatus(err)
	}
	return &api.GetTimestampResponse{Timestamp: toTimestamp(rec)}, nil
}

func (s *GRPCServer) DeleteTimestamp(ctx context.Context, req *api.DeleteTimestampRequest) (*api.DeleteTimestampResponse, error) {
	if err := s.stamps.DeleteTimestamp(ctx, req.ID, identityFromContext(ctx)); err != nil {
		return nil, api.ToStatus(err)
	}
	return &api.DeleteTimestampResponse{}, nil
}

func (s *GRPCServer) GetDownloadURL(ctx context.Context, req *api.GetDownloadURLRequest) (*api.GetDownloadURLResponse, error) {
	url, err := s.stamps.DownloadURL(ctx, req.ID, identityFromContext(ctx))
	if err != nil {
		return nil, api.ToStatus(err)
	}
	return &api.GetDownloadURLResponse{URL: url}, nil
}

func (s *GRPCServer) GetCertificate(ctx context.Context, _ *api.GetCertificateRequest) (*api.GetCertificateResponse, error) {
	return &api.GetCertificateResponse{PEM: string(s.stamps.Certificate())}, nil
}

func (s *GRPCServer) Ping(ctx context.Context, _ *api.PingRequest) (*api.PingResponse, error) {
	return &api.PingResponse{Status: "OK"}, nil
}

// isDomainError reports whether err is an expected outcome rather than an
// infrastructure failure worth logging.
func isDomainError(err error) bool {
	return api.Reason(api.ToStatus(err)) != api.ReasonInternal
}
