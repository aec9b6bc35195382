package client

import (
	"context"
	"sync"

	"github.com/dmitrijs2005/gophstamp/internal/api"
	"github.com/dmitrijs2005/gophstamp/internal/common"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/metadata"
)

type GRPCClient struct {
	endpointURL string
	conn        *grpc.ClientConn
	client      *api.StampServiceClient

	mu    sync.RWMutex
	token string
}

var _ Client = (*GRPCClient)(nil)

func withAccessToken(ctx context.Context, token string) context.Context {
	md, _ := metadata.FromOutgoingContext(ctx)
	md = md.Copy()
	md.Delete(common.AuthorizationHeaderName)
	if token != "" {
		md.Set(common.AuthorizationHeaderName, common.BearerPrefix+token)
	}
	return metadata.NewOutgoingContext(ctx, md)
}

func (s *GRPCClient) accessTokenInterceptor(
	ctx context.Context,
	method string,
	req, reply any,
	cc *grpc.ClientConn,
	invoker grpc.UnaryInvoker,
	opts ...grpc.CallOption,
) error {
	s.mu.RLock()
	token := s.token
	s.mu.RUnlock()

	return invoker(withAccessToken(ctx, token), method, req, reply, cc, opts...)
}

// NewGRPCClient prepares a lazy connection to endpointURL. No network I/O
// happens until the first call.
func NewGRPCClient(endpointURL string, opts ...grpc.DialOption) (*GRPCClient, error) {
	c := &GRPCClient{endpointURL: endpointURL}

	opts = append([]grpc.DialOption{
		grpc.WithTransportCredentials(insecure.NewCredentials()),
		grpc.WithUnaryInterceptor(c.accessTokenInterceptor),
	}, opts...)

	conn, err := grpc.NewClient(endpointURL, opts...)
	if err != nil {
		return nil, err
	}
	c.conn = conn
	c.client = api.NewStampServiceClient(conn)
	return c, nil
}

func (s *GRPCClient) SetToken(token string) {
	s.mu.Lock()
	s.token = token
	s.mu.Unlock()
}

func (s *GRPCClient) Close() error {
	return s.conn.Close()
}

func (s *GRPCClient) Register(ctx context.Context, username, email string, password []byte) (*api.AuthResponse, error) {
	return s.client.Register(ctx, &api.RegisterRequest{Username: username, Email: email, Password: string(password)})
}

func (s *GRPCClient) ResendRegistrationOTP(ctx context.Context, username string, password []byte) (*api.AuthResponse, error) {
	return s.client.ResendRegistrationOTP(ctx, &api.ResendOTPRequest{Username: username, Password: string(password)})
}

func (s *GRPCClient) VerifyRegistrationOTP(ctx context.Context, temporaryToken, code string) (*api.AuthResponse, error) {
	return s.client.VerifyRegistrationOTP(ctx, &api.VerifyOTPRequest{Token: temporaryToken, Code: code})
}

func (s *GRPCClient) Login(ctx context.Context, username string, password []byte) (*api.AuthResponse, error) {
	return s.client.Login(ctx, &api.LoginRequest{Username: username, Password: string(password)})
}

func (s *GRPCClient) VerifyLoginOTP(ctx context.Context, temporaryToken, code string) (*api.AuthResponse, error) {
	return s.client.VerifyLoginOTP(ctx, &api.VerifyOTPRequest{Token: temporaryToken, Code: code})
}

func (s *GRPCClient) Me(ctx context.Context) (*api.UserInfo, error) {
	return s.client.Me(ctx, &api.MeRequest{})
}

// CreateTimestamp stamps content. created is false when the server already
// held a record for the same document and returned it unchanged.
func (s *GRPCClient) CreateTimestamp(ctx context.Context, fileName string, content []byte) (*api.Timestamp, bool, error) {
	resp, err := s.client.CreateTimestamp(ctx, &api.CreateTimestampRequest{FileName: fileName, Content: content})
	if err != nil {
		return nil, false, err
	}
	return &resp.Timestamp, resp.Created, nil
}

func (s *GRPCClient) VerifyTimestamp(ctx context.Context, content []byte) (*api.VerifyTimestampResponse, error) {
	return s.client.VerifyTimestamp(ctx, &api.VerifyTimestampRequest{Content: content})
}

func (s *GRPCClient) ListTimestamps(ctx context.Context, offset, limit int) ([]api.Timestamp, error) {
	resp, err := s.client.ListTimestamps(ctx, &api.ListTimestampsRequest{Offset: offset, Limit: limit})
	if err != nil {
		return nil, err
	}
	return resp.Timestamps, nil
}

func (s *GRPCClient) GetTimestamp(ctx context.Context, id string) (*api.Timestamp, error) {
	resp, err := s.client.GetTimestamp(ctx, &api.GetTimestampRequest{ID: id})
	if err != nil {
		return nil, err
	}
	return &resp.Timestamp, nil
}

func (s *GRPCClient) DeleteTimestamp(ctx context.Context, id string) error {
	_, err := s.client.DeleteTimestamp(ctx, &api.DeleteTimestampRequest{ID: id})
	return err
}

func (s *GRPCClient) GetDownloadURL(ctx context.Context, id string) (string, error) {
	resp, err := s.client.GetDownloadURL(ctx, &api.GetDownloadURLRequest{ID: id})
	if err != nil {
		return "", err
	}
	return resp.URL, nil
}

func (s *GRPCClient) GetCertificate(ctx context.Context) ([]byte, error) {
	resp, err := s.client.GetCertificate(ctx, &api.GetCertificateRequest{})
	if err != nil {
		return nil, err
	}
	return []byte(resp.PEM), nil
}

func (s *GRPCClient) Ping(ctx context.Context) error {
	resp, err := s.client.Ping(ctx, &api.PingRequest{})
	if err != nil {
		return err
	}
	if resp.Status != "OK" {
		return ErrUnavailable
	}
	return nil
}
