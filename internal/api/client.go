package api

import (
	"context"

	"google.golang.org/grpc"
)

// StampServiceClient calls StampService over a connection. Every call is
// sent with the JSON content-subtype; statuses are decoded with FromStatus.
type StampServiceClient struct {
	cc grpc.ClientConnInterface
}

func NewStampServiceClient(cc grpc.ClientConnInterface) *StampServiceClient {
	return &StampServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, c *StampServiceClient, method string, in any, opts []grpc.CallOption) (*Resp, error) {
	out := new(Resp)
	opts = append([]grpc.CallOption{grpc.CallContentSubtype(CodecName)}, opts...)
	if err := c.cc.Invoke(ctx, method, in, out, opts...); err != nil {
		return nil, FromStatus(err)
	}
	return out, nil
}

func (c *StampServiceClient) Register(ctx context.Context, in *RegisterRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c, MethodRegister, in, opts)
}

func (c *StampServiceClient) VerifyRegistrationOTP(ctx context.Context, in *VerifyOTPRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c, MethodVerifyRegistrationOTP, in, opts)
}

func (c *StampServiceClient) ResendRegistrationOTP(ctx context.Context, in *ResendOTPRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c, MethodResendRegistrationOTP, in, opts)
}

func (c *StampServiceClient) Login(ctx context.Context, in *LoginRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c, MethodLogin, in, opts)
}

func (c *StampServiceClient) VerifyLoginOTP(ctx context.Context, in *VerifyOTPRequest, opts ...grpc.CallOption) (*AuthResponse, error) {
	return invoke[AuthResponse](ctx, c, MethodVerifyLoginOTP, in, opts)
}

func (c *StampServiceClient) Me(ctx context.Context, in *MeRequest, opts ...grpc.CallOption) (*UserInfo, error) {
	return invoke[UserInfo](ctx, c, MethodMe, in, opts)
}

func (c *StampServiceClient) CreateTimestamp(ctx context.Context, in *CreateTimestampRequest, opts ...grpc.CallOption) (*CreateTimestampResponse, error) {
	return invoke[CreateTimestampResponse](ctx, c, MethodCreateTimestamp, in, opts)
}

func (c *StampServiceClient) VerifyTimestamp(ctx context.Context, in *VerifyTimestampRequest, opts ...grpc.CallOption) (*VerifyTimestampResponse, error) {
	return invoke[VerifyTimestampResponse](ctx, c, MethodVerifyTimestamp, in, opts)
}

func (c *StampServiceClient) ListTimestamps(ctx context.Context, in *ListTimestampsRequest, opts ...grpc.CallOption) (*ListTimestampsResponse, error) {
	return invoke[ListTimestampsResponse](ctx, c, MethodListTimestamps, in, opts)
}

func (c *StampServiceClient) GetTimestamp(ctx context.Context, in *GetTimestampRequest, opts ...grpc.CallOption) (*GetTimestampResponse, error) {
	return invoke[GetTimestampResponse](ctx, c, MethodGetTimestamp, in, opts)
}

func (c *StampServiceClient) DeleteTimestamp(ctx context.Context, in *DeleteTimestampRequest, opts ...grpc.CallOption) (*DeleteTimestampResponse, error) {
	return invoke[DeleteTimestampResponse](ctx, c, MethodDeleteTimestamp, in, opts)
}

func (c *StampServiceClient) GetDownloadURL(ctx context.Context, in *GetDownloadURLRequest, opts ...grpc.CallOption) (*GetDownloadURLResponse, error) {
	return invoke[GetDownloadURLResponse](ctx, c, MethodGetDownloadURL, in, opts)
}

func (c *StampServiceClient) GetCertificate(ctx context.Context, in *GetCertificateRequest, opts ...grpc.CallOption) (*GetCertificateResponse, error) {
	return invoke[GetCertificateResponse](ctx, c, MethodGetCertificate, in, opts)
}

func (c *StampServiceClient) Ping(ctx context.Context, in *PingRequest, opts ...grpc.CallOption) (*PingResponse, error) {
	return invoke[PingResponse](ctx, c, MethodPing, in, opts)
}
