package api

import (
	"context"

	"google.golang.org/grpc"
)

// ServiceName is the fully qualified gRPC service name.
const ServiceName = "gophstamp.v1.StampService"

// Full method names, as seen by interceptors.
const (
	MethodRegister              = "/" + ServiceName + "/Register"
	MethodVerifyRegistrationOTP = "/" + ServiceName + "/VerifyRegistrationOTP"
	MethodResendRegistrationOTP = "/" + ServiceName + "/ResendRegistrationOTP"
	MethodLogin                 = "/" + ServiceName + "/Login"
	MethodVerifyLoginOTP        = "/" + ServiceName + "/VerifyLoginOTP"
	MethodMe                    = "/" + ServiceName + "/Me"
	MethodCreateTimestamp       = "/" + ServiceName + "/CreateTimestamp"
	MethodVerifyTimestamp       = "/" + ServiceName + "/VerifyTimestamp"
	MethodListTimestamps        = "/" + ServiceName + "/ListTimestamps"
	MethodGetTimestamp          = "/" + ServiceName + "/GetTimestamp"
	MethodDeleteTimestamp       = "/" + ServiceName + "/DeleteTimestamp"
	MethodGetDownloadURL        = "/" + ServiceName + "/GetDownloadURL"
	MethodGetCertificate        = "/" + ServiceName + "/GetCertificate"
	MethodPing                  = "/" + ServiceName + "/Ping"
)

// StampServiceServer is implemented by the gRPC transport.
type StampServiceServer interface {
	Register(context.Context, *RegisterRequest) (*AuthResponse, error)
	VerifyRegistrationOTP(context.Context, *VerifyOTPRequest) (*AuthResponse, error)
	ResendRegistrationOTP(context.Context, *ResendOTPRequest) (*AuthResponse, error)
	Login(context.Context, *LoginRequest) (*AuthResponse, error)
	VerifyLoginOTP(context.Context, *VerifyOTPRequest) (*AuthResponse, error)
	Me(context.Context, *MeRequest) (*UserInfo, error)
	CreateTimestamp(context.Context, *CreateTimestampRequest) (*CreateTimestampResponse, error)
	VerifyTimestamp(context.Context, *VerifyTimestampRequest) (*VerifyTimestampResponse, error)
	ListTimestamps(context.Context, *ListTimestampsRequest) (*ListTimestampsResponse, error)
	GetTimestamp(context.Context, *GetTimestampRequest) (*GetTimestampResponse, error)
	DeleteTimestamp(context.Context, *DeleteTimestampRequest) (*DeleteTimestampResponse, error)
	GetDownloadURL(context.Context, *GetDownloadURLRequest) (*GetDownloadURLResponse, error)
	GetCertificate(context.Context, *GetCertificateRequest) (*GetCertificateResponse, error)
	Ping(context.Context, *PingRequest) (*PingResponse, error)
}

// RegisterStampServiceServer registers srv on s.
func RegisterStampServiceServer(s grpc.ServiceRegistrar, srv StampServiceServer) {
	s.RegisterService(&StampServiceDesc, srv)
}

// unary adapts a typed server method to a grpc.MethodHandler, running it
// through the server's interceptor chain.
func unary[Req, Resp any](fullMethod string, call func(StampServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodHandler {
	return func(srv any, ctx context.Context, dec func(any) error, interceptor grpc.UnaryServerInterceptor) (any, error) {
		in := new(Req)
		if err := dec(in); err != nil {
			return nil, err
		}
		if interceptor == nil {
			return call(srv.(StampServiceServer), ctx, in)
		}
		info := &grpc.UnaryServerInfo{Server: srv, FullMethod: fullMethod}
		handler := func(ctx context.Context, req any) (any, error) {
			return call(srv.(StampServiceServer), ctx, req.(*Req))
		}
		return interceptor(ctx, in, info, handler)
	}
}

// StampServiceDesc describes the service for grpc.Server.
var StampServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*StampServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		{MethodName: "Register", Handler: unary(MethodRegister, StampServiceServer.Register)},
		{MethodName: "VerifyRegistrationOTP", Handler: unary(MethodVerifyRegistrationOTP, StampServiceServer.VerifyRegistrationOTP)},
		{MethodName: "ResendRegistrationOTP", Handler: unary(MethodResendRegistrationOTP, StampServiceServer.ResendRegistrationOTP)},
		{MethodName: "Login", Handler: unary(MethodLogin, StampServiceServer.Login)},
		{MethodName: "VerifyLoginOTP", Handler: unary(MethodVerifyLoginOTP, StampServiceServer.VerifyLoginOTP)},
		{MethodName: "Me", Handler: unary(MethodMe, StampServiceServer.Me)},
		{MethodName: "CreateTimestamp", Handler: unary(MethodCreateTimestamp, StampServiceServer.CreateTimestamp)},
		{MethodName: "VerifyTimestamp", Handler: unary(MethodVerifyTimestamp, StampServiceServer.VerifyTimestamp)},
		{MethodName: "ListTimestamps", Handler: unary(MethodListTimestamps, StampServiceServer.ListTimestamps)},
		{MethodName: "GetTimestamp", Handler: unary(MethodGetTimestamp, StampServiceServer.GetTimestamp)},
		{MethodName: "DeleteTimestamp", Handler: unary(MethodDeleteTimestamp, StampServiceServer.DeleteTimestamp)},
		{MethodName: "GetDownloadURL", Handler: unary(MethodGetDownloadURL, StampServiceServer.GetDownloadURL)},
		{MethodName: "GetCertificate", Handler: unary(MethodGetCertificate, StampServiceServer.GetCertificate)},
		{MethodName: "Ping", Handler: unary(MethodPing, StampServiceServer.Ping)},
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "gophstamp/v1/stamp.json",
}
