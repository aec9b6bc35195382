package client

import (
	"context"

	"github.com/dmitrijs2005/gophstamp/internal/api"
)

// Client is the remote StampService as seen by the CLI services.
type Client interface {
	Close() error

	// SetToken replaces the bearer token sent with subsequent calls.
	SetToken(token string)

	Register(ctx context.Context, username, email string, password []byte) (*api.AuthResponse, error)
	ResendRegistrationOTP(ctx context.Context, username string, password []byte) (*api.AuthResponse, error)
	VerifyRegistrationOTP(ctx context.Context, temporaryToken, code string) (*api.AuthResponse, error)
	Login(ctx context.Context, username string, password []byte) (*api.AuthResponse, error)
	VerifyLoginOTP(ctx context.Context, temporaryToken, code string) (*api.AuthResponse, error)
	Me(ctx context.Context) (*api.UserInfo, error)

	CreateTimestamp(ctx context.Context, fileName string, content []byte) (*api.Timestamp, bool, error)
	VerifyTimestamp(ctx context.Context, content []byte) (*api.VerifyTimestampResponse, error)
	ListTimestamps(ctx context.Context, offset, limit int) ([]api.Timestamp, error)
	GetTimestamp(ctx context.Context, id string) (*api.Timestamp, error)
	DeleteTimestamp(ctx context.Context, id string) error
	GetDownloadURL(ctx context.Context, id string) (string, error)
	GetCertificate(ctx context.Context) ([]byte, error)
	Ping(ctx context.Context) error
}
