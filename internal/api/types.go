// Package api defines the wire contract between the gophstamp server and its
// clients: message types, the JSON gRPC codec, the StampService descriptor
// and the mapping of domain errors to gRPC statuses.
package api

import "time"

type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Email    string `json:"email"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// ResendOTPRequest asks for a new registration code for an unverified
// account.
type ResendOTPRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

// VerifyOTPRequest answers a code with the temporary token it was issued
// under.
type VerifyOTPRequest struct {
	Token string `json:"token"`
	Code  string `json:"code"`
}

// AuthResponse carries either a temporary token (RequiresOTP) or a session
// token.
type AuthResponse struct {
	Token       string `json:"token"`
	RequiresOTP bool   `json:"requires_otp"`
	UserID      string `json:"user_id"`
	Role        string `json:"role"`
}

type MeRequest struct{}

type UserInfo struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	Role      string    `json:"role"`
	Verified  bool      `json:"verified"`
	CreatedAt time.Time `json:"created_at"`
}

// Timestamp is a TimestampRecord as seen by clients. CreatedAt keeps its
// microseconds so the signature can be checked offline.
type Timestamp struct {
	ID          string    `json:"id"`
	FileName    string    `json:"file_name"`
	Fingerprint string    `json:"fingerprint"`
	Signature   string    `json:"signature"`
	CreatedAt   time.Time `json:"created_at"`
	OwnerID     string    `json:"owner_id"`
	OwnerName   string    `json:"owner_name"`
	Archived    bool      `json:"archived"`
}

type CreateTimestampRequest struct {
	FileName string `json:"file_name"`
	Content  []byte `json:"content"`
}

type CreateTimestampResponse struct {
	Timestamp Timestamp `json:"timestamp"`
	Created   bool      `json:"created"`
}

type VerifyTimestampRequest struct {
	Content []byte `json:"content"`
}

type VerifyTimestampResponse struct {
	Valid       bool      `json:"valid"`
	Fingerprint string    `json:"fingerprint"`
	Timestamp   Timestamp `json:"timestamp"`
}

type ListTimestampsRequest struct {
	Offset int `json:"offset"`
	Limit  int `json:"limit"`
}

type ListTimestampsResponse struct {
	Timestamps []Timestamp `json:"timestamps"`
}

type GetTimestampRequest struct {
	ID string `json:"id"`
}

type GetTimestampResponse struct {
	Timestamp Timestamp `json:"timestamp"`
}

type DeleteTimestampRequest struct {
	ID string `json:"id"`
}

type DeleteTimestampResponse struct{}

type GetDownloadURLRequest struct {
	ID string `json:"id"`
}

type GetDownloadURLResponse struct {
	URL string `json:"url"`
}

type GetCertificateRequest struct{}

type GetCertificateResponse struct {
	PEM string `json:"pem"`
}

type PingRequest struct{}

type PingResponse struct {
	Status string `json:"status"`
}
