// Package services contains application services for the gophstamp client.
// This file defines the authentication flow: both sign-up and sign-in are
// two steps (password, then emailed code) and end with a session that is
// persisted in the local database.
package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophstamp/internal/api"
	"github.com/dmitrijs2005/gophstamp/internal/client/client"
	"github.com/dmitrijs2005/gophstamp/internal/client/repositories/metadata"
)

// ErrNoPendingCode is returned by the verify steps when no code was requested
// in this session, or when it was requested for the other flow.
var ErrNoPendingCode = errors.New("no verification code pending; register or login first")

// Purpose tells which flow a pending code belongs to.
type Purpose string

const (
	PurposeNone         Purpose = ""
	PurposeRegistration Purpose = "registration"
	PurposeLogin        Purpose = "login"
)

// Session describes the signed-in identity.
type Session struct {
	Username string
	Role     string
}

func (s *Session) IsAdmin() bool { return s != nil && s.Role == "admin" }

// AuthService defines authentication operations for the CLI.
//
// All methods honor context cancellation.
type AuthService interface {
	Register(ctx context.Context, username, email string, password []byte) error
	ResendRegistrationOTP(ctx context.Context, username string, password []byte) error
	Login(ctx context.Context, username string, password []byte) error
	// VerifyOTP answers the pending code and, on success, stores the session.
	VerifyOTP(ctx context.Context, code string) (*Session, error)
	Pending() Purpose
	// Restore loads a session saved by an earlier run. It returns nil, nil
	// when there is none.
	Restore(ctx context.Context) (*Session, error)
	Me(ctx context.Context) (*api.UserInfo, error)
	Logout(ctx context.Context) error
	Ping(ctx context.Context) error
	Close() error
}

type authService struct {
	client client.Client
	meta   metadata.Repository

	pending     Purpose
	pendingUser string
	tempToken   string
}

// NewAuthService constructs an AuthService bound to the given API client and
// metadata store.
func NewAuthService(c client.Client, meta metadata.Repository) AuthService {
	return &authService{client: c, meta: meta}
}

func (a *authService) Register(ctx context.Context, username, email string, password []byte) error {
	resp, err := a.client.Register(ctx, username, email, password)
	if err != nil {
		return err
	}
	a.await(PurposeRegistration, username, resp)
	return nil
}

func (a *authService) ResendRegistrationOTP(ctx context.Context, username string, password []byte) error {
	resp, err := a.client.ResendRegistrationOTP(ctx, username, password)
	if err != nil {
		return err
	}
	a.await(PurposeRegistration, username, resp)
	return nil
}

func (a *authService) Login(ctx context.Context, username string, password []byte) error {
	resp, err := a.client.Login(ctx, username, password)
	if err != nil {
		return err
	}
	a.await(PurposeLogin, username, resp)
	return nil
}

func (a *authService) await(p Purpose, username string, resp *api.AuthResponse) {
	a.pending = p
	a.pendingUser = username
	a.tempToken = resp.Token
}

func (a *authService) Pending() Purpose {
	return a.pending
}

func (a *authService) VerifyOTP(ctx context.Context, code string) (*Session, error) {
	var (
		resp *api.AuthResponse
		err  error
	)
	switch a.pending {
	case PurposeRegistration:
		resp, err = a.client.VerifyRegistrationOTP(ctx, a.tempToken, code)
	case PurposeLogin:
		resp, err = a.client.VerifyLoginOTP(ctx, a.tempToken, code)
	default:
		return nil, ErrNoPendingCode
	}
	if err != nil {
		return nil, err
	}

	s := &Session{Username: a.pendingUser, Role: resp.Role}
	if err := a.save(ctx, resp.Token, s); err != nil {
		return nil, err
	}
	a.client.SetToken(resp.Token)
	a.pending, a.pendingUser, a.tempToken = PurposeNone, "", ""
	return s, nil
}

func (a *authService) save(ctx context.Context, token string, s *Session) error {
	for k, v := range map[string]string{
		metadata.KeySessionToken: token,
		metadata.KeyUsername:     s.Username,
		metadata.KeyRole:         s.Role,
	} {
		if err := a.meta.Set(ctx, k, []byte(v)); err != nil {
			return fmt.Errorf("save session: %w", err)
		}
	}
	return nil
}

func (a *authService) Restore(ctx context.Context) (*Session, error) {
	token, err := a.meta.Get(ctx, metadata.KeySessionToken)
	if err != nil || len(token) == 0 {
		return nil, err
	}
	username, err := a.meta.Get(ctx, metadata.KeyUsername)
	if err != nil {
		return nil, err
	}
	role, err := a.meta.Get(ctx, metadata.KeyRole)
	if err != nil {
		return nil, err
	}

	a.client.SetToken(string(token))
	return &Session{Username: string(username), Role: string(role)}, nil
}

func (a *authService) Me(ctx context.Context) (*api.UserInfo, error) {
	return a.client.Me(ctx)
}

// Logout forgets the session locally. Session tokens are stateless, so the
// server is not contacted.
func (a *authService) Logout(ctx context.Context) error {
	a.client.SetToken("")
	a.pending, a.pendingUser, a.tempToken = PurposeNone, "", ""
	return a.meta.Delete(ctx, metadata.SessionKeys...)
}

func (a *authService) Ping(ctx context.Context) error {
	return a.client.Ping(ctx)
}

func (a *authService) Close() error {
	return a.client.Close()
}
