// Package auth issues and validates the two kinds of bearer credentials:
// session tokens that authorize API calls and short-lived temporary tokens
// that only let the holder answer a one-time code.
package auth

import (
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
	"github.com/golang-jwt/jwt/v5"
)

const (
	DefaultSessionTTL   = 30 * time.Minute
	DefaultTemporaryTTL = 10 * time.Minute

	typeSession = "session"
)

// Purpose binds a temporary token to the flow that issued it.
type Purpose string

const (
	PurposeRegistration Purpose = "registration"
	PurposeLogin        Purpose = "login"
)

// Claims is the JWT body shared by both token kinds. Session tokens carry
// Role and Type; temporary tokens carry Pending and Purpose.
type Claims struct {
	jwt.RegisteredClaims
	Role    models.Role `json:"role,omitempty"`
	Type    string      `json:"typ,omitempty"`
	Pending bool        `json:"pending,omitempty"`
	Purpose Purpose     `json:"purpose,omitempty"`
}

// Identity is what a validated session token says about its holder.
type Identity struct {
	Subject string
	Role    models.Role
}

// IsAdmin reports whether the identity holds the admin role.
func (i *Identity) IsAdmin() bool {
	return i != nil && i.Role == models.RoleAdmin
}

// Issuer signs and validates HS256 tokens with a shared secret.
type Issuer struct {
	secret       []byte
	sessionTTL   time.Duration
	temporaryTTL time.Duration
	now          func() time.Time
}

// NewIssuer builds an Issuer. Zero TTLs fall back to the defaults.
func NewIssuer(secret []byte, sessionTTL, temporaryTTL time.Duration) *Issuer {
	if sessionTTL == 0 {
		sessionTTL = DefaultSessionTTL
	}
	if temporaryTTL == 0 {
		temporaryTTL = DefaultTemporaryTTL
	}
	return &Issuer{
		secret:       secret,
		sessionTTL:   sessionTTL,
		temporaryTTL: temporaryTTL,
		now:          time.Now,
	}
}

// IssueSession returns a session token for subject with the given role.
func (i *Issuer) IssueSession(subject string, role models.Role) (string, error) {
	return i.sign(Claims{
		RegisteredClaims: i.registered(subject, i.sessionTTL),
		Role:             role,
		Type:             typeSession,
	})
}

// IssueTemporary returns a pending token usable only to answer an OTP for
// the given purpose.
func (i *Issuer) IssueTemporary(subject string, purpose Purpose) (string, error) {
	return i.sign(Claims{
		RegisteredClaims: i.registered(subject, i.temporaryTTL),
		Pending:          true,
		Purpose:          purpose,
	})
}

// Validate accepts session tokens only.
func (i *Issuer) Validate(token string) (*Identity, error) {
	claims, err := i.parse(token)
	if err != nil {
		return nil, err
	}
	if claims.Pending || claims.Type != typeSession {
		return nil, fmt.Errorf("%w: not a session token", common.ErrInvalidToken)
	}
	if claims.Role != models.RoleAdmin && claims.Role != models.RoleUser {
		return nil, fmt.Errorf("%w: unknown role", common.ErrInvalidToken)
	}
	return &Identity{Subject: claims.Subject, Role: claims.Role}, nil
}

// ValidateTemporary accepts pending tokens issued for purpose and returns
// their subject.
func (i *Issuer) ValidateTemporary(token string, purpose Purpose) (string, error) {
	claims, err := i.parse(token)
	if err != nil {
		return "", err
	}
	if !claims.Pending || claims.Type != "" {
		return "", fmt.Errorf("%w: not a temporary token", common.ErrInvalidToken)
	}
	if claims.Purpose != purpose {
		return "", fmt.Errorf("%w: wrong purpose", common.ErrInvalidToken)
	}
	return claims.Subject, nil
}

func (i *Issuer) registered(subject string, ttl time.Duration) jwt.RegisteredClaims {
	now := i.now()
	return jwt.RegisteredClaims{
		Subject:   subject,
		IssuedAt:  jwt.NewNumericDate(now),
		ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
	}
}

func (i *Issuer) sign(c Claims) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, c)
	s, err := token.SignedString(i.secret)
	if err != nil {
		return "", fmt.Errorf("sign token: %w", err)
	}
	return s, nil
}

func (i *Issuer) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (any, error) {
		return i.secret, nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.now),
	)
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, fmt.Errorf("%w: %w", common.ErrInvalidToken, common.ErrTokenExpired)
		}
		return nil, fmt.Errorf("%w: %v", common.ErrInvalidToken, err)
	}
	if !token.Valid || claims.Subject == "" {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}
