// Package services contains server-side business logic: the two-factor
// authentication state machine (AuthService) and the timestamping workflow
// (TimestampService).
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dmitrijs2005/gophstamp/internal/common"
	"github.com/dmitrijs2005/gophstamp/internal/cryptox"
	"github.com/dmitrijs2005/gophstamp/internal/dbx"
	"github.com/dmitrijs2005/gophstamp/internal/logging"
	"github.com/dmitrijs2005/gophstamp/internal/server/auth"
	"github.com/dmitrijs2005/gophstamp/internal/server/config"
	"github.com/dmitrijs2005/gophstamp/internal/server/models"
	"github.com/dmitrijs2005/gophstamp/internal/server/otp"
	"github.com/dmitrijs2005/gophstamp/internal/server/repositories/repomanager"
)

const maxUserNameLength = 64

// OTPDispatcher hands a code to the out-of-band channel without waiting for
// delivery.
type OTPDispatcher interface {
	Dispatch(ctx context.Context, destination, code string)
}

// AuthResult is what every authentication step returns. When RequiresOTP is
// set, Token is a temporary credential that is only good for answering the
// code; otherwise it is a session credential.
type AuthResult struct {
	Token       string
	RequiresOTP bool
	UserID      string
	Role        models.Role
}

// AuthService drives registration and login through the second factor:
//
//	Register -> VerifyRegistrationOTP -> verified
//	Login    -> VerifyLoginOTP        -> session
type AuthService struct {
	db                  *sql.DB
	repomanager         repomanager.RepositoryManager
	issuer              *auth.Issuer
	dispatcher          OTPDispatcher
	bootstrapFirstAdmin bool
	otpTTL              time.Duration
	now                 func() time.Time
	log                 logging.Logger
}

func NewAuthService(db *sql.DB, m repomanager.RepositoryManager, issuer *auth.Issuer, d OTPDispatcher,
	cfg *config.Config, log logging.Logger) *AuthService {
	ttl := cfg.OTPTTL
	if ttl <= 0 {
		ttl = otp.TTL
	}
	return &AuthService{
		db:                  db,
		repomanager:         m,
		issuer:              issuer,
		dispatcher:          d,
		bootstrapFirstAdmin: cfg.BootstrapFirstAdmin,
		otpTTL:              ttl,
		now:                 time.Now,
		log:                 log.With("module", "auth"),
	}
}

// Register creates an unverified identity, issues a registration code and
// returns a temporary credential. Identity, bootstrap claim and code are
// written in one transaction.
func (s *AuthService) Register(ctx context.Context, username, password, email string) (*AuthResult, error) {
	username, email, err := normalizeIdentity(username, email)
	if err != nil {
		return nil, err
	}
	if err := cryptox.CheckPasswordPolicy(password); err != nil {
		return nil, err
	}
	if err := s.ensureAvailable(ctx, username, email); err != nil {
		return nil, err
	}

	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	code, err := otp.Generate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	user := &models.User{UserName: username, Email: email, PasswordHash: hash, Role: models.RoleUser}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		if _, err := users.Create(ctx, user); err != nil {
			return err
		}

		if s.bootstrapFirstAdmin {
			claimed, err := users.ClaimBootstrap(ctx, user.ID)
			if err != nil {
				return err
			}
			if claimed {
				if err := users.SetRole(ctx, user.ID, models.RoleAdmin); err != nil {
					return err
				}
				user.Role = models.RoleAdmin
			}
		}

		return s.storeCode(ctx, tx, user.ID, code)
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, common.ErrConflict
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	if user.Role == models.RoleAdmin {
		s.log.Info(ctx, "bootstrap admin registered", "user_id", user.ID)
	}
	s.dispatcher.Dispatch(ctx, user.Email, code)

	return s.pending(user, auth.PurposeRegistration)
}

// ResendRegistrationOTP issues a fresh registration code for an identity
// that never finished verification, e.g. because the first code expired.
func (s *AuthService) ResendRegistrationOTP(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.checkPassword(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if user.Verified {
		// Verified identities log in instead; answer as for a wrong password.
		return nil, common.ErrInvalidCredentials
	}
	if err := s.issueCode(ctx, user); err != nil {
		return nil, err
	}
	return s.pending(user, auth.PurposeRegistration)
}

// VerifyRegistrationOTP redeems a registration code, flips the identity to
// verified and returns a session credential.
func (s *AuthService) VerifyRegistrationOTP(ctx context.Context, tempToken, code string) (*AuthResult, error) {
	return s.redeem(ctx, tempToken, code, auth.PurposeRegistration)
}

// Login checks the password of a verified identity and starts the second
// factor. A correct password alone never yields a session credential.
func (s *AuthService) Login(ctx context.Context, username, password string) (*AuthResult, error) {
	user, err := s.checkPassword(ctx, username, password)
	if err != nil {
		return nil, err
	}
	if !user.Verified {
		return nil, common.ErrNotVerified
	}
	if err := s.issueCode(ctx, user); err != nil {
		return nil, err
	}
	return s.pending(user, auth.PurposeLogin)
}

// VerifyLoginOTP redeems a login code and returns a session credential.
func (s *AuthService) VerifyLoginOTP(ctx context.Context, tempToken, code string) (*AuthResult, error) {
	return s.redeem(ctx, tempToken, code, auth.PurposeLogin)
}

// BootstrapAdmin creates a verified admin as an explicit setup step. It
// fails with common.ErrConflict once any bootstrap admin exists.
func (s *AuthService) BootstrapAdmin(ctx context.Context, username, password, email string) (*models.User, error) {
	username, email, err := normalizeIdentity(username, email)
	if err != nil {
		return nil, err
	}
	if err := cryptox.CheckPasswordPolicy(password); err != nil {
		return nil, err
	}
	hash, err := cryptox.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}

	user := &models.User{UserName: username, Email: email, PasswordHash: hash, Role: models.RoleAdmin, Verified: true}
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		users := s.repomanager.Users(tx)
		if _, err := users.Create(ctx, user); err != nil {
			return err
		}
		claimed, err := users.ClaimBootstrap(ctx, user.ID)
		if err != nil {
			return err
		}
		if !claimed {
			return fmt.Errorf("%w: bootstrap admin already exists", common.ErrConflict)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, common.ErrConflict) {
			return nil, err
		}
		return nil, fmt.Errorf("bootstrap admin: %w", err)
	}

	s.log.Info(ctx, "bootstrap admin created", "user_id", user.ID, "username", user.UserName)
	return user, nil
}

// Authenticate validates a session credential.
func (s *AuthService) Authenticate(ctx context.Context, sessionToken string) (*auth.Identity, error) {
	return s.issuer.Validate(sessionToken)
}

// Me returns the identity behind a session.
func (s *AuthService) Me(ctx context.Context, id *auth.Identity) (*models.User, error) {
	if id == nil {
		return nil, common.ErrInvalidToken
	}
	user, err := s.repomanager.Users(s.db).GetByID(ctx, id.Subject)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidToken
		}
		return nil, fmt.Errorf("me: %w", err)
	}
	return user, nil
}

// --- helpers below ---

func normalizeIdentity(username, email string) (string, string, error) {
	username = strings.TrimSpace(username)
	if username == "" || utf8.RuneCountInString(username) > maxUserNameLength {
		return "", "", fmt.Errorf("%w: username must be 1-%d characters", common.ErrInvalidArgument, maxUserNameLength)
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil || addr.Name != "" {
		return "", "", fmt.Errorf("%w: malformed e-mail address", common.ErrInvalidArgument)
	}
	return username, strings.ToLower(addr.Address), nil
}

func (s *AuthService) ensureAvailable(ctx context.Context, username, email string) error {
	users := s.repomanager.Users(s.db)
	if _, err := users.GetByUserName(ctx, username); err == nil {
		return common.ErrConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("register: %w", err)
	}
	if _, err := users.GetByEmail(ctx, email); err == nil {
		return common.ErrConflict
	} else if !errors.Is(err, common.ErrorNotFound) {
		return fmt.Errorf("register: %w", err)
	}
	return nil
}

// checkPassword collapses unknown user and wrong password into
// ErrInvalidCredentials. Unknown users still pay for a hash comparison.
func (s *AuthService) checkPassword(ctx context.Context, username, password string) (*models.User, error) {
	user, err := s.repomanager.Users(s.db).GetByUserName(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			cryptox.ComparePassword(nil, password)
			return nil, common.ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}
	if !cryptox.ComparePassword(user.PasswordHash, password) {
		return nil, common.ErrInvalidCredentials
	}
	return user, nil
}

func (s *AuthService) storeCode(ctx context.Context, db dbx.DBTX, userID, code string) error {
	_, err := s.repomanager.OTPs(db).Create(ctx, &models.OneTimeCode{
		UserID:    userID,
		Code:      code,
		ExpiresAt: s.now().Add(s.otpTTL),
	})
	return err
}

func (s *AuthService) issueCode(ctx context.Context, user *models.User) error {
	code, err := otp.Generate()
	if err != nil {
		return fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	if err := s.storeCode(ctx, s.db, user.ID, code); err != nil {
		return fmt.Errorf("store code: %w", err)
	}
	s.dispatcher.Dispatch(ctx, user.Email, code)
	return nil
}

func (s *AuthService) pending(user *models.User, purpose auth.Purpose) (*AuthResult, error) {
	token, err := s.issuer.IssueTemporary(user.ID, purpose)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &AuthResult{Token: token, RequiresOTP: true, UserID: user.ID, Role: user.Role}, nil
}

// redeem validates the temporary credential, then finds, consumes and (for
// registration) applies the code in one transaction. Every code problem is
// reported as ErrInvalidOTP.
func (s *AuthService) redeem(ctx context.Context, tempToken, code string, purpose auth.Purpose) (*AuthResult, error) {
	subject, err := s.issuer.ValidateTemporary(tempToken, purpose)
	if err != nil {
		return nil, err
	}
	if !otp.WellFormed(code) {
		return nil, common.ErrInvalidOTP
	}

	var user *models.User
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		codes := s.repomanager.OTPs(tx)
		users := s.repomanager.Users(tx)

		found, err := codes.FindValid(ctx, subject, code, s.now())
		if err != nil {
			return err
		}
		if err := codes.MarkUsed(ctx, found.ID); err != nil {
			return err
		}
		if purpose == auth.PurposeRegistration {
			if err := users.MarkVerified(ctx, subject); err != nil {
				return err
			}
		}
		user, err = users.GetByID(ctx, subject)
		return err
	})
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, common.ErrInvalidOTP
		}
		return nil, fmt.Errorf("verify code: %w", err)
	}

	if !user.Verified {
		return nil, common.ErrNotVerified
	}

	token, err := s.issuer.IssueSession(user.ID, user.Role)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", common.ErrorInternal, err)
	}
	return &AuthResult{Token: token, UserID: user.ID, Role: user.Role}, nil
}
