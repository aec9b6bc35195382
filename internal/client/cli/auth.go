package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/dmitrijs2005/gophstamp/internal/common"
)

// getSimpleText, getPassword and getCode are indirections used to facilitate
// testing. They point to interactive input helpers and can be swapped in tests.
var (
	getSimpleText = GetSimpleText
	getPassword   = GetPassword
	getCode       = GetCode
)

// Register prompts for a username, an email address and a password, creates
// the account and then asks for the emailed code.
func (a *App) Register(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	email, err := getSimpleText(a.reader, "Enter email", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	rctx, cancel := a.withTimeout(ctx)
	err = a.authService.Register(rctx, username, email, password)
	cancel()
	if err != nil {
		return err
	}

	fmt.Fprintf(a.out, "Account created. A verification code was sent to %s.\n", email)
	return a.promptCode(ctx)
}

// Resend asks for a fresh registration code for an account that was never
// verified. The password proves ownership.
func (a *App) Resend(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	rctx, cancel := a.withTimeout(ctx)
	err = a.authService.ResendRegistrationOTP(rctx, username, password)
	cancel()
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "A new verification code was sent.")
	return a.promptCode(ctx)
}

// Login checks the password and then asks for the emailed code.
func (a *App) Login(ctx context.Context) error {
	username, err := getSimpleText(a.reader, "Enter username", a.out)
	if err != nil {
		return err
	}
	password, err := getPassword(a.out)
	if err != nil {
		return err
	}
	defer common.WipeByteArray(password)

	rctx, cancel := a.withTimeout(ctx)
	err = a.authService.Login(rctx, username, password)
	cancel()
	if errors.Is(err, common.ErrNotVerified) {
		fmt.Fprintln(a.out, "This account is not verified yet; use 'resend' to get a new registration code.")
		return nil
	}
	if err != nil {
		return err
	}

	fmt.Fprintln(a.out, "Password accepted. A login code was sent to your email.")
	return a.promptCode(ctx)
}

func (a *App) promptCode(ctx context.Context) error {
	code, err := getCode(a.reader, a.out)
	if err != nil {
		return err
	}
	if code == "" {
		return nil
	}
	return a.OTP(ctx, code)
}

// OTP completes the pending registration or login.
func (a *App) OTP(ctx context.Context, code string) error {
	rctx, cancel := a.withTimeout(ctx)
	defer cancel()

	session, err := a.authService.VerifyOTP(rctx, code)
	if err != nil {
		return err
	}
	a.session = session
	fmt.Fprintf(a.out, "Signed in as %s.\n", session.Username)
	return nil
}

func (a *App) Whoami(ctx context.Context) error {
	rctx, cancel := a.withTimeout(ctx)
	defer cancel()

	me, err := a.authService.Me(rctx)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "%s <%s> role=%s verified=%t since %s\n",
		me.Username, me.Email, me.Role, me.Verified, me.CreatedAt.Format("2006-01-02"))
	return nil
}

// Logout forgets the saved session. Saved receipts and the cached
// certificate are kept for offline checks.
func (a *App) Logout(ctx context.Context) error {
	if err := a.authService.Logout(ctx); err != nil {
		return err
	}
	a.session = nil
	fmt.Fprintln(a.out, "Logged out.")
	return nil
}
