package cli

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/client/models"
	"github.com/dmitrijs2005/gophstamp/internal/client/services"
)

func (a *App) printReceipt(rc *models.Receipt) {
	fmt.Fprintf(a.out, "ID:          %s\n", rc.ID)
	fmt.Fprintf(a.out, "File:        %s\n", rc.FileName)
	fmt.Fprintf(a.out, "Fingerprint: %s\n", rc.Fingerprint)
	fmt.Fprintf(a.out, "Stamped at:  %s\n", rc.CreatedAt.UTC().Format(time.RFC3339Nano))
	if rc.OwnerName != "" {
		fmt.Fprintf(a.out, "Owner:       %s\n", rc.OwnerName)
	}
	fmt.Fprintf(a.out, "Archived:    %t\n", rc.Archived)
	fmt.Fprintf(a.out, "Signature:   %s\n", rc.Signature)
}

func (a *App) Stamp(ctx context.Context, path string) error {
	rctx, cancel := a.withTimeout(ctx)
	defer cancel()

	rc, created, err := a.stampService.Stamp(rctx, path)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintln(a.out, "Document stamped.")
	} else {
		fmt.Fprintln(a.out, "Document was already stamped; existing record returned.")
	}
	a.printReceipt(rc)
	return nil
}

func (a *App) Verify(ctx context.Context, path string) error {
	rctx, cancel := a.withTimeout(ctx)
	defer cancel()

	out, err := a.stampService.Verify(rctx, path)
	if err != nil {
		return err
	}
	a.printReceipt(out.Receipt)
	switch {
	case out.ServerValid && out.LocalValid:
		fmt.Fprintln(a.out, "VALID: signature checked by the server and against the server certificate.")
	case out.ServerValid:
		fmt.Fprintln(a.out, "WARNING: the server accepts the record but it does not verify against the cached certificate (try 'cert refresh').")
	default:
		fmt.Fprintln(a.out, "INVALID: the stored signature does not verify.")
	}
	return nil
}

func (a *App) VerifyOffline(ctx context.Context, path string) error {
	rc, err := a.stampService.VerifyOffline(ctx, path)
	if errors.Is(err, services.ErrSignatureMismatch) {
		a.printReceipt(rc)
		fmt.Fprintln(a.out, "INVALID:", err)
		return nil
	}
	if err != nil {
		return err
	}
	a.printReceipt(rc)
	fmt.Fprintln(a.out, "VALID: receipt verifies against the cached server certificate.")
	return nil
}

func (a *App) printList(items []*models.Receipt) {
	if len(items) == 0 {
		fmt.Fprintln(a.out, "No records.")
		return
	}
	for _, rc := range items {
		fmt.Fprintln(a.out, rc)
	}
}

func (a *App) List(ctx context.Context, offset, limit int) error {
	rctx, cancel := a.withTimeout(ctx)
	defer cancel()

	items, err := a.stampService.List(rctx, offset, limit)
	if err != nil {
		return err
	}
	a.printList(items)
	return nil
}

// Saved lists receipts kept in the local database. Works offline.
func (a *App) Saved(ctx context.Context) error {
	items, err := a.stampService.Saved(ctx)
	if err != nil {
		return err
	}
	a.printList(items)
	return nil
}

func (a *App) Show(ctx context.Context, id string) error {
	rctx, cancel := a.withTimeout(ctx)
	defer cancel()

	rc, err := a.stampService.Show(rctx, id)
	if err != nil {
		return err
	}
	a.printReceipt(rc)
	return nil
}

func (a *App) Delete(ctx context.Context, id string) error {
	answer, err := getSimpleText(a.reader, fmt.Sprintf("Delete record %s? Type 'yes' to confirm", id), a.out)
	if err != nil {
		return err
	}
	if answer != "yes" {
		fmt.Fprintln(a.out, "Cancelled.")
		return nil
	}

	rctx, cancel := a.withTimeout(ctx)
	defer cancel()

	if err := a.stampService.Delete(rctx, id); err != nil {
		return err
	}
	fmt.Fprintln(a.out, "Deleted.")
	return nil
}

// Download runs without the request timeout; the transfer of a large
// original can take longer.
func (a *App) Download(ctx context.Context, id string) error {
	path, err := a.stampService.Download(ctx, id)
	if errors.Is(err, services.ErrContentMismatch) {
		fmt.Fprintf(a.out, "WARNING: %s (saved to %s)\n", err, path)
		return nil
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "File saved to: %s\n", path)
	return nil
}

func (a *App) Certificate(ctx context.Context, refresh bool) error {
	rctx, cancel := a.withTimeout(ctx)
	defer cancel()

	cert, err := a.stampService.Certificate(rctx, refresh)
	if err != nil {
		return err
	}
	fmt.Fprintf(a.out, "Subject:   %s\n", cert.Subject.String())
	fmt.Fprintf(a.out, "Issuer:    %s\n", cert.Issuer.String())
	fmt.Fprintf(a.out, "Serial:    %s\n", cert.SerialNumber.Text(16))
	fmt.Fprintf(a.out, "Valid:     %s .. %s\n", cert.NotBefore.UTC().Format(time.RFC3339), cert.NotAfter.UTC().Format(time.RFC3339))
	return nil
}
