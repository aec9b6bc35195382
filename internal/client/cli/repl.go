package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/dmitrijs2005/gophstamp/internal/client/client"
	"github.com/dmitrijs2005/gophstamp/internal/common"
)

// printlnFn is a test seam for user-facing output. In tests, replace it with a stub.
var printlnFn = fmt.Println

// execIface defines the minimal command surface the REPL needs to operate.
// The real App type satisfies this interface; tests can provide a lightweight stub.
type execIface interface {
	isLoggedIn() bool
	Register(ctx context.Context) error
	Resend(ctx context.Context) error
	Login(ctx context.Context) error
	OTP(ctx context.Context, code string) error
	Whoami(ctx context.Context) error
	Logout(ctx context.Context) error
	Stamp(ctx context.Context, path string) error
	Verify(ctx context.Context, path string) error
	VerifyOffline(ctx context.Context, path string) error
	List(ctx context.Context, offset, limit int) error
	Saved(ctx context.Context) error
	Show(ctx context.Context, id string) error
	Delete(ctx context.Context, id string) error
	Download(ctx context.Context, id string) error
	Certificate(ctx context.Context, refresh bool) error
}

const (
	helpAnonymous = "Available commands: register, resend, login, otp <code>, verify <file>, verify-offline <file>, saved, cert [refresh], exit"
	helpSignedIn  = "Available commands: stamp <file>, verify <file>, verify-offline <file>, (l)ist [offset] [limit], show <id>, delete <id>, download <id>, saved, cert [refresh], whoami, logout, exit"
)

// needsSession lists commands that only make sense with a session.
var needsSession = map[string]bool{
	"stamp": true, "list": true, "l": true, "show": true,
	"delete": true, "download": true, "whoami": true, "logout": true,
}

// runREPL reads commands line by line from reader and dispatches them to a
// until EOF, "exit" or "quit".
//
// Command errors are reported to the user and never end the loop.
func runREPL(ctx context.Context, a execIface, statusFn func() string, reader *bufio.Reader) {
	for {
		printlnFn(fmt.Sprintf("gophstamp %s> ", statusFn()))
		line, err := reader.ReadString('\n')
		if err != nil && (!errors.Is(err, io.EOF) || line == "") {
			return
		}
		parts := strings.Fields(line)
		if len(parts) == 0 {
			continue
		}
		cmd, args := parts[0], parts[1:]

		if needsSession[cmd] && !a.isLoggedIn() {
			printlnFn("Please login first")
			continue
		}

		var cmdErr error
		switch cmd {
		case "help":
			if a.isLoggedIn() {
				printlnFn(helpSignedIn)
			} else {
				printlnFn(helpAnonymous)
			}

		case "register":
			cmdErr = a.Register(ctx)

		case "resend":
			cmdErr = a.Resend(ctx)

		case "login":
			cmdErr = a.Login(ctx)

		case "otp":
			if len(args) == 0 {
				printlnFn("Usage: otp <code>")
				continue
			}
			cmdErr = a.OTP(ctx, normalizeCode(strings.Join(args, "")))

		case "whoami":
			cmdErr = a.Whoami(ctx)

		case "logout":
			cmdErr = a.Logout(ctx)

		case "stamp", "verify", "verify-offline":
			if len(args) == 0 {
				printlnFn(fmt.Sprintf("Usage: %s <file>", cmd))
				continue
			}
			path := strings.Join(args, " ")
			switch cmd {
			case "stamp":
				cmdErr = a.Stamp(ctx, path)
			case "verify":
				cmdErr = a.Verify(ctx, path)
			default:
				cmdErr = a.VerifyOffline(ctx, path)
			}

		case "l", "list":
			offset, limit, ok := pageArgs(args)
			if !ok {
				printlnFn("Usage: list [offset] [limit]")
				continue
			}
			cmdErr = a.List(ctx, offset, limit)

		case "saved":
			cmdErr = a.Saved(ctx)

		case "show", "delete", "download":
			if len(args) != 1 {
				printlnFn(fmt.Sprintf("Usage: %s <id>", cmd))
				continue
			}
			switch cmd {
			case "show":
				cmdErr = a.Show(ctx, args[0])
			case "delete":
				cmdErr = a.Delete(ctx, args[0])
			default:
				cmdErr = a.Download(ctx, args[0])
			}

		case "cert":
			cmdErr = a.Certificate(ctx, len(args) > 0 && args[0] == "refresh")

		case "exit", "quit":
			printlnFn("Bye!")
			return

		default:
			printlnFn("Unknown command:", cmd)
		}

		if cmdErr != nil {
			printlnFn("Error:", describe(cmdErr))
		}
	}
}

// pageArgs parses the optional offset and limit of list. Zero limit means
// the server default.
func pageArgs(args []string) (offset, limit int, ok bool) {
	if len(args) > 2 {
		return 0, 0, false
	}
	vals := []*int{&offset, &limit}
	for i, s := range args {
		n, err := strconv.Atoi(s)
		if err != nil || n < 0 {
			return 0, 0, false
		}
		*vals[i] = n
	}
	return offset, limit, true
}

// describe turns an error into a message for the user.
func describe(err error) string {
	switch {
	case errors.Is(err, common.ErrTokenExpired):
		return "session expired, please login again"
	case errors.Is(err, common.ErrInvalidToken):
		return "not signed in or session invalid, please login again"
	case errors.Is(err, client.ErrUnavailable):
		return "server unavailable, try again later"
	case errors.Is(err, common.ErrRateLimited):
		return "too many attempts, wait a moment and retry"
	default:
		return err.Error()
	}
}
