// Command bootstrap creates the first administrator account directly in the
// server database. It reads the same flags and config file as the server,
// plus -admin-user and -admin-email; the password is read from the terminal.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"golang.org/x/term"

	"github.com/dmitrijs2005/gophstamp/internal/buildinfo"
	"github.com/dmitrijs2005/gophstamp/internal/flagx"
	"github.com/dmitrijs2005/gophstamp/internal/logging"
	"github.com/dmitrijs2005/gophstamp/internal/server/auth"
	"github.com/dmitrijs2005/gophstamp/internal/server/config"
	"github.com/dmitrijs2005/gophstamp/internal/server/notify"
	"github.com/dmitrijs2005/gophstamp/internal/server/services"

	"github.com/dmitrijs2005/gophstamp/internal/server"
)

func readPassword(prompt string) (string, error) {
	fmt.Print(prompt)
	b, err := term.ReadPassword(int(os.Stdin.Fd()))
	fmt.Println()
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(b)), nil
}

func main() {

	buildinfo.PrintBuildData(os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var username, email string
	fs := flag.NewFlagSet("bootstrap", flag.ExitOnError)
	fs.StringVar(&username, "admin-user", "", "administrator username")
	fs.StringVar(&email, "admin-email", "", "administrator e-mail")
	_ = fs.Parse(flagx.FilterArgs(os.Args[1:], []string{"-admin-user", "-admin-email"}))

	if username == "" || email == "" {
		log.Fatalf("-admin-user and -admin-email are required")
	}

	cfg := config.LoadConfig()
	logger := logging.NewJSON(os.Stderr, cfg.LogLevel)

	password, err := readPassword("Password: ")
	if err != nil {
		log.Fatalf("read password: %v", err)
	}
	confirm, err := readPassword("Repeat password: ")
	if err != nil {
		log.Fatalf("read password: %v", err)
	}
	if password != confirm {
		log.Fatalf("passwords do not match")
	}

	db, rm, err := server.OpenStore(ctx, cfg)
	if err != nil {
		log.Fatalf("%v", err)
	}
	defer db.Close()

	issuer := auth.NewIssuer([]byte(cfg.SecretKey), cfg.SessionTokenTTL, cfg.TemporaryTokenTTL)
	dispatcher := notify.NewDispatcher(notify.NewLogNotifier(logger), notify.DefaultTimeout, logger)

	user, err := services.NewAuthService(db, rm, issuer, dispatcher, cfg, logger).
		BootstrapAdmin(ctx, username, password, email)
	if err != nil {
		log.Fatalf("bootstrap admin: %v", err)
	}

	fmt.Printf("administrator %s created (id %s)\n", user.UserName, user.ID)
}
