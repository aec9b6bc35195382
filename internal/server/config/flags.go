package config

import (
	"flag"
	"os"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/flagx"
)

// parseFlags populates selected server Config fields from command-line flags.
//
// Supported flags:
//
//	-a string            gRPC bind address (e.g., ":50051")
//	-l string            HTTP bind address (e.g., ":8080")
//	-d string            PostgreSQL DSN
//	-s string            JWT HMAC secret key
//	-t int               session token validity, minutes
//	-m int               temporary token validity, minutes
//	-k string            signing key path
//	-x string            certificate path
//	-smtp-host string    mail relay host
//	-smtp-port int       mail relay port
//	-smtp-user string    mail relay user
//	-smtp-password str   mail relay password
//	-smtp-from string    sender address
//	-u string            S3 root user
//	-p string            S3 root password
//	-b string            S3 bucket name (empty disables archiving)
//	-g string            S3 region
//	-e string            S3 base endpoint (e.g., "http://127.0.0.1:9000/")
//	-bootstrap-admin     first registered identity becomes admin
//	-log-level string    debug, info, warn or error
//
// The function first filters os.Args to only the flags it recognizes using
// flagx.FilterArgs, avoiding collisions with other components.
func parseFlags(config *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{
		"-a", "-l", "-d", "-s", "-t", "-m", "-k", "-x",
		"-smtp-host", "-smtp-port", "-smtp-user", "-smtp-password", "-smtp-from",
		"-u", "-p", "-b", "-g", "-e", "-log-level",
	}, "-bootstrap-admin")

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&config.EndpointAddrGRPC, "a", config.EndpointAddrGRPC, "gRPC address and port")
	fs.StringVar(&config.EndpointAddrHTTP, "l", config.EndpointAddrHTTP, "HTTP address and port")
	fs.StringVar(&config.DatabaseDSN, "d", config.DatabaseDSN, "database DSN")
	fs.StringVar(&config.SecretKey, "s", config.SecretKey, "secret key")

	sessionTTL := fs.Int("t", int(config.SessionTokenTTL.Minutes()), "session token validity (in minutes)")
	temporaryTTL := fs.Int("m", int(config.TemporaryTokenTTL.Minutes()), "temporary token validity (in minutes)")

	fs.StringVar(&config.SigningKeyPath, "k", config.SigningKeyPath, "signing key (PEM)")
	fs.StringVar(&config.CertificatePath, "x", config.CertificatePath, "certificate (PEM)")

	fs.StringVar(&config.SMTPHost, "smtp-host", config.SMTPHost, "SMTP host")
	fs.IntVar(&config.SMTPPort, "smtp-port", config.SMTPPort, "SMTP port")
	fs.StringVar(&config.SMTPUser, "smtp-user", config.SMTPUser, "SMTP user")
	fs.StringVar(&config.SMTPPassword, "smtp-password", config.SMTPPassword, "SMTP password")
	fs.StringVar(&config.SMTPFrom, "smtp-from", config.SMTPFrom, "SMTP sender address")

	fs.StringVar(&config.S3RootUser, "u", config.S3RootUser, "S3 root user")
	fs.StringVar(&config.S3RootPassword, "p", config.S3RootPassword, "S3 root password")
	fs.StringVar(&config.S3Bucket, "b", config.S3Bucket, "S3 bucket")
	fs.StringVar(&config.S3Region, "g", config.S3Region, "S3 region")
	fs.StringVar(&config.S3BaseEndpoint, "e", config.S3BaseEndpoint, "S3 base endpoint")

	fs.BoolVar(&config.BootstrapFirstAdmin, "bootstrap-admin", config.BootstrapFirstAdmin, "first registered user becomes admin")
	fs.StringVar(&config.LogLevel, "log-level", config.LogLevel, "log level")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	// minute flags only override when given, so sub-minute JSON values survive
	fs.Visit(func(f *flag.Flag) {
		switch f.Name {
		case "t":
			config.SessionTokenTTL = time.Duration(*sessionTTL) * time.Minute
		case "m":
			config.TemporaryTokenTTL = time.Duration(*temporaryTTL) * time.Minute
		}
	})
}
