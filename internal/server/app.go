// Package server wires configuration, storage, key material and services
// together and runs the gRPC and HTTP servers until shutdown.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/logging"
	"github.com/dmitrijs2005/gophstamp/internal/server/archive"
	"github.com/dmitrijs2005/gophstamp/internal/server/auth"
	"github.com/dmitrijs2005/gophstamp/internal/server/config"
	"github.com/dmitrijs2005/gophstamp/internal/server/httpapi"
	"github.com/dmitrijs2005/gophstamp/internal/server/metrics"
	"github.com/dmitrijs2005/gophstamp/internal/server/notify"
	"github.com/dmitrijs2005/gophstamp/internal/server/ratelimit"
	"github.com/dmitrijs2005/gophstamp/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophstamp/internal/server/services"
	"github.com/dmitrijs2005/gophstamp/internal/server/signer"

	gs "github.com/dmitrijs2005/gophstamp/internal/server/grpc"
)

const drainTimeout = 20 * time.Second

type App struct {
	config       *config.Config
	logger       logging.Logger
	db           *sql.DB
	dispatcher   *notify.Dispatcher
	authService  *services.AuthService
	stampService *services.TimestampService
	limits       gs.Limits
	generalLimit ratelimit.Rule
}

// Limits parses the configured rate limits.
func Limits(c *config.Config) (gs.Limits, ratelimit.Rule, error) {
	var (
		l   gs.Limits
		err error
	)
	if l.Auth, err = ratelimit.Parse(c.AuthRateLimit); err != nil {
		return l, ratelimit.Rule{}, err
	}
	if l.Upload, err = ratelimit.Parse(c.UploadRateLimit); err != nil {
		return l, ratelimit.Rule{}, err
	}
	if l.Delete, err = ratelimit.Parse(c.DeleteRateLimit); err != nil {
		return l, ratelimit.Rule{}, err
	}
	general, err := ratelimit.Parse(c.GeneralRateLimit)
	return l, general, err
}

// NewNotifier picks SMTP delivery when a relay is configured and falls back
// to logging otherwise.
func NewNotifier(c *config.Config, logger logging.Logger) notify.Notifier {
	if !c.MailEnabled() {
		logger.Warn(context.Background(), "no SMTP host configured, one-time codes are not delivered")
		return notify.NewLogNotifier(logger)
	}
	return notify.NewSMTPNotifier(notify.SMTPConfig{
		Host:     c.SMTPHost,
		Port:     c.SMTPPort,
		Username: c.SMTPUser,
		Password: c.SMTPPassword,
		From:     c.SMTPFrom,
		StartTLS: c.SMTPStartTLS,
		CodeTTL:  c.OTPTTL,
	})
}

// NewArchive returns the S3 store when a bucket is configured.
func NewArchive(ctx context.Context, c *config.Config) (archive.Store, error) {
	if !c.ArchiveEnabled() {
		return archive.Disabled{}, nil
	}
	return archive.NewS3Store(ctx, archive.S3Config{
		Bucket:       c.S3Bucket,
		Region:       c.S3Region,
		AccessKey:    c.S3RootUser,
		SecretKey:    c.S3RootPassword,
		BaseEndpoint: c.S3BaseEndpoint,
	})
}

// OpenStore connects to PostgreSQL and applies migrations.
func OpenStore(ctx context.Context, c *config.Config) (*sql.DB, repomanager.RepositoryManager, error) {
	db, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	rm := repomanager.NewPostgresRepositoryManager()
	if err := rm.RunMigrations(ctx, db); err != nil {
		_ = db.Close()
		return nil, nil, fmt.Errorf("db init error: %w", err)
	}
	return db, rm, nil
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewJSON(os.Stdout, c.LogLevel)

	// Without key material nothing can be signed; refuse to start.
	sg, err := signer.New(c.SigningKeyPath, c.CertificatePath)
	if err != nil {
		return nil, err
	}

	limits, general, err := Limits(c)
	if err != nil {
		return nil, fmt.Errorf("rate limits: %w", err)
	}

	store, err := NewArchive(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("archive init error: %w", err)
	}

	db, rm, err := OpenStore(ctx, c)
	if err != nil {
		return nil, err
	}

	dispatcher := notify.NewDispatcher(NewNotifier(c, logger), notify.DefaultTimeout, logger)
	dispatcher.OnResult = metrics.RecordOTPDispatch

	issuer := auth.NewIssuer([]byte(c.SecretKey), c.SessionTokenTTL, c.TemporaryTokenTTL)

	return &App{
		config:       c,
		logger:       logger,
		db:           db,
		dispatcher:   dispatcher,
		authService:  services.NewAuthService(db, rm, issuer, dispatcher, c, logger),
		stampService: services.NewTimestampService(db, rm, sg, store, logger),
		limits:       limits,
		generalLimit: general,
	}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	// Channel to catch OS signals.
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.authService, app.stampService,
		app.limits, app.config.MaxUploadBytes)

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := httpapi.NewServer(app.config.EndpointAddrHTTP, app.stampService, app.logger, httpapi.Options{
		Limit:          app.generalLimit,
		MaxUploadBytes: app.config.MaxUploadBytes,
	})

	if err := s.Run(ctx); err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	}
}

func (app *App) Run(ctx context.Context) {

	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")

	app.initSignalHandler(cancelFunc)

	var wg sync.WaitGroup

	wg.Add(2)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	drainCtx, cancel := context.WithTimeout(context.Background(), drainTimeout)
	defer cancel()
	if err := app.dispatcher.Wait(drainCtx); err != nil {
		app.logger.Warn(drainCtx, "pending code deliveries abandoned", "error", err)
	}

	if err := app.db.Close(); err != nil {
		app.logger.Error(drainCtx, "db close", "error", err)
	}

	app.logger.Info(drainCtx, "App stopped")
}
