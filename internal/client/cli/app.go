package cli

import (
	"bufio"
	"context"
	"database/sql"
	"io"
	"log"
	"os"
	"sync"
	"time"

	"github.com/dmitrijs2005/gophstamp/internal/client/client"
	"github.com/dmitrijs2005/gophstamp/internal/client/config"
	"github.com/dmitrijs2005/gophstamp/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/gophstamp/internal/client/repositories/receipts"
	"github.com/dmitrijs2005/gophstamp/internal/client/services"
)

type Mode string

const (
	ModeOffline Mode = "offline"
	ModeOnline  Mode = "online"
)

type App struct {
	config       *config.Config
	db           *sql.DB
	authService  services.AuthService
	stampService services.StampService
	session      *services.Session
	reader       *bufio.Reader
	out          io.Writer

	mu   sync.Mutex
	mode Mode
}

func NewApp(c *config.Config) (*App, error) {
	ctx := context.Background()

	db, err := client.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		log.Printf("error initializing database: %s", err.Error())
		return nil, err
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	meta := metadata.NewSQLiteRepository(db)
	as := services.NewAuthService(apiClient, meta)
	ss := services.NewStampService(apiClient, meta, receipts.NewSQLiteRepository(db), c.DownloadDir)

	return &App{
		config:       c,
		db:           db,
		authService:  as,
		stampService: ss,
		reader:       bufio.NewReader(os.Stdin),
		out:          os.Stdout,
	}, nil
}

// Run restores a saved session, starts the connectivity watcher and blocks
// in the REPL until the user quits or ctx is cancelled.
func (a *App) Run(ctx context.Context) {
	defer a.close()

	session, err := a.authService.Restore(ctx)
	if err != nil {
		log.Printf("could not restore session: %v", err)
	}
	a.session = session

	watchCtx, stop := context.WithCancel(ctx)
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		a.StartOnlineStatusWatcher(watchCtx, a.config.OnlineCheckInterval)
	}()
	defer func() {
		stop()
		wg.Wait()
	}()

	printlnFn("Welcome to gophstamp CLI (type 'help' for commands)")
	runREPL(ctx, a, a.getStatus, a.reader)
}

func (a *App) close() {
	if err := a.authService.Close(); err != nil {
		log.Printf("close client: %v", err)
	}
	if a.db != nil {
		_ = a.db.Close()
	}
}

func (a *App) isLoggedIn() bool {
	return a.session != nil
}

func (a *App) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if a.config == nil || a.config.RequestTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, a.config.RequestTimeout)
}

func (a *App) setMode(mode Mode) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.mode != mode {
		a.mode = mode
		log.Printf("Switched to %s mode\n", mode)
	}
}

func (a *App) currentMode() Mode {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.mode
}

// StartOnlineStatusWatcher pings the server right away and then every
// interval until ctx is done.
func (a *App) StartOnlineStatusWatcher(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := a.authService.Ping(pingCtx)
		cancel()

		if err != nil {
			a.setMode(ModeOffline)
		} else {
			a.setMode(ModeOnline)
		}

		select {
		case <-ticker.C:
		case <-ctx.Done():
			return
		}
	}
}

func (a *App) getStatus() string {
	s := ""
	if a.session != nil {
		s = a.session.Username
		if a.session.IsAdmin() {
			s += " admin"
		}
	}
	if p := a.authService.Pending(); p != services.PurposeNone {
		s = join(s, string(p)+" code pending")
	}
	if m := a.currentMode(); m != "" {
		s = join(s, string(m))
	}
	if s != "" {
		s = "(" + s + ")"
	}
	return s
}

func join(a, b string) string {
	if a == "" {
		return b
	}
	return a + " " + b
}
