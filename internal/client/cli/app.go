package cli

import (
	"bufio"
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/dmitrijs2005/fieldsync/internal/client/client"
	"github.com/dmitrijs2005/fieldsync/internal/client/config"
	"github.com/dmitrijs2005/fieldsync/internal/client/connectivity"
	"github.com/dmitrijs2005/fieldsync/internal/client/identity"
	"github.com/dmitrijs2005/fieldsync/internal/client/models"
	"github.com/dmitrijs2005/fieldsync/internal/client/notify"
	"github.com/dmitrijs2005/fieldsync/internal/client/orchestrator"
	"github.com/dmitrijs2005/fieldsync/internal/client/repositories/metadata"
	"github.com/dmitrijs2005/fieldsync/internal/client/services"
	"github.com/dmitrijs2005/fieldsync/internal/client/storage"
	"github.com/dmitrijs2005/fieldsync/internal/client/syncer"
	"github.com/dmitrijs2005/fieldsync/internal/filex"
	"github.com/dmitrijs2005/fieldsync/internal/logging"
)

type expenseService interface {
	ListActive(ctx context.Context) ([]models.Expense, error)
	Add(ctx context.Context, f models.ExpenseFields) (int64, error)
	Update(ctx context.Context, localID int64, f models.ExpenseFields) error
	SoftDelete(ctx context.Context, localID int64) error
	HardDeleteSynced(ctx context.Context) (int64, error)
}

type nameService interface {
	ListActive(ctx context.Context) ([]models.Named, error)
	Add(ctx context.Context, name string) (models.Named, error)
	Update(ctx context.Context, localID int64, name string) (models.Named, error)
	SoftDeleteByName(ctx context.Context, name string) error
}

type fuelService interface {
	Get(ctx context.Context) (float64, error)
	Set(ctx context.Context, cost float64) error
}

type syncService interface {
	PushAll(ctx context.Context) (map[string]syncer.PushResult, error)
	Resync(ctx context.Context, entity string) error
	States() map[string]syncer.State
}

type onlineChecker interface {
	IsOnline() bool
}

type App struct {
	config *config.Config
	logger logging.Logger

	expenses expenseService
	names    map[string]nameService
	fuel     fuelService
	sync     syncService
	online   onlineChecker

	reader *bufio.Reader
	out    io.Writer

	db      *sql.DB
	client  client.Client
	monitor *connectivity.Monitor
	orch    *orchestrator.Orchestrator
	hub     *notify.Hub
	feed    *notify.Feed
}

func newLogger(c *config.Config) logging.Logger {
	if c.LogFile == "" {
		return logging.NewSlogLogger(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn})))
	}
	return logging.NewTextLogger(c.LogFile, slog.LevelInfo, os.Stderr)
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {

	for _, path := range []string{c.DatabasePath, c.LogFile} {
		if err := filex.EnsureParentDir(path); err != nil {
			return nil, err
		}
	}

	logger := newLogger(c)

	db, err := storage.InitDatabase(ctx, c.DatabasePath)
	if err != nil {
		logger.Error(ctx, "error initializing database", "error", err)
		return nil, err
	}

	apiClient, err := client.NewGRPCClient(c.ServerEndpointAddr)
	if err != nil {
		_ = db.Close()
		return nil, err
	}

	ident := identity.NewProvider(apiClient, metadata.NewSQLiteRepository(db), logger)
	hub := notify.NewHub()
	monitor := connectivity.NewMonitor(apiClient, c.OnlineCheckInterval, logger)
	orch := orchestrator.New(orchestrator.NewReconcilers(db, apiClient, ident, hub, logger), monitor, ident, logger)

	a := &App{
		config:   c,
		logger:   logger,
		expenses: services.NewExpenseService(db, orch, hub, logger),
		names: map[string]nameService{
			models.EntityEngineers: services.NewEngineerService(db, orch, hub, logger),
			models.EntityClients:   services.NewClientService(db, orch, hub, logger),
		},
		fuel:    services.NewFuelCostService(db, orch, hub, logger),
		sync:    orch,
		online:  monitor,
		reader:  bufio.NewReader(os.Stdin),
		out:     os.Stdout,
		db:      db,
		client:  apiClient,
		monitor: monitor,
		orch:    orch,
		hub:     hub,
	}

	if c.NotifyAddr != "" {
		a.feed = notify.NewFeed(c.NotifyAddr, logger)
		hub.Subscribe(a.feed.Send)
	}

	return a, nil
}

func (a *App) getStatus() string {
	if a.online != nil && a.online.IsOnline() {
		return "(online)"
	}
	return "(offline)"
}

// announce tells the user about changes that did not come from this REPL.
func (a *App) announce(c notify.Change) {
	if c.Source != notify.SourceRemote {
		return
	}
	fmt.Fprintf(a.out, "\n* %s updated from the server\n", c.Entity)
}

// Run starts sync in the background and blocks in the REPL until the user
// exits or stdin closes.
func (a *App) Run(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	defer a.close()
	defer cancel()

	unsubscribe := a.hub.Subscribe(a.announce)
	defer unsubscribe()

	if a.feed != nil {
		go func() {
			if err := a.feed.Run(ctx); err != nil {
				a.logger.Error(ctx, "notification feed stopped", "error", err)
			}
		}()
	}

	a.monitor.Probe(ctx)
	if err := a.orch.Start(ctx); err != nil {
		a.logger.Warn(ctx, "sync started with errors", "error", err)
	}
	go a.monitor.Watch(ctx)

	if interactive() {
		fmt.Fprintln(a.out, "FieldSync client (type 'help' for commands)")
	}
	runREPL(ctx, a, a.getStatus, bufio.NewScanner(a.reader))
}

func (a *App) close() {
	a.orch.Stop()
	if err := a.client.Close(); err != nil {
		a.logger.Warn(context.Background(), "error closing client", "error", err)
	}
	if err := a.db.Close(); err != nil {
		a.logger.Warn(context.Background(), "error closing database", "error", err)
	}
}
