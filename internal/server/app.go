// Package server wires the document store server: it opens the configured
// storage backend, builds the document service and runs the gRPC endpoint
// until the process is signalled.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/fieldsync/internal/logging"
	"github.com/dmitrijs2005/fieldsync/internal/server/config"
	"github.com/dmitrijs2005/fieldsync/internal/server/documents"

	gs "github.com/dmitrijs2005/fieldsync/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	documents *documents.Service
	db        *sql.DB
}

var openPostgres = documents.OpenPostgres

var openS3 = func(ctx context.Context, c documents.S3Config) (documents.Store, error) {
	return documents.OpenS3(ctx, c)
}

// openStore returns the configured backend. The *sql.DB is non-nil only for
// postgres and must be closed by the caller.
func openStore(ctx context.Context, c *config.Config) (documents.Store, *sql.DB, error) {
	switch c.StorageBackend {
	case config.BackendMemory, "":
		return documents.NewMemoryStore(), nil, nil
	case config.BackendPostgres:
		db, err := openPostgres(ctx, c.DatabaseDSN)
		if err != nil {
			return nil, nil, err
		}
		return documents.NewPostgresStore(db), db, nil
	case config.BackendS3:
		s, err := openS3(ctx, documents.S3Config{
			AccessKey:    c.S3RootUser,
			SecretKey:    c.S3RootPassword,
			Bucket:       c.S3Bucket,
			Region:       c.S3Region,
			BaseEndpoint: c.S3BaseEndpoint,
		})
		return s, nil, err
	default:
		return nil, nil, fmt.Errorf("unknown storage backend %q", c.StorageBackend)
	}
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger := logging.NewSlogLogger(slog.New(slog.NewJSONHandler(os.Stdout, nil)))

	store, db, err := openStore(ctx, c)
	if err != nil {
		return nil, fmt.Errorf("storage init error: %w", err)
	}

	svc := documents.NewService(store, documents.NewHub(), logger)
	logger.Info(ctx, "Storage ready", "backend", c.StorageBackend)

	return &App{config: c, logger: logger, documents: svc, db: db}, nil
}

func (app *App) initSignalHandler(cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		<-sigs
		cancelFunc()
	}()
}

func (app *App) startGRPCServer(ctx context.Context, cancelFunc context.CancelFunc) {
	s := gs.NewGRPCServer(app.config.EndpointAddrGRPC, app.logger, app.documents,
		app.config.SecretKey, app.config.AccessTokenValidityDuration)

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

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startGRPCServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if app.db != nil {
		if err := app.db.Close(); err != nil {
			app.logger.Error(ctx, "db close error", "error", err)
		}
	}
	app.logger.Info(ctx, "Stopped")
}
