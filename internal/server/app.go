// Package server initializes and runs the attachment server application.
// It wires the configured repository backend, the domain services, the
// background reaper, and the HTTP API, and handles graceful shutdown.
package server

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/mailseal/internal/logging"
	"github.com/dmitrijs2005/mailseal/internal/server/access"
	"github.com/dmitrijs2005/mailseal/internal/server/attachments"
	"github.com/dmitrijs2005/mailseal/internal/server/chunkstore"
	"github.com/dmitrijs2005/mailseal/internal/server/config"
	"github.com/dmitrijs2005/mailseal/internal/server/httpapi"
	"github.com/dmitrijs2005/mailseal/internal/server/quota"
	"github.com/dmitrijs2005/mailseal/internal/server/shared/db"
)

type App struct {
	config            *config.Config
	logger            logging.Logger
	manager           db.RepositoryManager
	quotaService      *quota.Service
	attachmentService *attachments.Service
	reaper            *attachments.Reaper
}

func NewApp(ctx context.Context, cfg *config.Config) (*App, error) {

	sl := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	logger := logging.NewSlogLogger(sl)

	var manager db.RepositoryManager
	if cfg.InMemory {
		manager = db.NewInMemoryRepositoryManager(cfg.DefaultQuotaBytes)
	} else {
		var store chunkstore.Store
		if cfg.S3Enabled() {
			s3store, err := chunkstore.NewS3Store(ctx, chunkstore.S3Config{
				RootUser:     cfg.S3RootUser,
				RootPassword: cfg.S3RootPassword,
				Bucket:       cfg.S3Bucket,
				Region:       cfg.S3Region,
				BaseEndpoint: cfg.S3BaseEndpoint,
			})
			if err != nil {
				return nil, fmt.Errorf("s3 init error: %w", err)
			}
			store = s3store
		}

		m, err := db.NewPostgresRepositoryManager(cfg.DatabaseDSN, cfg.DefaultQuotaBytes, store)
		if err != nil {
			return nil, fmt.Errorf("db init error: %w", err)
		}
		manager = m
	}

	qs := quota.NewService(manager.Quotas(), logger)
	guard := access.NewGuard(manager.Messages())
	as := attachments.NewService(manager.Attachments(), qs, guard, logger)

	reaper := attachments.NewReaper(manager.Attachments(), qs, logger,
		cfg.ReapInterval, cfg.Retention)

	return &App{
		config:            cfg,
		logger:            logger,
		manager:           manager,
		quotaService:      qs,
		attachmentService: as,
		reaper:            reaper,
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

func (app *App) startHTTPServer(ctx context.Context, cancelFunc context.CancelFunc) {

	s, err := httpapi.NewServer(app.config.EndpointAddr, app.logger,
		app.attachmentService, app.quotaService, app.config.SecretKey)

	if err != nil {
		app.logger.Error(ctx, err.Error())
		cancelFunc()
	} else {

		if err := s.Run(ctx); err != nil {
			app.logger.Error(ctx, err.Error())
			cancelFunc()
		}
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
		app.reaper.Run(ctx)
	}()

	wg.Add(1)
	go func() {
		defer wg.Done()
		app.startHTTPServer(ctx, cancelFunc)
	}()

	wg.Wait()

	if err := app.manager.Close(); err != nil {
		app.logger.Error(ctx, "error closing repositories", "error", err)
	}
}
