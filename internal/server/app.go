// Package server wires configuration, storage, the gRPC session server and
// the backup scheduler into one process.
package server

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"

	"github.com/dmitrijs2005/gophvault/internal/logging"
	"github.com/dmitrijs2005/gophvault/internal/server/backup"
	"github.com/dmitrijs2005/gophvault/internal/server/config"
	"github.com/dmitrijs2005/gophvault/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/gophvault/internal/server/services"

	gs "github.com/dmitrijs2005/gophvault/internal/server/grpc"
)

type App struct {
	config    *config.Config
	logger    logging.Logger
	logCloser io.Closer
	db        *sql.DB
	server    *gs.GRPCServer
	scheduler *backup.Scheduler
}

func NewApp(ctx context.Context, c *config.Config) (*App, error) {
	logger, logCloser, err := logging.NewJSONLogger(c.LogDir, "server.log", slog.LevelInfo)
	if err != nil {
		return nil, fmt.Errorf("logger init error: %w", err)
	}

	db, rm, err := repomanager.Open(ctx, c.DatabaseDSN)
	if err != nil {
		_ = logCloser.Close()
		return nil, fmt.Errorf("db init error: %w", err)
	}
	logger.Info(ctx, "Storage ready", "dialect", rm.Dialect().String())

	keeper := services.NewKeeperService(db, rm)

	var uploader backup.Uploader
	if c.S3Bucket != "" {
		u, err := backup.NewS3Uploader(ctx, backup.S3Config{
			Region:   c.S3Region,
			User:     c.S3RootUser,
			Password: c.S3RootPassword,
			Endpoint: c.S3BaseEndpoint,
			Bucket:   c.S3Bucket,
		})
		if err != nil {
			_ = db.Close()
			_ = logCloser.Close()
			return nil, fmt.Errorf("backup mirror init error: %w", err)
		}
		uploader = u
	}

	snapshot := backup.SnapshotFunc(func(ctx context.Context, path string) error {
		return rm.Snapshot(ctx, db, path)
	})

	return &App{
		config:    c,
		logger:    logger,
		logCloser: logCloser,
		db:        db,
		server:    gs.NewGRPCServer(c.ListenAddr, c.TLSCertFile, c.TLSKeyFile, logger, keeper),
		scheduler: backup.NewScheduler(c.BackupInterval, c.BackupDir, c.MaxBackups, snapshot, uploader, logger),
	}, nil
}

func (app *App) initSignalHandler(ctx context.Context, cancelFunc context.CancelFunc) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM, syscall.SIGQUIT)

	go func() {
		defer signal.Stop(sigs)
		select {
		case s := <-sigs:
			app.logger.Info(ctx, "Signal received", "signal", s.String())
			cancelFunc()
		case <-ctx.Done():
		}
	}()
}

// Run serves until ctx is cancelled, a termination signal arrives or the
// gRPC server fails, then releases storage and the log file.
func (app *App) Run(ctx context.Context) error {
	ctx, cancelFunc := context.WithCancel(ctx)
	defer cancelFunc()

	app.logger.Info(ctx, "Starting app...")
	app.initSignalHandler(ctx, cancelFunc)

	var (
		wg        sync.WaitGroup
		serverErr error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := app.server.Run(ctx); err != nil {
			app.logger.Error(ctx, "gRPC server failed", "error", err)
			serverErr = err
			cancelFunc()
		}
	}()
	go func() {
		defer wg.Done()
		app.scheduler.Run(ctx)
	}()

	wg.Wait()

	app.logger.Info(context.Background(), "Stopped")
	return app.close(serverErr)
}

func (app *App) close(runErr error) error {
	if err := app.db.Close(); err != nil && runErr == nil {
		runErr = err
	}
	if err := app.logCloser.Close(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
