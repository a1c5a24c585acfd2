// Package backup periodically snapshots the store into a local directory,
// optionally mirrors each snapshot to S3, and prunes old snapshots.
package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/dmitrijs2005/gophvault/internal/filex"
	"github.com/dmitrijs2005/gophvault/internal/logging"
)

const (
	filePrefix = "backup_"
	fileSuffix = ".db"
	timeLayout = "2006-01-02_15-04-05"

	// RemotePrefix is the object key prefix of mirrored snapshots.
	RemotePrefix = "backups/"
)

// Snapshotter writes a consistent copy of the store to a new file.
type Snapshotter interface {
	Snapshot(ctx context.Context, path string) error
}

// SnapshotFunc adapts a function to Snapshotter.
type SnapshotFunc func(ctx context.Context, path string) error

func (f SnapshotFunc) Snapshot(ctx context.Context, path string) error { return f(ctx, path) }

// Uploader stores a snapshot under key somewhere off the host.
type Uploader interface {
	Upload(ctx context.Context, key string, body io.Reader) error
}

type Scheduler struct {
	Interval    time.Duration // zero disables the scheduler
	Dir         string
	MaxBackups  int // zero keeps every snapshot
	Snapshotter Snapshotter
	Uploader    Uploader // optional

	logger logging.Logger
	now    func() time.Time
}

func NewScheduler(interval time.Duration, dir string, maxBackups int, snap Snapshotter, up Uploader, l logging.Logger) *Scheduler {
	return &Scheduler{
		Interval:    interval,
		Dir:         dir,
		MaxBackups:  maxBackups,
		Snapshotter: snap,
		Uploader:    up,
		logger:      l.With("module", "backup"),
		now:         time.Now,
	}
}

// Run takes a backup every Interval until ctx is done. Failures are logged
// and never stop the loop.
func (s *Scheduler) Run(ctx context.Context) {
	if s.Interval <= 0 {
		s.logger.Info(ctx, "Backups disabled")
		return
	}

	s.logger.Info(ctx, "Starting backup scheduler", "interval", s.Interval.String(), "dir", s.Dir, "max_backups", s.MaxBackups)

	ticker := time.NewTicker(s.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			s.logger.Info(ctx, "Stopping backup scheduler")
			return
		case <-ticker.C:
			_ = s.Tick(ctx)
		}
	}
}

// Tick takes one snapshot, mirrors it and prunes. Pruning runs even when the
// snapshot fails. The returned error joins every failure of the tick.
func (s *Scheduler) Tick(ctx context.Context) error {
	path, snapErr := s.snapshot(ctx)
	if snapErr != nil {
		s.logger.Error(ctx, "Backup failed", "error", snapErr)
	} else {
		s.logger.Info(ctx, "Backup written", "path", path)
	}

	var upErr error
	if snapErr == nil && s.Uploader != nil {
		if upErr = s.upload(ctx, path); upErr != nil {
			s.logger.Error(ctx, "Backup upload failed", "path", path, "error", upErr)
		}
	}

	pruneErr := s.prune(ctx)
	if pruneErr != nil {
		s.logger.Error(ctx, "Backup pruning failed", "error", pruneErr)
	}

	return errors.Join(snapErr, upErr, pruneErr)
}

func (s *Scheduler) snapshot(ctx context.Context) (string, error) {
	dir, err := filex.EnsureDir(s.Dir)
	if err != nil {
		return "", err
	}

	path := filepath.Join(dir, FileName(s.now()))
	if _, err := os.Stat(path); err == nil {
		return "", fmt.Errorf("snapshot %s already exists", path)
	}

	if err := s.Snapshotter.Snapshot(ctx, path); err != nil {
		_ = os.Remove(path)
		return "", fmt.Errorf("snapshot: %w", err)
	}
	return path, nil
}

func (s *Scheduler) upload(ctx context.Context, path string) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	return s.Uploader.Upload(ctx, RemotePrefix+filepath.Base(path), f)
}

func (s *Scheduler) prune(ctx context.Context) error {
	if s.MaxBackups <= 0 {
		return nil
	}

	files, err := filex.ListByModTime(s.Dir, filePrefix+"*"+fileSuffix)
	if err != nil {
		return err
	}

	var errs []error
	for len(files) > s.MaxBackups {
		if err := os.Remove(files[0]); err != nil {
			errs = append(errs, err)
		} else {
			s.logger.Info(ctx, "Backup removed", "path", files[0])
		}
		files = files[1:]
	}
	return errors.Join(errs...)
}

// FileName is the snapshot file name for t, e.g.
// backup_2025-01-31_14-05-09.db.
func FileName(t time.Time) string {
	return filePrefix + t.Format(timeLayout) + fileSuffix
}
