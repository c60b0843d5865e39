package backup

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

const (
	defaultInterval = 24 * time.Hour
	defaultKeepLast = 7

	filePrefix = "hero-analytics-"
	fileSuffix = ".duckdb"
)

// ErrNoDatabaseFile is returned when backups are enabled on an in-memory
// store.
var ErrNoDatabaseFile = errors.New("backup: analytics store has no database file")

// Manager takes a snapshot at startup and then every Interval, uploads it
// when a bucket is configured, and prunes old local copies.
type Manager struct {
	store    Snapshotter
	cfg      Config
	uploader Uploader
	logger   *zap.Logger
	now      func() time.Time

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewManager starts a manager. It returns nil when backups are disabled.
func NewManager(store Snapshotter, cfg Config, logger *zap.Logger) (*Manager, error) {
	if !cfg.Enabled {
		return nil, nil
	}
	if store == nil || strings.TrimSpace(store.Path()) == "" {
		return nil, ErrNoDatabaseFile
	}
	if strings.TrimSpace(cfg.Dir) == "" {
		return nil, fmt.Errorf("backup: backup-dir is required when backups are enabled")
	}
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	if cfg.KeepLast <= 0 {
		cfg.KeepLast = defaultKeepLast
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := os.MkdirAll(cfg.Dir, 0755); err != nil {
		return nil, fmt.Errorf("backup: create backup-dir: %w", err)
	}

	var uploader Uploader
	if strings.TrimSpace(cfg.BucketURL) != "" {
		s3u, err := NewS3Uploader(S3Config{
			BucketURL: cfg.BucketURL,
			Endpoint:  cfg.S3Endpoint,
			Region:    cfg.S3Region,
		})
		if err != nil {
			return nil, fmt.Errorf("backup: init s3 uploader: %w", err)
		}
		uploader = s3u
	}

	m := newManager(store, cfg, uploader, logger)
	if err := m.RunOnce(m.ctx); err != nil {
		m.logger.Warn("startup snapshot failed", zap.Error(err))
	}
	m.wg.Add(1)
	go m.loop()
	return m, nil
}

func newManager(store Snapshotter, cfg Config, uploader Uploader, logger *zap.Logger) *Manager {
	ctx, cancel := context.WithCancel(context.Background())
	return &Manager{
		store:    store,
		cfg:      cfg,
		uploader: uploader,
		logger:   logger.Named("backup"),
		now:      time.Now,
		ctx:      ctx,
		cancel:   cancel,
	}
}

func (m *Manager) loop() {
	defer m.wg.Done()
	ticker := time.NewTicker(m.cfg.Interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := m.RunOnce(m.ctx); err != nil && m.ctx.Err() == nil {
				m.logger.Warn("periodic snapshot failed", zap.Error(err))
			}
		case <-m.ctx.Done():
			return
		}
	}
}

// RunOnce writes one snapshot, uploads it when configured and prunes old
// local copies.
func (m *Manager) RunOnce(ctx context.Context) error {
	name := filePrefix + m.now().UTC().Format("20060102-150405") + fileSuffix
	dst := filepath.Join(m.cfg.Dir, name)

	if err := m.store.SnapshotTo(dst); err != nil {
		return fmt.Errorf("backup: snapshot: %w", err)
	}
	m.logger.Info("analytics snapshot written", zap.String("path", dst))

	if m.uploader != nil {
		if err := m.uploader.UploadFile(ctx, dst); err != nil {
			return fmt.Errorf("backup: upload: %w", err)
		}
		m.logger.Info("analytics snapshot uploaded", zap.String("file", name))
	}

	removed, err := prune(m.cfg.Dir, m.cfg.KeepLast)
	if err != nil {
		return fmt.Errorf("backup: prune: %w", err)
	}
	if removed > 0 {
		m.logger.Debug("pruned old snapshots", zap.Int("removed", removed))
	}
	return nil
}

// Stop cancels any upload in flight and ends the loop. Safe to call more
// than once.
func (m *Manager) Stop() {
	m.once.Do(func() {
		m.cancel()
		m.wg.Wait()
	})
}

// prune keeps the newest keep snapshots in dir. Names embed a sortable UTC
// timestamp.
func prune(dir string, keep int) (int, error) {
	matches, err := filepath.Glob(filepath.Join(dir, filePrefix+"*"+fileSuffix))
	if err != nil {
		return 0, err
	}
	if keep <= 0 || len(matches) <= keep {
		return 0, nil
	}
	sort.Sort(sort.Reverse(sort.StringSlice(matches)))

	removed := 0
	for _, old := range matches[keep:] {
		if err := os.Remove(old); err != nil && !os.IsNotExist(err) {
			return removed, err
		}
		removed++
	}
	return removed, nil
}
