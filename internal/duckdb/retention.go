package duckdb

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Expirer deletes analytics rows recorded before a cutoff.
type Expirer interface {
	DeleteBefore(cutoff time.Time) (int64, error)
}

// RetentionConfig holds configuration for the retention cleaner.
type RetentionConfig struct {
	// RetentionDays is how long impressions and clicks are kept. Zero or
	// less disables the cleaner.
	RetentionDays int
	// Interval between sweeps. Defaults to one hour.
	Interval time.Duration
	Logger   *zap.Logger
}

// RetentionCleaner expires analytics rows older than the retention window:
// once at startup to catch up after downtime, then on every interval.
type RetentionCleaner struct {
	store  Expirer
	window time.Duration
	logger *zap.Logger
	now    func() time.Time

	cancel context.CancelFunc
	wg     sync.WaitGroup
	once   sync.Once
}

// NewRetentionCleaner starts a cleaner over store. It returns nil when
// retention is disabled.
func NewRetentionCleaner(store Expirer, cfg RetentionConfig) *RetentionCleaner {
	if cfg.RetentionDays <= 0 {
		return nil
	}
	interval := cfg.Interval
	if interval <= 0 {
		interval = time.Hour
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	ctx, cancel := context.WithCancel(context.Background())
	rc := &RetentionCleaner{
		store:  store,
		window: time.Duration(cfg.RetentionDays) * 24 * time.Hour,
		logger: logger.With(zap.Int("retention_days", cfg.RetentionDays)),
		now:    time.Now,
		cancel: cancel,
	}

	rc.Sweep()

	rc.wg.Add(1)
	go rc.run(ctx, interval)
	return rc
}

func (rc *RetentionCleaner) run(ctx context.Context, interval time.Duration) {
	defer rc.wg.Done()
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			rc.Sweep()
		}
	}
}

// Sweep deletes every row older than the window and returns how many went.
func (rc *RetentionCleaner) Sweep() int64 {
	cutoff := rc.now().Add(-rc.window)
	n, err := rc.store.DeleteBefore(cutoff)
	if err != nil {
		rc.logger.Error("analytics expiry failed", zap.Time("cutoff", cutoff), zap.Error(err))
		return 0
	}
	if n > 0 {
		rc.logger.Info("expired analytics rows", zap.Int64("rows", n), zap.Time("cutoff", cutoff))
	}
	return n
}

// Stop ends the sweep loop and waits for it. Safe to call more than once.
func (rc *RetentionCleaner) Stop() {
	rc.once.Do(func() {
		rc.cancel()
		rc.wg.Wait()
	})
}
