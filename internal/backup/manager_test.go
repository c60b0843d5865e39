package backup

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap"
)

type fakeSnapshotter struct {
	path string
	data []byte
	err  error
}

func (f *fakeSnapshotter) Path() string { return f.path }

func (f *fakeSnapshotter) SnapshotTo(dst string) error {
	if f.err != nil {
		return f.err
	}
	return os.WriteFile(dst, f.data, 0644)
}

// stepClock returns a time one second later on every call.
func stepClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Second)
		return t
	}
}

func TestNewManager_Disabled(t *testing.T) {
	t.Parallel()

	m, err := NewManager(&fakeSnapshotter{path: "/tmp/hero.duckdb"}, Config{}, nil)
	if err != nil {
		t.Fatalf("NewManager error: %v", err)
	}
	if m != nil {
		t.Fatal("expected nil manager when disabled")
	}
}

func TestNewManager_RequiresDatabaseFile(t *testing.T) {
	t.Parallel()

	_, err := NewManager(&fakeSnapshotter{}, Config{Enabled: true, Dir: t.TempDir()}, nil)
	if !errors.Is(err, ErrNoDatabaseFile) {
		t.Fatalf("err = %v, want ErrNoDatabaseFile", err)
	}
}

func TestNewManager_RequiresDir(t *testing.T) {
	t.Parallel()

	_, err := NewManager(&fakeSnapshotter{path: "/tmp/hero.duckdb"}, Config{Enabled: true}, nil)
	if err == nil {
		t.Fatal("expected error without a backup dir")
	}
}

func TestNewManager_StartupSnapshot(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m, err := NewManager(&fakeSnapshotter{path: "/tmp/hero.duckdb", data: []byte("x")}, Config{
		Enabled:  true,
		Interval: time.Hour,
		Dir:      dir,
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	m.Stop()
	m.Stop()

	files, _ := filepath.Glob(filepath.Join(dir, "hero-analytics-*.duckdb"))
	if len(files) != 1 {
		t.Fatalf("snapshots after startup = %d, want 1", len(files))
	}
}

func TestRunOnce_WritesAndPrunes(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	m := newManager(&fakeSnapshotter{path: "/tmp/hero.duckdb", data: []byte("snapshot")},
		Config{Dir: dir, KeepLast: 2}, nil, zap.NewNop())
	m.now = stepClock()

	for i := 0; i < 3; i++ {
		if err := m.RunOnce(context.Background()); err != nil {
			t.Fatalf("RunOnce #%d: %v", i+1, err)
		}
	}

	files, err := filepath.Glob(filepath.Join(dir, "hero-analytics-*.duckdb"))
	if err != nil {
		t.Fatalf("glob: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("snapshots = %d, want 2", len(files))
	}
	for _, f := range files {
		if filepath.Base(f) == "hero-analytics-20260301-120001.duckdb" {
			t.Errorf("oldest snapshot was kept: %v", files)
		}
	}
}

func TestRunOnce_SnapshotError(t *testing.T) {
	t.Parallel()

	m := newManager(&fakeSnapshotter{path: "/tmp/hero.duckdb", err: errors.New("disk full")},
		Config{Dir: t.TempDir(), KeepLast: 2}, nil, zap.NewNop())
	if err := m.RunOnce(context.Background()); err == nil {
		t.Fatal("expected snapshot error")
	}
}

type recordingUploader struct {
	mu    sync.Mutex
	paths []string
}

func (u *recordingUploader) UploadFile(_ context.Context, p string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	u.paths = append(u.paths, p)
	return nil
}

func TestRunOnce_Uploads(t *testing.T) {
	t.Parallel()

	up := &recordingUploader{}
	m := newManager(&fakeSnapshotter{path: "/tmp/hero.duckdb", data: []byte("x")},
		Config{Dir: t.TempDir(), KeepLast: 2}, up, zap.NewNop())
	if err := m.RunOnce(context.Background()); err != nil {
		t.Fatalf("RunOnce: %v", err)
	}
	if len(up.paths) != 1 {
		t.Fatalf("uploads = %d, want 1", len(up.paths))
	}
}

type blockingUploader struct {
	started chan struct{}
	once    sync.Once
}

func (u *blockingUploader) UploadFile(ctx context.Context, _ string) error {
	u.once.Do(func() { close(u.started) })
	<-ctx.Done()
	return ctx.Err()
}

func TestStop_CancelsInFlightUpload(t *testing.T) {
	t.Parallel()

	uploader := &blockingUploader{started: make(chan struct{})}
	m := newManager(&fakeSnapshotter{path: "/tmp/hero.duckdb", data: []byte("x")}, Config{
		Interval: 5 * time.Millisecond,
		Dir:      t.TempDir(),
		KeepLast: 2,
	}, uploader, zap.NewNop())

	m.wg.Add(1)
	go m.loop()

	select {
	case <-uploader.started:
	case <-time.After(2 * time.Second):
		t.Fatal("timed out waiting for upload to start")
	}

	done := make(chan struct{})
	go func() {
		m.Stop()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Stop did not return; upload not cancelled")
	}
}
