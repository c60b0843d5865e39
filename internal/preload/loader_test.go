package preload

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vsource/hero/internal/model"
)

func pngBytes(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	img.Set(0, 0, color.RGBA{R: 220, A: 255})
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func writeAsset(t *testing.T, dir, name string, data []byte) {
	t.Helper()
	p := filepath.Join(dir, filepath.FromSlash(name))
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, data, 0o644))
}

func TestWarmReportsDecodedImages(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "images/hero1.png", pngBytes(t, 16, 9))
	writeAsset(t, dir, "images/broken.jpg", []byte("not an image"))

	remote := pngBytes(t, 32, 18)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/hero3.png" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "image/png")
		_, _ = w.Write(remote)
	}))
	defer srv.Close()

	slides := []model.Slide{
		{Image: "/images/hero1.png"},
		{Image: "/images/broken.jpg"},
		{Image: srv.URL + "/hero3.png"},
		{Image: srv.URL + "/missing.png"},
		{Image: "/images/absent.png"},
	}

	var mu sync.Mutex
	var ready []int
	l := NewLoader(Config{AssetsDir: dir, Concurrency: 2}, nil)
	err := l.Warm(context.Background(), slides, func(i int) {
		mu.Lock()
		defer mu.Unlock()
		ready = append(ready, i)
	})
	require.NoError(t, err)

	sort.Ints(ready)
	assert.Equal(t, []int{0, 2}, ready)
}

func TestLoadReturnsBounds(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "hero.png", pngBytes(t, 40, 20))

	l := NewLoader(Config{AssetsDir: dir}, nil)
	b, err := l.Load(context.Background(), "/hero.png")
	require.NoError(t, err)
	assert.Equal(t, 40, b.Dx())
	assert.Equal(t, 20, b.Dy())
}

func TestLoadRejectsTraversal(t *testing.T) {
	l := NewLoader(Config{AssetsDir: t.TempDir()}, nil)
	_, err := l.Load(context.Background(), "/../../etc/passwd")
	assert.ErrorIs(t, err, ErrUnsafePath)
}

func TestLoadWithoutAssetsDir(t *testing.T) {
	l := NewLoader(Config{}, nil)
	_, err := l.Load(context.Background(), "/images/hero1.jpg")
	assert.Error(t, err)
}

func TestWarmStopsOnCancelledContext(t *testing.T) {
	dir := t.TempDir()
	writeAsset(t, dir, "a.png", pngBytes(t, 2, 2))

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	called := false
	l := NewLoader(Config{AssetsDir: dir}, nil)
	err := l.Warm(ctx, []model.Slide{{Image: "/a.png"}}, func(int) { called = true })
	assert.ErrorIs(t, err, context.Canceled)
	assert.False(t, called)
}

func TestWarmOrder(t *testing.T) {
	tests := []struct {
		n    int
		want []int
	}{
		{0, nil},
		{1, []int{0}},
		{2, []int{0, 1}},
		{3, []int{0, 1, 2}},
		{4, []int{0, 1, 3, 2}},
		{5, []int{0, 1, 4, 2, 3}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, WarmOrder(tt.n), "n=%d", tt.n)
	}
}
