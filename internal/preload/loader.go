package preload

import (
	"context"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path"
	"strings"
	"time"

	"github.com/vsource/hero/internal/model"
	"go.uber.org/zap"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/errgroup"
)

const (
	defaultConcurrency = 4
	defaultTimeout     = 15 * time.Second
)

// ErrUnsafePath is returned for local image paths that escape the assets
// directory.
var ErrUnsafePath = errors.New("preload: image path escapes assets directory")

// Config controls the loader.
type Config struct {
	// AssetsDir is the root for slide images given as site paths
	// ("/images/hero1.jpg").
	AssetsDir   string
	Concurrency int
	Timeout     time.Duration
	Client      *http.Client
}

// Loader warms slide images in the background: each image is fetched and
// fully decoded, and the slide index is reported once that succeeds.
type Loader struct {
	assets      fs.FS
	concurrency int
	timeout     time.Duration
	client      *http.Client
	logger      *zap.Logger
}

// NewLoader creates a loader.
func NewLoader(cfg Config, logger *zap.Logger) *Loader {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = defaultTimeout
	}
	if cfg.Client == nil {
		cfg.Client = &http.Client{}
	}
	var assets fs.FS
	if cfg.AssetsDir != "" {
		assets = os.DirFS(cfg.AssetsDir)
	}
	return &Loader{
		assets:      assets,
		concurrency: cfg.Concurrency,
		timeout:     cfg.Timeout,
		client:      cfg.Client,
		logger:      logger,
	}
}

// Warm loads every slide image and calls ready(i) for each one that
// decodes. Images are requested starting from the first slide and working
// outwards in both directions, so the neighbours reachable by one step load
// first. A failed image is logged and never reported; Warm only returns an
// error when ctx ends first.
func (l *Loader) Warm(ctx context.Context, slides []model.Slide, ready func(int)) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(l.concurrency)

	for _, i := range WarmOrder(len(slides)) {
		if gctx.Err() != nil {
			break
		}
		uri := slides[i].Image
		g.Go(func() error {
			start := time.Now()
			bounds, err := l.Load(gctx, uri)
			if err != nil {
				if gctx.Err() != nil {
					return gctx.Err()
				}
				l.logger.Warn("slide image failed to load",
					zap.Int("slide", i), zap.String("image", uri), zap.Error(err))
				return nil
			}
			l.logger.Debug("slide image ready",
				zap.Int("slide", i),
				zap.String("image", uri),
				zap.Int("width", bounds.Dx()),
				zap.Int("height", bounds.Dy()),
				zap.Duration("took", time.Since(start)))
			ready(i)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}
	return ctx.Err()
}

// Load fetches and decodes one image, returning its bounds.
func (l *Loader) Load(ctx context.Context, uri string) (image.Rectangle, error) {
	ctx, cancel := context.WithTimeout(ctx, l.timeout)
	defer cancel()

	rc, err := l.open(ctx, uri)
	if err != nil {
		return image.Rectangle{}, err
	}
	defer rc.Close()

	img, _, err := image.Decode(rc)
	if err != nil {
		return image.Rectangle{}, fmt.Errorf("preload: decode %s: %w", uri, err)
	}
	return img.Bounds(), nil
}

func (l *Loader) open(ctx context.Context, uri string) (io.ReadCloser, error) {
	switch {
	case strings.HasPrefix(uri, "http://"), strings.HasPrefix(uri, "https://"):
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
		if err != nil {
			return nil, fmt.Errorf("preload: build request: %w", err)
		}
		resp, err := l.client.Do(req)
		if err != nil {
			return nil, fmt.Errorf("preload: fetch %s: %w", uri, err)
		}
		if resp.StatusCode != http.StatusOK {
			resp.Body.Close()
			return nil, fmt.Errorf("preload: fetch %s: status %d", uri, resp.StatusCode)
		}
		return resp.Body, nil

	default:
		if l.assets == nil {
			return nil, fmt.Errorf("preload: no assets directory for %s", uri)
		}
		name := path.Clean(strings.TrimPrefix(strings.TrimPrefix(uri, "file://"), "/"))
		if !fs.ValidPath(name) {
			return nil, fmt.Errorf("%w: %s", ErrUnsafePath, uri)
		}
		f, err := l.assets.Open(name)
		if err != nil {
			return nil, fmt.Errorf("preload: open %s: %w", uri, err)
		}
		return f, nil
	}
}

// WarmOrder returns slide indices starting at 0 and alternating outwards:
// 0, 1, n-1, 2, n-2, ...
func WarmOrder(n int) []int {
	if n <= 0 {
		return nil
	}
	order := make([]int, 0, n)
	seen := make([]bool, n)
	add := func(i int) {
		if !seen[i] {
			seen[i] = true
			order = append(order, i)
		}
	}
	add(0)
	for step := 1; len(order) < n; step++ {
		add(step % n)
		add((n - step%n) % n)
	}
	return order
}
