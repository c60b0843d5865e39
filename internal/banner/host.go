// Package banner hosts the homepage hero slideshow. A Host owns the live
// controller, swaps it when the slide deck changes and keeps the signals
// that outlive a single mount: pause reasons, subscribers and click
// routing.
package banner

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vsource/hero/internal/model"
	"github.com/vsource/hero/internal/slideshow"
	"go.uber.org/zap"
)

// ErrClosed is returned by every operation after Close.
var ErrClosed = errors.New("banner: host closed")

// Preloader warms slide images and reports each index once it is decoded.
type Preloader interface {
	Warm(ctx context.Context, slides []model.Slide, ready func(int)) error
}

// ClickRecorder persists call-to-action activations.
type ClickRecorder interface {
	InsertClick(c model.Click) error
}

// Config configures a Host. Zero values fall back to the controller
// defaults.
type Config struct {
	Interval       time.Duration
	SwipeThreshold float64
	LoadTimeout    time.Duration
	Clock          slideshow.Clock

	Preloader Preloader
	Clicks    ClickRecorder
	// Route receives the target of an activated call to action.
	Route func(target string)

	Logger *zap.Logger
	NewID  func() string
	Now    func() time.Time
}

type mount struct {
	id     string
	slides []model.Slide
	ctrl   *slideshow.Controller

	pumpDone   chan struct{}
	cancelWarm context.CancelFunc
}

// Host owns the mounted slideshow controller.
type Host struct {
	mu     sync.Mutex
	cfg    Config
	logger *zap.Logger

	cur *mount
	// prev keeps the slides of the last unmounted deck so late snapshots
	// can still be described.
	prev *mount

	paused map[model.PauseReason]bool
	feed   *slideshow.Feed
	warmWg sync.WaitGroup
	closed bool
}

var _ model.Remote = (*Host)(nil)

// New creates a host and mounts slides.
func New(slides []model.Slide, cfg Config) (*Host, error) {
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.NewID == nil {
		cfg.NewID = uuid.NewString
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	if cfg.Clock == nil {
		cfg.Clock = slideshow.RealClock()
	}

	h := &Host{
		cfg:    cfg,
		logger: cfg.Logger.Named("banner"),
		paused: make(map[model.PauseReason]bool),
		feed:   slideshow.NewFeed(),
	}
	if err := h.Mount(slides); err != nil {
		h.feed.Close()
		return nil, err
	}
	return h, nil
}

// Mount replaces the live controller with a fresh one over slides. The old
// controller is unmounted, so its pending timers and image callbacks become
// no-ops. Pause reasons raised before the swap stay in force.
func (h *Host) Mount(slides []model.Slide) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrClosed
	}

	id := h.cfg.NewID()
	ctrl, err := slideshow.New(slides,
		slideshow.WithClock(h.cfg.Clock),
		slideshow.WithInterval(h.cfg.Interval),
		slideshow.WithSwipeThreshold(h.thresholdOrDefault()),
		slideshow.WithLoadTimeout(h.cfg.LoadTimeout),
		slideshow.WithMountID(id),
		slideshow.WithLogger(h.cfg.Logger.Named("slideshow")),
	)
	if err != nil {
		return fmt.Errorf("banner: mount: %w", err)
	}

	if old := h.cur; old != nil {
		h.unmountLocked(old)
		h.prev = old
	}

	for r := range h.paused {
		ctrl.SetPaused(r, true)
	}

	m := &mount{
		id:       id,
		slides:   ctrl.Slides(),
		ctrl:     ctrl,
		pumpDone: make(chan struct{}),
	}
	ch, _ := ctrl.SubscribeAll()
	go h.pump(ch, m.pumpDone)

	if p := h.cfg.Preloader; p != nil {
		ctx, cancel := context.WithCancel(context.Background())
		m.cancelWarm = cancel
		h.warmWg.Add(1)
		go func() {
			defer h.warmWg.Done()
			if err := p.Warm(ctx, m.slides, ctrl.ImageReady); err != nil && !errors.Is(err, context.Canceled) {
				h.logger.Warn("image warm-up failed", zap.String("mount_id", id), zap.Error(err))
			}
		}()
	}

	h.cur = m
	h.logger.Info("banner mounted", zap.String("mount_id", id), zap.Int("slides", len(slides)))
	return nil
}

func (h *Host) thresholdOrDefault() float64 {
	if h.cfg.SwipeThreshold > 0 {
		return h.cfg.SwipeThreshold
	}
	return model.DefaultSwipeThreshold
}

// pump forwards every live snapshot of a controller into the host feed, in
// order. The final unmount snapshot is not forwarded; the host feed stays
// live across remounts.
func (h *Host) pump(ch <-chan model.Snapshot, done chan struct{}) {
	defer close(done)
	for s := range ch {
		if s.Live {
			h.feed.Publish(s)
		}
	}
}

// unmountLocked closes the controller and waits until the pump has
// forwarded everything it published.
func (h *Host) unmountLocked(m *mount) {
	if m.cancelWarm != nil {
		m.cancelWarm()
	}
	m.ctrl.Close()
	<-m.pumpDone
}

func (h *Host) live() (*slideshow.Controller, error) {
	if h.closed {
		return nil, ErrClosed
	}
	return h.cur.ctrl, nil
}

// MountID returns the identifier of the live mount.
func (h *Host) MountID() string {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.cur.id
}

// Snapshot returns the live controller's state.
func (h *Host) Snapshot() (model.Snapshot, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	ctrl, err := h.live()
	if err != nil {
		return model.Snapshot{}, err
	}
	return ctrl.Snapshot(), nil
}

// Slides returns the mounted deck.
func (h *Host) Slides() ([]model.Slide, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.closed {
		return nil, ErrClosed
	}
	return append([]model.Slide(nil), h.cur.slides...), nil
}

// Next shows the following slide.
func (h *Host) Next() error {
	return h.do(func(c *slideshow.Controller) { c.Next() })
}

// Previous shows the preceding slide.
func (h *Host) Previous() error {
	return h.do(func(c *slideshow.Controller) { c.Previous() })
}

// GoTo jumps to index. Out-of-range indices are ignored.
func (h *Host) GoTo(index int) error {
	return h.do(func(c *slideshow.Controller) { c.GoTo(index) })
}

// ImageReady reports that the image for index finished loading.
func (h *Host) ImageReady(index int) error {
	return h.do(func(c *slideshow.Controller) { c.ImageReady(index) })
}

// TouchStart begins a swipe gesture at x.
func (h *Host) TouchStart(x float64) error {
	return h.do(func(c *slideshow.Controller) { c.TouchStart(x) })
}

// TouchEnd completes a swipe gesture at x.
func (h *Host) TouchEnd(x float64) error {
	return h.do(func(c *slideshow.Controller) { c.TouchEnd(x) })
}

// SetPaused raises or clears a pause reason. The reason is remembered and
// applied to every later mount.
func (h *Host) SetPaused(reason model.PauseReason, paused bool) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	ctrl, err := h.live()
	if err != nil {
		return err
	}
	if paused {
		h.paused[reason] = true
	} else {
		delete(h.paused, reason)
	}
	ctrl.SetPaused(reason, paused)
	return nil
}

// Activate hands the current slide's call to action to the router and
// records the click. It returns the target.
func (h *Host) Activate() (string, error) {
	h.mu.Lock()
	ctrl, err := h.live()
	if err != nil {
		h.mu.Unlock()
		return "", err
	}
	snap := ctrl.Snapshot()
	slide, _ := ctrl.Slide(snap.Current)
	h.mu.Unlock()

	target := slide.CTA.Target
	if h.cfg.Clicks != nil {
		click := model.Click{
			At:         h.cfg.Now(),
			MountID:    snap.MountID,
			SlideIndex: snap.Current,
			Target:     target,
		}
		if err := h.cfg.Clicks.InsertClick(click); err != nil {
			h.logger.Warn("click not recorded", zap.String("target", target), zap.Error(err))
		}
	}
	if h.cfg.Route != nil {
		h.cfg.Route(target)
	}
	h.logger.Debug("call to action activated",
		zap.String("mount_id", snap.MountID),
		zap.Int("slide", snap.Current),
		zap.String("target", target))
	return target, nil
}

// Subscribe returns a feed of snapshots that spans remounts. The channel is
// closed when the host closes.
func (h *Host) Subscribe() (<-chan model.Snapshot, func()) {
	return h.feed.Subscribe()
}

// SubscribeAll returns a feed spanning remounts that delivers every
// snapshot in order.
func (h *Host) SubscribeAll() (<-chan model.Snapshot, func()) {
	return h.feed.SubscribeAll()
}

// SlideOf returns the slide a snapshot shows, looked up in the deck of the
// mount that produced it: the current mount or the one before it.
func (h *Host) SlideOf(s model.Snapshot) (model.Slide, bool) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for _, m := range []*mount{h.cur, h.prev} {
		if m != nil && m.id == s.MountID && s.Current >= 0 && s.Current < len(m.slides) {
			return m.slides[s.Current], true
		}
	}
	return model.Slide{}, false
}

// Describe returns the alt text of the slide a snapshot shows, or "" when
// its mount is gone.
func (h *Host) Describe(s model.Snapshot) string {
	slide, _ := h.SlideOf(s)
	return slide.Alt
}

// Close unmounts the live controller, publishes a final snapshot with Live
// unset and closes the feed. It waits for image warm-up to stop.
func (h *Host) Close() {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return
	}
	h.closed = true
	h.unmountLocked(h.cur)
	h.feed.Publish(h.cur.ctrl.Snapshot())
	h.feed.Close()
	h.mu.Unlock()

	h.warmWg.Wait()
	h.logger.Info("banner closed")
}

func (h *Host) do(fn func(*slideshow.Controller)) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	ctrl, err := h.live()
	if err != nil {
		return err
	}
	fn(ctrl)
	return nil
}
