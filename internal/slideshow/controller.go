package slideshow

import (
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/vsource/hero/internal/model"
	"go.uber.org/zap"
)

// ErrNoSlides is returned when a controller is created without slides.
var ErrNoSlides = errors.New("slideshow: at least one slide is required")

// Option configures a Controller.
type Option func(*Controller)

// WithClock replaces the real clock, mainly for tests.
func WithClock(clock Clock) Option {
	return func(c *Controller) { c.clock = clock }
}

// WithInterval sets the autoplay period.
func WithInterval(d time.Duration) Option {
	return func(c *Controller) {
		if d > 0 {
			c.interval = d
		}
	}
}

// WithSwipeThreshold sets the horizontal dead-zone for touch gestures, in
// pixels.
func WithSwipeThreshold(px float64) Option {
	return func(c *Controller) {
		if px >= 0 {
			c.threshold = px
		}
	}
}

// WithLoadTimeout forces a transition to settle when the incoming slide has
// not reported ready within d. Zero disables the fallback and the previous
// layer is held until the image loads.
func WithLoadTimeout(d time.Duration) Option {
	return func(c *Controller) { c.loadTimeout = d }
}

// WithMountID tags snapshots with the identifier of the banner mount.
func WithMountID(id string) Option {
	return func(c *Controller) { c.mountID = id }
}

// WithLogger sets the controller logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Controller) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Controller drives the hero banner: it tracks which slide is current, which
// one is fading out underneath, which images have loaded, the autoplay task
// and the touch gesture in progress.
//
// Every exported method runs to completion under one mutex, so timer ticks,
// navigation requests, load notifications and gestures never interleave.
type Controller struct {
	mu sync.Mutex

	slides []model.Slide
	loaded []bool

	current       int
	previous      int
	transitioning bool

	autoplay    Task
	autoplayGen uint64
	settle      Task
	paused      map[model.PauseReason]bool

	touchActive bool
	touchX      float64

	seq    uint64
	navSeq uint64
	cause  model.NavCause
	live   bool

	mountID     string
	clock       Clock
	interval    time.Duration
	threshold   float64
	loadTimeout time.Duration
	logger      *zap.Logger
	feed        *Feed
}

// New mounts a controller on slides and starts autoplay immediately.
func New(slides []model.Slide, opts ...Option) (*Controller, error) {
	if len(slides) == 0 {
		return nil, ErrNoSlides
	}

	c := &Controller{
		slides:    append([]model.Slide(nil), slides...),
		loaded:    make([]bool, len(slides)),
		paused:    make(map[model.PauseReason]bool),
		cause:     model.CauseMount,
		live:      true,
		clock:     RealClock(),
		interval:  model.DefaultInterval,
		threshold: model.DefaultSwipeThreshold,
		logger:    zap.NewNop(),
		feed:      NewFeed(),
	}
	for _, opt := range opts {
		opt(c)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.startLocked()
	c.publishLocked()
	return c, nil
}

// Len returns the number of slides.
func (c *Controller) Len() int { return len(c.slides) }

// Slides returns a copy of the slide deck.
func (c *Controller) Slides() []model.Slide {
	return append([]model.Slide(nil), c.slides...)
}

// Slide returns the slide at index i.
func (c *Controller) Slide(i int) (model.Slide, bool) {
	if i < 0 || i >= len(c.slides) {
		return model.Slide{}, false
	}
	return c.slides[i], true
}

// Snapshot returns the current view state.
func (c *Controller) Snapshot() model.Snapshot {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshotLocked()
}

// Subscribe returns a channel that receives a snapshot after every
// mutation, plus a cancel func. The channel is closed on Close.
func (c *Controller) Subscribe() (<-chan model.Snapshot, func()) {
	return c.feed.Subscribe()
}

// SubscribeAll is like Subscribe but delivers every snapshot in order.
func (c *Controller) SubscribeAll() (<-chan model.Snapshot, func()) {
	return c.feed.SubscribeAll()
}

// Loaded reports whether the image at index i has finished loading.
func (c *Controller) Loaded(i int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return i >= 0 && i < len(c.loaded) && c.loaded[i]
}

// Advance moves one slide in the given direction, wrapping at both ends.
func (c *Controller) Advance(dir model.Direction) {
	cause := model.CauseNext
	if dir < 0 {
		cause = model.CausePrevious
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.advanceLocked(dir, cause)
}

// Next moves to the following slide.
func (c *Controller) Next() { c.Advance(model.Forward) }

// Previous moves to the preceding slide.
func (c *Controller) Previous() { c.Advance(model.Backward) }

// GoTo jumps to index. Out-of-range indices and the current index are
// ignored.
func (c *Controller) GoTo(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live || index < 0 || index >= len(c.slides) || index == c.current {
		return
	}
	c.moveLocked(index, model.CauseGoTo)
}

// ImageReady records that the image for index has finished decoding. When
// index is the current slide the transition completes; any other index only
// warms the preload table. Calls after Close are dropped.
func (c *Controller) ImageReady(index int) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live || index < 0 || index >= len(c.slides) {
		return
	}
	c.loaded[index] = true
	if index != c.current || !c.transitioning {
		return
	}
	c.transitioning = false
	c.cancelSettleLocked()
	c.publishLocked()
}

// TouchStart records where a horizontal gesture began.
func (c *Controller) TouchStart(x float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live {
		return
	}
	c.touchActive = true
	c.touchX = x
}

// TouchEnd interprets the gesture started by TouchStart. Dragging right past
// the threshold shows the previous slide, dragging left the next one;
// anything shorter is a tap. An end without a start does nothing.
func (c *Controller) TouchEnd(x float64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.touchActive {
		return
	}
	delta := x - c.touchX
	c.touchActive = false
	c.touchX = 0

	switch {
	case delta > c.threshold:
		c.advanceLocked(model.Backward, model.CauseSwipe)
	case delta < -c.threshold:
		c.advanceLocked(model.Forward, model.CauseSwipe)
	}
}

// Start (re)schedules autoplay, cancelling any running task first.
func (c *Controller) Start() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live {
		return
	}
	c.startLocked()
	c.publishLocked()
}

// Stop cancels autoplay. Stopping a stopped controller is a no-op.
func (c *Controller) Stop() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.autoplay == nil {
		return
	}
	c.stopLocked()
	c.publishLocked()
}

// SetPaused raises or clears a pause condition. Autoplay runs only while no
// condition is raised, and restarts with a full interval when the last one
// clears.
func (c *Controller) SetPaused(reason model.PauseReason, paused bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live || c.paused[reason] == paused {
		return
	}
	if paused {
		c.paused[reason] = true
	} else {
		delete(c.paused, reason)
	}

	switch {
	case len(c.paused) > 0:
		c.stopLocked()
	case c.autoplay == nil:
		c.startLocked()
	}
	c.publishLocked()
}

// Close unmounts the controller: autoplay and any pending settle task are
// cancelled, subscribers receive a final snapshot with Live unset, and every
// later call becomes a no-op.
func (c *Controller) Close() {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live {
		return
	}
	c.stopLocked()
	c.cancelSettleLocked()
	c.touchActive = false
	c.live = false
	c.publishLocked()
	c.feed.Close()
	c.logger.Debug("slideshow unmounted", zap.String("mount_id", c.mountID))
}

func (c *Controller) advanceLocked(dir model.Direction, cause model.NavCause) {
	if !c.live || dir == 0 {
		return
	}
	step := 1
	if dir < 0 {
		step = -1
	}
	n := len(c.slides)
	c.moveLocked((c.current+step+n)%n, cause)
}

func (c *Controller) moveLocked(next int, cause model.NavCause) {
	c.previous = c.current
	c.current = next
	// A slide that is already warm needs no held frame.
	c.transitioning = !c.loaded[next]
	c.navSeq++
	c.cause = cause
	c.armSettleLocked()
	c.publishLocked()

	c.logger.Debug("slide changed",
		zap.String("mount_id", c.mountID),
		zap.Int("current", c.current),
		zap.Int("previous", c.previous),
		zap.String("cause", string(cause)),
		zap.Bool("transitioning", c.transitioning))
}

func (c *Controller) startLocked() {
	c.stopLocked()
	c.autoplayGen++
	gen := c.autoplayGen
	c.autoplay = c.clock.Every(c.interval, func() { c.tick(gen) })
}

func (c *Controller) stopLocked() {
	if c.autoplay == nil {
		return
	}
	c.autoplay.Stop()
	c.autoplay = nil
}

func (c *Controller) tick(gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	// A tick can race with Stop; only the task that is still installed may
	// advance.
	if c.autoplay == nil || gen != c.autoplayGen {
		return
	}
	c.advanceLocked(model.Forward, model.CauseAutoplay)
}

func (c *Controller) armSettleLocked() {
	c.cancelSettleLocked()
	if c.loadTimeout <= 0 || !c.transitioning {
		return
	}
	nav := c.navSeq
	c.settle = c.clock.AfterFunc(c.loadTimeout, func() { c.forceSettle(nav) })
}

func (c *Controller) cancelSettleLocked() {
	if c.settle == nil {
		return
	}
	c.settle.Stop()
	c.settle = nil
}

func (c *Controller) forceSettle(nav uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if !c.live || nav != c.navSeq || !c.transitioning {
		return
	}
	c.settle = nil
	c.transitioning = false
	c.logger.Warn("slide image did not load in time, dropping previous layer",
		zap.String("mount_id", c.mountID),
		zap.Int("slide", c.current),
		zap.String("image", c.slides[c.current].Image),
		zap.Duration("timeout", c.loadTimeout))
	c.publishLocked()
}

func (c *Controller) publishLocked() {
	c.seq++
	c.feed.Publish(c.snapshotLocked())
}

func (c *Controller) snapshotLocked() model.Snapshot {
	var paused []model.PauseReason
	for r := range c.paused {
		paused = append(paused, r)
	}
	sort.Slice(paused, func(i, j int) bool { return paused[i] < paused[j] })

	return model.Snapshot{
		Seq:           c.seq,
		MountID:       c.mountID,
		Count:         len(c.slides),
		Current:       c.current,
		Previous:      c.previous,
		Transitioning: c.transitioning,
		Autoplay:      c.autoplay != nil,
		PausedBy:      paused,
		NavSeq:        c.navSeq,
		Cause:         c.cause,
		Live:          c.live,
	}
}
