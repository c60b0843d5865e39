package slideshow

import (
	"sync"
	"time"
)

// Task is a scheduled callback that can be cancelled. Stop is idempotent and
// never blocks; a callback already in flight may still run, so callers must
// check that the task is still current before acting.
type Task interface {
	Stop()
}

// Clock schedules callbacks for the controller.
type Clock interface {
	// Every runs fn once per d until the returned task is stopped.
	Every(d time.Duration, fn func()) Task
	// AfterFunc runs fn once after d unless the task is stopped first.
	AfterFunc(d time.Duration, fn func()) Task
}

// RealClock returns a Clock backed by time.Ticker and time.AfterFunc.
func RealClock() Clock { return realClock{} }

type realClock struct{}

func (realClock) Every(d time.Duration, fn func()) Task {
	t := &repeatingTask{
		ticker: time.NewTicker(d),
		done:   make(chan struct{}),
	}
	go t.run(fn)
	return t
}

func (realClock) AfterFunc(d time.Duration, fn func()) Task {
	return &oneShotTask{timer: time.AfterFunc(d, fn)}
}

type repeatingTask struct {
	ticker *time.Ticker
	done   chan struct{}
	once   sync.Once
}

func (t *repeatingTask) run(fn func()) {
	defer t.ticker.Stop()
	for {
		select {
		case <-t.done:
			return
		case <-t.ticker.C:
			fn()
		}
	}
}

func (t *repeatingTask) Stop() {
	t.once.Do(func() { close(t.done) })
}

type oneShotTask struct {
	timer *time.Timer
}

func (t *oneShotTask) Stop() { t.timer.Stop() }

// ManualClock is a Clock driven by Advance. Callbacks run synchronously on
// the goroutine calling Advance, in due order.
type ManualClock struct {
	mu    sync.Mutex
	now   time.Duration
	tasks []*manualTask
}

// NewManualClock returns a ManualClock at offset zero.
func NewManualClock() *ManualClock {
	return &ManualClock{}
}

type manualTask struct {
	clock  *ManualClock
	due    time.Duration
	period time.Duration // zero for one-shot tasks
	fn     func()
}

func (c *ManualClock) Every(d time.Duration, fn func()) Task {
	return c.schedule(d, d, fn)
}

func (c *ManualClock) AfterFunc(d time.Duration, fn func()) Task {
	return c.schedule(d, 0, fn)
}

func (c *ManualClock) schedule(d, period time.Duration, fn func()) Task {
	c.mu.Lock()
	defer c.mu.Unlock()
	t := &manualTask{clock: c, due: c.now + d, period: period, fn: fn}
	c.tasks = append(c.tasks, t)
	return t
}

func (t *manualTask) Stop() {
	c := t.clock
	c.mu.Lock()
	defer c.mu.Unlock()
	c.removeLocked(t)
}

func (c *ManualClock) removeLocked(t *manualTask) {
	for i, cur := range c.tasks {
		if cur == t {
			c.tasks = append(c.tasks[:i], c.tasks[i+1:]...)
			return
		}
	}
}

// Advance moves the clock forward by d, firing every callback that becomes
// due on the way.
func (c *ManualClock) Advance(d time.Duration) {
	c.mu.Lock()
	target := c.now + d
	c.mu.Unlock()

	for {
		c.mu.Lock()
		var next *manualTask
		for _, t := range c.tasks {
			if t.due <= target && (next == nil || t.due < next.due) {
				next = t
			}
		}
		if next == nil {
			c.now = target
			c.mu.Unlock()
			return
		}
		c.now = next.due
		if next.period > 0 {
			next.due += next.period
		} else {
			c.removeLocked(next)
		}
		fn := next.fn
		c.mu.Unlock()

		fn()
	}
}

// Pending returns the number of scheduled tasks that have not been stopped
// or fired.
func (c *ManualClock) Pending() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tasks)
}
