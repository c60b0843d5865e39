package slideshow

import (
	"sync"

	"github.com/vsource/hero/internal/model"
)

// Feed fans snapshots out to subscribers and never blocks Publish.
//
// Subscribe readers hold at most the latest undelivered snapshot: a slow
// reader skips intermediate states but always ends up on the newest one.
// SubscribeAll readers receive every snapshot in publish order through an
// unbounded backlog.
type Feed struct {
	mu      sync.Mutex
	subs    map[uint64]chan model.Snapshot
	all     map[uint64]*backlog
	nextID  uint64
	last    model.Snapshot
	hasLast bool
	closed  bool
}

// NewFeed creates an empty feed.
func NewFeed() *Feed {
	return &Feed{
		subs: make(map[uint64]chan model.Snapshot),
		all:  make(map[uint64]*backlog),
	}
}

// Publish replaces each latest-value subscriber's pending snapshot with s
// and appends s to every backlog.
func (f *Feed) Publish(s model.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.last = s
	f.hasLast = true

	for _, b := range f.all {
		b.push(s)
	}
	for _, ch := range f.subs {
		select {
		case ch <- s:
			continue
		default:
		}
		// Drop the stale pending value. Publish is the only sender and
		// runs under f.mu, so the second send cannot block.
		select {
		case <-ch:
		default:
		}
		select {
		case ch <- s:
		default:
		}
	}
}

// Subscribe registers a latest-value reader. The channel is primed with
// the latest snapshot, if any, and is closed by cancel or by Close.
func (f *Feed) Subscribe() (<-chan model.Snapshot, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	ch := make(chan model.Snapshot, 1)
	if f.hasLast {
		ch <- f.last
	}
	if f.closed {
		close(ch)
		return ch, func() {}
	}

	id := f.nextID
	f.nextID++
	f.subs[id] = ch

	cancel := func() {
		f.mu.Lock()
		defer f.mu.Unlock()
		if sub, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(sub)
		}
	}
	return ch, cancel
}

// SubscribeAll registers a reader that sees every snapshot, starting with
// the latest one if any. On Close the backlog is delivered before the
// channel closes; cancel drops whatever is still queued.
func (f *Feed) SubscribeAll() (<-chan model.Snapshot, func()) {
	f.mu.Lock()
	defer f.mu.Unlock()

	b := newBacklog()
	if f.hasLast {
		b.push(f.last)
	}
	go b.run()
	if f.closed {
		b.finish()
		return b.out, func() {}
	}

	id := f.nextID
	f.nextID++
	f.all[id] = b

	cancel := func() {
		f.mu.Lock()
		delete(f.all, id)
		f.mu.Unlock()
		b.stop()
	}
	return b.out, cancel
}

// Subscribers reports the number of registered readers.
func (f *Feed) Subscribers() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.subs) + len(f.all)
}

// Close closes every latest-value channel and lets backlogs drain. Later
// publishes are dropped.
func (f *Feed) Close() {
	f.mu.Lock()
	defer f.mu.Unlock()

	if f.closed {
		return
	}
	f.closed = true
	for id, ch := range f.subs {
		close(ch)
		delete(f.subs, id)
	}
	for id, b := range f.all {
		b.finish()
		delete(f.all, id)
	}
}

// backlog is an unbounded FIFO drained into out by its own goroutine.
type backlog struct {
	mu       sync.Mutex
	items    []model.Snapshot
	finished bool

	wake     chan struct{}
	quit     chan struct{}
	stopOnce sync.Once
	out      chan model.Snapshot
}

func newBacklog() *backlog {
	return &backlog{
		wake: make(chan struct{}, 1),
		quit: make(chan struct{}),
		out:  make(chan model.Snapshot),
	}
}

func (b *backlog) push(s model.Snapshot) {
	b.mu.Lock()
	if !b.finished {
		b.items = append(b.items, s)
	}
	b.mu.Unlock()
	b.signal()
}

// finish stops accepting snapshots; out closes once the queue is empty.
func (b *backlog) finish() {
	b.mu.Lock()
	b.finished = true
	b.mu.Unlock()
	b.signal()
}

func (b *backlog) stop() {
	b.stopOnce.Do(func() { close(b.quit) })
}

func (b *backlog) signal() {
	select {
	case b.wake <- struct{}{}:
	default:
	}
}

func (b *backlog) run() {
	defer close(b.out)
	for {
		b.mu.Lock()
		items, finished := b.items, b.finished
		b.items = nil
		b.mu.Unlock()

		for _, s := range items {
			select {
			case b.out <- s:
			case <-b.quit:
				return
			}
		}
		if finished {
			return
		}
		if len(items) > 0 {
			continue
		}
		select {
		case <-b.wake:
		case <-b.quit:
			return
		}
	}
}
