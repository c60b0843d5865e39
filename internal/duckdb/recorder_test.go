package duckdb

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/vsource/hero/internal/model"
	"github.com/vsource/hero/internal/slideshow"
)

type memWriter struct {
	mu       sync.Mutex
	imps     []model.Impression
	attempts int
	err      error
	delay    time.Duration
}

func (w *memWriter) InsertImpression(imp model.Impression) error {
	time.Sleep(w.delay)
	w.mu.Lock()
	defer w.mu.Unlock()
	w.attempts++
	if w.err != nil {
		return w.err
	}
	w.imps = append(w.imps, imp)
	return nil
}

func (w *memWriter) InsertClick(model.Click) error { return nil }

func (w *memWriter) count() int {
	w.mu.Lock()
	defer w.mu.Unlock()
	return len(w.imps)
}

func (w *memWriter) all() []model.Impression {
	w.mu.Lock()
	defer w.mu.Unlock()
	return append([]model.Impression(nil), w.imps...)
}

func waitForCount(t *testing.T, w *memWriter, want int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if w.count() == want {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("impressions = %d, want %d", w.count(), want)
}

// publishAndSettle publishes s and waits until the recorder has consumed it.
func publishAndSettle(feed *slideshow.Feed, s model.Snapshot) {
	feed.Publish(s)
	time.Sleep(20 * time.Millisecond)
}

func TestRecorderCountsSettledNavigations(t *testing.T) {
	feed := slideshow.NewFeed()
	w := &memWriter{}
	rec := NewRecorder(w, feed, RecorderConfig{
		Describe: func(s model.Snapshot) string { return []string{"a", "b", "c"}[s.Current] },
	})
	defer rec.Stop()

	base := model.Snapshot{MountID: "m1", Count: 3, Live: true}

	s := base
	s.Cause = model.CauseMount
	publishAndSettle(feed, s)
	waitForCount(t, w, 1)

	// Autoplay toggling republishes the same navigation.
	s.Seq++
	s.Autoplay = true
	publishAndSettle(feed, s)

	// A transition waiting on its image is not counted until it settles.
	s.Seq++
	s.NavSeq = 1
	s.Current, s.Previous = 1, 0
	s.Transitioning = true
	s.Cause = model.CauseAutoplay
	publishAndSettle(feed, s)
	if got := w.count(); got != 1 {
		t.Fatalf("impressions while transitioning = %d, want 1", got)
	}

	s.Seq++
	s.Transitioning = false
	publishAndSettle(feed, s)
	waitForCount(t, w, 2)

	got := w.all()
	if got[1].SlideIndex != 1 || got[1].SlideAlt != "b" || got[1].Cause != model.CauseAutoplay || got[1].MountID != "m1" {
		t.Errorf("unexpected impression %+v", got[1])
	}
}

func TestRecorderSeparatesMounts(t *testing.T) {
	feed := slideshow.NewFeed()
	w := &memWriter{}
	rec := NewRecorder(w, feed)
	defer rec.Stop()

	publishAndSettle(feed, model.Snapshot{MountID: "m1", Count: 3, Live: true, Cause: model.CauseMount})
	waitForCount(t, w, 1)

	// A remount restarts NavSeq at zero; it is still a new navigation.
	publishAndSettle(feed, model.Snapshot{MountID: "m2", Count: 2, Live: true, Cause: model.CauseMount})
	waitForCount(t, w, 2)

	// Unmount snapshots are ignored.
	publishAndSettle(feed, model.Snapshot{MountID: "m2", Count: 2, NavSeq: 1, Cause: model.CauseNext})
	if got := w.count(); got != 2 {
		t.Errorf("impressions after unmount = %d, want 2", got)
	}
}

func TestRecorderWriteErrorIsNotFatal(t *testing.T) {
	feed := slideshow.NewFeed()
	w := &memWriter{err: errors.New("disk full")}
	rec := NewRecorder(w, feed)

	publishAndSettle(feed, model.Snapshot{MountID: "m1", Count: 1, Live: true})
	deadline := time.Now().Add(2 * time.Second)
	for {
		w.mu.Lock()
		attempted := w.attempts > 0
		if attempted {
			w.err = nil
		}
		w.mu.Unlock()
		if attempted {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("recorder never attempted a write")
		}
		time.Sleep(5 * time.Millisecond)
	}

	publishAndSettle(feed, model.Snapshot{MountID: "m1", Count: 1, Live: true, NavSeq: 1, Cause: model.CauseNext})
	waitForCount(t, w, 1)
	rec.Stop()
	rec.Stop()
}

func TestRecorderStopsWhenFeedCloses(t *testing.T) {
	feed := slideshow.NewFeed()
	rec := NewRecorder(&memWriter{}, feed)

	feed.Close()
	done := make(chan struct{})
	go func() {
		rec.Stop()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("recorder did not stop after feed closed")
	}
}

func TestRecorderWritesToStore(t *testing.T) {
	store := newTestStore(t)
	feed := slideshow.NewFeed()
	rec := NewRecorder(store, feed, RecorderConfig{
		Describe: func(model.Snapshot) string { return "Study MBBS Abroad" },
		Now:      func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) },
	})

	feed.Publish(model.Snapshot{MountID: "m1", Count: 3, Live: true, Cause: model.CauseMount})

	deadline := time.Now().Add(2 * time.Second)
	for {
		total, err := store.TotalImpressions()
		if err != nil {
			t.Fatalf("TotalImpressions: %v", err)
		}
		if total == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatalf("TotalImpressions = %d, want 1", total)
		}
		time.Sleep(5 * time.Millisecond)
	}
	rec.Stop()

	stats, err := store.SlideStats()
	if err != nil {
		t.Fatalf("SlideStats: %v", err)
	}
	if len(stats) != 1 || stats[0].SlideAlt != "Study MBBS Abroad" || stats[0].Impressions != 1 {
		t.Errorf("unexpected stats %+v", stats)
	}
}

func TestRecorderKeepsUpWithSlowWriter(t *testing.T) {
	clock := slideshow.NewManualClock()
	ctrl, err := slideshow.New(make([]model.Slide, 3), slideshow.WithClock(clock), slideshow.WithMountID("m1"))
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer ctrl.Close()
	for i := 0; i < 3; i++ {
		ctrl.ImageReady(i)
	}

	w := &memWriter{delay: 20 * time.Millisecond}
	rec := NewRecorder(w, ctrl)
	defer rec.Stop()

	// Every slide is warm, so each Next settles immediately.
	for i := 0; i < 4; i++ {
		ctrl.Next()
		time.Sleep(2 * time.Millisecond)
	}
	waitForCount(t, w, 5)

	var slides []int
	for _, imp := range w.all() {
		slides = append(slides, imp.SlideIndex)
	}
	want := []int{0, 1, 2, 0, 1}
	for i := range want {
		if slides[i] != want[i] {
			t.Fatalf("recorded slides = %v, want %v", slides, want)
		}
	}
}
