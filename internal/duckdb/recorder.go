package duckdb

import (
	"sync"
	"time"

	"github.com/vsource/hero/internal/model"
	"go.uber.org/zap"
)

// SnapshotSource is an ordered, lossless feed of banner snapshots.
type SnapshotSource interface {
	SubscribeAll() (<-chan model.Snapshot, func())
}

// RecorderConfig configures a Recorder.
type RecorderConfig struct {
	// Describe returns the alt text of the slide a snapshot shows. It may
	// return "" when the mount is gone.
	Describe func(model.Snapshot) string
	Logger   *zap.Logger
	Now      func() time.Time
}

// Recorder turns settled navigations into impression rows. A navigation is
// counted once, the first time a snapshot with its (MountID, NavSeq) is seen
// with no transition in flight.
type Recorder struct {
	writer   model.ImpressionWriter
	src      SnapshotSource
	describe func(model.Snapshot) string
	logger   *zap.Logger
	now      func() time.Time

	cancel   func()
	wg       sync.WaitGroup
	stopOnce sync.Once

	lastMount string
	lastNav   uint64
	seen      bool
}

// NewRecorder subscribes to src and starts recording.
func NewRecorder(writer model.ImpressionWriter, src SnapshotSource, conf ...RecorderConfig) *Recorder {
	r := &Recorder{
		writer:   writer,
		src:      src,
		describe: func(model.Snapshot) string { return "" },
		logger:   zap.NewNop(),
		now:      time.Now,
	}
	if len(conf) > 0 {
		if conf[0].Describe != nil {
			r.describe = conf[0].Describe
		}
		if conf[0].Logger != nil {
			r.logger = conf[0].Logger
		}
		if conf[0].Now != nil {
			r.now = conf[0].Now
		}
	}

	ch, cancel := src.SubscribeAll()
	r.cancel = cancel
	r.wg.Add(1)
	go r.loop(ch)
	return r
}

func (r *Recorder) loop(ch <-chan model.Snapshot) {
	defer r.wg.Done()
	for snap := range ch {
		r.observe(snap)
	}
}

func (r *Recorder) observe(snap model.Snapshot) {
	if !snap.Live || snap.Transitioning || snap.Count == 0 {
		return
	}
	if r.seen && r.lastMount == snap.MountID && r.lastNav == snap.NavSeq {
		return
	}
	r.seen = true
	r.lastMount = snap.MountID
	r.lastNav = snap.NavSeq

	imp := model.Impression{
		At:         r.now(),
		MountID:    snap.MountID,
		SlideIndex: snap.Current,
		SlideAlt:   r.describe(snap),
		Cause:      snap.Cause,
	}
	if err := r.writer.InsertImpression(imp); err != nil {
		r.logger.Warn("impression not recorded",
			zap.String("mount_id", snap.MountID),
			zap.Int("slide", snap.Current),
			zap.Error(err))
	}
}

// Stop unsubscribes and waits for the recording goroutine to exit.
func (r *Recorder) Stop() {
	r.stopOnce.Do(func() {
		r.cancel()
		r.wg.Wait()
	})
}
