package tui

import (
	"errors"
	"sync"

	"github.com/vsource/hero/internal/model"
)

var pauseOrder = []model.PauseReason{model.PauseHover, model.PauseHidden}

// pauseSync reconciles the pause reasons this client wants raised with the
// ones it last told the banner about. Commands run on their own goroutines
// in any order, so each flush sends the newest wanted state rather than the
// value captured when the command was built.
type pauseSync struct {
	remote model.Remote

	mu   sync.Mutex
	want map[model.PauseReason]bool

	sendMu sync.Mutex
	sent   map[model.PauseReason]bool
}

func newPauseSync(remote model.Remote) *pauseSync {
	return &pauseSync{
		remote: remote,
		want:   make(map[model.PauseReason]bool),
		sent:   make(map[model.PauseReason]bool),
	}
}

func (s *pauseSync) set(reason model.PauseReason, paused bool) {
	s.mu.Lock()
	s.want[reason] = paused
	s.mu.Unlock()
}

func (s *pauseSync) wanted(reason model.PauseReason) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.want[reason]
}

// flush sends every reason whose wanted state differs from what the banner
// was last told. A failed reason stays dirty and is retried next flush.
func (s *pauseSync) flush() error {
	s.sendMu.Lock()
	defer s.sendMu.Unlock()

	var errs []error
	for _, r := range pauseOrder {
		w := s.wanted(r)
		if s.sent[r] == w {
			continue
		}
		if err := s.remote.SetPaused(r, w); err != nil {
			errs = append(errs, err)
			continue
		}
		s.sent[r] = w
	}
	return errors.Join(errs...)
}
