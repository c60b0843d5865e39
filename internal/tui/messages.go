package tui

import (
	"time"

	"github.com/vsource/hero/internal/model"

	tea "github.com/charmbracelet/bubbletea"
)

// TickMsg represents periodic updates.
type TickMsg time.Time

// heroDataMsg carries a refreshed view of the banner. Zero-valued parts
// were not fetched and leave the page state alone.
type heroDataMsg struct {
	// fetched marks replies to a poll, as opposed to command results.
	fetched bool

	snap    model.Snapshot
	hasSnap bool

	slides []model.Slide

	stats    []model.SlideStat
	total    int64
	hasStats bool

	target string
	err    error
}

func tickCmd(d time.Duration) tea.Cmd {
	return tea.Tick(d, func(t time.Time) tea.Msg { return TickMsg(t) })
}

// fetchCmd reads the banner state. Slides are only fetched when the mount
// changed since knownMount.
func fetchCmd(remote model.Remote, stats model.StatsQuerier, knownMount string, wantStats bool) tea.Cmd {
	return func() tea.Msg {
		msg := heroDataMsg{fetched: true}
		snap, err := remote.Snapshot()
		if err != nil {
			msg.err = err
			return msg
		}
		msg.snap, msg.hasSnap = snap, true

		if snap.MountID != knownMount || knownMount == "" {
			slides, err := remote.Slides()
			if err != nil {
				msg.err = err
				return msg
			}
			msg.slides = slides
		}

		if wantStats && stats != nil {
			st, err := stats.SlideStats()
			if err != nil {
				msg.err = err
				return msg
			}
			total, err := stats.TotalImpressions()
			if err != nil {
				msg.err = err
				return msg
			}
			msg.stats, msg.total, msg.hasStats = st, total, true
		}
		return msg
	}
}

// actionCmd runs a banner command and reports the resulting state.
func actionCmd(remote model.Remote, fn func() error) tea.Cmd {
	return func() tea.Msg {
		if err := fn(); err != nil {
			return heroDataMsg{err: err}
		}
		snap, err := remote.Snapshot()
		if err != nil {
			return heroDataMsg{err: err}
		}
		return heroDataMsg{snap: snap, hasSnap: true}
	}
}

// activateCmd opens the current call to action.
func activateCmd(remote model.Remote) tea.Cmd {
	return func() tea.Msg {
		target, err := remote.Activate()
		if err != nil {
			return heroDataMsg{err: err}
		}
		return heroDataMsg{target: target}
	}
}
