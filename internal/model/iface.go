package model

// Remote is the banner contract shared by the control surfaces (HTTP,
// socket RPC and the TUI). Implementations backed by a live controller only
// fail once they have been closed; transport-backed ones may also fail on
// I/O.
type Remote interface {
	Snapshot() (Snapshot, error)
	Slides() ([]Slide, error)
	Next() error
	Previous() error
	GoTo(index int) error
	ImageReady(index int) error
	TouchStart(x float64) error
	TouchEnd(x float64) error
	SetPaused(reason PauseReason, paused bool) error
	// Activate hands the current slide's call to action to the routing
	// collaborator and returns its target.
	Activate() (string, error)
}

// StatsQuerier provides read-only analytics.
type StatsQuerier interface {
	SlideStats() ([]SlideStat, error)
	TotalImpressions() (int64, error)
}

// ImpressionWriter persists analytics events.
type ImpressionWriter interface {
	InsertImpression(imp Impression) error
	InsertClick(c Click) error
}
