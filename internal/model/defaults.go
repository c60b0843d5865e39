package model

import "time"

// Shared defaults used by both the service and TUI binaries.
const (
	DefaultInterval       = 5 * time.Second
	DefaultSwipeThreshold = 40
	DefaultRefresh        = 250 * time.Millisecond
	DefaultCellWidthPx    = 8
)
