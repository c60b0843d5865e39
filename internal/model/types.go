package model

import (
	"strings"
	"time"
)

// Span is one run of title text. Accent spans are rendered in the
// highlight colour ("Study <MBBS> Abroad").
type Span struct {
	Text   string `json:"text" yaml:"text"`
	Accent bool   `json:"accent,omitempty" yaml:"accent,omitempty"`
}

// RichText is an ordered list of spans.
type RichText []Span

// Plain returns the title with styling dropped.
func (r RichText) Plain() string {
	var b strings.Builder
	for _, s := range r {
		b.WriteString(s.Text)
	}
	return b.String()
}

// CallToAction is the button on a slide. Target is handed to the routing
// collaborator unchanged.
type CallToAction struct {
	Target string `json:"href" yaml:"href"`
	Label  string `json:"label" yaml:"label"`
}

// Slide is one entry of the banner rotation. Slides are immutable once a
// controller has been created with them.
type Slide struct {
	Image    string       `json:"image" yaml:"image"`
	Title    RichText     `json:"title" yaml:"title"`
	Alt      string       `json:"alt" yaml:"alt"`
	Subtitle string       `json:"subtitle" yaml:"subtitle"`
	CTA      CallToAction `json:"cta" yaml:"cta"`
}

// Direction of travel for a navigation step.
type Direction int

const (
	Backward Direction = -1
	Forward  Direction = 1
)

// NavCause records which trigger produced the latest navigation.
type NavCause string

const (
	CauseMount    NavCause = "mount"
	CauseAutoplay NavCause = "autoplay"
	CauseNext     NavCause = "next"
	CausePrevious NavCause = "previous"
	CauseGoTo     NavCause = "goto"
	CauseSwipe    NavCause = "swipe"
)

// PauseReason names a condition that suspends autoplay.
type PauseReason string

const (
	PauseHover  PauseReason = "hover"
	PauseHidden PauseReason = "hidden"
)

// ParsePauseReason validates a reason received over the wire.
func ParsePauseReason(s string) (PauseReason, bool) {
	switch PauseReason(s) {
	case PauseHover, PauseHidden:
		return PauseReason(s), true
	}
	return "", false
}

// Snapshot is the read-only view of a controller after a mutation.
type Snapshot struct {
	Seq           uint64        `json:"seq"`
	MountID       string        `json:"mount_id"`
	Count         int           `json:"count"`
	Current       int           `json:"current"`
	Previous      int           `json:"previous"`
	Transitioning bool          `json:"transitioning"`
	Autoplay      bool          `json:"autoplay"`
	PausedBy      []PauseReason `json:"paused_by,omitempty"`
	NavSeq        uint64        `json:"nav_seq"`
	Cause         NavCause      `json:"cause"`
	Live          bool          `json:"live"`
}

// Slot identifies one of the two stacked image layers.
type Slot string

const (
	SlotPrevious Slot = "previous"
	SlotCurrent  Slot = "current"
)

// Layer is one entry of the two-slot render description. Views decide how
// to animate between opacities.
type Layer struct {
	Slot    Slot    `json:"slot"`
	Index   int     `json:"index"`
	Opacity float64 `json:"opacity"`
	Visible bool    `json:"visible"`
}

// Impression is recorded when a navigation settles on a slide.
type Impression struct {
	At         time.Time
	MountID    string
	SlideIndex int
	SlideAlt   string
	Cause      NavCause
}

// Click is recorded when a slide's call to action is activated.
type Click struct {
	At         time.Time
	MountID    string
	SlideIndex int
	Target     string
}

// SlideStat aggregates analytics for one slide position.
type SlideStat struct {
	SlideIndex  int    `json:"slide_index"`
	SlideAlt    string `json:"slide_alt"`
	Impressions int64  `json:"impressions"`
	Clicks      int64  `json:"clicks"`
}
