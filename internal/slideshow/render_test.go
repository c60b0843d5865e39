package slideshow

import (
	"testing"

	"github.com/vsource/hero/internal/model"
)

func TestLayers(t *testing.T) {
	tests := []struct {
		name     string
		snap     model.Snapshot
		wantPrev model.Layer
		wantCur  model.Layer
	}{
		{
			name:     "at rest",
			snap:     model.Snapshot{Current: 0, Previous: 0},
			wantPrev: model.Layer{Slot: model.SlotPrevious, Index: 0},
			wantCur:  model.Layer{Slot: model.SlotCurrent, Index: 0, Opacity: 1, Visible: true},
		},
		{
			name:     "transition pending",
			snap:     model.Snapshot{Current: 2, Previous: 1, Transitioning: true},
			wantPrev: model.Layer{Slot: model.SlotPrevious, Index: 1, Opacity: 1, Visible: true},
			wantCur:  model.Layer{Slot: model.SlotCurrent, Index: 2, Opacity: 0, Visible: true},
		},
		{
			name:     "settled after transition",
			snap:     model.Snapshot{Current: 2, Previous: 1},
			wantPrev: model.Layer{Slot: model.SlotPrevious, Index: 1},
			wantCur:  model.Layer{Slot: model.SlotCurrent, Index: 2, Opacity: 1, Visible: true},
		},
		{
			name:     "single slide never shows a previous layer",
			snap:     model.Snapshot{Current: 0, Previous: 0, Transitioning: true},
			wantPrev: model.Layer{Slot: model.SlotPrevious, Index: 0},
			wantCur:  model.Layer{Slot: model.SlotCurrent, Index: 0, Opacity: 0, Visible: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			layers := Layers(tt.snap)
			if len(layers) != 2 {
				t.Fatalf("len(layers) = %d, want 2", len(layers))
			}
			if layers[0] != tt.wantPrev {
				t.Errorf("previous layer = %+v, want %+v", layers[0], tt.wantPrev)
			}
			if layers[1] != tt.wantCur {
				t.Errorf("current layer = %+v, want %+v", layers[1], tt.wantCur)
			}
		})
	}
}
