package slideshow

import "github.com/vsource/hero/internal/model"

// Layers converts a snapshot into the two-slot render description, bottom
// layer first. While a transition is pending the previous slide stays fully
// opaque underneath and the incoming slide waits at zero opacity; once it
// settles the current layer becomes opaque and the previous layer is no
// longer visible.
func Layers(s model.Snapshot) []model.Layer {
	prev := model.Layer{
		Slot:    model.SlotPrevious,
		Index:   s.Previous,
		Opacity: 0,
		Visible: s.Transitioning && s.Previous != s.Current,
	}
	if prev.Visible {
		prev.Opacity = 1
	}

	cur := model.Layer{
		Slot:    model.SlotCurrent,
		Index:   s.Current,
		Opacity: 1,
		Visible: true,
	}
	if s.Transitioning {
		cur.Opacity = 0
	}
	return []model.Layer{prev, cur}
}
