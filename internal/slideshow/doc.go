// Package slideshow implements the hero banner's crossfade controller.
//
// A Controller is a small state machine fed by four kinds of triggers:
// autoplay ticks, navigation requests, image-load notifications and touch
// gestures. After each mutation it publishes a model.Snapshot; views turn
// that into two stacked layers with Layers and animate opacity however
// suits them.
//
// The previous slide is kept on screen until the incoming slide's image has
// loaded, so the banner never flashes an empty frame. Slides whose image is
// already warm switch without holding the previous layer.
package slideshow
