// Package plugin defines the contract between a map display host and the
// display plugins it loads. The host owns the canvas, the frame service and
// the plugin lifecycle; a plugin only ever sees them through these interfaces.
package plugin

import (
	geom "github.com/peterstace/simplefeatures/geom"
)

// Plugin is implemented by every display plugin loaded by the host.
type Plugin interface {
	// Initialize hands the plugin its canvas. Returns false if the plugin
	// cannot run on this canvas.
	Initialize(canvas Canvas) bool

	// ConfigWidget returns the configuration surface, re-parented under parent.
	ConfigWidget(parent Widget) Widget

	// Draw is called by the host on every repaint.
	Draw(x, y, scale float64)

	LoadConfig(node Node, path string)
	SaveConfig(emitter Emitter, path string)

	// TimerTick and FrameRefreshTick are invoked by the host at about 1 Hz.
	TimerTick()
	FrameRefreshTick()

	// Close releases everything the plugin registered with the host.
	Close() error
}

// Cursor identifies the pointer indicator shown over the canvas.
type Cursor string

// Cursors known to the host.
const (
	CursorDefault    Cursor = "default"
	CursorPosePicker Cursor = "green-arrow"
)

// Color is an RGB color with components in [0, 1].
type Color struct {
	R, G, B float64
}

// Renderer draws in fixed-frame coordinates.
type Renderer interface {
	FillPolygon(points []geom.XY, c Color)
	StrokeLoop(points []geom.XY, c Color, width float64)
}

// Canvas is the map display a plugin draws on and receives pointer events from.
type Canvas interface {
	Renderer

	// MapPixelToFixedFrame converts a canvas pixel position into the fixed frame.
	MapPixelToFixedFrame(pixel geom.XY) geom.XY

	InstallEventFilter(f EventFilter)
	RemoveEventFilter(f EventFilter)

	SetInteractionCursor(c Cursor)
	RestoreCursor()
}

// FrameSource enumerates coordinate frames and transform capabilities.
type FrameSource interface {
	KnownFrameNames() []string
	SupportsTransform(source, target string) bool
}

// Widget is an element of the host configuration surface.
type Widget interface {
	SetParent(parent Widget)
}
