package host

import (
	"sync"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/mapviz-go/posepublisher/pkg/plugin"
)

// HeadlessCanvas is a plugin.Canvas without a display. Pixels map to the fixed
// frame by a resolution (fixed units per pixel) and the fixed-frame position
// of pixel (0, 0). Pixel y grows downwards, fixed-frame y upwards.
type HeadlessCanvas struct {
	Resolution float64
	Origin     geom.XY

	mu      sync.Mutex
	filters []plugin.EventFilter
	cursor  plugin.Cursor
	fill    []geom.XY
	outline []geom.XY
	colors  [2]plugin.Color
	width   float64
}

// NewHeadlessCanvas creates a canvas with the given resolution and origin.
func NewHeadlessCanvas(resolution float64, origin geom.XY) *HeadlessCanvas {
	if resolution <= 0 {
		resolution = 1
	}
	return &HeadlessCanvas{
		Resolution: resolution,
		Origin:     origin,
		cursor:     plugin.CursorDefault,
	}
}

func (c *HeadlessCanvas) MapPixelToFixedFrame(p geom.XY) geom.XY {
	return geom.XY{
		X: c.Origin.X + p.X*c.Resolution,
		Y: c.Origin.Y - p.Y*c.Resolution,
	}
}

// FixedFrameToPixel is the inverse of MapPixelToFixedFrame.
func (c *HeadlessCanvas) FixedFrameToPixel(p geom.XY) geom.XY {
	return geom.XY{
		X: (p.X - c.Origin.X) / c.Resolution,
		Y: (c.Origin.Y - p.Y) / c.Resolution,
	}
}

func (c *HeadlessCanvas) InstallEventFilter(f plugin.EventFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.filters = append(c.filters, f)
}

func (c *HeadlessCanvas) RemoveEventFilter(f plugin.EventFilter) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i, g := range c.filters {
		if g == f {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
			return
		}
	}
}

// Filters returns the number of installed event filters.
func (c *HeadlessCanvas) Filters() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.filters)
}

// Dispatch offers e to the installed filters in order and reports whether one
// consumed it.
func (c *HeadlessCanvas) Dispatch(e plugin.Event) bool {
	c.mu.Lock()
	filters := append([]plugin.EventFilter(nil), c.filters...)
	c.mu.Unlock()

	for _, f := range filters {
		if f.FilterEvent(e) {
			return true
		}
	}
	return false
}

func (c *HeadlessCanvas) SetInteractionCursor(cur plugin.Cursor) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = cur
}

func (c *HeadlessCanvas) RestoreCursor() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cursor = plugin.CursorDefault
}

// Cursor returns the cursor currently shown.
func (c *HeadlessCanvas) Cursor() plugin.Cursor {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.cursor
}

func (c *HeadlessCanvas) FillPolygon(points []geom.XY, col plugin.Color) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.fill = append([]geom.XY(nil), points...)
	c.colors[0] = col
}

func (c *HeadlessCanvas) StrokeLoop(points []geom.XY, col plugin.Color, width float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.outline = append([]geom.XY(nil), points...)
	c.colors[1] = col
	c.width = width
}

// Drawing is what the last repaint left on the canvas.
type Drawing struct {
	Fill         []geom.XY
	FillColor    plugin.Color
	Outline      []geom.XY
	OutlineColor plugin.Color
	Width        float64
}

// Empty reports whether nothing was drawn.
func (d Drawing) Empty() bool {
	return len(d.Fill) == 0 && len(d.Outline) == 0
}

// Repaint clears the canvas and lets p draw on it.
func (c *HeadlessCanvas) Repaint(p plugin.Plugin, scale float64) Drawing {
	c.mu.Lock()
	c.fill, c.outline, c.width = nil, nil, 0
	c.colors = [2]plugin.Color{}
	c.mu.Unlock()

	p.Draw(c.Origin.X, c.Origin.Y, scale)

	c.mu.Lock()
	defer c.mu.Unlock()
	return Drawing{
		Fill:         c.fill,
		FillColor:    c.colors[0],
		Outline:      c.outline,
		OutlineColor: c.colors[1],
		Width:        c.width,
	}
}
