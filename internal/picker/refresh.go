package picker

import (
	"github.com/mapviz-go/posepublisher/internal/frames"
)

// FrameRefreshTick rebuilds the frame list from the frame source, keeping the
// current selection even when the source no longer knows it.
func (p *Picker) FrameRefreshTick() {
	if p.frames == nil {
		return
	}

	names := p.frames.KnownFrameNames()
	p.log.Debug("known frames", "frames", names)

	if p.frames.SupportsTransform(frames.LocalXYFrame, frames.WGS84Frame) {
		names = append(names, frames.WGS84Frame)
		p.log.Debug("wgs84 transform supported")
	}

	list := p.panel.Frames
	if list.Equal(names) {
		p.log.Debug("frame not changed")
		return
	}

	current := list.CurrentText()
	list.Clear()
	for _, name := range names {
		list.Add(name)
	}
	// Add auto-selects the first item; only a previous choice may select.
	list.Deselect()
	if current != "" {
		list.Select(current)
	}
	p.log.Debug("frame list rebuilt", "frames", list.Items(), "selected", current)
}
