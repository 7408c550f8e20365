package picker

import (
	"github.com/mapviz-go/posepublisher/pkg/plugin"
)

// Toggle is the arming button.
type Toggle struct {
	checked bool
	enabled bool
}

func (t *Toggle) Checked() bool { return t.checked }
func (t *Toggle) Enabled() bool { return t.enabled }

func (t *Toggle) SetEnabled(enabled bool) { t.enabled = enabled }

// FrameList is an editable combo box of frame names. An index of -1 means
// nothing is selected.
type FrameList struct {
	items   []string
	current int
}

func newFrameList() *FrameList {
	return &FrameList{current: -1}
}

// Items returns a copy of the listed frames in display order.
func (l *FrameList) Items() []string {
	return append([]string(nil), l.items...)
}

func (l *FrameList) Count() int { return len(l.items) }

// CurrentIndex returns the selected index, -1 if none.
func (l *FrameList) CurrentIndex() int { return l.current }

// CurrentText returns the selected frame, or "" if none.
func (l *FrameList) CurrentText() string {
	if l.current < 0 || l.current >= len(l.items) {
		return ""
	}
	return l.items[l.current]
}

// Add appends an item. Like a combo box, the first item added to an empty list
// becomes the selection.
func (l *FrameList) Add(item string) {
	l.items = append(l.items, item)
	if l.current < 0 && len(l.items) == 1 {
		l.current = 0
	}
}

// Find returns the index of item, -1 if absent.
func (l *FrameList) Find(item string) int {
	for i, it := range l.items {
		if it == item {
			return i
		}
	}
	return -1
}

// Select makes item the selection, appending it if absent.
func (l *FrameList) Select(item string) {
	idx := l.Find(item)
	if idx < 0 {
		l.items = append(l.items, item)
		idx = len(l.items) - 1
	}
	l.current = idx
}

// Deselect clears the selection but keeps the items.
func (l *FrameList) Deselect() {
	l.current = -1
}

// Clear removes every item and the selection.
func (l *FrameList) Clear() {
	l.items = nil
	l.current = -1
}

// Equal reports whether the list holds exactly names, in the same order.
func (l *FrameList) Equal(names []string) bool {
	if len(names) != len(l.items) {
		return false
	}
	for i := range names {
		if names[i] != l.items[i] {
			return false
		}
	}
	return true
}

// Level is the severity of a status line.
type Level int

const (
	LevelOK Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

func (l Level) String() string {
	switch l {
	case LevelOK:
		return "ok"
	case LevelInfo:
		return "info"
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "unknown"
	}
}

// Status is the one-line status shown under the controls.
type Status struct {
	Level Level
	Text  string
}

// Panel is the configuration surface handed to the host.
type Panel struct {
	parent plugin.Widget

	Toggle *Toggle
	Frames *FrameList
	Topic  string
	Status Status
}

// SetParent implements plugin.Widget.
func (p *Panel) SetParent(parent plugin.Widget) {
	p.parent = parent
}

// Parent returns the widget the panel is embedded in.
func (p *Panel) Parent() plugin.Widget {
	return p.parent
}
