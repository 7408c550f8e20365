package plugin

import (
	geom "github.com/peterstace/simplefeatures/geom"
)

// EventType enumerates the canvas events forwarded to filters.
type EventType int

const (
	EventOther EventType = iota
	EventMousePress
	EventMouseMove
	EventMouseRelease
)

func (t EventType) String() string {
	switch t {
	case EventMousePress:
		return "press"
	case EventMouseMove:
		return "move"
	case EventMouseRelease:
		return "release"
	default:
		return "other"
	}
}

// MouseButton identifies the button that triggered a press or release.
type MouseButton int

const (
	ButtonNone MouseButton = iota
	ButtonLeft
	ButtonRight
	ButtonMiddle
)

// Event is a pointer event in canvas pixel coordinates.
type Event struct {
	Type   EventType
	Button MouseButton
	Pos    geom.XY
}

// EventFilter intercepts canvas events. Returning true consumes the event so
// the host does not also treat it as a pan or zoom gesture.
type EventFilter interface {
	FilterEvent(e Event) bool
}

// EventFilterFunc adapts a function to EventFilter.
type EventFilterFunc func(e Event) bool

// FilterEvent calls f(e).
func (f EventFilterFunc) FilterEvent(e Event) bool {
	return f(e)
}
