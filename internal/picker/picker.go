// Package picker implements the interactive pose picker: arm it, press on the
// map to place a pose, drag to turn it, release to publish it.
package picker

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/mapviz-go/posepublisher/internal/geo"
	"github.com/mapviz-go/posepublisher/internal/transport"
	"github.com/mapviz-go/posepublisher/pkg/msgs"
	"github.com/mapviz-go/posepublisher/pkg/plugin"
)

// PluginName is the name the picker is registered under.
const PluginName = "mapviz_plugins/pose_publisher"

// DefaultQueueDepth is the outbound queue requested when advertising a topic.
const DefaultQueueDepth = 1000

// Config keys read by LoadConfig and written by SaveConfig.
const (
	KeyTopic       = "topic"
	KeyOutputFrame = "output_frame"
)

// Arrow colors.
var (
	FillColor    = plugin.Color{R: 0.1, G: 0.9, B: 0.1}
	OutlineColor = plugin.Color{R: 0.0, G: 0.6, B: 0.0}
)

const outlineWidth = 2

// Deps are the collaborators injected into a picker.
type Deps struct {
	Bus    transport.Bus
	Frames plugin.FrameSource
	Logger *slog.Logger

	// QueueDepth overrides DefaultQueueDepth when positive.
	QueueDepth int
	// Now stamps published poses. Defaults to time.Now.
	Now func() time.Time
}

// session is the state of one press-drag-release interaction. tail and angle
// are only meaningful while active.
type session struct {
	active bool
	tail   geom.XY
	angle  float64
}

// Picker is a plugin.Plugin and plugin.EventFilter. All methods must be called
// from the host's event goroutine.
type Picker struct {
	bus        transport.Bus
	frames     plugin.FrameSource
	log        *slog.Logger
	now        func() time.Time
	queueDepth int

	canvas    plugin.Canvas
	panel     *Panel
	publisher transport.Publisher
	drag      session

	published metric.Int64Counter
	failed    metric.Int64Counter
}

var _ plugin.Plugin = (*Picker)(nil)
var _ plugin.EventFilter = (*Picker)(nil)

// New builds a picker with its configuration panel. The toggle starts
// unchecked and enabled, the status reads "OK".
func New(deps Deps) *Picker {
	p := &Picker{
		bus:        deps.Bus,
		frames:     deps.Frames,
		log:        deps.Logger,
		now:        deps.Now,
		queueDepth: deps.QueueDepth,
		panel: &Panel{
			Toggle: &Toggle{enabled: true},
			Frames: newFrameList(),
			Status: Status{Level: LevelOK, Text: "OK"},
		},
	}
	if p.log == nil {
		p.log = slog.Default()
	}
	p.log = p.log.With("plugin", PluginName)
	if p.now == nil {
		p.now = time.Now
	}
	if p.queueDepth <= 0 {
		p.queueDepth = DefaultQueueDepth
	}

	var err error
	p.published, err = meter().Int64Counter("picker.poses.published",
		metric.WithDescription("Poses handed to the bus"))
	if err != nil {
		p.log.Error("failed to create counter", "error", err)
	}
	p.failed, err = meter().Int64Counter("picker.poses.failed",
		metric.WithDescription("Poses the bus refused"))
	if err != nil {
		p.log.Error("failed to create counter", "error", err)
	}
	return p
}

// Register makes the picker available in reg under PluginName.
func Register(reg *plugin.Registry, deps Deps) {
	reg.Register(PluginName, func() plugin.Plugin { return New(deps) })
}

// Initialize stores the canvas and starts filtering its events.
func (p *Picker) Initialize(canvas plugin.Canvas) bool {
	p.canvas = canvas
	canvas.InstallEventFilter(p)
	p.log.Debug("initialized")
	return true
}

// ConfigWidget re-parents the configuration panel under parent.
func (p *Picker) ConfigWidget(parent plugin.Widget) plugin.Widget {
	p.panel.SetParent(parent)
	return p.panel
}

// Panel returns the configuration panel.
func (p *Picker) Panel() *Panel {
	return p.panel
}

// Armed reports whether the toggle is checked.
func (p *Picker) Armed() bool {
	return p.panel.Toggle.checked
}

// Dragging reports whether a drag session is in progress.
func (p *Picker) Dragging() bool {
	return p.drag.active
}

// SetArmed checks or unchecks the arming toggle. Disarming cancels any drag
// in progress without publishing. Setting the current state does nothing.
func (p *Picker) SetArmed(armed bool) {
	if armed == p.panel.Toggle.checked {
		return
	}
	p.panel.Toggle.checked = armed
	if armed {
		if p.canvas != nil {
			p.canvas.SetInteractionCursor(plugin.CursorPosePicker)
		}
		p.log.Debug("armed")
		return
	}

	if p.canvas != nil {
		p.canvas.RestoreCursor()
	}
	p.drag = session{}
	p.log.Debug("disarmed")
}

// FilterEvent implements plugin.EventFilter.
func (p *Picker) FilterEvent(e plugin.Event) bool {
	switch e.Type {
	case plugin.EventMousePress:
		return p.handlePress(e)
	case plugin.EventMouseMove:
		return p.handleMove(e)
	case plugin.EventMouseRelease:
		return p.handleRelease(e)
	default:
		return false
	}
}

func (p *Picker) handlePress(e plugin.Event) bool {
	if !p.Armed() || e.Button != plugin.ButtonLeft || p.canvas == nil {
		return false
	}
	p.drag = session{
		active: true,
		tail:   p.canvas.MapPixelToFixedFrame(e.Pos),
		angle:  0,
	}
	p.log.Debug("drag started", "x", p.drag.tail.X, "y", p.drag.tail.Y)
	return true
}

func (p *Picker) handleMove(e plugin.Event) bool {
	if !p.drag.active || p.canvas == nil {
		return false
	}
	head := p.canvas.MapPixelToFixedFrame(e.Pos)
	p.drag.angle = Heading(p.drag.tail, head)
	return false
}

func (p *Picker) handleRelease(plugin.Event) bool {
	if !p.drag.active {
		return false
	}
	drag := p.drag
	p.drag = session{}
	if !p.Armed() {
		return false
	}

	frame := p.panel.Frames.CurrentText()
	pose := msgs.NewPlanarPose(frame, p.now(), drag.tail.X, drag.tail.Y, drag.angle)
	p.SetArmed(false)
	p.publish(pose)
	return true
}

func (p *Picker) publish(pose *msgs.PoseWithCovarianceStamped) {
	frame := pose.Header.FrameID
	if p.publisher == nil {
		p.setStatus(LevelWarning, "No topic configured, pose not published")
		return
	}

	topic := p.publisher.Topic()
	attrs := metric.WithAttributes(attribute.String("topic", topic))
	if err := p.publisher.Publish(pose); err != nil {
		p.count(p.failed, attrs)
		p.setStatus(LevelError, fmt.Sprintf("Failed to publish pose to topic: %s (%v)", topic, err))
		return
	}
	p.count(p.published, attrs)
	p.setStatus(LevelInfo, fmt.Sprintf("Pose published to topic: %s in frame %s", topic, frame))
}

func (p *Picker) count(c metric.Int64Counter, opts ...metric.AddOption) {
	if c != nil {
		c.Add(context.Background(), 1, opts...)
	}
}

// Heading returns the angle of the vector from tail to head, in radians
// counter-clockwise from +X.
func Heading(tail, head geom.XY) float64 {
	return math.Atan2(head.Y-tail.Y, head.X-tail.X)
}

// Arrow returns the outline of the pose being dragged, false when no drag is
// in progress.
func (p *Picker) Arrow(scale float64) (geom.LineString, bool) {
	if !p.drag.active {
		return geom.LineString{}, false
	}
	return geo.ArrowRing(geo.ArrowShape, scale*10, p.drag.angle, p.drag.tail), true
}

// Draw renders the arrow of the pose being dragged.
func (p *Picker) Draw(x, y, scale float64) {
	if !p.drag.active || p.canvas == nil {
		return
	}
	points := geo.Arrow(scale*10, p.drag.angle, p.drag.tail)
	p.canvas.FillPolygon(points, FillColor)
	p.canvas.StrokeLoop(points, OutlineColor, outlineWidth)
}

// SetTopic rebinds the publisher to topic. An empty topic leaves the picker
// without a publisher.
func (p *Picker) SetTopic(topic string) {
	p.panel.Topic = topic
	p.setStatus(LevelInfo, "Publishing poses to topic: "+topic)

	if p.publisher != nil {
		if err := p.publisher.Shutdown(); err != nil {
			p.log.Warn("failed to shut down publisher", "topic", p.publisher.Topic(), "error", err)
		}
		p.publisher = nil
	}
	if topic == "" || p.bus == nil {
		return
	}

	pub, err := p.bus.Advertise(topic, p.queueDepth)
	if err != nil {
		p.setStatus(LevelError, fmt.Sprintf("Failed to advertise topic: %s (%v)", topic, err))
		return
	}
	p.publisher = pub
}

// Topic returns the topic text.
func (p *Picker) Topic() string {
	return p.panel.Topic
}

// SelectFrame makes name the output frame.
func (p *Picker) SelectFrame(name string) {
	p.panel.Frames.Select(name)
	p.log.Debug("output frame selected", "frame", name)
}

// OutputFrame returns the selected output frame, "" if none.
func (p *Picker) OutputFrame() string {
	return p.panel.Frames.CurrentText()
}

// TimerTick re-enables the toggle and resets the status line.
func (p *Picker) TimerTick() {
	p.panel.Toggle.SetEnabled(true)
	p.panel.Status = Status{Level: LevelOK, Text: "OK"}
}

// LoadConfig applies the persisted topic and output frame.
func (p *Picker) LoadConfig(node plugin.Node, path string) {
	if topic, ok := node.Lookup(KeyTopic); ok {
		p.SetTopic(topic)
	}
	if frame, ok := node.Lookup(KeyOutputFrame); ok {
		p.panel.Frames.Add(frame)
	}
	p.log.Debug("config loaded", "path", path, "topic", p.Topic(), "frame", p.OutputFrame())
}

// SaveConfig persists the topic and output frame.
func (p *Picker) SaveConfig(emitter plugin.Emitter, path string) {
	emitter.Emit(KeyTopic, p.Topic())
	emitter.Emit(KeyOutputFrame, p.OutputFrame())
	p.log.Debug("config saved", "path", path)
}

// Close stops filtering canvas events and withdraws the publisher.
func (p *Picker) Close() error {
	if p.canvas != nil {
		p.canvas.RemoveEventFilter(p)
	}
	if p.publisher == nil {
		return nil
	}
	err := p.publisher.Shutdown()
	p.publisher = nil
	return err
}

func (p *Picker) setStatus(level Level, text string) {
	p.panel.Status = Status{Level: level, Text: text}

	switch level {
	case LevelError:
		p.log.Error(text)
	case LevelWarning:
		p.log.Warn(text)
	default:
		p.log.Info(text)
	}
}
