package picker

import (
	"errors"
	"io"
	"log/slog"
	"math"
	"testing"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapviz-go/posepublisher/internal/geo"
	"github.com/mapviz-go/posepublisher/internal/transport"
	"github.com/mapviz-go/posepublisher/pkg/msgs"
	"github.com/mapviz-go/posepublisher/pkg/plugin"
)

type fill struct {
	points []geom.XY
	color  plugin.Color
}

type stroke struct {
	points []geom.XY
	color  plugin.Color
	width  float64
}

// fakeCanvas maps pixels to the fixed frame one to one.
type fakeCanvas struct {
	filters []plugin.EventFilter
	cursor  plugin.Cursor
	fills   []fill
	strokes []stroke

	// cursorChanges counts SetInteractionCursor and RestoreCursor calls.
	cursorChanges int
}

func (c *fakeCanvas) MapPixelToFixedFrame(p geom.XY) geom.XY { return p }

func (c *fakeCanvas) InstallEventFilter(f plugin.EventFilter) {
	c.filters = append(c.filters, f)
}

func (c *fakeCanvas) RemoveEventFilter(f plugin.EventFilter) {
	for i, g := range c.filters {
		if g == f {
			c.filters = append(c.filters[:i], c.filters[i+1:]...)
			return
		}
	}
}

func (c *fakeCanvas) SetInteractionCursor(cur plugin.Cursor) {
	c.cursor = cur
	c.cursorChanges++
}

func (c *fakeCanvas) RestoreCursor() {
	c.cursor = plugin.CursorDefault
	c.cursorChanges++
}

func (c *fakeCanvas) FillPolygon(points []geom.XY, col plugin.Color) {
	c.fills = append(c.fills, fill{points, col})
}

func (c *fakeCanvas) StrokeLoop(points []geom.XY, col plugin.Color, width float64) {
	c.strokes = append(c.strokes, stroke{points, col, width})
}

type fakeFrames struct {
	names []string
	wgs84 bool
}

func (f *fakeFrames) KnownFrameNames() []string {
	return append([]string(nil), f.names...)
}

func (f *fakeFrames) SupportsTransform(a, b string) bool {
	return f.wgs84 && a == "/far_field" && b == "/wgs84"
}

type failingBus struct {
	advertiseErr error
	publishErr   error
}

func (b *failingBus) Advertise(topic string, depth int) (transport.Publisher, error) {
	if b.advertiseErr != nil {
		return nil, b.advertiseErr
	}
	return &failingPublisher{topic: topic, err: b.publishErr}, nil
}

func (b *failingBus) Close() error { return nil }

type failingPublisher struct {
	topic string
	err   error
}

func (p *failingPublisher) Topic() string { return p.topic }
func (p *failingPublisher) Publish(*msgs.PoseWithCovarianceStamped) error { return p.err }
func (p *failingPublisher) Shutdown() error { return nil }

var stamp = time.Date(2024, 3, 1, 8, 30, 0, 500, time.UTC)

type fixture struct {
	picker *Picker
	canvas *fakeCanvas
	bus    *transport.MemoryBus
	frames *fakeFrames
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		canvas: &fakeCanvas{},
		bus:    transport.NewMemoryBus(),
		frames: &fakeFrames{},
	}
	f.picker = New(Deps{
		Bus:    f.bus,
		Frames: f.frames,
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		Now:    func() time.Time { return stamp },
	})
	require.True(t, f.picker.Initialize(f.canvas))
	return f
}

func (f *fixture) press(x, y float64) bool {
	return f.picker.FilterEvent(plugin.Event{Type: plugin.EventMousePress, Button: plugin.ButtonLeft, Pos: geom.XY{X: x, Y: y}})
}

func (f *fixture) move(x, y float64) bool {
	return f.picker.FilterEvent(plugin.Event{Type: plugin.EventMouseMove, Pos: geom.XY{X: x, Y: y}})
}

func (f *fixture) release(x, y float64) bool {
	return f.picker.FilterEvent(plugin.Event{Type: plugin.EventMouseRelease, Button: plugin.ButtonLeft, Pos: geom.XY{X: x, Y: y}})
}

func TestNew_Defaults(t *testing.T) {
	p := New(Deps{})
	panel := p.Panel()

	assert.False(t, panel.Toggle.Checked())
	assert.True(t, panel.Toggle.Enabled())
	assert.Equal(t, Status{Level: LevelOK, Text: "OK"}, panel.Status)
	assert.Equal(t, -1, panel.Frames.CurrentIndex())
	assert.Equal(t, DefaultQueueDepth, p.queueDepth)
}

func TestInitialize_InstallsFilter(t *testing.T) {
	f := newFixture(t)
	require.Len(t, f.canvas.filters, 1)
	assert.Same(t, f.picker, f.canvas.filters[0])
}

type parentWidget struct{}

func (parentWidget) SetParent(plugin.Widget) {}

func TestConfigWidget_Reparents(t *testing.T) {
	f := newFixture(t)
	parent := parentWidget{}

	w := f.picker.ConfigWidget(parent)
	assert.Same(t, f.picker.Panel(), w)
	assert.Equal(t, parent, f.picker.Panel().Parent())
}

func TestSetArmed_Cursor(t *testing.T) {
	f := newFixture(t)

	f.picker.SetArmed(true)
	assert.True(t, f.picker.Armed())
	assert.Equal(t, plugin.CursorPosePicker, f.canvas.cursor)

	f.picker.SetArmed(false)
	assert.False(t, f.picker.Armed())
	assert.Equal(t, plugin.CursorDefault, f.canvas.cursor)
}

func TestSetArmed_SameStateIsNoop(t *testing.T) {
	f := newFixture(t)

	f.picker.SetArmed(false)
	assert.Equal(t, 0, f.canvas.cursorChanges)

	f.picker.SetArmed(true)
	f.picker.SetArmed(true)
	assert.Equal(t, 1, f.canvas.cursorChanges)

	require.True(t, f.press(1, 1))
	f.picker.SetArmed(true)
	assert.True(t, f.picker.Dragging())

	f.picker.SetArmed(false)
	f.picker.SetArmed(false)
	assert.Equal(t, 2, f.canvas.cursorChanges)
	assert.False(t, f.picker.Dragging())
}

func TestNeverArmed_NothingConsumedOrDrawn(t *testing.T) {
	f := newFixture(t)
	f.picker.SetTopic("/pose_out")

	assert.False(t, f.press(1, 2))
	assert.False(t, f.move(3, 4))
	assert.False(t, f.release(3, 4))
	f.picker.Draw(0, 0, 1)

	assert.Empty(t, f.canvas.fills)
	assert.Empty(t, f.canvas.strokes)
	assert.Empty(t, f.bus.Published("/pose_out"))
}

func TestPress_OnlyPrimaryButton(t *testing.T) {
	f := newFixture(t)
	f.picker.SetArmed(true)

	for _, b := range []plugin.MouseButton{plugin.ButtonRight, plugin.ButtonMiddle, plugin.ButtonNone} {
		assert.False(t, f.picker.FilterEvent(plugin.Event{Type: plugin.EventMousePress, Button: b}))
		assert.False(t, f.picker.Dragging())
	}
}

func TestOtherEvents_NotConsumed(t *testing.T) {
	f := newFixture(t)
	f.picker.SetArmed(true)
	assert.False(t, f.picker.FilterEvent(plugin.Event{Type: plugin.EventOther, Button: plugin.ButtonLeft}))
}

func TestPressRelease_NoMovePublishesZeroHeading(t *testing.T) {
	f := newFixture(t)
	f.picker.SetTopic("/initialpose")
	f.picker.SelectFrame("/map")
	f.picker.SetArmed(true)

	assert.True(t, f.press(4, -2))
	assert.True(t, f.picker.Dragging())
	assert.True(t, f.release(4, -2))

	got := f.bus.Published("/initialpose")
	require.Len(t, got, 1)
	assert.Equal(t, 0.0, got[0].Pose.Pose.Orientation.Yaw())
	assert.Equal(t, msgs.Quaternion{W: 1}, got[0].Pose.Pose.Orientation)
}

func TestScenario_PublishOnRelease(t *testing.T) {
	f := newFixture(t)
	f.picker.SetTopic("/pose_out")
	f.picker.SelectFrame("/map")
	f.picker.SetArmed(true)

	assert.True(t, f.press(1.0, 2.0))
	assert.False(t, f.move(2.0, 2.0))
	assert.True(t, f.release(2.0, 2.0))

	got := f.bus.Published("/pose_out")
	require.Len(t, got, 1)
	pose := got[0]
	assert.Equal(t, msgs.Point{X: 1.0, Y: 2.0, Z: 0.0}, pose.Pose.Pose.Position)
	assert.Equal(t, msgs.Quaternion{W: 1}, pose.Pose.Pose.Orientation)
	assert.Equal(t, "/map", pose.Header.FrameID)
	assert.Equal(t, msgs.NewTime(stamp), pose.Header.Stamp)
	assert.Equal(t, [36]float64{}, pose.Pose.Covariance)

	assert.False(t, f.picker.Armed())
	assert.False(t, f.picker.Dragging())
	assert.Equal(t, plugin.CursorDefault, f.canvas.cursor)
	assert.Equal(t, Status{Level: LevelInfo, Text: "Pose published to topic: /pose_out in frame /map"}, f.picker.Panel().Status)
}

func TestScenario_StraightUpIsQuarterTurn(t *testing.T) {
	f := newFixture(t)
	f.picker.SetTopic("/pose_out")
	f.picker.SetArmed(true)

	f.press(0, 0)
	f.move(0, 5)
	assert.InDelta(t, math.Pi/2, f.picker.drag.angle, 1e-12)
	f.release(0, 5)

	got := f.bus.Published("/pose_out")
	require.Len(t, got, 1)
	assert.InDelta(t, math.Pi/2, got[0].Pose.Pose.Orientation.Yaw(), 1e-12)
}

func TestHeading_AllQuadrants(t *testing.T) {
	tail := geom.XY{X: 1, Y: 1}
	tests := []struct {
		name string
		head geom.XY
		want float64
	}{
		{"east", geom.XY{X: 3, Y: 1}, 0},
		{"north", geom.XY{X: 1, Y: 4}, math.Pi / 2},
		{"west", geom.XY{X: -2, Y: 1}, math.Pi},
		{"south", geom.XY{X: 1, Y: -1}, -math.Pi / 2},
		{"north east", geom.XY{X: 2, Y: 2}, math.Pi / 4},
		{"north west", geom.XY{X: 0, Y: 2}, 3 * math.Pi / 4},
		{"south west", geom.XY{X: 0, Y: 0}, -3 * math.Pi / 4},
		{"south east", geom.XY{X: 2, Y: 0}, -math.Pi / 4},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, Heading(tail, tt.head), 1e-12)
			assert.Equal(t, math.Atan2(tt.head.Y-tail.Y, tt.head.X-tail.X), Heading(tail, tt.head))
		})
	}
}

func TestMove_LastMoveWins(t *testing.T) {
	f := newFixture(t)
	f.picker.SetTopic("/t")
	f.picker.SetArmed(true)

	f.press(0, 0)
	f.move(1, 1)
	f.move(-1, 0)
	f.release(-1, 0)

	got := f.bus.Published("/t")
	require.Len(t, got, 1)
	assert.InDelta(t, math.Pi, math.Abs(got[0].Pose.Pose.Orientation.Yaw()), 1e-12)
}

func TestMove_WithoutSessionIgnored(t *testing.T) {
	f := newFixture(t)
	f.picker.SetArmed(true)

	assert.False(t, f.move(5, 5))
	assert.False(t, f.picker.Dragging())
	assert.Equal(t, 0.0, f.picker.drag.angle)
}

func TestRelease_WithoutPressIsNoop(t *testing.T) {
	f := newFixture(t)
	f.picker.SetTopic("/t")
	f.picker.SetArmed(true)
	before := f.picker.Panel().Status

	assert.False(t, f.release(1, 1))
	assert.True(t, f.picker.Armed())
	assert.Equal(t, before, f.picker.Panel().Status)
	assert.Empty(t, f.bus.Published("/t"))
}

func TestRelease_EmptyTopicStillDisarms(t *testing.T) {
	f := newFixture(t)
	f.picker.SetArmed(true)

	f.press(1, 1)
	assert.True(t, f.release(1, 1))

	assert.False(t, f.picker.Armed())
	assert.Equal(t, LevelWarning, f.picker.Panel().Status.Level)
}

func TestDisarmMidDrag_CancelsSession(t *testing.T) {
	f := newFixture(t)
	f.picker.SetTopic("/t")
	f.picker.SetArmed(true)

	f.press(1, 1)
	f.picker.SetArmed(false)
	assert.False(t, f.picker.Dragging())

	assert.False(t, f.release(2, 2))
	f.picker.Draw(0, 0, 1)
	assert.Empty(t, f.canvas.fills)
	assert.Empty(t, f.bus.Published("/t"))
}

func TestRelease_PublishErrorSetsErrorStatus(t *testing.T) {
	canvas := &fakeCanvas{}
	p := New(Deps{
		Bus:    &failingBus{publishErr: errors.New("queue full")},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	p.Initialize(canvas)
	p.SetTopic("/t")
	p.SetArmed(true)

	p.FilterEvent(plugin.Event{Type: plugin.EventMousePress, Button: plugin.ButtonLeft})
	assert.True(t, p.FilterEvent(plugin.Event{Type: plugin.EventMouseRelease, Button: plugin.ButtonLeft}))

	assert.False(t, p.Armed())
	assert.Equal(t, LevelError, p.Panel().Status.Level)
	assert.Contains(t, p.Panel().Status.Text, "queue full")
}

func TestDraw_ArrowAtTail(t *testing.T) {
	f := newFixture(t)
	f.picker.SetArmed(true)
	f.press(3, 4)
	f.move(3, 10)

	f.picker.Draw(0, 0, 0.5)

	want := geo.Arrow(5, math.Pi/2, geom.XY{X: 3, Y: 4})
	require.Len(t, f.canvas.fills, 1)
	require.Len(t, f.canvas.strokes, 1)
	assert.Equal(t, want, f.canvas.fills[0].points)
	assert.Equal(t, FillColor, f.canvas.fills[0].color)
	assert.Equal(t, want, f.canvas.strokes[0].points)
	assert.Equal(t, OutlineColor, f.canvas.strokes[0].color)
	assert.Equal(t, 2.0, f.canvas.strokes[0].width)

	ring, ok := f.picker.Arrow(0.5)
	require.True(t, ok)
	assert.Equal(t, want, geo.RingPoints(ring))
}

func TestArrow_NoSession(t *testing.T) {
	f := newFixture(t)
	_, ok := f.picker.Arrow(1)
	assert.False(t, ok)
}

func TestSetTopic_Advertises(t *testing.T) {
	f := newFixture(t)

	f.picker.SetTopic("/a")
	depth, ok := f.bus.QueueDepth("/a")
	require.True(t, ok)
	assert.Equal(t, 1000, depth)
	assert.Equal(t, Status{Level: LevelInfo, Text: "Publishing poses to topic: /a"}, f.picker.Panel().Status)

	f.picker.SetTopic("/b")
	_, ok = f.bus.QueueDepth("/a")
	assert.False(t, ok, "previous publisher should be shut down")
	_, ok = f.bus.QueueDepth("/b")
	assert.True(t, ok)

	f.picker.SetTopic("")
	_, ok = f.bus.QueueDepth("/b")
	assert.False(t, ok)
	assert.Nil(t, f.picker.publisher)
	assert.Equal(t, "", f.picker.Topic())
}

func TestSetTopic_AdvertiseFailure(t *testing.T) {
	p := New(Deps{
		Bus:    &failingBus{advertiseErr: transport.ErrNotConnected},
		Logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
	})
	p.SetTopic("/t")

	assert.Nil(t, p.publisher)
	assert.Equal(t, LevelError, p.Panel().Status.Level)
	assert.Contains(t, p.Panel().Status.Text, "/t")
}

func TestTimerTick_Resets(t *testing.T) {
	f := newFixture(t)
	f.picker.SetTopic("/t")
	f.picker.Panel().Toggle.SetEnabled(false)

	f.picker.TimerTick()

	assert.True(t, f.picker.Panel().Toggle.Enabled())
	assert.Equal(t, Status{Level: LevelOK, Text: "OK"}, f.picker.Panel().Status)
}

func TestLoadConfig(t *testing.T) {
	f := newFixture(t)

	f.picker.LoadConfig(plugin.MapNode{
		"topic":        "/initialpose",
		"output_frame": "/odom",
		"unknown":      "ignored",
	}, "/tmp")

	assert.Equal(t, "/initialpose", f.picker.Topic())
	_, ok := f.bus.QueueDepth("/initialpose")
	assert.True(t, ok)
	assert.Equal(t, "/odom", f.picker.OutputFrame())
}

func TestLoadConfig_FrameAppendedKeepsSelection(t *testing.T) {
	f := newFixture(t)
	f.picker.SelectFrame("/map")

	f.picker.LoadConfig(plugin.MapNode{"output_frame": "/odom"}, "")

	assert.Equal(t, []string{"/map", "/odom"}, f.picker.Panel().Frames.Items())
	assert.Equal(t, "/map", f.picker.OutputFrame())
}

func TestLoadConfig_MissingKeysKeepDefaults(t *testing.T) {
	f := newFixture(t)
	f.picker.LoadConfig(plugin.MapNode{}, "")

	assert.Equal(t, "", f.picker.Topic())
	assert.Equal(t, "", f.picker.OutputFrame())
	assert.Equal(t, Status{Level: LevelOK, Text: "OK"}, f.picker.Panel().Status)
}

func TestSaveConfig(t *testing.T) {
	f := newFixture(t)
	f.picker.SetTopic("/goal")
	f.picker.SelectFrame("/far_field")

	out := plugin.MapNode{}
	f.picker.SaveConfig(out, "")
	assert.Equal(t, plugin.MapNode{"topic": "/goal", "output_frame": "/far_field"}, out)

	g := newFixture(t)
	g.picker.LoadConfig(out, "")
	assert.Equal(t, "/goal", g.picker.Topic())
	assert.Equal(t, "/far_field", g.picker.OutputFrame())
}

func TestClose(t *testing.T) {
	f := newFixture(t)
	f.picker.SetTopic("/t")

	require.NoError(t, f.picker.Close())
	assert.Empty(t, f.canvas.filters)
	_, ok := f.bus.QueueDepth("/t")
	assert.False(t, ok)
	assert.NoError(t, f.picker.Close())
}

func TestRegister(t *testing.T) {
	reg := plugin.NewRegistry()
	Register(reg, Deps{Bus: transport.NewMemoryBus()})

	factory, ok := reg.Lookup(PluginName)
	require.True(t, ok)
	p, ok := factory().(*Picker)
	require.True(t, ok)
	assert.False(t, p.Armed())
}
