package main

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/urfave/cli/v2"

	"github.com/mapviz-go/posepublisher/internal/config"
	"github.com/mapviz-go/posepublisher/internal/frames"
	"github.com/mapviz-go/posepublisher/internal/geo"
	"github.com/mapviz-go/posepublisher/internal/history"
	"github.com/mapviz-go/posepublisher/internal/picker"
	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

// PublishAction sends one pose through the same bus the picker uses.
func PublishAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	pc := config.GetPickerConfig()
	topic := pc.Topic
	if c.IsSet(flagTopic) {
		topic = c.String(flagTopic)
	}
	if topic == "" {
		return fmt.Errorf("no topic: set --%s or picker.topic", flagTopic)
	}
	frame := pc.OutputFrame
	if c.IsSet(flagFrame) {
		frame = c.String(flagFrame)
	}
	pos, frame, err := publishPosition(c, e.Frames, frame)
	if err != nil {
		return err
	}

	backend, err := e.newHistory()
	if err != nil {
		return err
	}
	if backend != nil {
		defer backend.Close()
	}
	bus, err := e.newBus(c.Bool(flagDryRun), backend)
	if err != nil {
		return err
	}
	defer bus.Close()

	depth := pc.QueueDepth
	if depth <= 0 {
		depth = picker.DefaultQueueDepth
	}
	pub, err := bus.Advertise(topic, depth)
	if err != nil {
		return err
	}
	defer pub.Shutdown()

	pose := msgs.NewPlanarPose(frame, time.Now(), pos.X, pos.Y, c.Float64(flagYaw))
	if err := pub.Publish(pose); err != nil {
		return fmt.Errorf("publish: %w", err)
	}
	e.Logger.Info("Pose published", "topic", topic, "frame", frame)
	fmt.Fprintf(c.App.Writer, "Pose published to topic: %s in frame %s\n", topic, frame)
	return nil
}

// publishPosition resolves the position flags. A WGS84 position is converted
// into the local xy frame, which becomes the output frame unless --frame is set.
func publishPosition(c *cli.Context, reg *frames.Registry, frame string) (geom.XY, string, error) {
	if c.IsSet(flagXY) && c.IsSet(flagLonLat) {
		return geom.XY{}, "", fmt.Errorf("--%s and --%s are mutually exclusive", flagXY, flagLonLat)
	}

	switch {
	case c.IsSet(flagLonLat):
		ll, err := geo.ParseXY(c.String(flagLonLat))
		if err != nil {
			return geom.XY{}, "", fmt.Errorf("--%s: %w", flagLonLat, err)
		}
		pos, err := reg.FromWGS84(geo.LonLat{Lon: ll.X, Lat: ll.Y})
		if err != nil {
			return geom.XY{}, "", fmt.Errorf("--%s: %w", flagLonLat, err)
		}
		if !c.IsSet(flagFrame) {
			frame = frames.LocalXYFrame
		}
		return pos, frame, nil
	case c.IsSet(flagXY):
		pos, err := geo.ParseXY(c.String(flagXY))
		if err != nil {
			return geom.XY{}, "", fmt.Errorf("--%s: %w", flagXY, err)
		}
		return pos, frame, nil
	default:
		return geom.XY{X: c.Float64(flagX), Y: c.Float64(flagY)}, frame, nil
	}
}

// HistoryAction prints the most recently published poses.
func HistoryAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	backend, err := e.newHistory()
	if err != nil {
		return err
	}
	if backend == nil {
		return fmt.Errorf("history is disabled (history.type = none)")
	}
	defer backend.Close()

	q, ok := backend.(history.Queryable)
	if !ok {
		return fmt.Errorf("history type %q cannot be queried", config.GetHistoryConfig().Type)
	}
	records, err := q.Recent(c.Int(flagLimit))
	if err != nil {
		return err
	}

	fmt.Fprintln(c.App.Writer, renderHistory(records, e.Frames))
	if path := c.String(flagExport); path != "" {
		if err := history.WriteExport(path, records, time.Now()); err != nil {
			return err
		}
		fmt.Fprintf(c.App.Writer, "Wrote %d poses to %s\n", len(records), path)
	}
	return nil
}

// renderHistory lists records as a table. Poses in the local xy frame also
// show their WGS84 position when the registry has an origin.
func renderHistory(records []history.Record, reg *frames.Registry) string {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Recorded", "Topic", "Frame", "X", "Y", "Yaw", "Lat, Lon"})
	for i, r := range records {
		pos := r.Pose.Pose.Pose.Position
		t.AppendRow(table.Row{
			i + 1,
			r.RecordedAt.UTC().Format(time.RFC3339),
			r.Topic,
			r.Pose.Header.FrameID,
			formatFloat(pos.X),
			formatFloat(pos.Y),
			formatFloat(r.Pose.Pose.Pose.Orientation.Yaw()),
			latLon(reg, r.Pose.Header.FrameID, geom.XY{X: pos.X, Y: pos.Y}),
		})
	}
	t.AppendFooter(table.Row{"", "", "", "", "", "", "Total", len(records)})
	return t.Render()
}

func latLon(reg *frames.Registry, frame string, p geom.XY) string {
	if reg == nil || frame != frames.LocalXYFrame {
		return ""
	}
	ll, err := reg.ToWGS84(p)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%.7f, %.7f", ll.Lat, ll.Lon)
}

// FramesAction prints the frame registry.
func FramesAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	return writeFrames(c.App.Writer, e.Frames)
}

func writeFrames(w io.Writer, r *frames.Registry) error {
	t := table.NewWriter()
	t.AppendHeader(table.Row{"#", "Frame", "WGS84"})
	names := r.KnownFrameNames()
	wgs84 := r.SupportsTransform(frames.LocalXYFrame, frames.WGS84Frame)
	for i, name := range names {
		convertible := ""
		if name == frames.LocalXYFrame && wgs84 {
			convertible = "yes"
		}
		t.AppendRow(table.Row{i + 1, name, convertible})
	}
	if wgs84 {
		t.AppendRow(table.Row{len(names) + 1, frames.WGS84Frame, "yes"})
	}
	if origin, ok := r.Origin(); ok {
		t.AppendFooter(table.Row{"", "origin", fmt.Sprintf("%s, %s", formatFloat(origin.Lat), formatFloat(origin.Lon))})
	}
	_, err := fmt.Fprintln(w, t.Render())
	return err
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', 3, 64)
}
