package host

import (
	"context"
	"fmt"
	"io"

	geom "github.com/peterstace/simplefeatures/geom"

	"github.com/mapviz-go/posepublisher/internal/picker"
	"github.com/mapviz-go/posepublisher/pkg/plugin"
)

// Runner applies script commands to a picker through a headless canvas.
type Runner struct {
	Picker *picker.Picker
	Canvas *HeadlessCanvas
	Out    io.Writer
	// Save receives the picker configuration on "save". Optional.
	Save func(plugin.MapNode) error

	pointer geom.XY
}

// Exec applies one command. It must run on the loop goroutine.
func (r *Runner) Exec(cmd Command) error {
	switch cmd.Op {
	case OpArm:
		r.Picker.SetArmed(true)
	case OpDisarm:
		r.Picker.SetArmed(false)
	case OpPress:
		r.pointer = cmd.Pos
		r.Canvas.Dispatch(plugin.Event{Type: plugin.EventMousePress, Button: plugin.ButtonLeft, Pos: cmd.Pos})
	case OpMove:
		r.pointer = cmd.Pos
		r.Canvas.Dispatch(plugin.Event{Type: plugin.EventMouseMove, Pos: cmd.Pos})
	case OpRelease:
		pos := r.pointer
		if cmd.HasPos {
			pos = cmd.Pos
		}
		r.Canvas.Dispatch(plugin.Event{Type: plugin.EventMouseRelease, Button: plugin.ButtonLeft, Pos: pos})
	case OpTopic:
		r.Picker.SetTopic(cmd.Text)
	case OpFrame:
		r.Picker.SelectFrame(cmd.Text)
	case OpTick:
		r.Picker.TimerTick()
	case OpRefresh:
		r.Picker.FrameRefreshTick()
	case OpDraw:
		d := r.Canvas.Repaint(r.Picker, cmd.Scale)
		if d.Empty() {
			r.printf("arrow: none\n")
			break
		}
		ring, _ := r.Picker.Arrow(cmd.Scale)
		r.printf("arrow: %s\n", ring.AsText())
	case OpSave:
		node := plugin.MapNode{}
		r.Picker.SaveConfig(node, "")
		if r.Save != nil {
			if err := r.Save(node); err != nil {
				return fmt.Errorf("save config: %w", err)
			}
		}
		r.printf("saved: topic=%v output_frame=%v\n", node[picker.KeyTopic], node[picker.KeyOutputFrame])
	case OpStatus:
		st := r.Picker.Panel().Status
		r.printf("[%s] %s (armed=%t topic=%q frame=%q)\n",
			st.Level, st.Text, r.Picker.Armed(), r.Picker.Topic(), r.Picker.OutputFrame())
	default:
		return fmt.Errorf("unknown command %q", cmd.Op)
	}
	return nil
}

// RunScript executes cmds in order on loop.
func (r *Runner) RunScript(ctx context.Context, loop *Loop, cmds []Command) error {
	for _, cmd := range cmds {
		var execErr error
		if err := loop.Do(ctx, func() { execErr = r.Exec(cmd) }); err != nil {
			return err
		}
		if execErr != nil {
			return fmt.Errorf("line %d: %w", cmd.Line, execErr)
		}
	}
	return nil
}

func (r *Runner) printf(format string, args ...any) {
	if r.Out != nil {
		fmt.Fprintf(r.Out, format, args...)
	}
}
