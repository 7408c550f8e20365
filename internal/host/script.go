package host

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"

	geom "github.com/peterstace/simplefeatures/geom"
)

// Op is a script command.
type Op string

const (
	OpArm     Op = "arm"
	OpDisarm  Op = "disarm"
	OpPress   Op = "press"
	OpMove    Op = "move"
	OpRelease Op = "release"
	OpTopic   Op = "topic"
	OpFrame   Op = "frame"
	OpTick    Op = "tick"
	OpRefresh Op = "refresh"
	OpDraw    Op = "draw"
	OpSave    Op = "save"
	OpStatus  Op = "status"
)

// Command is one parsed script line. Pos is in canvas pixels and only set
// when HasPos is true.
type Command struct {
	Op     Op
	Pos    geom.XY
	HasPos bool
	Text   string
	Scale float64
	Line  int
}

// ParseScript reads one command per line. Blank lines and lines starting with
// '#' are skipped.
func ParseScript(r io.Reader) ([]Command, error) {
	var cmds []Command
	sc := bufio.NewScanner(r)
	line := 0
	for sc.Scan() {
		line++
		cmd, ok, err := ParseLine(sc.Text())
		if err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		if !ok {
			continue
		}
		cmd.Line = line
		cmds = append(cmds, cmd)
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read script: %w", err)
	}
	return cmds, nil
}

// ParseLine parses a single command. ok is false for blank and comment lines.
func ParseLine(s string) (cmd Command, ok bool, err error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.HasPrefix(s, "#") {
		return Command{}, false, nil
	}

	fields := strings.Fields(s)
	cmd.Op = Op(strings.ToLower(fields[0]))
	args := fields[1:]

	switch cmd.Op {
	case OpArm, OpDisarm, OpTick, OpRefresh, OpSave, OpStatus:
		if len(args) != 0 {
			return Command{}, false, fmt.Errorf("%s takes no arguments", cmd.Op)
		}
	case OpPress, OpMove:
		if cmd.Pos, err = parsePos(args); err != nil {
			return Command{}, false, fmt.Errorf("%s: %w", cmd.Op, err)
		}
		cmd.HasPos = true
	case OpRelease:
		if len(args) > 0 {
			if cmd.Pos, err = parsePos(args); err != nil {
				return Command{}, false, fmt.Errorf("%s: %w", cmd.Op, err)
			}
			cmd.HasPos = true
		}
	case OpTopic:
		// an empty topic unbinds the publisher
		cmd.Text = strings.TrimSpace(strings.TrimPrefix(s, fields[0]))
	case OpFrame:
		if len(args) != 1 {
			return Command{}, false, fmt.Errorf("frame takes exactly one name")
		}
		cmd.Text = args[0]
	case OpDraw:
		cmd.Scale = 1
		if len(args) > 1 {
			return Command{}, false, fmt.Errorf("draw takes at most one scale")
		}
		if len(args) == 1 {
			if cmd.Scale, err = strconv.ParseFloat(args[0], 64); err != nil {
				return Command{}, false, fmt.Errorf("draw: invalid scale %q", args[0])
			}
		}
	default:
		return Command{}, false, fmt.Errorf("unknown command %q", fields[0])
	}
	return cmd, true, nil
}

func parsePos(args []string) (geom.XY, error) {
	if len(args) != 2 {
		return geom.XY{}, fmt.Errorf("expected x y")
	}
	x, err := strconv.ParseFloat(args[0], 64)
	if err != nil {
		return geom.XY{}, fmt.Errorf("invalid x %q", args[0])
	}
	y, err := strconv.ParseFloat(args[1], 64)
	if err != nil {
		return geom.XY{}, fmt.Errorf("invalid y %q", args[1])
	}
	return geom.XY{X: x, Y: y}, nil
}
