// Command posepublisher runs the interactive pose picker headless and offers
// one-shot publishing and inspection of the pose history.
package main

import (
	"fmt"
	"os"

	"github.com/urfave/cli/v2"
)

// BuildDate can be set at build time via ldflags
var (
	Version   = "0.1.0"
	BuildDate = "unknown"
)

const (
	flagConfig = "config"
	flagDebug  = "debug"
	flagScript = "script"
	flagDryRun = "dry-run"
	flagX      = "x"
	flagY      = "y"
	flagXY     = "xy"
	flagLonLat = "lonlat"
	flagYaw    = "yaw"
	flagFrame  = "frame"
	flagTopic  = "topic"
	flagLimit  = "limit"
	flagExport = "export"
)

func newApp() *cli.App {
	return &cli.App{
		Name:            "posepublisher",
		Usage:           "place poses on a map and publish them over rosbridge",
		Version:         fmt.Sprintf("%s (%s)", Version, BuildDate),
		HideHelpCommand: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    flagConfig,
				Aliases: []string{"c"},
				Value:   ".",
				Usage:   "load configuration from `DIR`",
			},
			&cli.BoolFlag{
				Name:  flagDebug,
				Usage: "enable debug logging",
			},
		},
		Commands: []*cli.Command{
			{
				Name:  "run",
				Usage: "run the picker, driven by a script or stdin",
				Flags: []cli.Flag{
					&cli.StringFlag{
						Name:    flagScript,
						Aliases: []string{"s"},
						Usage:   "read commands from `FILE` instead of stdin",
					},
					&cli.BoolFlag{
						Name:  flagDryRun,
						Usage: "publish to an in-memory bus instead of rosbridge",
					},
				},
				Action: RunAction,
			},
			{
				Name:  "publish",
				Usage: "publish a single pose",
				Flags: []cli.Flag{
					&cli.Float64Flag{Name: flagX, Usage: "position x in the output frame"},
					&cli.Float64Flag{Name: flagY, Usage: "position y in the output frame"},
					&cli.StringFlag{Name: flagXY, Usage: "position as `X,Y`, overrides --x and --y"},
					&cli.StringFlag{Name: flagLonLat, Usage: "WGS84 position as `LON,LAT`, converted into the local xy frame"},
					&cli.Float64Flag{Name: flagYaw, Usage: "heading in radians"},
					&cli.StringFlag{Name: flagFrame, Usage: "output frame, defaults to picker.outputFrame"},
					&cli.StringFlag{Name: flagTopic, Usage: "topic, defaults to picker.topic"},
					&cli.BoolFlag{Name: flagDryRun, Usage: "do not connect to rosbridge"},
				},
				Action: PublishAction,
			},
			{
				Name:  "history",
				Usage: "list recently published poses",
				Flags: []cli.Flag{
					&cli.IntFlag{Name: flagLimit, Aliases: []string{"n"}, Value: 20, Usage: "show at most `N` poses"},
					&cli.StringFlag{Name: flagExport, Usage: "also write the poses as JSON to `FILE` (.gz compresses)"},
				},
				Action: HistoryAction,
			},
			{
				Name:   "frames",
				Usage:  "list the frames poses can be published in",
				Action: FramesAction,
			},
		},
	}
}

func main() {
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
