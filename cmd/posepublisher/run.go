package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/mapviz-go/posepublisher/internal/config"
	"github.com/mapviz-go/posepublisher/internal/host"
	"github.com/mapviz-go/posepublisher/internal/monitor"
	"github.com/mapviz-go/posepublisher/internal/picker"
	"github.com/mapviz-go/posepublisher/pkg/plugin"
)

// RunAction wires the picker to the configured bus and drives it from a
// script until the script ends or the process is interrupted.
func RunAction(c *cli.Context) error {
	e, err := setup(c)
	if err != nil {
		return err
	}
	defer e.Close()

	ctx, stop := signal.NotifyContext(c.Context, os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	pc := config.GetPickerConfig()
	reg := plugin.NewRegistry()
	picker.Register(reg, picker.Deps{
		Bus:        bus,
		Frames:     e.Frames,
		Logger:     e.Logger,
		QueueDepth: pc.QueueDepth,
	})
	factory, ok := reg.Lookup(picker.PluginName)
	if !ok {
		return fmt.Errorf("plugin %s not registered", picker.PluginName)
	}
	p := factory().(*picker.Picker)

	canvas := host.NewHeadlessCanvas(1, geom.XY{})
	if !p.Initialize(canvas) {
		return fmt.Errorf("plugin %s failed to initialize", picker.PluginName)
	}
	defer p.Close()

	node := plugin.MapNode{}
	if pc.Topic != "" {
		node[picker.KeyTopic] = pc.Topic
	}
	if pc.OutputFrame != "" {
		node[picker.KeyOutputFrame] = pc.OutputFrame
	}
	p.LoadConfig(node, c.String(flagConfig))

	loop := host.NewLoop(p, pc.StatusInterval, pc.FrameInterval, e.Logger)

	mon := monitor.NewService(monitor.Dependencies{
		Snapshot: func() (monitor.Snapshot, error) { return snapshot(ctx, loop, p) },
		Logger:   e.Logger,
		Path:     filepath.Join(config.GetString("logsDir"), "status.json"),
		Interval: pc.StatusInterval,
	})

	script, err := openScript(c.String(flagScript))
	if err != nil {
		return err
	}
	defer script.Close()
	cmds, err := host.ParseScript(script)
	if err != nil {
		return err
	}

	loopCtx, cancelLoop := context.WithCancel(ctx)
	defer cancelLoop()
	loopErr := make(chan error, 1)
	go func() { loopErr <- loop.Run(loopCtx) }()

	if err := mon.Start(); err != nil {
		return err
	}
	defer mon.Stop()

	runner := &host.Runner{
		Picker: p,
		Canvas: canvas,
		Out:    c.App.Writer,
		Save:   saveConfigTo(c.String(flagConfig)),
	}
	e.Logger.Info("Running script", "commands", len(cmds))
	runErr := runner.RunScript(ctx, loop, cmds)

	mon.Stop()
	cancelLoop()
	if err := <-loopErr; err != nil {
		return err
	}
	if runErr != nil && ctx.Err() == nil {
		return runErr
	}
	return nil
}

func openScript(path string) (io.ReadCloser, error) {
	if path == "" || path == "-" {
		return io.NopCloser(os.Stdin), nil
	}
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open script: %w", err)
	}
	return f, nil
}

func snapshot(ctx context.Context, loop *host.Loop, p *picker.Picker) (monitor.Snapshot, error) {
	var snap monitor.Snapshot
	err := loop.Do(ctx, func() {
		st := p.Panel().Status
		snap = monitor.Snapshot{
			Time:        time.Now().UTC(),
			Armed:       p.Armed(),
			Dragging:    p.Dragging(),
			Topic:       p.Topic(),
			OutputFrame: p.OutputFrame(),
			Frames:      p.Panel().Frames.Items(),
			Level:       st.Level.String(),
			Status:      st.Text,
		}
	})
	return snap, err
}

// saveConfigTo writes the picker node back into the configuration file in dir.
func saveConfigTo(dir string) func(plugin.MapNode) error {
	return func(node plugin.MapNode) error {
		viper.Set("picker.topic", node[picker.KeyTopic])
		viper.Set("picker.outputFrame", node[picker.KeyOutputFrame])
		if viper.ConfigFileUsed() == "" {
			return viper.WriteConfigAs(filepath.Join(dir, config.FileName))
		}
		return viper.WriteConfig()
	}
}
