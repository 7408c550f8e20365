package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/spf13/viper"
	"github.com/urfave/cli/v2"

	"github.com/mapviz-go/posepublisher/internal/config"
	"github.com/mapviz-go/posepublisher/internal/dispatcher"
	"github.com/mapviz-go/posepublisher/internal/frames"
	"github.com/mapviz-go/posepublisher/internal/history"
	"github.com/mapviz-go/posepublisher/internal/logging"
	intOtel "github.com/mapviz-go/posepublisher/internal/otel"
	"github.com/mapviz-go/posepublisher/internal/transport"
)

const logName = "posepublisher"

// env is everything a command needs after configuration and logging are up.
type env struct {
	Logger   *slog.Logger
	Zerolog  zerolog.Logger
	Logs     *logging.SlogManager
	OTel     *intOtel.Provider
	Frames   *frames.Registry
	Start    time.Time
	LogLevel string

	closers []io.Closer
}

// setup loads configuration and initializes logging and telemetry.
func setup(c *cli.Context) (*env, error) {
	e := &env{Start: time.Now(), Logs: logging.NewSlogManager()}

	configErr := config.Load(c.String(flagConfig))
	if c.Bool(flagDebug) {
		viper.Set("logLevel", "debug")
	}
	e.LogLevel = config.GetString("logLevel")

	logFile, err := logging.OpenLogFile(config.GetString("logsDir"), logName, e.Start)
	if err != nil {
		return nil, err
	}
	e.closers = append(e.closers, logFile)

	otelCfg := config.GetOTelConfig()
	e.OTel, err = intOtel.New(c.Context, intOtel.Config{
		Enabled:      otelCfg.Enabled,
		ServiceName:  otelCfg.ServiceName,
		BatchTimeout: otelCfg.BatchTimeout,
		LogWriter:    logFile,
		Endpoint:     otelCfg.Endpoint,
		Insecure:     otelCfg.Insecure,
	})
	if err != nil {
		e.Close()
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	var extra []slog.Handler
	if gl := config.GetGraylogConfig(); gl.Enabled {
		w, err := logging.NewGraylogWriter(gl.Address)
		if err != nil {
			e.Close()
			return nil, err
		}
		e.closers = append(e.closers, w)
		extra = append(extra, logging.NewGELFHandler(w, e.LogLevel))
	}

	e.Logs.Setup(logFile, e.LogLevel, e.OTel.LoggerProvider(), extra...)
	session := e.Start.UTC().Format(time.RFC3339)
	e.Logs.WithContext(func() []slog.Attr {
		return []slog.Attr{slog.String("session", session)}
	})
	e.Logger = e.Logs.Logger()
	e.Zerolog = logging.NewZerolog(logFile, e.LogLevel, false)

	if configErr != nil {
		e.Logger.Warn("Failed to load config, using defaults!", "error", configErr)
	} else {
		e.Logger.Info("Loaded config", "file", viper.ConfigFileUsed())
	}

	e.Frames = frames.FromConfig(config.GetFramesConfig())
	return e, nil
}

// Close flushes telemetry and closes the log outputs.
func (e *env) Close() {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if e.OTel != nil {
		if err := e.Logs.Flush(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "flush logs:", err)
		}
		if err := e.OTel.Shutdown(ctx); err != nil {
			fmt.Fprintln(os.Stderr, "shutdown telemetry:", err)
		}
	}
	for i := len(e.closers) - 1; i >= 0; i-- {
		_ = e.closers[i].Close()
	}
}

// newHistory creates and initializes the configured history backend, nil when
// history is disabled.
func (e *env) newHistory() (history.Backend, error) {
	backend, err := history.NewBackend(config.GetHistoryConfig(), history.Dependencies{
		Logger:      e.Zerolog,
		DB:          config.GetDBConfig(),
		Influx:      config.GetInfluxConfig(),
		BackupPath:  filepath.Join(config.GetString("logsDir"), "poses.lp.gz"),
		ServiceName: config.GetOTelConfig().ServiceName,
	})
	if err != nil || backend == nil {
		return nil, err
	}
	if err := backend.Init(); err != nil {
		return nil, fmt.Errorf("init %s history: %w", config.GetHistoryConfig().Type, err)
	}
	e.Logger.Info("History backend initialized", "type", config.GetHistoryConfig().Type)
	return backend, nil
}

// newBus connects to rosbridge, or returns an in-memory bus on a dry run. The
// history backend, when set, records every published pose.
func (e *env) newBus(dryRun bool, backend history.Backend) (transport.Bus, error) {
	var bus transport.Bus
	if dryRun {
		e.Logger.Info("Dry run, publishing to memory")
		bus = transport.NewMemoryBus()
	} else {
		disp, err := dispatcher.New(logging.NewDispatcherLogger(e.Zerolog))
		if err != nil {
			return nil, fmt.Errorf("create dispatcher: %w", err)
		}
		rb := config.GetRosbridgeConfig()
		cfg := transport.RosbridgeConfig{URL: rb.URL}
		if rb.SubscribeTF {
			cfg.OnFrames = e.Frames.Observe
		}
		ros := transport.NewRosbridge(cfg, disp, e.Logger)
		if err := ros.Init(); err != nil {
			disp.Close()
			return nil, fmt.Errorf("connect to rosbridge at %s: %w", rb.URL, err)
		}
		bus = ros
	}

	if backend != nil {
		bus = transport.WithHistory(bus, backend, e.Logger)
	}
	return bus, nil
}
