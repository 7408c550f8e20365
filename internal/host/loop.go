// Package host runs plugins without a display: a single event goroutine, a
// canvas that records what is drawn, and a line-oriented script driver.
package host

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/mapviz-go/posepublisher/pkg/plugin"
)

// ErrStopped is returned when posting to a loop that is not running.
var ErrStopped = errors.New("loop stopped")

// Loop serialises everything that touches a plugin onto one goroutine: posted
// actions and the two periodic ticks.
type Loop struct {
	plugin      plugin.Plugin
	statusEvery time.Duration
	frameEvery  time.Duration
	log         *slog.Logger

	posts chan func()

	mu      sync.RWMutex
	running bool
	stopped chan struct{}
}

// NewLoop creates a loop driving p. A zero interval disables that tick.
func NewLoop(p plugin.Plugin, statusEvery, frameEvery time.Duration, log *slog.Logger) *Loop {
	if log == nil {
		log = slog.Default()
	}
	return &Loop{
		plugin:      p,
		statusEvery: statusEvery,
		frameEvery:  frameEvery,
		log:         log,
		posts:       make(chan func(), 64),
		stopped:     make(chan struct{}),
	}
}

// IsRunning returns whether Run is active
func (l *Loop) IsRunning() bool {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.running
}

// Post queues fn to run on the loop goroutine.
func (l *Loop) Post(ctx context.Context, fn func()) error {
	select {
	case l.posts <- fn:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Do runs fn on the loop goroutine and waits for it to return.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	done := make(chan struct{})
	if err := l.Post(ctx, func() {
		defer close(done)
		fn()
	}); err != nil {
		return err
	}
	select {
	case <-done:
		return nil
	case <-l.stopped:
		return ErrStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run processes posts and ticks until ctx is cancelled. Posts still queued
// when ctx ends are dropped.
func (l *Loop) Run(ctx context.Context) error {
	l.mu.Lock()
	if l.running {
		l.mu.Unlock()
		return errors.New("loop already running")
	}
	select {
	case <-l.stopped:
		l.mu.Unlock()
		return ErrStopped
	default:
	}
	l.running = true
	l.mu.Unlock()

	defer func() {
		l.mu.Lock()
		l.running = false
		close(l.stopped)
		l.mu.Unlock()
	}()

	statusC, stopStatus := ticker(l.statusEvery)
	defer stopStatus()
	frameC, stopFrame := ticker(l.frameEvery)
	defer stopFrame()

	l.log.Debug("host loop started", "statusEvery", l.statusEvery, "frameEvery", l.frameEvery)
	for {
		select {
		case <-ctx.Done():
			l.log.Debug("host loop stopped")
			return nil
		case fn := <-l.posts:
			fn()
		case <-statusC:
			l.plugin.TimerTick()
		case <-frameC:
			l.plugin.FrameRefreshTick()
		}
	}
}

// ticker returns a nil channel, which never fires, when d is not positive.
func ticker(d time.Duration) (<-chan time.Time, func()) {
	if d <= 0 {
		return nil, func() {}
	}
	t := time.NewTicker(d)
	return t.C, t.Stop
}
