package dispatcher

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// ErrQueueFull is returned by buffered, non-blocking handlers when their queue
// has no room left. The event is dropped.
var ErrQueueFull = errors.New("queue full")

// ErrUnknownTopic is returned when no handler is registered for the topic.
var ErrUnknownTopic = errors.New("unknown topic")

// Event is an outbound message addressed to a topic.
type Event struct {
	Topic     string
	Payload   any
	Timestamp time.Time
}

// HandlerFunc processes an event and returns a result.
type HandlerFunc func(Event) (any, error)

// Logger interface for pluggable logging.
type Logger interface {
	Debug(msg string, keysAndValues ...any)
	Info(msg string, keysAndValues ...any)
	Error(msg string, keysAndValues ...any)
}

// Option configures handler registration.
type Option func(*config)

type config struct {
	bufferSize int
	blocking   bool
	logged     bool
}

// Buffered makes the handler async with a queue of the given size.
func Buffered(size int) Option {
	return func(c *config) {
		c.bufferSize = size
	}
}

// Blocking makes a buffered handler block when the queue is full instead of dropping.
func Blocking() Option {
	return func(c *config) {
		c.blocking = true
	}
}

// Logged adds debug logging to the handler.
func Logged() Option {
	return func(c *config) {
		c.logged = true
	}
}

// route is a registered handler plus the worker queue backing it, if any.
type route struct {
	handler HandlerFunc
	buffer  chan Event
	done    chan struct{}
	stopped chan struct{}
}

// Dispatcher routes events to the handler registered for their topic.
type Dispatcher struct {
	logger Logger

	// OTEL metrics
	queueSize metric.Int64ObservableGauge
	processed metric.Int64Counter
	dropped   metric.Int64Counter
	failed    metric.Int64Counter

	mu     sync.RWMutex
	routes map[string]*route
}

// New creates a new Dispatcher with the given logger.
// Uses the global OTel meter for metrics (no-op if not configured).
func New(logger Logger) (*Dispatcher, error) {
	d := &Dispatcher{
		routes: make(map[string]*route),
		logger: logger,
	}

	m := meter()

	var err error

	d.queueSize, err = m.Int64ObservableGauge(
		"dispatcher.queue.size",
		metric.WithDescription("Current number of events waiting per topic"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating queue size gauge: %w", err)
	}

	_, err = m.RegisterCallback(
		func(ctx context.Context, o metric.Observer) error {
			d.mu.RLock()
			defer d.mu.RUnlock()
			for topic, r := range d.routes {
				if r.buffer == nil {
					continue
				}
				o.ObserveInt64(d.queueSize, int64(len(r.buffer)),
					metric.WithAttributes(attribute.String("topic", topic)))
			}
			return nil
		},
		d.queueSize,
	)
	if err != nil {
		return nil, fmt.Errorf("registering queue callback: %w", err)
	}

	d.processed, err = m.Int64Counter(
		"dispatcher.events.processed",
		metric.WithDescription("Total events processed"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating processed counter: %w", err)
	}

	d.dropped, err = m.Int64Counter(
		"dispatcher.events.dropped",
		metric.WithDescription("Total events dropped due to full queue"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating dropped counter: %w", err)
	}

	d.failed, err = m.Int64Counter(
		"dispatcher.events.failed",
		metric.WithDescription("Total queued events whose handler returned an error"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating failed counter: %w", err)
	}

	return d, nil
}

// Register adds a handler for the given topic with optional configuration.
// A handler already registered for the topic is replaced and its queue drained.
func (d *Dispatcher) Register(topic string, h HandlerFunc, opts ...Option) {
	cfg := &config{}
	for _, opt := range opts {
		opt(cfg)
	}

	d.Unregister(topic)

	r := &route{handler: h}

	if cfg.bufferSize > 0 {
		d.withBuffer(topic, r, cfg.bufferSize, cfg.blocking)
	}

	if cfg.logged {
		r.handler = d.withLogging(topic, r.handler)
	}

	d.mu.Lock()
	d.routes[topic] = r
	d.mu.Unlock()
}

// Unregister removes the handler for topic. Events already queued are
// processed before it returns. Returns false if nothing was registered.
func (d *Dispatcher) Unregister(topic string) bool {
	d.mu.Lock()
	r, ok := d.routes[topic]
	delete(d.routes, topic)
	d.mu.Unlock()

	if !ok {
		return false
	}
	if r.done != nil {
		close(r.done)
		<-r.stopped
	}
	return true
}

// Dispatch routes an event to its registered handler.
func (d *Dispatcher) Dispatch(e Event) (any, error) {
	d.mu.RLock()
	r, ok := d.routes[e.Topic]
	d.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, e.Topic)
	}
	return r.handler(e)
}

// HasHandler returns true if a handler is registered for the topic.
func (d *Dispatcher) HasHandler(topic string) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.routes[topic]
	return ok
}

// Close unregisters every topic.
func (d *Dispatcher) Close() {
	d.mu.RLock()
	topics := make([]string, 0, len(d.routes))
	for topic := range d.routes {
		topics = append(topics, topic)
	}
	d.mu.RUnlock()

	for _, topic := range topics {
		d.Unregister(topic)
	}
}

func (d *Dispatcher) withBuffer(topic string, r *route, size int, blocking bool) {
	h := r.handler
	r.buffer = make(chan Event, size)
	r.done = make(chan struct{})
	r.stopped = make(chan struct{})
	buffer, done, stopped := r.buffer, r.done, r.stopped

	topicAttr := attribute.String("topic", topic)

	go func() {
		defer close(stopped)
		for {
			select {
			case e := <-buffer:
				d.handleQueued(topic, h, e, topicAttr)
			case <-done:
				// drain what was accepted before the topic went away
				for {
					select {
					case e := <-buffer:
						d.handleQueued(topic, h, e, topicAttr)
					default:
						return
					}
				}
			}
		}
	}()

	if blocking {
		r.handler = func(e Event) (any, error) {
			select {
			case buffer <- e:
				return "queued", nil
			case <-done:
				return nil, fmt.Errorf("%w: %s", ErrUnknownTopic, topic)
			}
		}
		return
	}

	r.handler = func(e Event) (any, error) {
		select {
		case buffer <- e:
			return "queued", nil
		default:
			d.dropped.Add(context.Background(), 1, metric.WithAttributes(topicAttr))
			return nil, fmt.Errorf("%w: %s", ErrQueueFull, topic)
		}
	}
}

// handleQueued runs h on the worker goroutine. Nobody waits for the result, so
// errors are logged and counted here.
func (d *Dispatcher) handleQueued(topic string, h HandlerFunc, e Event, topicAttr attribute.KeyValue) {
	if _, err := h(e); err != nil {
		d.failed.Add(context.Background(), 1, metric.WithAttributes(topicAttr))
		d.logger.Error("queued event failed", "topic", topic, "error", err)
	}
	d.processed.Add(context.Background(), 1, metric.WithAttributes(topicAttr))
}

func (d *Dispatcher) withLogging(topic string, h HandlerFunc) HandlerFunc {
	return func(e Event) (any, error) {
		start := time.Now()
		d.logger.Debug("handling event", "topic", topic)

		result, err := h(e)

		if err != nil {
			d.logger.Error("event failed", "topic", topic, "duration", time.Since(start), "error", err)
		} else {
			d.logger.Debug("event complete", "topic", topic, "duration", time.Since(start))
		}

		return result, err
	}
}
