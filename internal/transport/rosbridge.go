package transport

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/mapviz-go/posepublisher/internal/dispatcher"
	"github.com/mapviz-go/posepublisher/pkg/msgs"
	"github.com/mapviz-go/posepublisher/pkg/rosbridge"
)

// TF topics watched for frame names.
var tfTopics = []string{"/tf", "/tf_static"}

// RosbridgeConfig holds rosbridge bus configuration.
type RosbridgeConfig struct {
	URL string
	// OnFrames, when set, subscribes to /tf and /tf_static and receives the
	// frame ids named by each transform message.
	OnFrames func(frameIDs []string)
}

// RosbridgeBus publishes over a rosbridge v2 websocket. Each advertised topic
// gets its own dispatcher queue feeding the shared write loop.
type RosbridgeBus struct {
	conn   *connection
	cfg    RosbridgeConfig
	disp   *dispatcher.Dispatcher
	logger *slog.Logger
}

// NewRosbridge creates a bus; call Init to connect.
func NewRosbridge(cfg RosbridgeConfig, disp *dispatcher.Dispatcher, logger *slog.Logger) *RosbridgeBus {
	b := &RosbridgeBus{
		cfg:    cfg,
		disp:   disp,
		logger: logger,
	}
	b.conn = newConnection(logger, b.handleMessage)
	return b
}

// Init connects to the rosbridge server and subscribes to TF if requested.
func (b *RosbridgeBus) Init() error {
	if err := b.conn.dial(b.cfg.URL); err != nil {
		return err
	}
	if b.cfg.OnFrames != nil {
		for _, topic := range tfTopics {
			data, err := rosbridge.Subscribe(topic, rosbridge.TypeTFMessage)
			if err != nil {
				return fmt.Errorf("subscribe %s: %w", topic, err)
			}
			b.conn.remember("subscribe:"+topic, data)
		}
	}
	return nil
}

// Close disconnects from the server and stops every topic queue.
func (b *RosbridgeBus) Close() error {
	b.disp.Close()
	return b.conn.close()
}

// Advertise implements Bus.
func (b *RosbridgeBus) Advertise(topic string, queueDepth int) (Publisher, error) {
	if topic == "" {
		return nil, fmt.Errorf("advertise: empty topic")
	}
	data, err := rosbridge.Advertise(topic, msgs.PoseWithCovarianceStampedType, queueDepth)
	if err != nil {
		return nil, fmt.Errorf("marshal advertise %s: %w", topic, err)
	}

	b.disp.Register(topic, b.publishHandler(topic), dispatcher.Buffered(queueDepth), dispatcher.Logged())
	b.conn.remember("advertise:"+topic, data)

	b.logger.Debug("Advertised topic", "topic", topic, "queueDepth", queueDepth)
	return &rosbridgePublisher{bus: b, topic: topic}, nil
}

// publishHandler runs on the topic's queue worker.
func (b *RosbridgeBus) publishHandler(topic string) dispatcher.HandlerFunc {
	return func(e dispatcher.Event) (any, error) {
		data, err := rosbridge.Publish(topic, e.Payload)
		if err != nil {
			return nil, fmt.Errorf("marshal publish %s: %w", topic, err)
		}
		if !b.conn.send(data) {
			return nil, fmt.Errorf("%w: send channel full", dispatcher.ErrQueueFull)
		}
		return nil, nil
	}
}

func (b *RosbridgeBus) handleMessage(raw []byte) {
	var m rosbridge.Message
	if err := json.Unmarshal(raw, &m); err != nil {
		b.logger.Debug("Unparseable rosbridge message", "raw", string(raw))
		return
	}

	switch m.Op {
	case rosbridge.OpStatus:
		b.logger.Info("Rosbridge status", "level", m.Level, "id", m.ID, "text", m.StatusText)
	case rosbridge.OpPublish:
		if b.cfg.OnFrames == nil || !isTFTopic(m.Topic) {
			return
		}
		var tf rosbridge.TFMessage
		if err := json.Unmarshal(m.Msg, &tf); err != nil {
			b.logger.Debug("Bad TF message", "topic", m.Topic, "error", err)
			return
		}
		if ids := tf.FrameIDs(); len(ids) > 0 {
			b.cfg.OnFrames(ids)
		}
	}
}

func isTFTopic(topic string) bool {
	for _, t := range tfTopics {
		if t == topic {
			return true
		}
	}
	return false
}

type rosbridgePublisher struct {
	bus   *RosbridgeBus
	topic string

	mu   sync.Mutex
	shut bool
}

func (p *rosbridgePublisher) Topic() string {
	return p.topic
}

// Publish queues the pose. Returns dispatcher.ErrQueueFull when the topic's
// queue is full and ErrNotConnected while the socket is down.
func (p *rosbridgePublisher) Publish(pose *msgs.PoseWithCovarianceStamped) error {
	p.mu.Lock()
	shut := p.shut
	p.mu.Unlock()
	if shut {
		return fmt.Errorf("%w: %s", ErrShutdown, p.topic)
	}
	if !p.bus.conn.connected() {
		return fmt.Errorf("%w: %s", ErrNotConnected, p.bus.cfg.URL)
	}

	_, err := p.bus.disp.Dispatch(dispatcher.Event{
		Topic:     p.topic,
		Payload:   pose,
		Timestamp: time.Now(),
	})
	if errors.Is(err, dispatcher.ErrUnknownTopic) {
		return fmt.Errorf("%w: %s", ErrShutdown, p.topic)
	}
	return err
}

// Shutdown unregisters the topic queue and unadvertises.
func (p *rosbridgePublisher) Shutdown() error {
	p.mu.Lock()
	if p.shut {
		p.mu.Unlock()
		return nil
	}
	p.shut = true
	p.mu.Unlock()

	p.bus.disp.Unregister(p.topic)
	p.bus.conn.forget("advertise:" + p.topic)

	data, err := rosbridge.Unadvertise(p.topic)
	if err != nil {
		return fmt.Errorf("marshal unadvertise %s: %w", p.topic, err)
	}
	p.bus.conn.send(data)
	return nil
}
