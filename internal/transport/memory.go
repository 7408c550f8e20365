package transport

import (
	"fmt"
	"sync"

	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

// MemoryBus keeps every published pose in memory. Used for dry runs and tests.
type MemoryBus struct {
	mu         sync.Mutex
	published  map[string][]msgs.PoseWithCovarianceStamped
	advertised map[string]int
}

// NewMemoryBus creates an empty in-memory bus.
func NewMemoryBus() *MemoryBus {
	return &MemoryBus{
		published:  make(map[string][]msgs.PoseWithCovarianceStamped),
		advertised: make(map[string]int),
	}
}

// Advertise implements Bus.
func (b *MemoryBus) Advertise(topic string, queueDepth int) (Publisher, error) {
	if topic == "" {
		return nil, fmt.Errorf("advertise: empty topic")
	}
	b.mu.Lock()
	b.advertised[topic] = queueDepth
	b.mu.Unlock()
	return &memoryPublisher{bus: b, topic: topic}, nil
}

// Close implements Bus.
func (b *MemoryBus) Close() error {
	return nil
}

// Published returns a copy of the poses sent on topic, oldest first.
func (b *MemoryBus) Published(topic string) []msgs.PoseWithCovarianceStamped {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]msgs.PoseWithCovarianceStamped(nil), b.published[topic]...)
}

// QueueDepth returns the depth topic is currently advertised with, false if it is not.
func (b *MemoryBus) QueueDepth(topic string) (int, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	d, ok := b.advertised[topic]
	return d, ok
}

type memoryPublisher struct {
	bus   *MemoryBus
	topic string

	mu   sync.Mutex
	shut bool
}

func (p *memoryPublisher) Topic() string {
	return p.topic
}

func (p *memoryPublisher) Publish(pose *msgs.PoseWithCovarianceStamped) error {
	p.mu.Lock()
	shut := p.shut
	p.mu.Unlock()
	if shut {
		return fmt.Errorf("%w: %s", ErrShutdown, p.topic)
	}

	p.bus.mu.Lock()
	defer p.bus.mu.Unlock()
	p.bus.published[p.topic] = append(p.bus.published[p.topic], *pose)
	return nil
}

func (p *memoryPublisher) Shutdown() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.shut {
		return nil
	}
	p.shut = true

	p.bus.mu.Lock()
	delete(p.bus.advertised, p.topic)
	p.bus.mu.Unlock()
	return nil
}
