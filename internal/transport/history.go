package transport

import (
	"log/slog"

	"github.com/mapviz-go/posepublisher/internal/history"
	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

// WithHistory tees every successfully published pose into backend.
// History failures are logged and never fail the publish.
func WithHistory(bus Bus, backend history.Backend, logger *slog.Logger) Bus {
	return &historyBus{Bus: bus, backend: backend, logger: logger}
}

type historyBus struct {
	Bus
	backend history.Backend
	logger  *slog.Logger
}

func (b *historyBus) Advertise(topic string, queueDepth int) (Publisher, error) {
	pub, err := b.Bus.Advertise(topic, queueDepth)
	if err != nil {
		return nil, err
	}
	return &historyPublisher{Publisher: pub, bus: b}, nil
}

type historyPublisher struct {
	Publisher
	bus *historyBus
}

func (p *historyPublisher) Publish(pose *msgs.PoseWithCovarianceStamped) error {
	if err := p.Publisher.Publish(pose); err != nil {
		return err
	}
	if err := p.bus.backend.RecordPose(p.Topic(), pose); err != nil {
		p.bus.logger.Warn("Failed to record pose", "topic", p.Topic(), "error", err)
	}
	return nil
}
