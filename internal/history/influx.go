package history

import (
	"context"

	"github.com/mapviz-go/posepublisher/internal/influx"
	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

// Influx writes one point per pose, falling back to a gzip line-protocol file
// while the server is unreachable.
type Influx struct {
	m *influx.Manager
}

// NewInflux wraps an influx manager.
func NewInflux(m *influx.Manager) *Influx {
	return &Influx{m: m}
}

func (b *Influx) Init() error {
	return b.m.Connect(context.Background())
}

func (b *Influx) Close() error {
	return b.m.Close()
}

func (b *Influx) RecordPose(topic string, pose *msgs.PoseWithCovarianceStamped) error {
	return b.m.WritePoint(influx.PosePoint(topic, pose))
}
