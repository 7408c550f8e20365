package history

import (
	"time"

	"github.com/mapviz-go/posepublisher/internal/queue"
	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

// Memory keeps the most recent poses in a bounded ring.
type Memory struct {
	ring *queue.Ring[Record]
	now  func() time.Time
}

// NewMemory creates a memory backend holding at most capacity poses.
func NewMemory(capacity int) *Memory {
	return &Memory{
		ring: queue.New[Record](capacity),
		now:  time.Now,
	}
}

func (m *Memory) Init() error  { return nil }
func (m *Memory) Close() error { return nil }

// RecordPose stores a copy of pose, evicting the oldest record when full.
func (m *Memory) RecordPose(topic string, pose *msgs.PoseWithCovarianceStamped) error {
	m.ring.Push(Record{Topic: topic, RecordedAt: m.now(), Pose: *pose})
	return nil
}

// Recent implements Queryable.
func (m *Memory) Recent(limit int) ([]Record, error) {
	return m.ring.Last(limit), nil
}
