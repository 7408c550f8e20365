// Package history records every pose the picker publishes.
package history

import (
	"time"

	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

// Backend is the interface all history implementations must satisfy
type Backend interface {
	Init() error
	Close() error

	RecordPose(topic string, pose *msgs.PoseWithCovarianceStamped) error
}

// Queryable is an optional interface for backends that can list what they stored.
type Queryable interface {
	// Recent returns up to limit records, newest first.
	Recent(limit int) ([]Record, error)
}

// Record is one stored pose.
type Record struct {
	Topic      string
	RecordedAt time.Time
	Pose       msgs.PoseWithCovarianceStamped
}
