// Package transport binds picker output to a messaging bus.
package transport

import (
	"errors"

	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

var (
	// ErrNotConnected is returned when the bus has no live connection.
	ErrNotConnected = errors.New("bus not connected")
	// ErrShutdown is returned by a publisher after Shutdown.
	ErrShutdown = errors.New("publisher shut down")
)

// Publisher sends poses to one advertised topic.
type Publisher interface {
	Topic() string
	Publish(pose *msgs.PoseWithCovarianceStamped) error
	// Shutdown withdraws the advertisement. Safe to call more than once.
	Shutdown() error
}

// Bus hands out publishers.
type Bus interface {
	// Advertise binds a publisher to topic with an outbound queue of queueDepth
	// messages. When the queue is full further publishes are dropped.
	Advertise(topic string, queueDepth int) (Publisher, error)
	Close() error
}
