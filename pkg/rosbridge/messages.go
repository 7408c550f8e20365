// Package rosbridge holds the JSON operations of the rosbridge v2 protocol
// used to talk to a ROS graph over a websocket.
package rosbridge

import (
	"encoding/json"
)

// Operation names used by the protocol.
const (
	OpAdvertise   = "advertise"
	OpUnadvertise = "unadvertise"
	OpPublish     = "publish"
	OpSubscribe   = "subscribe"
	OpUnsubscribe = "unsubscribe"
	OpStatus      = "status"
)

// TypeTFMessage is the ROS type carried on /tf and /tf_static.
const TypeTFMessage = "tf2_msgs/TFMessage"

// Message is the common envelope of every operation. Unused fields are omitted.
type Message struct {
	Op         string          `json:"op"`
	ID         string          `json:"id,omitempty"`
	Topic      string          `json:"topic,omitempty"`
	Type       string          `json:"type,omitempty"`
	QueueSize  int             `json:"queue_size,omitempty"`
	Msg        json.RawMessage `json:"msg,omitempty"`
	Level      string          `json:"level,omitempty"`
	StatusText string          `json:"msg_text,omitempty"`
}

// Advertise announces that this client will publish msgType on topic.
func Advertise(topic, msgType string, queueSize int) ([]byte, error) {
	return json.Marshal(Message{Op: OpAdvertise, ID: "advertise:" + topic, Topic: topic, Type: msgType, QueueSize: queueSize})
}

// Unadvertise withdraws a previous advertisement.
func Unadvertise(topic string) ([]byte, error) {
	return json.Marshal(Message{Op: OpUnadvertise, ID: "advertise:" + topic, Topic: topic})
}

// Publish wraps a message payload for topic.
func Publish(topic string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Op: OpPublish, Topic: topic, Msg: raw})
}

// Subscribe requests messages of msgType on topic.
func Subscribe(topic, msgType string) ([]byte, error) {
	return json.Marshal(Message{Op: OpSubscribe, ID: "subscribe:" + topic, Topic: topic, Type: msgType})
}

// TFMessage is the subset of tf2_msgs/TFMessage needed to learn frame names.
type TFMessage struct {
	Transforms []struct {
		Header struct {
			FrameID string `json:"frame_id"`
		} `json:"header"`
		ChildFrameID string `json:"child_frame_id"`
	} `json:"transforms"`
}

// FrameIDs returns every parent and child frame named in the message, in order
// of appearance and without duplicates.
func (m TFMessage) FrameIDs() []string {
	seen := make(map[string]bool)
	var ids []string
	add := func(id string) {
		if id == "" || seen[id] {
			return
		}
		seen[id] = true
		ids = append(ids, id)
	}
	for _, tf := range m.Transforms {
		add(tf.Header.FrameID)
		add(tf.ChildFrameID)
	}
	return ids
}
