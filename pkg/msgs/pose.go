package msgs

import (
	"math"
	"time"
)

// PoseWithCovarianceStampedType is the ROS type name of the published pose.
const PoseWithCovarianceStampedType = "geometry_msgs/PoseWithCovarianceStamped"

// Time is a ROS timestamp
type Time struct {
	Sec     int64  `json:"sec"`
	Nanosec uint32 `json:"nanosec"`
}

// NewTime converts a wall-clock time into a ROS timestamp.
func NewTime(t time.Time) Time {
	return Time{
		Sec:     t.Unix(),
		Nanosec: uint32(t.Nanosecond()),
	}
}

// Time converts the stamp back to a time.Time in UTC.
func (t Time) Time() time.Time {
	return time.Unix(t.Sec, int64(t.Nanosec)).UTC()
}

// Header carries the frame and timestamp of a stamped message
type Header struct {
	Stamp   Time   `json:"stamp"`
	FrameID string `json:"frame_id"`
}

// Point is a position in 3D space
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Quaternion is an orientation in 3D space
type Quaternion struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
	W float64 `json:"w"`
}

// QuaternionFromYaw returns the unit quaternion for a rotation of yaw radians
// about the vertical axis.
func QuaternionFromYaw(yaw float64) Quaternion {
	half := yaw / 2
	return Quaternion{Z: math.Sin(half), W: math.Cos(half)}
}

// Yaw extracts the rotation about the vertical axis in radians.
func (q Quaternion) Yaw() float64 {
	siny := 2.0 * (q.W*q.Z + q.X*q.Y)
	cosy := 1.0 - 2.0*(q.Y*q.Y+q.Z*q.Z)
	return math.Atan2(siny, cosy)
}

// Pose is a position and orientation
type Pose struct {
	Position    Point      `json:"position"`
	Orientation Quaternion `json:"orientation"`
}

// PoseWithCovariance is a pose with its 6x6 row-major covariance
type PoseWithCovariance struct {
	Pose       Pose        `json:"pose"`
	Covariance [36]float64 `json:"covariance"`
}

// PoseWithCovarianceStamped is the message handed to the messaging bus.
type PoseWithCovarianceStamped struct {
	Header Header             `json:"header"`
	Pose   PoseWithCovariance `json:"pose"`
}

// NewPlanarPose builds a stamped pose on the ground plane (z = 0) facing yaw.
func NewPlanarPose(frameID string, stamp time.Time, x, y, yaw float64) *PoseWithCovarianceStamped {
	return &PoseWithCovarianceStamped{
		Header: Header{
			Stamp:   NewTime(stamp),
			FrameID: frameID,
		},
		Pose: PoseWithCovariance{
			Pose: Pose{
				Position:    Point{X: x, Y: y, Z: 0},
				Orientation: QuaternionFromYaw(yaw),
			},
		},
	}
}
