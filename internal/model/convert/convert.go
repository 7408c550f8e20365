// Package convert maps published poses to and from their GORM models
package convert

import (
	"encoding/json"
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"

	"github.com/mapviz-go/posepublisher/internal/model"
	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

// covarianceToJSON stores the covariance matrix as a JSON array.
func covarianceToJSON(c [36]float64) datatypes.JSON {
	data, _ := json.Marshal(c)
	return datatypes.JSON(data)
}

// PoseToRecord converts a published pose into a PoseRecord.
func PoseToRecord(topic string, p *msgs.PoseWithCovarianceStamped, recordedAt time.Time) model.PoseRecord {
	pos := p.Pose.Pose.Position
	q := p.Pose.Pose.Orientation
	return model.PoseRecord{
		RecordedAt: recordedAt,
		Topic:      topic,
		FrameID:    p.Header.FrameID,
		Stamp:      p.Header.Stamp.Time(),
		Position:   geom.NewPoint(geom.Coordinates{XY: geom.XY{X: pos.X, Y: pos.Y}}),
		Z:          pos.Z,
		Yaw:        q.Yaw(),
		QX:         q.X,
		QY:         q.Y,
		QZ:         q.Z,
		QW:         q.W,
		Covariance: covarianceToJSON(p.Pose.Covariance),
	}
}

// RecordToPose rebuilds the published message from a PoseRecord.
func RecordToPose(r model.PoseRecord) msgs.PoseWithCovarianceStamped {
	var out msgs.PoseWithCovarianceStamped
	out.Header.FrameID = r.FrameID
	out.Header.Stamp = msgs.NewTime(r.Stamp)

	if coord, ok := r.Position.Coordinates(); ok {
		out.Pose.Pose.Position.X = coord.XY.X
		out.Pose.Pose.Position.Y = coord.XY.Y
	}
	out.Pose.Pose.Position.Z = r.Z
	out.Pose.Pose.Orientation = msgs.Quaternion{X: r.QX, Y: r.QY, Z: r.QZ, W: r.QW}

	if len(r.Covariance) > 0 {
		_ = json.Unmarshal(r.Covariance, &out.Pose.Covariance)
	}
	return out
}
