package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&PublisherInfo{},
	&PoseRecord{},
}

// PublisherInfo identifies the instance writing to a shared database
type PublisherInfo struct {
	gorm.Model
	Hostname    string `json:"hostname" gorm:"size:127"`
	ServiceName string `json:"serviceName" gorm:"size:127"`
}

func (*PublisherInfo) TableName() string {
	return "publisher_infos"
}

// PoseRecord is one pose handed to the bus by the picker
type PoseRecord struct {
	ID         uint      `json:"id" gorm:"primarykey;autoIncrement;"`
	RecordedAt time.Time `json:"recordedAt" gorm:"index:idx_pose_recorded_at"` // wall clock when the pose was recorded
	Topic      string    `json:"topic" gorm:"size:255;index:idx_pose_topic"`
	FrameID    string    `json:"frameId" gorm:"size:255"`
	Stamp      time.Time `json:"stamp"` // header stamp

	Position   geom.Point     `json:"position"` // x/y in the output frame
	Z          float64        `json:"z"`
	Yaw        float64        `json:"yaw"` // radians about +Z
	QX         float64        `json:"qx"`
	QY         float64        `json:"qy"`
	QZ         float64        `json:"qz"`
	QW         float64        `json:"qw"`
	Covariance datatypes.JSON `json:"covariance"` // 36 row-major values
}

func (*PoseRecord) TableName() string {
	return "pose_records"
}
