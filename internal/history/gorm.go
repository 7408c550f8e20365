package history

import (
	"fmt"
	"time"

	"gorm.io/gorm/clause"

	"github.com/mapviz-go/posepublisher/internal/database"
	"github.com/mapviz-go/posepublisher/internal/model"
	"github.com/mapviz-go/posepublisher/internal/model/convert"
	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

// Connector opens the database behind a Gorm backend.
type Connector func(m *database.Manager) error

// Gorm stores poses in SQLite or Postgres through a database.Manager.
type Gorm struct {
	db          *database.Manager
	connect     Connector
	serviceName string
	now         func() time.Time
}

// NewGorm creates a backend that opens its database with connect on Init.
func NewGorm(db *database.Manager, connect Connector, serviceName string) *Gorm {
	return &Gorm{
		db:          db,
		connect:     connect,
		serviceName: serviceName,
		now:         time.Now,
	}
}

// Init connects and migrates the schema.
func (g *Gorm) Init() error {
	if err := g.connect(g.db); err != nil {
		return err
	}
	return g.db.Setup(g.serviceName)
}

// Close closes the database.
func (g *Gorm) Close() error {
	return g.db.Close()
}

// RecordPose inserts one pose row.
func (g *Gorm) RecordPose(topic string, pose *msgs.PoseWithCovarianceStamped) error {
	if !g.db.IsValid {
		return fmt.Errorf("db not valid, pose on %s not recorded", topic)
	}
	rec := convert.PoseToRecord(topic, pose, g.now())
	if err := g.db.DB.Create(&rec).Error; err != nil {
		return fmt.Errorf("insert pose: %w", err)
	}
	return nil
}

// Recent implements Queryable.
func (g *Gorm) Recent(limit int) ([]Record, error) {
	if !g.db.IsValid {
		return nil, fmt.Errorf("db not valid")
	}
	q := g.db.DB.Order(clause.OrderByColumn{Column: clause.Column{Name: "id"}, Desc: true})
	if limit > 0 {
		q = q.Limit(limit)
	}
	var rows []model.PoseRecord
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("query poses: %w", err)
	}

	out := make([]Record, 0, len(rows))
	for _, r := range rows {
		out = append(out, Record{
			Topic:      r.Topic,
			RecordedAt: r.RecordedAt,
			Pose:       convert.RecordToPose(r),
		})
	}
	return out, nil
}
