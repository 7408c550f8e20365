package history

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/mapviz-go/posepublisher/internal/config"
	"github.com/mapviz-go/posepublisher/internal/database"
	"github.com/mapviz-go/posepublisher/internal/influx"
)

// Dependencies carries what the database-backed histories need.
type Dependencies struct {
	Logger      zerolog.Logger
	DB          config.DBConfig
	Influx      config.InfluxConfig
	BackupPath  string // influx line-protocol fallback file
	ServiceName string
}

// NewBackend creates a history backend based on configuration.
// Type "none" returns a nil backend.
func NewBackend(cfg config.HistoryConfig, deps Dependencies) (Backend, error) {
	switch cfg.Type {
	case "none", "":
		return nil, nil
	case "memory":
		return NewMemory(cfg.Memory.Capacity), nil
	case "sqlite":
		path := cfg.SQLite.Path
		return NewGorm(database.NewManager(deps.Logger), func(m *database.Manager) error {
			return m.ConnectSqlite(path)
		}, deps.ServiceName), nil
	case "postgres":
		dbCfg, fallback := deps.DB, cfg.SQLite.Path
		return NewGorm(database.NewManager(deps.Logger), func(m *database.Manager) error {
			return m.Connect(dbCfg, fallback)
		}, deps.ServiceName), nil
	case "influx":
		return NewInflux(influx.NewManager(deps.Logger, deps.Influx, deps.BackupPath)), nil
	default:
		return nil, fmt.Errorf("unknown history type: %s", cfg.Type)
	}
}
