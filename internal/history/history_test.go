package history

import (
	"compress/gzip"
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mapviz-go/posepublisher/internal/config"
	"github.com/mapviz-go/posepublisher/internal/database"
	"github.com/mapviz-go/posepublisher/pkg/msgs"
)

func pose(frame string, x, y, yaw float64) *msgs.PoseWithCovarianceStamped {
	return msgs.NewPlanarPose(frame, time.Unix(100, 0), x, y, yaw)
}

func TestMemory_RecentNewestFirst(t *testing.T) {
	m := NewMemory(2)
	require.NoError(t, m.Init())

	require.NoError(t, m.RecordPose("/a", pose("/map", 1, 0, 0)))
	require.NoError(t, m.RecordPose("/b", pose("/map", 2, 0, 0)))
	require.NoError(t, m.RecordPose("/c", pose("/map", 3, 0, 0)))

	recs, err := m.Recent(0)
	require.NoError(t, err)
	require.Len(t, recs, 2)
	assert.Equal(t, "/c", recs[0].Topic)
	assert.Equal(t, "/b", recs[1].Topic)
	assert.Equal(t, 3.0, recs[0].Pose.Pose.Pose.Position.X)

	recs, err = m.Recent(1)
	require.NoError(t, err)
	require.Len(t, recs, 1)
	assert.Equal(t, "/c", recs[0].Topic)
	assert.NoError(t, m.Close())
}

func TestMemory_StoresCopy(t *testing.T) {
	m := NewMemory(4)
	p := pose("/map", 1, 2, 0)
	require.NoError(t, m.RecordPose("/t", p))
	p.Pose.Pose.Position.X = 99

	recs, _ := m.Recent(1)
	assert.Equal(t, 1.0, recs[0].Pose.Pose.Pose.Position.X)
}

func TestGorm_SqliteRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "poses.db")
	g := NewGorm(database.NewManager(zerolog.New(io.Discard)), func(m *database.Manager) error {
		return m.ConnectSqlite(path)
	}, "test")
	fixed := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	g.now = func() time.Time { return fixed }

	require.NoError(t, g.Init())
	t.Cleanup(func() { g.Close() })

	require.NoError(t, g.RecordPose("/initialpose", pose("/map", 1, 2, 0.5)))
	require.NoError(t, g.RecordPose("/goal", pose("/odom", 3, 4, -0.5)))

	recs, err := g.Recent(10)
	require.NoError(t, err)
	require.Len(t, recs, 2)

	assert.Equal(t, "/goal", recs[0].Topic)
	assert.Equal(t, "/odom", recs[0].Pose.Header.FrameID)
	assert.InDelta(t, 3.0, recs[0].Pose.Pose.Pose.Position.X, 1e-9)
	assert.InDelta(t, -0.5, recs[0].Pose.Pose.Pose.Orientation.Yaw(), 1e-9)
	assert.True(t, fixed.Equal(recs[0].RecordedAt))

	assert.Equal(t, "/initialpose", recs[1].Topic)

	recs, err = g.Recent(1)
	require.NoError(t, err)
	assert.Len(t, recs, 1)
}

func TestGorm_NotConnected(t *testing.T) {
	g := NewGorm(database.NewManager(zerolog.New(io.Discard)), func(*database.Manager) error { return nil }, "test")
	assert.Error(t, g.RecordPose("/t", pose("/map", 0, 0, 0)))
	_, err := g.Recent(1)
	assert.Error(t, err)
}

func TestInflux_BackupWhenUnreachable(t *testing.T) {
	backup := filepath.Join(t.TempDir(), "poses.lp.gz")
	b, err := NewBackend(config.HistoryConfig{Type: "influx"}, Dependencies{
		Logger: zerolog.New(io.Discard),
		Influx: config.InfluxConfig{
			Enabled:  true,
			Protocol: "http",
			Host:     "127.0.0.1",
			Port:     "1",
			Org:      "o",
			Bucket:   "b",
		},
		BackupPath: backup,
	})
	require.NoError(t, err)
	require.NoError(t, b.Init())
	require.NoError(t, b.RecordPose("/initialpose", msgs.NewPlanarPose("/map", time.Unix(10, 0), 1, 2, 0)))
	require.NoError(t, b.Close())

	f, err := os.Open(backup)
	require.NoError(t, err)
	defer f.Close()
	zr, err := gzip.NewReader(f)
	require.NoError(t, err)
	data, err := io.ReadAll(zr)
	require.NoError(t, err)
	assert.Equal(t, "pose,frame_id=/map,topic=/initialpose x=1,y=2,yaw=0,z=0 10000000000\n", string(data))
}

func TestNewBackend(t *testing.T) {
	deps := Dependencies{Logger: zerolog.New(io.Discard), ServiceName: "test"}

	b, err := NewBackend(config.HistoryConfig{Type: "none"}, deps)
	require.NoError(t, err)
	assert.Nil(t, b)

	b, err = NewBackend(config.HistoryConfig{Type: "memory", Memory: config.MemoryConfig{Capacity: 3}}, deps)
	require.NoError(t, err)
	assert.IsType(t, &Memory{}, b)

	b, err = NewBackend(config.HistoryConfig{Type: "sqlite"}, deps)
	require.NoError(t, err)
	assert.IsType(t, &Gorm{}, b)
	_, ok := b.(Queryable)
	assert.True(t, ok)

	b, err = NewBackend(config.HistoryConfig{Type: "postgres"}, deps)
	require.NoError(t, err)
	assert.IsType(t, &Gorm{}, b)

	_, err = NewBackend(config.HistoryConfig{Type: "cassandra"}, deps)
	assert.Error(t, err)
}
