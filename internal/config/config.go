package config

import (
	"fmt"
	"time"

	"github.com/spf13/viper"
)

// FileName is the configuration file looked up in the config directory.
const FileName = "posepublisher.cfg.json"

// PickerConfig holds the pose picker settings
type PickerConfig struct {
	Topic          string        `json:"topic" mapstructure:"topic"`
	OutputFrame    string        `json:"outputFrame" mapstructure:"outputFrame"`
	QueueDepth     int           `json:"queueDepth" mapstructure:"queueDepth"`
	StatusInterval time.Duration `json:"statusInterval" mapstructure:"statusInterval"`
	FrameInterval  time.Duration `json:"frameInterval" mapstructure:"frameInterval"`
}

// RosbridgeConfig holds the rosbridge websocket bus settings
type RosbridgeConfig struct {
	URL         string `json:"url" mapstructure:"url"`
	SubscribeTF bool   `json:"subscribeTF" mapstructure:"subscribeTF"`
}

// OriginConfig is the geodetic anchor of the local XY frame
type OriginConfig struct {
	Enabled   bool    `json:"enabled" mapstructure:"enabled"`
	Latitude  float64 `json:"latitude" mapstructure:"latitude"`
	Longitude float64 `json:"longitude" mapstructure:"longitude"`
}

// FramesConfig holds the frame registry settings
type FramesConfig struct {
	Known         []string     `json:"known" mapstructure:"known"`
	LocalXYOrigin OriginConfig `json:"localXYOrigin" mapstructure:"localXYOrigin"`
}

// MemoryConfig holds in-memory history backend settings
type MemoryConfig struct {
	Capacity int `json:"capacity" mapstructure:"capacity"`
}

// SQLiteConfig holds SQLite history backend settings
type SQLiteConfig struct {
	Path string `json:"path" mapstructure:"path"`
}

// HistoryConfig holds published-pose history settings
type HistoryConfig struct {
	Type   string       `json:"type" mapstructure:"type"`
	Memory MemoryConfig `json:"memory" mapstructure:"memory"`
	SQLite SQLiteConfig `json:"sqlite" mapstructure:"sqlite"`
}

// DBConfig holds Postgres connection settings
type DBConfig struct {
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Username string `json:"username" mapstructure:"username"`
	Password string `json:"password" mapstructure:"password"`
	Database string `json:"database" mapstructure:"database"`
}

// InfluxConfig holds InfluxDB settings
type InfluxConfig struct {
	Enabled  bool   `json:"enabled" mapstructure:"enabled"`
	Host     string `json:"host" mapstructure:"host"`
	Port     string `json:"port" mapstructure:"port"`
	Protocol string `json:"protocol" mapstructure:"protocol"`
	Token    string `json:"token" mapstructure:"token"`
	Org      string `json:"org" mapstructure:"org"`
	Bucket   string `json:"bucket" mapstructure:"bucket"`
}

// GraylogConfig holds GELF shipping settings
type GraylogConfig struct {
	Enabled bool   `json:"enabled" mapstructure:"enabled"`
	Address string `json:"address" mapstructure:"address"`
}

// OTelConfig holds OpenTelemetry settings
type OTelConfig struct {
	Enabled      bool          `json:"enabled" mapstructure:"enabled"`
	ServiceName  string        `json:"serviceName" mapstructure:"serviceName"`
	BatchTimeout time.Duration `json:"batchTimeout" mapstructure:"batchTimeout"`
	Endpoint     string        `json:"endpoint" mapstructure:"endpoint"`
	Insecure     bool          `json:"insecure" mapstructure:"insecure"`
}

// SetDefaults registers the default value of every key.
func SetDefaults() {
	viper.SetDefault("logLevel", "info")
	viper.SetDefault("logsDir", "./posepublisher-logs")

	viper.SetDefault("picker.topic", "")
	viper.SetDefault("picker.outputFrame", "")
	viper.SetDefault("picker.queueDepth", 1000)
	viper.SetDefault("picker.statusInterval", "1s")
	viper.SetDefault("picker.frameInterval", "1s")

	viper.SetDefault("rosbridge.url", "ws://localhost:9090")
	viper.SetDefault("rosbridge.subscribeTF", true)

	viper.SetDefault("frames.known", []string{"/map", "/far_field"})
	viper.SetDefault("frames.localXYOrigin.enabled", false)
	viper.SetDefault("frames.localXYOrigin.latitude", 0.0)
	viper.SetDefault("frames.localXYOrigin.longitude", 0.0)

	viper.SetDefault("history.type", "memory")
	viper.SetDefault("history.memory.capacity", 256)
	viper.SetDefault("history.sqlite.path", "./poses.db")

	viper.SetDefault("db.host", "localhost")
	viper.SetDefault("db.port", "5432")
	viper.SetDefault("db.username", "postgres")
	viper.SetDefault("db.password", "postgres")
	viper.SetDefault("db.database", "posepublisher")

	viper.SetDefault("influx.enabled", false)
	viper.SetDefault("influx.host", "localhost")
	viper.SetDefault("influx.port", "8086")
	viper.SetDefault("influx.protocol", "http")
	viper.SetDefault("influx.token", "supersecrettoken")
	viper.SetDefault("influx.org", "posepublisher")
	viper.SetDefault("influx.bucket", "poses")

	viper.SetDefault("graylog.enabled", false)
	viper.SetDefault("graylog.address", "localhost:12201")

	viper.SetDefault("otel.enabled", false)
	viper.SetDefault("otel.serviceName", "pose-publisher")
	viper.SetDefault("otel.batchTimeout", "5s")
	viper.SetDefault("otel.endpoint", "")
	viper.SetDefault("otel.insecure", true)
}

// Load reads configuration from JSON file and sets default values.
// configDir is the directory containing the config file.
func Load(configDir string) error {
	SetDefaults()

	viper.SetConfigName(FileName)
	viper.AddConfigPath(configDir)
	viper.SetConfigType("json")

	err := viper.ReadInConfig()
	if err != nil {
		return fmt.Errorf("error reading config file: %w", err)
	}

	return nil
}

// GetString returns a string config value.
func GetString(key string) string {
	return viper.GetString(key)
}

// GetInt returns an int config value.
func GetInt(key string) int {
	return viper.GetInt(key)
}

// GetBool returns a bool config value.
func GetBool(key string) bool {
	return viper.GetBool(key)
}

// GetPickerConfig returns the picker settings.
func GetPickerConfig() PickerConfig {
	return PickerConfig{
		Topic:          viper.GetString("picker.topic"),
		OutputFrame:    viper.GetString("picker.outputFrame"),
		QueueDepth:     viper.GetInt("picker.queueDepth"),
		StatusInterval: viper.GetDuration("picker.statusInterval"),
		FrameInterval:  viper.GetDuration("picker.frameInterval"),
	}
}

// GetRosbridgeConfig returns the rosbridge settings.
func GetRosbridgeConfig() RosbridgeConfig {
	return RosbridgeConfig{
		URL:         viper.GetString("rosbridge.url"),
		SubscribeTF: viper.GetBool("rosbridge.subscribeTF"),
	}
}

// GetFramesConfig returns the frame registry settings.
func GetFramesConfig() FramesConfig {
	return FramesConfig{
		Known: viper.GetStringSlice("frames.known"),
		LocalXYOrigin: OriginConfig{
			Enabled:   viper.GetBool("frames.localXYOrigin.enabled"),
			Latitude:  viper.GetFloat64("frames.localXYOrigin.latitude"),
			Longitude: viper.GetFloat64("frames.localXYOrigin.longitude"),
		},
	}
}

// GetHistoryConfig returns the history backend settings.
func GetHistoryConfig() HistoryConfig {
	return HistoryConfig{
		Type: viper.GetString("history.type"),
		Memory: MemoryConfig{
			Capacity: viper.GetInt("history.memory.capacity"),
		},
		SQLite: SQLiteConfig{
			Path: viper.GetString("history.sqlite.path"),
		},
	}
}

// GetDBConfig returns the Postgres settings.
func GetDBConfig() DBConfig {
	return DBConfig{
		Host:     viper.GetString("db.host"),
		Port:     viper.GetString("db.port"),
		Username: viper.GetString("db.username"),
		Password: viper.GetString("db.password"),
		Database: viper.GetString("db.database"),
	}
}

// GetInfluxConfig returns the InfluxDB settings.
func GetInfluxConfig() InfluxConfig {
	return InfluxConfig{
		Enabled:  viper.GetBool("influx.enabled"),
		Host:     viper.GetString("influx.host"),
		Port:     viper.GetString("influx.port"),
		Protocol: viper.GetString("influx.protocol"),
		Token:    viper.GetString("influx.token"),
		Org:      viper.GetString("influx.org"),
		Bucket:   viper.GetString("influx.bucket"),
	}
}

// GetGraylogConfig returns the Graylog settings.
func GetGraylogConfig() GraylogConfig {
	return GraylogConfig{
		Enabled: viper.GetBool("graylog.enabled"),
		Address: viper.GetString("graylog.address"),
	}
}

// GetOTelConfig returns the OpenTelemetry settings.
func GetOTelConfig() OTelConfig {
	return OTelConfig{
		Enabled:      viper.GetBool("otel.enabled"),
		ServiceName:  viper.GetString("otel.serviceName"),
		BatchTimeout: viper.GetDuration("otel.batchTimeout"),
		Endpoint:     viper.GetString("otel.endpoint"),
		Insecure:     viper.GetBool("otel.insecure"),
	}
}
