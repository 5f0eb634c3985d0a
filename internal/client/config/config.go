package config

import "time"

// Sync backends.
const (
	BackendGRPC   = "grpc"
	BackendRedis  = "redis"
	BackendMemory = "memory"
)

// Config holds runtime settings for the GophFocus client.
//
// DeviceID may be left empty; the client then generates one and keeps it
// in local metadata. An empty MQTTBroker disables change notifications.
type Config struct {
	ServerEndpointAddr string
	SyncBackend        string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	RedisPrefix   string

	MQTTBroker string
	MQTTPrefix string

	DatabasePath    string
	DeviceID        string
	EmergencyBudget int
	LogLevel        string
	RemoteTimeout   time.Duration
	RefreshInterval time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerEndpointAddr = "127.0.0.1:50051"
	c.SyncBackend = BackendGRPC
	c.RedisAddr = "127.0.0.1:6379"
	c.RedisPrefix = "gophfocus"
	c.MQTTPrefix = "gophfocus"
	c.DatabasePath = "gophfocus.db"
	c.EmergencyBudget = 3
	c.LogLevel = "info"
	c.RemoteTimeout = 5 * time.Second
	c.RefreshInterval = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
