package config

import (
	"encoding/json"
	"os"

	"github.com/dmitrijs2005/gophfocus/internal/flagx"
	"github.com/dmitrijs2005/gophfocus/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify intervals either as
// strings like "3s" or as integer nanoseconds.
type JsonConfig struct {
	ServerEndpointAddr string         `json:"server_endpoint_addr"`
	SyncBackend        string         `json:"sync_backend"`
	RedisAddr          string         `json:"redis_addr"`
	RedisPassword      string         `json:"redis_password"`
	RedisDB            int            `json:"redis_db"`
	RedisPrefix        string         `json:"redis_prefix"`
	MQTTBroker         string         `json:"mqtt_broker"`
	MQTTPrefix         string         `json:"mqtt_prefix"`
	DatabasePath       string         `json:"database_path"`
	DeviceID           string         `json:"device_id"`
	EmergencyBudget    int            `json:"emergency_budget"`
	LogLevel           string         `json:"log_level"`
	RemoteTimeout      timex.Duration `json:"remote_timeout"`
	RefreshInterval    timex.Duration `json:"refresh_interval"`
}

// parseJson overlays Config with values loaded from the file named by -c or
// -config. Keys missing from the file keep their current value. Read or
// unmarshal errors panic.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	jc := JsonConfig{
		ServerEndpointAddr: cfg.ServerEndpointAddr,
		SyncBackend:        cfg.SyncBackend,
		RedisAddr:          cfg.RedisAddr,
		RedisPassword:      cfg.RedisPassword,
		RedisDB:            cfg.RedisDB,
		RedisPrefix:        cfg.RedisPrefix,
		MQTTBroker:         cfg.MQTTBroker,
		MQTTPrefix:         cfg.MQTTPrefix,
		DatabasePath:       cfg.DatabasePath,
		DeviceID:           cfg.DeviceID,
		EmergencyBudget:    cfg.EmergencyBudget,
		LogLevel:           cfg.LogLevel,
		RemoteTimeout:      timex.Duration{Duration: cfg.RemoteTimeout},
		RefreshInterval:    timex.Duration{Duration: cfg.RefreshInterval},
	}
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	cfg.ServerEndpointAddr = jc.ServerEndpointAddr
	cfg.SyncBackend = jc.SyncBackend
	cfg.RedisAddr = jc.RedisAddr
	cfg.RedisPassword = jc.RedisPassword
	cfg.RedisDB = jc.RedisDB
	cfg.RedisPrefix = jc.RedisPrefix
	cfg.MQTTBroker = jc.MQTTBroker
	cfg.MQTTPrefix = jc.MQTTPrefix
	cfg.DatabasePath = jc.DatabasePath
	cfg.DeviceID = jc.DeviceID
	cfg.EmergencyBudget = jc.EmergencyBudget
	cfg.LogLevel = jc.LogLevel
	cfg.RemoteTimeout = jc.RemoteTimeout.Duration
	cfg.RefreshInterval = jc.RefreshInterval.Duration
}
