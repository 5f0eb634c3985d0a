// Package config loads runtime configuration for the GophFocus client.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// Durations use timex.Duration, so values can be strings like "3s" or
// integer nanoseconds:
//
//	{
//	  "server_endpoint_addr": "127.0.0.1:50051",
//	  "sync_backend": "redis",
//	  "redis_addr": "127.0.0.1:6379",
//	  "mqtt_broker": "tcp://127.0.0.1:1883",
//	  "database_path": "gophfocus.db",
//	  "emergency_budget": 3,
//	  "remote_timeout": "5s",
//	  "refresh_interval": "30s"
//	}
//
// The redis password is best kept in the JSON file rather than on the
// command line.
package config
