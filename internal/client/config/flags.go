package config

import (
	"flag"
	"os"

	"github.com/dmitrijs2005/gophfocus/internal/flagx"
)

var knownFlags = []string{"-a", "-b", "-r", "-m", "-d", "-id", "-e", "-l", "-t", "-i"}

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string     address and port of the sync server
//	-b string     sync backend: grpc, redis or memory
//	-r string     redis address
//	-m string     MQTT broker URL, empty disables notifications
//	-d string     path of the local database
//	-id string    device id
//	-e int        emergency unblocks per period
//	-l string     log level
//	-t duration   timeout of a single remote call
//	-i duration   interval between background refreshes
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], knownFlags)

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.ServerEndpointAddr, "a", cfg.ServerEndpointAddr, "address and port to access server")
	fs.StringVar(&cfg.SyncBackend, "b", cfg.SyncBackend, "sync backend (grpc|redis|memory)")
	fs.StringVar(&cfg.RedisAddr, "r", cfg.RedisAddr, "redis address")
	fs.StringVar(&cfg.MQTTBroker, "m", cfg.MQTTBroker, "mqtt broker url")
	fs.StringVar(&cfg.DatabasePath, "d", cfg.DatabasePath, "local database path")
	fs.StringVar(&cfg.DeviceID, "id", cfg.DeviceID, "device id")
	fs.IntVar(&cfg.EmergencyBudget, "e", cfg.EmergencyBudget, "emergency unblocks per period")
	fs.StringVar(&cfg.LogLevel, "l", cfg.LogLevel, "log level")
	fs.DurationVar(&cfg.RemoteTimeout, "t", cfg.RemoteTimeout, "remote call timeout")
	fs.DurationVar(&cfg.RefreshInterval, "i", cfg.RefreshInterval, "background refresh interval")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}
}
