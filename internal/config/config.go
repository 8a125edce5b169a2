// Package config loads server settings from the environment.
package config

import (
	"time"

	"github.com/spf13/viper"
)

// Environment variables, all optional:
//
//	SB_PORT                listen port (default 8080)
//	SB_DB_PATH             sqlite session ledger path
//	SB_HEARTBEAT_INTERVAL  session heartbeat interval in ms, 0 disables
//	SB_POLL_INTERVAL       max time a long-poll GET is held open, in ms
//	SB_CLOSE_TIMEOUT       idle time before a session is reaped, in ms
//	SB_LOG_LEVEL           zerolog level name
//	SB_ECHO                echo inbound messages back to their session

// Settings holds the resolved server configuration.
type Settings struct {
	Port     string
	DBPath   string
	LogLevel string
	Echo     bool

	// HeartbeatInterval of 0 means heartbeats never fire; used when a
	// transport's own keep-alive suffices.
	HeartbeatInterval time.Duration
	PollInterval      time.Duration
	CloseTimeout      time.Duration
}

// Load reads settings from the environment, applying defaults.
func Load() Settings {
	v := viper.New()
	v.SetEnvPrefix("SB")
	v.AutomaticEnv()

	v.SetDefault("port", "8080")
	v.SetDefault("db_path", "data/sessions.db")
	v.SetDefault("log_level", "info")
	v.SetDefault("echo", false)
	v.SetDefault("heartbeat_interval", 0)
	v.SetDefault("poll_interval", 20000)
	v.SetDefault("close_timeout", 8000)

	return Settings{
		Port:              v.GetString("port"),
		DBPath:            v.GetString("db_path"),
		LogLevel:          v.GetString("log_level"),
		Echo:              v.GetBool("echo"),
		HeartbeatInterval: time.Duration(v.GetInt("heartbeat_interval")) * time.Millisecond,
		PollInterval:      time.Duration(v.GetInt("poll_interval")) * time.Millisecond,
		CloseTimeout:      time.Duration(v.GetInt("close_timeout")) * time.Millisecond,
	}
}
