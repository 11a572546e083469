package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"go.uber.org/zap/zapcore"
)

type Config struct {
	// ListenAddr is the direct-host bind address.
	ListenAddr string
	// DirectPort is the port clients dial for direct joins.
	DirectPort int

	RelayBaseURL string
	LobbyBaseURL string
	AuthBaseURL  string

	PlayerName        string
	GameID            string
	LogLevel          zapcore.Level
	HeartbeatInterval time.Duration
}

func Load() (Config, error) {
	c := Config{
		ListenAddr:        envOr("LISTEN_ADDR", ":7777"),
		RelayBaseURL:      envOr("RELAY_BASE_URL", "http://127.0.0.1:8090"),
		LobbyBaseURL:      envOr("LOBBY_BASE_URL", "http://127.0.0.1:8090"),
		AuthBaseURL:       envOr("AUTH_BASE_URL", "http://127.0.0.1:8090"),
		PlayerName:        envOr("PLAYER_NAME", "Player"),
		GameID:            envOr("GAME_ID", "standard"),
		DirectPort:        7777,
		HeartbeatInterval: 15 * time.Second,
	}

	if v := os.Getenv("DIRECT_PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid DIRECT_PORT %q: %w", v, err)
		}
		c.DirectPort = port
	}

	if v := os.Getenv("HEARTBEAT_INTERVAL"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid HEARTBEAT_INTERVAL %q: %w", v, err)
		}
		c.HeartbeatInterval = d
	}

	level, err := zapcore.ParseLevel(envOr("LOG_LEVEL", "info"))
	if err != nil {
		return Config{}, fmt.Errorf("invalid LOG_LEVEL: %w", err)
	}
	c.LogLevel = level

	return c, nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
