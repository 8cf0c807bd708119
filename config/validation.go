package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

func (c *AppConfig) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return errors.New("invalid server port")
	}
	if c.Server.PublicURL == "" {
		return errors.New("server.publicURL must be set; it is embedded in the join QR code")
	}

	// Validate store configuration
	switch strings.ToLower(c.Store.Type) {
	case "memory":
	case "redis":
		if c.Store.Redis.Address == "" {
			return errors.New("redis address must be specified for redis store")
		}
	default:
		return fmt.Errorf("invalid store type: %s. Must be 'memory' or 'redis'", c.Store.Type)
	}

	if c.Session.IdleTimeout < 1 {
		return errors.New("session idle timeout must be at least 1 second")
	}
	if c.Session.SweepInterval < 1 {
		return errors.New("session sweep interval must be at least 1 second")
	}
	if c.Session.SweepInterval > c.Session.IdleTimeout {
		return errors.New("sweep interval should not exceed the idle timeout")
	}

	if c.Capture.RoundTimeout < 1 {
		return errors.New("capture round timeout must be at least 1 second")
	}
	if c.Capture.RoundTimeout >= c.Session.IdleTimeout {
		return errors.New("capture round timeout should be less than the session idle timeout")
	}

	if c.WebSocket.HandshakeTimeout < 1 {
		return errors.New("handshake timeout must be at least 1 second")
	}
	if c.WebSocket.PingInterval >= c.WebSocket.PongTimeout {
		return errors.New("ping interval should be less than pong timeout")
	}
	if c.WebSocket.SendQueueSize < 1 {
		return errors.New("send queue size must be positive")
	}

	return nil
}

func bindEnvVars() {
	// Server
	viper.BindEnv("server.port", "PHOTOBOOTH_PORT")
	viper.BindEnv("server.publicURL", "PHOTOBOOTH_PUBLIC_URL")

	// Session
	viper.BindEnv("session.idleTimeout", "PHOTOBOOTH_SESSION_IDLE_TIMEOUT")
	viper.BindEnv("session.sweepInterval", "PHOTOBOOTH_SESSION_SWEEP_INTERVAL")

	// Capture
	viper.BindEnv("capture.roundTimeout", "PHOTOBOOTH_CAPTURE_ROUND_TIMEOUT")

	// Store
	viper.BindEnv("store.type", "PHOTOBOOTH_STORE_TYPE")
	viper.BindEnv("store.redis.address", "PHOTOBOOTH_REDIS_ADDRESS")
	viper.BindEnv("store.redis.password", "PHOTOBOOTH_REDIS_PASSWORD")

	// WebSocket
	viper.BindEnv("websocket.messageSizeLimit", "PHOTOBOOTH_MESSAGE_SIZE_LIMIT")
	viper.BindEnv("websocket.pingInterval", "PHOTOBOOTH_PING_INTERVAL")
	viper.BindEnv("websocket.pongTimeout", "PHOTOBOOTH_PONG_TIMEOUT")
	viper.BindEnv("websocket.writeTimeout", "PHOTOBOOTH_WRITE_TIMEOUT")
}
