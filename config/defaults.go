package config

import "github.com/spf13/viper"

func setDefaults() {
	// Server
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.readTimeout", 15)
	viper.SetDefault("server.writeTimeout", 15)
	viper.SetDefault("server.publicURL", "http://localhost:8080")

	// Session
	viper.SetDefault("session.idleTimeout", 300) // the booth advertises a 5-minute expiry
	viper.SetDefault("session.sweepInterval", 30)

	// Capture
	viper.SetDefault("capture.roundTimeout", 10)

	// Store
	viper.SetDefault("store.type", "memory")
	viper.SetDefault("store.redis.address", "localhost:6379")
	viper.SetDefault("store.redis.db", 0)
	viper.SetDefault("store.redis.poolSize", 100)
	viper.SetDefault("store.redis.poolTimeout", 5)

	// WebSocket
	viper.SetDefault("websocket.messageSizeLimit", 8<<20) // artifacts travel inline
	viper.SetDefault("websocket.handshakeTimeout", 10)
	viper.SetDefault("websocket.pingInterval", 25)
	viper.SetDefault("websocket.pongTimeout", 60)
	viper.SetDefault("websocket.writeTimeout", 10)
	viper.SetDefault("websocket.sendQueueSize", 32)
	viper.SetDefault("websocket.maxWriteRetries", 3)

	// Metrics
	viper.SetDefault("metrics.enabled", true)
	viper.SetDefault("metrics.port", 9090)
	viper.SetDefault("metrics.path", "/metrics")
}
