package config

import "time"

// Config is the root configuration for the dashboard client.
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Channel   ChannelConfig   `yaml:"channel"`
	LogStream LogStreamConfig `yaml:"logstream"`
	API       APIConfig       `yaml:"api"`
	Poller    PollerConfig    `yaml:"poller"`
	History   HistoryConfig   `yaml:"history"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig identifies the AutoFilm server.
type ServerConfig struct {
	URL    string `yaml:"url"`     // http(s) origin, e.g. http://localhost:8000
	APIKey string `yaml:"api_key"` // Sent as X-API-Key when set
}

// ChannelConfig holds real-time channel settings.
type ChannelConfig struct {
	Path                 string        `yaml:"path"`
	HeartbeatInterval    time.Duration `yaml:"heartbeat_interval"`
	ReconnectBaseDelay   time.Duration `yaml:"reconnect_base_delay"`
	MaxReconnectAttempts int           `yaml:"max_reconnect_attempts"`
	WriteTimeout         time.Duration `yaml:"write_timeout"`
	HandshakeTimeout     time.Duration `yaml:"handshake_timeout"`
}

// LogStreamConfig holds the log stream endpoint. It shares the channel
// reconnect settings but never sends heartbeats.
type LogStreamConfig struct {
	Path string `yaml:"path"`
}

// APIConfig holds REST client settings.
type APIConfig struct {
	Timeout      time.Duration `yaml:"timeout"`
	MaxRetries   int           `yaml:"max_retries"`
	RetryBackoff time.Duration `yaml:"retry_backoff"`
}

// PollerConfig holds the health/stats poller settings.
type PollerConfig struct {
	Interval time.Duration `yaml:"interval"`
	Timeout  time.Duration `yaml:"timeout"`
}

// HistoryConfig holds the optional task status recorder.
type HistoryConfig struct {
	Enabled       bool          `yaml:"enabled"`
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	Database      DBConfig      `yaml:"database"`
}

// DBConfig holds a single database connection.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text, json
}
