package config

import "time"

// Config is the root configuration for a voyagerbot instance.
type Config struct {
	Voyager  VoyagerConfig  `yaml:"voyager"`
	Telegram TelegramConfig `yaml:"telegram"`
	Events   EventsConfig   `yaml:"events"`
	Database DBConfig       `yaml:"database"`
	Archive  ArchiveConfig  `yaml:"archive"`
	Metrics  MetricsConfig  `yaml:"metrics"`
	Log      LogConfig      `yaml:"log"`
}

// VoyagerConfig holds the application server connection settings.
type VoyagerConfig struct {
	Host               string        `yaml:"host"`
	Port               int           `yaml:"port"`
	Username           string        `yaml:"username" env:"VOYAGER_USERNAME"` // Empty disables authentication
	Password           string        `yaml:"password" env:"VOYAGER_PASSWORD"`
	AutoReconnect      *bool         `yaml:"auto_reconnect"` // Default true
	ReconnectBaseDelay time.Duration `yaml:"reconnect_base_delay"`
	ReconnectMaxDelay  time.Duration `yaml:"reconnect_max_delay"`
	KeepAliveInterval  time.Duration `yaml:"keepalive_interval"`
	ReadTimeout        time.Duration `yaml:"read_timeout"`
	WriteTimeout       time.Duration `yaml:"write_timeout"`
	HandshakeTimeout   time.Duration `yaml:"handshake_timeout"`
	BufferSize         int           `yaml:"buffer_size"`
}

// Reconnect reports whether auto-reconnect is enabled.
func (v VoyagerConfig) Reconnect() bool {
	return v.AutoReconnect == nil || *v.AutoReconnect
}

// TelegramConfig holds notification bot settings. An empty BotToken
// sends notifications to the log instead.
type TelegramConfig struct {
	BotToken   string        `yaml:"bot_token" env:"TELEGRAM_BOT_TOKEN"`
	ChatID     string        `yaml:"chat_id" env:"TELEGRAM_CHAT_ID"`
	APIURL     string        `yaml:"api_url"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
}

// EventsConfig controls how push events are handled.
type EventsConfig struct {
	IgnoredEvents   []string `yaml:"ignored_events"`
	CoalesceEvery   int      `yaml:"coalesce_every"`
	ExposureLimit   float64  `yaml:"exposure_limit"`  // Seconds; shorter exposures get a text note only
	SendImages      bool     `yaml:"send_image_msgs"` // Attach JPEG previews
	PinPreview      bool     `yaml:"pin_preview"`     // Edit one pinned preview in place
	NotifyLogLevels []int    `yaml:"notify_log_levels"`
}

// DBConfig holds the PostgreSQL connection used by the frame archive.
// An empty Host disables archiving.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password" env:"DATABASE_PASSWORD"`
	SSLMode  string `yaml:"ssl_mode"`
	MaxConns int    `yaml:"max_conns"`
	MinConns int    `yaml:"min_conns"`
}

// Enabled reports whether a database is configured.
func (db DBConfig) Enabled() bool {
	return db.Host != ""
}

// ArchiveConfig holds frame archive batch writer settings.
type ArchiveConfig struct {
	BatchSize     int           `yaml:"batch_size"`
	FlushInterval time.Duration `yaml:"flush_interval"`
	BufferSize    int           `yaml:"buffer_size"`
	MaxBufferSize int           `yaml:"max_buffer_size"`
}

// MetricsConfig holds Prometheus metrics settings.
type MetricsConfig struct {
	Port int    `yaml:"port"`
	Path string `yaml:"path"`
}

// LogConfig holds logger settings.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug, info, warn, error
	Format string `yaml:"format"` // text or json
}
