package config

import "time"

// Default values for optional configuration fields.
const (
	DefaultVoyagerHost        = "localhost"
	DefaultVoyagerPort        = 5950
	DefaultReconnectBaseDelay = 1 * time.Second
	DefaultReconnectMaxDelay  = 512 * time.Second
	DefaultKeepAliveInterval  = 5 * time.Second
	DefaultReadTimeout        = 30 * time.Second
	DefaultWriteTimeout       = 5 * time.Second
	DefaultHandshakeTimeout   = 10 * time.Second
	DefaultClientBufferSize   = 1000
	DefaultTelegramAPIURL     = "https://api.telegram.org"
	DefaultTelegramTimeout    = 30 * time.Second
	DefaultTelegramRetries    = 3
	DefaultCoalesceEvery      = 30
	DefaultExposureLimit      = 30.0
	DefaultDBPort             = 5432
	DefaultDBSSLMode          = "prefer"
	DefaultMaxConns           = 4
	DefaultMinConns           = 1
	DefaultBatchSize          = 100
	DefaultFlushInterval      = 1 * time.Second
	DefaultBufferSize         = 1000
	DefaultMaxBufferSize      = 100000
	DefaultMetricsPort        = 9090
	DefaultMetricsPath        = "/metrics"
	DefaultLogLevel           = "info"
	DefaultLogFormat          = "text"
)

// DefaultIgnoredEvents are high-rate events only worth a summary line.
var DefaultIgnoredEvents = []string{"Polling", "Signal", "NewFITReady", "ViewerFitReady"}

// DefaultNotifyLogLevels are the LogEvent levels forwarded to the notifier:
// WARNING, CRITICAL, ACTION, EMERGENCY.
var DefaultNotifyLogLevels = []int{3, 4, 5, 9}

func (c *Config) applyDefaults() {
	// Voyager defaults
	v := &c.Voyager
	if v.Host == "" {
		v.Host = DefaultVoyagerHost
	}
	if v.Port == 0 {
		v.Port = DefaultVoyagerPort
	}
	if v.AutoReconnect == nil {
		on := true
		v.AutoReconnect = &on
	}
	if v.ReconnectBaseDelay == 0 {
		v.ReconnectBaseDelay = DefaultReconnectBaseDelay
	}
	if v.ReconnectMaxDelay == 0 {
		v.ReconnectMaxDelay = DefaultReconnectMaxDelay
	}
	if v.KeepAliveInterval == 0 {
		v.KeepAliveInterval = DefaultKeepAliveInterval
	}
	if v.ReadTimeout == 0 {
		v.ReadTimeout = DefaultReadTimeout
	}
	if v.WriteTimeout == 0 {
		v.WriteTimeout = DefaultWriteTimeout
	}
	if v.HandshakeTimeout == 0 {
		v.HandshakeTimeout = DefaultHandshakeTimeout
	}
	if v.BufferSize == 0 {
		v.BufferSize = DefaultClientBufferSize
	}

	// Telegram defaults
	if c.Telegram.APIURL == "" {
		c.Telegram.APIURL = DefaultTelegramAPIURL
	}
	if c.Telegram.Timeout == 0 {
		c.Telegram.Timeout = DefaultTelegramTimeout
	}
	if c.Telegram.MaxRetries == 0 {
		c.Telegram.MaxRetries = DefaultTelegramRetries
	}

	// Events defaults
	if c.Events.IgnoredEvents == nil {
		c.Events.IgnoredEvents = append([]string(nil), DefaultIgnoredEvents...)
	}
	if c.Events.CoalesceEvery == 0 {
		c.Events.CoalesceEvery = DefaultCoalesceEvery
	}
	if c.Events.ExposureLimit == 0 {
		c.Events.ExposureLimit = DefaultExposureLimit
	}
	if c.Events.NotifyLogLevels == nil {
		c.Events.NotifyLogLevels = append([]int(nil), DefaultNotifyLogLevels...)
	}

	// Database defaults
	if c.Database.Port == 0 {
		c.Database.Port = DefaultDBPort
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = DefaultDBSSLMode
	}
	if c.Database.MaxConns == 0 {
		c.Database.MaxConns = DefaultMaxConns
	}
	if c.Database.MinConns == 0 {
		c.Database.MinConns = DefaultMinConns
	}

	// Archive defaults
	if c.Archive.BatchSize == 0 {
		c.Archive.BatchSize = DefaultBatchSize
	}
	if c.Archive.FlushInterval == 0 {
		c.Archive.FlushInterval = DefaultFlushInterval
	}
	if c.Archive.BufferSize == 0 {
		c.Archive.BufferSize = DefaultBufferSize
	}
	if c.Archive.MaxBufferSize == 0 {
		c.Archive.MaxBufferSize = DefaultMaxBufferSize
	}

	// Metrics defaults
	if c.Metrics.Port == 0 {
		c.Metrics.Port = DefaultMetricsPort
	}
	if c.Metrics.Path == "" {
		c.Metrics.Path = DefaultMetricsPath
	}

	// Log defaults
	if c.Log.Level == "" {
		c.Log.Level = DefaultLogLevel
	}
	if c.Log.Format == "" {
		c.Log.Format = DefaultLogFormat
	}
}
