package config

import (
	"errors"
	"fmt"
	"slices"
)

// Validate checks that all required fields are set and values are valid.
func (c *Config) Validate() error {
	if c.Voyager.Host == "" {
		return errors.New("voyager.host is required")
	}
	if c.Voyager.Port < 1 || c.Voyager.Port > 65535 {
		return fmt.Errorf("voyager.port must be between 1 and 65535, got %d", c.Voyager.Port)
	}
	if c.Voyager.Password != "" && c.Voyager.Username == "" {
		return errors.New("voyager.username is required when a password is set")
	}
	if c.Voyager.ReconnectBaseDelay <= 0 {
		return errors.New("voyager.reconnect_base_delay must be > 0")
	}
	if c.Voyager.ReconnectMaxDelay < c.Voyager.ReconnectBaseDelay {
		return fmt.Errorf("voyager.reconnect_max_delay (%s) cannot be less than reconnect_base_delay (%s)",
			c.Voyager.ReconnectMaxDelay, c.Voyager.ReconnectBaseDelay)
	}
	if c.Voyager.KeepAliveInterval <= 0 {
		return errors.New("voyager.keepalive_interval must be > 0")
	}
	if c.Voyager.BufferSize < 1 {
		return errors.New("voyager.buffer_size must be >= 1")
	}

	if c.Telegram.BotToken != "" && c.Telegram.ChatID == "" {
		return errors.New("telegram.chat_id is required when bot_token is set")
	}

	if c.Events.CoalesceEvery < 1 {
		return errors.New("events.coalesce_every must be >= 1")
	}
	for _, level := range c.Events.NotifyLogLevels {
		if level < 1 || level > 9 {
			return fmt.Errorf("events.notify_log_levels: level %d out of range 1-9", level)
		}
	}
	if slices.Contains(c.Events.IgnoredEvents, "") {
		return errors.New("events.ignored_events must not contain empty names")
	}

	if c.Database.Enabled() {
		if err := c.Database.validate("database"); err != nil {
			return err
		}
		if c.Archive.BatchSize < 1 {
			return errors.New("archive.batch_size must be >= 1")
		}
		if c.Archive.BufferSize < 1 {
			return errors.New("archive.buffer_size must be >= 1")
		}
		if c.Archive.FlushInterval <= 0 {
			return errors.New("archive.flush_interval must be > 0")
		}
	}

	if c.Metrics.Port < 1 || c.Metrics.Port > 65535 {
		return fmt.Errorf("metrics.port must be between 1 and 65535, got %d", c.Metrics.Port)
	}

	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("log.format must be text or json, got %q", c.Log.Format)
	}

	return nil
}

func (db *DBConfig) validate(prefix string) error {
	if db.Name == "" {
		return fmt.Errorf("%s.name is required", prefix)
	}
	if db.User == "" {
		return fmt.Errorf("%s.user is required", prefix)
	}
	if db.Password == "" {
		return fmt.Errorf("%s.password is required", prefix)
	}
	if db.MaxConns < 1 {
		return fmt.Errorf("%s.max_conns must be >= 1", prefix)
	}
	if db.MinConns < 0 {
		return fmt.Errorf("%s.min_conns must be >= 0", prefix)
	}
	if db.MinConns > db.MaxConns {
		return fmt.Errorf("%s.min_conns (%d) cannot exceed max_conns (%d)", prefix, db.MinConns, db.MaxConns)
	}
	return nil
}
