// Package config loads the voyagerbot YAML configuration.
//
// ${VAR} references in the file are expanded from the environment before
// parsing, and secrets can be overridden directly by environment variables
// (VOYAGER_USERNAME, VOYAGER_PASSWORD, TELEGRAM_BOT_TOKEN, TELEGRAM_CHAT_ID,
// DATABASE_PASSWORD).
package config
