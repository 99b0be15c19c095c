// Package config provides TOML-based configuration for declui runtimes.
package config

import (
	"errors"
	"fmt"
	"slices"
)

// Store backends.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendBolt   = "bolt"
)

// Config is the root configuration.
type Config struct {
	General    GeneralConfig    `toml:"general"`
	Dispatcher DispatcherConfig `toml:"dispatcher"`
	Binding    BindingConfig    `toml:"binding"`
	Store      StoreConfig      `toml:"store"`
	Theme      ThemeConfig      `toml:"theme"`
}

// GeneralConfig holds process-wide settings.
type GeneralConfig struct {
	// LogLevel is one of debug, info, warn, error.
	LogLevel string `toml:"log_level" env:"DECLUI_LOG_LEVEL"`
	// LogFile receives log output. Empty means stderr.
	LogFile string `toml:"log_file" env:"DECLUI_LOG_FILE"`
	// LogFormat is text or json.
	LogFormat string `toml:"log_format" env:"DECLUI_LOG_FORMAT"`
}

// DispatcherConfig configures event delivery.
type DispatcherConfig struct {
	Queued       bool `toml:"queued" env:"DECLUI_DISPATCH_QUEUED"`
	MaxQueueSize int  `toml:"max_queue_size" env:"DECLUI_DISPATCH_MAX_QUEUE"`
}

// BindingConfig configures the state binding adapter.
type BindingConfig struct {
	ChangeTracking bool `toml:"change_tracking" env:"DECLUI_BINDING_CHANGE_TRACKING"`
}

// StoreConfig selects the external state store backend.
type StoreConfig struct {
	Backend string `toml:"backend" env:"DECLUI_STORE_BACKEND"`
	Path    string `toml:"path" env:"DECLUI_STORE_PATH"`
	// FlushInterval is how often dirty state is persisted. Off flushes
	// only on shutdown.
	FlushInterval Duration `toml:"flush_interval" env:"DECLUI_STORE_FLUSH_INTERVAL"`
}

// ThemeConfig selects the terminal palette.
type ThemeConfig struct {
	Name string `toml:"name" env:"DECLUI_THEME"`
	// File is a TOML theme loaded instead of Name when set.
	File string `toml:"file" env:"DECLUI_THEME_FILE"`
}

var logLevels = []string{"debug", "info", "warn", "error"}

// Validate reports every invalid setting.
func (c *Config) Validate() error {
	var errs []error
	if !slices.Contains(logLevels, c.General.LogLevel) {
		errs = append(errs, fmt.Errorf("general.log_level: %q is not one of %v", c.General.LogLevel, logLevels))
	}
	switch c.General.LogFormat {
	case "", "text", "json":
	default:
		errs = append(errs, fmt.Errorf("general.log_format: %q is not text or json", c.General.LogFormat))
	}
	if c.Dispatcher.MaxQueueSize <= 0 {
		errs = append(errs, fmt.Errorf("dispatcher.max_queue_size: %d must be positive", c.Dispatcher.MaxQueueSize))
	}
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile, BackendBolt:
		if c.Store.Path == "" {
			errs = append(errs, fmt.Errorf("store.path: required for the %s backend", c.Store.Backend))
		}
	default:
		errs = append(errs, fmt.Errorf("store.backend: unknown backend %q", c.Store.Backend))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	return nil
}
