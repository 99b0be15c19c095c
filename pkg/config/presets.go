package config

import (
	"path/filepath"
	"time"
)

// Profile returns the configuration for a named profile rooted at dir.
// If the name is not recognized, the "default" profile is returned.
//
//	default     in-memory store, synchronous dispatch
//	headless    in-memory store, queued dispatch, change tracking, warn logging
//	persistent  bolt store under dir flushed every second
//	portable    JSON file store under dir flushed every five seconds
func Profile(name, dir string) *Config {
	switch name {
	case "headless":
		return headlessProfile()
	case "persistent":
		return persistentProfile(dir)
	case "portable":
		return portableProfile(dir)
	default:
		return DefaultConfig()
	}
}

// Profiles lists the recognized profile names.
func Profiles() []string {
	return []string{"default", "headless", "persistent", "portable"}
}

func headlessProfile() *Config {
	cfg := DefaultConfig()
	cfg.General.LogLevel = "warn"
	cfg.Dispatcher.Queued = true
	cfg.Binding.ChangeTracking = true
	return cfg
}

func persistentProfile(dir string) *Config {
	cfg := DefaultConfig()
	cfg.Store.Backend = BackendBolt
	cfg.Store.Path = filepath.Join(dir, "state.db")
	cfg.Store.FlushInterval = Duration{time.Second}
	return cfg
}

func portableProfile(dir string) *Config {
	cfg := DefaultConfig()
	cfg.Store.Backend = BackendFile
	cfg.Store.Path = filepath.Join(dir, "state.json")
	return cfg
}
