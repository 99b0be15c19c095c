package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

func TestDefaultConfigIsValid(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestLoadFromReader(t *testing.T) {
	cfg, err := LoadFromReader(strings.NewReader(`
[general]
log_level = "debug"

[dispatcher]
queued = true
max_queue_size = 16

[binding]
change_tracking = true

[store]
backend = "bolt"
path = "/tmp/ui.db"
flush_interval = "250ms"

[theme]
name = "nord"
`))
	if err != nil {
		t.Fatalf("LoadFromReader: %v", err)
	}
	want := &Config{
		General:    GeneralConfig{LogLevel: "debug", LogFormat: "text"},
		Dispatcher: DispatcherConfig{Queued: true, MaxQueueSize: 16},
		Binding:    BindingConfig{ChangeTracking: true},
		Store:      StoreConfig{Backend: BackendBolt, Path: "/tmp/ui.db", FlushInterval: Duration{250 * time.Millisecond}},
		Theme:      ThemeConfig{Name: "nord"},
	}
	if diff := cmp.Diff(want, cfg); diff != "" {
		t.Errorf("config (-want +got):\n%s", diff)
	}
	if err := cfg.Validate(); err != nil {
		t.Errorf("Validate: %v", err)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("DECLUI_LOG_LEVEL", "error")
	t.Setenv("DECLUI_STORE_BACKEND", "file")
	t.Setenv("DECLUI_STORE_PATH", "/var/lib/ui.json")
	t.Setenv("DECLUI_STORE_FLUSH_INTERVAL", "2s")
	t.Setenv("DECLUI_DISPATCH_QUEUED", "true")
	t.Setenv("DECLUI_THEME", "dracula")

	cfg, err := LoadFromReader(strings.NewReader("[general]\nlog_level = \"debug\"\n"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.General.LogLevel != "error" {
		t.Errorf("log level = %q, env should win over the file", cfg.General.LogLevel)
	}
	if cfg.Store.Backend != BackendFile || cfg.Store.Path != "/var/lib/ui.json" {
		t.Errorf("store = %+v", cfg.Store)
	}
	if cfg.Store.FlushInterval.Duration != 2*time.Second {
		t.Errorf("flush interval = %v", cfg.Store.FlushInterval)
	}
	if !cfg.Dispatcher.Queued || cfg.Theme.Name != "dracula" {
		t.Errorf("dispatcher = %+v, theme = %+v", cfg.Dispatcher, cfg.Theme)
	}
}

func TestEnvOverrideError(t *testing.T) {
	t.Setenv("DECLUI_DISPATCH_MAX_QUEUE", "lots")
	if _, err := LoadFromReader(strings.NewReader("")); err == nil {
		t.Error("bad integer accepted")
	}
}

func TestLoadFromFileMissing(t *testing.T) {
	cfg, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.toml"))
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Store.Backend != BackendMemory {
		t.Errorf("backend = %q, want defaults", cfg.Store.Backend)
	}
}

func TestLoadSearchesXDG(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", dir)
	if err := os.MkdirAll(filepath.Join(dir, "declui"), 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "declui", "config.toml"), []byte("[theme]\nname = \"gruvbox\"\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	cfg, err := Load()
	if err != nil {
		t.Fatal(err)
	}
	if cfg.Theme.Name != "gruvbox" {
		t.Errorf("theme = %q, want gruvbox", cfg.Theme.Name)
	}
}

func TestLoadRejectsBadTOML(t *testing.T) {
	if _, err := LoadFromReader(strings.NewReader("[store\n")); err == nil {
		t.Error("malformed TOML accepted")
	}
	if _, err := LoadFromReader(strings.NewReader("[store]\nflush_interval = \"-1s\"\n")); err == nil {
		t.Error("negative duration accepted")
	}
}

func TestValidate(t *testing.T) {
	cfg := DefaultConfig()
	cfg.General.LogLevel = "loud"
	cfg.Dispatcher.MaxQueueSize = 0
	cfg.Store.Backend = BackendBolt
	cfg.Store.Path = ""

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate accepted a broken config")
	}
	for _, want := range []string{"general.log_level", "dispatcher.max_queue_size", "store.path"} {
		if !strings.Contains(err.Error(), want) {
			t.Errorf("error %q does not mention %s", err, want)
		}
	}

	cfg = DefaultConfig()
	cfg.Store.Backend = "etcd"
	if err := cfg.Validate(); err == nil || !strings.Contains(err.Error(), "unknown backend") {
		t.Errorf("err = %v", err)
	}
}

func TestProfiles(t *testing.T) {
	dir := t.TempDir()
	for _, name := range Profiles() {
		if err := Profile(name, dir).Validate(); err != nil {
			t.Errorf("profile %s: %v", name, err)
		}
	}
	p := Profile("persistent", dir)
	if p.Store.Backend != BackendBolt || p.Store.Path != filepath.Join(dir, "state.db") {
		t.Errorf("persistent store = %+v", p.Store)
	}
	if Profile("unknown", dir).Store.Backend != BackendMemory {
		t.Error("unknown profile should fall back to default")
	}
}

func TestDuration(t *testing.T) {
	var d Duration
	if err := d.UnmarshalText([]byte("1m30s")); err != nil || d.Duration != 90*time.Second {
		t.Errorf("UnmarshalText = %v, %v", d, err)
	}
	if text, _ := d.MarshalText(); string(text) != "1m30s" {
		t.Errorf("MarshalText = %q", text)
	}
	if err := d.UnmarshalText([]byte("OFF")); err != nil || d.Enabled() {
		t.Errorf("off = %v, %v", d, err)
	}
	if text, _ := d.MarshalText(); string(text) != Off {
		t.Errorf("MarshalText(0) = %q, want %q", text, Off)
	}
	if err := d.UnmarshalText([]byte("soon")); err == nil {
		t.Error("bad duration accepted")
	}
}
