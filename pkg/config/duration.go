package config

import (
	"fmt"
	"strings"
	"time"
)

// Off is the text form of a zero Duration. A store with flush_interval =
// "off" is written only when the runtime shuts down.
const Off = "off"

// Duration is a time.Duration read from TOML strings and DECLUI_*
// variables: "250ms", "5s", "1m", or Off.
type Duration struct {
	time.Duration
}

// Enabled reports whether d names a positive interval.
func (d Duration) Enabled() bool { return d.Duration > 0 }

func (d *Duration) UnmarshalText(text []byte) error {
	s := strings.TrimSpace(string(text))
	if s == "" || strings.EqualFold(s, Off) {
		d.Duration = 0
		return nil
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("config: duration %q: %w", s, err)
	}
	if parsed < 0 {
		return fmt.Errorf("config: duration %q is negative", s)
	}
	d.Duration = parsed
	return nil
}

func (d Duration) MarshalText() ([]byte, error) {
	if d.Duration == 0 {
		return []byte(Off), nil
	}
	return []byte(d.Duration.String()), nil
}
