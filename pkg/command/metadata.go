package command

import (
	"errors"
	"maps"
	"slices"
)

// Metadata describes one registered command type. It is immutable once
// registered; accessors hand out copies.
type Metadata struct {
	Type        string
	WidgetClass string
	DisplayName string
	Description string
	Defaults    map[string]any
	Events      []string
	Required    []string
}

// Validate performs the registration sanity checks.
func (m Metadata) Validate() error {
	if m.Type == "" {
		return errors.New("command: metadata has empty type")
	}
	for _, r := range m.Required {
		if r == "" {
			return errors.New("command: metadata has empty required property name")
		}
	}
	return nil
}

// HasEvent reports whether t is among the declared event types.
func (m Metadata) HasEvent(t string) bool { return slices.Contains(m.Events, t) }

// IsRequired reports whether prop must be present in a configuration.
func (m Metadata) IsRequired(prop string) bool { return slices.Contains(m.Required, prop) }

// Clone returns a deep copy of m.
func (m Metadata) Clone() Metadata {
	m.Defaults = maps.Clone(m.Defaults)
	m.Events = slices.Clone(m.Events)
	m.Required = slices.Clone(m.Required)
	return m
}
