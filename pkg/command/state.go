package command

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"sort"

	"gitlab.com/tinyland/lab/declui/pkg/signal"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// ErrValidationRejected is returned by State.Set when a validator rejects
// the written value.
var ErrValidationRejected = errors.New("command: validation rejected")

// Validator inspects a candidate property value. A non-nil error rejects
// the write and its message becomes the validationFailed reason.
type Validator func(v value.Value) error

// Predicate adapts a boolean check into a Validator.
func Predicate(ok func(v value.Value) bool, reason string) Validator {
	return func(v value.Value) error {
		if ok(v) {
			return nil
		}
		return errors.New(reason)
	}
}

// PropertyChange describes an accepted write.
type PropertyChange struct {
	Name  string
	Value value.Value
	Old   value.Value
}

// ValidationFailure describes a rejected write.
type ValidationFailure struct {
	Name   string
	Value  value.Value
	Reason string
}

// Diff is the symmetric difference of two states.
type Diff struct {
	OnlyHere  []string // present here, missing in other
	OnlyThere []string // present in other, missing here
	Changed   []string // present in both with different values
}

// Empty reports whether the states compared equal.
func (d Diff) Empty() bool {
	return len(d.OnlyHere) == 0 && len(d.OnlyThere) == 0 && len(d.Changed) == 0
}

// State is the property bag owned by one Command. Notifications are
// delivered synchronously before the mutating call returns.
type State struct {
	props      map[string]value.Value
	validators map[string][]Validator

	PropertyChanged  signal.Signal[PropertyChange]
	PropertyRemoved  signal.Signal[string]
	StateChanged     signal.Signal[struct{}]
	ValidationFailed signal.Signal[ValidationFailure]
}

// NewState returns an empty State.
func NewState() *State {
	return &State{
		props:      make(map[string]value.Value),
		validators: make(map[string][]Validator),
	}
}

// Set writes v (converted with value.Of) to name. Writing the stored value
// again emits nothing. Otherwise every validator for name runs; the first
// rejection emits ValidationFailed and leaves the state untouched.
// Accepted writes emit PropertyChanged followed by StateChanged.
func (s *State) Set(name string, v any) error {
	changed, err := s.set(name, value.Of(v))
	if changed {
		s.StateChanged.Emit(struct{}{})
	}
	return err
}

func (s *State) set(name string, v value.Value) (bool, error) {
	old, had := s.props[name]
	if had && value.Equal(old, v) {
		return false, nil
	}
	if err := s.check(name, v); err != nil {
		s.ValidationFailed.Emit(ValidationFailure{Name: name, Value: v, Reason: err.Error()})
		return false, fmt.Errorf("%w: %s: %v", ErrValidationRejected, name, err)
	}
	if !v.IsValid() {
		if !had {
			return false, nil
		}
		delete(s.props, name)
		s.PropertyRemoved.Emit(name)
		return true, nil
	}
	s.props[name] = v
	s.PropertyChanged.Emit(PropertyChange{Name: name, Value: v, Old: old})
	return true, nil
}

func (s *State) check(name string, v value.Value) error {
	for _, fn := range s.validators[name] {
		if err := fn(v); err != nil {
			return err
		}
	}
	return nil
}

// Value returns the raw stored value.
func (s *State) Value(name string) (value.Value, bool) {
	v, ok := s.props[name]
	return v, ok
}

// Get returns the property coerced to T, or def when absent or not
// convertible.
func Get[T any](s *State, name string, def T) T {
	v, ok := s.props[name]
	if !ok {
		return def
	}
	return value.As(v, def)
}

// String is Get for strings.
func (s *State) String(name, def string) string { return Get(s, name, def) }

// Int is Get for ints.
func (s *State) Int(name string, def int) int { return Get(s, name, def) }

// Float is Get for float64.
func (s *State) Float(name string, def float64) float64 { return Get(s, name, def) }

// Bool is Get for bools.
func (s *State) Bool(name string, def bool) bool { return Get(s, name, def) }

// Has reports whether name holds a value.
func (s *State) Has(name string) bool {
	_, ok := s.props[name]
	return ok
}

// Remove deletes name and emits PropertyRemoved then StateChanged. It
// reports whether the property existed.
func (s *State) Remove(name string) bool {
	if _, ok := s.props[name]; !ok {
		return false
	}
	delete(s.props, name)
	s.PropertyRemoved.Emit(name)
	s.StateChanged.Emit(struct{}{})
	return true
}

// Clear removes every property.
func (s *State) Clear() {
	if len(s.props) == 0 {
		return
	}
	for _, n := range s.Names() {
		delete(s.props, n)
		s.PropertyRemoved.Emit(n)
	}
	s.StateChanged.Emit(struct{}{})
}

// Names returns the sorted property names.
func (s *State) Names() []string {
	names := slices.Collect(maps.Keys(s.props))
	sort.Strings(names)
	return names
}

// Len returns the number of properties.
func (s *State) Len() int { return len(s.props) }

// Snapshot returns a copy of the property map.
func (s *State) Snapshot() map[string]value.Value {
	return maps.Clone(s.props)
}

// AddValidator appends fn to the validators for name.
func (s *State) AddValidator(name string, fn Validator) {
	if fn == nil {
		return
	}
	s.validators[name] = append(s.validators[name], fn)
}

// SetValidator replaces the validators for name with fn.
func (s *State) SetValidator(name string, fn Validator) {
	s.ClearValidators(name)
	s.AddValidator(name, fn)
}

// ClearValidators drops every validator for name.
func (s *State) ClearValidators(name string) { delete(s.validators, name) }

// HasValidator reports whether name has at least one validator.
func (s *State) HasValidator(name string) bool { return len(s.validators[name]) > 0 }

// Check runs the validators for name against v without storing it.
func (s *State) Check(name string, v any) error { return s.check(name, value.Of(v)) }

// Validate re-runs the validators for name against the stored value.
func (s *State) Validate(name string) error {
	v := s.props[name]
	if err := s.check(name, v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrValidationRejected, name, err)
	}
	return nil
}

// ValidateAll re-runs every validator and returns the failures sorted by
// property name. It emits nothing.
func (s *State) ValidateAll() []ValidationFailure {
	names := slices.Collect(maps.Keys(s.validators))
	sort.Strings(names)
	var out []ValidationFailure
	for _, n := range names {
		v := s.props[n]
		if err := s.check(n, v); err != nil {
			out = append(out, ValidationFailure{Name: n, Value: v, Reason: err.Error()})
		}
	}
	return out
}

// Diff compares s with other.
func (s *State) Diff(other *State) Diff {
	var d Diff
	for _, n := range s.Names() {
		ov, ok := other.props[n]
		switch {
		case !ok:
			d.OnlyHere = append(d.OnlyHere, n)
		case !value.Equal(s.props[n], ov):
			d.Changed = append(d.Changed, n)
		}
	}
	for _, n := range other.Names() {
		if _, ok := s.props[n]; !ok {
			d.OnlyThere = append(d.OnlyThere, n)
		}
	}
	return d
}

// Equals reports whether s and other hold the same properties.
func (s *State) Equals(other *State) bool { return s.Diff(other).Empty() }

// ToSerializable returns the canonical tree of the property map.
func (s *State) ToSerializable() map[string]any {
	out := make(map[string]any, len(s.props))
	for k, v := range s.props {
		out[k] = v.ToTree()
	}
	return out
}

// FromSerializable merges tree into the state. Each entry goes through the
// validators; rejected entries are skipped and reported in the returned
// error. StateChanged is emitted once if anything changed.
func (s *State) FromSerializable(tree map[string]any) error {
	keys := slices.Collect(maps.Keys(tree))
	sort.Strings(keys)
	var (
		errs    []error
		changed bool
	)
	for _, k := range keys {
		v, err := value.FromTree(tree[k])
		if err != nil {
			errs = append(errs, fmt.Errorf("command: property %q: %w", k, err))
			continue
		}
		c, err := s.set(k, v)
		if err != nil {
			errs = append(errs, err)
		}
		changed = changed || c
	}
	if changed {
		s.StateChanged.Emit(struct{}{})
	}
	return errors.Join(errs...)
}
