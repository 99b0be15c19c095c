package command

import (
	"errors"
	"math"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"

	"gitlab.com/tinyland/lab/declui/pkg/value"
)

type stateRecorder struct {
	changed  []PropertyChange
	removed  []string
	state    int
	failures []ValidationFailure
}

func recordState(t *testing.T, s *State) *stateRecorder {
	t.Helper()
	r := &stateRecorder{}
	s.PropertyChanged.Connect(func(c PropertyChange) { r.changed = append(r.changed, c) })
	s.PropertyRemoved.Connect(func(n string) { r.removed = append(r.removed, n) })
	s.StateChanged.Connect(func(struct{}) { r.state++ })
	s.ValidationFailed.Connect(func(f ValidationFailure) { r.failures = append(r.failures, f) })
	return r
}

func minLen(n int) Validator {
	return Predicate(func(v value.Value) bool {
		return len(value.As(v, "")) >= n
	}, "too short")
}

// --- Set / Get ---

func TestSetEmitsChangeThenState(t *testing.T) {
	s := NewState()
	var order []string
	s.PropertyChanged.Connect(func(PropertyChange) { order = append(order, "property") })
	s.StateChanged.Connect(func(struct{}) { order = append(order, "state") })

	if err := s.Set("text", "Go"); err != nil {
		t.Fatalf("Set: %v", err)
	}
	if diff := cmp.Diff([]string{"property", "state"}, order); diff != "" {
		t.Errorf("signal order (-want +got):\n%s", diff)
	}
	if got := s.String("text", ""); got != "Go" {
		t.Errorf("text = %q, want %q", got, "Go")
	}
}

func TestSetIdempotent(t *testing.T) {
	s := NewState()
	_ = s.Set("n", 3)
	r := recordState(t, s)

	_ = s.Set("n", 3)
	_ = s.Set("n", 3.0)
	if len(r.changed) != 0 || r.state != 0 {
		t.Errorf("idempotent writes emitted %d changes, %d state", len(r.changed), r.state)
	}
}

func TestSetNaNIdempotent(t *testing.T) {
	s := NewState()
	_ = s.Set("ratio", math.NaN())
	r := recordState(t, s)

	_ = s.Set("ratio", math.NaN())
	if len(r.changed) != 0 || r.state != 0 {
		t.Errorf("rewriting NaN emitted %d changes, %d state", len(r.changed), r.state)
	}
}

func TestSetIdempotentSkipsValidators(t *testing.T) {
	s := NewState()
	_ = s.Set("text", "ab")
	s.AddValidator("text", minLen(3))
	r := recordState(t, s)

	if err := s.Set("text", "ab"); err != nil {
		t.Errorf("rewriting stored value: %v", err)
	}
	if len(r.failures) != 0 {
		t.Errorf("validationFailed emitted %d times for an idempotent write", len(r.failures))
	}
}

func TestValidationRejects(t *testing.T) {
	s := NewState()
	_ = s.Set("text", "hello")
	s.AddValidator("text", minLen(3))
	r := recordState(t, s)

	err := s.Set("text", "no")
	if !errors.Is(err, ErrValidationRejected) {
		t.Fatalf("err = %v, want ErrValidationRejected", err)
	}
	if got := s.String("text", ""); got != "hello" {
		t.Errorf("text = %q after rejection, want %q", got, "hello")
	}
	if len(r.changed) != 0 {
		t.Errorf("propertyChanged emitted %d times", len(r.changed))
	}
	if len(r.failures) != 1 {
		t.Fatalf("validationFailed emitted %d times, want 1", len(r.failures))
	}
	if r.failures[0].Name != "text" || r.failures[0].Reason != "too short" {
		t.Errorf("failure = %+v", r.failures[0])
	}
}

func TestFirstRejectionShortCircuits(t *testing.T) {
	s := NewState()
	second := 0
	s.AddValidator("x", func(value.Value) error { return errors.New("first") })
	s.AddValidator("x", func(value.Value) error { second++; return nil })

	_ = s.Set("x", 1)
	if second != 0 {
		t.Errorf("second validator ran %d times", second)
	}
}

func TestGetDefaultsAndCoercion(t *testing.T) {
	s := NewState()
	_ = s.Set("count", "7")
	if got := s.Int("count", 0); got != 7 {
		t.Errorf("Int(count) = %d, want 7", got)
	}
	if got := s.Int("missing", 5); got != 5 {
		t.Errorf("Int(missing) = %d, want 5", got)
	}
	_ = s.Set("flag", "abc")
	if got := Get(s, "flag", true); !got {
		t.Error("unconvertible bool should return default")
	}
}

func TestSetNilRemoves(t *testing.T) {
	s := NewState()
	_ = s.Set("a", 1)
	r := recordState(t, s)
	if err := s.Set("a", nil); err != nil {
		t.Fatalf("Set(nil): %v", err)
	}
	if s.Has("a") {
		t.Error("property still present")
	}
	if diff := cmp.Diff([]string{"a"}, r.removed); diff != "" {
		t.Errorf("removed (-want +got):\n%s", diff)
	}
}

// --- Remove / Names / Clear ---

func TestRemove(t *testing.T) {
	s := NewState()
	_ = s.Set("a", 1)
	r := recordState(t, s)

	if !s.Remove("a") {
		t.Fatal("Remove(a) = false")
	}
	if s.Remove("a") {
		t.Error("second Remove(a) = true")
	}
	if len(r.removed) != 1 || r.state != 1 {
		t.Errorf("removed=%v state=%d", r.removed, r.state)
	}
}

func TestNamesSortedAndClear(t *testing.T) {
	s := NewState()
	for _, n := range []string{"c", "a", "b"} {
		_ = s.Set(n, n)
	}
	if diff := cmp.Diff([]string{"a", "b", "c"}, s.Names()); diff != "" {
		t.Errorf("Names (-want +got):\n%s", diff)
	}
	r := recordState(t, s)
	s.Clear()
	if s.Len() != 0 || len(r.removed) != 3 || r.state != 1 {
		t.Errorf("Clear: len=%d removed=%v state=%d", s.Len(), r.removed, r.state)
	}
}

// --- Diff ---

func TestDiff(t *testing.T) {
	a, b := NewState(), NewState()
	_ = a.Set("shared", 1)
	_ = b.Set("shared", 1)
	_ = a.Set("changed", "x")
	_ = b.Set("changed", "y")
	_ = a.Set("onlyA", true)
	_ = b.Set("onlyB", false)

	want := Diff{OnlyHere: []string{"onlyA"}, OnlyThere: []string{"onlyB"}, Changed: []string{"changed"}}
	if diff := cmp.Diff(want, a.Diff(b)); diff != "" {
		t.Errorf("Diff (-want +got):\n%s", diff)
	}
	if a.Equals(b) {
		t.Error("Equals = true for differing states")
	}
}

// --- Serialization ---

func TestSerializableRoundTrip(t *testing.T) {
	s := NewState()
	_ = s.Set("text", "Click")
	_ = s.Set("enabled", true)
	_ = s.Set("value", 42)
	_ = s.Set("ratio", 0.5)
	_ = s.Set("style", map[string]any{"color": "red", "size": 3})

	back := NewState()
	if err := back.FromSerializable(s.ToSerializable()); err != nil {
		t.Fatalf("FromSerializable: %v", err)
	}
	if d := s.Diff(back); !d.Empty() {
		t.Errorf("round-trip diff: %+v", d)
	}
}

func TestFromSerializableValidatesAndEmitsOnce(t *testing.T) {
	s := NewState()
	s.AddValidator("name", minLen(3))
	r := recordState(t, s)

	err := s.FromSerializable(map[string]any{"name": "ab", "age": 3, "city": "Oslo"})
	if !errors.Is(err, ErrValidationRejected) {
		t.Errorf("err = %v, want ErrValidationRejected", err)
	}
	if s.Has("name") {
		t.Error("rejected entry was stored")
	}
	if s.Int("age", 0) != 3 || s.String("city", "") != "Oslo" {
		t.Error("accepted entries missing")
	}
	if r.state != 1 {
		t.Errorf("stateChanged emitted %d times, want 1", r.state)
	}
}

func TestValidateAll(t *testing.T) {
	s := NewState()
	_ = s.Set("name", "x")
	s.AddValidator("name", minLen(3))
	s.AddValidator("email", Predicate(func(v value.Value) bool {
		return strings.Contains(value.As(v, ""), "@")
	}, "missing @"))

	fails := s.ValidateAll()
	if len(fails) != 2 || fails[0].Name != "email" || fails[1].Name != "name" {
		t.Errorf("ValidateAll = %+v", fails)
	}
	if err := s.Validate("name"); !errors.Is(err, ErrValidationRejected) {
		t.Errorf("Validate(name) = %v", err)
	}
}
