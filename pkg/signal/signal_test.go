package signal

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestEmitOrder(t *testing.T) {
	var s Signal[int]
	var got []string
	s.Connect(func(v int) { got = append(got, "a") })
	s.Connect(func(v int) { got = append(got, "b") })
	s.Emit(1)

	if diff := cmp.Diff([]string{"a", "b"}, got); diff != "" {
		t.Errorf("emit order (-want +got):\n%s", diff)
	}
}

func TestDisconnect(t *testing.T) {
	var s Signal[string]
	calls := 0
	c := s.Connect(func(string) { calls++ })
	if !s.Disconnect(c) {
		t.Fatal("Disconnect returned false for connected slot")
	}
	if s.Disconnect(c) {
		t.Error("second Disconnect returned true")
	}
	s.Emit("x")
	if calls != 0 {
		t.Errorf("calls = %d, want 0", calls)
	}
}

func TestDisconnectDuringEmit(t *testing.T) {
	var s Signal[int]
	var second Conn
	calls := 0
	s.Connect(func(int) { s.Disconnect(second) })
	second = s.Connect(func(int) { calls++ })
	s.Emit(0)
	if calls != 0 {
		t.Errorf("slot disconnected mid-emit was called %d times", calls)
	}
	if s.Len() != 1 {
		t.Errorf("Len = %d, want 1", s.Len())
	}
}

func TestConnectDuringEmitDeferred(t *testing.T) {
	var s Signal[int]
	late := 0
	s.Connect(func(int) {
		s.Connect(func(int) { late++ })
	})
	s.Emit(0)
	if late != 0 {
		t.Errorf("slot connected during emit ran %d times in same emission", late)
	}
	s.Emit(0)
	if late != 1 {
		t.Errorf("late = %d, want 1", late)
	}
}

func TestOnce(t *testing.T) {
	var s Signal[int]
	calls := 0
	s.Once(func(int) { calls++ })
	s.Emit(1)
	s.Emit(2)
	if calls != 1 {
		t.Errorf("calls = %d, want 1", calls)
	}
	if s.Len() != 0 {
		t.Errorf("Len = %d, want 0", s.Len())
	}
}

func TestReset(t *testing.T) {
	var s Signal[int]
	s.Connect(func(int) { t.Error("slot called after Reset") })
	s.Reset()
	s.Emit(0)
}

func TestNilSlotIgnored(t *testing.T) {
	var s Signal[int]
	if c := s.Connect(nil); c != 0 {
		t.Errorf("Connect(nil) = %d, want 0", c)
	}
	s.Emit(0)
}
