// Package signal provides a typed multicast notification channel used for
// the change and lifecycle notifications of commands, mappers and
// adapters.
//
// Signals are not safe for concurrent use. Like the objects that own them
// they belong to the UI goroutine.
package signal

// Conn identifies one connected slot. The zero Conn is never issued.
type Conn uint64

type slot[T any] struct {
	id   Conn
	fn   func(T)
	dead bool
}

// Signal is a list of closures invoked in connection order by Emit. The
// zero value is ready to use.
type Signal[T any] struct {
	next  Conn
	slots []*slot[T]
}

// Connect adds fn to the signal and returns a handle for Disconnect.
func (s *Signal[T]) Connect(fn func(T)) Conn {
	if fn == nil {
		return 0
	}
	s.next++
	s.slots = append(s.slots, &slot[T]{id: s.next, fn: fn})
	return s.next
}

// Once connects fn for a single emission.
func (s *Signal[T]) Once(fn func(T)) Conn {
	var id Conn
	id = s.Connect(func(v T) {
		s.Disconnect(id)
		fn(v)
	})
	return id
}

// Disconnect removes the slot identified by c. It reports whether the slot
// was connected. Disconnecting during Emit prevents later delivery of the
// same emission to that slot.
func (s *Signal[T]) Disconnect(c Conn) bool {
	for i, sl := range s.slots {
		if sl.id == c {
			sl.dead = true
			s.slots = append(s.slots[:i:i], s.slots[i+1:]...)
			return true
		}
	}
	return false
}

// Emit invokes every connected slot with v. Slots connected during the
// emission are not called until the next Emit.
func (s *Signal[T]) Emit(v T) {
	if len(s.slots) == 0 {
		return
	}
	snapshot := make([]*slot[T], len(s.slots))
	copy(snapshot, s.slots)
	for _, sl := range snapshot {
		if sl.dead {
			continue
		}
		sl.fn(v)
	}
}

// Len returns the number of connected slots.
func (s *Signal[T]) Len() int { return len(s.slots) }

// Reset disconnects every slot.
func (s *Signal[T]) Reset() {
	for _, sl := range s.slots {
		sl.dead = true
	}
	s.slots = nil
}
