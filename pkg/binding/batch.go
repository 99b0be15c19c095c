package binding

import (
	"cmp"
	"maps"
	"slices"

	"github.com/google/uuid"

	"gitlab.com/tinyland/lab/declui/pkg/value"
)

type direction int

const (
	toStore direction = iota
	toCommand
)

type pending struct {
	dir direction
	v   value.Value
}

// saved is a binding as it was when the batch opened.
type saved struct {
	rec    record
	value  value.Value
	hasVal bool
}

// created is a binding made during a batch, with both sides as they were
// before its initial sync.
type created struct {
	rec      *record
	store    value.Value
	inStore  bool
	cmdValue value.Value
	inCmd    bool
}

type batch struct {
	saved   map[uuid.UUID]saved
	writes  map[uuid.UUID][]pending
	created []created
}

func (a *Adapter) before(r *record) created {
	sv, sok := a.store.Get(r.key)
	cv, cok := r.cmd.State().Value(r.prop)
	return created{rec: r, store: sv, inStore: sok, cmdValue: cv, inCmd: cok}
}

func (b *batch) capture(r *record, dir direction, v value.Value) {
	b.writes[r.id] = append(b.writes[r.id], pending{dir: dir, v: v})
}

func (b *batch) forget(r *record) { delete(b.writes, r.id) }

// Begin opens a batch. Until Commit or Rollback, writes on either side of
// a binding are captured instead of mirrored. Batches do not nest.
func (a *Adapter) Begin() error {
	if a.batch != nil {
		return ErrNestedBatch
	}
	b := &batch{
		saved:  make(map[uuid.UUID]saved, len(a.records)),
		writes: make(map[uuid.UUID][]pending),
	}
	for id, r := range a.records {
		v, ok := r.cmd.State().Value(r.prop)
		b.saved[id] = saved{rec: *r, value: v, hasVal: ok}
	}
	a.batch = b
	a.log.Debug("binding: batch started", "bindings", len(b.saved))
	a.BatchStarted.Emit(struct{}{})
	return nil
}

// InBatch reports whether a batch is open.
func (a *Adapter) InBatch() bool { return a.batch != nil }

// Commit closes the batch and replays the captured writes, binding by
// binding in registration order. It returns the number of writes
// replayed; writes that already match the agreed value are skipped.
func (a *Adapter) Commit() (int, error) {
	b := a.batch
	if b == nil {
		return 0, ErrNoBatch
	}
	a.batch = nil
	n := 0
	for _, r := range a.ordered() {
		for _, w := range b.writes[r.id] {
			if a.records[r.id] == nil {
				break
			}
			if value.Equal(w.v, r.agreed) {
				continue
			}
			switch w.dir {
			case toStore:
				a.mirrorToStore(r, w.v)
			case toCommand:
				a.mirrorToCommand(r, w.v)
			}
			n++
		}
	}
	a.log.Debug("binding: batch committed", "writes", n)
	a.BatchCommitted.Emit(n)
	return n, nil
}

// Rollback closes the batch and discards the captured writes. Bindings
// created during the batch are removed and the initial sync they made is
// undone on both sides. Bindings removed during the batch are restored,
// and every bound command property is reset to the value it held when the
// batch opened. Captured writes never reach the store.
func (a *Adapter) Rollback() error {
	b := a.batch
	if b == nil {
		return ErrNoBatch
	}
	a.batch = nil

	for _, r := range a.ordered() {
		if _, ok := b.saved[r.id]; !ok {
			a.unbindRecord(r)
		}
	}
	for i := len(b.created) - 1; i >= 0; i-- {
		a.undoCreated(b.created[i])
	}

	ids := slices.Collect(maps.Keys(b.saved))
	slices.SortFunc(ids, func(x, y uuid.UUID) int {
		return cmp.Compare(b.saved[x].rec.seq, b.saved[y].rec.seq)
	})
	for _, id := range ids {
		s := b.saved[id]
		r := a.records[id]
		if r == nil {
			r = a.restore(s.rec)
			if r == nil {
				continue
			}
		}
		r.agreed = s.rec.agreed
		cur, ok := r.cmd.State().Value(r.prop)
		if ok == s.hasVal && value.Equal(cur, s.value) {
			continue
		}
		restored := s.value
		if !s.hasVal {
			restored = value.Value{}
		}
		if err := a.writeCommand(r, restored); err != nil {
			a.syncFailed(r, err)
		}
	}
	a.log.Debug("binding: batch rolled back", "bindings", len(b.saved))
	a.BatchRolledBack.Emit(struct{}{})
	return nil
}

// Batch runs fn inside Begin and Commit. If fn fails the batch is rolled
// back and the error returned.
func (a *Adapter) Batch(fn func() error) error {
	if err := a.Begin(); err != nil {
		return err
	}
	if err := fn(); err != nil {
		_ = a.Rollback()
		return err
	}
	_, err := a.Commit()
	return err
}

// undoCreated puts back the store key and command property a binding
// created during a rolled back batch overwrote. The binding is already
// gone, so neither write is mirrored.
func (a *Adapter) undoCreated(c created) {
	r := c.rec
	if cur, ok := a.store.Get(r.key); ok != c.inStore || !value.Equal(cur, c.store) {
		restored := c.store
		if !c.inStore {
			restored = value.Value{}
		}
		a.store.Set(r.key, restored)
	}
	if r.cmd.IsDestroyed() {
		return
	}
	st := r.cmd.State()
	cur, ok := st.Value(r.prop)
	if ok == c.inCmd && value.Equal(cur, c.cmdValue) {
		return
	}
	if !c.inCmd {
		st.Remove(r.prop)
		return
	}
	if err := st.Set(r.prop, c.cmdValue); err != nil {
		a.log.Warn("binding: rollback could not restore command", "property", r.prop, "err", err)
	}
}

// restore reinstalls a binding removed during a batch. It returns nil when
// the command is gone or the slot was bound again meanwhile.
func (a *Adapter) restore(s record) *record {
	if s.cmd.IsDestroyed() || a.lookup(s.cmd, s.prop) != nil {
		return nil
	}
	r := &record{id: s.id, seq: s.seq, cmd: s.cmd, prop: s.prop, key: s.key, validator: s.validator, agreed: s.agreed}
	a.install(r)
	a.Bound.Emit(r.info())
	return r
}
