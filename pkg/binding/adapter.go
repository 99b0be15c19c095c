// Package binding mirrors command properties into an external key/value
// store and back.
//
// Every binding links one (command, property) slot to one store key. A
// write on either side is copied to the other; the copy is guarded so the
// resulting change notification is not mirrored back. Store notifications
// may arrive on any goroutine and are posted to the UI goroutine through a
// loop.Poster before they touch a command.
package binding

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"strings"

	"github.com/google/uuid"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/loop"
	"gitlab.com/tinyland/lab/declui/pkg/signal"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

var (
	// ErrValidationRejected is returned when a binding validator rejects a
	// mirrored value.
	ErrValidationRejected = errors.New("binding: validation rejected")

	// ErrNestedBatch is returned by Begin while a batch is open.
	ErrNestedBatch = errors.New("binding: batch already open")

	// ErrNoBatch is returned by Commit and Rollback without an open batch.
	ErrNoBatch = errors.New("binding: no open batch")

	// ErrNotBound is returned for slots without a binding.
	ErrNotBound = errors.New("binding: property not bound")

	// ErrEmptyKey is returned when a binding names no store key.
	ErrEmptyKey = errors.New("binding: empty store key")
)

// Store is the external state the adapter mirrors into. Writing the
// invalid value deletes the key.
type Store interface {
	Get(key string) (value.Value, bool)
	Set(key string, v value.Value)
}

// Watcher is implemented by stores that report changes. Without it only
// command-side writes are mirrored.
type Watcher interface {
	Watch(key string, fn func(key string, old, new value.Value)) (cancel func())
}

// Info identifies a binding in signal payloads.
type Info struct {
	ID       uuid.UUID
	Command  *command.Command
	Property string
	Key      string
}

// ValidationFailure reports a mirrored value that a binding rejected.
type ValidationFailure struct {
	Binding Info
	Value   value.Value
	Reason  string
}

// SyncError reports a mirror that failed for a reason other than
// validation.
type SyncError struct {
	Binding Info
	Err     error
}

func (e SyncError) Error() string {
	return fmt.Sprintf("binding: sync %s.%s <-> %s: %v", e.Binding.Command.Type(), e.Binding.Property, e.Binding.Key, e.Err)
}

func (e SyncError) Unwrap() error { return e.Err }

// Stats counts mirror traffic since the adapter was created.
type Stats struct {
	// Mirrors counts values copied from one side to the other.
	Mirrors int
	// InitialSyncs counts values copied when a binding was created.
	InitialSyncs int
	// EchoesSuppressed counts notifications dropped by the echo guard.
	EchoesSuppressed int
	// Rejected counts values refused by binding validators.
	Rejected int
}

type record struct {
	id        uuid.UUID
	seq       uint64
	cmd       *command.Command
	prop      string
	key       string
	validator command.Validator

	// agreed is the last value both sides held.
	agreed value.Value
	guard  int

	changed signal.Conn
	removed signal.Conn
	cancel  func()
}

func (r *record) info() Info {
	return Info{ID: r.id, Command: r.cmd, Property: r.prop, Key: r.key}
}

// Options configures an Adapter.
type Options struct {
	Logger *slog.Logger
	// Poster runs store notifications on the UI goroutine. Nil runs them
	// where they arrive, which is only correct for single-goroutine use.
	Poster loop.Poster
	// ChangeTracking records every key written by a mirror.
	ChangeTracking bool
}

// Adapter owns the binding table between commands and store keys. It is
// not safe for concurrent use; call it from the UI goroutine.
type Adapter struct {
	log    *slog.Logger
	store  Store
	poster loop.Poster

	records    map[uuid.UUID]*record
	slots      map[*command.Command]map[string]uuid.UUID
	destroying map[*command.Command]signal.Conn
	seq        uint64

	batch *batch

	tracking bool
	changed  map[string]struct{}
	stats    Stats

	Bound            signal.Signal[Info]
	Unbound          signal.Signal[Info]
	BatchStarted     signal.Signal[struct{}]
	BatchCommitted   signal.Signal[int]
	BatchRolledBack  signal.Signal[struct{}]
	ValidationFailed signal.Signal[ValidationFailure]
	SyncError        signal.Signal[SyncError]
}

var _ command.Binder = (*Adapter)(nil)

// New returns an adapter mirroring into s. It panics if s is nil.
func New(s Store, opts Options) *Adapter {
	if s == nil {
		panic("binding: nil store")
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Poster == nil {
		opts.Poster = loop.Immediate{}
	}
	return &Adapter{
		log:        opts.Logger,
		store:      s,
		poster:     opts.Poster,
		records:    make(map[uuid.UUID]*record),
		slots:      make(map[*command.Command]map[string]uuid.UUID),
		destroying: make(map[*command.Command]signal.Conn),
		tracking:   opts.ChangeTracking,
		changed:    make(map[string]struct{}),
	}
}

// Store returns the mirrored store.
func (a *Adapter) Store() Store { return a.store }

// --- Binding ---

// Bind links property of c to key. An empty property means
// command.DefaultBindProperty. If key already holds a value it is written
// to the command; otherwise the command's current value, if any, is
// written to the store. Rebinding a slot to another key replaces the old
// binding.
func (a *Adapter) Bind(c *command.Command, key, property string) error {
	return a.BindValidated(c, key, property, nil)
}

// BindValidated is Bind with a validator applied to every mirrored value.
func (a *Adapter) BindValidated(c *command.Command, key, property string, v command.Validator) error {
	if c == nil {
		panic("binding: nil command")
	}
	if property == "" {
		property = command.DefaultBindProperty
	}
	if strings.TrimSpace(key) == "" {
		return fmt.Errorf("binding: bind %s.%s: %w", c.Type(), property, ErrEmptyKey)
	}
	if c.IsDestroyed() {
		return fmt.Errorf("binding: bind %s.%s: %w", c.Type(), property, command.ErrDestroyed)
	}
	if r := a.lookup(c, property); r != nil {
		if r.key == key {
			if v != nil {
				r.validator = v
			}
			return nil
		}
		a.unbindRecord(r)
	}
	a.seq++
	r := &record{id: uuid.New(), seq: a.seq, cmd: c, prop: property, key: key, validator: v}
	if a.batch != nil {
		a.batch.created = append(a.batch.created, a.before(r))
	}
	a.install(r)
	a.initialSync(r)
	a.log.Debug("binding: bound", "command", c, "property", property, "key", key)
	a.Bound.Emit(r.info())
	return nil
}

// BindMany binds each property to its key. Failures are joined; the
// remaining properties are still bound.
func (a *Adapter) BindMany(c *command.Command, keys map[string]string) error {
	var errs []error
	props := slices.Collect(maps.Keys(keys))
	sort.Strings(props)
	for _, p := range props {
		if err := a.Bind(c, keys[p], p); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// BindTree binds the default property of every command under root that
// holds one and has no state binding intent for it. Keys are derived from
// prefix and the command's position; see TreeKey.
func (a *Adapter) BindTree(root *command.Command, prefix string) error {
	var errs []error
	root.Walk(func(c *command.Command) {
		if !c.State().Has(command.DefaultBindProperty) {
			return
		}
		if _, intent := c.StateBindings()[command.DefaultBindProperty]; intent {
			return
		}
		if err := a.Bind(c, TreeKey(prefix, root, c), command.DefaultBindProperty); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// TreeKey derives a store key for c from its path below root, for
// example "form.container.textinput1". Each segment below the root is
// the lowercased type followed by the index among siblings.
func TreeKey(prefix string, root, c *command.Command) string {
	var segs []string
	for n := c; n != root && n.Parent() != nil; n = n.Parent() {
		idx := slices.Index(n.Parent().Children(), n)
		segs = append(segs, fmt.Sprintf("%s%d", strings.ToLower(n.Type()), idx))
	}
	segs = append(segs, strings.ToLower(root.Type()))
	if prefix != "" {
		segs = append(segs, prefix)
	}
	slices.Reverse(segs)
	return strings.Join(segs, ".")
}

// Attach installs the adapter as binder on every command under root and
// wires their state binding intents.
func (a *Adapter) Attach(root *command.Command) error {
	var errs []error
	root.Walk(func(c *command.Command) {
		c.SetBinder(a)
		if err := c.RefreshBindings(); err != nil {
			errs = append(errs, err)
		}
	})
	return errors.Join(errs...)
}

// Unbind removes the bindings of c for properties, or all of them when
// none are named. It returns the number removed.
func (a *Adapter) Unbind(c *command.Command, properties ...string) int {
	if len(properties) == 0 {
		return a.UnbindAll(c)
	}
	n := 0
	for _, p := range properties {
		if p == "" {
			p = command.DefaultBindProperty
		}
		if r := a.lookup(c, p); r != nil {
			a.unbindRecord(r)
			n++
		}
	}
	return n
}

// UnbindAll removes every binding of c.
func (a *Adapter) UnbindAll(c *command.Command) int {
	n := 0
	for _, r := range a.recordsOf(c) {
		a.unbindRecord(r)
		n++
	}
	return n
}

// SetValidator replaces the validator of a bound slot. A nil validator
// clears it.
func (a *Adapter) SetValidator(c *command.Command, property string, v command.Validator) error {
	r := a.lookup(c, property)
	if r == nil {
		return fmt.Errorf("binding: set validator %s: %w", property, ErrNotBound)
	}
	r.validator = v
	return nil
}

func (a *Adapter) install(r *record) {
	st := r.cmd.State()
	r.changed = st.PropertyChanged.Connect(func(pc command.PropertyChange) {
		if pc.Name == r.prop {
			a.fromCommand(r, pc.Value)
		}
	})
	r.removed = st.PropertyRemoved.Connect(func(name string) {
		if name == r.prop {
			a.fromCommand(r, value.Value{})
		}
	})
	if w, ok := a.store.(Watcher); ok {
		id := r.id
		r.cancel = w.Watch(r.key, func(string, value.Value, value.Value) {
			a.poster.Post(func() { a.fromStore(id) })
		})
	}
	if _, ok := a.destroying[r.cmd]; !ok {
		c := r.cmd
		a.destroying[c] = c.Destroying.Connect(func(*command.Command) { a.UnbindAll(c) })
	}
	if a.slots[r.cmd] == nil {
		a.slots[r.cmd] = make(map[string]uuid.UUID)
	}
	a.slots[r.cmd][r.prop] = r.id
	a.records[r.id] = r
}

func (a *Adapter) initialSync(r *record) {
	if v, ok := a.store.Get(r.key); ok {
		cur, _ := r.cmd.State().Value(r.prop)
		r.agreed = v
		if value.Equal(cur, v) {
			return
		}
		err := a.check(r, v)
		if err == nil {
			err = a.writeCommand(r, v)
		}
		if err != nil {
			a.reject(r, v, err)
			r.agreed = cur
			return
		}
		a.stats.InitialSyncs++
		return
	}
	cur, ok := r.cmd.State().Value(r.prop)
	if !ok {
		return
	}
	r.agreed = cur
	a.writeStore(r, cur)
	a.stats.InitialSyncs++
}

func (a *Adapter) unbindRecord(r *record) {
	st := r.cmd.State()
	st.PropertyChanged.Disconnect(r.changed)
	st.PropertyRemoved.Disconnect(r.removed)
	if r.cancel != nil {
		r.cancel()
	}
	delete(a.records, r.id)
	if props := a.slots[r.cmd]; props != nil {
		delete(props, r.prop)
		if len(props) == 0 {
			delete(a.slots, r.cmd)
			r.cmd.Destroying.Disconnect(a.destroying[r.cmd])
			delete(a.destroying, r.cmd)
		}
	}
	r.cmd.MarkUnbound(r.prop)
	if a.batch != nil {
		a.batch.forget(r)
	}
	a.log.Debug("binding: unbound", "command", r.cmd, "property", r.prop, "key", r.key)
	a.Unbound.Emit(r.info())
}

// --- Mirroring ---

func (a *Adapter) fromCommand(r *record, v value.Value) {
	if r.guard > 0 {
		a.echo(r, "command")
		return
	}
	if a.batch != nil {
		a.batch.capture(r, toStore, v)
		return
	}
	a.mirrorToStore(r, v)
}

// fromStore handles a store notification for binding id. Notifications
// may be delivered late or out of order, so the key is read again and only
// its current value is mirrored.
func (a *Adapter) fromStore(id uuid.UUID) {
	r := a.records[id]
	if r == nil {
		return
	}
	v, _ := a.store.Get(r.key)
	if r.guard > 0 || value.Equal(v, r.agreed) {
		a.echo(r, "store")
		return
	}
	if a.batch != nil {
		a.batch.capture(r, toCommand, v)
		return
	}
	a.mirrorToCommand(r, v)
}

func (a *Adapter) echo(r *record, from string) {
	a.stats.EchoesSuppressed++
	a.log.Debug("binding: echo suppressed", "from", from, "property", r.prop, "key", r.key)
}

// mirrorToStore copies a command value into the store. A rejected value
// restores the command to the last agreed value.
func (a *Adapter) mirrorToStore(r *record, v value.Value) {
	if err := a.check(r, v); err != nil {
		a.reject(r, v, err)
		a.restoreCommand(r)
		return
	}
	a.writeStore(r, v)
	r.agreed = v
	a.mirrored(r)
}

// mirrorToCommand copies a store value into the command. A rejected value
// restores the store to the last agreed value.
func (a *Adapter) mirrorToCommand(r *record, v value.Value) {
	if err := a.check(r, v); err != nil {
		a.reject(r, v, err)
		a.writeStore(r, r.agreed)
		return
	}
	if err := a.writeCommand(r, v); err != nil {
		if errors.Is(err, command.ErrValidationRejected) {
			a.reject(r, v, err)
			a.writeStore(r, r.agreed)
			return
		}
		a.syncFailed(r, err)
		return
	}
	r.agreed = v
	a.mirrored(r)
}

func (a *Adapter) mirrored(r *record) {
	a.stats.Mirrors++
	if a.tracking {
		a.changed[r.key] = struct{}{}
	}
}

func (a *Adapter) check(r *record, v value.Value) error {
	if r.validator == nil {
		return nil
	}
	return r.validator(v)
}

func (a *Adapter) writeStore(r *record, v value.Value) {
	r.guard++
	defer func() { r.guard-- }()
	a.store.Set(r.key, v)
}

func (a *Adapter) writeCommand(r *record, v value.Value) error {
	if r.cmd.IsDestroyed() {
		return command.ErrDestroyed
	}
	r.guard++
	defer func() { r.guard-- }()
	if !v.IsValid() {
		r.cmd.State().Remove(r.prop)
		return nil
	}
	return r.cmd.State().Set(r.prop, v)
}

func (a *Adapter) restoreCommand(r *record) {
	if err := a.writeCommand(r, r.agreed); err != nil {
		a.syncFailed(r, err)
	}
}

func (a *Adapter) reject(r *record, v value.Value, err error) {
	a.stats.Rejected++
	reason := err.Error()
	a.log.Warn("binding: validation rejected", "property", r.prop, "key", r.key, "value", v, "reason", reason)
	a.ValidationFailed.Emit(ValidationFailure{Binding: r.info(), Value: v, Reason: reason})
}

func (a *Adapter) syncFailed(r *record, err error) {
	a.log.Warn("binding: sync failed", "property", r.prop, "key", r.key, "err", err)
	a.SyncError.Emit(SyncError{Binding: r.info(), Err: err})
}

// --- Explicit sync ---

// SyncToStore copies the command value of a bound slot into the store.
func (a *Adapter) SyncToStore(c *command.Command, property string) error {
	r := a.lookup(c, property)
	if r == nil {
		return fmt.Errorf("binding: sync to store %s: %w", property, ErrNotBound)
	}
	v, _ := c.State().Value(r.prop)
	if err := a.check(r, v); err != nil {
		a.reject(r, v, err)
		return fmt.Errorf("%w: %s: %v", ErrValidationRejected, r.key, err)
	}
	a.writeStore(r, v)
	r.agreed = v
	a.mirrored(r)
	return nil
}

// SyncFromStore copies the store value of a bound slot into the command.
func (a *Adapter) SyncFromStore(c *command.Command, property string) error {
	r := a.lookup(c, property)
	if r == nil {
		return fmt.Errorf("binding: sync from store %s: %w", property, ErrNotBound)
	}
	v, _ := a.store.Get(r.key)
	if err := a.check(r, v); err != nil {
		a.reject(r, v, err)
		return fmt.Errorf("%w: %s: %v", ErrValidationRejected, r.key, err)
	}
	if err := a.writeCommand(r, v); err != nil {
		return fmt.Errorf("binding: sync from store %s: %w", r.key, err)
	}
	r.agreed = v
	a.mirrored(r)
	return nil
}

// SyncAll brings every binding into agreement in registration order. Keys
// present in the store win; otherwise the command value is pushed.
func (a *Adapter) SyncAll() error {
	var errs []error
	for _, r := range a.ordered() {
		var err error
		if _, ok := a.store.Get(r.key); ok {
			err = a.SyncFromStore(r.cmd, r.prop)
		} else {
			err = a.SyncToStore(r.cmd, r.prop)
		}
		if err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// --- Queries ---

// IsBound reports whether property of c has a binding.
func (a *Adapter) IsBound(c *command.Command, property string) bool {
	return a.lookup(c, property) != nil
}

// KeyFor returns the store key bound to property of c.
func (a *Adapter) KeyFor(c *command.Command, property string) (string, bool) {
	r := a.lookup(c, property)
	if r == nil {
		return "", false
	}
	return r.key, true
}

// BoundKeys returns the sorted store keys bound to c.
func (a *Adapter) BoundKeys(c *command.Command) []string {
	var keys []string
	for _, r := range a.recordsOf(c) {
		keys = append(keys, r.key)
	}
	sort.Strings(keys)
	return keys
}

// CommandsFor returns the commands bound to key in registration order.
func (a *Adapter) CommandsFor(key string) []*command.Command {
	var out []*command.Command
	for _, r := range a.ordered() {
		if r.key == key && !slices.Contains(out, r.cmd) {
			out = append(out, r.cmd)
		}
	}
	return out
}

// Bindings lists every binding in registration order.
func (a *Adapter) Bindings() []Info {
	rs := a.ordered()
	out := make([]Info, len(rs))
	for i, r := range rs {
		out[i] = r.info()
	}
	return out
}

// Count returns the number of bindings.
func (a *Adapter) Count() int { return len(a.records) }

// Stats returns the traffic counters.
func (a *Adapter) Stats() Stats { return a.stats }

// ChangedKeys returns the sorted keys written by mirrors since the last
// ClearChanges. It is empty unless change tracking is on.
func (a *Adapter) ChangedKeys() []string {
	keys := slices.Collect(maps.Keys(a.changed))
	sort.Strings(keys)
	return keys
}

// ClearChanges forgets the tracked keys.
func (a *Adapter) ClearChanges() { clear(a.changed) }

// SetChangeTracking turns change tracking on or off.
func (a *Adapter) SetChangeTracking(on bool) {
	a.tracking = on
	if !on {
		a.ClearChanges()
	}
}

// Shutdown removes every binding.
func (a *Adapter) Shutdown() {
	if a.batch != nil {
		a.batch = nil
	}
	for _, r := range a.ordered() {
		a.unbindRecord(r)
	}
}

func (a *Adapter) lookup(c *command.Command, property string) *record {
	if property == "" {
		property = command.DefaultBindProperty
	}
	id, ok := a.slots[c][property]
	if !ok {
		return nil
	}
	return a.records[id]
}

func (a *Adapter) recordsOf(c *command.Command) []*record {
	var out []*record
	for _, id := range a.slots[c] {
		out = append(out, a.records[id])
	}
	slices.SortFunc(out, bySeq)
	return out
}

func (a *Adapter) ordered() []*record {
	out := slices.Collect(maps.Values(a.records))
	slices.SortFunc(out, bySeq)
	return out
}

func bySeq(x, y *record) int { return cmp.Compare(x.seq, y.seq) }
