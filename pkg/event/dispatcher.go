package event

import (
	"cmp"
	"errors"
	"fmt"
	"log/slog"
	"slices"

	"github.com/google/uuid"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/loop"
	"gitlab.com/tinyland/lab/declui/pkg/signal"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

var (
	// ErrQueueFull is returned by Dispatch in queued mode when the queue
	// is at capacity. The event is dropped.
	ErrQueueFull = errors.New("event: queue full")

	// ErrNilEvent is returned when dispatching nil.
	ErrNilEvent = errors.New("event: nil event")
)

// DefaultMaxQueueSize bounds the queue in queued mode.
const DefaultMaxQueueSize = 1000

// Handler processes an event. A returned error, like a panic, is reported
// through HandlingError and does not stop the remaining handlers.
type Handler func(e *Event) error

// Filter decides whether a handler or the whole dispatch proceeds.
type Filter func(e *Event) bool

// Interceptor runs before the per-command handlers of one event type.
type Interceptor func(e *Event)

// Registration describes one handler record.
type Registration struct {
	ID       uuid.UUID
	Target   *command.Command
	Type     Type
	Priority Priority
	Once     bool
	Filtered bool
}

// HandlingError reports a failed handler.
type HandlingError struct {
	Event     *Event
	HandlerID uuid.UUID
	Err       error
}

func (h HandlingError) Error() string {
	return fmt.Sprintf("event: handler %s for %s: %v", h.HandlerID, h.Event.Type, h.Err)
}

func (h HandlingError) Unwrap() error { return h.Err }

type record struct {
	Registration
	handler Handler
	filter  Filter
	seq     uint64
}

type globalFilter struct {
	id       uuid.UUID
	fn       Filter
	priority Priority
	seq      uint64
}

// Options configures a Dispatcher.
type Options struct {
	Logger *slog.Logger
	// Poster schedules queued drains. Defaults to loop.Immediate.
	Poster       loop.Poster
	Queued       bool
	MaxQueueSize int
}

// Dispatcher routes events to handlers registered for the event's source
// command and type. It belongs to the UI goroutine.
type Dispatcher struct {
	log    *slog.Logger
	poster loop.Poster

	records   map[uuid.UUID]*record
	byCommand map[*command.Command]map[uuid.UUID]struct{}
	watches   map[*command.Command]signal.Conn
	seq       uint64

	filters      []globalFilter
	interceptors map[Type]Interceptor

	queued         bool
	maxQueue       int
	queue          []*Event
	drainScheduled bool

	depth    int
	deferred []*command.Command

	Dispatched          signal.Signal[*Event]
	HandlerRegistered   signal.Signal[Registration]
	HandlerUnregistered signal.Signal[uuid.UUID]
	HandlingError       signal.Signal[HandlingError]
}

// NewDispatcher returns a Dispatcher in direct mode unless opts.Queued.
func NewDispatcher(opts Options) *Dispatcher {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Poster == nil {
		opts.Poster = loop.Immediate{}
	}
	if opts.MaxQueueSize <= 0 {
		opts.MaxQueueSize = DefaultMaxQueueSize
	}
	return &Dispatcher{
		log:          opts.Logger,
		poster:       opts.Poster,
		records:      make(map[uuid.UUID]*record),
		byCommand:    make(map[*command.Command]map[uuid.UUID]struct{}),
		watches:      make(map[*command.Command]signal.Conn),
		interceptors: make(map[Type]Interceptor),
		queued:       opts.Queued,
		maxQueue:     opts.MaxQueueSize,
	}
}

// --- Registration ---

// Register adds handler for events of type t from cmd.
func (d *Dispatcher) Register(cmd *command.Command, t Type, handler Handler, p Priority) uuid.UUID {
	return d.add(cmd, t, handler, nil, p, false)
}

// RegisterFiltered adds handler guarded by filter.
func (d *Dispatcher) RegisterFiltered(cmd *command.Command, t Type, handler Handler, filter Filter, p Priority) uuid.UUID {
	return d.add(cmd, t, handler, filter, p, false)
}

// RegisterOnce adds handler that is removed after its first invocation.
func (d *Dispatcher) RegisterOnce(cmd *command.Command, t Type, handler Handler, p Priority) uuid.UUID {
	return d.add(cmd, t, handler, nil, p, true)
}

func (d *Dispatcher) add(cmd *command.Command, t Type, handler Handler, filter Filter, p Priority, once bool) uuid.UUID {
	if cmd == nil || handler == nil {
		d.log.Error("event: rejected registration", "type", t, "command", cmd)
		return uuid.Nil
	}
	if cmd.IsDestroyed() {
		d.log.Error("event: rejected registration on destroyed command", "type", t, "command", cmd)
		return uuid.Nil
	}
	d.seq++
	r := &record{
		Registration: Registration{
			ID:       uuid.New(),
			Target:   cmd,
			Type:     t,
			Priority: p,
			Once:     once,
			Filtered: filter != nil,
		},
		handler: handler,
		filter:  filter,
		seq:     d.seq,
	}
	d.records[r.ID] = r
	ids, ok := d.byCommand[cmd]
	if !ok {
		ids = make(map[uuid.UUID]struct{})
		d.byCommand[cmd] = ids
		d.watches[cmd] = cmd.Destroying.Connect(func(c *command.Command) { d.UnregisterAll(c) })
	}
	ids[r.ID] = struct{}{}
	d.log.Debug("event: handler registered", "id", r.ID, "type", t, "command", cmd, "priority", p, "once", once)
	d.HandlerRegistered.Emit(r.Registration)
	return r.ID
}

// Unregister removes one handler. It reports whether it existed.
func (d *Dispatcher) Unregister(id uuid.UUID) bool {
	r, ok := d.records[id]
	if !ok {
		return false
	}
	delete(d.records, id)
	if ids := d.byCommand[r.Target]; ids != nil {
		delete(ids, id)
		if len(ids) == 0 {
			d.forget(r.Target)
		}
	}
	d.HandlerUnregistered.Emit(id)
	return true
}

// UnregisterAll removes every handler targeting cmd.
func (d *Dispatcher) UnregisterAll(cmd *command.Command) int {
	ids := d.idsFor(cmd, func(*record) bool { return true })
	for _, id := range ids {
		d.Unregister(id)
	}
	d.forget(cmd)
	return len(ids)
}

// UnregisterByType removes the handlers of type t targeting cmd.
func (d *Dispatcher) UnregisterByType(cmd *command.Command, t Type) int {
	ids := d.idsFor(cmd, func(r *record) bool { return r.Type == t })
	for _, id := range ids {
		d.Unregister(id)
	}
	return len(ids)
}

func (d *Dispatcher) idsFor(cmd *command.Command, keep func(*record) bool) []uuid.UUID {
	var out []*record
	for id := range d.byCommand[cmd] {
		if r := d.records[id]; r != nil && keep(r) {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b *record) int { return cmp.Compare(a.seq, b.seq) })
	ids := make([]uuid.UUID, len(out))
	for i, r := range out {
		ids[i] = r.ID
	}
	return ids
}

func (d *Dispatcher) forget(cmd *command.Command) {
	delete(d.byCommand, cmd)
	if c, ok := d.watches[cmd]; ok {
		cmd.Destroying.Disconnect(c)
		delete(d.watches, cmd)
	}
}

// IsRegistered reports whether id names a live handler.
func (d *Dispatcher) IsRegistered(id uuid.UUID) bool {
	_, ok := d.records[id]
	return ok
}

// --- Filters and interceptors ---

// AddFilter installs a global filter consulted before every dispatch.
// Filters run in priority order, highest first.
func (d *Dispatcher) AddFilter(f Filter, p Priority) uuid.UUID {
	if f == nil {
		return uuid.Nil
	}
	d.seq++
	id := uuid.New()
	d.filters = append(d.filters, globalFilter{id: id, fn: f, priority: p, seq: d.seq})
	slices.SortStableFunc(d.filters, func(a, b globalFilter) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return id
}

// RemoveFilter drops a global filter.
func (d *Dispatcher) RemoveFilter(id uuid.UUID) bool {
	for i, f := range d.filters {
		if f.id == id {
			d.filters = slices.Delete(d.filters, i, i+1)
			return true
		}
	}
	return false
}

// SetInterceptor installs fn for events of type t, replacing any previous
// interceptor. A nil fn removes it.
func (d *Dispatcher) SetInterceptor(t Type, fn Interceptor) {
	if fn == nil {
		delete(d.interceptors, t)
		return
	}
	d.interceptors[t] = fn
}

// --- Dispatch ---

// Dispatch delivers e now in direct mode, or enqueues it in queued mode.
func (d *Dispatcher) Dispatch(e *Event) error {
	if e == nil {
		return ErrNilEvent
	}
	if d.queued {
		return d.enqueue(e)
	}
	d.deliver(e)
	return nil
}

// DispatchNow delivers e immediately regardless of mode.
func (d *Dispatcher) DispatchNow(e *Event) error {
	if e == nil {
		return ErrNilEvent
	}
	d.deliver(e)
	return nil
}

func (d *Dispatcher) deliver(e *Event) {
	d.depth++
	defer func() {
		d.depth--
		if d.depth == 0 {
			d.runDeferred()
		}
	}()

	for _, f := range slices.Clone(d.filters) {
		if !d.pass(f.fn, e) {
			d.log.Debug("event: dropped by global filter", "event", e)
			return
		}
	}

	if ic := d.interceptors[e.Type]; ic != nil {
		d.intercept(ic, e)
		if e.stopped {
			return
		}
	}

	for _, r := range d.candidates(e) {
		if e.stopped {
			break
		}
		if _, live := d.records[r.ID]; !live {
			continue
		}
		if r.filter != nil && !d.pass(r.filter, e) {
			continue
		}
		// Once-handlers leave the registry before running so a re-entrant
		// dispatch of the same event type cannot invoke them twice.
		if r.Once {
			d.Unregister(r.ID)
		}
		d.invoke(r, e)
	}
	d.Dispatched.Emit(e)
}

func (d *Dispatcher) candidates(e *Event) []*record {
	var out []*record
	for id := range d.byCommand[e.Source] {
		if r := d.records[id]; r != nil && r.Type == e.Type {
			out = append(out, r)
		}
	}
	slices.SortFunc(out, func(a, b *record) int {
		if c := cmp.Compare(b.Priority, a.Priority); c != 0 {
			return c
		}
		return cmp.Compare(a.seq, b.seq)
	})
	return out
}

func (d *Dispatcher) invoke(r *record, e *Event) {
	var err error
	func() {
		defer func() {
			if p := recover(); p != nil {
				err = fmt.Errorf("panic: %v", p)
			}
		}()
		err = r.handler(e)
	}()
	if err != nil {
		he := HandlingError{Event: e, HandlerID: r.ID, Err: err}
		d.log.Error("event: handler failed", "event", e, "handler", r.ID, "err", err)
		d.HandlingError.Emit(he)
	}
}

func (d *Dispatcher) pass(f Filter, e *Event) (ok bool) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error("event: filter panicked", "event", e, "panic", p)
			ok = false
		}
	}()
	return f(e)
}

func (d *Dispatcher) intercept(ic Interceptor, e *Event) {
	defer func() {
		if p := recover(); p != nil {
			d.log.Error("event: interceptor panicked", "event", e, "panic", p)
			d.HandlingError.Emit(HandlingError{Event: e, Err: fmt.Errorf("interceptor panic: %v", p)})
		}
	}()
	ic(e)
}

// Depth returns the current dispatch nesting depth.
func (d *Dispatcher) Depth() int { return d.depth }

// DeleteLater destroys cmd once the outermost dispatch completes, or
// immediately when no dispatch is running.
func (d *Dispatcher) DeleteLater(cmd *command.Command) {
	if cmd == nil {
		return
	}
	if d.depth == 0 {
		cmd.Destroy()
		return
	}
	if !slices.Contains(d.deferred, cmd) {
		d.deferred = append(d.deferred, cmd)
	}
}

func (d *Dispatcher) runDeferred() {
	for len(d.deferred) > 0 {
		batch := d.deferred
		d.deferred = nil
		for _, c := range batch {
			c.Destroy()
		}
	}
}

// --- Queue ---

// SetQueued switches between direct and queued mode. Leaving queued mode
// leaves pending events to the scheduled drain.
func (d *Dispatcher) SetQueued(on bool) { d.queued = on }

func (d *Dispatcher) Queued() bool { return d.queued }

// SetMaxQueueSize changes the queue bound.
func (d *Dispatcher) SetMaxQueueSize(n int) {
	if n > 0 {
		d.maxQueue = n
	}
}

// QueueLen returns the number of pending events.
func (d *Dispatcher) QueueLen() int { return len(d.queue) }

// Flush discards every pending event and returns how many were dropped.
func (d *Dispatcher) Flush() int {
	n := len(d.queue)
	d.queue = nil
	return n
}

func (d *Dispatcher) enqueue(e *Event) error {
	if len(d.queue) >= d.maxQueue {
		d.log.Warn("event: queue full, dropping event", "event", e, "max", d.maxQueue)
		return fmt.Errorf("%w: %d pending", ErrQueueFull, len(d.queue))
	}
	d.queue = append(d.queue, e)
	d.scheduleDrain()
	return nil
}

func (d *Dispatcher) scheduleDrain() {
	if d.drainScheduled {
		return
	}
	d.drainScheduled = true
	d.poster.Post(d.drainOne)
}

// drainOne delivers the oldest queued event and yields back to the loop
// before the next one.
func (d *Dispatcher) drainOne() {
	d.drainScheduled = false
	if len(d.queue) == 0 {
		return
	}
	e := d.queue[0]
	d.queue[0] = nil
	d.queue = d.queue[1:]
	d.deliver(e)
	if len(d.queue) > 0 {
		d.scheduleDrain()
	}
}

// --- Statistics ---

// HandlerCount returns the number of handlers for cmd and t.
func (d *Dispatcher) HandlerCount(cmd *command.Command, t Type) int {
	n := 0
	for id := range d.byCommand[cmd] {
		if r := d.records[id]; r != nil && r.Type == t {
			n++
		}
	}
	return n
}

// TotalHandlerCount returns the number of live handlers.
func (d *Dispatcher) TotalHandlerCount() int { return len(d.records) }

// RegisteredTypes returns the sorted event types with handlers on cmd.
func (d *Dispatcher) RegisteredTypes(cmd *command.Command) []Type {
	seen := map[Type]bool{}
	var out []Type
	for id := range d.byCommand[cmd] {
		if r := d.records[id]; r != nil && !seen[r.Type] {
			seen[r.Type] = true
			out = append(out, r.Type)
		}
	}
	slices.Sort(out)
	return out
}

// --- Convenience ---

// OnClick registers fn for clicks on cmd at normal priority.
func (d *Dispatcher) OnClick(cmd *command.Command, fn func(e *Event)) uuid.UUID {
	return d.Register(cmd, Clicked, func(e *Event) error { fn(e); return nil }, Normal)
}

// OnValueChanged registers fn for value changes on cmd.
func (d *Dispatcher) OnValueChanged(cmd *command.Command, fn func(old, next value.Value)) uuid.UUID {
	return d.Register(cmd, ValueChanged, func(e *Event) error {
		fn(e.OldValue(), e.NewValue())
		return nil
	}, Normal)
}

// OnTextChanged registers fn for text changes on cmd.
func (d *Dispatcher) OnTextChanged(cmd *command.Command, fn func(text string)) uuid.UUID {
	return d.Register(cmd, TextChanged, func(e *Event) error {
		fn(e.NewText())
		return nil
	}, Normal)
}

// DispatchClick dispatches a left click from cmd.
func (d *Dispatcher) DispatchClick(cmd *command.Command) error {
	return d.Dispatch(NewClick(cmd, "left", 0, 0, 0))
}

// DispatchValueChange dispatches a valueChanged event from cmd.
func (d *Dispatcher) DispatchValueChange(cmd *command.Command, old, next value.Value) error {
	return d.Dispatch(NewValueChange(cmd, old, next))
}
