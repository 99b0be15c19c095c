package mapper

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/event"
	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/signal"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

var (
	// ErrMappingMissing is returned when no mapping exists for a type.
	ErrMappingMissing = errors.New("mapper: no mapping for type")

	// ErrProjectionFailed wraps per-property projection and extraction
	// failures.
	ErrProjectionFailed = errors.New("mapper: projection failed")

	// ErrAlreadyBound is returned when a command already has a widget.
	ErrAlreadyBound = errors.New("mapper: command already bound")

	// ErrNotBound is returned for operations that need a bound command.
	ErrNotBound = errors.New("mapper: command not bound")
)

// Ownership says who disposes a paired widget.
type Ownership int

const (
	// OwnedByMapper widgets are disposed when their pairing ends.
	OwnedByMapper Ownership = iota
	// OwnedByTree widgets were handed to the widget of the parent command
	// and are disposed with the pairing as part of that tree.
	OwnedByTree
	// OwnedExternally widgets belong to someone else and are only unpaired.
	OwnedExternally
)

// EventSink receives events forwarded from widget signals.
type EventSink interface {
	Dispatch(e *event.Event) error
}

// Pair names a command and its widget in signal payloads.
type Pair struct {
	Command *command.Command
	Widget  native.Widget
}

// SyncError reports a property that failed to project or extract.
type SyncError struct {
	Command  *command.Command
	Property string
	Err      error
}

func (e SyncError) Error() string {
	return fmt.Sprintf("mapper: sync %s.%s: %v", e.Command.Type(), e.Property, e.Err)
}

func (e SyncError) Unwrap() error { return e.Err }

type pairing struct {
	cmd     *command.Command
	widget  native.Widget
	mapping *Mapping
	own     Ownership

	widgetConns []native.Connection
	changed     signal.Conn
	removed     signal.Conn
	childAdded  signal.Conn
	childGone   signal.Conn
	destroying  signal.Conn

	extracting int
}

// Options configures a Mapper.
type Options struct {
	Logger  *slog.Logger
	Toolkit native.Toolkit
	// Sink receives forwarded events, usually the event dispatcher.
	Sink EventSink
	// SkipBuiltins leaves the registry empty.
	SkipBuiltins bool
}

// Mapper owns the command to widget pairing.
type Mapper struct {
	log      *slog.Logger
	toolkit  native.Toolkit
	sink     EventSink
	mappings map[string]*Mapping
	pairs    map[*command.Command]*pairing
	byWidget map[native.Widget]*command.Command

	WidgetCreated      signal.Signal[Pair]
	WidgetDestroyed    signal.Signal[Pair]
	BindingEstablished signal.Signal[Pair]
	BindingRemoved     signal.Signal[Pair]
	SyncError          signal.Signal[SyncError]
}

// New returns a Mapper with the builtin mappings installed unless
// opts.SkipBuiltins is set.
func New(opts Options) *Mapper {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	m := &Mapper{
		log:      opts.Logger,
		toolkit:  opts.Toolkit,
		sink:     opts.Sink,
		mappings: make(map[string]*Mapping),
		pairs:    make(map[*command.Command]*pairing),
		byWidget: make(map[native.Widget]*command.Command),
	}
	if !opts.SkipBuiltins {
		for _, mp := range Builtin() {
			_ = m.Register(mp)
		}
	}
	return m
}

// SetSink replaces the event sink.
func (m *Mapper) SetSink(s EventSink) { m.sink = s }

// --- Registry ---

// Register installs or replaces the mapping for mp.Type.
func (m *Mapper) Register(mp Mapping) error {
	if mp.Type == "" {
		return errors.New("mapper: mapping has empty type")
	}
	if mp.Class == "" && mp.Factory == nil {
		return fmt.Errorf("mapper: mapping %q has neither class nor factory", mp.Type)
	}
	mp.Properties = slices.Clone(mp.Properties)
	mp.Events = slices.Clone(mp.Events)
	m.mappings[mp.Type] = &mp
	return nil
}

// Unregister removes the mapping for typ.
func (m *Mapper) Unregister(typ string) bool {
	if _, ok := m.mappings[typ]; !ok {
		return false
	}
	delete(m.mappings, typ)
	return true
}

// HasMapping reports whether typ can be materialized.
func (m *Mapper) HasMapping(typ string) bool {
	_, ok := m.mappings[typ]
	return ok
}

// NativeClass returns the widget class mapped to typ.
func (m *Mapper) NativeClass(typ string) (string, bool) {
	mp, ok := m.mappings[typ]
	if !ok {
		return "", false
	}
	return mp.Class, true
}

// Mapping returns a copy of the mapping for typ.
func (m *Mapper) Mapping(typ string) (Mapping, bool) {
	mp, ok := m.mappings[typ]
	if !ok {
		return Mapping{}, false
	}
	return *mp, true
}

// Types returns the sorted mapped type names.
func (m *Mapper) Types() []string {
	ts := slices.Collect(maps.Keys(m.mappings))
	sort.Strings(ts)
	return ts
}

// --- Queries ---

// CommandFor returns the command paired with w.
func (m *Mapper) CommandFor(w native.Widget) *command.Command { return m.byWidget[w] }

// WidgetFor returns the widget paired with c.
func (m *Mapper) WidgetFor(c *command.Command) native.Widget {
	if p, ok := m.pairs[c]; ok {
		return p.widget
	}
	return nil
}

// IsBound reports whether c is paired.
func (m *Mapper) IsBound(c *command.Command) bool {
	_, ok := m.pairs[c]
	return ok
}

// BoundCount returns the number of live pairings.
func (m *Mapper) BoundCount() int { return len(m.pairs) }

// Ownership returns who disposes c's widget.
func (m *Mapper) Ownership(c *command.Command) (Ownership, bool) {
	p, ok := m.pairs[c]
	if !ok {
		return 0, false
	}
	return p.own, true
}

// --- Creation ---

// CreateWidget materializes c and, after it, every child in order. The
// returned handle owns the widget until TransferTo is called.
func (m *Mapper) CreateWidget(c *command.Command) (*Handle, error) {
	if c == nil {
		return nil, errors.New("mapper: nil command")
	}
	if c.IsDestroyed() {
		return nil, command.ErrDestroyed
	}
	if _, ok := m.pairs[c]; ok {
		return nil, fmt.Errorf("%w: %v", ErrAlreadyBound, c)
	}
	mp, ok := m.mappings[c.Type()]
	if !ok {
		m.log.Error("mapper: no mapping for command type", "type", c.Type(), "command", c)
		return nil, fmt.Errorf("%w: %q", ErrMappingMissing, c.Type())
	}
	w, err := m.build(mp)
	if err != nil {
		m.log.Error("mapper: widget factory failed", "type", c.Type(), "class", mp.Class, "err", err)
		return nil, fmt.Errorf("mapper: create %s: %w", c.Type(), err)
	}
	if mp.Setup != nil {
		if err := mp.Setup(c, w); err != nil {
			w.Dispose()
			m.log.Error("mapper: widget setup failed", "type", c.Type(), "err", err)
			return nil, fmt.Errorf("mapper: setup %s: %w", c.Type(), err)
		}
	}

	p := &pairing{cmd: c, widget: w, mapping: mp, own: OwnedByMapper}
	m.attach(p)
	m.log.Debug("mapper: widget created", "command", c, "class", w.Class())
	m.WidgetCreated.Emit(Pair{Command: c, Widget: w})

	for _, ch := range c.Children() {
		m.materializeChild(p, ch)
	}
	return &Handle{m: m, cmd: c, widget: w}, nil
}

func (m *Mapper) build(mp *Mapping) (native.Widget, error) {
	if mp.Factory != nil {
		return mp.Factory()
	}
	if m.toolkit == nil {
		return nil, errors.New("mapper: no toolkit configured")
	}
	return m.toolkit.New(mp.Class)
}

func (m *Mapper) materializeChild(parent *pairing, ch *command.Command) {
	if cp, ok := m.pairs[ch]; ok {
		if err := parent.widget.AddChild(cp.widget); err != nil {
			m.log.Warn("mapper: reparent child widget", "parent", parent.cmd, "child", ch, "err", err)
			return
		}
		cp.own = OwnedByTree
		return
	}
	h, err := m.CreateWidget(ch)
	if err != nil {
		m.log.Warn("mapper: child not materialized", "parent", parent.cmd, "child", ch, "err", err)
		return
	}
	if err := parent.widget.AddChild(h.widget); err != nil {
		m.log.Warn("mapper: attach child widget", "parent", parent.cmd, "child", ch, "err", err)
		return
	}
	m.pairs[ch].own = OwnedByTree
}

// EstablishBinding pairs c with an externally created widget. The widget
// is never disposed by the mapper. Children are not materialized.
func (m *Mapper) EstablishBinding(c *command.Command, w native.Widget) (*Handle, error) {
	switch {
	case c == nil || w == nil:
		return nil, errors.New("mapper: nil command or widget")
	case c.IsDestroyed():
		return nil, command.ErrDestroyed
	case w.Disposed():
		return nil, native.ErrDisposed
	}
	if _, ok := m.pairs[c]; ok {
		return nil, fmt.Errorf("%w: %v", ErrAlreadyBound, c)
	}
	if other, ok := m.byWidget[w]; ok {
		return nil, fmt.Errorf("mapper: widget already paired with %v", other)
	}
	p := &pairing{cmd: c, widget: w, mapping: m.mappings[c.Type()], own: OwnedExternally}
	m.attach(p)
	return &Handle{m: m, cmd: c, widget: w}, nil
}

// attach projects state, then wires events and change subscriptions.
func (m *Mapper) attach(p *pairing) {
	c, w := p.cmd, p.widget
	m.pairs[c] = p
	m.byWidget[w] = c

	if err := c.OnWidgetAttached(w, m); err != nil {
		m.log.Warn("mapper: initial projection incomplete", "command", c, "err", err)
	}

	if p.mapping != nil {
		for _, ew := range p.mapping.Events {
			conn, err := w.Connect(ew.Signal, func(args ...value.Value) {
				m.fire(c, ew, args)
			})
			if err != nil {
				m.log.Warn("mapper: signal not wired", "command", c, "signal", ew.Signal, "err", err)
				continue
			}
			p.widgetConns = append(p.widgetConns, conn)
		}
	}
	if conn, err := w.Connect(native.SignalDestroyed, func(...value.Value) { m.widgetGone(c) }); err == nil {
		p.widgetConns = append(p.widgetConns, conn)
	}

	p.changed = c.State().PropertyChanged.Connect(func(pc command.PropertyChange) {
		m.propertyChanged(c, pc.Name)
	})
	p.removed = c.State().PropertyRemoved.Connect(func(name string) {
		m.propertyChanged(c, name)
	})
	p.childAdded = c.ChildAdded.Connect(func(ch *command.Command) {
		if pp, ok := m.pairs[c]; ok {
			m.materializeChild(pp, ch)
		}
	})
	p.childGone = c.ChildRemoved.Connect(func(ch *command.Command) {
		if cp, ok := m.pairs[ch]; ok && cp.own == OwnedByTree {
			_ = m.DestroyWidget(ch)
		}
	})
	p.destroying = c.Destroying.Connect(func(c *command.Command) {
		_ = m.DestroyWidget(c)
	})
	m.BindingEstablished.Emit(Pair{Command: c, Widget: w})
}

func (m *Mapper) propertyChanged(c *command.Command, name string) {
	p, ok := m.pairs[c]
	if !ok || p.extracting > 0 {
		return
	}
	_ = c.SyncToWidget(name)
}

// fire forwards a widget signal: synced properties are extracted, the
// command's local handlers run, then the event goes to the sink.
func (m *Mapper) fire(c *command.Command, ew EventWiring, args []value.Value) {
	p, ok := m.pairs[c]
	if !ok {
		return
	}
	prev := make(map[string]value.Value, len(ew.Sync))
	for _, n := range ew.Sync {
		prev[n], _ = c.State().Value(n)
	}
	if len(ew.Sync) > 0 {
		_ = c.SyncFromWidget(ew.Sync...)
	}
	build := ew.Build
	if build == nil {
		build = DefaultPayload
	}
	data := build(FireContext{Command: c, Widget: p.widget, Args: args, Previous: prev})
	c.HandleEvent(string(ew.Event), value.Map(data))
	if m.sink == nil || c.IsDestroyed() {
		return
	}
	if err := m.sink.Dispatch(event.New(ew.Event, c, data)); err != nil {
		m.log.Warn("mapper: event not dispatched", "command", c, "event", ew.Event, "err", err)
	}
}

// --- Projection ---

// Project implements command.Projector. Mapped properties go through
// their projection; others are set reflectively. Each failure is reported
// on SyncError and the remaining properties still project.
func (m *Mapper) Project(c *command.Command, names []string) error {
	p, ok := m.pairs[c]
	if !ok {
		return ErrNotBound
	}
	if names == nil {
		names = m.projectionOrder(p)
	}
	var errs []error
	for _, n := range names {
		v, _ := c.State().Value(n)
		var err error
		if pm, ok := p.property(n); ok {
			err = pm.project(p.widget, v)
		} else {
			err = p.widget.SetProperty(n, v)
		}
		if err != nil {
			errs = append(errs, m.syncFailed(c, n, err))
		}
	}
	return errors.Join(errs...)
}

// Extract implements command.Projector. With nil names every
// bidirectional mapped property is read back. Values rejected by the
// command's validators are re-projected so both sides agree.
func (m *Mapper) Extract(c *command.Command, names []string) error {
	p, ok := m.pairs[c]
	if !ok {
		return ErrNotBound
	}
	if names == nil && p.mapping != nil {
		for _, pm := range p.mapping.Properties {
			if pm.Bidirectional {
				names = append(names, pm.Property)
			}
		}
	}
	p.extracting++
	defer func() { p.extracting-- }()

	var errs []error
	for _, n := range names {
		var (
			v   value.Value
			err error
		)
		pm, mapped := p.property(n)
		if mapped {
			v, err = pm.extract(p.widget)
		} else {
			var ok bool
			if v, ok = p.widget.Property(n); !ok {
				continue
			}
		}
		if err != nil {
			errs = append(errs, m.syncFailed(c, n, err))
			continue
		}
		if !v.IsValid() {
			continue
		}
		if err := c.State().Set(n, v); err != nil {
			errs = append(errs, err)
			cur, _ := c.State().Value(n)
			if mapped {
				_ = pm.project(p.widget, cur)
			} else {
				_ = p.widget.SetProperty(n, cur)
			}
		}
	}
	return errors.Join(errs...)
}

func (p *pairing) property(name string) (PropertyMapping, bool) {
	if p.mapping == nil {
		return PropertyMapping{}, false
	}
	return p.mapping.property(name)
}

func (m *Mapper) projectionOrder(p *pairing) []string {
	st := p.cmd.State()
	seen := make(map[string]bool)
	var names []string
	if p.mapping != nil {
		for _, pm := range p.mapping.Properties {
			if st.Has(pm.Property) && !seen[pm.Property] {
				seen[pm.Property] = true
				names = append(names, pm.Property)
			}
		}
	}
	for _, n := range st.Names() {
		if !seen[n] {
			names = append(names, n)
		}
	}
	return names
}

func (m *Mapper) syncFailed(c *command.Command, prop string, err error) error {
	se := SyncError{Command: c, Property: prop, Err: err}
	m.log.Warn("mapper: property sync failed", "command", c, "property", prop, "err", err)
	m.SyncError.Emit(se)
	return fmt.Errorf("%w: %s.%s: %w", ErrProjectionFailed, c.Type(), prop, err)
}

// SyncToWidget projects one property of a bound command.
func (m *Mapper) SyncToWidget(c *command.Command, prop string) error {
	if !m.IsBound(c) {
		return ErrNotBound
	}
	return c.SyncToWidget(prop)
}

// SyncFromWidget extracts one property of a bound command.
func (m *Mapper) SyncFromWidget(c *command.Command, prop string) error {
	if !m.IsBound(c) {
		return ErrNotBound
	}
	return c.SyncFromWidget(prop)
}

// --- Teardown ---

// DestroyWidget ends c's pairing, children first. Signal wiring is
// removed before extraction; the widget is disposed last unless it is
// externally owned. Calling it on an unbound command does nothing.
func (m *Mapper) DestroyWidget(c *command.Command) error {
	p, ok := m.pairs[c]
	if !ok {
		return nil
	}
	for _, ch := range c.Children() {
		if _, bound := m.pairs[ch]; bound {
			_ = m.DestroyWidget(ch)
		}
	}
	if _, still := m.pairs[c]; !still {
		return nil
	}

	for _, conn := range p.widgetConns {
		p.widget.Disconnect(conn)
	}
	c.State().PropertyChanged.Disconnect(p.changed)
	c.State().PropertyRemoved.Disconnect(p.removed)
	c.ChildAdded.Disconnect(p.childAdded)
	c.ChildRemoved.Disconnect(p.childGone)
	c.Destroying.Disconnect(p.destroying)

	err := c.OnWidgetDetached()

	delete(m.pairs, c)
	delete(m.byWidget, p.widget)
	pair := Pair{Command: c, Widget: p.widget}
	m.BindingRemoved.Emit(pair)

	if p.own != OwnedExternally {
		p.widget.Dispose()
		m.log.Debug("mapper: widget destroyed", "command", c, "class", p.widget.Class())
		m.WidgetDestroyed.Emit(pair)
	}
	return err
}

// RemoveBinding unpairs c without disposing its widget.
func (m *Mapper) RemoveBinding(c *command.Command) error {
	p, ok := m.pairs[c]
	if !ok {
		return nil
	}
	p.own = OwnedExternally
	return m.DestroyWidget(c)
}

// widgetGone handles a widget disposed behind the mapper's back.
func (m *Mapper) widgetGone(c *command.Command) {
	if p, ok := m.pairs[c]; ok {
		p.own = OwnedExternally
		_ = m.DestroyWidget(c)
	}
}

// Shutdown ends every pairing.
func (m *Mapper) Shutdown() {
	for len(m.pairs) > 0 {
		for c := range m.pairs {
			_ = m.DestroyWidget(c.Root())
			if _, ok := m.pairs[c]; ok {
				_ = m.DestroyWidget(c)
			}
			break
		}
	}
}
