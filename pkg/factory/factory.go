// Package factory creates commands by type name and builds command trees
// from configuration nodes.
package factory

import (
	"errors"
	"fmt"
	"log/slog"
	"maps"

	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/signal"
	"gitlab.com/tinyland/lab/declui/pkg/value"
)

var (
	// ErrTypeUnknown is returned when a type name has no registry entry.
	ErrTypeUnknown = errors.New("factory: unknown type")

	// ErrHandlerUnknown is returned when a configuration names a handler
	// that was never registered.
	ErrHandlerUnknown = errors.New("factory: unknown handler")
)

// Constructor builds an empty command for meta. Defaults are seeded by the
// factory afterwards.
type Constructor func(meta command.Metadata) *command.Command

// HandlerFunc is a named event handler referenced from configuration
// trees.
type HandlerFunc func(c *command.Command, data value.Value)

// CreationFailure describes a type that could not be created.
type CreationFailure struct {
	Type string
	Err  error
}

type entry struct {
	meta command.Metadata
	ctor Constructor
}

// Options configures a Factory.
type Options struct {
	Logger *slog.Logger
	// SkipBuiltins leaves the registry empty.
	SkipBuiltins bool
}

// Factory is the type registry. It is not safe for concurrent use.
type Factory struct {
	log      *slog.Logger
	types    map[string]*entry
	handlers map[string]HandlerFunc

	Registered     signal.Signal[string]
	Created        signal.Signal[*command.Command]
	CreationFailed signal.Signal[CreationFailure]
}

// New returns a Factory with the builtin types registered unless
// opts.SkipBuiltins is set.
func New(opts Options) *Factory {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	f := &Factory{
		log:      opts.Logger,
		types:    make(map[string]*entry),
		handlers: make(map[string]HandlerFunc),
	}
	if !opts.SkipBuiltins {
		for _, meta := range Builtin() {
			_ = f.RegisterType(meta, command.New)
		}
	}
	return f
}

// --- Registry ---

// RegisterType installs or replaces the entry for meta.Type.
func (f *Factory) RegisterType(meta command.Metadata, ctor Constructor) error {
	if err := meta.Validate(); err != nil {
		return fmt.Errorf("factory: register: %w", err)
	}
	if ctor == nil {
		return fmt.Errorf("factory: register %s: nil constructor", meta.Type)
	}
	f.types[meta.Type] = &entry{meta: meta.Clone(), ctor: ctor}
	f.log.Debug("factory: type registered", "type", meta.Type)
	f.Registered.Emit(meta.Type)
	return nil
}

// Unregister removes a type and reports whether it existed.
func (f *Factory) Unregister(typ string) bool {
	if _, ok := f.types[typ]; !ok {
		return false
	}
	delete(f.types, typ)
	return true
}

// IsRegistered reports whether typ has an entry.
func (f *Factory) IsRegistered(typ string) bool {
	_, ok := f.types[typ]
	return ok
}

// Metadata returns a copy of the metadata registered for typ.
func (f *Factory) Metadata(typ string) (command.Metadata, bool) {
	e, ok := f.types[typ]
	if !ok {
		return command.Metadata{}, false
	}
	return e.meta.Clone(), true
}

// Types returns the registered type names, sorted.
func (f *Factory) Types() []string { return sortedKeys(f.types) }

// SetDefaults merges props into the defaults of typ.
func (f *Factory) SetDefaults(typ string, props map[string]any) error {
	e, ok := f.types[typ]
	if !ok {
		return fmt.Errorf("%w: %s", ErrTypeUnknown, typ)
	}
	if e.meta.Defaults == nil {
		e.meta.Defaults = make(map[string]any, len(props))
	}
	maps.Copy(e.meta.Defaults, props)
	return nil
}

// RegisterHandler names fn for use in configuration trees.
func (f *Factory) RegisterHandler(name string, fn HandlerFunc) {
	if fn == nil {
		delete(f.handlers, name)
		return
	}
	f.handlers[name] = fn
}

// Handler returns the handler registered under name.
func (f *Factory) Handler(name string) (HandlerFunc, bool) {
	fn, ok := f.handlers[name]
	return fn, ok
}

// Handlers returns the registered handler names, sorted.
func (f *Factory) Handlers() []string { return sortedKeys(f.handlers) }

// --- Creation ---

// Create builds a command of typ with its default properties.
func (f *Factory) Create(typ string) (*command.Command, error) {
	e, ok := f.types[typ]
	if !ok {
		err := fmt.Errorf("%w: %s", ErrTypeUnknown, typ)
		f.fail(typ, err)
		return nil, err
	}
	c := e.ctor(e.meta.Clone())
	if c == nil {
		err := fmt.Errorf("factory: create %s: constructor returned nil", typ)
		f.fail(typ, err)
		return nil, err
	}
	for _, k := range sortedKeys(e.meta.Defaults) {
		if err := c.State().Set(k, e.meta.Defaults[k]); err != nil {
			f.log.Warn("factory: default rejected", "type", typ, "property", k, "err", err)
		}
	}
	f.Created.Emit(c)
	return c, nil
}

// CreateWithConfig builds a command of typ and writes config over its
// defaults. The reserved keys "type" and "children" are skipped. Rejected
// properties are logged; the command is still returned.
func (f *Factory) CreateWithConfig(typ string, config map[string]any) (*command.Command, error) {
	c, err := f.Create(typ)
	if err != nil {
		return nil, err
	}
	for _, k := range sortedKeys(config) {
		if k == KeyType || k == KeyChildren {
			continue
		}
		f.setProperty(c, k, config[k])
	}
	return c, nil
}

// CreateMany creates one command per type. Unknown types are skipped and
// their errors joined.
func (f *Factory) CreateMany(types ...string) ([]*command.Command, error) {
	var out []*command.Command
	var errs []error
	for _, typ := range types {
		c, err := f.Create(typ)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errors.Join(errs...)
}

// CreateHierarchy builds the tree described by n. Children of an unknown
// type are skipped with their subtree and logged; only an unknown root
// fails the call.
func (f *Factory) CreateHierarchy(n Node) (*command.Command, error) {
	c, err := f.Create(n.Type)
	if err != nil {
		return nil, err
	}
	for _, k := range sortedKeys(n.Properties) {
		f.setProperty(c, k, n.Properties[k])
	}
	for _, prop := range sortedKeys(n.Bindings) {
		c.BindToState(n.Bindings[prop], prop)
	}
	for _, ev := range sortedKeys(n.Events) {
		if err := f.wire(c, ev, n.Events[ev]); err != nil {
			f.log.Warn("factory: event not wired", "type", n.Type, "event", ev, "err", err)
		}
	}
	for i, child := range n.Children {
		cc, err := f.CreateHierarchy(child)
		if err != nil {
			f.log.Error("factory: child skipped", "parent", n.Type, "index", i, "err", err)
			continue
		}
		if err := c.AddChild(cc); err != nil {
			f.log.Error("factory: child not attached", "parent", n.Type, "index", i, "err", err)
			cc.Destroy()
		}
	}
	return c, nil
}

// CreateHierarchyFromTree parses a decoded document and builds it.
func (f *Factory) CreateHierarchyFromTree(tree map[string]any) (*command.Command, error) {
	n, err := ParseNode(tree)
	if err != nil {
		return nil, err
	}
	return f.CreateHierarchy(n)
}

// CreateFromNodes builds each tree. Failed roots are skipped and their
// errors joined.
func (f *Factory) CreateFromNodes(nodes []Node) ([]*command.Command, error) {
	var out []*command.Command
	var errs []error
	for _, n := range nodes {
		c, err := f.CreateHierarchy(n)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		out = append(out, c)
	}
	return out, errors.Join(errs...)
}

// ValidateConfig lists the problems CreateHierarchy would work around:
// unknown types, missing required properties and unknown handlers. An
// empty result means the tree builds completely.
func (f *Factory) ValidateConfig(n Node) []string {
	var problems []string
	n.Walk(func(path string, n Node) {
		e, ok := f.types[n.Type]
		if !ok {
			problems = append(problems, fmt.Sprintf("%s: unknown type %q", path, n.Type))
			return
		}
		for _, req := range e.meta.Required {
			_, inConfig := n.Properties[req]
			_, inDefaults := e.meta.Defaults[req]
			if !inConfig && !inDefaults {
				problems = append(problems, fmt.Sprintf("%s: required property %q missing", path, req))
			}
		}
		for _, ev := range sortedKeys(n.Events) {
			if _, ok := f.handlers[n.Events[ev]]; !ok {
				problems = append(problems, fmt.Sprintf("%s: event %q names unknown handler %q", path, ev, n.Events[ev]))
			}
		}
	})
	return problems
}

func (f *Factory) setProperty(c *command.Command, name string, v any) {
	if err := c.State().Set(name, v); err != nil {
		f.log.Warn("factory: property rejected", "type", c.Type(), "property", name, "err", err)
	}
}

func (f *Factory) wire(c *command.Command, eventType, name string) error {
	fn, ok := f.handlers[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrHandlerUnknown, name)
	}
	c.On(eventType, func(data value.Value) { fn(c, data) })
	return nil
}

func (f *Factory) fail(typ string, err error) {
	f.log.Error("factory: creation failed", "type", typ, "err", err)
	f.CreationFailed.Emit(CreationFailure{Type: typ, Err: err})
}
