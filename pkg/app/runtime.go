// Package app wires the declui services into one runtime: the factory, the
// widget mapper, the event dispatcher, the external state store and the
// binding adapter between them. Everything is created by New and torn down
// by Shutdown; nothing is global.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"sync/atomic"

	"gitlab.com/tinyland/lab/declui/pkg/binding"
	"gitlab.com/tinyland/lab/declui/pkg/command"
	"gitlab.com/tinyland/lab/declui/pkg/config"
	"gitlab.com/tinyland/lab/declui/pkg/event"
	"gitlab.com/tinyland/lab/declui/pkg/factory"
	"gitlab.com/tinyland/lab/declui/pkg/loader"
	"gitlab.com/tinyland/lab/declui/pkg/loop"
	"gitlab.com/tinyland/lab/declui/pkg/mapper"
	"gitlab.com/tinyland/lab/declui/pkg/native"
	"gitlab.com/tinyland/lab/declui/pkg/store"
	"gitlab.com/tinyland/lab/declui/pkg/termkit"
	"gitlab.com/tinyland/lab/declui/pkg/theme"
)

// ErrClosed is returned by operations on a runtime after Shutdown.
var ErrClosed = errors.New("app: runtime shut down")

// Options configures a Runtime. Zero fields take their defaults.
type Options struct {
	// Config defaults to config.DefaultConfig().
	Config *config.Config
	Logger *slog.Logger
	// Poster receives store notifications and queued dispatch drains.
	// Defaults to loop.Immediate. Run replaces it with the terminal host
	// while the host is running.
	Poster loop.Poster
	// Toolkit defaults to the termkit widget registry.
	Toolkit native.Toolkit
	// Persister overrides the backend selected by Config.Store.
	Persister store.Persister
}

// relay forwards to a poster that can be swapped while other goroutines
// post.
type relay struct {
	cur atomic.Pointer[posterBox]
}

type posterBox struct{ loop.Poster }

func newRelay(p loop.Poster) *relay {
	r := &relay{}
	r.cur.Store(&posterBox{p})
	return r
}

func (r *relay) Post(fn func()) { r.cur.Load().Post(fn) }

func (r *relay) swap(p loop.Poster) loop.Poster { return r.cur.Swap(&posterBox{p}).Poster }

// Runtime owns one set of services.
type Runtime struct {
	cfg    *config.Config
	log    *slog.Logger
	poster *relay
	theme  theme.Theme

	Factory    *factory.Factory
	Mapper     *mapper.Mapper
	Dispatcher *event.Dispatcher
	Store      *store.Store
	Binding    *binding.Adapter

	roots     []*command.Command
	stopFlush context.CancelFunc
	flushDone chan error
	closed    bool
}

// New builds the services, loads persisted state and starts the periodic
// flusher when the store is persistent.
func New(ctx context.Context, opts Options) (*Runtime, error) {
	if opts.Config == nil {
		opts.Config = config.DefaultConfig()
	}
	if err := opts.Config.Validate(); err != nil {
		return nil, err
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Poster == nil {
		opts.Poster = loop.Immediate{}
	}
	if opts.Toolkit == nil {
		opts.Toolkit = termkit.Toolkit()
	}
	cfg := opts.Config
	log := opts.Logger

	p := opts.Persister
	if p == nil {
		var err error
		if p, err = openPersister(cfg.Store); err != nil {
			return nil, err
		}
	}

	th, err := loadTheme(cfg.Theme)
	if err != nil {
		log.Warn("app: theme not loaded, using default", "err", err)
		th = theme.Default()
	}

	rt := &Runtime{
		cfg:    cfg,
		log:    log,
		poster: newRelay(opts.Poster),
		theme:  th,
	}
	rt.Factory = factory.New(factory.Options{Logger: log})
	rt.Dispatcher = event.NewDispatcher(event.Options{
		Logger:       log,
		Poster:       rt.poster,
		Queued:       cfg.Dispatcher.Queued,
		MaxQueueSize: cfg.Dispatcher.MaxQueueSize,
	})
	rt.Mapper = mapper.New(mapper.Options{
		Logger:  log,
		Toolkit: opts.Toolkit,
		Sink:    rt.Dispatcher,
	})
	rt.Store = store.New(store.Options{Logger: log, Persister: p})
	if p != nil {
		if err := rt.Store.Load(ctx); err != nil {
			_ = p.Close()
			return nil, fmt.Errorf("app: load state: %w", err)
		}
	}
	rt.Binding = binding.New(rt.Store, binding.Options{
		Logger:         log,
		Poster:         rt.poster,
		ChangeTracking: cfg.Binding.ChangeTracking,
	})

	if p != nil && cfg.Store.FlushInterval.Enabled() {
		fctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
		rt.stopFlush = cancel
		rt.flushDone = make(chan error, 1)
		go func() { rt.flushDone <- rt.Store.RunFlusher(fctx, cfg.Store.FlushInterval.Duration) }()
	}

	log.Info("app: runtime started",
		"store", cfg.Store.Backend,
		"queued", cfg.Dispatcher.Queued,
		"theme", th.Name,
		"keys", rt.Store.Len())
	return rt, nil
}

func openPersister(cfg config.StoreConfig) (store.Persister, error) {
	switch cfg.Backend {
	case config.BackendFile:
		p, err := store.NewFilePersister(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("app: open store: %w", err)
		}
		return p, nil
	case config.BackendBolt:
		if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
			return nil, fmt.Errorf("app: open store: %w", err)
		}
		p, err := store.OpenBolt(cfg.Path)
		if err != nil {
			return nil, fmt.Errorf("app: open store: %w", err)
		}
		return p, nil
	}
	return nil, nil
}

func loadTheme(cfg config.ThemeConfig) (theme.Theme, error) {
	if cfg.File != "" {
		return theme.LoadFile(cfg.File)
	}
	t, ok := theme.Lookup(cfg.Name)
	if !ok {
		return theme.Theme{}, fmt.Errorf("app: unknown theme %q", cfg.Name)
	}
	return t, nil
}

// Config returns the configuration the runtime was built with.
func (rt *Runtime) Config() *config.Config { return rt.cfg }

// Logger returns the runtime logger.
func (rt *Runtime) Logger() *slog.Logger { return rt.log }

// Theme returns the active palette.
func (rt *Runtime) Theme() theme.Theme { return rt.theme }

// Poster returns the poster services use to reach the UI goroutine.
func (rt *Runtime) Poster() loop.Poster { return rt.poster }

// Roots returns the trees materialized or loaded through the runtime.
func (rt *Runtime) Roots() []*command.Command { return slices.Clone(rt.roots) }

// --- Trees ---

// Attach wires the state binding intents of the tree under root.
func (rt *Runtime) Attach(root *command.Command) error {
	if rt.closed {
		return ErrClosed
	}
	return rt.Binding.Attach(root)
}

// Materialize wires the bindings of root and creates its widget tree.
// Binding failures are logged; the widgets are still created.
func (rt *Runtime) Materialize(root *command.Command) (*mapper.Handle, error) {
	if rt.closed {
		return nil, ErrClosed
	}
	if err := rt.Binding.Attach(root); err != nil {
		rt.log.Warn("app: bindings incomplete", "root", root, "err", err)
	}
	h, err := rt.Mapper.CreateWidget(root)
	if err != nil {
		return nil, err
	}
	rt.track(root)
	return h, nil
}

// Build creates the tree described by n and wires its bindings. Problems
// that CreateHierarchy works around are logged first.
func (rt *Runtime) Build(n factory.Node) (*command.Command, error) {
	if rt.closed {
		return nil, ErrClosed
	}
	for _, p := range rt.Factory.ValidateConfig(n) {
		rt.log.Warn("app: configuration problem", "problem", p)
	}
	root, err := rt.Factory.CreateHierarchy(n)
	if err != nil {
		return nil, err
	}
	if err := rt.Binding.Attach(root); err != nil {
		rt.log.Warn("app: bindings incomplete", "root", root, "err", err)
	}
	rt.track(root)
	return root, nil
}

// Load reads a TOML, YAML or JSON tree from path and builds it.
func (rt *Runtime) Load(path string) (*command.Command, error) {
	n, err := loader.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return rt.Build(n)
}

func (rt *Runtime) track(root *command.Command) {
	if slices.Contains(rt.roots, root) {
		return
	}
	rt.roots = append(rt.roots, root)
	root.Destroying.Once(func(c *command.Command) {
		rt.roots = slices.DeleteFunc(rt.roots, func(x *command.Command) bool { return x == c })
	})
}

// --- Shutdown ---

// Shutdown releases the services in dependency order: the flusher stops,
// widgets are torn down, bindings removed, tracked trees destroyed and the
// store flushed and closed. Calling it twice is a no-op.
func (rt *Runtime) Shutdown(ctx context.Context) error {
	if rt.closed {
		return nil
	}
	rt.closed = true

	var errs []error
	if rt.stopFlush != nil {
		rt.stopFlush()
		if err := <-rt.flushDone; err != nil {
			errs = append(errs, err)
		}
	}
	rt.Mapper.Shutdown()
	rt.Binding.Shutdown()
	for _, root := range slices.Clone(rt.roots) {
		root.Destroy()
	}
	rt.roots = nil
	if err := rt.Store.Close(ctx); err != nil {
		errs = append(errs, err)
	}
	rt.log.Info("app: runtime stopped")
	return errors.Join(errs...)
}
