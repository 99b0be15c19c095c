// Package store is a reactive key/value store that UI commands bind to.
// Watchers run on the goroutine that made the change; values can be
// persisted to a JSON file or a bbolt database.
package store

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"slices"
	"sort"
	"sync"
	"time"

	"gitlab.com/tinyland/lab/declui/pkg/value"
)

// ChangeFunc observes a key change. new is invalid when the key was
// deleted; old is invalid when it was created.
type ChangeFunc = func(key string, old, new value.Value)

// Options configures a Store.
type Options struct {
	Logger *slog.Logger
	// Persister backs Load and Flush. Nil keeps the store in memory.
	Persister Persister
}

// Store holds values by key and notifies watchers of changes.
type Store struct {
	log       *slog.Logger
	persister Persister

	mu       sync.RWMutex
	data     map[string]value.Value
	watchers map[string]map[uint64]ChangeFunc
	all      map[uint64]ChangeFunc
	next     uint64
	dirty    bool
}

// New returns an empty Store.
func New(opts Options) *Store {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	return &Store{
		log:       opts.Logger,
		persister: opts.Persister,
		data:      make(map[string]value.Value),
		watchers:  make(map[string]map[uint64]ChangeFunc),
		all:       make(map[uint64]ChangeFunc),
	}
}

// Get returns the value at key.
func (s *Store) Get(key string) (value.Value, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.data[key]
	return v, ok
}

// Has reports whether key holds a value.
func (s *Store) Has(key string) bool {
	_, ok := s.Get(key)
	return ok
}

// Set stores v at key. Writing an equal value does nothing; writing the
// invalid value deletes the key.
func (s *Store) Set(key string, v value.Value) {
	if !v.IsValid() {
		s.Delete(key)
		return
	}
	s.mu.Lock()
	old, had := s.data[key]
	if had && value.Equal(old, v) {
		s.mu.Unlock()
		return
	}
	s.data[key] = v
	s.dirty = true
	fns := s.listenersLocked(key)
	s.mu.Unlock()

	notify(fns, key, old, v)
}

// Delete removes key and reports whether it existed.
func (s *Store) Delete(key string) bool {
	s.mu.Lock()
	old, had := s.data[key]
	if !had {
		s.mu.Unlock()
		return false
	}
	delete(s.data, key)
	s.dirty = true
	fns := s.listenersLocked(key)
	s.mu.Unlock()

	notify(fns, key, old, value.Value{})
	return true
}

// Keys returns the sorted keys.
func (s *Store) Keys() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := slices.Collect(maps.Keys(s.data))
	sort.Strings(keys)
	return keys
}

// Len returns the number of keys.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

// Snapshot returns a copy of every entry.
func (s *Store) Snapshot() map[string]value.Value {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return maps.Clone(s.data)
}

// Watch calls fn after every change to key until cancel is called.
func (s *Store) Watch(key string, fn ChangeFunc) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	if s.watchers[key] == nil {
		s.watchers[key] = make(map[uint64]ChangeFunc)
	}
	s.watchers[key][id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.watchers[key], id)
		if len(s.watchers[key]) == 0 {
			delete(s.watchers, key)
		}
	}
}

// WatchAll calls fn after every change to any key until cancel is called.
func (s *Store) WatchAll(fn ChangeFunc) (cancel func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.next++
	id := s.next
	s.all[id] = fn
	return func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.all, id)
	}
}

// listenersLocked returns key watchers then global watchers, each in
// registration order.
func (s *Store) listenersLocked(key string) []ChangeFunc {
	var fns []ChangeFunc
	for _, set := range []map[uint64]ChangeFunc{s.watchers[key], s.all} {
		ids := slices.Collect(maps.Keys(set))
		slices.Sort(ids)
		for _, id := range ids {
			fns = append(fns, set[id])
		}
	}
	return fns
}

func notify(fns []ChangeFunc, key string, old, new value.Value) {
	for _, fn := range fns {
		fn(key, old, new)
	}
}

// --- Persistence ---

// Dirty reports whether there are changes since the last Load or Flush.
func (s *Store) Dirty() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.dirty
}

// Load replaces the contents with what the persister holds. Watchers see
// every key that changed.
func (s *Store) Load(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	loaded, err := s.persister.Load(ctx)
	if err != nil {
		return fmt.Errorf("store: load: %w", err)
	}
	for _, k := range s.Keys() {
		if _, keep := loaded[k]; !keep {
			s.Delete(k)
		}
	}
	keys := slices.Collect(maps.Keys(loaded))
	sort.Strings(keys)
	for _, k := range keys {
		s.Set(k, loaded[k])
	}
	s.mu.Lock()
	s.dirty = false
	s.mu.Unlock()
	s.log.Debug("store: loaded", "keys", len(loaded))
	return nil
}

// Flush writes the contents through the persister when there are unsaved
// changes.
func (s *Store) Flush(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	s.mu.Lock()
	if !s.dirty {
		s.mu.Unlock()
		return nil
	}
	snap := maps.Clone(s.data)
	s.dirty = false
	s.mu.Unlock()

	if err := s.persister.Save(ctx, snap); err != nil {
		s.mu.Lock()
		s.dirty = true
		s.mu.Unlock()
		return fmt.Errorf("store: flush: %w", err)
	}
	s.log.Debug("store: flushed", "keys", len(snap))
	return nil
}

// RunFlusher flushes every interval until ctx is done, then flushes once
// more.
func (s *Store) RunFlusher(ctx context.Context, every time.Duration) error {
	if every <= 0 || s.persister == nil {
		<-ctx.Done()
		return s.Flush(context.WithoutCancel(ctx))
	}
	t := time.NewTicker(every)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return s.Flush(context.WithoutCancel(ctx))
		case <-t.C:
			if err := s.Flush(ctx); err != nil {
				s.log.Warn("store: periodic flush failed", "err", err)
			}
		}
	}
}

// Close flushes and releases the persister.
func (s *Store) Close(ctx context.Context) error {
	if s.persister == nil {
		return nil
	}
	err := s.Flush(ctx)
	if cerr := s.persister.Close(); cerr != nil && err == nil {
		err = fmt.Errorf("store: close: %w", cerr)
	}
	return err
}
