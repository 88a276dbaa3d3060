// Package store implements the generic observable entity store that every
// aggregate specializes.
//
// A Store owns its collection. Readers only ever receive copies, and every
// committed mutation is re-published to the store's listeners exactly once.
// Single-store mutations go through Add, Update and Remove, which run the
// store's Guard first. Operations spanning several stores stage their
// changes on a Draft per store and publish once all drafts are committed.
package store

import (
	"context"
	"sync"

	"github.com/ehr/wardstate/internal/platform/idgen"
	"github.com/ehr/wardstate/internal/platform/notify"
	"github.com/ehr/wardstate/internal/platform/telemetry"
)

// Outcome tags the result of Update and Remove.
type Outcome int

const (
	// NotFound means the id was unknown and nothing happened. It is a
	// deliberate no-op, not an error.
	NotFound Outcome = iota
	// Updated means the entity was changed and listeners were notified.
	Updated
	// Removed means the entity was deleted and listeners were notified.
	Removed
	// Rejected accompanies a non-nil error: the id was known but the change
	// failed validation and nothing happened.
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Updated:
		return "updated"
	case Removed:
		return "removed"
	case Rejected:
		return "rejected"
	default:
		return "not_found"
	}
}

// Guard validates single-store mutations before they are applied. items is
// the current collection and must not be retained or modified.
type Guard[T any] interface {
	CheckAdd(items []T, item T) error
	CheckUpdate(items []T, before, after T) error
	CheckRemove(items []T, item T) error
}

// NopGuard accepts everything.
type NopGuard[T any] struct{}

func (NopGuard[T]) CheckAdd([]T, T) error       { return nil }
func (NopGuard[T]) CheckUpdate([]T, T, T) error { return nil }
func (NopGuard[T]) CheckRemove([]T, T) error    { return nil }

// Config describes how a Store handles its entity type.
type Config[T any] struct {
	// Kind names the collection in logs and metrics, e.g. "beds".
	Kind string
	// ID returns a pointer to the entity's id field.
	ID func(*T) *string
	// Clone deep-copies an entity. Defaults to a shallow copy.
	Clone func(T) T
	IDs   idgen.Generator
	Guard Guard[T]
	// Metrics defaults to telemetry.Nop.
	Metrics telemetry.Recorder
}

// Store is an in-memory, observable, ordered collection of T.
type Store[T any] struct {
	cfg      Config[T]
	mu       sync.RWMutex
	items    []T
	notifier notify.Notifier[T]
}

// New constructs an empty store.
func New[T any](cfg Config[T]) *Store[T] {
	if cfg.ID == nil {
		panic("store: Config.ID is required")
	}
	if cfg.Clone == nil {
		cfg.Clone = func(v T) T { return v }
	}
	if cfg.IDs == nil {
		cfg.IDs = idgen.UUID()
	}
	if cfg.Guard == nil {
		cfg.Guard = NopGuard[T]{}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = telemetry.Nop{}
	}
	return &Store[T]{cfg: cfg}
}

// Kind returns the configured collection name.
func (s *Store[T]) Kind() string { return s.cfg.Kind }

func (s *Store[T]) idOf(v *T) string { return *s.cfg.ID(v) }

func (s *Store[T]) cloneAll(items []T) []T {
	out := make([]T, len(items))
	for i, v := range items {
		out[i] = s.cfg.Clone(v)
	}
	return out
}

func (s *Store[T]) indexOf(items []T, id string) int {
	for i := range items {
		if s.idOf(&items[i]) == id {
			return i
		}
	}
	return -1
}

// GetAll returns a copy of the collection in insertion order.
func (s *Store[T]) GetAll() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cloneAll(s.items)
}

// Get returns a copy of the entity with the given id.
func (s *Store[T]) Get(id string) (T, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if i := s.indexOf(s.items, id); i >= 0 {
		return s.cfg.Clone(s.items[i]), true
	}
	var zero T
	return zero, false
}

// Filter returns copies of the entities matching keep, in order.
func (s *Store[T]) Filter(keep func(T) bool) []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []T
	for _, v := range s.items {
		if keep(v) {
			out = append(out, s.cfg.Clone(v))
		}
	}
	return out
}

// Len returns the number of entities.
func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.items)
}

// Add assigns item a fresh id, appends it and notifies listeners. Any id set
// by the caller is replaced.
func (s *Store[T]) Add(item T) (T, error) {
	item = s.cfg.Clone(item)
	*s.cfg.ID(&item) = s.cfg.IDs.NewID()

	s.mu.Lock()
	if err := s.cfg.Guard.CheckAdd(s.items, item); err != nil {
		s.mu.Unlock()
		var zero T
		return zero, err
	}
	s.items = append(s.items, item)
	snapshot := s.cloneAll(s.items)
	s.mu.Unlock()

	s.cfg.Metrics.RecordMutation(context.Background(), s.cfg.Kind, "add")
	s.publish(snapshot)
	return s.cfg.Clone(item), nil
}

// Update applies mutate to a copy of the entity, validates the result and
// commits it. An unknown id yields NotFound without error or notification.
// An error from mutate or the guard comes back as Rejected and leaves the
// store unchanged.
func (s *Store[T]) Update(id string, mutate func(*T) error) (Outcome, error) {
	s.mu.Lock()
	i := s.indexOf(s.items, id)
	if i < 0 {
		s.mu.Unlock()
		return NotFound, nil
	}
	before := s.items[i]
	after := s.cfg.Clone(before)
	if err := mutate(&after); err != nil {
		s.mu.Unlock()
		return Rejected, err
	}
	*s.cfg.ID(&after) = id
	if err := s.cfg.Guard.CheckUpdate(s.items, before, after); err != nil {
		s.mu.Unlock()
		return Rejected, err
	}
	s.items[i] = after
	snapshot := s.cloneAll(s.items)
	s.mu.Unlock()

	s.cfg.Metrics.RecordMutation(context.Background(), s.cfg.Kind, "update")
	s.publish(snapshot)
	return Updated, nil
}

// Remove deletes the entity when present and notifies listeners. An unknown
// id yields NotFound without error or notification; a guard error yields
// Rejected.
func (s *Store[T]) Remove(id string) (Outcome, error) {
	s.mu.Lock()
	i := s.indexOf(s.items, id)
	if i < 0 {
		s.mu.Unlock()
		return NotFound, nil
	}
	if err := s.cfg.Guard.CheckRemove(s.items, s.items[i]); err != nil {
		s.mu.Unlock()
		return Rejected, err
	}
	s.items = append(s.items[:i:i], s.items[i+1:]...)
	snapshot := s.cloneAll(s.items)
	s.mu.Unlock()

	s.cfg.Metrics.RecordMutation(context.Background(), s.cfg.Kind, "remove")
	s.publish(snapshot)
	return Removed, nil
}

// Reset empties the collection and notifies listeners.
func (s *Store[T]) Reset() {
	s.mu.Lock()
	s.items = nil
	s.mu.Unlock()
	s.publish([]T{})
}

// Subscribe registers l for every subsequent mutation.
func (s *Store[T]) Subscribe(l notify.Listener[T]) (unsubscribe func()) {
	return s.notifier.Subscribe(l)
}

// SubscribeFunc is Subscribe for plain functions.
func (s *Store[T]) SubscribeFunc(fn func([]T)) (unsubscribe func()) {
	return s.notifier.Subscribe(notify.ListenerFunc[T](fn))
}

// Listeners returns the number of registered listeners.
func (s *Store[T]) Listeners() int { return s.notifier.Len() }

func (s *Store[T]) publish(snapshot []T) {
	s.cfg.Metrics.RecordNotification(context.Background(), s.cfg.Kind, s.notifier.Len())
	s.notifier.Notify(snapshot)
}
