package store

import "context"

// Draft is a staged working copy of a store's collection. It holds the
// store's write lock from Begin until Commit or Rollback, so callers that
// open several drafts must always open them in the same order.
//
// Drafts bypass the store's Guard; the coordinating operation is expected to
// validate the staged state as a whole before committing.
type Draft[T any] struct {
	s       *Store[T]
	items   []T
	actions []string
	done    bool
}

// Begin locks the store and returns a draft of its collection.
func (s *Store[T]) Begin() *Draft[T] {
	s.mu.Lock()
	return &Draft[T]{s: s, items: s.cloneAll(s.items)}
}

// Kind returns the underlying store's collection name.
func (d *Draft[T]) Kind() string { return d.s.cfg.Kind }

// Items returns a copy of the staged collection.
func (d *Draft[T]) Items() []T { return d.s.cloneAll(d.items) }

// Get returns a copy of the staged entity with the given id.
func (d *Draft[T]) Get(id string) (T, bool) {
	if i := d.s.indexOf(d.items, id); i >= 0 {
		return d.s.cfg.Clone(d.items[i]), true
	}
	var zero T
	return zero, false
}

// Add stages a new entity under a fresh id and returns the stored copy.
func (d *Draft[T]) Add(item T) T {
	item = d.s.cfg.Clone(item)
	*d.s.cfg.ID(&item) = d.s.cfg.IDs.NewID()
	d.items = append(d.items, item)
	d.actions = append(d.actions, "add")
	return d.s.cfg.Clone(item)
}

// Update stages a change to an existing entity.
func (d *Draft[T]) Update(id string, mutate func(*T) error) (Outcome, error) {
	i := d.s.indexOf(d.items, id)
	if i < 0 {
		return NotFound, nil
	}
	after := d.s.cfg.Clone(d.items[i])
	if err := mutate(&after); err != nil {
		return Rejected, err
	}
	*d.s.cfg.ID(&after) = id
	d.items[i] = after
	d.actions = append(d.actions, "update")
	return Updated, nil
}

// Remove stages the deletion of an entity.
func (d *Draft[T]) Remove(id string) Outcome {
	i := d.s.indexOf(d.items, id)
	if i < 0 {
		return NotFound
	}
	d.items = append(d.items[:i:i], d.items[i+1:]...)
	d.actions = append(d.actions, "remove")
	return Removed
}

// Clear stages the removal of every entity. Listeners are notified on
// commit even when the collection was already empty.
func (d *Draft[T]) Clear() {
	d.items = []T{}
	d.actions = append(d.actions, "reset")
}

// Dirty reports whether anything was staged.
func (d *Draft[T]) Dirty() bool { return len(d.actions) > 0 }

// Commit installs the staged collection, releases the store lock and
// returns a function that notifies listeners. The caller should invoke it
// once every draft of the operation has been committed. For a clean draft
// the returned function does nothing.
func (d *Draft[T]) Commit() (publish func()) {
	if d.done {
		return func() {}
	}
	d.done = true
	if !d.Dirty() {
		d.s.mu.Unlock()
		return func() {}
	}
	d.s.items = d.items
	snapshot := d.s.cloneAll(d.items)
	d.s.mu.Unlock()

	for _, action := range d.actions {
		d.s.cfg.Metrics.RecordMutation(context.Background(), d.s.cfg.Kind, action)
	}
	return func() { d.s.publish(snapshot) }
}

// Rollback discards the staged changes and releases the store lock. It is
// safe to call after Commit.
func (d *Draft[T]) Rollback() {
	if d.done {
		return
	}
	d.done = true
	d.s.mu.Unlock()
}
