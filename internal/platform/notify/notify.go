// Package notify implements the subscribe/notify primitive every entity
// store uses to re-publish its collection after a mutation.
package notify

import "sync"

// Listener receives the full collection snapshot after every mutation of
// the store it is subscribed to. Snapshots are copies; listeners may keep
// them.
type Listener[T any] interface {
	OnChange(snapshot []T)
}

// ListenerFunc adapts a function to Listener.
type ListenerFunc[T any] func(snapshot []T)

func (f ListenerFunc[T]) OnChange(snapshot []T) { f(snapshot) }

type registration[T any] struct {
	id       uint64
	listener Listener[T]
}

// Notifier fans a snapshot out to its listeners in registration order.
// The zero value is ready to use.
type Notifier[T any] struct {
	mu        sync.Mutex
	next      uint64
	listeners []registration[T]
}

// Subscribe registers l and returns a function that removes it again.
// The returned function may be called any number of times, including from
// inside a notification callback.
func (n *Notifier[T]) Subscribe(l Listener[T]) (unsubscribe func()) {
	n.mu.Lock()
	n.next++
	id := n.next
	n.listeners = append(n.listeners, registration[T]{id: id, listener: l})
	n.mu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() { n.remove(id) })
	}
}

func (n *Notifier[T]) remove(id uint64) {
	n.mu.Lock()
	defer n.mu.Unlock()
	for i, r := range n.listeners {
		if r.id == id {
			kept := make([]registration[T], 0, len(n.listeners)-1)
			kept = append(kept, n.listeners[:i]...)
			kept = append(kept, n.listeners[i+1:]...)
			n.listeners = kept
			return
		}
	}
}

// Notify invokes every listener registered when the call starts, in
// registration order. Listeners added or removed during the pass take
// effect on the next call.
func (n *Notifier[T]) Notify(snapshot []T) {
	n.mu.Lock()
	pass := make([]registration[T], len(n.listeners))
	copy(pass, n.listeners)
	n.mu.Unlock()

	for _, r := range pass {
		r.listener.OnChange(snapshot)
	}
}

// Len returns the number of registered listeners.
func (n *Notifier[T]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
