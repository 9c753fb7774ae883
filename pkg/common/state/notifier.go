package state

import "sync"

// Notifier broadcasts state snapshots to registered listeners. It is the
// change signal controllers emit after every state replacement: a plain
// listener list, not a stream with backpressure.
//
// Listeners are invoked synchronously from the notifying goroutine and
// must not block or panic.
type Notifier[S any] struct {
	mu        sync.Mutex
	nextID    int
	listeners map[int]func(S)
}

// Subscribe registers a listener and returns a function that removes it.
// The returned unsubscribe function is safe to call more than once.
func (n *Notifier[S]) Subscribe(fn func(S)) func() {
	n.mu.Lock()
	defer n.mu.Unlock()

	if n.listeners == nil {
		n.listeners = make(map[int]func(S))
	}
	id := n.nextID
	n.nextID++
	n.listeners[id] = fn

	return func() {
		n.mu.Lock()
		defer n.mu.Unlock()
		delete(n.listeners, id)
	}
}

// Notify delivers the snapshot to every registered listener.
func (n *Notifier[S]) Notify(snapshot S) {
	n.mu.Lock()
	fns := make([]func(S), 0, len(n.listeners))
	for _, fn := range n.listeners {
		fns = append(fns, fn)
	}
	n.mu.Unlock()

	for _, fn := range fns {
		fn(snapshot)
	}
}

// Len returns the number of registered listeners.
func (n *Notifier[S]) Len() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.listeners)
}
