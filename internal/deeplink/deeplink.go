// Package deeplink delivers OS-level redirect URLs back into the app
// after the user finishes the provider's web login. The Dispatcher is the
// process-wide subscription point; a linking session owns exactly one
// subscription for its lifetime and removes it on the first qualifying
// event.
package deeplink

import (
	"sort"
	"sync"
)

// Handler receives a redirect URL.
type Handler func(url string)

// Subscription is a registered handler. Remove is idempotent.
type Subscription struct {
	once   sync.Once
	cancel func()
}

// Remove unregisters the handler. Events dispatched after Remove returns
// are not delivered to it.
func (s *Subscription) Remove() {
	s.once.Do(s.cancel)
}

// Dispatcher fans redirect URLs out to subscribers.
type Dispatcher struct {
	mu   sync.Mutex
	next int
	subs map[int]Handler
}

// NewDispatcher creates an empty dispatcher.
func NewDispatcher() *Dispatcher {
	return &Dispatcher{subs: map[int]Handler{}}
}

// Subscribe registers h and returns its subscription handle.
func (d *Dispatcher) Subscribe(h Handler) *Subscription {
	d.mu.Lock()
	id := d.next
	d.next++
	d.subs[id] = h
	d.mu.Unlock()

	return &Subscription{cancel: func() {
		d.mu.Lock()
		delete(d.subs, id)
		d.mu.Unlock()
	}}
}

// Dispatch delivers url to every current subscriber. Handlers run on the
// caller's goroutine, in registration order.
func (d *Dispatcher) Dispatch(url string) {
	d.mu.Lock()
	ids := make([]int, 0, len(d.subs))
	for id := range d.subs {
		ids = append(ids, id)
	}
	// map order is random; deliver in registration order
	sort.Ints(ids)
	handlers := make([]Handler, 0, len(ids))
	for _, id := range ids {
		handlers = append(handlers, d.subs[id])
	}
	d.mu.Unlock()

	for _, h := range handlers {
		h(url)
	}
}
