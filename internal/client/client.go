// Package client defines the shelf facade used by Bookberry front ends.
//
// Two implementations exist: remote talks to the server API and follows its
// event stream, local keeps the shelf in an on-device Badger database. Both
// expose the same operations and publish every state change to subscribers.
package client

import (
	"context"
	"slices"
	"sync"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

// State is a snapshot of the caller's shelf as seen by a facade.
type State struct {
	Entries []domain.ShelfEntry
	// Loading is true until the first successful load of a remote shelf.
	Loading bool
}

// Library is the client-side shelf facade.
type Library interface {
	AddBook(ctx context.Context, book domain.Book, status domain.ReadingStatus) error
	UpdateBookStatus(ctx context.Context, bookID string, status domain.ReadingStatus) error
	UpdateProgress(ctx context.Context, bookID string, page int) error
	RateBook(ctx context.Context, bookID string, rating float64, review *string) error
	RemoveBook(ctx context.Context, bookID string) error
	ClearLibrary(ctx context.Context) error
	// Refresh reloads the shelf from its backing source.
	Refresh(ctx context.Context) error

	Library() State
	// Subscribe calls fn with the current state right away and again after
	// every change until cancel is called.
	Subscribe(fn func(State)) (cancel func())
	Close() error
}

// Holder is an observable State shared by the facade implementations.
// Subscribers are called outside the lock, in subscription order.
type Holder struct {
	mu     sync.Mutex
	state  State
	subs   map[int]func(State)
	order  []int
	nextID int
}

// NewHolder creates a holder with an initial state.
func NewHolder(initial State) *Holder {
	return &Holder{
		state: cloneState(initial),
		subs:  make(map[int]func(State)),
	}
}

// Get returns a copy of the current state.
func (h *Holder) Get() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return cloneState(h.state)
}

// Set replaces the state and notifies subscribers.
func (h *Holder) Set(state State) {
	h.Replace(state)()
}

// Replace swaps in state without notifying anyone and returns a function
// that notifies the subscribers registered at the time of the swap. Callers
// that hold their own lock while replacing call notify after releasing it.
func (h *Holder) Replace(state State) (notify func()) {
	h.mu.Lock()
	h.state = cloneState(state)
	fns := h.subscribersLocked()
	h.mu.Unlock()

	return func() {
		for _, fn := range fns {
			fn(cloneState(state))
		}
	}
}

// Update applies fn to a copy of the current state and publishes the result.
func (h *Holder) Update(fn func(*State)) {
	h.mu.Lock()
	next := cloneState(h.state)
	fn(&next)
	h.state = next
	fns := h.subscribersLocked()
	h.mu.Unlock()

	for _, sub := range fns {
		sub(cloneState(next))
	}
}

// Subscribe registers fn and immediately calls it with the current state.
func (h *Holder) Subscribe(fn func(State)) (cancel func()) {
	h.mu.Lock()
	id := h.nextID
	h.nextID++
	h.subs[id] = fn
	h.order = append(h.order, id)
	current := cloneState(h.state)
	h.mu.Unlock()

	fn(current)

	var once sync.Once
	return func() {
		once.Do(func() {
			h.mu.Lock()
			defer h.mu.Unlock()
			delete(h.subs, id)
			h.order = slices.DeleteFunc(h.order, func(v int) bool { return v == id })
		})
	}
}

// Len returns the number of active subscribers.
func (h *Holder) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Holder) subscribersLocked() []func(State) {
	fns := make([]func(State), 0, len(h.order))
	for _, id := range h.order {
		fns = append(fns, h.subs[id])
	}
	return fns
}

func cloneState(s State) State {
	entries := slices.Clone(s.Entries)
	if entries == nil {
		entries = []domain.ShelfEntry{}
	}
	return State{Entries: entries, Loading: s.Loading}
}
