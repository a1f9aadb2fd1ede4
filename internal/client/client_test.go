package client

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

func TestHolder_SubscribeReceivesCurrentStateImmediately(t *testing.T) {
	h := NewHolder(State{Loading: true})

	var got []State
	cancel := h.Subscribe(func(s State) { got = append(got, s) })
	defer cancel()

	require.Len(t, got, 1)
	assert.True(t, got[0].Loading)
	assert.NotNil(t, got[0].Entries)
}

func TestHolder_SetNotifiesInOrder(t *testing.T) {
	h := NewHolder(State{})

	var calls []string
	cancelA := h.Subscribe(func(State) { calls = append(calls, "a") })
	cancelB := h.Subscribe(func(State) { calls = append(calls, "b") })
	defer cancelA()
	defer cancelB()
	calls = nil

	h.Set(State{Entries: []domain.ShelfEntry{{Book: domain.Book{ID: "b1"}}}})

	assert.Equal(t, []string{"a", "b"}, calls)
	assert.Len(t, h.Get().Entries, 1)
}

func TestHolder_CancelStopsNotifications(t *testing.T) {
	h := NewHolder(State{})

	count := 0
	cancel := h.Subscribe(func(State) { count++ })
	cancel()
	cancel()

	h.Set(State{Loading: true})

	assert.Equal(t, 1, count)
	assert.Zero(t, h.Len())
}

func TestHolder_StateIsCopied(t *testing.T) {
	entries := []domain.ShelfEntry{{Book: domain.Book{ID: "b1"}}}
	h := NewHolder(State{Entries: entries})

	entries[0].ID = "mutated"
	got := h.Get()
	got.Entries[0].ID = "also mutated"

	assert.Equal(t, "b1", h.Get().Entries[0].ID)
}

func TestHolder_Update(t *testing.T) {
	h := NewHolder(State{Loading: true})

	var last State
	cancel := h.Subscribe(func(s State) { last = s })
	defer cancel()

	h.Update(func(s *State) {
		s.Loading = false
		s.Entries = append(s.Entries, domain.ShelfEntry{Book: domain.Book{ID: "b1"}})
	})

	assert.False(t, last.Loading)
	require.Len(t, last.Entries, 1)
	assert.Equal(t, "b1", last.Entries[0].ID)
}

func TestHolder_ReplaceDefersNotification(t *testing.T) {
	h := NewHolder(State{})

	var seen []int
	cancel := h.Subscribe(func(s State) { seen = append(seen, len(s.Entries)) })
	defer cancel()

	notify := h.Replace(State{Entries: []domain.ShelfEntry{{Book: domain.Book{ID: "b1"}}}})
	assert.Equal(t, []int{0}, seen)
	assert.Len(t, h.Get().Entries, 1)

	notify()
	assert.Equal(t, []int{0, 1}, seen)
}
