package service

import (
	"context"
	"log/slog"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	"github.com/bookberryapp/bookberry-server/internal/search"
	"github.com/bookberryapp/bookberry-server/internal/sse"
	"github.com/bookberryapp/bookberry-server/internal/store/sqlite"
	"github.com/bookberryapp/bookberry-server/internal/validation"
)

// recordingEmitter captures emitted events for assertions.
type recordingEmitter struct {
	mu     sync.Mutex
	events []sse.Event
}

func (r *recordingEmitter) Emit(event sse.Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
}

func (r *recordingEmitter) last(t *testing.T) sse.Event {
	t.Helper()
	r.mu.Lock()
	defer r.mu.Unlock()
	require.NotEmpty(t, r.events, "no events emitted")
	return r.events[len(r.events)-1]
}

func (r *recordingEmitter) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.events)
}

type testEnv struct {
	store   *sqlite.Store
	index   *search.ShelfIndex
	events  *recordingEmitter
	shelf   *ShelfService
	profile *ProfileService
	reviews *ReviewService
	search  *SearchService
}

func setupServices(t *testing.T) *testEnv {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)
	t.Cleanup(func() { _ = st.Close() })

	index, err := search.NewShelfIndex(search.Options{Logger: logger})
	require.NoError(t, err)
	t.Cleanup(func() { _ = index.Close() })

	events := &recordingEmitter{}

	return &testEnv{
		store:   st,
		index:   index,
		events:  events,
		shelf:   NewShelfService(st, index, events, validation.New(), logger),
		profile: NewProfileService(st, events, logger),
		reviews: NewReviewService(st, logger),
		search:  NewSearchService(index, st, logger),
	}
}

func testBook(id string, pageCount int) domain.Book {
	return domain.Book{
		ID:        id,
		Title:     "Book " + id,
		Authors:   []string{"Author " + id},
		PageCount: pageCount,
	}
}

func mustAdd(t *testing.T, s *ShelfService, ownerID string, book domain.Book, status domain.ReadingStatus) *domain.ShelfEntry {
	t.Helper()
	entry, err := s.AddOrUpsert(context.Background(), ownerID, book, status)
	require.NoError(t, err)
	return entry
}

func ptr[T any](v T) *T { return &v }
