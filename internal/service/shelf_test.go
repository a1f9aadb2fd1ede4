package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	domainerrors "github.com/bookberryapp/bookberry-server/internal/errors"
	"github.com/bookberryapp/bookberry-server/internal/sse"
)

func TestShelfService_AddThenListRoundTrip(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	before := time.Now().Add(-time.Second)

	book := domain.Book{
		ID:          "b1",
		Title:       "Dune",
		Authors:     []string{"Frank Herbert"},
		Description: "Desert planet",
		CoverURL:    "https://example.com/dune.jpg",
		PageCount:   412,
		ISBN:        "9780441013593",
	}
	_, err := env.shelf.AddOrUpsert(ctx, "alice", book, domain.StatusReading)
	require.NoError(t, err)

	entries, err := env.shelf.List(ctx, "alice", domain.ShelfQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)

	got := entries[0]
	assert.Equal(t, book, got.Book)
	assert.Equal(t, domain.StatusReading, got.Status)
	assert.Equal(t, "alice", got.OwnerID)
	assert.False(t, got.AddedAt.Before(before))
	assert.Nil(t, got.UserRating)
	assert.Nil(t, got.UserCurrentPage)
}

func TestShelfService_AddDefaultsToWantToRead(t *testing.T) {
	env := setupServices(t)

	entry := mustAdd(t, env.shelf, "alice", domain.Book{ID: "b1", Title: "Untitled"}, "")
	assert.Equal(t, domain.StatusWantToRead, entry.Status)
	assert.Equal(t, []string{domain.UnknownAuthor}, entry.Authors)
}

func TestShelfService_AddValidates(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	_, err := env.shelf.AddOrUpsert(ctx, "alice", domain.Book{ID: "b1"}, "")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "missing title: %v", err)

	_, err = env.shelf.AddOrUpsert(ctx, "alice", testBook("b1", 10), "FINISHED")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "bad status: %v", err)

	_, err = env.shelf.AddOrUpsert(ctx, "alice", domain.Book{ID: "b1", Title: "x", PageCount: -1}, "")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "negative pages: %v", err)
}

func TestShelfService_UpsertKeepsSingleEntry(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	first := mustAdd(t, env.shelf, "alice", testBook("b1", 300), domain.StatusWantToRead)
	_, err := env.shelf.UpdateProgress(ctx, "alice", "b1", 50)
	require.NoError(t, err)

	changed := testBook("b1", 999)
	changed.Title = "Renamed"
	second := mustAdd(t, env.shelf, "alice", changed, domain.StatusReading)

	assert.Equal(t, first.EntryID, second.EntryID)
	assert.Equal(t, domain.StatusReading, second.Status)
	assert.Equal(t, "Book b1", second.Title, "snapshot is kept")
	assert.Equal(t, 300, second.PageCount)
	require.NotNil(t, second.UserCurrentPage)
	assert.Equal(t, 50, *second.UserCurrentPage)
	assert.True(t, second.AddedAt.Equal(first.AddedAt))

	entries, err := env.shelf.List(ctx, "alice", domain.ShelfQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestShelfService_ConcurrentAddsKeepSingleEntry(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 8; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := env.shelf.AddOrUpsert(ctx, "alice", testBook("b1", 100), domain.StatusReading)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	entries, err := env.shelf.List(ctx, "alice", domain.ShelfQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestShelfService_ProgressToLastPageCompletes(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	mustAdd(t, env.shelf, "alice", testBook("b1", 200), domain.StatusWantToRead)

	entry, err := env.shelf.UpdateProgress(ctx, "alice", "b1", 200)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, entry.Status)
	require.NotNil(t, entry.UserCurrentPage)
	assert.Equal(t, 200, *entry.UserCurrentPage)

	// Going back a few pages never reopens the book.
	entry, err = env.shelf.UpdateProgress(ctx, "alice", "b1", 120)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, entry.Status)
	assert.Equal(t, 120, *entry.UserCurrentPage)
}

func TestShelfService_ProgressIsClamped(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	mustAdd(t, env.shelf, "alice", testBook("b1", 200), domain.StatusReading)
	mustAdd(t, env.shelf, "alice", testBook("b2", 0), domain.StatusReading)

	entry, err := env.shelf.UpdateProgress(ctx, "alice", "b1", 500)
	require.NoError(t, err)
	assert.Equal(t, 200, *entry.UserCurrentPage)
	assert.Equal(t, domain.StatusCompleted, entry.Status)

	entry, err = env.shelf.UpdateProgress(ctx, "alice", "b1", -4)
	require.NoError(t, err)
	assert.Equal(t, 0, *entry.UserCurrentPage)

	entry, err = env.shelf.UpdateProgress(ctx, "alice", "b2", 500)
	require.NoError(t, err)
	assert.Equal(t, 500, *entry.UserCurrentPage)
	assert.Equal(t, domain.StatusReading, entry.Status, "unknown length never auto-completes")
}

func TestShelfService_RateCompletesFromAnyStatus(t *testing.T) {
	for _, status := range domain.ReadingStatuses {
		t.Run(string(status), func(t *testing.T) {
			env := setupServices(t)
			ctx := context.Background()

			mustAdd(t, env.shelf, "alice", testBook("b2", 100), status)

			entry, err := env.shelf.Rate(ctx, "alice", "b2", 4.5, ptr("Great"))
			require.NoError(t, err)
			assert.Equal(t, domain.StatusCompleted, entry.Status)
			require.NotNil(t, entry.UserRating)
			assert.Equal(t, 4.5, *entry.UserRating)
			require.NotNil(t, entry.Review)
			assert.Equal(t, "Great", *entry.Review)
			assert.NotNil(t, entry.RatedAt)
		})
	}
}

func TestShelfService_RateValidates(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	mustAdd(t, env.shelf, "alice", testBook("b1", 100), domain.StatusReading)

	for _, rating := range []float64{-1, 5.5, 3.3} {
		_, err := env.shelf.Rate(ctx, "alice", "b1", rating, nil)
		assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation), "rating %v: %v", rating, err)
	}

	entry, err := env.shelf.Rate(ctx, "alice", "b1", 3, ptr("   "))
	require.NoError(t, err)
	assert.Nil(t, entry.Review, "blank review is dropped")
}

func TestShelfService_StatusChangeKeepsRating(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	mustAdd(t, env.shelf, "alice", testBook("b1", 100), domain.StatusReading)

	_, err := env.shelf.Rate(ctx, "alice", "b1", 4, nil)
	require.NoError(t, err)

	entry, err := env.shelf.UpdateStatus(ctx, "alice", "b1", domain.StatusReading)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusReading, entry.Status)
	require.NotNil(t, entry.UserRating)

	summary, err := env.reviews.Summary(ctx, "b1")
	require.NoError(t, err)
	assert.Zero(t, summary.TotalRatings, "only completed entries count")
}

func TestShelfService_MissingEntryIsNoop(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	entry, err := env.shelf.UpdateStatus(ctx, "alice", "nope", domain.StatusReading)
	require.NoError(t, err)
	assert.Nil(t, entry)

	entry, err = env.shelf.UpdateProgress(ctx, "alice", "nope", 3)
	require.NoError(t, err)
	assert.Nil(t, entry)

	entry, err = env.shelf.Rate(ctx, "alice", "nope", 3, nil)
	require.NoError(t, err)
	assert.Nil(t, entry)

	require.NoError(t, env.shelf.Remove(ctx, "alice", "nope"))
	assert.Zero(t, env.events.count(), "no-ops publish nothing")
}

func TestShelfService_RemoveExcludesFromList(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	mustAdd(t, env.shelf, "alice", testBook("b1", 100), domain.StatusReading)
	mustAdd(t, env.shelf, "alice", testBook("b2", 100), domain.StatusReading)

	require.NoError(t, env.shelf.Remove(ctx, "alice", "b2"))

	entries, err := env.shelf.List(ctx, "alice", domain.ShelfQuery{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "b1", entries[0].BookID())

	got, err := env.shelf.Get(ctx, "alice", "b2")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestShelfService_ClearAllIsolatesOwners(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		mustAdd(t, env.shelf, "alice", testBook(fmt.Sprintf("a%d", i), 100), "")
	}
	mustAdd(t, env.shelf, "bob", testBook("a0", 100), "")

	removed, err := env.shelf.ClearAll(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 3, removed)

	alice, err := env.shelf.List(ctx, "alice", domain.ShelfQuery{})
	require.NoError(t, err)
	assert.Empty(t, alice)

	bob, err := env.shelf.List(ctx, "bob", domain.ShelfQuery{})
	require.NoError(t, err)
	assert.Len(t, bob, 1)

	hits, err := env.search.Search(ctx, "alice", "", "", 10)
	require.NoError(t, err)
	assert.Empty(t, hits, "index cleared with the shelf")
}

func TestShelfService_IdentityRules(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	_, err := env.shelf.AddOrUpsert(ctx, "", testBook("b1", 1), "")
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
	_, err = env.shelf.UpdateStatus(ctx, "", "b1", domain.StatusReading)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
	_, err = env.shelf.UpdateProgress(ctx, "", "b1", 1)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
	_, err = env.shelf.Rate(ctx, "", "b1", 1, nil)
	assert.True(t, domainerrors.Is(err, domainerrors.ErrUnauthorized))
	assert.True(t, domainerrors.Is(env.shelf.Remove(ctx, "", "b1"), domainerrors.ErrUnauthorized))

	removed, err := env.shelf.ClearAll(ctx, "")
	require.NoError(t, err)
	assert.Zero(t, removed)

	entries, err := env.shelf.List(ctx, "", domain.ShelfQuery{})
	require.NoError(t, err)
	assert.NotNil(t, entries)
	assert.Empty(t, entries)
}

func TestShelfService_ListFiltersAndSorts(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	mustAdd(t, env.shelf, "alice", domain.Book{ID: "z", Title: "zebra"}, domain.StatusReading)
	mustAdd(t, env.shelf, "alice", domain.Book{ID: "a", Title: "Apple"}, domain.StatusReading)
	mustAdd(t, env.shelf, "alice", domain.Book{ID: "w", Title: "Wish"}, domain.StatusWantToRead)

	entries, err := env.shelf.List(ctx, "alice", domain.ShelfQuery{Status: domain.StatusReading, Sort: domain.SortByTitle})
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, "a", entries[0].BookID())
	assert.Equal(t, "z", entries[1].BookID())
}

func TestShelfService_PublishesSnapshots(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	mustAdd(t, env.shelf, "alice", testBook("b1", 100), "")
	mustAdd(t, env.shelf, "alice", testBook("b2", 100), "")

	event := env.events.last(t)
	assert.Equal(t, sse.EventShelfSnapshot, event.Type)
	assert.Equal(t, "alice", event.OwnerID)
	data := event.Data.(sse.ShelfSnapshotEventData)
	assert.Len(t, data.Entries, 2)

	_, err := env.shelf.ClearAll(ctx, "alice")
	require.NoError(t, err)
	data = env.events.last(t).Data.(sse.ShelfSnapshotEventData)
	assert.NotNil(t, data.Entries)
	assert.Empty(t, data.Entries)

	snapshot, err := env.shelf.Snapshot(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, sse.EventShelfSnapshot, snapshot.Type)
}

func TestShelfService_SnapshotsAreNewestFirst(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	base := time.Date(2024, 3, 1, 12, 0, 5, 0, time.UTC)
	for _, e := range []*domain.ShelfEntry{
		domain.NewShelfEntry("e1", "alice", testBook("whole", 100), "", base),
		domain.NewShelfEntry("e2", "alice", testBook("half", 100), "", base.Add(500*time.Millisecond)),
		domain.NewShelfEntry("e3", "alice", testBook("earlier", 100), "", base.Add(-time.Second)),
	} {
		_, _, err := env.store.UpsertEntry(ctx, e)
		require.NoError(t, err)
	}

	_, err := env.shelf.UpdateStatus(ctx, "alice", "whole", domain.StatusReading)
	require.NoError(t, err)

	pushed := env.events.last(t).Data.(sse.ShelfSnapshotEventData).Entries
	require.Len(t, pushed, 3)
	assert.Equal(t, []string{"half", "whole", "earlier"},
		[]string{pushed[0].BookID(), pushed[1].BookID(), pushed[2].BookID()})

	snapshot, err := env.shelf.Snapshot(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, pushed, snapshot.Data.(sse.ShelfSnapshotEventData).Entries)
}

func TestShelfService_Stats(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()

	mustAdd(t, env.shelf, "alice", testBook("b1", 100), domain.StatusWantToRead)
	mustAdd(t, env.shelf, "alice", testBook("b2", 100), domain.StatusReading)
	mustAdd(t, env.shelf, "alice", testBook("b3", 100), domain.StatusCompleted)

	stats, err := env.shelf.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 1, stats.WantToRead)
	assert.Equal(t, 1, stats.Reading)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, domain.DefaultReadingGoal, stats.Goal)
	assert.Equal(t, 10, stats.GoalProgress)

	_, err = env.profile.UpdateGoal(ctx, "alice", 2)
	require.NoError(t, err)
	stats, err = env.shelf.Stats(ctx, "alice")
	require.NoError(t, err)
	assert.Equal(t, 50, stats.GoalProgress)
}

func TestShelfService_ListPublic(t *testing.T) {
	env := setupServices(t)
	ctx := context.Background()
	mustAdd(t, env.shelf, "alice", testBook("b1", 100), "")

	entries, err := env.shelf.ListPublic(ctx, "alice", domain.ShelfQuery{})
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	_, err = env.shelf.ListPublic(ctx, " ", domain.ShelfQuery{})
	assert.True(t, domainerrors.Is(err, domainerrors.ErrValidation))
}
