package remote

import (
	"bytes"
	"context"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bookberryapp/bookberry-server/internal/api"
	"github.com/bookberryapp/bookberry-server/internal/auth"
	"github.com/bookberryapp/bookberry-server/internal/client"
	"github.com/bookberryapp/bookberry-server/internal/domain"
	domainerrors "github.com/bookberryapp/bookberry-server/internal/errors"
	"github.com/bookberryapp/bookberry-server/internal/search"
	"github.com/bookberryapp/bookberry-server/internal/service"
	"github.com/bookberryapp/bookberry-server/internal/sse"
	"github.com/bookberryapp/bookberry-server/internal/store/sqlite"
	"github.com/bookberryapp/bookberry-server/internal/validation"
)

type testBackend struct {
	url    string
	tokens *auth.TokenService
}

// startBackend runs a real API server over a temporary database.
func startBackend(t *testing.T) *testBackend {
	t.Helper()

	logger := slog.New(slog.DiscardHandler)

	st, err := sqlite.Open(filepath.Join(t.TempDir(), "test.db"), logger)
	require.NoError(t, err)

	index, err := search.NewShelfIndex(search.Options{Logger: logger})
	require.NoError(t, err)

	manager := sse.NewManager(logger)
	ctx, cancel := context.WithCancel(context.Background())
	go manager.Start(ctx)

	tokens, err := auth.NewTokenService(bytes.Repeat([]byte{9}, 32), time.Hour)
	require.NoError(t, err)

	services := &api.Services{
		Shelf:   service.NewShelfService(st, index, manager, validation.New(), logger),
		Profile: service.NewProfileService(st, manager, logger),
		Review:  service.NewReviewService(st, logger),
		Search:  service.NewSearchService(index, st, logger),
	}
	server := api.NewServer(st, services, manager, tokens, api.Options{}, logger)
	httpServer := httptest.NewServer(server)

	t.Cleanup(func() {
		cancel()
		_ = manager.Shutdown(context.Background())
		httpServer.Close()
		_ = server.Shutdown(context.Background())
		_ = index.Close()
		_ = st.Close()
	})

	return &testBackend{url: httpServer.URL, tokens: tokens}
}

func (b *testBackend) library(t *testing.T, userID string) *Library {
	t.Helper()

	var token string
	if userID != "" {
		var err error
		token, _, err = b.tokens.GenerateAccessToken(userID)
		require.NoError(t, err)
	}

	lib, err := New(Config{BaseURL: b.url, Token: token}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)
	t.Cleanup(func() { _ = lib.Close() })
	return lib
}

func testBook(id string, pages int) domain.Book {
	return domain.Book{ID: id, Title: "Book " + id, Authors: []string{"Author " + id}, PageCount: pages}
}

func TestNew_RejectsInvalidURL(t *testing.T) {
	_, err := New(Config{BaseURL: "not a url"}, slog.New(slog.DiscardHandler))
	assert.Error(t, err)
}

func TestLibrary_LoadingUntilFirstRefresh(t *testing.T) {
	backend := startBackend(t)
	lib := backend.library(t, "u1")

	assert.True(t, lib.Library().Loading)

	require.NoError(t, lib.Refresh(context.Background()))

	state := lib.Library()
	assert.False(t, state.Loading)
	assert.Empty(t, state.Entries)
}

func TestLibrary_MutationsRederiveState(t *testing.T) {
	ctx := context.Background()
	backend := startBackend(t)
	lib := backend.library(t, "u1")

	var (
		mu     sync.Mutex
		states []client.State
	)
	cancel := lib.Subscribe(func(s client.State) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, s)
	})
	defer cancel()

	require.NoError(t, lib.AddBook(ctx, testBook("b1", 300), ""))
	require.NoError(t, lib.UpdateBookStatus(ctx, "b1", domain.StatusReading))
	require.NoError(t, lib.UpdateProgress(ctx, "b1", 400))

	entries := lib.Library().Entries
	require.Len(t, entries, 1)
	assert.Equal(t, domain.StatusCompleted, entries[0].Status)
	assert.Equal(t, 300, *entries[0].UserCurrentPage)

	review := "Great"
	require.NoError(t, lib.RateBook(ctx, "b1", 5, &review))
	entries = lib.Library().Entries
	require.NotNil(t, entries[0].UserRating)
	assert.InDelta(t, 5.0, *entries[0].UserRating, 0.001)

	require.NoError(t, lib.RemoveBook(ctx, "b1"))
	assert.Empty(t, lib.Library().Entries)

	mu.Lock()
	defer mu.Unlock()
	require.NotEmpty(t, states)
	assert.True(t, states[0].Loading, "first notification is the initial state")
	assert.False(t, states[len(states)-1].Loading)
}

func TestLibrary_ClearLibrary(t *testing.T) {
	ctx := context.Background()
	backend := startBackend(t)
	lib := backend.library(t, "u1")

	require.NoError(t, lib.AddBook(ctx, testBook("b1", 100), ""))
	require.NoError(t, lib.AddBook(ctx, testBook("b2", 100), domain.StatusReading))
	require.Len(t, lib.Library().Entries, 2)

	require.NoError(t, lib.ClearLibrary(ctx))
	assert.Empty(t, lib.Library().Entries)
}

func TestLibrary_ServerErrorsAreTyped(t *testing.T) {
	ctx := context.Background()
	backend := startBackend(t)

	anon := backend.library(t, "")
	err := anon.AddBook(ctx, testBook("b1", 100), "")
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)

	lib := backend.library(t, "u1")
	require.NoError(t, lib.AddBook(ctx, testBook("b1", 100), ""))
	err = lib.RateBook(ctx, "b1", 9, nil)
	assert.ErrorIs(t, err, domainerrors.ErrValidation)
}

func TestLibrary_StatsAndSearch(t *testing.T) {
	ctx := context.Background()
	backend := startBackend(t)
	lib := backend.library(t, "u1")

	book := testBook("b1", 100)
	book.Title = "Piranesi"
	require.NoError(t, lib.AddBook(ctx, book, domain.StatusCompleted))
	require.NoError(t, lib.AddBook(ctx, testBook("b2", 100), ""))

	stats, err := lib.Stats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Completed)
	assert.Equal(t, 1, stats.WantToRead)
	assert.Equal(t, domain.DefaultReadingGoal, stats.Goal)

	found, err := lib.SearchShelf(ctx, "piranesi")
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Equal(t, "b1", found[0].ID)
}

func TestLibrary_ClosedRejectsCalls(t *testing.T) {
	backend := startBackend(t)
	lib := backend.library(t, "u1")

	require.NoError(t, lib.Close())
	require.NoError(t, lib.Close())

	assert.ErrorIs(t, lib.Refresh(context.Background()), ErrClosed)
	assert.ErrorIs(t, lib.Watch(context.Background()), ErrClosed)
}

func TestLibrary_NetworkFailure(t *testing.T) {
	server := httptest.NewServer(http.NotFoundHandler())
	url := server.URL
	server.Close()

	lib, err := New(Config{BaseURL: url}, slog.New(slog.DiscardHandler))
	require.NoError(t, err)

	err = lib.Refresh(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrNetworkFailure)
	assert.True(t, lib.Library().Loading)
}

func TestWatch_ReceivesPushedSnapshots(t *testing.T) {
	backend := startBackend(t)
	watcher := backend.library(t, "u1")
	writer := backend.library(t, "u1")

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- watcher.Watch(ctx) }()

	// The initial snapshot ends the loading state.
	require.Eventually(t, func() bool { return !watcher.Library().Loading }, 5*time.Second, 10*time.Millisecond)

	require.NoError(t, writer.AddBook(context.Background(), testBook("b1", 100), ""))

	require.Eventually(t, func() bool {
		entries := watcher.Library().Entries
		return len(entries) == 1 && entries[0].ID == "b1"
	}, 5*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not return after cancel")
	}
}

func TestWatch_RequiresAuth(t *testing.T) {
	backend := startBackend(t)
	lib := backend.library(t, "")

	err := lib.Watch(context.Background())
	assert.ErrorIs(t, err, domainerrors.ErrUnauthorized)
}

func TestReadFrames(t *testing.T) {
	stream := strings.Join([]string{
		": comment",
		"id: evt-1",
		"event: connected",
		`data: {"id":"evt-1"}`,
		"",
		"event: shelf.snapshot",
		"data: line one",
		"data: line two",
		"",
		"data: trailing frame without blank line",
	}, "\n")

	var frames []frame
	require.NoError(t, readFrames(strings.NewReader(stream), func(f frame) { frames = append(frames, f) }))

	require.Len(t, frames, 2)
	assert.Equal(t, frame{id: "evt-1", event: "connected", data: `{"id":"evt-1"}`}, frames[0])
	assert.Equal(t, "shelf.snapshot", frames[1].event)
	assert.Equal(t, "line one\nline two", frames[1].data)
}
