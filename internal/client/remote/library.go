// Package remote implements client.Library on top of the Bookberry server API.
//
// Every mutation is sent to the server and followed by a fresh listing of the
// shelf, so the local state always mirrors what the server stored. Watch keeps
// the state current between calls by following the server's event stream.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/bookberryapp/bookberry-server/internal/client"
	"github.com/bookberryapp/bookberry-server/internal/domain"
	domainerrors "github.com/bookberryapp/bookberry-server/internal/errors"
)

var _ client.Library = (*Library)(nil)

// ErrClosed is returned by operations on a closed library.
var ErrClosed = errors.New("remote library is closed")

// Config configures a remote library.
type Config struct {
	BaseURL string
	// Token is the bearer token; empty means anonymous.
	Token   string
	Timeout time.Duration
	// HTTPClient overrides the client used for regular calls. The event stream
	// always uses a client without a timeout derived from its transport.
	HTTPClient *http.Client
}

// Library is a client.Library backed by the server. It reports Loading until
// the first successful refresh.
type Library struct {
	baseURL string
	token   string
	http    *http.Client
	stream  *http.Client
	state   *client.Holder
	logger  *slog.Logger

	mu     sync.Mutex
	closed bool
}

// New creates a remote library. No request is made until Refresh or a mutation.
func New(cfg Config, logger *slog.Logger) (*Library, error) {
	base, err := url.Parse(strings.TrimRight(cfg.BaseURL, "/"))
	if err != nil || base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("invalid server URL %q", cfg.BaseURL)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: cfg.Timeout}
	}

	return &Library{
		baseURL: base.String(),
		token:   cfg.Token,
		http:    httpClient,
		stream:  &http.Client{Transport: httpClient.Transport},
		state:   client.NewHolder(client.State{Loading: true}),
		logger:  logger,
	}, nil
}

// AddBook adds book to the server shelf. An empty status means WANT_TO_READ.
func (l *Library) AddBook(ctx context.Context, book domain.Book, status domain.ReadingStatus) error {
	book.Authors = book.AuthorsOrDefault()
	body := addRequest{Book: book, Status: string(status)}
	return l.mutate(ctx, http.MethodPost, "/api/v1/shelf", body)
}

// UpdateBookStatus moves a shelved book to another status.
func (l *Library) UpdateBookStatus(ctx context.Context, bookID string, status domain.ReadingStatus) error {
	return l.mutate(ctx, http.MethodPut, entryPath(bookID, "status"), map[string]string{"status": string(status)})
}

// UpdateProgress records the current page of a shelved book.
func (l *Library) UpdateProgress(ctx context.Context, bookID string, page int) error {
	return l.mutate(ctx, http.MethodPut, entryPath(bookID, "progress"), map[string]int{"page": page})
}

// RateBook rates a shelved book and marks it completed.
func (l *Library) RateBook(ctx context.Context, bookID string, rating float64, review *string) error {
	return l.mutate(ctx, http.MethodPut, entryPath(bookID, "rating"), rateRequest{Rating: rating, Review: review})
}

// RemoveBook deletes a book from the server shelf.
func (l *Library) RemoveBook(ctx context.Context, bookID string) error {
	return l.mutate(ctx, http.MethodDelete, entryPath(bookID, ""), nil)
}

// ClearLibrary removes every book from the server shelf.
func (l *Library) ClearLibrary(ctx context.Context) error {
	return l.mutate(ctx, http.MethodDelete, "/api/v1/shelf", nil)
}

// Refresh replaces the state with the server's current listing.
func (l *Library) Refresh(ctx context.Context) error {
	var resp shelfListResponse
	if err := l.call(ctx, http.MethodGet, "/api/v1/shelf", nil, &resp); err != nil {
		return err
	}
	l.state.Set(client.State{Entries: resp.entries()})
	return nil
}

// Library returns the current shelf.
func (l *Library) Library() client.State {
	return l.state.Get()
}

// Subscribe registers fn for state changes.
func (l *Library) Subscribe(fn func(client.State)) (cancel func()) {
	return l.state.Subscribe(fn)
}

// Stats returns the caller's reading stats.
func (l *Library) Stats(ctx context.Context) (*domain.ReadingStats, error) {
	var stats domain.ReadingStats
	if err := l.call(ctx, http.MethodGet, "/api/v1/shelf/stats", nil, &stats); err != nil {
		return nil, err
	}
	return &stats, nil
}

// SearchShelf runs a full-text search over the caller's shelf.
func (l *Library) SearchShelf(ctx context.Context, query string) ([]domain.ShelfEntry, error) {
	var resp shelfListResponse
	path := "/api/v1/shelf/search?" + url.Values{"q": {query}}.Encode()
	if err := l.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.entries(), nil
}

// SearchCatalog searches the external catalog through the server.
func (l *Library) SearchCatalog(ctx context.Context, query string) ([]domain.Book, error) {
	var resp struct {
		Books []domain.Book `json:"books"`
	}
	path := "/api/v1/catalog/search?" + url.Values{"q": {query}}.Encode()
	if err := l.call(ctx, http.MethodGet, path, nil, &resp); err != nil {
		return nil, err
	}
	return resp.Books, nil
}

// CatalogBook looks a single book up in the external catalog through the server.
func (l *Library) CatalogBook(ctx context.Context, bookID string) (*domain.Book, error) {
	var book domain.Book
	if err := l.call(ctx, http.MethodGet, "/api/v1/catalog/books/"+url.PathEscape(bookID), nil, &book); err != nil {
		return nil, err
	}
	return &book, nil
}

// Close releases idle connections. It is safe to call more than once.
func (l *Library) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.closed {
		return nil
	}
	l.closed = true
	l.http.CloseIdleConnections()
	return nil
}

// Shutdown implements do.ShutdownerWithError.
func (l *Library) Shutdown() error {
	return l.Close()
}

func (l *Library) isClosed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.closed
}

// mutate sends a change and then re-reads the shelf.
func (l *Library) mutate(ctx context.Context, method, path string, body any) error {
	if err := l.call(ctx, method, path, body, nil); err != nil {
		return err
	}
	if err := l.Refresh(ctx); err != nil {
		return fmt.Errorf("refresh shelf: %w", err)
	}
	return nil
}

// call performs one API request and decodes the envelope's data into out.
func (l *Library) call(ctx context.Context, method, path string, body, out any) error {
	if l.isClosed() {
		return ErrClosed
	}

	var reader io.Reader = http.NoBody
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, l.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	l.authorize(req)

	resp, err := l.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return domainerrors.NetworkFailure(err, "server unreachable")
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return domainerrors.NetworkFailure(err, "read response")
	}

	var env envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return fmt.Errorf("%s %s: unexpected response (status %d): %w", method, path, resp.StatusCode, err)
	}
	if !env.Success {
		return env.err(resp.StatusCode)
	}

	l.logger.Debug("api call", "method", method, "path", path, "status", resp.StatusCode)

	if out == nil || len(env.Data) == 0 || string(env.Data) == "null" {
		return nil
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (l *Library) authorize(req *http.Request) {
	if l.token != "" {
		req.Header.Set("Authorization", "Bearer "+l.token)
	}
}

func entryPath(bookID, action string) string {
	path := "/api/v1/shelf/" + url.PathEscape(bookID)
	if action != "" {
		path += "/" + action
	}
	return path
}

type addRequest struct {
	Book   domain.Book `json:"book"`
	Status string      `json:"status,omitempty"`
}

type rateRequest struct {
	Rating float64 `json:"rating"`
	Review *string `json:"review,omitempty"`
}

type shelfListResponse struct {
	Entries []domain.ShelfEntry `json:"entries"`
}

func (r shelfListResponse) entries() []domain.ShelfEntry {
	if r.Entries == nil {
		return []domain.ShelfEntry{}
	}
	return r.Entries
}

// envelope is the server's response wrapper.
type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Code    string          `json:"code"`
	Message string          `json:"message"`
	Error   string          `json:"error"`
	Details any             `json:"details"`
}

func (e envelope) err(status int) error {
	code := domainerrors.Code(e.Code)
	if code == "" {
		code = domainerrors.CodeInternal
	}
	msg := e.Message
	if msg == "" {
		msg = e.Error
	}
	if msg == "" {
		msg = http.StatusText(status)
	}
	return domainerrors.Wrap(nil, code, msg).WithDetails(e.Details)
}
