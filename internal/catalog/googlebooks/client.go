// Package googlebooks is a client for the Google Books volumes API, the
// catalog that shelf entries are snapshotted from.
package googlebooks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/bookberryapp/bookberry-server/internal/domain"
	"github.com/bookberryapp/bookberry-server/internal/ratelimit"
)

const (
	// DefaultBaseURL is the public Google Books API.
	DefaultBaseURL = "https://www.googleapis.com/books/v1"
	// SearchLimit is the number of volumes requested per search.
	SearchLimit = 12

	limiterKey = "googlebooks"
)

// Config configures a Client.
type Config struct {
	BaseURL           string
	APIKey            string
	Timeout           time.Duration
	RequestsPerSecond float64
	Burst             int
}

// Client provides read-only access to the catalog.
type Client struct {
	http    *http.Client
	baseURL string
	apiKey  string
	limiter *ratelimit.KeyedRateLimiter
	logger  *slog.Logger
}

// New creates a catalog client. The base URL must be https.
func New(cfg Config, logger *slog.Logger) (*Client, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if !strings.HasPrefix(cfg.BaseURL, "https://") {
		return nil, ErrInsecureURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 10 * time.Second
	}
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = 2
	}
	if cfg.Burst <= 0 {
		cfg.Burst = 5
	}

	return &Client{
		http:    &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:  cfg.APIKey,
		limiter: ratelimit.New(cfg.RequestsPerSecond, cfg.Burst),
		logger:  logger,
	}, nil
}

// Close stops the rate limiter.
func (c *Client) Close() {
	c.limiter.Stop()
}

// Shutdown implements do.Shutdownable.
func (c *Client) Shutdown() error {
	c.Close()
	return nil
}

// Search returns up to SearchLimit books matching query.
// A blank query returns an empty list without calling the API.
func (c *Client) Search(ctx context.Context, query string) ([]domain.Book, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return []domain.Book{}, nil
	}

	params := url.Values{}
	params.Set("q", query)
	params.Set("maxResults", strconv.Itoa(SearchLimit))

	body, err := c.doRequest(ctx, "/volumes", params)
	if err != nil {
		return nil, wrapError("search", query, err)
	}

	var resp volumesResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, wrapError("search", query, fmt.Errorf("parse response: %w", err))
	}

	books := make([]domain.Book, 0, len(resp.Items))
	for i := range resp.Items {
		if resp.Items[i].ID == "" || resp.Items[i].VolumeInfo.Title == "" {
			continue
		}
		books = append(books, toBook(&resp.Items[i]))
	}

	c.logger.Debug("catalog search", "query", query, "total", resp.TotalItems, "returned", len(books))
	return books, nil
}

// GetByID returns a single volume. Returns ErrNotFound when the ID is unknown.
func (c *Client) GetByID(ctx context.Context, id string) (*domain.Book, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, wrapError("get", id, ErrNotFound)
	}

	body, err := c.doRequest(ctx, "/volumes/"+url.PathEscape(id), nil)
	if err != nil {
		return nil, wrapError("get", id, err)
	}

	var v volume
	if err := json.Unmarshal(body, &v); err != nil {
		return nil, wrapError("get", id, fmt.Errorf("parse response: %w", err))
	}
	if v.ID == "" {
		return nil, wrapError("get", id, ErrNotFound)
	}

	book := toBook(&v)
	return &book, nil
}

// doRequest executes a rate limited GET against the API.
func (c *Client) doRequest(ctx context.Context, path string, query url.Values) ([]byte, error) {
	if err := c.limiter.Wait(ctx, limiterKey); err != nil {
		return nil, fmt.Errorf("rate limit wait: %w", err)
	}

	if c.apiKey != "" {
		if query == nil {
			query = url.Values{}
		}
		query.Set("key", c.apiKey)
	}

	u := c.baseURL + path
	if len(query) > 0 {
		u += "?" + query.Encode()
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", "Bookberry/1.0")

	c.logger.Debug("catalog request", "path", path)

	resp, err := c.http.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, errors.Join(ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, errors.Join(ErrNetwork, fmt.Errorf("read response: %w", err))
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusNotFound:
		return nil, ErrNotFound
	case http.StatusTooManyRequests:
		return nil, ErrRateLimited
	case http.StatusBadRequest:
		return nil, ErrBadRequest
	default:
		if resp.StatusCode >= 500 {
			return nil, ErrServer
		}
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(body))
	}
}
