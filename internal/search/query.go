package search

import (
	"context"
	"fmt"
	"strings"

	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/search/query"
)

// DefaultLimit is used when a search does not specify a limit.
const DefaultLimit = 20

// Params narrows a shelf search.
type Params struct {
	OwnerID string
	Query   string
	Status  string // optional exact status filter
	Limit   int
}

// Hit is one matching shelf entry.
type Hit struct {
	BookID string  `json:"book_id"`
	Score  float64 `json:"score"`
}

// Search returns the owner's entries matching params.Query, best match first.
// An empty query matches every entry of the owner.
func (s *ShelfIndex) Search(ctx context.Context, params Params) ([]Hit, error) {
	if params.OwnerID == "" {
		return []Hit{}, nil
	}
	if params.Limit <= 0 {
		params.Limit = DefaultLimit
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	req := bleve.NewSearchRequestOptions(buildSearchQuery(params), params.Limit, 0, false)
	req.Fields = []string{"book_id"}

	res, err := s.index.SearchInContext(ctx, req)
	if err != nil {
		return nil, fmt.Errorf("search: %w", err)
	}

	hits := make([]Hit, 0, len(res.Hits))
	for _, h := range res.Hits {
		bookID, _ := h.Fields["book_id"].(string)
		if bookID == "" {
			_, bookID, _ = strings.Cut(h.ID, "/")
		}
		hits = append(hits, Hit{BookID: bookID, Score: h.Score})
	}
	return hits, nil
}

func buildSearchQuery(params Params) query.Query {
	owner := bleve.NewTermQuery(params.OwnerID)
	owner.SetField("owner_id")
	queries := []query.Query{owner}

	if params.Status != "" {
		status := bleve.NewTermQuery(params.Status)
		status.SetField("status")
		queries = append(queries, status)
	}

	if text := strings.TrimSpace(params.Query); text != "" {
		title := bleve.NewMatchQuery(text)
		title.SetField("title")
		title.SetBoost(3.0)

		authors := bleve.NewMatchQuery(text)
		authors.SetField("authors")
		authors.SetBoost(2.0)

		description := bleve.NewMatchQuery(text)
		description.SetField("description")

		review := bleve.NewMatchQuery(text)
		review.SetField("review")

		fuzzy := bleve.NewFuzzyQuery(strings.ToLower(text))
		fuzzy.SetField("title")
		fuzzy.SetFuzziness(1)
		fuzzy.SetBoost(0.8)

		queries = append(queries, bleve.NewDisjunctionQuery(title, authors, description, review, fuzzy))
	}

	return bleve.NewConjunctionQuery(queries...)
}
