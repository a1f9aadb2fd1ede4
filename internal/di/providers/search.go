package providers

import (
	"context"

	"github.com/samber/do/v2"

	"github.com/bookberryapp/bookberry-server/internal/config"
	"github.com/bookberryapp/bookberry-server/internal/logger"
	"github.com/bookberryapp/bookberry-server/internal/search"
	"github.com/bookberryapp/bookberry-server/internal/service"
)

// SearchIndexHandle wraps the search index with shutdown capability.
type SearchIndexHandle struct {
	*search.ShelfIndex
}

// Shutdown implements do.Shutdownable.
func (h *SearchIndexHandle) Shutdown() error {
	return h.Close()
}

// ProvideSearchIndex provides the bleve shelf index.
func ProvideSearchIndex(i do.Injector) (*SearchIndexHandle, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	index, err := search.NewShelfIndex(search.Options{
		DataPath: cfg.SearchIndexPath(),
		Logger:   log.Logger,
	})
	if err != nil {
		return nil, err
	}

	docCount, _ := index.DocumentCount()
	log.Info("Search index initialized", "documents", docCount)

	return &SearchIndexHandle{ShelfIndex: index}, nil
}

// ProvideSearchService provides the shelf search service.
func ProvideSearchService(i do.Injector) (*service.SearchService, error) {
	indexHandle := do.MustInvoke[*SearchIndexHandle](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	return service.NewSearchService(indexHandle.ShelfIndex, storeHandle.Store, log.Logger), nil
}

// TriggerSearchReindexIfNeeded repopulates an empty search index from the
// store. NewShelfIndex starts empty after a mapping change, so this must run
// once all services are wired and before requests are served.
func TriggerSearchReindexIfNeeded(ctx context.Context, i do.Injector) {
	searchService := do.MustInvoke[*service.SearchService](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	log := do.MustInvoke[*logger.Logger](i)

	docCount, _ := searchService.DocumentCount()
	if docCount > 0 {
		return
	}

	entries, err := storeHandle.ListAllEntries(ctx)
	if err != nil || len(entries) == 0 {
		return
	}

	log.Info("Search index is empty but shelf entries exist, triggering reindex",
		"entry_count", len(entries),
	)

	if err := searchService.ReindexAll(ctx); err != nil {
		log.Error("Initial search reindex failed", "error", err)
		return
	}
	count, _ := searchService.DocumentCount()
	log.Info("Initial search reindex completed", "documents", count)
}
