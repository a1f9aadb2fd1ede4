package search

import (
	"github.com/blevesearch/bleve/v2"
	"github.com/blevesearch/bleve/v2/analysis/analyzer/keyword"
	"github.com/blevesearch/bleve/v2/analysis/lang/en"
	"github.com/blevesearch/bleve/v2/mapping"
)

// buildIndexMapping creates the mapping for shelf entry documents.
// Owner and status are exact-match keywords so every query can be scoped
// to one shelf; the rest is English full text.
func buildIndexMapping() mapping.IndexMapping {
	indexMapping := bleve.NewIndexMapping()
	indexMapping.DefaultAnalyzer = en.AnalyzerName

	docMapping := bleve.NewDocumentMapping()

	for _, field := range []string{"owner_id", "book_id", "status"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = keyword.Name
		fm.Store = true
		docMapping.AddFieldMappingsAt(field, fm)
	}

	titleMapping := bleve.NewTextFieldMapping()
	titleMapping.Analyzer = en.AnalyzerName
	titleMapping.Store = true
	titleMapping.IncludeTermVectors = true
	docMapping.AddFieldMappingsAt("title", titleMapping)

	authorsMapping := bleve.NewTextFieldMapping()
	authorsMapping.Analyzer = en.AnalyzerName
	authorsMapping.Store = true
	docMapping.AddFieldMappingsAt("authors", authorsMapping)

	// Long text is searchable but not stored.
	for _, field := range []string{"description", "review"} {
		fm := bleve.NewTextFieldMapping()
		fm.Analyzer = en.AnalyzerName
		fm.Store = false
		docMapping.AddFieldMappingsAt(field, fm)
	}

	addedAtMapping := bleve.NewNumericFieldMapping()
	addedAtMapping.Store = true
	docMapping.AddFieldMappingsAt("added_at", addedAtMapping)

	indexMapping.AddDocumentMapping("_default", docMapping)
	return indexMapping
}
