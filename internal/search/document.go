package search

import (
	"strings"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

// EntryDocument is the indexed form of a shelf entry.
type EntryDocument struct {
	OwnerID     string
	BookID      string
	Status      string
	Title       string
	Authors     string
	Description string
	Review      string
	AddedAt     int64
}

// DocumentID returns the index key for an owner's entry.
func DocumentID(ownerID, bookID string) string {
	return ownerID + "/" + bookID
}

// NewEntryDocument converts a shelf entry into an index document.
func NewEntryDocument(e *domain.ShelfEntry) *EntryDocument {
	doc := &EntryDocument{
		OwnerID:     e.OwnerID,
		BookID:      e.BookID(),
		Status:      string(e.Status),
		Title:       e.Title,
		Authors:     strings.Join(e.Authors, ", "),
		Description: e.Description,
		AddedAt:     e.AddedAt.Unix(),
	}
	if e.Review != nil {
		doc.Review = *e.Review
	}
	return doc
}

// ID returns the index key of the document.
func (d *EntryDocument) ID() string {
	return DocumentID(d.OwnerID, d.BookID)
}

// ToMap converts the document to the field names used by the mapping.
func (d *EntryDocument) ToMap() map[string]any {
	return map[string]any{
		"owner_id":    d.OwnerID,
		"book_id":     d.BookID,
		"status":      d.Status,
		"title":       d.Title,
		"authors":     d.Authors,
		"description": d.Description,
		"review":      d.Review,
		"added_at":    float64(d.AddedAt),
	}
}
