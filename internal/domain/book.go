package domain

// UnknownAuthor is used when the catalog returns a book without authors.
const UnknownAuthor = "Unknown Author"

// Book is a catalog snapshot taken when the book was added to a shelf.
// It is never refreshed from the catalog afterwards.
type Book struct {
	ID          string   `json:"id" validate:"required,max=128"`
	Title       string   `json:"title" validate:"required,max=1000"`
	Authors     []string `json:"authors" validate:"dive,max=500"`
	Description string   `json:"description,omitempty"`
	CoverURL    string   `json:"cover_url,omitempty" validate:"omitempty,url"`
	PageCount   int      `json:"page_count" validate:"gte=0"`
	ISBN        string   `json:"isbn,omitempty" validate:"max=32"`
}

// AuthorsOrDefault returns the authors, falling back to UnknownAuthor.
func (b *Book) AuthorsOrDefault() []string {
	if len(b.Authors) == 0 {
		return []string{UnknownAuthor}
	}
	return b.Authors
}
