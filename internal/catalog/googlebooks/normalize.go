package googlebooks

import (
	"regexp"
	"strings"

	htmltomarkdown "github.com/JohannesKaufmann/html-to-markdown/v2"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

// htmlTagPattern detects the markup Google Books uses in descriptions.
var htmlTagPattern = regexp.MustCompile(`<(p|br|div|span|b|i|strong|em|a|ul|ol|li|h[1-6]|blockquote)[\s>/]`)

// toBook converts a catalog volume into the shelf's Book snapshot.
func toBook(v *volume) domain.Book {
	info := v.VolumeInfo

	book := domain.Book{
		ID:          v.ID,
		Title:       info.Title,
		Authors:     info.Authors,
		Description: htmlToMarkdown(info.Description),
		PageCount:   max(info.PageCount, 0),
	}
	if len(book.Authors) == 0 {
		book.Authors = []string{domain.UnknownAuthor}
	}
	if len(info.IndustryIdentifiers) > 0 {
		book.ISBN = info.IndustryIdentifiers[0].Identifier
	}
	if info.ImageLinks != nil {
		cover := info.ImageLinks.Thumbnail
		if cover == "" {
			cover = info.ImageLinks.SmallThumbnail
		}
		book.CoverURL = SecureURL(cover)
	}
	return book
}

// SecureURL rewrites plain http URLs to https. Other values are returned unchanged.
func SecureURL(u string) string {
	if rest, ok := strings.CutPrefix(u, "http://"); ok {
		return "https://" + rest
	}
	return u
}

// htmlToMarkdown converts HTML descriptions to Markdown.
// Plain text and unconvertible input are returned unchanged.
func htmlToMarkdown(s string) string {
	if s == "" || !htmlTagPattern.MatchString(strings.ToLower(s)) {
		return s
	}

	markdown, err := htmltomarkdown.ConvertString(s)
	if err != nil {
		return s
	}
	return strings.TrimSpace(markdown)
}
