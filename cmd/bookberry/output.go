package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/bookberryapp/bookberry-server/internal/domain"
)

func shelfName(s domain.ReadingStatus) string {
	return strings.ToLower(strings.ReplaceAll(string(s), "_", "-"))
}

func printEntries(w io.Writer, entries []*domain.ShelfEntry) {
	if len(entries) == 0 {
		fmt.Fprintln(w, "The shelf is empty")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHORS\tSHELF\tPROGRESS\tRATING")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\n",
			e.BookID(),
			e.Title,
			strings.Join(e.AuthorsOrDefault(), ", "),
			shelfName(e.Status),
			progress(e),
			rating(e),
		)
	}
	tw.Flush()
}

func formatEntry(e *domain.ShelfEntry) string {
	return fmt.Sprintf("%s  %s  [%s]  %s  %s", e.BookID(), e.Title, shelfName(e.Status), progress(e), rating(e))
}

func progress(e *domain.ShelfEntry) string {
	if e.UserCurrentPage == nil {
		return "-"
	}
	if e.PageCount > 0 {
		return fmt.Sprintf("%d/%d", *e.UserCurrentPage, e.PageCount)
	}
	return strconv.Itoa(*e.UserCurrentPage)
}

func rating(e *domain.ShelfEntry) string {
	if e.UserRating == nil {
		return "-"
	}
	return strconv.FormatFloat(*e.UserRating, 'f', 1, 64)
}

func printBooks(w io.Writer, books []domain.Book) {
	if len(books) == 0 {
		fmt.Fprintln(w, "No books found")
		return
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTITLE\tAUTHORS\tPAGES")
	for i := range books {
		b := &books[i]
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\n", b.ID, b.Title, strings.Join(b.AuthorsOrDefault(), ", "), b.PageCount)
	}
	tw.Flush()
}

func printStats(w io.Writer, s domain.ReadingStats) {
	fmt.Fprintf(w, "Want to read: %d\n", s.WantToRead)
	fmt.Fprintf(w, "Reading:      %d\n", s.Reading)
	fmt.Fprintf(w, "Completed:    %d\n", s.Completed)
	fmt.Fprintf(w, "Goal:         %d/%d (%d%%)\n", s.Completed, s.Goal, s.GoalProgress)
}
