package main

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/bookberryapp/bookberry-server/internal/client"
	"github.com/bookberryapp/bookberry-server/internal/client/remote"
	"github.com/bookberryapp/bookberry-server/internal/domain"
)

// withLibrary runs fn against the facade selected by opts and shuts the
// session down afterwards.
func withLibrary(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, lib client.Library) error) error {
	s := openSession(*opts)
	defer s.Close()

	lib, err := s.Library()
	if err != nil {
		return err
	}
	return fn(cmd.Context(), lib)
}

func withRemote(cmd *cobra.Command, opts *globalOptions, fn func(ctx context.Context, lib *remote.Library) error) error {
	s := openSession(*opts)
	defer s.Close()

	lib, err := s.Remote()
	if err != nil {
		return err
	}
	return fn(cmd.Context(), lib)
}

func newListCmd(opts *globalOptions) *cobra.Command {
	var status, sort string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List the books on the shelf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			query, err := parseListQuery(status, sort)
			if err != nil {
				return err
			}
			return withLibrary(cmd, opts, func(ctx context.Context, lib client.Library) error {
				if err := lib.Refresh(ctx); err != nil {
					return err
				}
				entries := lib.Library().Entries
				ptrs := make([]*domain.ShelfEntry, len(entries))
				for i := range entries {
					ptrs[i] = &entries[i]
				}
				printEntries(cmd.OutOrStdout(), query.Apply(ptrs))
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "only show one shelf (want-to-read, reading, completed)")
	cmd.Flags().StringVar(&sort, "sort", "date", "order by date, rating or title")
	return cmd
}

func parseListQuery(status, sort string) (domain.ShelfQuery, error) {
	var q domain.ShelfQuery
	if status != "" {
		s, err := domain.ParseReadingStatus(status)
		if err != nil {
			return q, err
		}
		q.Status = s
	}
	order, err := domain.ParseShelfSort(sort)
	if err != nil {
		return q, err
	}
	q.Sort = order
	return q, nil
}

func newAddCmd(opts *globalOptions) *cobra.Command {
	var (
		status  string
		title   string
		authors []string
		pages   int
		isbn    string
	)

	cmd := &cobra.Command{
		Use:   "add <book-id>",
		Short: "Add a book to the shelf",
		Long: `Adds a book to the shelf. Adding a book that is already shelved only
changes its status.

Against a server the book details are fetched from the catalog unless --title
is given. In local mode --title is required.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := domain.StatusWantToRead
			if status != "" {
				parsed, err := domain.ParseReadingStatus(status)
				if err != nil {
					return err
				}
				st = parsed
			}

			book := domain.Book{
				ID:        args[0],
				Title:     strings.TrimSpace(title),
				Authors:   authors,
				PageCount: pages,
				ISBN:      isbn,
			}

			s := openSession(*opts)
			defer s.Close()

			if book.Title == "" {
				if opts.Local {
					return errors.New("--title is required in local mode")
				}
				rl, err := s.Remote()
				if err != nil {
					return err
				}
				found, err := rl.CatalogBook(cmd.Context(), book.ID)
				if err != nil {
					return fmt.Errorf("look up %s in the catalog: %w", book.ID, err)
				}
				book = *found
			}

			lib, err := s.Library()
			if err != nil {
				return err
			}
			if err := lib.AddBook(cmd.Context(), book, st); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Added %q to %s\n", book.Title, shelfName(st))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "shelf to add to (default want-to-read)")
	cmd.Flags().StringVar(&title, "title", "", "book title")
	cmd.Flags().StringSliceVar(&authors, "author", nil, "book author (repeatable)")
	cmd.Flags().IntVar(&pages, "pages", 0, "page count")
	cmd.Flags().StringVar(&isbn, "isbn", "", "ISBN")
	return cmd
}

func newStatusCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "status <book-id> <status>",
		Short: "Move a book to another shelf",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st, err := domain.ParseReadingStatus(args[1])
			if err != nil {
				return err
			}
			return withLibrary(cmd, opts, func(ctx context.Context, lib client.Library) error {
				if err := lib.UpdateBookStatus(ctx, args[0], st); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Moved %s to %s\n", args[0], shelfName(st))
				return nil
			})
		},
	}
}

func newProgressCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "progress <book-id> <page>",
		Short: "Record the current page of a book",
		Long:  "Records the current page. Reaching the last page marks the book completed.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			page, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid page %q", args[1])
			}
			return withLibrary(cmd, opts, func(ctx context.Context, lib client.Library) error {
				if err := lib.UpdateProgress(ctx, args[0], page); err != nil {
					return err
				}
				printEntryLine(cmd, lib, args[0])
				return nil
			})
		},
	}
}

func newRateCmd(opts *globalOptions) *cobra.Command {
	var review string

	cmd := &cobra.Command{
		Use:   "rate <book-id> <rating>",
		Short: "Rate a book from 0 to 5 in half steps",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			rating, err := strconv.ParseFloat(args[1], 64)
			if err != nil {
				return fmt.Errorf("invalid rating %q", args[1])
			}
			if err := domain.ValidateRating(rating); err != nil {
				return err
			}
			var rev *string
			if cmd.Flags().Changed("review") {
				rev = &review
			}
			return withLibrary(cmd, opts, func(ctx context.Context, lib client.Library) error {
				if err := lib.RateBook(ctx, args[0], rating, rev); err != nil {
					return err
				}
				printEntryLine(cmd, lib, args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&review, "review", "", "review text")
	return cmd
}

func newRemoveCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:     "remove <book-id>",
		Aliases: []string{"rm"},
		Short:   "Remove a book from the shelf",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withLibrary(cmd, opts, func(ctx context.Context, lib client.Library) error {
				if err := lib.RemoveBook(ctx, args[0]); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Removed %s\n", args[0])
				return nil
			})
		},
	}
}

func newClearCmd(opts *globalOptions) *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "clear",
		Short: "Remove every book from the shelf",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if !yes {
				return errors.New("refusing to clear the shelf without --yes")
			}
			return withLibrary(cmd, opts, func(ctx context.Context, lib client.Library) error {
				if err := lib.ClearLibrary(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Shelf cleared")
				return nil
			})
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "confirm")
	return cmd
}

func newSearchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "search <query>",
		Short: "Full-text search of your shelf on the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, opts, func(ctx context.Context, lib *remote.Library) error {
				entries, err := lib.SearchShelf(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				ptrs := make([]*domain.ShelfEntry, len(entries))
				for i := range entries {
					ptrs[i] = &entries[i]
				}
				printEntries(cmd.OutOrStdout(), ptrs)
				return nil
			})
		},
	}
}

func newCatalogCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "catalog <query>",
		Short: "Search the book catalog",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withRemote(cmd, opts, func(ctx context.Context, lib *remote.Library) error {
				books, err := lib.SearchCatalog(ctx, strings.Join(args, " "))
				if err != nil {
					return err
				}
				printBooks(cmd.OutOrStdout(), books)
				return nil
			})
		},
	}
}

func newStatsCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show shelf counts and yearly goal progress",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s := openSession(*opts)
			defer s.Close()

			var stats domain.ReadingStats
			if opts.Local {
				lib, err := s.Library()
				if err != nil {
					return err
				}
				entries := lib.Library().Entries
				ptrs := make([]*domain.ShelfEntry, len(entries))
				for i := range entries {
					ptrs[i] = &entries[i]
				}
				stats = domain.ComputeReadingStats(ptrs, domain.DefaultReadingGoal)
			} else {
				rl, err := s.Remote()
				if err != nil {
					return err
				}
				fetched, err := rl.Stats(cmd.Context())
				if err != nil {
					return err
				}
				stats = *fetched
			}
			printStats(cmd.OutOrStdout(), stats)
			return nil
		},
	}
}

func newWatchCmd(opts *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "watch",
		Short: "Follow shelf changes pushed by the server",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withRemote(cmd, opts, func(ctx context.Context, lib *remote.Library) error {
				cancel := lib.Subscribe(func(state client.State) {
					if state.Loading {
						return
					}
					fmt.Fprintf(cmd.OutOrStdout(), "%d books on the shelf\n", len(state.Entries))
				})
				defer cancel()
				return lib.Watch(ctx)
			})
		},
	}
}

func printEntryLine(cmd *cobra.Command, lib client.Library, bookID string) {
	for _, e := range lib.Library().Entries {
		if e.BookID() == bookID {
			fmt.Fprintln(cmd.OutOrStdout(), formatEntry(&e))
			return
		}
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s is not on the shelf\n", bookID)
}
