// Package main seeds the database with test readers and shelves.
//
// It creates a handful of readers with profiles, shelves a random selection of
// well known books for each, and records progress, ratings and reviews so the
// stats, public profile and review pages have something to show. Run it while
// the server is stopped; the search index is locked by a running server.
//
// Usage:
//
//	METADATA_PATH=~/.bookberry go run ./cmd/seed
//	METADATA_PATH=~/.bookberry go run ./cmd/seed --readers 3 --tokens
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"

	"github.com/bookberryapp/bookberry-server/internal/auth"
	"github.com/bookberryapp/bookberry-server/internal/config"
	"github.com/bookberryapp/bookberry-server/internal/domain"
	"github.com/bookberryapp/bookberry-server/internal/id"
	"github.com/bookberryapp/bookberry-server/internal/search"
	"github.com/bookberryapp/bookberry-server/internal/service"
	"github.com/bookberryapp/bookberry-server/internal/store/sqlite"
	"github.com/bookberryapp/bookberry-server/internal/validation"
)

var (
	readers     = flag.Int("readers", len(testReaderNames), "Number of test readers to create")
	printTokens = flag.Bool("tokens", false, "Print an access token for every reader")
)

func main() {
	flag.Parse()

	home, err := os.UserHomeDir()
	if err != nil {
		log.Fatalf("Failed to resolve home directory: %v", err)
	}
	basePath, err := config.ExpandPath(os.Getenv("METADATA_PATH"), filepath.Join(home, ".bookberry"))
	if err != nil {
		log.Fatalf("Invalid METADATA_PATH: %v", err)
	}
	cfg := &config.Config{Metadata: config.MetadataConfig{BasePath: basePath}}

	if err := os.MkdirAll(basePath, 0o755); err != nil {
		log.Fatalf("Failed to create %s: %v", basePath, err)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	fmt.Printf("Opening database at: %s\n", cfg.DatabasePath())
	st, err := sqlite.Open(cfg.DatabasePath(), logger)
	if err != nil {
		log.Fatalf("Failed to open store: %v", err)
	}
	defer st.Close()

	index, err := search.NewShelfIndex(search.Options{DataPath: cfg.SearchIndexPath(), Logger: logger})
	if err != nil {
		log.Fatalf("Failed to open search index: %v", err)
	}
	defer index.Close()

	shelf := service.NewShelfService(st, index, service.NewNoopEmitter(), validation.New(), logger)
	profiles := service.NewProfileService(st, service.NewNoopEmitter(), logger)

	var tokens *auth.TokenService
	if *printTokens {
		key, err := auth.LoadOrGenerateKey(basePath)
		if err != nil {
			log.Fatalf("Failed to load auth key: %v", err)
		}
		if tokens, err = auth.NewTokenService(key, auth.DefaultAccessTokenDuration); err != nil {
			log.Fatalf("Failed to create token service: %v", err)
		}
	}

	ctx := context.Background()
	count := min(max(*readers, 0), len(testReaderNames))

	for _, name := range testReaderNames[:count] {
		ownerID := id.MustGenerate(id.PrefixUser)
		fmt.Printf("\nSeeding reader: %s (%s)\n", name, ownerID)

		if _, err := profiles.UpdateUsername(ctx, ownerID, name); err != nil {
			log.Printf("  Failed to create profile: %v", err)
			continue
		}
		goal := 6 + rand.IntN(20)
		if _, err := profiles.UpdateGoal(ctx, ownerID, goal); err != nil {
			log.Printf("  Failed to set goal: %v", err)
		}

		shelved := seedShelf(ctx, shelf, ownerID)
		fmt.Printf("  Shelved %d books, yearly goal %d\n", shelved, goal)

		if tokens != nil {
			token, _, err := tokens.GenerateAccessToken(ownerID)
			if err != nil {
				log.Printf("  Failed to mint token: %v", err)
				continue
			}
			fmt.Printf("  Token: %s\n", token)
		}
	}

	fmt.Println("\nSeeding complete!")
}

// seedShelf adds 4-8 random books for ownerID and returns how many were added.
func seedShelf(ctx context.Context, shelf *service.ShelfService, ownerID string) int {
	books := make([]domain.Book, len(sampleBooks))
	copy(books, sampleBooks)
	rand.Shuffle(len(books), func(i, j int) {
		books[i], books[j] = books[j], books[i]
	})

	added := 0
	for _, book := range books[:min(4+rand.IntN(5), len(books))] {
		status := domain.ReadingStatuses[rand.IntN(len(domain.ReadingStatuses))]
		if _, err := shelf.AddOrUpsert(ctx, ownerID, book, status); err != nil {
			log.Printf("  Failed to shelve %s: %v", book.Title, err)
			continue
		}
		added++

		switch status {
		case domain.StatusReading:
			page := 1 + rand.IntN(book.PageCount-1)
			if _, err := shelf.UpdateProgress(ctx, ownerID, book.ID, page); err != nil {
				log.Printf("  Failed to record progress for %s: %v", book.Title, err)
			}
		case domain.StatusCompleted:
			rating := float64(4+rand.IntN(7)) / 2
			review := sampleReviews[rand.IntN(len(sampleReviews))]
			if _, err := shelf.Rate(ctx, ownerID, book.ID, rating, &review); err != nil {
				log.Printf("  Failed to rate %s: %v", book.Title, err)
			}
		}
	}
	return added
}

// testReaderNames are usernames for generated test readers.
var testReaderNames = []string{
	"Alex Rivera",
	"Jordan Chen",
	"Sam Taylor",
	"Casey Morgan",
	"Riley Kim",
}

var sampleBooks = []domain.Book{
	{ID: "seed-left-hand", Title: "The Left Hand of Darkness", Authors: []string{"Ursula K. Le Guin"}, PageCount: 304},
	{ID: "seed-piranesi", Title: "Piranesi", Authors: []string{"Susanna Clarke"}, PageCount: 272},
	{ID: "seed-dune", Title: "Dune", Authors: []string{"Frank Herbert"}, PageCount: 688},
	{ID: "seed-emma", Title: "Emma", Authors: []string{"Jane Austen"}, PageCount: 474},
	{ID: "seed-beloved", Title: "Beloved", Authors: []string{"Toni Morrison"}, PageCount: 324},
	{ID: "seed-good-omens", Title: "Good Omens", Authors: []string{"Terry Pratchett", "Neil Gaiman"}, PageCount: 412},
	{ID: "seed-remains", Title: "The Remains of the Day", Authors: []string{"Kazuo Ishiguro"}, PageCount: 258},
	{ID: "seed-solaris", Title: "Solaris", Authors: []string{"Stanisław Lem"}, PageCount: 204},
	{ID: "seed-middlemarch", Title: "Middlemarch", Authors: []string{"George Eliot"}, PageCount: 880},
	{ID: "seed-kindred", Title: "Kindred", Authors: []string{"Octavia E. Butler"}, PageCount: 264},
}

var sampleReviews = []string{
	"Could not put it down.",
	"Slow start, but the last third is worth it.",
	"Beautifully written.",
	"Not for me, though I see the appeal.",
	"",
}
