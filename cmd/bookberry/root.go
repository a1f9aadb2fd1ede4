package main

import (
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
)

const (
	envServerURL = "BOOKBERRY_SERVER_URL"
	envToken     = "BOOKBERRY_TOKEN"
	envDataDir   = "BOOKBERRY_DATA_DIR"

	defaultServerURL = "http://localhost:8080"
)

// globalOptions holds the persistent flags shared by every command.
type globalOptions struct {
	ServerURL string
	Token     string
	DataDir   string
	Local     bool
	LogLevel  string
	Quiet     bool
	Timeout   time.Duration
}

// LocalPath is the Badger directory used in local mode.
func (o globalOptions) LocalPath() string {
	return filepath.Join(o.DataDir, "library")
}

func newRootCmd() *cobra.Command {
	opts := &globalOptions{}

	cmd := &cobra.Command{
		Use:   "bookberry",
		Short: "Track the books you want to read, are reading and have read",
		Long: `bookberry manages a reading shelf.

By default it talks to a Bookberry server using a bearer token. With --local
the shelf is kept in a Badger database under the data directory and no
network calls are made.

Environment:
  BOOKBERRY_SERVER_URL  server base URL (default http://localhost:8080)
  BOOKBERRY_TOKEN       bearer token for the server
  BOOKBERRY_DATA_DIR    data directory for --local (default ~/.bookberry)`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	flags := cmd.PersistentFlags()
	flags.StringVar(&opts.ServerURL, "server", envOr(envServerURL, defaultServerURL), "Bookberry server URL")
	flags.StringVar(&opts.Token, "token", os.Getenv(envToken), "bearer token")
	flags.StringVar(&opts.DataDir, "data-dir", envOr(envDataDir, defaultDataDir()), "data directory for the local shelf")
	flags.BoolVar(&opts.Local, "local", false, "use the local shelf instead of the server")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug, info, warn, error)")
	flags.BoolVarP(&opts.Quiet, "quiet", "q", false, "suppress all logging")
	flags.DurationVar(&opts.Timeout, "timeout", 15*time.Second, "server request timeout")

	cmd.AddCommand(
		newListCmd(opts),
		newAddCmd(opts),
		newStatusCmd(opts),
		newProgressCmd(opts),
		newRateCmd(opts),
		newRemoveCmd(opts),
		newClearCmd(opts),
		newSearchCmd(opts),
		newCatalogCmd(opts),
		newStatsCmd(opts),
		newWatchCmd(opts),
		newTokenCmd(),
	)

	return cmd
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func defaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".bookberry"
	}
	return filepath.Join(home, ".bookberry")
}
