package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookberryapp/bookberry-server/internal/auth"
	"github.com/bookberryapp/bookberry-server/internal/config"
)

func newTokenCmd() *cobra.Command {
	var (
		keyDir string
		ttl    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "token <owner-id>",
		Short: "Mint a bearer token with the server's key",
		Long: `Mints an access token for owner-id using the key file of a server on this
machine. The key directory defaults to METADATA_PATH or ~/.bookberry. A key is
generated when none exists yet.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir, err := config.ExpandPath(keyDir, defaultDataDir())
			if err != nil {
				return err
			}
			key, err := auth.LoadOrGenerateKey(dir)
			if err != nil {
				return err
			}
			tokens, err := auth.NewTokenService(key, ttl)
			if err != nil {
				return err
			}
			token, expiresAt, err := tokens.GenerateAccessToken(args[0])
			if err != nil {
				return err
			}

			fmt.Fprintln(cmd.OutOrStdout(), token)
			fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", expiresAt.Format(time.RFC3339))
			return nil
		},
	}

	cmd.Flags().StringVar(&keyDir, "key-dir", os.Getenv("METADATA_PATH"), "directory holding auth.key")
	cmd.Flags().DurationVar(&ttl, "ttl", auth.DefaultAccessTokenDuration, "token lifetime")
	return cmd
}
