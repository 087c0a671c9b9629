package app

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/authgate/authgate/internal/daemon"
)

func init() { //nolint: gochecknoinits
	tokenCmd.AddCommand(tokenPruneCmd)
	rootCmd.AddCommand(tokenCmd)
}

var (
	tokenCmd = &cobra.Command{
		Use:   "token",
		Short: "Manage session tokens",
	}

	tokenPruneCmd = &cobra.Command{
		Use:   "prune",
		Short: "Delete expired session tokens",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()

			s, err := openStores(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			tokens, closeTokens, err := daemon.OpenTokenStore(ctx, &cfg, s.db)
			if err != nil {
				return err
			}

			defer func() { _ = closeTokens() }()

			n, err := daemon.PruneTokens(ctx, tokens)
			if err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "pruned %d tokens\n", n)

			return nil
		},
	}
)
