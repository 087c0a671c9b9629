package app

import (
	"fmt"

	"github.com/spf13/cobra"
)

func init() { //nolint: gochecknoinits
	contextCmd.AddCommand(contextSetCmd, contextUnsetCmd)
	rootCmd.AddCommand(contextCmd)
}

var (
	contextCmd = &cobra.Command{
		Use:   "context",
		Short: "Manage per context role overrides",
	}

	contextSetCmd = &cobra.Command{
		Use:   "set <username> <context> <role>",
		Short: "Give a user a role within a context",
		Args:  cobra.ExactArgs(3), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := openStores(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err = s.role(args[2]); err != nil {
				return err
			}

			u, err := s.user(ctx, args[0])
			if err != nil {
				return err
			}

			if err = s.contexts.Assign(ctx, u.ID, args[1], args[2]); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: role %s in context %s\n", u.Username, args[2], args[1])

			return nil
		},
	}

	contextUnsetCmd = &cobra.Command{
		Use:   "unset <username> <context>",
		Short: "Remove the role override of a user within a context",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := openStores(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			u, err := s.user(ctx, args[0])
			if err != nil {
				return err
			}

			if err = s.contexts.Unassign(ctx, u.ID, args[1]); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: no override in context %s\n", u.Username, args[1])

			return nil
		},
	}
)
