package app

import (
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/authgate/authgate/internal/apperr"
	"github.com/authgate/authgate/internal/db/models"
)

func init() { //nolint: gochecknoinits
	userAddCmd.Flags().StringVar(&userRole, "role", models.RoleUser, "default role of the user")
	userAddCmd.Flags().StringVar(&userFirst, "first", "", "given name")
	userAddCmd.Flags().StringVar(&userLast, "last", "", "family name")
	userAddCmd.Flags().BoolVar(&userNoPassword, "no-password", false, "create without password (directory login only)")

	userDisableCmd.Flags().StringVar(&userDisableAt, "at", "", "RFC3339 time the account stops working (default now)")

	userCmd.AddCommand(userAddCmd, userDisableCmd, userEnableCmd, userPasswdCmd, userRoleCmd, userListCmd, userRemoveCmd)
	rootCmd.AddCommand(userCmd)
}

var (
	userRole       string
	userFirst      string
	userLast       string
	userNoPassword bool
	userDisableAt  string

	userCmd = &cobra.Command{
		Use:   "user",
		Short: "Manage user accounts",
	}

	userAddCmd = &cobra.Command{
		Use:   "add <username>",
		Short: "Create a user, reading the password from the terminal or stdin",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			s, err := openStores(ctx)
			if err != nil {
				return err
			}
			defer s.close()

			if err = s.role(userRole); err != nil {
				return err
			}

			u := models.NewUser(args[0])
			u.RoleID = userRole

			if userFirst != "" {
				u.NameFirst = &userFirst
			}

			if userLast != "" {
				u.NameLast = &userLast
			}

			if err = u.Validate(); err != nil {
				return err
			}

			if !userNoPassword {
				password, err := newPasswordReader(cmd.InOrStdin(), cmd.ErrOrStderr()).readNew()
				if err != nil {
					return err
				}

				if err = u.SetPassword(password); err != nil {
					return err
				}
			}

			if err = s.users.Save(ctx, u); err != nil {
				if errors.Is(err, apperr.ErrDuplicateInsert) {
					return fmt.Errorf("%w: %s", ErrUsernameTaken, u.Username)
				}

				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "created user %s (id %d, role %s)\n", u.Username, u.ID, u.RoleID)

			return nil
		},
	}

	userDisableCmd = &cobra.Command{
		Use:   "disable <username>",
		Short: "Disable a user now or at a given time",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			at := time.Now()

			if userDisableAt != "" {
				var err error

				if at, err = time.Parse(time.RFC3339, userDisableAt); err != nil {
					return fmt.Errorf("invalid --at: %w", err)
				}
			}

			return updateUser(cmd, args[0], func(u *models.User) error {
				u.Disabled = &at

				return nil
			}, "disabled")
		},
	}

	userEnableCmd = &cobra.Command{
		Use:   "enable <username>",
		Short: "Enable a disabled user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateUser(cmd, args[0], func(u *models.User) error {
				u.Disabled = nil

				return nil
			}, "enabled")
		},
	}

	userPasswdCmd = &cobra.Command{
		Use:   "passwd <username>",
		Short: "Set the password of a user; an empty password disables password login",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			password, err := newPasswordReader(cmd.InOrStdin(), cmd.ErrOrStderr()).readNew()
			if err != nil {
				return err
			}

			return updateUser(cmd, args[0], func(u *models.User) error {
				return u.SetPassword(password)
			}, "password changed")
		},
	}

	userRoleCmd = &cobra.Command{
		Use:   "role <username> <role>",
		Short: "Set the default role of a user",
		Args:  cobra.ExactArgs(2), //nolint:mnd
		RunE: func(cmd *cobra.Command, args []string) error {
			return updateUser(cmd, args[0], func(u *models.User) error {
				u.RoleID = args[1]

				return nil
			}, "role set to "+args[1])
		},
	}

	userListCmd = &cobra.Command{
		Use:   "list",
		Short: "List all users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			s, err := openStores(cmd.Context())
			if err != nil {
				return err
			}
			defer s.close()

			users, err := s.users.List(cmd.Context())
			if err != nil {
				return err
			}

			now := time.Now()

			for _, u := range users {
				state := "enabled"
				if u.IsDisabled(now) {
					state = "disabled"
				}

				_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\t%s\t%s\n", u.ID, u.Username, u.RoleID, state)
			}

			return nil
		},
	}

	userRemoveCmd = &cobra.Command{
		Use:   "remove <username>",
		Short: "Delete a user with its tokens and context roles",
		Args:  cobra.ExactArgs(1),
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

			if err = s.users.Remove(ctx, u.ID); err != nil {
				return err
			}

			_, _ = fmt.Fprintf(cmd.OutOrStdout(), "removed user %s\n", u.Username)

			return nil
		},
	}
)

// updateUser loads username, applies change and saves it. A changed
// password or disabled state invalidates the sessions of the user.
func updateUser(cmd *cobra.Command, username string, change func(u *models.User) error, done string) error {
	ctx := cmd.Context()

	s, err := openStores(ctx)
	if err != nil {
		return err
	}
	defer s.close()

	u, err := s.user(ctx, username)
	if err != nil {
		return err
	}

	if err = change(u); err != nil {
		return err
	}

	if err = s.role(u.RoleID); err != nil {
		return err
	}

	if err = s.users.Save(ctx, u); err != nil {
		return err
	}

	_, _ = fmt.Fprintf(cmd.OutOrStdout(), "%s: %s\n", u.Username, done)

	return nil
}
