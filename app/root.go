// Package app implements the main application commands.
package app

import (
	"github.com/spf13/cobra"

	"github.com/authgate/authgate/internal/config"
	"github.com/authgate/authgate/internal/logger"
)

var (
	configPath string        // Path to the configuration directory
	cfg        config.Config // Loaded before every command runs

	rootCmd = &cobra.Command{
		Use:   "authgate",
		Short: "authgate is a session authentication and role based access gateway",
		Long: `authgate authenticates users against a local password database or an
LDAP directory, keeps their sessions in signed cookies backed by revocable
tokens and guards routes by role.`,
		Args:          cobra.OnlyValidArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(_ *cobra.Command, _ []string) error {
			return loadConfig()
		},
	}
)

func init() { //nolint: gochecknoinits
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "./etc/", "directory holding main.toml and .env")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func loadConfig() error {
	var err error

	if cfg, err = config.ReadConfig(configPath); err != nil {
		return err
	}

	if devMode {
		cfg.DevMode = true
	}

	return logger.Init(cfg.Log)
}
