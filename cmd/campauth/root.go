// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 Campauth Contributors

package main

import (
	"github.com/spf13/cobra"

	"github.com/socialcamp/campauth/internal/config"
	"github.com/socialcamp/campauth/internal/xdg"
)

// NewRootCmd creates the root command for the campauth CLI.
func NewRootCmd() *cobra.Command {
	return newRootCmd(nil)
}

func newRootCmd(deps *Deps) *cobra.Command {
	deps = deps.withDefaults()

	cmd := &cobra.Command{
		Use:   "campauth",
		Short: "campauth - account registration and sessions for camp",
		Long: `campauth registers camp accounts, verifies credentials and tracks
which public ids hold a live session.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().String("config", "", "config file path (default $XDG_CONFIG_HOME/campauth/config.yaml when present)")
	config.RegisterFlags(cmd.PersistentFlags())

	cmd.AddCommand(newServeCmd(deps))
	cmd.AddCommand(newMigrateCmd(deps.MigratorFactory))
	cmd.AddCommand(NewConfigCmd())

	return cmd
}

// loadConfig builds the configuration from --config (or the XDG default
// file), the environment and any explicitly set flags.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, err := cmd.Flags().GetString("config")
	if err != nil || path == "" {
		path = xdg.ExistingConfigFile()
	}
	return config.Load(path, cmd.Flags())
}

// NewConfigCmd creates the config subcommand.
func NewConfigCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Print the effective configuration",
		Long:  `Print the merged configuration as YAML with connection credentials redacted.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			out, err := cfg.YAML()
			if err != nil {
				return err
			}
			cmd.Print(string(out))
			return nil
		},
	}
}
