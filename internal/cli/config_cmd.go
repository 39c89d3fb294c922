package cli

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"github.com/pfrederiksen/afl-stats/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage the configuration file",
	}
	cmd.AddCommand(newConfigInitCmd(), newConfigValidateCmd())
	return cmd
}

func newConfigInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init",
		Short: "Write an annotated sample config",
		RunE: func(cmd *cobra.Command, args []string) error {
			path := flagConfig
			if path == "" {
				var err error
				if path, err = config.DefaultConfigPath(); err != nil {
					return err
				}
			}
			path, err := config.ExpandPath(path)
			if err != nil {
				return err
			}
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("config already exists at %s (use --force to overwrite)", path)
			} else if err != nil && !errors.Is(err, fs.ErrNotExist) {
				return err
			}
			if err := config.CreateSample(path); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Wrote sample config to %s\n", path)
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Overwrite an existing config")
	return cmd
}

func newConfigValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the config file and print the resolved settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, path, exists, err := config.Load(flagConfig)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if exists {
				fmt.Fprintf(out, "Config: %s\n", path)
			} else {
				fmt.Fprintf(out, "Config: %s (not found, using defaults)\n", path)
			}
			fmt.Fprintf(out, "Backend: %s\n", cfg.Storage.Backend)
			fmt.Fprintf(out, "Data directory: %s\n", cfg.Storage.DataDir)
			fmt.Fprintf(out, "Source: %s (%d concurrent, %s timeout)\n", cfg.Source.BaseURL, cfg.Source.MaxConcurrent, cfg.Timeout())
			if cfg.Source.CacheDir != "" {
				fmt.Fprintf(out, "Cache: %s\n", cfg.Source.CacheDir)
			}
			return nil
		},
	}
}
