package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/robert-at-pretension-io/vhdl-make/internal/config"
)

func newInitCmd(a *app) *cobra.Command {
	var force, discover bool

	cmd := &cobra.Command{
		Use:   "init [path]",
		Short: "Create a vhdl_make.json configuration file",
		Args:  cobra.MaximumNArgs(1),
		// init runs before any config exists.
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error { return nil },
		RunE: func(cmd *cobra.Command, args []string) error {
			configPath := config.FileNames[0]
			if len(args) > 0 {
				configPath = args[0]
			}

			if _, err := os.Stat(configPath); err == nil && !force {
				return fmt.Errorf("config file %s already exists (use --force to overwrite)", configPath)
			}

			cfg := config.DefaultConfig()
			if a.backend != "" {
				cfg.Backend = a.backend
			}
			if discover {
				root, err := os.Getwd()
				if err != nil {
					return err
				}
				tests, err := cfg.ResolveTests(root)
				if err != nil {
					return err
				}
				cfg.Harness.Tests = tests
			}
			if err := cfg.Save(configPath); err != nil {
				return fmt.Errorf("creating config: %w", err)
			}

			fmt.Printf("Created %s\n", configPath)
			fmt.Println("\nEdit this file to configure:")
			fmt.Println("  - Backend and toolchain executables")
			fmt.Println("  - Regression test modules and generics")
			fmt.Println("  - Extra policy directories")
			return nil
		},
	}
	cmd.Flags().BoolVarP(&force, "force", "f", false, "Overwrite an existing config file")
	cmd.Flags().BoolVar(&discover, "discover", false, "List the currently discovered test modules explicitly")
	return cmd
}
