package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/jackzampolin/sourcecheck/internal/api"
	"github.com/jackzampolin/sourcecheck/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the local config file",
	Long: `Manage the sourcecheck config file without a running server.

Use 'sourcecheck api settings ...' to change the settings of a running
server instead; a server also picks up edits to its file.

Examples:
  sourcecheck config init                        # Write defaults to ~/.sourcecheck/config.yaml
  sourcecheck config show                        # Print the effective config
  sourcecheck config set check.thread_count 4    # Persist one key
  sourcecheck config reset check.thread_count    # Restore its default`,
}

var configForce bool

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the default config file",
	RunE: func(cmd *cobra.Command, args []string) error {
		h, err := getHome()
		if err != nil {
			return err
		}
		path := cfgFile
		if path == "" {
			path = h.ConfigPath()
		}
		if _, err := os.Stat(path); err == nil && !configForce {
			return fmt.Errorf("%s already exists (use --force to overwrite)", path)
		}
		if err := config.WriteDefault(path); err != nil {
			return err
		}
		fmt.Printf("Wrote %s\n", path)
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective config",
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := localConfig()
		if err != nil {
			return err
		}
		return api.Output(mgr.Get())
	},
}

var configGetCmd = &cobra.Command{
	Use:   "get <key>",
	Short: "Print one config value",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.ValidateKey(args[0]); err != nil {
			return err
		}
		mgr, err := localConfig()
		if err != nil {
			return err
		}
		value, err := mgr.Value(args[0])
		if err != nil {
			return err
		}
		entry := config.GetDefault(args[0])
		entry.Value = value
		return api.Output(entry)
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Persist one config value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := writableConfig()
		if err != nil {
			return err
		}
		if err := mgr.Set(args[0], args[1]); err != nil {
			return err
		}
		fmt.Printf("%s = %v\n", args[0], args[1])
		return nil
	},
}

var configResetCmd = &cobra.Command{
	Use:   "reset <key>",
	Short: "Restore one config value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		mgr, err := writableConfig()
		if err != nil {
			return err
		}
		if err := mgr.Reset(args[0]); err != nil {
			return err
		}
		value, _ := mgr.Value(args[0])
		fmt.Printf("%s = %v\n", args[0], value)
		return nil
	},
}

func localConfig() (*config.Manager, error) {
	h, err := getHome()
	if err != nil {
		return nil, err
	}
	logger, err := newLogger()
	if err != nil {
		return nil, err
	}
	return loadConfig(h, logger)
}

// writableConfig returns a manager backed by a config file.
func writableConfig() (*config.Manager, error) {
	mgr, err := localConfig()
	if err != nil {
		return nil, err
	}
	if mgr.File() == "" {
		return nil, errors.New("no config file found (run 'sourcecheck config init' first)")
	}
	return mgr, nil
}

func init() {
	configInitCmd.Flags().BoolVar(&configForce, "force", false, "Overwrite an existing config file")

	configCmd.AddCommand(configInitCmd)
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configResetCmd)
	rootCmd.AddCommand(configCmd)
}
