package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/config"
	"github.com/Skylar-117/DEND-Nanodegree-Udacity/internal/ui"
	apperrors "github.com/Skylar-117/DEND-Nanodegree-Udacity/pkg/errors"
)

var (
	configForce       bool
	configInteractive bool
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage the configuration file and stored passwords",
}

var configInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write a config file for the Sparkify pipeline",
	Long: `Write the default pipeline config (the udacity-dend sources and the five
loads) to the config path. With --interactive, prompt for the connection and
S3 settings; the password is stored in the OS keyring.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		path := cfgFile
		if path == "" {
			path = config.GetConfigFile()
		}
		if config.Exists(path) && !configForce {
			return apperrors.New(apperrors.ErrCodeConfigInvalid, "Config file already exists").
				WithContext("path", path).
				WithSuggestions("Pass --force to overwrite it")
		}

		cfg := config.Default()
		if configInteractive {
			result, err := ui.NewConfigWizard(cfg).Run()
			if err != nil {
				return err
			}
			cfg = result.Config
			if result.Password != "" {
				if err := config.StorePassword(result.Alias, result.Password); err != nil {
					return err
				}
				ui.ShowInfo(fmt.Sprintf("Password for %q stored in the keyring", result.Alias))
			}
		}

		if err := config.Save(path, cfg); err != nil {
			return err
		}
		ui.ShowSuccess(fmt.Sprintf("Config written to %s", path))
		return nil
	},
}

var configSetPasswordCmd = &cobra.Command{
	Use:   "set-password [connection]",
	Short: "Store a connection password in the OS keyring",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}

		alias := connectionAlias
		if len(args) == 1 {
			alias = args[0]
		}
		if alias == "" {
			alias = a.cfg.Connection
		}
		alias = strings.ToLower(alias)
		if _, ok := a.cfg.Connections[alias]; !ok {
			return apperrors.New(apperrors.ErrCodeUnknownConnection, fmt.Sprintf("Unknown connection %q", alias))
		}

		password, err := ui.Password(fmt.Sprintf("Password for %s:", alias), "Stored in the OS keyring")
		if err != nil {
			return err
		}
		if err := config.StorePassword(alias, password); err != nil {
			return err
		}
		a.ui.Success(fmt.Sprintf("Password for %q stored in the keyring", alias))
		return nil
	},
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Print the effective configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := newApp(cmd)
		if err != nil {
			return err
		}
		for alias, conn := range a.cfg.Connections {
			if conn.Password != "" {
				conn.Password = "********"
				a.cfg.Connections[alias] = conn
			}
		}
		data, err := yaml.Marshal(a.cfg)
		if err != nil {
			return fmt.Errorf("failed to marshal config: %w", err)
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

func init() {
	rootCmd.AddCommand(configCmd)
	configCmd.AddCommand(configInitCmd, configSetPasswordCmd, configShowCmd)

	configInitCmd.Flags().BoolVarP(&configForce, "force", "f", false, "overwrite an existing config file")
	configInitCmd.Flags().BoolVarP(&configInteractive, "interactive", "i", false, "prompt for connection and S3 settings")
}
