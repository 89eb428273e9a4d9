package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipwire/clipwire/internal/logging"
)

// defaultPort is the port peers listen on and dial unless told otherwise.
const defaultPort = 8765

// bindViper wires a command's flags into a viper instance with the standard
// config file search order and CLIPWIRE_* env var prefix.
//
// Precedence (lowest → highest): defaults → config file → CLIPWIRE_* env vars → flags
func bindViper(cmd *cobra.Command, v *viper.Viper) error {
	configFlag, _ := cmd.Flags().GetString("config")
	if configFlag != "" {
		v.SetConfigFile(configFlag)
	} else {
		v.SetConfigName("clipwire")
		v.SetConfigType("toml")
		v.AddConfigPath("/etc/clipwire/")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(fmt.Sprintf("%s/.config/clipwire", home))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("config: %w", err)
		}
	}

	v.SetEnvPrefix("CLIPWIRE")
	v.AutomaticEnv()

	if err := v.BindPFlags(cmd.Flags()); err != nil {
		return fmt.Errorf("binding flags: %w", err)
	}
	return nil
}

// addCommonFlags adds the flags shared by the long-running commands.
func addCommonFlags(cmd *cobra.Command) {
	cmd.Flags().String("name", defaultDeviceName(), "device name shown to peers")
	cmd.Flags().Int("port", defaultPort, "TCP port")
	cmd.Flags().Bool("no-notify", false, "disable desktop notifications")
	cmd.Flags().Bool("no-background", false, "run interactively: tinter logs + debug level")
	cmd.Flags().String("log-format", "auto", "log format: auto|text|json")
	cmd.Flags().String("log-level", "", "log level: debug|info|warn|error (default: info for service, debug for interactive)")
	cmd.Flags().String("config", "", "path to config file (overrides auto-discovery)")
}

// setupLogging reads logging flags from viper and configures slog.
func setupLogging(v *viper.Viper) {
	interactive := v.GetBool("no-background") || logging.IsTTY(os.Stderr)
	logging.SetupAuto(interactive, v.GetString("log-format"), v.GetString("log-level"))
}

// defaultDeviceName returns a human-readable identifier for this host.
func defaultDeviceName() string {
	if v := os.Getenv("CLIPWIRE_NAME"); v != "" {
		return v
	}
	if h, err := os.Hostname(); err == nil {
		return h
	}
	return "unknown"
}
