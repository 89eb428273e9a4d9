// clipwire: shared clipboard over TCP.
package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

// Version is set at build time via -ldflags "-X main.Version=x.y.z".
var Version = "dev"

func main() {
	root := &cobra.Command{
		Use:   "clipwire",
		Short: "Shared clipboard over TCP",
		Long: `clipwire keeps the system clipboard synchronized across machines on a
local network over plain TCP. One machine runs "clipwire start"; the others
run "clipwire connect <ip>". Any peer that copies something pushes it to all
connected peers.

Config file search order (first found wins):
  /etc/clipwire/clipwire.toml
  $HOME/.config/clipwire/clipwire.toml
  path supplied via --config

All flags can be set via CLIPWIRE_<FLAG> env vars or config-file keys.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newStartCmd(),
		newConnectCmd(),
		newSendCmd(),
		newVersionCmd(),
	)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Printf("clipwire %s\n", Version)
		},
	}
}
