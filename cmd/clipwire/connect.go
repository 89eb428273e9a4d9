package main

import (
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipwire/clipwire/internal/clip"
	"github.com/clipwire/clipwire/internal/node"
	"github.com/clipwire/clipwire/internal/notify"
)

func newConnectCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "connect <ip>",
		Short: "Connect to a running sync service and join the clipboard",
		Long: `Dials a machine running "clipwire start" and keeps the local clipboard in
sync with it. There is no automatic reconnection: if the connection drops,
run connect again.

Precedence (lowest → highest): defaults → config file → CLIPWIRE_* env vars → flags`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, args []string) error { return runConnect(v, args[0]) },
	}

	addCommonFlags(cmd)
	return cmd
}

func runConnect(v *viper.Viper, ip string) error {
	setupLogging(v)

	name := v.GetString("name")
	port := v.GetInt("port")

	n := node.New(name)
	peerID, err := n.ConnectTo(ip, port)
	if err != nil {
		return err
	}
	slog.Info("clipwire connected",
		"version", Version,
		"device", name,
		"peer", peerID,
	)

	notifier := notify.New()
	notifier.SetEnabled(!v.GetBool("no-notify"))
	notifier.Notify("Clipboard sync", "Connected to "+ip)

	backend := clip.New()
	defer backend.Close()
	slog.Info("clipboard backend", "name", backend.Name())

	runSyncLoop(n, backend, notifier)
	return nil
}
