package main

import (
	"fmt"
	"log/slog"
	"net"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipwire/clipwire/internal/clip"
	"github.com/clipwire/clipwire/internal/node"
	"github.com/clipwire/clipwire/internal/notify"
)

func newStartCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "start",
		Short: "Start the sync service and listen for peers",
		Long: `Starts the clipboard sync service as the listening peer. Other machines
join with "clipwire connect <this-host's-ip>".

Precedence (lowest → highest): defaults → config file → CLIPWIRE_* env vars → flags`,
		Args:    cobra.NoArgs,
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, _ []string) error { return runStart(v) },
	}

	addCommonFlags(cmd)
	return cmd
}

func runStart(v *viper.Viper) error {
	setupLogging(v)

	name := v.GetString("name")
	port := v.GetInt("port")

	n := node.New(name)
	if err := n.Start(port); err != nil {
		return err
	}

	notifier := notify.New()
	notifier.SetEnabled(!v.GetBool("no-notify"))
	notifier.Notify("Clipboard sync", "Sync service started")

	slog.Info("clipwire starting",
		"version", Version,
		"device", name,
		"port", port,
	)
	if ip, err := localIP(); err == nil {
		slog.Info("peers can join with",
			"command", fmt.Sprintf("clipwire connect %s --port %d", ip, port))
	}

	backend := clip.New()
	defer backend.Close()
	slog.Info("clipboard backend", "name", backend.Name())

	runSyncLoop(n, backend, notifier)
	return nil
}

// localIP discovers the address other machines on the LAN should dial, by
// opening a UDP socket toward a public address and reading the local end.
// No packet is actually sent.
func localIP() (string, error) {
	conn, err := net.Dial("udp", "8.8.8.8:80")
	if err != nil {
		return "", err
	}
	defer conn.Close()
	addr, ok := conn.LocalAddr().(*net.UDPAddr)
	if !ok {
		return "", fmt.Errorf("unexpected local address %v", conn.LocalAddr())
	}
	return addr.IP.String(), nil
}
