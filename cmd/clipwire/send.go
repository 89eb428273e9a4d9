package main

import (
	"fmt"
	"io"
	"net"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/clipwire/clipwire/internal/message"
	"github.com/clipwire/clipwire/internal/wire"
)

func newSendCmd() *cobra.Command {
	v := viper.New()

	cmd := &cobra.Command{
		Use:   "send <ip>",
		Short: "Send stdin to a peer's clipboard (like pbcopy over the network)",
		Long: `Reads stdin and pushes it as a text clipboard message to the given peer,
then exits. Useful for scripts and SSH sessions without a running daemon.`,
		Args:    cobra.ExactArgs(1),
		PreRunE: func(cmd *cobra.Command, _ []string) error { return bindViper(cmd, v) },
		RunE:    func(_ *cobra.Command, args []string) error { return runSend(v, args[0]) },
	}

	f := cmd.Flags()
	f.String("name", defaultDeviceName(), "sender name shown to the peer")
	f.Int("port", defaultPort, "TCP port")
	f.String("config", "", "path to config file (overrides auto-discovery)")

	return cmd
}

func runSend(v *viper.Viper, ip string) error {
	data, err := io.ReadAll(os.Stdin)
	if err != nil {
		return fmt.Errorf("read stdin: %w", err)
	}
	if len(data) == 0 {
		return nil
	}

	addr := net.JoinHostPort(ip, fmt.Sprintf("%d", v.GetInt("port")))
	conn, err := net.DialTimeout("tcp", addr, 5*time.Second)
	if err != nil {
		return fmt.Errorf("connect %s: %w", addr, err)
	}
	defer conn.Close()

	name := v.GetString("name")
	wc := wire.New(conn)
	return wc.WriteMsg(message.NewText(string(data), "send:"+name, name))
}
