package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var pingCmd = &cobra.Command{
	Use:   "ping",
	Short: "Check connectivity and credentials",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		m, _, err := connect(cmd.Context())
		if err != nil {
			return err
		}
		defer m.Disconnect()

		conn := m.Current()
		fmt.Printf("✅ connected to %s (server version %s)\n", conn.BaseURL, conn.Server.Version)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(pingCmd)
}
