package cmd

import (
	"github.com/akashbera009/kichu-kotha/pkg/cmd/server"
	"github.com/spf13/cobra"
)

// serveChatCmd represents the serve chat command
var serveChatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Serve chat coordination instance",
	Run:   server.RunServeChat(c),
}

func init() {
	serveCmd.AddCommand(serveChatCmd)
}
