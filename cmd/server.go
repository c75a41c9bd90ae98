package cmd

import (
	"github.com/spf13/cobra"

	"github.com/davidnge/ytconverter-dev/config"
	server2 "github.com/davidnge/ytconverter-dev/server"
)

func server(config *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "server",
		Short: "start the conversion server and worker pool",
		Run: func(cmd *cobra.Command, args []string) {
			server2.RunHttp(config)
		},
	}
}
