package cmd

import (
	"github.com/spf13/cobra"

	"github.com/OpenTraceLab/OpenTraceSch/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the MCP tool server on stdio",
	Long: `Serve the schematic operations as MCP tools over stdin/stdout.

Tools listed in disabled_tools of the configuration (or OTS_DISABLED_TOOLS)
are not registered.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		o, cfg, release, err := newOps(true)
		if err != nil {
			return err
		}
		defer release()
		return mcp.Run(o, cfg, Version)
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
