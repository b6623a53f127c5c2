package main

import (
	"github.com/spf13/cobra"

	"github.com/zenpipeline/archview/pkg/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Run the Model Context Protocol server on stdio",
	RunE: func(cmd *cobra.Command, args []string) error {
		return mcp.NewServer(apiClient).Serve()
	},
}
