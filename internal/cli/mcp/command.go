package mcp

import (
	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/internal/cli/version"
	"github.com/crmarques/rossync/internal/mcpserver"
	"github.com/spf13/cobra"
)

func NewCommand(deps common.CommandDependencies) *cobra.Command {
	return &cobra.Command{
		Use:   "mcp",
		Short: "Serve pull, diff, push, deploy and object listing as MCP tools over stdio",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			if deps.Workspaces == nil {
				return common.ValidationError("workspace bootstrap is not configured", nil)
			}
			server := mcpserver.NewServer(mcpserver.Opener(deps.Workspaces), version.Version)
			return mcpserver.Run(command.Context(), server)
		},
	}
}
