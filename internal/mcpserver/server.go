// Package mcpserver exposes the sync engine as Model Context Protocol tools
// served over stdio.
package mcpserver

import (
	"context"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const serverName = "rossync"

// Opener resolves a context by name, where empty means the current context,
// and wires its workspace.
type Opener func(ctx context.Context, contextName string) (*workspace.Workspace, config.Context, error)

// NewServer registers the pull, diff, push, deploy and list_objects tools.
func NewServer(open Opener, version string) *mcp.Server {
	tools := &Tools{open: open}

	server := mcp.NewServer(&mcp.Implementation{
		Name:    serverName,
		Version: version,
	}, nil)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "pull",
		Description: "Download an organization or one workspace with its dependencies into the local snapshot",
	}, tools.Pull)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "diff",
		Description: "Compare the local snapshot with the remote API and report per-object status",
	}, tools.Diff)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "push",
		Description: "Upload locally modified objects; only reports the plan unless confirm is true",
	}, tools.Push)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "deploy",
		Description: "Apply the local snapshot to mapped objects of another context; only reports the plan unless confirm is true",
	}, tools.Deploy)

	mcp.AddTool(server, &mcp.Tool{
		Name:        "list_objects",
		Description: "List objects stored in the local snapshot",
	}, tools.ListObjects)

	return server
}

// Run serves server on stdin/stdout until ctx is done or the client
// disconnects.
func Run(ctx context.Context, server *mcp.Server) error {
	return server.Run(ctx, &mcp.StdioTransport{})
}
