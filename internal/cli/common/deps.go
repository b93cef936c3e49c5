package common

import (
	"context"
	"fmt"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/workspace"
)

// WorkspaceOpener resolves a context by name, where empty means the current
// context, and wires its workspace.
type WorkspaceOpener func(ctx context.Context, contextName string) (*workspace.Workspace, config.Context, error)

type CommandDependencies struct {
	Contexts   config.ContextService
	Workspaces WorkspaceOpener
}

func RequireContexts(deps CommandDependencies) (config.ContextService, error) {
	if deps.Contexts == nil {
		return nil, ValidationError("context service is not configured", nil)
	}
	return deps.Contexts, nil
}

// OpenWorkspace opens the workspace selected by the --context flag carried in
// ctx, or by name when name is not empty.
func OpenWorkspace(ctx context.Context, deps CommandDependencies, name string) (*workspace.Workspace, config.Context, error) {
	if deps.Workspaces == nil {
		return nil, config.Context{}, ValidationError("workspace bootstrap is not configured", nil)
	}
	if name == "" {
		name = ContextName(ctx)
	}
	return deps.Workspaces(ctx, name)
}

// OpenRemoteWorkspace is OpenWorkspace for commands that call the API.
func OpenRemoteWorkspace(ctx context.Context, deps CommandDependencies, name string) (*workspace.Workspace, config.Context, error) {
	ws, resolved, err := OpenWorkspace(ctx, deps, name)
	if err != nil {
		return nil, config.Context{}, err
	}
	if ws.Remote == nil {
		return nil, config.Context{}, ValidationError(fmt.Sprintf("context %q has no api settings", resolved.Name), nil)
	}
	return ws, resolved, nil
}
