package core

import (
	"context"
	"errors"
	"os"
	"path/filepath"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/faults"
	configfile "github.com/crmarques/rossync/internal/providers/config/file"
	fsstore "github.com/crmarques/rossync/internal/providers/repository/fsstore"
	gitrepository "github.com/crmarques/rossync/internal/providers/repository/git"
	httpserver "github.com/crmarques/rossync/internal/providers/server/http"
	"github.com/crmarques/rossync/workspace"
	"github.com/joho/godotenv"
)

const DotEnvFile = ".env"

func NewContextService(opts BootstrapConfig) config.ContextService {
	return configfile.NewFileContextService(opts.ContextCatalogPath)
}

// LoadDotEnv exports the variables of an env file into the process
// environment. Variables that are already set win, and a missing file is not
// an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = DotEnvFile
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil
		}
		return faults.NewTypedError(faults.InternalError, "failed to read "+path, err)
	}
	if err := godotenv.Load(path); err != nil {
		return faults.NewTypedError(faults.ValidationError, "invalid env file "+path, err)
	}
	return nil
}

// EnvSelection builds a selection for name carrying the ROSSYNC_* overrides
// found in the process environment.
func EnvSelection(name string) config.ContextSelection {
	return config.ContextSelection{
		Name:      name,
		Overrides: config.EnvOverrides(os.LookupEnv),
	}
}

func NewRossyncContext(ctx context.Context, opts BootstrapConfig, selection config.ContextSelection) (RossyncContext, error) {
	contextService := NewContextService(opts)
	resolved, err := contextService.ResolveContext(ctx, selection)
	if err != nil {
		return RossyncContext{}, err
	}

	ws, err := buildWorkspace(resolved, opts)
	if err != nil {
		return RossyncContext{}, err
	}

	return RossyncContext{
		Contexts:  contextService,
		Context:   resolved,
		Workspace: ws,
	}, nil
}

func buildWorkspace(resolved config.Context, opts BootstrapConfig) (*workspace.Workspace, error) {
	dir, err := filepath.Abs(resolved.Workspace.Dir)
	if err != nil {
		return nil, faults.NewTypedError(faults.ValidationError, "invalid workspace directory", err)
	}

	worktree := gitrepository.NewWorktreeRepository(dir, resolved.Workspace.GitInitEnabled())
	ws := &workspace.Workspace{
		Store:     fsstore.NewLocalObjectStore(dir),
		Changes:   worktree,
		Snapshots: worktree,
	}

	if resolved.API != nil {
		var gatewayOptions []httpserver.GatewayOption
		if opts.HTTPClient != nil {
			gatewayOptions = append(gatewayOptions, httpserver.WithHTTPClient(opts.HTTPClient))
		}
		gateway, err := httpserver.NewHTTPRemoteGateway(*resolved.API, gatewayOptions...)
		if err != nil {
			return nil, err
		}
		ws.Remote = gateway
		ws.OrgID = resolved.API.OrgID
	}

	return ws, nil
}
