package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/core"
	"github.com/crmarques/rossync/internal/cli"
	"github.com/crmarques/rossync/workspace"
)

func main() {
	if err := core.LoadDotEnv(""); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(exitCodeForError(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	opts := core.BootstrapConfig{}
	deps := cli.Dependencies{
		Contexts:   core.NewContextService(opts),
		Workspaces: newWorkspaceOpener(opts),
	}

	err := cli.Execute(ctx, deps)
	stop()
	if err != nil {
		os.Exit(exitCodeForError(err))
	}
}

// newWorkspaceOpener defers context resolution until a command needs a
// workspace, so help, completion and context management never touch the
// API settings.
func newWorkspaceOpener(opts core.BootstrapConfig) func(context.Context, string) (*workspace.Workspace, config.Context, error) {
	return func(ctx context.Context, name string) (*workspace.Workspace, config.Context, error) {
		rossyncContext, err := core.NewRossyncContext(ctx, opts, core.EnvSelection(name))
		if err != nil {
			return nil, config.Context{}, err
		}
		return rossyncContext.Workspace, rossyncContext.Context, nil
	}
}

func exitCodeForError(err error) int {
	return cli.ExitCodeForError(err)
}
