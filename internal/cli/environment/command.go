// Package environment holds the commands that span two contexts: copy,
// deploy, compare and mapping.
package environment

import (
	"context"
	"fmt"
	"io"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/workspace"
	"github.com/spf13/cobra"
)

func NewCommands(deps common.CommandDependencies, globalFlags *common.GlobalFlags) []*cobra.Command {
	return []*cobra.Command{
		newCopyCommand(deps, globalFlags),
		newDeployCommand(deps, globalFlags),
		newCompareCommand(deps, globalFlags),
		newMappingCommand(deps, globalFlags),
	}
}

// openTarget opens the --to context. An empty name means the target is the
// source environment itself.
func openTarget(ctx context.Context, deps common.CommandDependencies, name string) (*workspace.Workspace, config.Context, error) {
	if name == "" {
		return nil, config.Context{}, nil
	}
	return common.OpenWorkspace(ctx, deps, name)
}

// targetOrgID picks the explicit flag, else the target context's org id.
func targetOrgID(flagValue int64, target config.Context) (int64, error) {
	if flagValue > 0 {
		return flagValue, nil
	}
	if target.API != nil && target.API.OrgID > 0 {
		return target.API.OrgID, nil
	}
	return 0, common.ValidationError("target organization id is required: pass --target-org or set api.org-id on the target context", nil)
}

func registerTargetFlags(command *cobra.Command, deps common.CommandDependencies, to *string, orgID *int64) {
	command.Flags().StringVar(to, "to", "", "target context")
	command.Flags().Int64Var(orgID, "target-org", 0, "target organization id (defaults to the target context's api.org-id)")
	_ = command.RegisterFlagCompletionFunc("to", func(command *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		contexts, err := common.RequireContexts(deps)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		items, err := contexts.List(command.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		names := make([]string, 0, len(items))
		for _, item := range items {
			names = append(names, item.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

func writeOutcomeLines(w io.Writer, skipped []workspace.SkippedObject, failed []workspace.FailedObject, warnings []string) error {
	for _, item := range skipped {
		if _, err := fmt.Fprintf(w, "skipped  %s %d: %s\n", item.Type, item.ID, item.Reason); err != nil {
			return err
		}
	}
	for _, item := range failed {
		if _, err := fmt.Fprintf(w, "failed  %s %d: %s\n", item.Type, item.ID, item.Error); err != nil {
			return err
		}
	}
	for _, warning := range warnings {
		if _, err := fmt.Fprintf(w, "warning: %s\n", warning); err != nil {
			return err
		}
	}
	return nil
}
