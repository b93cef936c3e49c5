package environment

import (
	"fmt"
	"io"

	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/workspace"
	"github.com/spf13/cobra"
)

func newCopyCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var (
		to          string
		targetOrg   int64
		workspaceID int64
		sourceOrg   int64
	)

	command := &cobra.Command{
		Use:   "copy",
		Short: "Clone a workspace or a whole organization into another organization",
		Example: `  rossync copy --workspace 12 --to staging
  rossync copy --to staging --target-org 77`,
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			source, sourceContext, err := common.OpenRemoteWorkspace(command.Context(), deps, "")
			if err != nil {
				return err
			}
			target, targetContext, err := openTarget(command.Context(), deps, to)
			if err != nil {
				return err
			}
			if target == nil {
				targetContext = sourceContext
			}
			orgID, err := targetOrgID(targetOrg, targetContext)
			if err != nil {
				return err
			}

			opts := workspace.CopyOptions{}
			destination := source.Remote.BaseURL()
			if target != nil {
				if target.Remote == nil {
					return common.ValidationError(fmt.Sprintf("context %q has no api settings", targetContext.Name), nil)
				}
				opts.Target = target.Remote
				destination = target.Remote.BaseURL()
			}

			confirmed, err := common.ConfirmChange(
				command,
				fmt.Sprintf("Create objects in organization %d at %s?", orgID, destination),
				globalFlags.Yes,
			)
			if err != nil {
				return err
			}
			if !confirmed {
				return common.WriteText(command, common.OutputText, "copy canceled")
			}

			var result workspace.CopyResult
			if workspaceID > 0 {
				result, err = source.CopyWorkspace(command.Context(), workspaceID, orgID, opts)
			} else {
				if sourceOrg == 0 {
					sourceOrg = source.OrgID
				}
				if sourceOrg <= 0 {
					return common.ValidationError("source organization id is required: pass --workspace, --source-org or set api.org-id", nil)
				}
				result, err = source.CopyOrg(command.Context(), sourceOrg, orgID, opts)
			}
			if err != nil {
				return err
			}

			if err := common.WriteOutput(command, globalFlags.Output, result, renderCopyText); err != nil {
				return err
			}
			return common.PartialFailure(len(result.Failed))
		},
	}

	registerTargetFlags(command, deps, &to, &targetOrg)
	command.Flags().Int64VarP(&workspaceID, "workspace", "w", 0, "copy only this workspace and its dependencies")
	command.Flags().Int64Var(&sourceOrg, "source-org", 0, "organization to copy (defaults to api.org-id)")
	return command
}

func renderCopyText(w io.Writer, result workspace.CopyResult) error {
	for _, item := range result.Created {
		if _, err := fmt.Fprintf(w, "created  %s %d -> %d %q\n", item.Type, item.SourceID, item.TargetID, item.Name); err != nil {
			return err
		}
	}
	if err := writeOutcomeLines(w, result.Skipped, result.Failed, result.Warnings); err != nil {
		return err
	}
	_, err := fmt.Fprintf(
		w,
		"%d created, %d skipped, %d failed; mapping saved to %s\n",
		len(result.Created),
		len(result.Skipped),
		len(result.Failed),
		result.MappingPath,
	)
	return err
}
