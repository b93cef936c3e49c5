package environment

import (
	"fmt"
	"io"

	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/workspace"
	"github.com/spf13/cobra"
)

func newDeployCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var (
		to        string
		targetOrg int64
		dryRun    bool
	)

	command := &cobra.Command{
		Use:   "deploy",
		Short: "Apply the local snapshot to the mapped objects of another environment",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			if to == "" {
				return common.ValidationError("flag --to is required", nil)
			}

			source, _, err := common.OpenWorkspace(command.Context(), deps, "")
			if err != nil {
				return err
			}
			target, targetContext, err := common.OpenWorkspace(command.Context(), deps, to)
			if err != nil {
				return err
			}
			orgID, err := targetOrgID(targetOrg, targetContext)
			if err != nil {
				return err
			}

			opts := workspace.DeployOptions{DryRun: dryRun}
			if target.Remote != nil {
				opts.Target = target.Remote
			} else if !dryRun {
				return common.ValidationError(fmt.Sprintf("context %q has no api settings", targetContext.Name), nil)
			}

			if !dryRun {
				confirmed, err := common.ConfirmChange(
					command,
					fmt.Sprintf("Deploy the local snapshot to organization %d at %s?", orgID, opts.Target.BaseURL()),
					globalFlags.Yes,
				)
				if err != nil {
					return err
				}
				if !confirmed {
					return common.WriteText(command, common.OutputText, "deploy canceled")
				}
			}

			result, err := source.Deploy(command.Context(), orgID, opts)
			if err != nil {
				return err
			}

			if err := common.WriteOutput(command, globalFlags.Output, result, renderDeployText); err != nil {
				return err
			}
			return common.PartialFailure(len(result.Failed))
		},
	}

	registerTargetFlags(command, deps, &to, &targetOrg)
	command.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be updated without calling the API")
	return command
}

func renderDeployText(w io.Writer, result workspace.DeployResult) error {
	verb := "updated"
	if result.DryRun {
		verb = "would update"
	}
	for _, item := range result.Updated {
		if _, err := fmt.Fprintf(w, "%s  %s %d -> %d %q\n", verb, item.Type, item.SourceID, item.TargetID, item.Name); err != nil {
			return err
		}
	}
	if err := writeOutcomeLines(w, result.Skipped, result.Failed, result.Warnings); err != nil {
		return err
	}
	_, err := fmt.Fprintf(w, "%d %s, %d skipped, %d failed\n", len(result.Updated), verb, len(result.Skipped), len(result.Failed))
	return err
}
