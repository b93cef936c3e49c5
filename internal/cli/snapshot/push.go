package snapshot

import (
	"fmt"
	"io"

	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/workspace"
	"github.com/spf13/cobra"
)

func newPushCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var (
		dryRun bool
		force  bool
	)

	command := &cobra.Command{
		Use:   "push",
		Short: "Push locally modified objects to the remote API",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			ws, _, err := common.OpenRemoteWorkspace(command.Context(), deps, "")
			if err != nil {
				return err
			}

			if !dryRun && !globalFlags.Yes {
				plan, err := ws.Push(command.Context(), workspace.PushOptions{DryRun: true, Force: force})
				if err != nil {
					return err
				}
				if len(plan.Pushed) == 0 {
					return common.WriteOutput(command, globalFlags.Output, plan, renderPushText)
				}
				if err := renderPushText(command.ErrOrStderr(), plan); err != nil {
					return err
				}
				confirmed, err := common.ConfirmChange(
					command,
					fmt.Sprintf("Push %d object(s) to %s?", len(plan.Pushed), ws.Remote.BaseURL()),
					false,
				)
				if err != nil {
					return err
				}
				if !confirmed {
					return common.WriteText(command, common.OutputText, "push canceled")
				}
			}

			result, err := ws.Push(command.Context(), workspace.PushOptions{DryRun: dryRun, Force: force})
			if err != nil {
				return err
			}

			if err := common.WriteOutput(command, globalFlags.Output, result, renderPushText); err != nil {
				return err
			}
			return common.PartialFailure(len(result.Failed))
		},
	}

	command.Flags().BoolVar(&dryRun, "dry-run", false, "report what would be pushed without calling the API")
	command.Flags().BoolVarP(&force, "force", "f", false, "overwrite conflicting and remotely modified objects")
	return command
}

func renderPushText(w io.Writer, result workspace.PushResult) error {
	verb := "pushed"
	if result.DryRun {
		verb = "would push"
	}
	for _, ref := range result.Pushed {
		if _, err := fmt.Fprintf(w, "%s  %s\n", verb, common.DescribeRef(ref)); err != nil {
			return err
		}
	}
	for _, item := range result.Skipped {
		if _, err := fmt.Fprintf(w, "skipped  %s %d: %s\n", item.Type, item.ID, item.Reason); err != nil {
			return err
		}
	}
	for _, item := range result.Failed {
		if _, err := fmt.Fprintf(w, "failed  %s %d: %s\n", item.Type, item.ID, item.Error); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintf(w, "%d %s, %d skipped, %d failed\n", len(result.Pushed), verb, len(result.Skipped), len(result.Failed))
	return err
}
