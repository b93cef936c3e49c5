package snapshot

import (
	"fmt"
	"io"

	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/workspace"
	"github.com/spf13/cobra"
)

func newPullCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var (
		workspaceID   int64
		orgID         int64
		commit        bool
		commitMessage string
	)

	command := &cobra.Command{
		Use:   "pull",
		Short: "Pull an organization or one workspace into the local snapshot",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			ws, resolved, err := common.OpenRemoteWorkspace(command.Context(), deps, "")
			if err != nil {
				return err
			}

			opts := workspace.PullOptions{
				Commit:        commit || resolved.Workspace.GitCommit,
				CommitMessage: commitMessage,
			}

			var result workspace.PullResult
			if workspaceID > 0 {
				result, err = ws.PullWorkspace(command.Context(), workspaceID, opts)
			} else {
				if orgID == 0 {
					orgID = ws.OrgID
				}
				if orgID <= 0 {
					return common.ValidationError("organization id is required: pass --org-id or set api.org-id", nil)
				}
				result, err = ws.Pull(command.Context(), orgID, opts)
			}
			if err != nil {
				return err
			}

			if err := common.WriteOutput(command, globalFlags.Output, result, renderPullText); err != nil {
				return err
			}
			return common.PartialFailure(len(result.Failed))
		},
	}

	command.Flags().Int64VarP(&workspaceID, "workspace", "w", 0, "pull only this workspace and its dependencies")
	command.Flags().Int64Var(&orgID, "org-id", 0, "organization to pull (defaults to api.org-id)")
	command.Flags().BoolVar(&commit, "commit", false, "commit the pulled snapshot to the workspace git repository")
	command.Flags().StringVarP(&commitMessage, "message", "m", "", "commit message")
	return command
}

func renderPullText(w io.Writer, result workspace.PullResult) error {
	for _, ref := range result.Pulled {
		if _, err := fmt.Fprintf(w, "pulled  %s\n", common.DescribeRef(ref)); err != nil {
			return err
		}
	}
	for _, item := range result.Failed {
		if _, err := fmt.Fprintf(w, "failed  %s %d: %s\n", item.Type, item.ID, item.Error); err != nil {
			return err
		}
	}
	summary := fmt.Sprintf("%d pulled, %d failed", len(result.Pulled), len(result.Failed))
	if result.Committed {
		summary += ", snapshot committed"
	}
	_, err := fmt.Fprintln(w, summary)
	return err
}
