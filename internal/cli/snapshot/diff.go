package snapshot

import (
	"fmt"
	"io"
	"strings"

	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/workspace"
	"github.com/spf13/cobra"
)

func newDiffCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var (
		showAll    bool
		typeFilter []string
	)

	command := &cobra.Command{
		Use:   "diff",
		Short: "Compare the local snapshot with the remote objects",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			types, err := parseTypes(typeFilter)
			if err != nil {
				return err
			}

			ws, _, err := common.OpenRemoteWorkspace(command.Context(), deps, "")
			if err != nil {
				return err
			}

			diffs, err := ws.Diff(command.Context())
			if err != nil {
				return err
			}

			selected := make([]workspace.ObjectDiff, 0, len(diffs))
			for _, item := range diffs {
				if len(types) > 0 && !types[item.ObjectType] {
					continue
				}
				if !showAll && item.Status == workspace.StatusUnchanged {
					continue
				}
				selected = append(selected, item)
			}

			return common.WriteOutput(command, globalFlags.Output, selected, renderDiffText)
		},
	}

	command.Flags().BoolVarP(&showAll, "all", "a", false, "include unchanged objects")
	command.Flags().StringSliceVarP(&typeFilter, "type", "t", nil, "limit to these object types")
	_ = command.RegisterFlagCompletionFunc("type", completeTypes)
	return command
}

func renderDiffText(w io.Writer, diffs []workspace.ObjectDiff) error {
	if len(diffs) == 0 {
		_, err := fmt.Fprintln(w, "no changes")
		return err
	}
	for _, item := range diffs {
		line := fmt.Sprintf("%-16s %s", item.Status, common.DescribeRef(item.Ref()))
		if len(item.ChangedFields) > 0 {
			line += " [" + strings.Join(item.ChangedFields, ", ") + "]"
		}
		if item.Error != "" {
			line += ": " + item.Error
		}
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}

func parseTypes(values []string) (map[resource.ObjectType]bool, error) {
	types := map[resource.ObjectType]bool{}
	for _, value := range values {
		objectType, err := resource.ParseObjectType(value)
		if err != nil {
			return nil, err
		}
		types[objectType] = true
	}
	return types, nil
}

func completeTypes(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	names := make([]string, 0, len(resource.AllTypes))
	for _, objectType := range resource.AllTypes {
		names = append(names, string(objectType))
	}
	return names, cobra.ShellCompDirectiveNoFileComp
}
