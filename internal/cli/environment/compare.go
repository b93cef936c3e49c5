package environment

import (
	"fmt"
	"io"
	"strings"

	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/workspace"
	"github.com/spf13/cobra"
)

func newCompareCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var (
		to        string
		targetOrg int64
		showAll   bool
	)

	command := &cobra.Command{
		Use:   "compare",
		Short: "Compare the local snapshots of two contexts through their id mapping",
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

			mapping, err := source.Mapping(command.Context(), orgID)
			if err != nil {
				return err
			}
			result, err := source.Compare(command.Context(), target, mapping)
			if err != nil {
				return err
			}

			if !showAll {
				different := make([]workspace.ObjectCompare, 0, len(result.Objects))
				for _, item := range result.Objects {
					if !item.Identical {
						different = append(different, item)
					}
				}
				result.Objects = different
			}
			return common.WriteOutput(command, globalFlags.Output, result, renderCompareText)
		},
	}

	registerTargetFlags(command, deps, &to, &targetOrg)
	command.Flags().BoolVarP(&showAll, "all", "a", false, "include identical objects")
	return command
}

func renderCompareText(w io.Writer, result workspace.CompareResult) error {
	for _, item := range result.Objects {
		state := "identical"
		if !item.Identical {
			fields := make([]string, 0, len(item.FieldDiffs))
			for _, diff := range item.FieldDiffs {
				fields = append(fields, diff.Field)
			}
			state = "different [" + strings.Join(fields, ", ") + "]"
		}
		if _, err := fmt.Fprintf(w, "%s %d -> %d %q: %s\n", item.Type, item.SourceID, item.TargetID, item.Name, state); err != nil {
			return err
		}
	}
	for _, ref := range result.SourceOnly {
		if _, err := fmt.Fprintf(w, "source only  %s\n", common.DescribeRef(ref)); err != nil {
			return err
		}
	}
	for _, ref := range result.TargetOnly {
		if _, err := fmt.Fprintf(w, "target only  %s\n", common.DescribeRef(ref)); err != nil {
			return err
		}
	}
	return nil
}
