package environment

import (
	"fmt"
	"io"
	"slices"

	"github.com/crmarques/rossync/idmap"
	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/resource"
	"github.com/spf13/cobra"
)

type mappingEntry struct {
	Type     resource.ObjectType `json:"type"`
	SourceID int64               `json:"source_id"`
	TargetID int64               `json:"target_id"`
}

type mappingView struct {
	SourceOrgID int64          `json:"source_org_id"`
	TargetOrgID int64          `json:"target_org_id"`
	Objects     []mappingEntry `json:"objects"`
}

func newMappingCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	command := &cobra.Command{
		Use:   "mapping",
		Short: "Inspect id mappings written by copy",
		Args:  cobra.NoArgs,
	}
	command.AddCommand(newMappingShowCommand(deps, globalFlags))
	return command
}

func newMappingShowCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var (
		to        string
		targetOrg int64
	)

	command := &cobra.Command{
		Use:   "show",
		Short: "Show the id mapping between the local snapshot and a target organization",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			source, _, err := common.OpenWorkspace(command.Context(), deps, "")
			if err != nil {
				return err
			}
			_, targetContext, err := openTarget(command.Context(), deps, to)
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
			return common.WriteOutput(command, globalFlags.Output, newMappingView(mapping), renderMappingText)
		},
	}

	registerTargetFlags(command, deps, &to, &targetOrg)
	return command
}

func newMappingView(mapping *idmap.Mapping) mappingView {
	view := mappingView{
		SourceOrgID: mapping.SourceOrgID,
		TargetOrgID: mapping.TargetOrgID,
		Objects:     []mappingEntry{},
	}
	for _, objectType := range resource.AllTypes {
		table := mapping.GetAll(objectType)
		for _, sourceID := range sortedIDs(table) {
			view.Objects = append(view.Objects, mappingEntry{Type: objectType, SourceID: sourceID, TargetID: table[sourceID]})
		}
	}
	return view
}

func sortedIDs(table map[int64]int64) []int64 {
	ids := make([]int64, 0, len(table))
	for id := range table {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids
}

func renderMappingText(w io.Writer, view mappingView) error {
	if _, err := fmt.Fprintf(w, "organization %d -> %d\n", view.SourceOrgID, view.TargetOrgID); err != nil {
		return err
	}
	for _, entry := range view.Objects {
		if _, err := fmt.Fprintf(w, "%-15s %d -> %d\n", entry.Type, entry.SourceID, entry.TargetID); err != nil {
			return err
		}
	}
	return nil
}
