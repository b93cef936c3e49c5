package snapshot

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/workspace"
	"github.com/itchyny/gojq"
	"github.com/spf13/cobra"
)

type objectEntry struct {
	Type resource.ObjectType `json:"type"`
	ID   int64               `json:"id"`
	Name string              `json:"name"`
	Path string              `json:"path"`
	Data resource.Payload    `json:"data"`
}

func newObjectsCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	var (
		typeFilter []string
		expression string
	)

	command := &cobra.Command{
		Use:   "objects",
		Short: "List objects stored in the local snapshot, optionally through a jq filter",
		Example: `  rossync objects --type queue
  rossync objects --jq '.[] | select(.type == "hook") | {id, active: .data.active}'`,
		Args: cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			types, err := parseTypes(typeFilter)
			if err != nil {
				return err
			}

			ws, _, err := common.OpenWorkspace(command.Context(), deps, "")
			if err != nil {
				return err
			}

			entries, err := loadEntries(command.Context(), ws, types)
			if err != nil {
				return err
			}

			if strings.TrimSpace(expression) == "" {
				return common.WriteOutput(command, globalFlags.Output, entries, renderObjectsText)
			}

			results, err := runQuery(command.Context(), expression, entries)
			if err != nil {
				return err
			}
			format := globalFlags.Output
			if format == common.OutputText {
				format = common.OutputJSON
			}
			return common.WriteOutput(command, format, results, nil)
		},
	}

	command.Flags().StringSliceVarP(&typeFilter, "type", "t", nil, "limit to these object types")
	command.Flags().StringVarP(&expression, "jq", "q", "", "jq expression applied to the object list")
	_ = command.RegisterFlagCompletionFunc("type", completeTypes)
	return command
}

func loadEntries(ctx context.Context, ws *workspace.Workspace, types map[resource.ObjectType]bool) ([]objectEntry, error) {
	entries := []objectEntry{}
	for _, objectType := range resource.AllTypes {
		if len(types) > 0 && !types[objectType] {
			continue
		}
		paths, err := ws.Store.ListLocalObjects(ctx, objectType)
		if err != nil {
			return nil, err
		}
		for _, path := range paths {
			object, err := ws.Store.LoadObject(ctx, path)
			if err != nil {
				return nil, err
			}
			entries = append(entries, objectEntry{
				Type: objectType,
				ID:   object.Meta.ObjectID,
				Name: object.Name(),
				Path: path,
				Data: object.Data,
			})
		}
	}
	return entries, nil
}

// runQuery evaluates expression over the entry list as plain JSON values and
// collects every emitted value.
func runQuery(ctx context.Context, expression string, entries []objectEntry) ([]any, error) {
	query, err := gojq.Parse(expression)
	if err != nil {
		return nil, common.ValidationError("invalid jq expression", err)
	}
	code, err := gojq.Compile(query)
	if err != nil {
		return nil, common.ValidationError("invalid jq expression", err)
	}

	input := make([]any, 0, len(entries))
	for _, entry := range entries {
		input = append(input, map[string]any{
			"type": string(entry.Type),
			"id":   entry.ID,
			"name": entry.Name,
			"path": entry.Path,
			"data": map[string]any(entry.Data),
		})
	}

	results := []any{}
	iter := code.RunWithContext(ctx, input)
	for {
		value, ok := iter.Next()
		if !ok {
			break
		}
		if err, ok := value.(error); ok {
			return nil, common.ValidationError("jq evaluation failed", err)
		}
		results = append(results, value)
	}
	return results, nil
}

func renderObjectsText(w io.Writer, entries []objectEntry) error {
	for _, entry := range entries {
		ref := resource.ObjectRef{Type: entry.Type, ID: entry.ID, Name: entry.Name}
		if _, err := fmt.Fprintf(w, "%s\t%s\n", common.DescribeRef(ref), entry.Path); err != nil {
			return err
		}
	}
	return nil
}
