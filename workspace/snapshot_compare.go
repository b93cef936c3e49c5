package workspace

import (
	"context"

	"github.com/crmarques/rossync/compare"
	"github.com/crmarques/rossync/idmap"
	"github.com/crmarques/rossync/resource"
)

// Compare matches this snapshot against other's through mapping without
// touching either remote. Both snapshots must hold at least one workspace.
func (w *Workspace) Compare(ctx context.Context, other *Workspace, mapping *idmap.Mapping) (CompareResult, error) {
	if err := w.requireStore(); err != nil {
		return CompareResult{}, err
	}
	if err := other.requireStore(); err != nil {
		return CompareResult{}, err
	}
	if mapping == nil {
		return CompareResult{}, validationError("compare requires an id mapping", nil)
	}

	sourceWorkspaces, err := w.localWorkspaceIDs(ctx)
	if err != nil {
		return CompareResult{}, err
	}
	targetWorkspaces, err := other.localWorkspaceIDs(ctx)
	if err != nil {
		return CompareResult{}, err
	}
	if len(sourceWorkspaces) == 0 || len(targetWorkspaces) == 0 {
		return CompareResult{}, validationError("both workspaces must be pulled before compare", nil)
	}

	normalized, err := mapping.Normalize(sourceWorkspaces)
	if err != nil {
		return CompareResult{}, err
	}

	ctx, op := startOperation(ctx, "compare")
	result := CompareResult{
		Objects:    []ObjectCompare{},
		SourceOnly: []resource.ObjectRef{},
		TargetOnly: []resource.ObjectRef{},
	}
	opts := compare.Options{Mapping: normalized}

	for _, objectType := range resource.AllTypes {
		sources, err := w.loadAll(ctx, objectType)
		if err != nil {
			op.finish(err)
			return result, err
		}
		targets, err := other.loadAll(ctx, objectType)
		if err != nil {
			op.finish(err)
			return result, err
		}

		targetsByID := make(map[int64]storedObject, len(targets))
		for _, target := range targets {
			targetsByID[target.object.Meta.ObjectID] = target
		}

		matched := idSet{}
		for _, source := range sources {
			ref := source.ref()
			targetID, ok := normalized.Get(objectType, ref.ID)
			if !ok {
				result.SourceOnly = append(result.SourceOnly, ref)
				continue
			}
			target, ok := targetsByID[targetID]
			if !ok {
				result.SourceOnly = append(result.SourceOnly, ref)
				continue
			}

			matched.add(targetID)
			diffs := compare.FieldDiffs(source.object.Data, target.object.Data, objectType, opts)
			outcome := "identical"
			if len(diffs) > 0 {
				outcome = "different"
			}
			op.count(string(objectType), outcome)
			result.Objects = append(result.Objects, ObjectCompare{
				Type:       objectType,
				SourceID:   ref.ID,
				TargetID:   targetID,
				Name:       ref.Name,
				Identical:  len(diffs) == 0,
				FieldDiffs: diffs,
			})
		}

		for _, target := range targets {
			if !matched.has(target.object.Meta.ObjectID) {
				result.TargetOnly = append(result.TargetOnly, target.ref())
			}
		}
	}

	op.finish(nil, "objects", len(result.Objects), "source_only", len(result.SourceOnly), "target_only", len(result.TargetOnly))
	return result, nil
}
