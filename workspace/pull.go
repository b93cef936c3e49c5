package workspace

import (
	"context"
	"fmt"
	"strconv"

	"github.com/crmarques/rossync/resource"
	"go.opentelemetry.io/otel/attribute"
)

type PullOptions struct {
	// Commit records the pulled snapshot in the workspace git repository
	// so it reads as unmodified on the next diff.
	Commit        bool
	CommitMessage string
}

// Pull mirrors every workspace of an organization and its closure.
func (w *Workspace) Pull(ctx context.Context, orgID int64, opts PullOptions) (PullResult, error) {
	if err := w.requireRemote(); err != nil {
		return PullResult{}, err
	}

	ctx, op := startOperation(ctx, "pull", attribute.Int64("rossync.org_id", orgID))
	roots, err := w.Remote.List(ctx, resource.Workspace, map[string]string{
		"organization": strconv.FormatInt(orgID, 10),
	})
	if err != nil {
		err = fmt.Errorf("list workspaces of organization %d: %w", orgID, err)
		op.finish(err)
		return PullResult{}, err
	}

	kept := make([]resource.Payload, 0, len(roots))
	for _, root := range roots {
		if id, ok := refID(root["organization"]); ok && id != orgID {
			continue
		}
		kept = append(kept, root)
	}

	result, err := w.pullGraph(ctx, op, kept, opts)
	op.finish(err, "pulled", len(result.Pulled), "failed", len(result.Failed))
	return result, err
}

// PullWorkspace mirrors one workspace and its closure.
func (w *Workspace) PullWorkspace(ctx context.Context, workspaceID int64, opts PullOptions) (PullResult, error) {
	if err := w.requireRemote(); err != nil {
		return PullResult{}, err
	}

	ctx, op := startOperation(ctx, "pull", attribute.Int64("rossync.workspace_id", workspaceID))
	root, err := w.Remote.Retrieve(ctx, resource.Workspace, workspaceID)
	if err != nil {
		err = fmt.Errorf("retrieve workspace %d: %w", workspaceID, err)
		op.finish(err)
		return PullResult{}, err
	}

	result, err := w.pullGraph(ctx, op, []resource.Payload{root}, opts)
	op.finish(err, "pulled", len(result.Pulled), "failed", len(result.Failed))
	return result, err
}

func (w *Workspace) pullGraph(ctx context.Context, op *operation, roots []resource.Payload, opts PullOptions) (PullResult, error) {
	graph := collectGraph(ctx, w.Remote, roots)
	result := PullResult{
		Pulled: []resource.ObjectRef{},
		Failed: append([]FailedObject{}, graph.failed...),
	}

	for _, objectType := range resource.AllTypes {
		for _, data := range graph.objects[objectType] {
			id, ok := resource.IDOf(data)
			if !ok {
				op.count(string(objectType), "failed")
				result.Failed = append(result.Failed, FailedObject{
					Type:  objectType,
					Name:  resource.NameOf(data),
					Error: "remote object has no id",
				})
				continue
			}

			ref := resource.ObjectRef{Type: objectType, ID: id, Name: resource.NameOf(data)}
			path, err := w.Store.SaveObject(ctx, objectType, id, ref.Name, data, resource.ModifiedAt(data))
			if err != nil {
				return result, fmt.Errorf("save %s: %w", describe(ref), err)
			}
			op.count(string(objectType), "pulled")
			op.logger.V(1).Info("object saved", "type", objectType, "id", id, "path", path)
			result.Pulled = append(result.Pulled, ref)
		}
	}

	if opts.Commit && w.Snapshots != nil {
		message := opts.CommitMessage
		if message == "" {
			message = fmt.Sprintf("rossync: pull %d objects", len(result.Pulled))
		}
		committed, err := w.Snapshots.CommitSnapshot(ctx, message)
		if err != nil {
			return result, fmt.Errorf("commit pulled snapshot: %w", err)
		}
		result.Committed = committed
	}
	return result, nil
}
