package workspace

import (
	"context"
	"fmt"
	"net/http"

	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server"
	"go.opentelemetry.io/otel/attribute"
)

type PushOptions struct {
	DryRun bool
	// Force pushes conflict and remote_modified objects over the remote
	// state.
	Force bool
}

// Push sends local edits back to the environment they were pulled from.
// Each object is pushed independently; failures are collected.
func (w *Workspace) Push(ctx context.Context, opts PushOptions) (PushResult, error) {
	if err := w.requireRemote(); err != nil {
		return PushResult{}, err
	}

	ctx, op := startOperation(
		ctx,
		"push",
		attribute.Bool("rossync.dry_run", opts.DryRun),
		attribute.Bool("rossync.force", opts.Force),
	)
	diffs, err := w.diff(ctx, op)
	if err != nil {
		op.finish(err)
		return PushResult{}, err
	}

	result := PushResult{
		DryRun:  opts.DryRun,
		Pushed:  []resource.ObjectRef{},
		Skipped: []SkippedObject{},
		Failed:  []FailedObject{},
	}
	for _, diff := range diffs {
		if diff.Status == StatusUnchanged {
			continue
		}

		ref := diff.Ref()
		if reason, eligible := pushEligibility(diff, opts.Force); !eligible {
			op.count(string(ref.Type), "skipped")
			result.Skipped = append(result.Skipped, skipped(ref, reason))
			continue
		}

		if opts.DryRun {
			op.count(string(ref.Type), "dry_run")
			result.Pushed = append(result.Pushed, ref)
			continue
		}

		if err := w.pushObject(ctx, diff); err != nil {
			op.count(string(ref.Type), "failed")
			op.logger.Error(err, "push failed", "type", ref.Type, "id", ref.ID)
			result.Failed = append(result.Failed, failed(ref, err))
			continue
		}
		op.count(string(ref.Type), "pushed")
		result.Pushed = append(result.Pushed, ref)
	}

	op.finish(nil, "pushed", len(result.Pushed), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, nil
}

func pushEligibility(diff ObjectDiff, force bool) (string, bool) {
	if !diff.ObjectType.Pushable() {
		return fmt.Sprintf("type %s cannot be pushed", diff.ObjectType), false
	}

	switch diff.Status {
	case StatusLocalModified:
		return "", true
	case StatusConflict:
		if force {
			return "", true
		}
		return "conflict - use force to overwrite", false
	case StatusRemoteModified:
		if force {
			return "", true
		}
		return "remote modified - pull first", false
	case StatusLocalOnly:
		return "not found remotely", false
	default:
		return fmt.Sprintf("status %s is not pushable", diff.Status), false
	}
}

func (w *Workspace) pushObject(ctx context.Context, diff ObjectDiff) error {
	object, err := w.Store.LoadObject(ctx, diff.Path)
	if err != nil {
		return err
	}
	payload := updatePayload(diff.ObjectType, object.Data)
	return updateRemote(ctx, w.Remote, diff.ObjectType, diff.ObjectID, payload)
}

// updateRemote applies a partial update. Inboxes go through the raw path.
func updateRemote(
	ctx context.Context,
	remote server.RemoteAPI,
	objectType resource.ObjectType,
	id int64,
	payload resource.Payload,
) error {
	if objectType == resource.Inbox {
		_, err := remote.Request(ctx, http.MethodPatch, fmt.Sprintf("inboxes/%d", id), payload)
		return err
	}
	_, err := remote.Update(ctx, objectType, id, payload)
	return err
}
