package workspace

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"time"

	"github.com/crmarques/rossync/compare"
	"github.com/crmarques/rossync/resource"
)

// Diff classifies every local snapshot against its remote counterpart. A
// remote fetch failure yields local_only; a malformed local file aborts.
func (w *Workspace) Diff(ctx context.Context) ([]ObjectDiff, error) {
	if err := w.requireRemote(); err != nil {
		return nil, err
	}

	ctx, op := startOperation(ctx, "diff")
	diffs, err := w.diff(ctx, op)
	op.finish(err, "objects", len(diffs))
	return diffs, err
}

func (w *Workspace) diff(ctx context.Context, op *operation) ([]ObjectDiff, error) {
	stored := make([]storedObject, 0)
	for _, objectType := range resource.AllTypes {
		if !objectType.Diffable() {
			continue
		}
		objects, err := w.loadAll(ctx, objectType)
		if err != nil {
			return nil, err
		}
		stored = append(stored, objects...)
	}

	paths := make([]string, len(stored))
	for idx, item := range stored {
		paths[idx] = item.path
	}
	modified, err := w.changeDetector().ModifiedPaths(ctx, paths)
	if err != nil {
		op.logger.V(1).Info("change detection failed, treating all files as unmodified", "error", err.Error())
		modified = map[string]bool{}
	}

	diffs := make([]ObjectDiff, 0, len(stored))
	for _, item := range stored {
		diff := w.diffObject(ctx, item, modified[item.path])
		op.count(string(diff.ObjectType), string(diff.Status))
		op.logger.V(1).Info("object compared", "type", diff.ObjectType, "id", diff.ObjectID, "status", diff.Status)
		diffs = append(diffs, diff)
	}
	return diffs, nil
}

func (w *Workspace) diffObject(ctx context.Context, item storedObject, localModified bool) ObjectDiff {
	meta := item.object.Meta
	diff := ObjectDiff{
		ObjectType:      meta.ObjectType,
		ObjectID:        meta.ObjectID,
		Name:            item.object.Name(),
		Path:            item.path,
		LocalModifiedAt: fileModTime(item.path),
		ChangedFields:   []string{},
	}

	remote, err := w.fetchRemote(ctx, meta.ObjectType, meta.ObjectID)
	if err != nil {
		diff.Status = StatusLocalOnly
		diff.Error = err.Error()
		return diff
	}
	diff.RemoteModifiedAt = resource.ModifiedAt(remote)

	fieldDiffs := compare.FieldDiffs(item.object.Data, remote, meta.ObjectType, compare.Options{})
	if len(fieldDiffs) == 0 {
		diff.Status = StatusUnchanged
		return diff
	}
	diff.FieldDiffs = fieldDiffs
	for _, fieldDiff := range fieldDiffs {
		diff.ChangedFields = append(diff.ChangedFields, fieldDiff.Field)
	}

	remoteModified := !resource.SameInstant(meta.RemoteModifiedAt, diff.RemoteModifiedAt)
	switch {
	case localModified && remoteModified:
		diff.Status = StatusConflict
	case remoteModified:
		diff.Status = StatusRemoteModified
	default:
		diff.Status = StatusLocalModified
	}
	return diff
}

// fetchRemote retrieves one object. Inboxes have no typed endpoint and are
// read through the raw path.
func (w *Workspace) fetchRemote(ctx context.Context, objectType resource.ObjectType, id int64) (resource.Payload, error) {
	if objectType == resource.Inbox {
		payload, err := w.Remote.Request(ctx, http.MethodGet, fmt.Sprintf("inboxes/%d", id), nil)
		if err != nil {
			return nil, err
		}
		if payload == nil {
			return nil, notFoundError(fmt.Sprintf("inbox %d returned an empty body", id), nil)
		}
		return payload, nil
	}
	return w.Remote.Retrieve(ctx, objectType, id)
}

func fileModTime(path string) *time.Time {
	info, err := os.Stat(path)
	if err != nil {
		return nil
	}
	modTime := info.ModTime().UTC()
	return &modTime
}
