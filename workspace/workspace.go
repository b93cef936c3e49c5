// Package workspace synchronizes a local snapshot directory with the remote
// API: pull, diff, push, copy, deploy and snapshot compare.
package workspace

import (
	"context"
	"fmt"

	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/repository"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server"
)

// Workspace owns one local snapshot root and the client of the environment
// it was pulled from. Copy and Deploy may target a second client passed in
// their options.
type Workspace struct {
	Store     repository.LocalStore
	Remote    server.RemoteAPI
	Changes   repository.ChangeDetector
	Snapshots repository.SnapshotCommitter

	// OrgID is the organization the snapshot belongs to. Zero means it is
	// derived from the organization URL of the local workspace objects.
	OrgID int64
}

func (w *Workspace) changeDetector() repository.ChangeDetector {
	if w.Changes == nil {
		return repository.NoChanges{}
	}
	return w.Changes
}

func (w *Workspace) requireStore() error {
	if w == nil || w.Store == nil {
		return validationError("workspace store is not configured", nil)
	}
	return nil
}

func (w *Workspace) requireRemote() error {
	if err := w.requireStore(); err != nil {
		return err
	}
	if w.Remote == nil {
		return validationError("workspace remote api is not configured", nil)
	}
	return nil
}

// loadAll reads every snapshot of objectType. A malformed file aborts with
// its ParseError.
func (w *Workspace) loadAll(ctx context.Context, objectType resource.ObjectType) ([]storedObject, error) {
	paths, err := w.Store.ListLocalObjects(ctx, objectType)
	if err != nil {
		return nil, err
	}

	objects := make([]storedObject, 0, len(paths))
	for _, path := range paths {
		object, err := w.Store.LoadObject(ctx, path)
		if err != nil {
			return nil, err
		}
		objects = append(objects, storedObject{path: path, object: object})
	}
	return objects, nil
}

type storedObject struct {
	path   string
	object resource.LocalObject
}

func (s storedObject) ref() resource.ObjectRef {
	return resource.ObjectRef{
		Type: s.object.Meta.ObjectType,
		ID:   s.object.Meta.ObjectID,
		Name: s.object.Name(),
	}
}

// localWorkspaceIDs lists the ids of the workspace objects in the snapshot.
func (w *Workspace) localWorkspaceIDs(ctx context.Context) ([]int64, error) {
	objects, err := w.loadAll(ctx, resource.Workspace)
	if err != nil {
		return nil, err
	}
	ids := make([]int64, 0, len(objects))
	for _, stored := range objects {
		ids = append(ids, stored.object.Meta.ObjectID)
	}
	return ids, nil
}

// SourceOrgID returns OrgID, or the organization referenced by the first
// local workspace object carrying one.
func (w *Workspace) SourceOrgID(ctx context.Context) (int64, error) {
	if err := w.requireStore(); err != nil {
		return 0, err
	}
	if w.OrgID > 0 {
		return w.OrgID, nil
	}

	objects, err := w.loadAll(ctx, resource.Workspace)
	if err != nil {
		return 0, err
	}
	for _, stored := range objects {
		if id, ok := refID(stored.object.Data["organization"]); ok {
			return id, nil
		}
	}
	return 0, validationError("source organization id is unknown; pull the workspace first or set api.org-id", nil)
}

func validationError(message string, cause error) error {
	return faults.NewTypedError(faults.ValidationError, message, cause)
}

func notFoundError(message string, cause error) error {
	return faults.NewTypedError(faults.NotFoundError, message, cause)
}

func describe(ref resource.ObjectRef) string {
	return fmt.Sprintf("%s %d", ref.Type, ref.ID)
}
