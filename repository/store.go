package repository

import (
	"context"
	"time"

	"github.com/crmarques/rossync/resource"
)

// LocalStore persists one JSON snapshot per object under a workspace root.
type LocalStore interface {
	Root() string
	SaveObject(
		ctx context.Context,
		objectType resource.ObjectType,
		id int64,
		name string,
		data resource.Payload,
		remoteModifiedAt *time.Time,
	) (string, error)
	LoadObject(ctx context.Context, path string) (resource.LocalObject, error)
	// ListLocalObjects returns the snapshot paths of one type, sorted. A
	// missing folder yields an empty list.
	ListLocalObjects(ctx context.Context, objectType resource.ObjectType) ([]string, error)
	// FindObjectPath returns "" when no snapshot exists for id.
	FindObjectPath(ctx context.Context, objectType resource.ObjectType, id int64) (string, error)
}

// ChangeDetector reports which snapshot files carry uncommitted edits.
type ChangeDetector interface {
	ModifiedPaths(ctx context.Context, paths []string) (map[string]bool, error)
}

// SnapshotCommitter records the current snapshot in version control.
type SnapshotCommitter interface {
	CommitSnapshot(ctx context.Context, message string) (bool, error)
}

// NoChanges is a ChangeDetector for workspaces outside version control.
type NoChanges struct{}

func (NoChanges) ModifiedPaths(context.Context, []string) (map[string]bool, error) {
	return map[string]bool{}, nil
}
