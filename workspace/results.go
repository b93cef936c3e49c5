package workspace

import (
	"time"

	"github.com/crmarques/rossync/compare"
	"github.com/crmarques/rossync/idmap"
	"github.com/crmarques/rossync/resource"
)

type DiffStatus string

const (
	StatusUnchanged      DiffStatus = "unchanged"
	StatusLocalModified  DiffStatus = "local_modified"
	StatusRemoteModified DiffStatus = "remote_modified"
	StatusConflict       DiffStatus = "conflict"
	StatusLocalOnly      DiffStatus = "local_only"
)

type ObjectDiff struct {
	ObjectType       resource.ObjectType `json:"object_type" yaml:"object_type"`
	ObjectID         int64               `json:"object_id" yaml:"object_id"`
	Name             string              `json:"name" yaml:"name"`
	Status           DiffStatus          `json:"status" yaml:"status"`
	LocalModifiedAt  *time.Time          `json:"local_modified_at" yaml:"local_modified_at"`
	RemoteModifiedAt *time.Time          `json:"remote_modified_at" yaml:"remote_modified_at"`
	ChangedFields    []string            `json:"changed_fields" yaml:"changed_fields"`
	FieldDiffs       []compare.FieldDiff `json:"field_diffs,omitempty" yaml:"field_diffs,omitempty"`
	Path             string              `json:"path" yaml:"path"`
	// Error carries the remote fetch failure behind a local_only status.
	Error string `json:"error,omitempty" yaml:"error,omitempty"`
}

func (d ObjectDiff) Ref() resource.ObjectRef {
	return resource.ObjectRef{Type: d.ObjectType, ID: d.ObjectID, Name: d.Name}
}

type SkippedObject struct {
	Type   resource.ObjectType `json:"type" yaml:"type"`
	ID     int64               `json:"id" yaml:"id"`
	Name   string              `json:"name" yaml:"name"`
	Reason string              `json:"reason" yaml:"reason"`
}

type FailedObject struct {
	Type  resource.ObjectType `json:"type" yaml:"type"`
	ID    int64               `json:"id" yaml:"id"`
	Name  string              `json:"name" yaml:"name"`
	Error string              `json:"error" yaml:"error"`
}

// MappedObject pairs a source object with its counterpart in the target
// environment.
type MappedObject struct {
	Type     resource.ObjectType `json:"type" yaml:"type"`
	SourceID int64               `json:"source_id" yaml:"source_id"`
	TargetID int64               `json:"target_id" yaml:"target_id"`
	Name     string              `json:"name" yaml:"name"`
}

type PullResult struct {
	Pulled    []resource.ObjectRef `json:"pulled" yaml:"pulled"`
	Failed    []FailedObject       `json:"failed" yaml:"failed"`
	Committed bool                 `json:"committed" yaml:"committed"`
}

type PushResult struct {
	DryRun  bool                 `json:"dry_run" yaml:"dry_run"`
	Pushed  []resource.ObjectRef `json:"pushed" yaml:"pushed"`
	Skipped []SkippedObject      `json:"skipped" yaml:"skipped"`
	Failed  []FailedObject       `json:"failed" yaml:"failed"`
}

type CopyResult struct {
	Created     []MappedObject  `json:"created" yaml:"created"`
	Skipped     []SkippedObject `json:"skipped" yaml:"skipped"`
	Failed      []FailedObject  `json:"failed" yaml:"failed"`
	Warnings    []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
	Mapping     *idmap.Mapping  `json:"-" yaml:"-"`
	MappingPath string          `json:"mapping_path" yaml:"mapping_path"`
}

type DeployResult struct {
	DryRun   bool            `json:"dry_run" yaml:"dry_run"`
	Updated  []MappedObject  `json:"updated" yaml:"updated"`
	Skipped  []SkippedObject `json:"skipped" yaml:"skipped"`
	Failed   []FailedObject  `json:"failed" yaml:"failed"`
	Warnings []string        `json:"warnings,omitempty" yaml:"warnings,omitempty"`
}

type ObjectCompare struct {
	Type       resource.ObjectType `json:"type" yaml:"type"`
	SourceID   int64               `json:"source_id" yaml:"source_id"`
	TargetID   int64               `json:"target_id" yaml:"target_id"`
	Name       string              `json:"name" yaml:"name"`
	Identical  bool                `json:"identical" yaml:"identical"`
	FieldDiffs []compare.FieldDiff `json:"field_diffs,omitempty" yaml:"field_diffs,omitempty"`
}

type CompareResult struct {
	Objects    []ObjectCompare      `json:"objects" yaml:"objects"`
	SourceOnly []resource.ObjectRef `json:"source_only" yaml:"source_only"`
	TargetOnly []resource.ObjectRef `json:"target_only" yaml:"target_only"`
}

func skipped(ref resource.ObjectRef, reason string) SkippedObject {
	return SkippedObject{Type: ref.Type, ID: ref.ID, Name: ref.Name, Reason: reason}
}

func failed(ref resource.ObjectRef, err error) FailedObject {
	return FailedObject{Type: ref.Type, ID: ref.ID, Name: ref.Name, Error: err.Error()}
}
