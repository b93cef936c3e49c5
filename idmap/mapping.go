// Package idmap records how object ids in one organization correspond to ids
// in another. A mapping is produced by copy and consumed by deploy and
// workspace comparison.
package idmap

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"sort"

	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/internal/providers/shared/fsutil"
	"github.com/crmarques/rossync/resource"
)

// Mapping is a per-type bijection from source ids to target ids.
type Mapping struct {
	SourceOrgID int64
	TargetOrgID int64
	tables      map[resource.ObjectType]map[int64]int64
}

type fileFormat struct {
	SourceOrgID int64                                   `json:"source_org_id"`
	TargetOrgID int64                                   `json:"target_org_id"`
	Mappings    map[resource.ObjectType]map[int64]int64 `json:"mappings"`
}

func New(sourceOrgID int64, targetOrgID int64) *Mapping {
	return &Mapping{
		SourceOrgID: sourceOrgID,
		TargetOrgID: targetOrgID,
		tables:      map[resource.ObjectType]map[int64]int64{},
	}
}

// FileName is the workspace-root file name a mapping is persisted under.
func FileName(sourceOrgID int64, targetOrgID int64) string {
	return fmt.Sprintf(".id_mapping_%d_to_%d.json", sourceOrgID, targetOrgID)
}

// Add records sourceID -> targetID, replacing any earlier target for sourceID.
func (m *Mapping) Add(objectType resource.ObjectType, sourceID int64, targetID int64) {
	if m.tables == nil {
		m.tables = map[resource.ObjectType]map[int64]int64{}
	}
	table, ok := m.tables[objectType]
	if !ok {
		table = map[int64]int64{}
		m.tables[objectType] = table
	}
	table[sourceID] = targetID
}

func (m *Mapping) Get(objectType resource.ObjectType, sourceID int64) (int64, bool) {
	if m == nil {
		return 0, false
	}
	targetID, ok := m.tables[objectType][sourceID]
	return targetID, ok
}

// GetAll returns a copy of the table for objectType.
func (m *Mapping) GetAll(objectType resource.ObjectType) map[int64]int64 {
	snapshot := map[int64]int64{}
	if m == nil {
		return snapshot
	}
	for sourceID, targetID := range m.tables[objectType] {
		snapshot[sourceID] = targetID
	}
	return snapshot
}

// Len counts entries across every type.
func (m *Mapping) Len() int {
	if m == nil {
		return 0
	}
	total := 0
	for _, table := range m.tables {
		total += len(table)
	}
	return total
}

// HasTarget reports whether targetID appears as a value for objectType.
func (m *Mapping) HasTarget(objectType resource.ObjectType, targetID int64) bool {
	if m == nil {
		return false
	}
	for _, candidate := range m.tables[objectType] {
		if candidate == targetID {
			return true
		}
	}
	return false
}

// Validate fails when two source ids of one type share a target id.
func (m *Mapping) Validate() error {
	if m == nil {
		return nil
	}
	for _, objectType := range m.sortedTypes() {
		seen := map[int64]int64{}
		for _, sourceID := range sortedKeys(m.tables[objectType]) {
			targetID := m.tables[objectType][sourceID]
			if previous, exists := seen[targetID]; exists {
				return faults.NewTypedError(
					faults.ConflictError,
					fmt.Sprintf("id mapping is not a bijection: %s %d and %d both map to %d", objectType, previous, sourceID, targetID),
					nil,
				)
			}
			seen[targetID] = sourceID
		}
	}
	return nil
}

// Reverse swaps the organizations and inverts every table.
func (m *Mapping) Reverse() (*Mapping, error) {
	if err := m.Validate(); err != nil {
		return nil, err
	}
	reversed := New(m.TargetOrgID, m.SourceOrgID)
	for objectType, table := range m.tables {
		for sourceID, targetID := range table {
			reversed.Add(objectType, targetID, sourceID)
		}
	}
	return reversed, nil
}

// Normalize orients the mapping so the local side is the source. When one of
// localWorkspaceIDs is only found among the workspace targets, the mapping
// was written from the other side and is reversed.
func (m *Mapping) Normalize(localWorkspaceIDs []int64) (*Mapping, error) {
	if m == nil {
		return nil, faults.NewTypedError(faults.ValidationError, "id mapping is required", nil)
	}
	for _, workspaceID := range localWorkspaceIDs {
		if _, isKey := m.Get(resource.Workspace, workspaceID); isKey {
			return m, nil
		}
	}
	for _, workspaceID := range localWorkspaceIDs {
		if m.HasTarget(resource.Workspace, workspaceID) {
			return m.Reverse()
		}
	}
	return m, nil
}

func (m *Mapping) Save(path string) error {
	if m == nil {
		return faults.NewTypedError(faults.ValidationError, "id mapping is required", nil)
	}

	encoded, err := json.MarshalIndent(fileFormat{
		SourceOrgID: m.SourceOrgID,
		TargetOrgID: m.TargetOrgID,
		Mappings:    m.tables,
	}, "", "  ")
	if err != nil {
		return faults.NewTypedError(faults.InternalError, "failed to encode id mapping", err)
	}
	if err := fsutil.WriteFileAtomic(path, append(encoded, '\n'), 0o644); err != nil {
		return faults.NewTypedError(faults.InternalError, "failed to write id mapping", err)
	}
	return nil
}

func Load(path string) (*Mapping, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("id mapping %q not found", path), err)
		}
		return nil, faults.NewTypedError(faults.InternalError, "failed to read id mapping", err)
	}

	var decoded fileFormat
	if err := json.Unmarshal(data, &decoded); err != nil {
		return nil, faults.NewTypedError(faults.ParseError, fmt.Sprintf("id mapping %q is not valid JSON", path), err)
	}

	mapping := New(decoded.SourceOrgID, decoded.TargetOrgID)
	for objectType, table := range decoded.Mappings {
		if !objectType.Valid() {
			return nil, faults.NewTypedError(faults.ParseError, fmt.Sprintf("id mapping %q has unknown type %q", path, objectType), nil)
		}
		for sourceID, targetID := range table {
			mapping.Add(objectType, sourceID, targetID)
		}
	}
	return mapping, nil
}

func (m *Mapping) sortedTypes() []resource.ObjectType {
	types := make([]resource.ObjectType, 0, len(m.tables))
	for objectType := range m.tables {
		types = append(types, objectType)
	}
	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })
	return types
}

func sortedKeys(table map[int64]int64) []int64 {
	keys := make([]int64, 0, len(table))
	for key := range table {
		keys = append(keys, key)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
