package mcpserver

import (
	"context"
	"fmt"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

type Tools struct {
	open Opener
}

type PullInput struct {
	Context     string `json:"context,omitempty" jsonschema:"Context name; empty uses the current context"`
	WorkspaceID int64  `json:"workspace_id,omitempty" jsonschema:"Pull only this workspace and its dependencies"`
	OrgID       int64  `json:"org_id,omitempty" jsonschema:"Organization to pull; defaults to the context's api.org-id"`
	Commit      bool   `json:"commit,omitempty" jsonschema:"Commit the pulled snapshot to the workspace git repository"`
}

type DiffInput struct {
	Context string `json:"context,omitempty" jsonschema:"Context name; empty uses the current context"`
	All     bool   `json:"all,omitempty" jsonschema:"Include unchanged objects"`
}

type DiffEntry struct {
	Type          string   `json:"type"`
	ID            int64    `json:"id"`
	Name          string   `json:"name"`
	Status        string   `json:"status"`
	ChangedFields []string `json:"changed_fields"`
	Path          string   `json:"path"`
	Error         string   `json:"error,omitempty"`
}

type DiffOutput struct {
	Objects []DiffEntry `json:"objects"`
}

type PushInput struct {
	Context string `json:"context,omitempty" jsonschema:"Context name; empty uses the current context"`
	Force   bool   `json:"force,omitempty" jsonschema:"Overwrite conflicting and remotely modified objects"`
	Confirm bool   `json:"confirm,omitempty" jsonschema:"Apply the push; without it nothing is written"`
}

type DeployInput struct {
	Context     string `json:"context,omitempty" jsonschema:"Source context name; empty uses the current context"`
	Target      string `json:"target" jsonschema:"Target context name"`
	TargetOrgID int64  `json:"target_org_id,omitempty" jsonschema:"Target organization; defaults to the target context's api.org-id"`
	Confirm     bool   `json:"confirm,omitempty" jsonschema:"Apply the deploy; without it nothing is written"`
}

type ListObjectsInput struct {
	Context     string `json:"context,omitempty" jsonschema:"Context name; empty uses the current context"`
	Type        string `json:"type,omitempty" jsonschema:"Object type such as queue or hook; empty lists every type"`
	IncludeData bool   `json:"include_data,omitempty" jsonschema:"Include the stored object bodies"`
}

type ObjectEntry struct {
	Type string         `json:"type"`
	ID   int64          `json:"id"`
	Name string         `json:"name"`
	Path string         `json:"path"`
	Data map[string]any `json:"data,omitempty"`
}

type ListObjectsOutput struct {
	Objects []ObjectEntry `json:"objects"`
}

func (t *Tools) Pull(ctx context.Context, _ *mcp.CallToolRequest, input PullInput) (*mcp.CallToolResult, workspace.PullResult, error) {
	ws, resolved, err := t.openRemote(ctx, input.Context)
	if err != nil {
		return nil, workspace.PullResult{}, err
	}

	opts := workspace.PullOptions{Commit: input.Commit || resolved.Workspace.GitCommit}
	if input.WorkspaceID > 0 {
		result, err := ws.PullWorkspace(ctx, input.WorkspaceID, opts)
		return nil, result, err
	}

	orgID := input.OrgID
	if orgID == 0 {
		orgID = ws.OrgID
	}
	if orgID <= 0 {
		return nil, workspace.PullResult{}, validationError("org_id is required when the context has no api.org-id")
	}
	result, err := ws.Pull(ctx, orgID, opts)
	return nil, result, err
}

func (t *Tools) Diff(ctx context.Context, _ *mcp.CallToolRequest, input DiffInput) (*mcp.CallToolResult, DiffOutput, error) {
	ws, _, err := t.openRemote(ctx, input.Context)
	if err != nil {
		return nil, DiffOutput{}, err
	}

	diffs, err := ws.Diff(ctx)
	if err != nil {
		return nil, DiffOutput{}, err
	}

	output := DiffOutput{Objects: []DiffEntry{}}
	for _, item := range diffs {
		if !input.All && item.Status == workspace.StatusUnchanged {
			continue
		}
		changed := item.ChangedFields
		if changed == nil {
			changed = []string{}
		}
		output.Objects = append(output.Objects, DiffEntry{
			Type:          string(item.ObjectType),
			ID:            item.ObjectID,
			Name:          item.Name,
			Status:        string(item.Status),
			ChangedFields: changed,
			Path:          item.Path,
			Error:         item.Error,
		})
	}
	return nil, output, nil
}

func (t *Tools) Push(ctx context.Context, _ *mcp.CallToolRequest, input PushInput) (*mcp.CallToolResult, workspace.PushResult, error) {
	ws, _, err := t.openRemote(ctx, input.Context)
	if err != nil {
		return nil, workspace.PushResult{}, err
	}

	result, err := ws.Push(ctx, workspace.PushOptions{DryRun: !input.Confirm, Force: input.Force})
	return nil, result, err
}

func (t *Tools) Deploy(ctx context.Context, _ *mcp.CallToolRequest, input DeployInput) (*mcp.CallToolResult, workspace.DeployResult, error) {
	if input.Target == "" {
		return nil, workspace.DeployResult{}, validationError("target is required")
	}

	source, _, err := t.openWorkspace(ctx, input.Context)
	if err != nil {
		return nil, workspace.DeployResult{}, err
	}
	target, targetContext, err := t.openWorkspace(ctx, input.Target)
	if err != nil {
		return nil, workspace.DeployResult{}, err
	}

	orgID := input.TargetOrgID
	if orgID == 0 && targetContext.API != nil {
		orgID = targetContext.API.OrgID
	}
	if orgID <= 0 {
		return nil, workspace.DeployResult{}, validationError("target_org_id is required when the target context has no api.org-id")
	}
	if target.Remote == nil && input.Confirm {
		return nil, workspace.DeployResult{}, validationError(fmt.Sprintf("context %q has no api settings", targetContext.Name))
	}

	result, err := source.Deploy(ctx, orgID, workspace.DeployOptions{Target: target.Remote, DryRun: !input.Confirm})
	return nil, result, err
}

func (t *Tools) ListObjects(ctx context.Context, _ *mcp.CallToolRequest, input ListObjectsInput) (*mcp.CallToolResult, ListObjectsOutput, error) {
	ws, _, err := t.openWorkspace(ctx, input.Context)
	if err != nil {
		return nil, ListObjectsOutput{}, err
	}

	types := resource.AllTypes
	if input.Type != "" {
		objectType, err := resource.ParseObjectType(input.Type)
		if err != nil {
			return nil, ListObjectsOutput{}, err
		}
		types = []resource.ObjectType{objectType}
	}

	output := ListObjectsOutput{Objects: []ObjectEntry{}}
	for _, objectType := range types {
		paths, err := ws.Store.ListLocalObjects(ctx, objectType)
		if err != nil {
			return nil, ListObjectsOutput{}, err
		}
		for _, path := range paths {
			object, err := ws.Store.LoadObject(ctx, path)
			if err != nil {
				return nil, ListObjectsOutput{}, err
			}
			entry := ObjectEntry{
				Type: string(objectType),
				ID:   object.Meta.ObjectID,
				Name: object.Name(),
				Path: path,
			}
			if input.IncludeData {
				entry.Data = object.Data
			}
			output.Objects = append(output.Objects, entry)
		}
	}
	return nil, output, nil
}

func (t *Tools) openRemote(ctx context.Context, name string) (*workspace.Workspace, config.Context, error) {
	ws, resolved, err := t.openWorkspace(ctx, name)
	if err != nil {
		return nil, config.Context{}, err
	}
	if ws.Remote == nil {
		return nil, config.Context{}, validationError(fmt.Sprintf("context %q has no api settings", resolved.Name))
	}
	return ws, resolved, nil
}

func (t *Tools) openWorkspace(ctx context.Context, name string) (*workspace.Workspace, config.Context, error) {
	if t.open == nil {
		return nil, config.Context{}, validationError("workspace bootstrap is not configured")
	}
	return t.open(ctx, name)
}

func validationError(message string) error {
	return faults.NewTypedError(faults.ValidationError, message, nil)
}
