package workspace

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/idmap"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server"
	"go.opentelemetry.io/otel/attribute"
)

type DeployOptions struct {
	// Target is the destination API. Nil deploys through the workspace's
	// own client.
	Target server.RemoteAPI
	// TargetBaseURL overrides the base used to build foreign-key URLs;
	// empty uses Target.BaseURL().
	TargetBaseURL string
	// Mapping is used as given instead of the persisted mapping file.
	Mapping *idmap.Mapping
	DryRun  bool
}

// Deploy applies the local snapshot to already mapped objects of another
// environment. It never creates objects.
func (w *Workspace) Deploy(ctx context.Context, targetOrgID int64, opts DeployOptions) (DeployResult, error) {
	if err := w.requireStore(); err != nil {
		return DeployResult{}, err
	}

	target := opts.Target
	if target == nil {
		target = w.Remote
	}
	if target == nil && !opts.DryRun {
		return DeployResult{}, validationError("deploy target api is not configured", nil)
	}

	sourceOrgID, err := w.SourceOrgID(ctx)
	if err != nil {
		return DeployResult{}, err
	}

	mapping, err := w.deployMapping(ctx, sourceOrgID, targetOrgID, opts.Mapping)
	if err != nil {
		return DeployResult{}, err
	}

	baseURL := opts.TargetBaseURL
	if baseURL == "" && target != nil {
		baseURL = target.BaseURL()
	}

	ctx, op := startOperation(
		ctx,
		"deploy",
		attribute.Int64("rossync.org_id", sourceOrgID),
		attribute.Int64("rossync.target_org_id", targetOrgID),
		attribute.Bool("rossync.dry_run", opts.DryRun),
	)

	result := DeployResult{
		DryRun:   opts.DryRun,
		Updated:  []MappedObject{},
		Skipped:  []SkippedObject{},
		Failed:   []FailedObject{},
		Warnings: []string{},
	}
	rewrite := urlRewriter{mapping: mapping, baseURL: baseURL}
	queueIDs := mapping.GetAll(resource.Queue)

	for _, objectType := range resource.AllTypes {
		if !objectType.Pushable() {
			continue
		}
		objects, err := w.loadAll(ctx, objectType)
		if err != nil {
			op.finish(err)
			return result, err
		}

		for _, stored := range objects {
			ref := stored.ref()
			targetID, ok := mapping.Get(objectType, ref.ID)
			if !ok {
				op.count(string(objectType), "skipped")
				result.Skipped = append(result.Skipped, skipped(ref, "no target mapping"))
				continue
			}

			payload, codeRewritten := deployPayload(objectType, stored.object.Data, rewrite, queueIDs)
			if codeRewritten {
				result.Warnings = append(result.Warnings, hookCodeWarning(ref))
			}

			deployed := MappedObject{Type: objectType, SourceID: ref.ID, TargetID: targetID, Name: ref.Name}
			if opts.DryRun {
				op.count(string(objectType), "dry_run")
				result.Updated = append(result.Updated, deployed)
				continue
			}

			if err := updateRemote(ctx, target, objectType, targetID, payload); err != nil {
				op.count(string(objectType), "failed")
				op.logger.Error(err, "deploy failed", "type", objectType, "id", ref.ID, "target_id", targetID)
				result.Failed = append(result.Failed, failed(ref, err))
				continue
			}
			op.count(string(objectType), "updated")
			result.Updated = append(result.Updated, deployed)
		}
	}

	op.finish(nil, "updated", len(result.Updated), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, nil
}

// Mapping loads the persisted id mapping between the snapshot's organization
// and targetOrgID, oriented so local ids are the keys.
func (w *Workspace) Mapping(ctx context.Context, targetOrgID int64) (*idmap.Mapping, error) {
	if err := w.requireStore(); err != nil {
		return nil, err
	}
	sourceOrgID, err := w.SourceOrgID(ctx)
	if err != nil {
		return nil, err
	}
	return w.deployMapping(ctx, sourceOrgID, targetOrgID, nil)
}

// deployMapping returns supplied, else the forward mapping file, else the
// reverse one, oriented so local ids are the keys.
func (w *Workspace) deployMapping(
	ctx context.Context,
	sourceOrgID int64,
	targetOrgID int64,
	supplied *idmap.Mapping,
) (*idmap.Mapping, error) {
	mapping := supplied
	if mapping == nil {
		loaded, err := w.loadMapping(sourceOrgID, targetOrgID)
		if err != nil {
			return nil, err
		}
		mapping = loaded
	}

	workspaceIDs, err := w.localWorkspaceIDs(ctx)
	if err != nil {
		return nil, err
	}
	return mapping.Normalize(workspaceIDs)
}

func (w *Workspace) loadMapping(sourceOrgID int64, targetOrgID int64) (*idmap.Mapping, error) {
	candidates := []string{
		filepath.Join(w.Store.Root(), idmap.FileName(sourceOrgID, targetOrgID)),
		filepath.Join(w.Store.Root(), idmap.FileName(targetOrgID, sourceOrgID)),
	}
	for _, path := range candidates {
		mapping, err := idmap.Load(path)
		if err == nil {
			return mapping, nil
		}
		if !faults.IsCategory(err, faults.NotFoundError) {
			return nil, err
		}
	}
	return nil, notFoundError(
		fmt.Sprintf("no id mapping between organizations %d and %d; run copy first", sourceOrgID, targetOrgID),
		nil,
	)
}

// deployPayload builds the update body for a mapped object: ignored fields
// removed and foreign keys rewritten to the target environment.
func deployPayload(
	objectType resource.ObjectType,
	data resource.Payload,
	rewrite urlRewriter,
	queueIDs map[int64]int64,
) (resource.Payload, bool) {
	payload := updatePayload(objectType, data)
	codeRewritten := false

	switch objectType {
	case resource.Queue:
		delete(payload, "inbox")
		rewrite.setRef(payload, "workspace", resource.Workspace)
		rewrite.setRef(payload, "schema", resource.Schema)
		rewrite.setRef(payload, "dedicated_engine", resource.Engine)
		rewrite.setRef(payload, "generic_engine", resource.Engine)
	case resource.Hook:
		rewrite.setRefs(payload, "queues", resource.Queue)
		rewrite.setRefs(payload, "run_after", resource.Hook)
		codeRewritten = rewriteHookCode(payload, queueIDs)
	case resource.Connector:
		rewrite.setRefs(payload, "queues", resource.Queue)
	case resource.Engine:
		rewrite.setRefs(payload, "training_queues", resource.Queue)
	case resource.EmailTemplate:
		rewrite.setRef(payload, "queue", resource.Queue)
	case resource.Rule:
		rewrite.setRef(payload, "schema", resource.Schema)
	}
	return payload, codeRewritten
}
