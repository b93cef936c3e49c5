package workspace

import (
	"context"
	"fmt"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/crmarques/rossync/idmap"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/schemacontent"
	"github.com/crmarques/rossync/server"
	"go.opentelemetry.io/otel/attribute"
)

type CopyOptions struct {
	// Target is the destination API. Nil copies inside the workspace's own
	// environment.
	Target server.RemoteAPI
}

// Creation allowlists per type. Foreign keys are added separately after
// being rewritten to target URLs.
var (
	workspaceCreateFields = []string{"name", "metadata", "autopilot"}
	schemaCreateFields    = []string{"name", "content", "metadata"}
	queueCreateFields     = []string{
		"name", "settings", "locale", "automation_enabled", "automation_level",
		"default_score_threshold", "session_timeout", "document_lifetime", "delete_after",
		"training_enabled", "use_confirmed_state", "rir_params", "metadata",
	}
	engineCreateFields = []string{"name", "type", "learning_enabled", "description", "metadata"}
	hookCreateFields   = []string{
		"name", "type", "events", "config", "settings", "sideload", "active",
		"metadata", "description", "token_lifetime_s",
	}
	connectorCreateFields = []string{"name", "service_url", "authorization_type", "params", "asynchronous", "metadata"}
	inboxCreateFields     = []string{
		"name", "bounce_email_to", "bounce_unprocessable_attachments", "bounce_postponed_annotations",
		"bounce_deleted_annotations", "filters", "dmarc_check_action", "metadata",
	}
	emailTemplateCreateFields = []string{"name", "type", "subject", "message", "enabled", "automate", "to", "cc", "bcc"}
	ruleCreateFields          = []string{"name", "enabled", "trigger_condition", "actions", "description", "metadata"}
)

const rossumStoreSource = "rossum_store"

// CopyWorkspace clones one workspace and its closure into targetOrgID.
func (w *Workspace) CopyWorkspace(
	ctx context.Context,
	sourceWorkspaceID int64,
	targetOrgID int64,
	opts CopyOptions,
) (CopyResult, error) {
	if err := w.requireRemote(); err != nil {
		return CopyResult{}, err
	}

	ctx, op := startOperation(
		ctx,
		"copy",
		attribute.Int64("rossync.workspace_id", sourceWorkspaceID),
		attribute.Int64("rossync.target_org_id", targetOrgID),
	)
	root, err := w.Remote.Retrieve(ctx, resource.Workspace, sourceWorkspaceID)
	if err != nil {
		err = fmt.Errorf("retrieve workspace %d: %w", sourceWorkspaceID, err)
		op.finish(err)
		return CopyResult{}, err
	}

	sourceOrgID, ok := refID(root["organization"])
	if !ok {
		sourceOrgID = w.OrgID
	}
	if sourceOrgID <= 0 {
		err := validationError(fmt.Sprintf("workspace %d has no organization; set api.org-id", sourceWorkspaceID), nil)
		op.finish(err)
		return CopyResult{}, err
	}

	result, err := w.copyGraph(ctx, op, []resource.Payload{root}, sourceOrgID, targetOrgID, opts)
	op.finish(err, "created", len(result.Created), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, err
}

// CopyOrg clones every workspace of sourceOrgID and their closure.
func (w *Workspace) CopyOrg(ctx context.Context, sourceOrgID int64, targetOrgID int64, opts CopyOptions) (CopyResult, error) {
	if err := w.requireRemote(); err != nil {
		return CopyResult{}, err
	}

	ctx, op := startOperation(
		ctx,
		"copy",
		attribute.Int64("rossync.org_id", sourceOrgID),
		attribute.Int64("rossync.target_org_id", targetOrgID),
	)
	roots, err := w.Remote.List(ctx, resource.Workspace, map[string]string{
		"organization": strconv.FormatInt(sourceOrgID, 10),
	})
	if err != nil {
		err = fmt.Errorf("list workspaces of organization %d: %w", sourceOrgID, err)
		op.finish(err)
		return CopyResult{}, err
	}

	result, err := w.copyGraph(ctx, op, roots, sourceOrgID, targetOrgID, opts)
	op.finish(err, "created", len(result.Created), "skipped", len(result.Skipped), "failed", len(result.Failed))
	return result, err
}

func (w *Workspace) copyGraph(
	ctx context.Context,
	op *operation,
	roots []resource.Payload,
	sourceOrgID int64,
	targetOrgID int64,
	opts CopyOptions,
) (CopyResult, error) {
	target := opts.Target
	if target == nil {
		target = w.Remote
	}

	mapping := idmap.New(sourceOrgID, targetOrgID)
	c := &copier{
		source:  collectGraph(ctx, w.Remote, roots),
		target:  target,
		mapping: mapping,
		rewrite: urlRewriter{mapping: mapping, baseURL: target.BaseURL()},
		orgURL:  fmt.Sprintf("%s/organizations/%d", strings.TrimRight(target.BaseURL(), "/"), targetOrgID),
		op:      op,
		result: &CopyResult{
			Created:  []MappedObject{},
			Skipped:  []SkippedObject{},
			Failed:   []FailedObject{},
			Warnings: []string{},
			Mapping:  mapping,
		},
	}
	c.result.Failed = append(c.result.Failed, c.source.failed...)

	c.copyWorkspaces(ctx)
	c.copyQueues(ctx)
	c.copyEngines(ctx)
	c.copyHooks(ctx)
	c.copyConnectors(ctx)
	c.copyInboxes(ctx)
	c.copyEmailTemplates(ctx)
	c.copyRules(ctx)

	path := filepath.Join(w.Store.Root(), idmap.FileName(sourceOrgID, targetOrgID))
	if err := mapping.Save(path); err != nil {
		return *c.result, fmt.Errorf("save id mapping: %w", err)
	}
	c.result.MappingPath = path
	return *c.result, nil
}

type copier struct {
	source  *objectGraph
	target  server.RemoteAPI
	mapping *idmap.Mapping
	rewrite urlRewriter
	orgURL  string
	op      *operation
	result  *CopyResult
}

func sourceRef(objectType resource.ObjectType, data resource.Payload) resource.ObjectRef {
	id, _ := resource.IDOf(data)
	return resource.ObjectRef{Type: objectType, ID: id, Name: resource.NameOf(data)}
}

func (c *copier) skip(ref resource.ObjectRef, reason string) {
	c.op.count(string(ref.Type), "skipped")
	c.result.Skipped = append(c.result.Skipped, skipped(ref, reason))
}

func (c *copier) fail(ref resource.ObjectRef, err error) {
	c.op.count(string(ref.Type), "failed")
	c.op.logger.Error(err, "copy failed", "type", ref.Type, "id", ref.ID)
	c.result.Failed = append(c.result.Failed, failed(ref, err))
}

// create issues one create call and registers the new id.
func (c *copier) create(ctx context.Context, ref resource.ObjectRef, payload resource.Payload) (int64, bool) {
	var created resource.Payload
	var err error
	if ref.Type == resource.Inbox {
		created, err = c.target.Request(ctx, http.MethodPost, ref.Type.Collection(), payload)
	} else {
		created, err = c.target.Create(ctx, ref.Type, payload)
	}
	if err != nil {
		c.fail(ref, err)
		return 0, false
	}

	targetID, ok := resource.IDOf(created)
	if !ok {
		c.fail(ref, fmt.Errorf("create response for %s has no id", describe(ref)))
		return 0, false
	}

	c.mapping.Add(ref.Type, ref.ID, targetID)
	c.op.count(string(ref.Type), "created")
	c.op.logger.V(1).Info("object created", "type", ref.Type, "source_id", ref.ID, "target_id", targetID)
	c.result.Created = append(c.result.Created, MappedObject{
		Type:     ref.Type,
		SourceID: ref.ID,
		TargetID: targetID,
		Name:     ref.Name,
	})
	return targetID, true
}

func (c *copier) copyWorkspaces(ctx context.Context) {
	for _, data := range c.source.objects[resource.Workspace] {
		payload := pick(data, workspaceCreateFields...)
		payload["organization"] = c.orgURL
		c.create(ctx, sourceRef(resource.Workspace, data), payload)
	}
}

// copyQueues creates each queue's schema right before the queue itself.
func (c *copier) copyQueues(ctx context.Context) {
	for _, data := range c.source.objects[resource.Queue] {
		ref := sourceRef(resource.Queue, data)

		workspaceURL, ok := c.rewrite.ref(resource.Workspace, data["workspace"])
		if !ok {
			c.skip(ref, "workspace was not copied")
			continue
		}

		schemaID, ok := refID(data["schema"])
		if !ok {
			c.skip(ref, "queue has no schema")
			continue
		}
		if _, mapped := c.mapping.Get(resource.Schema, schemaID); !mapped {
			c.copySchema(ctx, schemaID)
		}
		schemaURL, ok := c.rewrite.ref(resource.Schema, data["schema"])
		if !ok {
			c.skip(ref, "schema was not copied")
			continue
		}

		payload := pick(data, queueCreateFields...)
		payload["workspace"] = workspaceURL
		payload["schema"] = schemaURL
		c.create(ctx, ref, payload)
	}
}

func (c *copier) copySchema(ctx context.Context, schemaID int64) {
	data, ok := c.source.find(resource.Schema, schemaID)
	if !ok {
		return
	}
	payload := schemacontent.CleanPayload(pick(data, schemaCreateFields...))
	c.create(ctx, sourceRef(resource.Schema, data), payload)
}

// copyEngines creates engines, then points the copied queues at them.
func (c *copier) copyEngines(ctx context.Context) {
	for _, data := range c.source.objects[resource.Engine] {
		payload := pick(data, engineCreateFields...)
		if _, present := data["training_queues"]; present {
			payload["training_queues"] = c.rewrite.refs(resource.Queue, data["training_queues"])
		}
		c.create(ctx, sourceRef(resource.Engine, data), payload)
	}

	for _, queue := range c.source.objects[resource.Queue] {
		ref := sourceRef(resource.Queue, queue)
		targetID, ok := c.mapping.Get(resource.Queue, ref.ID)
		if !ok {
			continue
		}

		patch := resource.Payload{}
		for _, field := range []string{"dedicated_engine", "generic_engine"} {
			if engineURL, mapped := c.rewrite.ref(resource.Engine, queue[field]); mapped {
				patch[field] = engineURL
			}
		}
		if len(patch) == 0 {
			continue
		}
		if _, err := c.target.Update(ctx, resource.Queue, targetID, patch); err != nil {
			c.fail(ref, fmt.Errorf("link engine: %w", err))
		}
	}
}

func (c *copier) copyHooks(ctx context.Context) {
	queueIDs := c.mapping.GetAll(resource.Queue)
	for _, data := range c.source.objects[resource.Hook] {
		ref := sourceRef(resource.Hook, data)
		if source, _ := data["extension_source"].(string); source == rossumStoreSource {
			c.skip(ref, "store extensions must be installed from the catalog")
			continue
		}

		queues := c.rewrite.refs(resource.Queue, data["queues"])
		if len(queues) == 0 {
			c.skip(ref, "no queues were copied")
			continue
		}

		payload := pick(data, hookCreateFields...)
		payload["queues"] = queues
		if rewriteHookCode(payload, queueIDs) {
			c.result.Warnings = append(c.result.Warnings, hookCodeWarning(ref))
		}
		c.create(ctx, ref, payload)
	}
}

func (c *copier) copyConnectors(ctx context.Context) {
	for _, data := range c.source.objects[resource.Connector] {
		ref := sourceRef(resource.Connector, data)
		queues := c.rewrite.refs(resource.Queue, data["queues"])
		if len(queues) == 0 {
			c.skip(ref, "no queues were copied")
			continue
		}

		payload := pick(data, connectorCreateFields...)
		payload["queues"] = queues
		c.create(ctx, ref, payload)
	}
}

// copyInboxes derives a fresh email prefix from the source address and the
// target queue id; inbox addresses are unique across the platform.
func (c *copier) copyInboxes(ctx context.Context) {
	for _, data := range c.source.objects[resource.Inbox] {
		ref := sourceRef(resource.Inbox, data)

		sourceQueues := data["queues"]
		if _, present := data["queues"]; !present {
			sourceQueues = []any{data["queue"]}
		}
		queues := c.rewrite.refs(resource.Queue, sourceQueues)
		if len(queues) == 0 {
			c.skip(ref, "no queues were copied")
			continue
		}
		targetQueueID, err := resource.IDFromURL(queues[0].(string))
		if err != nil {
			c.fail(ref, err)
			continue
		}

		payload := pick(data, inboxCreateFields...)
		payload["queues"] = queues
		payload["email_prefix"] = inboxEmailPrefix(data, targetQueueID)
		c.create(ctx, ref, payload)
	}
}

func inboxEmailPrefix(data resource.Payload, targetQueueID int64) string {
	email, _ := data["email"].(string)
	localPart, _, _ := strings.Cut(strings.TrimSpace(email), "@")
	if localPart == "" {
		localPart = "inbox"
	}
	return fmt.Sprintf("%s-%d", localPart, targetQueueID)
}

func (c *copier) copyEmailTemplates(ctx context.Context) {
	for _, data := range c.source.objects[resource.EmailTemplate] {
		ref := sourceRef(resource.EmailTemplate, data)
		queueURL, ok := c.rewrite.ref(resource.Queue, data["queue"])
		if !ok {
			c.skip(ref, "queue was not copied")
			continue
		}

		payload := pick(data, emailTemplateCreateFields...)
		payload["queue"] = queueURL
		c.create(ctx, ref, payload)
	}
}

func (c *copier) copyRules(ctx context.Context) {
	for _, data := range c.source.objects[resource.Rule] {
		ref := sourceRef(resource.Rule, data)
		schemaURL, ok := c.rewrite.ref(resource.Schema, data["schema"])
		if !ok {
			c.skip(ref, "schema was not copied")
			continue
		}

		payload := pick(data, ruleCreateFields...)
		payload["schema"] = schemaURL
		c.create(ctx, ref, payload)
	}
}

func hookCodeWarning(ref resource.ObjectRef) string {
	return fmt.Sprintf(
		"hook %d (%s): queue ids in config.code were rewritten by substring replacement; review the code",
		ref.ID,
		ref.Name,
	)
}
