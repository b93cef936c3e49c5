package workspace

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crmarques/rossync/idmap"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server/servertest"
)

func TestCopyWorkspaceCreatesGraphInTarget(t *testing.T) {
	t.Parallel()

	source := seedSource()
	target := servertest.NewFakeRemote(targetBaseURL, 5000)
	ws, store := newTestWorkspace(t, source)
	ctx := context.Background()

	result, err := ws.CopyWorkspace(ctx, 1, 2, CopyOptions{Target: target})
	if err != nil {
		t.Fatalf("CopyWorkspace returned error: %v", err)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("expected no failures, got %#v", result.Failed)
	}

	mapping := result.Mapping
	if mapping.SourceOrgID != 1 || mapping.TargetOrgID != 2 {
		t.Fatalf("unexpected mapping orgs %d -> %d", mapping.SourceOrgID, mapping.TargetOrgID)
	}
	if err := mapping.Validate(); err != nil {
		t.Fatalf("expected bijective mapping, got %v", err)
	}
	for _, objectType := range []resource.ObjectType{
		resource.Workspace, resource.Schema, resource.Queue, resource.Engine, resource.Hook,
		resource.Connector, resource.Inbox, resource.EmailTemplate, resource.Rule,
	} {
		if got := target.Count(objectType); got != 1 {
			t.Fatalf("expected one %s in target, got %d", objectType, got)
		}
	}

	targetQueueID, _ := mapping.Get(resource.Queue, 100)
	targetSchemaID, _ := mapping.Get(resource.Schema, 50)
	targetEngineID, _ := mapping.Get(resource.Engine, 70)
	queue, _ := target.Get(resource.Queue, targetQueueID)
	if queue["schema"] != target.URL(resource.Schema, targetSchemaID) {
		t.Fatalf("expected queue to reference copied schema, got %#v", queue["schema"])
	}
	if queue["dedicated_engine"] != target.URL(resource.Engine, targetEngineID) {
		t.Fatalf("expected queue to be linked to copied engine, got %#v", queue["dedicated_engine"])
	}
	if _, present := queue["inbox"]; present {
		t.Fatalf("expected inbox link to be left to inbox creation, got %#v", queue["inbox"])
	}

	workspace, _ := target.Get(resource.Workspace, mustMapped(t, mapping, resource.Workspace, 1))
	if workspace["organization"] != orgURL(targetBaseURL, 2) {
		t.Fatalf("expected workspace in target org, got %#v", workspace["organization"])
	}

	if len(result.Skipped) != 1 || result.Skipped[0].ID != 81 {
		t.Fatalf("expected the store hook to be skipped, got %#v", result.Skipped)
	}

	hook, _ := target.Get(resource.Hook, mustMapped(t, mapping, resource.Hook, 80))
	code := hook["config"].(map[string]any)["code"].(string)
	if !strings.Contains(code, "queue_id == "+itoa(targetQueueID)) {
		t.Fatalf("expected queue id in hook code to be rewritten, got %q", code)
	}
	if len(result.Warnings) != 1 || !strings.Contains(result.Warnings[0], "hook 80") {
		t.Fatalf("expected one hook code warning, got %#v", result.Warnings)
	}

	inbox, _ := target.Get(resource.Inbox, mustMapped(t, mapping, resource.Inbox, 60))
	if inbox["email_prefix"] != "acme-invoices-"+itoa(targetQueueID) {
		t.Fatalf("unexpected inbox email prefix %#v", inbox["email_prefix"])
	}
	if _, present := inbox["email"]; present {
		t.Fatalf("expected source email not to be copied, got %#v", inbox["email"])
	}

	saved, err := idmap.Load(filepath.Join(store.Root(), idmap.FileName(1, 2)))
	if err != nil {
		t.Fatalf("expected mapping file to be saved: %v", err)
	}
	if got, _ := saved.Get(resource.Queue, 100); got != targetQueueID {
		t.Fatalf("expected persisted queue mapping %d, got %d", targetQueueID, got)
	}
	if result.MappingPath != filepath.Join(store.Root(), idmap.FileName(1, 2)) {
		t.Fatalf("unexpected mapping path %q", result.MappingPath)
	}
	if len(source.Calls()) != 0 {
		t.Fatalf("expected no writes against the source, got %#v", source.Calls())
	}
}

func TestCopyFailuresAreIsolatedAndMappingIsStillSaved(t *testing.T) {
	t.Parallel()

	source := seedSource()
	target := servertest.NewFakeRemote(targetBaseURL, 5000)
	target.Failures["schema/create"] = errSchemaRejected
	ws, store := newTestWorkspace(t, source)

	result, err := ws.CopyWorkspace(context.Background(), 1, 2, CopyOptions{Target: target})
	if err != nil {
		t.Fatalf("CopyWorkspace returned error: %v", err)
	}

	if len(result.Failed) != 1 || result.Failed[0].Type != resource.Schema {
		t.Fatalf("expected schema create failure, got %#v", result.Failed)
	}
	reasons := map[resource.ObjectType]string{}
	for _, item := range result.Skipped {
		reasons[item.Type] = item.Reason
	}
	if reasons[resource.Queue] != "schema was not copied" {
		t.Fatalf("expected queue skip, got %#v", result.Skipped)
	}
	if reasons[resource.Rule] != "schema was not copied" {
		t.Fatalf("expected rule skip, got %#v", result.Skipped)
	}
	if reasons[resource.EmailTemplate] != "queue was not copied" {
		t.Fatalf("expected email template skip, got %#v", result.Skipped)
	}
	if target.Count(resource.Workspace) != 1 {
		t.Fatal("expected the workspace to be created before the failure")
	}
	if _, err := os.Stat(filepath.Join(store.Root(), idmap.FileName(1, 2))); err != nil {
		t.Fatalf("expected mapping file despite failures: %v", err)
	}
}

func TestCopyOrgProducesBijectiveMapping(t *testing.T) {
	t.Parallel()

	source := seedSource()
	target := servertest.NewFakeRemote(targetBaseURL, 7000)
	ws, _ := newTestWorkspace(t, source)

	result, err := ws.CopyOrg(context.Background(), 1, 2, CopyOptions{Target: target})
	if err != nil {
		t.Fatalf("CopyOrg returned error: %v", err)
	}
	if err := result.Mapping.Validate(); err != nil {
		t.Fatalf("expected bijective mapping, got %v", err)
	}
	if got := target.Count(resource.Workspace); got != 2 {
		t.Fatalf("expected both org workspaces copied, got %d", got)
	}

	seen := map[resource.ObjectType]map[int64]bool{}
	for _, created := range result.Created {
		if seen[created.Type] == nil {
			seen[created.Type] = map[int64]bool{}
		}
		if seen[created.Type][created.TargetID] {
			t.Fatalf("target id %d reused for %s", created.TargetID, created.Type)
		}
		seen[created.Type][created.TargetID] = true
	}
	if len(target.CallsFor(http.MethodPatch, resource.Queue)) != 1 {
		t.Fatalf("expected one engine link update, got %#v", target.CallsFor(http.MethodPatch, resource.Queue))
	}
}

func TestRewriteHookCodeReplacesEachIDInTurn(t *testing.T) {
	t.Parallel()

	data := resource.Payload{"config": map[string]any{"code": "ids = [100, 1001, 7]"}}
	changed := rewriteHookCode(data, map[int64]int64{100: 5, 1001: 9, 7: 7})
	if !changed {
		t.Fatal("expected code to change")
	}
	// 1001 contains 100 and is rewritten by that replacement first.
	if got := data["config"].(map[string]any)["code"]; got != "ids = [5, 51, 7]" {
		t.Fatalf("unexpected rewritten code %q", got)
	}

	chained := resource.Payload{"config": map[string]any{"code": "queue = 1"}}
	if !rewriteHookCode(chained, map[int64]int64{1: 2, 2: 3}) {
		t.Fatal("expected chained code to change")
	}
	if got := chained["config"].(map[string]any)["code"]; got != "queue = 3" {
		t.Fatalf("expected replacements to apply in sequence, got %q", got)
	}

	unchanged := resource.Payload{"config": map[string]any{"code": "return 1"}}
	if rewriteHookCode(unchanged, map[int64]int64{100: 5}) {
		t.Fatal("expected code without queue ids to stay unchanged")
	}
}
