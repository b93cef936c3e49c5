package mcpserver

import (
	"context"
	"errors"
	"sort"
	"testing"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/internal/providers/repository/fsstore"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server/servertest"
	"github.com/crmarques/rossync/workspace"
	"github.com/modelcontextprotocol/go-sdk/mcp"
)

const testBaseURL = "https://source.example.com/api/v1"

func newTestTools(t *testing.T) (*Tools, *servertest.FakeRemote) {
	t.Helper()

	remote := servertest.NewFakeRemote(testBaseURL, 0)
	remote.Put(resource.Workspace, 1, resource.Payload{
		"name":         "Main",
		"organization": testBaseURL + "/organizations/1",
	})
	remote.Put(resource.Schema, 50, resource.Payload{"name": "Invoice schema", "content": []any{}})
	remote.Put(resource.Queue, 100, resource.Payload{
		"name":      "Inbound",
		"workspace": remote.URL(resource.Workspace, 1),
		"schema":    remote.URL(resource.Schema, 50),
	})

	ws := &workspace.Workspace{
		Store:  fsstore.NewLocalObjectStore(t.TempDir()),
		Remote: remote,
		OrgID:  1,
	}
	open := func(_ context.Context, name string) (*workspace.Workspace, config.Context, error) {
		if name != "" && name != "dev" {
			return nil, config.Context{}, faults.NewTypedError(faults.NotFoundError, "context not found", nil)
		}
		return ws, config.Context{Name: "dev"}, nil
	}
	return &Tools{open: open}, remote
}

func TestPullDiffAndListObjects(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tools, _ := newTestTools(t)

	_, listed, err := tools.ListObjects(ctx, &mcp.CallToolRequest{}, ListObjectsInput{})
	if err != nil {
		t.Fatalf("ListObjects returned error: %v", err)
	}
	if len(listed.Objects) != 0 {
		t.Fatalf("expected empty snapshot before pull, got %#v", listed.Objects)
	}

	_, pulled, err := tools.Pull(ctx, &mcp.CallToolRequest{}, PullInput{})
	if err != nil {
		t.Fatalf("Pull returned error: %v", err)
	}
	if len(pulled.Pulled) != 3 || len(pulled.Failed) != 0 {
		t.Fatalf("expected workspace, schema and queue pulled, got %#v", pulled)
	}

	_, queues, err := tools.ListObjects(ctx, &mcp.CallToolRequest{}, ListObjectsInput{Type: "queues", IncludeData: true})
	if err != nil {
		t.Fatalf("ListObjects returned error: %v", err)
	}
	if len(queues.Objects) != 1 || queues.Objects[0].ID != 100 || queues.Objects[0].Data["name"] != "Inbound" {
		t.Fatalf("unexpected queue listing %#v", queues.Objects)
	}

	_, changed, err := tools.Diff(ctx, &mcp.CallToolRequest{}, DiffInput{})
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}
	if len(changed.Objects) != 0 {
		t.Fatalf("expected no changes right after pull, got %#v", changed.Objects)
	}

	_, all, err := tools.Diff(ctx, &mcp.CallToolRequest{}, DiffInput{All: true})
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}
	if len(all.Objects) != 3 {
		t.Fatalf("expected three unchanged objects, got %#v", all.Objects)
	}
	for _, entry := range all.Objects {
		if entry.Status != string(workspace.StatusUnchanged) || entry.ChangedFields == nil {
			t.Fatalf("unexpected diff entry %#v", entry)
		}
	}
}

func TestPushWithoutConfirmIsDryRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tools, remote := newTestTools(t)
	if _, _, err := tools.Pull(ctx, &mcp.CallToolRequest{}, PullInput{WorkspaceID: 1}); err != nil {
		t.Fatalf("Pull returned error: %v", err)
	}

	_, result, err := tools.Push(ctx, &mcp.CallToolRequest{}, PushInput{})
	if err != nil {
		t.Fatalf("Push returned error: %v", err)
	}
	if !result.DryRun {
		t.Fatal("expected push without confirm to be a dry run")
	}
	if calls := remote.Calls(); len(calls) != 0 {
		t.Fatalf("expected no remote writes, got %#v", calls)
	}
}

func TestToolInputValidation(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tools, _ := newTestTools(t)

	_, _, err := tools.Deploy(ctx, &mcp.CallToolRequest{}, DeployInput{})
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError without target, got %v", err)
	}

	_, _, err = tools.Diff(ctx, &mcp.CallToolRequest{}, DiffInput{Context: "prod"})
	if !faults.IsCategory(err, faults.NotFoundError) {
		t.Fatalf("expected NotFoundError for unknown context, got %v", err)
	}

	_, _, err = tools.ListObjects(ctx, &mcp.CallToolRequest{}, ListObjectsInput{Type: "invoice"})
	if !faults.IsCategory(err, faults.ValidationError) {
		t.Fatalf("expected ValidationError for unknown type, got %v", err)
	}

	_, _, err = (&Tools{}).ListObjects(ctx, &mcp.CallToolRequest{}, ListObjectsInput{})
	var typedErr *faults.TypedError
	if !errors.As(err, &typedErr) || typedErr.Category != faults.ValidationError {
		t.Fatalf("expected ValidationError without opener, got %v", err)
	}
}

func TestNewServerRegistersTools(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	tools, _ := newTestTools(t)
	server := NewServer(tools.open, "test")

	serverTransport, clientTransport := mcp.NewInMemoryTransports()
	serverSession, err := server.Connect(ctx, serverTransport, nil)
	if err != nil {
		t.Fatalf("server connect: %v", err)
	}
	defer serverSession.Close()

	client := mcp.NewClient(&mcp.Implementation{Name: "test-client", Version: "test"}, nil)
	session, err := client.Connect(ctx, clientTransport, nil)
	if err != nil {
		t.Fatalf("client connect: %v", err)
	}
	defer session.Close()

	listed, err := session.ListTools(ctx, nil)
	if err != nil {
		t.Fatalf("ListTools returned error: %v", err)
	}
	names := make([]string, 0, len(listed.Tools))
	for _, tool := range listed.Tools {
		names = append(names, tool.Name)
	}
	sort.Strings(names)

	want := []string{"deploy", "diff", "list_objects", "pull", "push"}
	if len(names) != len(want) {
		t.Fatalf("expected tools %v, got %v", want, names)
	}
	for idx := range want {
		if names[idx] != want[idx] {
			t.Fatalf("expected tools %v, got %v", want, names)
		}
	}
}
