package workspace

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"

	gitrepo "github.com/crmarques/rossync/internal/providers/repository/git"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server"
)

func TestPullWorkspaceKeepsOnlyTheClosure(t *testing.T) {
	t.Parallel()

	remote := seedSource()
	ws, store := newTestWorkspace(t, remote)

	result, err := ws.PullWorkspace(context.Background(), 1, PullOptions{})
	if err != nil {
		t.Fatalf("PullWorkspace returned error: %v", err)
	}
	if len(result.Failed) != 0 {
		t.Fatalf("expected no failures, got %#v", result.Failed)
	}

	expected := map[resource.ObjectType][]int64{
		resource.Workspace:     {1},
		resource.Queue:         {100},
		resource.Schema:        {50},
		resource.Inbox:         {60},
		resource.Hook:          {80, 81},
		resource.Connector:     {90},
		resource.Engine:        {70},
		resource.EmailTemplate: {40},
		resource.Rule:          {30},
	}
	for objectType, ids := range expected {
		if got := localIDs(t, store, objectType); !reflect.DeepEqual(got, ids) {
			t.Fatalf("expected %s ids %v, got %v", objectType, ids, got)
		}
	}
	if len(result.Pulled) != 10 {
		t.Fatalf("expected 10 pulled objects, got %d", len(result.Pulled))
	}
}

func TestPullWorkspaceRetrievesOnlyReferencedSchema(t *testing.T) {
	t.Parallel()

	remote := seedSource()
	ws, store := newTestWorkspace(t, remote)

	if _, err := ws.PullWorkspace(context.Background(), 1, PullOptions{}); err != nil {
		t.Fatalf("PullWorkspace returned error: %v", err)
	}

	path, err := store.FindObjectPath(context.Background(), resource.Schema, 50)
	if err != nil || path == "" {
		t.Fatalf("expected schema 50 to be saved, got %q, %v", path, err)
	}
	object, err := store.LoadObject(context.Background(), path)
	if err != nil {
		t.Fatalf("LoadObject returned error: %v", err)
	}
	if object.Meta.RemoteModifiedAt == nil || object.Meta.RemoteModifiedAt.Format("2006-01-02") != "2024-03-01" {
		t.Fatalf("expected remote modified_at to be stored, got %v", object.Meta.RemoteModifiedAt)
	}
	if other, _ := store.FindObjectPath(context.Background(), resource.Schema, 51); other != "" {
		t.Fatalf("expected schema 51 to be left out, found %q", other)
	}
}

func TestPullByOrganizationFiltersWorkspaces(t *testing.T) {
	t.Parallel()

	remote := seedSource()
	ws, store := newTestWorkspace(t, remote)

	if _, err := ws.Pull(context.Background(), 1, PullOptions{}); err != nil {
		t.Fatalf("Pull returned error: %v", err)
	}
	if got := localIDs(t, store, resource.Workspace); !reflect.DeepEqual(got, []int64{1, 2}) {
		t.Fatalf("expected workspaces [1 2], got %v", got)
	}
	if got := localIDs(t, store, resource.Queue); !reflect.DeepEqual(got, []int64{100}) {
		t.Fatalf("expected queue [100], got %v", got)
	}
}

func TestPullRecordsDependentListFailures(t *testing.T) {
	t.Parallel()

	remote := seedSource()
	remote.Failures["hook/list"] = errors.New("hooks unavailable")
	ws, store := newTestWorkspace(t, remote)

	result, err := ws.PullWorkspace(context.Background(), 1, PullOptions{})
	if err != nil {
		t.Fatalf("PullWorkspace returned error: %v", err)
	}
	if len(result.Failed) != 1 || result.Failed[0].Type != resource.Hook {
		t.Fatalf("expected one hook failure, got %#v", result.Failed)
	}
	if got := localIDs(t, store, resource.Hook); len(got) != 0 {
		t.Fatalf("expected no hooks saved, got %v", got)
	}
	if got := localIDs(t, store, resource.Rule); !reflect.DeepEqual(got, []int64{30}) {
		t.Fatalf("expected closure to continue past the failure, got rules %v", got)
	}
}

func TestPullNamesMalformedListResponses(t *testing.T) {
	t.Parallel()

	remote := seedSource()
	remote.Failures["connector/list"] = server.NewListPayloadShapeError("list response results must be an array", nil)
	ws, _ := newTestWorkspace(t, remote)

	result, err := ws.PullWorkspace(context.Background(), 1, PullOptions{})
	if err != nil {
		t.Fatalf("PullWorkspace returned error: %v", err)
	}
	if len(result.Failed) != 1 || result.Failed[0].Type != resource.Connector {
		t.Fatalf("expected one connector failure, got %#v", result.Failed)
	}
	if got := result.Failed[0].Error; !strings.Contains(got, "malformed connectors list response") {
		t.Fatalf("expected the collection to be named, got %q", got)
	}
}

func TestPullRootFailureIsReturned(t *testing.T) {
	t.Parallel()

	remote := seedSource()
	ws, _ := newTestWorkspace(t, remote)

	if _, err := ws.PullWorkspace(context.Background(), 404, PullOptions{}); err == nil {
		t.Fatal("expected error for a missing root workspace")
	}
}

func TestPullCommitThenLocalEditIsDetected(t *testing.T) {
	t.Parallel()

	remote := seedSource()
	ws, store := newTestWorkspace(t, remote)
	repo := gitrepo.NewWorktreeRepository(store.Root(), true)
	ws.Changes = repo
	ws.Snapshots = repo
	ctx := context.Background()

	result, err := ws.PullWorkspace(ctx, 1, PullOptions{Commit: true})
	if err != nil {
		t.Fatalf("PullWorkspace returned error: %v", err)
	}
	if !result.Committed {
		t.Fatal("expected the pulled snapshot to be committed")
	}

	editLocal(t, store, resource.Queue, 100, "locale", "de_DE")

	diffs, err := ws.Diff(ctx)
	if err != nil {
		t.Fatalf("Diff returned error: %v", err)
	}
	byRef := diffByRef(diffs)
	if got := byRef["queue/100"].Status; got != StatusLocalModified {
		t.Fatalf("expected queue 100 local_modified, got %q", got)
	}
	if got := byRef["schema/50"].Status; got != StatusUnchanged {
		t.Fatalf("expected schema 50 unchanged, got %q", got)
	}
}
