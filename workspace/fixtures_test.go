package workspace

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"testing"

	"github.com/crmarques/rossync/idmap"
	"github.com/crmarques/rossync/internal/providers/repository/fsstore"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server/servertest"
)

const (
	sourceBaseURL = "https://source.example.com/api/v1"
	targetBaseURL = "https://target.example.com/api/v1"
)

func newTestWorkspace(t *testing.T, remote *servertest.FakeRemote) (*Workspace, *fsstore.LocalObjectStore) {
	t.Helper()

	store := fsstore.NewLocalObjectStore(t.TempDir())
	return &Workspace{Store: store, Remote: remote}, store
}

func orgURL(base string, id int64) string {
	return fmt.Sprintf("%s/organizations/%d", base, id)
}

// seedSource builds an organization with one fully linked workspace plus
// unrelated objects that a closure must leave out.
func seedSource() *servertest.FakeRemote {
	remote := servertest.NewFakeRemote(sourceBaseURL, 0)
	u := remote.URL

	remote.Put(resource.Workspace, 1, resource.Payload{
		"name":         "Main",
		"organization": orgURL(sourceBaseURL, 1),
		"queues":       []any{u(resource.Queue, 100)},
	})
	remote.Put(resource.Workspace, 2, resource.Payload{
		"name":         "Secondary",
		"organization": orgURL(sourceBaseURL, 1),
	})
	remote.Put(resource.Workspace, 3, resource.Payload{
		"name":         "Foreign",
		"organization": orgURL(sourceBaseURL, 9),
	})

	remote.Put(resource.Schema, 50, resource.Payload{
		"name":        "Invoice schema",
		"modified_at": "2024-03-01T10:00:00Z",
		"content": []any{
			map[string]any{
				"id":       "header",
				"category": "section",
				"children": []any{
					map[string]any{"id": "f1", "category": "datapoint", "score_threshold": nil, "width": 10},
				},
			},
		},
	})
	remote.Put(resource.Schema, 51, resource.Payload{"name": "Unused schema"})

	remote.Put(resource.Queue, 100, resource.Payload{
		"name":             "Inbound",
		"workspace":        u(resource.Workspace, 1),
		"schema":           u(resource.Schema, 50),
		"inbox":            u(resource.Inbox, 60),
		"dedicated_engine": map[string]any{"url": u(resource.Engine, 70)},
		"locale":           "en_US",
		"modified_at":      "2024-03-01T10:00:00Z",
	})
	remote.Put(resource.Queue, 101, resource.Payload{
		"name":      "Foreign queue",
		"workspace": u(resource.Workspace, 3),
		"schema":    u(resource.Schema, 51),
	})

	remote.Put(resource.Inbox, 60, resource.Payload{
		"name":       "Inbound mail",
		"queues":     []any{u(resource.Queue, 100)},
		"email":      "acme-invoices@source.example.com",
		"email_hash": "abc",
	})
	remote.Put(resource.Hook, 80, resource.Payload{
		"name":             "Validator",
		"queues":           []any{u(resource.Queue, 100)},
		"extension_source": "custom",
		"config":           map[string]any{"code": "if queue_id == 100:\n    pass\n"},
		"modified_at":      "2024-03-01T10:00:00Z",
	})
	remote.Put(resource.Hook, 81, resource.Payload{
		"name":             "Store extension",
		"queues":           []any{u(resource.Queue, 100)},
		"extension_source": "rossum_store",
	})
	remote.Put(resource.Hook, 82, resource.Payload{
		"name":   "Foreign hook",
		"queues": []any{u(resource.Queue, 101)},
	})
	remote.Put(resource.Connector, 90, resource.Payload{
		"name":        "Export",
		"queues":      []any{u(resource.Queue, 100)},
		"service_url": "https://connector.example.com",
	})
	remote.Put(resource.Engine, 70, resource.Payload{
		"name":            "Dedicated",
		"type":            "extractor",
		"training_queues": []any{u(resource.Queue, 100)},
	})
	remote.Put(resource.Engine, 71, resource.Payload{"name": "Unreferenced engine"})
	remote.Put(resource.EmailTemplate, 40, resource.Payload{
		"name":    "Rejection",
		"queue":   u(resource.Queue, 100),
		"message": "Hello\n",
	})
	remote.Put(resource.EmailTemplate, 41, resource.Payload{
		"name":  "Foreign template",
		"queue": u(resource.Queue, 101),
	})
	remote.Put(resource.Rule, 30, resource.Payload{"name": "Amount check", "schema": u(resource.Schema, 50)})
	remote.Put(resource.Rule, 31, resource.Payload{"name": "Foreign rule", "schema": u(resource.Schema, 51)})

	return remote
}

func localIDs(t *testing.T, store *fsstore.LocalObjectStore, objectType resource.ObjectType) []int64 {
	t.Helper()

	paths, err := store.ListLocalObjects(context.Background(), objectType)
	if err != nil {
		t.Fatalf("ListLocalObjects(%s) returned error: %v", objectType, err)
	}
	ids := make([]int64, 0, len(paths))
	for _, path := range paths {
		object, err := store.LoadObject(context.Background(), path)
		if err != nil {
			t.Fatalf("LoadObject(%s) returned error: %v", path, err)
		}
		ids = append(ids, object.Meta.ObjectID)
	}
	return ids
}

// editLocal rewrites one snapshot field in place, keeping its metadata.
func editLocal(t *testing.T, store *fsstore.LocalObjectStore, objectType resource.ObjectType, id int64, field string, value any) string {
	t.Helper()

	ctx := context.Background()
	path, err := store.FindObjectPath(ctx, objectType, id)
	if err != nil || path == "" {
		t.Fatalf("FindObjectPath(%s, %d) = %q, %v", objectType, id, path, err)
	}
	object, err := store.LoadObject(ctx, path)
	if err != nil {
		t.Fatalf("LoadObject returned error: %v", err)
	}
	object.Data[field] = value
	saved, err := store.SaveObject(ctx, objectType, id, object.Name(), object.Data, object.Meta.RemoteModifiedAt)
	if err != nil {
		t.Fatalf("SaveObject returned error: %v", err)
	}
	return saved
}

type stubChanges map[string]bool

func (s stubChanges) ModifiedPaths(_ context.Context, paths []string) (map[string]bool, error) {
	modified := map[string]bool{}
	for _, path := range paths {
		if s[path] {
			modified[path] = true
		}
	}
	return modified, nil
}

func diffByRef(diffs []ObjectDiff) map[string]ObjectDiff {
	indexed := make(map[string]ObjectDiff, len(diffs))
	for _, diff := range diffs {
		indexed[fmt.Sprintf("%s/%d", diff.ObjectType, diff.ObjectID)] = diff
	}
	return indexed
}

var errSchemaRejected = errors.New("schema rejected")

func itoa(value int64) string {
	return strconv.FormatInt(value, 10)
}

func mustMapped(t *testing.T, mapping *idmap.Mapping, objectType resource.ObjectType, sourceID int64) int64 {
	t.Helper()

	targetID, ok := mapping.Get(objectType, sourceID)
	if !ok {
		t.Fatalf("expected %s %d to be mapped", objectType, sourceID)
	}
	return targetID
}
