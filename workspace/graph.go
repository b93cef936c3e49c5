package workspace

import (
	"context"
	"fmt"
	"strconv"

	"github.com/crmarques/rossync/debugctx"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server"
)

// objectGraph is the closure of a set of root workspaces, in pull order.
type objectGraph struct {
	objects map[resource.ObjectType][]resource.Payload
	failed  []FailedObject
}

func newObjectGraph() *objectGraph {
	return &objectGraph{objects: map[resource.ObjectType][]resource.Payload{}}
}

func (g *objectGraph) add(objectType resource.ObjectType, data resource.Payload) {
	g.objects[objectType] = append(g.objects[objectType], data)
}

func (g *objectGraph) ids(objectType resource.ObjectType) idSet {
	set := idSet{}
	for _, data := range g.objects[objectType] {
		if id, ok := resource.IDOf(data); ok {
			set.add(id)
		}
	}
	return set
}

func (g *objectGraph) find(objectType resource.ObjectType, id int64) (resource.Payload, bool) {
	for _, data := range g.objects[objectType] {
		if candidate, ok := resource.IDOf(data); ok && candidate == id {
			return data, true
		}
	}
	return nil, false
}

// listFailure names the collection when the API answered a list call with
// something other than a results page.
func listFailure(objectType resource.ObjectType, err error) error {
	if server.IsListPayloadShapeError(err) {
		return fmt.Errorf("malformed %s list response: %w", objectType.Collection(), err)
	}
	return err
}

func (g *objectGraph) fail(objectType resource.ObjectType, id int64, err error) {
	g.failed = append(g.failed, FailedObject{Type: objectType, ID: id, Error: err.Error()})
}

// collectGraph walks foreign keys outward from the root workspaces. A
// failing list or retrieve of a dependent type is recorded and the walk
// continues with what it has.
func collectGraph(ctx context.Context, remote server.RemoteAPI, roots []resource.Payload) *objectGraph {
	graph := newObjectGraph()
	for _, root := range roots {
		graph.add(resource.Workspace, root)
	}

	collectQueues(ctx, remote, graph)
	collectSchemas(ctx, remote, graph)

	queueIDs := graph.ids(resource.Queue)
	for _, objectType := range []resource.ObjectType{resource.Inbox, resource.Hook, resource.Connector} {
		collectListed(ctx, remote, graph, objectType, func(data resource.Payload) bool {
			ids := refIDs(data["queues"])
			if objectType == resource.Inbox {
				if id, ok := refID(data["queue"]); ok {
					ids = append(ids, id)
				}
			}
			return queueIDs.intersects(ids)
		})
	}

	engineIDs := idSet{}
	for _, queue := range graph.objects[resource.Queue] {
		for _, field := range []string{"dedicated_engine", "generic_engine"} {
			if id, ok := refID(queue[field]); ok {
				engineIDs.add(id)
			}
		}
	}
	if len(engineIDs) > 0 {
		collectListed(ctx, remote, graph, resource.Engine, func(data resource.Payload) bool {
			id, ok := resource.IDOf(data)
			return ok && engineIDs.has(id)
		})
	}

	collectListed(ctx, remote, graph, resource.EmailTemplate, func(data resource.Payload) bool {
		id, ok := refID(data["queue"])
		return ok && queueIDs.has(id)
	})

	schemaIDs := graph.ids(resource.Schema)
	collectListed(ctx, remote, graph, resource.Rule, func(data resource.Payload) bool {
		id, ok := refID(data["schema"])
		return ok && schemaIDs.has(id)
	})

	return graph
}

func collectQueues(ctx context.Context, remote server.RemoteAPI, graph *objectGraph) {
	workspaceIDs := graph.ids(resource.Workspace)
	seen := idSet{}
	for _, workspaceID := range workspaceIDs.sorted() {
		queues, err := remote.List(ctx, resource.Queue, map[string]string{
			"workspace": strconv.FormatInt(workspaceID, 10),
		})
		if err != nil {
			graph.fail(resource.Queue, 0, listFailure(resource.Queue, err))
			continue
		}
		for _, queue := range queues {
			id, ok := resource.IDOf(queue)
			if !ok || seen.has(id) {
				continue
			}
			parent, ok := refID(queue["workspace"])
			if !ok || !workspaceIDs.has(parent) {
				continue
			}
			seen.add(id)
			graph.add(resource.Queue, queue)
		}
	}
}

// collectSchemas retrieves each distinct schema referenced by a kept queue.
func collectSchemas(ctx context.Context, remote server.RemoteAPI, graph *objectGraph) {
	schemaIDs := idSet{}
	for _, queue := range graph.objects[resource.Queue] {
		if id, ok := refID(queue["schema"]); ok {
			schemaIDs.add(id)
		}
	}
	for _, schemaID := range schemaIDs.sorted() {
		schema, err := remote.Retrieve(ctx, resource.Schema, schemaID)
		if err != nil {
			graph.fail(resource.Schema, schemaID, err)
			continue
		}
		graph.add(resource.Schema, schema)
	}
}

func collectListed(
	ctx context.Context,
	remote server.RemoteAPI,
	graph *objectGraph,
	objectType resource.ObjectType,
	keep func(resource.Payload) bool,
) {
	items, err := remote.List(ctx, objectType, nil)
	if err != nil {
		err = listFailure(objectType, err)
		debugctx.Logger(ctx).V(1).Info("list failed", "type", objectType, "error", err.Error())
		graph.fail(objectType, 0, err)
		return
	}
	for _, item := range items {
		if keep(item) {
			graph.add(objectType, item)
		}
	}
}
