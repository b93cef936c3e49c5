// Package servertest provides an in-memory server.RemoteAPI for tests.
package servertest

import (
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server"
)

var _ server.RemoteAPI = (*FakeRemote)(nil)

// Call records one mutating request.
type Call struct {
	Method  string
	Type    resource.ObjectType
	ID      int64
	Payload resource.Payload
}

type FakeRemote struct {
	mu      sync.Mutex
	baseURL string
	objects map[resource.ObjectType]map[int64]resource.Payload
	nextID  int64
	calls   []Call

	// Failures maps "<type>/<id>", "<type>/<id>/update", "<type>/create" or
	// "<type>/list" to an error returned by the matching call.
	Failures map[string]error
}

func NewFakeRemote(baseURL string, firstID int64) *FakeRemote {
	if firstID <= 0 {
		firstID = 1000
	}
	return &FakeRemote{
		baseURL:  strings.TrimRight(baseURL, "/"),
		objects:  map[resource.ObjectType]map[int64]resource.Payload{},
		nextID:   firstID,
		Failures: map[string]error{},
	}
}

func (f *FakeRemote) BaseURL() string {
	return f.baseURL
}

// URL renders the fake's URL for an object.
func (f *FakeRemote) URL(objectType resource.ObjectType, id int64) string {
	return resource.BuildURL(f.baseURL, objectType, id)
}

// Put stores data under id, filling in id and url.
func (f *FakeRemote) Put(objectType resource.ObjectType, id int64, data resource.Payload) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.put(objectType, id, data)
}

func (f *FakeRemote) put(objectType resource.ObjectType, id int64, data resource.Payload) {
	stored, err := resource.NormalizePayload(data)
	if err != nil {
		panic(fmt.Sprintf("servertest: invalid payload: %v", err))
	}
	stored["id"] = id
	stored["url"] = f.URL(objectType, id)
	if f.objects[objectType] == nil {
		f.objects[objectType] = map[int64]resource.Payload{}
	}
	f.objects[objectType][id] = stored
}

// Get returns a copy of the stored object.
func (f *FakeRemote) Get(objectType resource.ObjectType, id int64) (resource.Payload, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	stored, ok := f.objects[objectType][id]
	if !ok {
		return nil, false
	}
	return resource.ClonePayload(stored), true
}

// Count returns how many objects of a type exist.
func (f *FakeRemote) Count(objectType resource.ObjectType) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.objects[objectType])
}

// Calls returns the recorded mutating calls in order.
func (f *FakeRemote) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	calls := make([]Call, len(f.calls))
	copy(calls, f.calls)
	return calls
}

// CallsFor filters recorded calls by method and type.
func (f *FakeRemote) CallsFor(method string, objectType resource.ObjectType) []Call {
	var matched []Call
	for _, call := range f.Calls() {
		if call.Method == method && call.Type == objectType {
			matched = append(matched, call)
		}
	}
	return matched
}

func (f *FakeRemote) Retrieve(_ context.Context, objectType resource.ObjectType, id int64) (resource.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failure(objectType, strconv.FormatInt(id, 10)); err != nil {
		return nil, err
	}
	stored, ok := f.objects[objectType][id]
	if !ok {
		return nil, faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("%s %d not found", objectType, id), nil)
	}
	return resource.ClonePayload(stored), nil
}

// List matches filters against fields holding either the literal value or a
// URL whose trailing id equals it. Results are ordered by id.
func (f *FakeRemote) List(_ context.Context, objectType resource.ObjectType, filters map[string]string) ([]resource.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if err := f.failure(objectType, "list"); err != nil {
		return nil, err
	}

	ids := make([]int64, 0, len(f.objects[objectType]))
	for id := range f.objects[objectType] {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	items := []resource.Payload{}
	for _, id := range ids {
		stored := f.objects[objectType][id]
		if matchesFilters(stored, filters) {
			items = append(items, resource.ClonePayload(stored))
		}
	}
	return items, nil
}

func (f *FakeRemote) Create(_ context.Context, objectType resource.ObjectType, payload resource.Payload) (resource.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.create(objectType, payload)
}

func (f *FakeRemote) create(objectType resource.ObjectType, payload resource.Payload) (resource.Payload, error) {
	f.calls = append(f.calls, Call{Method: http.MethodPost, Type: objectType, Payload: resource.ClonePayload(payload)})
	if err := f.failure(objectType, "create"); err != nil {
		return nil, err
	}

	id := f.nextID
	f.nextID++
	f.put(objectType, id, payload)
	return resource.ClonePayload(f.objects[objectType][id]), nil
}

func (f *FakeRemote) Update(_ context.Context, objectType resource.ObjectType, id int64, payload resource.Payload) (resource.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.update(objectType, id, payload)
}

func (f *FakeRemote) update(objectType resource.ObjectType, id int64, payload resource.Payload) (resource.Payload, error) {
	f.calls = append(f.calls, Call{Method: http.MethodPatch, Type: objectType, ID: id, Payload: resource.ClonePayload(payload)})
	key := strconv.FormatInt(id, 10)
	if err := f.failure(objectType, key+"/update"); err != nil {
		return nil, err
	}
	if err := f.failure(objectType, key); err != nil {
		return nil, err
	}

	stored, ok := f.objects[objectType][id]
	if !ok {
		return nil, faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("%s %d not found", objectType, id), nil)
	}
	merged := resource.ClonePayload(stored)
	for key, value := range payload {
		merged[key] = resource.Clone(value)
	}
	f.put(objectType, id, merged)
	return resource.ClonePayload(f.objects[objectType][id]), nil
}

func (f *FakeRemote) Request(_ context.Context, method string, path string, body resource.Payload) (resource.Payload, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	parts := strings.Split(strings.Trim(path, "/"), "/")
	objectType, ok := resource.TypeForCollection(parts[0])
	if !ok || len(parts) > 2 {
		return nil, faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("unknown path %q", path), nil)
	}

	var id int64
	if len(parts) == 2 {
		parsed, err := strconv.ParseInt(parts[1], 10, 64)
		if err != nil {
			return nil, faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("unknown path %q", path), err)
		}
		id = parsed
	}

	switch {
	case method == http.MethodGet && len(parts) == 2:
		if err := f.failure(objectType, parts[1]); err != nil {
			return nil, err
		}
		stored, found := f.objects[objectType][id]
		if !found {
			return nil, faults.NewTypedError(faults.NotFoundError, fmt.Sprintf("%s %d not found", objectType, id), nil)
		}
		return resource.ClonePayload(stored), nil
	case method == http.MethodPost && len(parts) == 1:
		return f.create(objectType, body)
	case method == http.MethodPatch && len(parts) == 2:
		return f.update(objectType, id, body)
	default:
		return nil, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("unsupported %s %s", method, path), nil)
	}
}

func (f *FakeRemote) failure(objectType resource.ObjectType, suffix string) error {
	return f.Failures[string(objectType)+"/"+suffix]
}

func matchesFilters(data resource.Payload, filters map[string]string) bool {
	for key, expected := range filters {
		value, ok := data[key]
		if !ok {
			return false
		}
		if !matchesFilterValue(value, expected) {
			return false
		}
	}
	return true
}

func matchesFilterValue(value any, expected string) bool {
	switch typed := value.(type) {
	case string:
		if typed == expected {
			return true
		}
		id, err := resource.IDFromURL(typed)
		return err == nil && strconv.FormatInt(id, 10) == expected
	case int64:
		return strconv.FormatInt(typed, 10) == expected
	case []any:
		for _, item := range typed {
			if matchesFilterValue(item, expected) {
				return true
			}
		}
		return false
	default:
		return fmt.Sprint(typed) == expected
	}
}
