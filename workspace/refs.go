package workspace

import (
	"sort"
	"strconv"
	"strings"

	"github.com/crmarques/rossync/idmap"
	"github.com/crmarques/rossync/resource"
)

// refID reads the id referenced by a foreign-key field in either string or
// {"url": ...} form.
func refID(value any) (int64, bool) {
	raw, ok := resource.URLValue(value)
	if !ok {
		return 0, false
	}
	id, err := resource.IDFromURL(raw)
	if err != nil {
		return 0, false
	}
	return id, true
}

func refIDs(value any) []int64 {
	return resource.IDsFromURLList(value)
}

type idSet map[int64]struct{}

func (s idSet) add(id int64) {
	s[id] = struct{}{}
}

func (s idSet) has(id int64) bool {
	_, ok := s[id]
	return ok
}

func (s idSet) intersects(ids []int64) bool {
	for _, id := range ids {
		if s.has(id) {
			return true
		}
	}
	return false
}

func (s idSet) sorted() []int64 {
	ids := make([]int64, 0, len(s))
	for id := range s {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// urlRewriter turns source ids into target URLs through a mapping.
type urlRewriter struct {
	mapping *idmap.Mapping
	baseURL string
}

// ref maps a single foreign key. ok is false when the source reference is
// absent or has no target.
func (r urlRewriter) ref(objectType resource.ObjectType, value any) (string, bool) {
	sourceID, ok := refID(value)
	if !ok {
		return "", false
	}
	targetID, ok := r.mapping.Get(objectType, sourceID)
	if !ok {
		return "", false
	}
	return resource.BuildURL(r.baseURL, objectType, targetID), true
}

// refs maps a list of foreign keys, dropping entries without a target.
func (r urlRewriter) refs(objectType resource.ObjectType, value any) []any {
	mapped := make([]any, 0)
	for _, sourceID := range refIDs(value) {
		targetID, ok := r.mapping.Get(objectType, sourceID)
		if !ok {
			continue
		}
		mapped = append(mapped, resource.BuildURL(r.baseURL, objectType, targetID))
	}
	return mapped
}

// setRef rewrites data[field] in place, removing it when unmapped.
func (r urlRewriter) setRef(data resource.Payload, field string, objectType resource.ObjectType) bool {
	if _, present := data[field]; !present {
		return false
	}
	mapped, ok := r.ref(objectType, data[field])
	if !ok {
		delete(data, field)
		return false
	}
	data[field] = mapped
	return true
}

func (r urlRewriter) setRefs(data resource.Payload, field string, objectType resource.ObjectType) int {
	if _, present := data[field]; !present {
		return 0
	}
	mapped := r.refs(objectType, data[field])
	data[field] = mapped
	return len(mapped)
}

// rewriteHookCode replaces each mapped queue id in config.code with its
// target id, one plain substring replacement per id in ascending source id
// order. Numbers that merely contain a queue id are rewritten too, and a
// replacement can feed a later one. It reports whether the code changed.
func rewriteHookCode(data resource.Payload, queueIDs map[int64]int64) bool {
	hookConfig, ok := data["config"].(map[string]any)
	if !ok {
		return false
	}
	code, ok := hookConfig["code"].(string)
	if !ok || code == "" || len(queueIDs) == 0 {
		return false
	}

	sourceIDs := make([]int64, 0, len(queueIDs))
	for sourceID := range queueIDs {
		sourceIDs = append(sourceIDs, sourceID)
	}
	sort.Slice(sourceIDs, func(i, j int) bool { return sourceIDs[i] < sourceIDs[j] })

	rewritten := code
	for _, sourceID := range sourceIDs {
		rewritten = strings.ReplaceAll(
			rewritten,
			strconv.FormatInt(sourceID, 10),
			strconv.FormatInt(queueIDs[sourceID], 10),
		)
	}
	if rewritten == code {
		return false
	}
	hookConfig["code"] = rewritten
	return true
}

func pick(data resource.Payload, fields ...string) resource.Payload {
	picked := resource.Payload{}
	for _, field := range fields {
		value, ok := data[field]
		if !ok {
			continue
		}
		picked[field] = resource.Clone(value)
	}
	return picked
}
