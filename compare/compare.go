// Package compare implements field-level comparison of object payloads.
package compare

import (
	"math"
	"reflect"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/crmarques/rossync/idmap"
	"github.com/crmarques/rossync/resource"
)

var globalIgnoredFields = map[string]struct{}{
	"id":           {},
	"url":          {},
	"modified_at":  {},
	"modified_by":  {},
	"created_at":   {},
	"creator":      {},
	"counts":       {},
	"organization": {},
}

var typeIgnoredFields = map[resource.ObjectType]map[string]struct{}{
	resource.Workspace: {"queues": {}},
	resource.Queue:     {"rir_url": {}, "users": {}},
	resource.Schema:    {"queues": {}},
	resource.Inbox:     {"email_hash": {}},
	resource.Hook: {
		"extension_source":    {},
		"guide":               {},
		"read_more_url":       {},
		"extension_image_url": {},
	},
}

// trimmedField is right-trimmed before comparison; the API round-trips it
// with differing trailing whitespace.
const trimmedField = "message"

// resourceURLPattern matches a token ending in /<collection>/<id>.
var resourceURLPattern = regexp.MustCompile(
	`[^\s"'(),]*?/(workspaces|queues|schemas|inboxes|hooks|connectors|engines|email_templates|rules)/(\d+)\b/?`,
)

type FieldDiff struct {
	Field       string `json:"field" yaml:"field"`
	SourceValue any    `json:"source_value" yaml:"source_value"`
	TargetValue any    `json:"target_value" yaml:"target_value"`
}

type Options struct {
	// Mapping switches to cross-environment mode: resource URLs on the
	// source side are rewritten through it and both sides are reduced to
	// /<collection>/<id> before comparison.
	Mapping *idmap.Mapping
}

// IsIgnored reports whether field is excluded from comparison and pushes.
func IsIgnored(objectType resource.ObjectType, field string) bool {
	if strings.HasPrefix(field, "_") {
		return true
	}
	if _, ok := globalIgnoredFields[field]; ok {
		return true
	}
	_, ok := typeIgnoredFields[objectType][field]
	return ok
}

// StripIgnored returns a copy of data without ignored fields.
func StripIgnored(objectType resource.ObjectType, data resource.Payload) resource.Payload {
	stripped := resource.Payload{}
	for key, value := range data {
		if IsIgnored(objectType, key) {
			continue
		}
		stripped[key] = resource.Clone(value)
	}
	return stripped
}

// ChangedFields lists the top-level fields whose values differ, sorted.
func ChangedFields(local resource.Payload, remote resource.Payload, objectType resource.ObjectType, opts Options) []string {
	diffs := FieldDiffs(local, remote, objectType, opts)
	fields := make([]string, len(diffs))
	for idx, diff := range diffs {
		fields[idx] = diff.Field
	}
	return fields
}

// FieldDiffs compares local (source) against remote (target). A field missing
// on one side compares as null.
func FieldDiffs(local resource.Payload, remote resource.Payload, objectType resource.ObjectType, opts Options) []FieldDiff {
	keys := unionKeys(local, remote)
	diffs := make([]FieldDiff, 0)
	for _, key := range keys {
		if IsIgnored(objectType, key) {
			continue
		}

		sourceValue := local[key]
		targetValue := remote[key]
		normalizedSource := normalizeValue(key, sourceValue, opts.Mapping, true)
		normalizedTarget := normalizeValue(key, targetValue, opts.Mapping, false)
		if reflect.DeepEqual(normalizedSource, normalizedTarget) {
			continue
		}
		diffs = append(diffs, FieldDiff{
			Field:       key,
			SourceValue: sourceValue,
			TargetValue: targetValue,
		})
	}
	return diffs
}

func unionKeys(left map[string]any, right map[string]any) []string {
	seen := make(map[string]struct{}, len(left)+len(right))
	keys := make([]string, 0, len(left)+len(right))
	for _, values := range []map[string]any{left, right} {
		for key := range values {
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			keys = append(keys, key)
		}
	}
	sort.Strings(keys)
	return keys
}

func normalizeValue(key string, value any, mapping *idmap.Mapping, sourceSide bool) any {
	switch typed := value.(type) {
	case string:
		normalized := typed
		if key == trimmedField {
			normalized = strings.TrimRight(normalized, " \t\r\n")
		}
		if mapping != nil {
			normalized = canonicalizeURLs(normalized, mapping, sourceSide)
		}
		return normalized
	case map[string]any:
		normalized := make(map[string]any, len(typed))
		for childKey, item := range typed {
			normalized[childKey] = normalizeValue(childKey, item, mapping, sourceSide)
		}
		return normalized
	case []any:
		normalized := make([]any, len(typed))
		for idx, item := range typed {
			normalized[idx] = normalizeValue(key, item, mapping, sourceSide)
		}
		return normalized
	case int:
		return int64(typed)
	case float64:
		// Snapshot files write 1.0 as 1, which reads back as an integer.
		if typed == math.Trunc(typed) && typed >= math.MinInt64 && typed < math.MaxInt64 {
			return int64(typed)
		}
		return typed
	default:
		return typed
	}
}

// canonicalizeURLs reduces every resource URL in value to /<collection>/<id>,
// translating source ids through mapping.
func canonicalizeURLs(value string, mapping *idmap.Mapping, sourceSide bool) string {
	return resourceURLPattern.ReplaceAllStringFunc(value, func(match string) string {
		groups := resourceURLPattern.FindStringSubmatch(match)
		if len(groups) != 3 {
			return match
		}
		collection := groups[1]
		id, err := strconv.ParseInt(groups[2], 10, 64)
		if err != nil {
			return match
		}
		if sourceSide {
			if objectType, ok := resource.TypeForCollection(collection); ok {
				if mapped, found := mapping.Get(objectType, id); found {
					id = mapped
				}
			}
		}
		return "/" + collection + "/" + strconv.FormatInt(id, 10)
	})
}
