package resource

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/crmarques/rossync/faults"
)

// IDFromURL extracts the trailing numeric id from a resource URL such as
// https://example.rossum.app/api/v1/queues/12/.
func IDFromURL(value string) (int64, error) {
	trimmed := strings.TrimRight(strings.TrimSpace(value), "/")
	if trimmed == "" {
		return 0, faults.NewTypedError(faults.ValidationError, "resource url is empty", nil)
	}

	segment := trimmed
	if idx := strings.LastIndex(trimmed, "/"); idx >= 0 {
		segment = trimmed[idx+1:]
	}
	id, err := strconv.ParseInt(segment, 10, 64)
	if err != nil {
		return 0, faults.NewTypedError(faults.ValidationError, fmt.Sprintf("resource url %q does not end with a numeric id", value), err)
	}
	return id, nil
}

// BuildURL renders the absolute URL of an object under baseURL.
func BuildURL(baseURL string, objectType ObjectType, id int64) string {
	return fmt.Sprintf("%s/%s/%d", strings.TrimRight(baseURL, "/"), objectType.Collection(), id)
}

// ParseResourceURL splits a URL ending in /<collection>/<id> into its type and
// id. ok is false for URLs that do not reference a known collection.
func ParseResourceURL(value string) (ObjectType, int64, bool) {
	trimmed := strings.TrimRight(strings.TrimSpace(value), "/")
	parts := strings.Split(trimmed, "/")
	if len(parts) < 2 {
		return "", 0, false
	}
	objectType, found := TypeForCollection(parts[len(parts)-2])
	if !found {
		return "", 0, false
	}
	id, err := strconv.ParseInt(parts[len(parts)-1], 10, 64)
	if err != nil {
		return "", 0, false
	}
	return objectType, id, true
}

// URLValue returns the URL held by a foreign-key field, which the API renders
// either as a plain string or as an object with a "url" key.
func URLValue(value any) (string, bool) {
	switch typed := value.(type) {
	case string:
		if strings.TrimSpace(typed) == "" {
			return "", false
		}
		return typed, true
	case map[string]any:
		nested, ok := typed["url"].(string)
		if !ok || strings.TrimSpace(nested) == "" {
			return "", false
		}
		return nested, true
	default:
		return "", false
	}
}

// IDsFromURLList collects ids from a list-of-URLs field, ignoring entries that
// are not resource URLs.
func IDsFromURLList(value any) []int64 {
	items, ok := value.([]any)
	if !ok {
		return nil
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		raw, ok := URLValue(item)
		if !ok {
			continue
		}
		id, err := IDFromURL(raw)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

// IDOf reads the numeric "id" field of a payload, falling back to its "url".
func IDOf(data Payload) (int64, bool) {
	switch typed := data["id"].(type) {
	case int64:
		return typed, true
	case float64:
		return int64(typed), true
	case int:
		return int64(typed), true
	}
	if raw, ok := URLValue(data["url"]); ok {
		if id, err := IDFromURL(raw); err == nil {
			return id, true
		}
	}
	return 0, false
}
