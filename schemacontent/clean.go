// Package schemacontent prepares schema content trees for the remote API,
// which rejects explicit nulls and layout-only keys outside table columns.
package schemacontent

import "github.com/crmarques/rossync/resource"

type nodeContext int

const (
	contextNone nodeContext = iota
	// contextMultivalueChild marks the direct child of a multivalue node.
	contextMultivalueChild
	// contextTupleColumn marks a direct child of a tuple that is itself the
	// child of a multivalue: a column of a repeating table.
	contextTupleColumn
)

var layoutKeys = map[string]struct{}{
	"width":        {},
	"stretch":      {},
	"can_collapse": {},
	"width_chars":  {},
}

// requiredKeys are kept even when null.
var requiredKeys = map[string]struct{}{
	"id":       {},
	"category": {},
	"children": {},
}

// Clean returns a cleaned copy of a schema content value: a list of section
// nodes, a single node, or anything else (returned unchanged).
func Clean(content any) any {
	switch typed := content.(type) {
	case []any:
		cleaned := make([]any, len(typed))
		for idx, item := range typed {
			cleaned[idx] = cleanChild(item, contextNone)
		}
		return cleaned
	case map[string]any:
		return cleanNode(typed, contextNone)
	default:
		return content
	}
}

// CleanPayload cleans the "content" field of a schema payload in place and
// returns it.
func CleanPayload(data resource.Payload) resource.Payload {
	if content, ok := data["content"]; ok && content != nil {
		data["content"] = Clean(content)
	}
	return data
}

func cleanChild(value any, ctx nodeContext) any {
	node, ok := value.(map[string]any)
	if !ok {
		return resource.Clone(value)
	}
	return cleanNode(node, ctx)
}

func cleanNode(node map[string]any, ctx nodeContext) map[string]any {
	cleaned := make(map[string]any, len(node))
	for key, value := range node {
		if value == nil {
			if _, required := requiredKeys[key]; !required {
				continue
			}
		}
		if _, layout := layoutKeys[key]; layout && ctx != contextTupleColumn {
			continue
		}
		if key == "children" {
			cleaned[key] = cleanChildren(value, childContext(node, ctx))
			continue
		}
		cleaned[key] = dropNulls(value)
	}
	return cleaned
}

// childContext decides the context handed to a node's children. Only a
// multivalue's tuple passes the column context on, and only one level down.
func childContext(node map[string]any, ctx nodeContext) nodeContext {
	category, _ := node["category"].(string)
	switch {
	case category == "multivalue":
		return contextMultivalueChild
	case category == "tuple" && ctx == contextMultivalueChild:
		return contextTupleColumn
	default:
		return contextNone
	}
}

func cleanChildren(children any, ctx nodeContext) any {
	switch typed := children.(type) {
	case []any:
		cleaned := make([]any, len(typed))
		for idx, item := range typed {
			cleaned[idx] = cleanChild(item, ctx)
		}
		return cleaned
	case map[string]any:
		return cleanNode(typed, ctx)
	default:
		return typed
	}
}

// dropNulls removes null members from nested objects such as constraints.
func dropNulls(value any) any {
	switch typed := value.(type) {
	case map[string]any:
		cleaned := make(map[string]any, len(typed))
		for key, item := range typed {
			if item == nil {
				continue
			}
			cleaned[key] = dropNulls(item)
		}
		return cleaned
	case []any:
		cleaned := make([]any, len(typed))
		for idx, item := range typed {
			cleaned[idx] = dropNulls(item)
		}
		return cleaned
	default:
		return typed
	}
}
