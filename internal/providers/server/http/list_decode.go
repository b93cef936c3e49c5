package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server"
)

// maxListPages bounds pagination against a server that keeps returning a
// next link.
const maxListPages = 10000

// List pages through a collection. Filters are sent as query parameters;
// pagination.next links are followed only while they stay on the API host.
func (g *HTTPRemoteGateway) List(
	ctx context.Context,
	objectType resource.ObjectType,
	filters map[string]string,
) ([]resource.Payload, error) {
	if !objectType.Valid() {
		return nil, validationError(fmt.Sprintf("unsupported object type %q", objectType), nil)
	}

	query := url.Values{}
	keys := make([]string, 0, len(filters))
	for key := range filters {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	for _, key := range keys {
		query.Set(key, filters[key])
	}
	query.Set("page_size", strconv.Itoa(g.pageSize))

	collection := objectType.Collection()
	nextURL := g.resolveRequestURL(collection, query)
	items := make([]resource.Payload, 0)
	for page := 0; nextURL != ""; page++ {
		if page >= maxListPages {
			return nil, transportError(fmt.Sprintf("list %s exceeded %d pages", collection, maxListPages), nil)
		}

		response, err := g.executeURL(ctx, http.MethodGet, nextURL, collection, nil)
		if err != nil {
			return nil, err
		}

		pageItems, next, err := extractListPage(response.body)
		if err != nil {
			return nil, err
		}
		items = append(items, pageItems...)

		nextURL, err = g.followableNext(next)
		if err != nil {
			return nil, err
		}
	}
	return items, nil
}

func (g *HTTPRemoteGateway) followableNext(next string) (string, error) {
	trimmed := strings.TrimSpace(next)
	if trimmed == "" {
		return "", nil
	}

	parsed, err := url.Parse(trimmed)
	if err != nil {
		return "", server.NewListPayloadShapeError("list pagination.next is not a valid url", err)
	}
	if !parsed.IsAbs() {
		parsed = g.baseURL.ResolveReference(parsed)
	}
	if !strings.EqualFold(parsed.Host, g.baseURL.Host) {
		return "", validationError(
			fmt.Sprintf("list pagination.next host %q does not match api host %q", parsed.Host, g.baseURL.Host),
			nil,
		)
	}
	parsed.Scheme = g.baseURL.Scheme
	return parsed.String(), nil
}

// extractListPage accepts the paginated envelope and a bare JSON array.
func extractListPage(body []byte) ([]resource.Payload, string, error) {
	value, err := decodeAnyJSON(body)
	if err != nil {
		return nil, "", err
	}

	switch typed := value.(type) {
	case []any:
		items, err := listItems(typed)
		return items, "", err
	case map[string]any:
		rawResults, found := typed["results"]
		if !found {
			return nil, "", server.NewListPayloadShapeError("list response object has no results array", nil)
		}
		results, ok := rawResults.([]any)
		if !ok {
			return nil, "", server.NewListPayloadShapeError("list response results must be an array", nil)
		}
		items, err := listItems(results)
		if err != nil {
			return nil, "", err
		}

		next := ""
		if pagination, ok := typed["pagination"].(map[string]any); ok {
			next, _ = pagination["next"].(string)
		}
		return items, next, nil
	default:
		return nil, "", server.NewListPayloadShapeError(
			fmt.Sprintf("list response must be an object or array, got %T", value),
			nil,
		)
	}
}

func listItems(values []any) ([]resource.Payload, error) {
	items := make([]resource.Payload, 0, len(values))
	for idx, value := range values {
		item, ok := value.(map[string]any)
		if !ok {
			return nil, server.NewListPayloadShapeError(
				fmt.Sprintf("list item %d must be an object, got %T", idx, value),
				nil,
			)
		}
		items = append(items, item)
	}
	return items, nil
}
