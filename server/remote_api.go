package server

import (
	"context"

	"github.com/crmarques/rossync/resource"
)

// RemoteAPI is the remote object store. Every method performs exactly one
// logical call; List follows pagination until exhausted.
type RemoteAPI interface {
	// BaseURL is the API root that foreign-key URLs are built against.
	BaseURL() string
	Retrieve(ctx context.Context, objectType resource.ObjectType, id int64) (resource.Payload, error)
	List(ctx context.Context, objectType resource.ObjectType, filters map[string]string) ([]resource.Payload, error)
	Create(ctx context.Context, objectType resource.ObjectType, payload resource.Payload) (resource.Payload, error)
	// Update applies a partial update (PATCH) to one object.
	Update(ctx context.Context, objectType resource.ObjectType, id int64, payload resource.Payload) (resource.Payload, error)
	// Request is the raw-path escape for endpoints without a typed helper,
	// such as inboxes. path is relative to BaseURL.
	Request(ctx context.Context, method string, path string, body resource.Payload) (resource.Payload, error)
}
