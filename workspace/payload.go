package workspace

import (
	"github.com/crmarques/rossync/compare"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/schemacontent"
)

// inboxImmutableFields are generated or fixed at creation and rejected on
// update.
var inboxImmutableFields = []string{"queues", "queue", "email", "email_hash"}

// updatePayload prepares a local snapshot for an update call on the same
// environment: ignored fields removed, schema content cleaned and inbox
// immutable fields stripped.
func updatePayload(objectType resource.ObjectType, data resource.Payload) resource.Payload {
	payload := compare.StripIgnored(objectType, data)
	switch objectType {
	case resource.Schema:
		payload = schemacontent.CleanPayload(payload)
	case resource.Inbox:
		for _, field := range inboxImmutableFields {
			delete(payload, field)
		}
	}
	return payload
}
