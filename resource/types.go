package resource

import (
	"fmt"
	"strings"
	"time"

	"github.com/crmarques/rossync/faults"
)

type Value = any

// Payload is a remote object body as decoded from JSON.
type Payload = map[string]any

type ObjectType string

const (
	Workspace     ObjectType = "workspace"
	Queue         ObjectType = "queue"
	Schema        ObjectType = "schema"
	Inbox         ObjectType = "inbox"
	Hook          ObjectType = "hook"
	Connector     ObjectType = "connector"
	Engine        ObjectType = "engine"
	EmailTemplate ObjectType = "email_template"
	Rule          ObjectType = "rule"
)

// AllTypes lists every synchronizable type in dependency order.
var AllTypes = []ObjectType{
	Workspace,
	Queue,
	Schema,
	Inbox,
	Hook,
	Connector,
	Engine,
	EmailTemplate,
	Rule,
}

var typeCollections = map[ObjectType]string{
	Workspace:     "workspaces",
	Queue:         "queues",
	Schema:        "schemas",
	Inbox:         "inboxes",
	Hook:          "hooks",
	Connector:     "connectors",
	Engine:        "engines",
	EmailTemplate: "email_templates",
	Rule:          "rules",
}

func ParseObjectType(value string) (ObjectType, error) {
	candidate := ObjectType(strings.ToLower(strings.TrimSpace(value)))
	if _, ok := typeCollections[candidate]; ok {
		return candidate, nil
	}
	for objectType, collection := range typeCollections {
		if collection == string(candidate) {
			return objectType, nil
		}
	}
	return "", faults.NewTypedError(faults.ValidationError, fmt.Sprintf("unsupported object type %q", value), nil)
}

// TypeForCollection maps a remote collection segment such as "queues" back to
// its object type.
func TypeForCollection(collection string) (ObjectType, bool) {
	for objectType, candidate := range typeCollections {
		if candidate == collection {
			return objectType, true
		}
	}
	return "", false
}

func (t ObjectType) Valid() bool {
	_, ok := typeCollections[t]
	return ok
}

// Folder is the local snapshot subdirectory for the type.
func (t ObjectType) Folder() string {
	return typeCollections[t]
}

// Collection is the remote API path segment for the type.
func (t ObjectType) Collection() string {
	return typeCollections[t]
}

func (t ObjectType) Diffable() bool {
	return t.Valid()
}

// Pushable reports whether local edits may be sent back. Inbox is pushable
// only with its immutable fields stripped.
func (t ObjectType) Pushable() bool {
	return t.Valid()
}

type Meta struct {
	PulledAt         time.Time  `json:"pulled_at"`
	RemoteModifiedAt *time.Time `json:"remote_modified_at"`
	ObjectType       ObjectType `json:"object_type"`
	ObjectID         int64      `json:"object_id"`
}

// LocalObject is one snapshot file on disk.
type LocalObject struct {
	Meta Meta    `json:"meta"`
	Data Payload `json:"data"`
}

func (o LocalObject) Name() string {
	return NameOf(o.Data)
}

// NameOf returns the display name carried by a payload.
func NameOf(data Payload) string {
	name, _ := data["name"].(string)
	return name
}

// ObjectRef identifies an object inside operation results.
type ObjectRef struct {
	Type ObjectType `json:"type" yaml:"type"`
	ID   int64      `json:"id" yaml:"id"`
	Name string     `json:"name" yaml:"name"`
}

func (r ObjectRef) String() string {
	return fmt.Sprintf("%s %d (%s)", r.Type, r.ID, r.Name)
}
