package compare

import (
	"reflect"
	"testing"

	"github.com/crmarques/rossync/idmap"
	"github.com/crmarques/rossync/resource"
)

func TestChangedFieldsReportsNameOnly(t *testing.T) {
	t.Parallel()

	local := resource.Payload{"name": "Q", "settings": map[string]any{"a": int64(1)}}
	remote := resource.Payload{"name": "Q2", "settings": map[string]any{"a": int64(1)}}

	got := ChangedFields(local, remote, resource.Queue, Options{})
	if !reflect.DeepEqual(got, []string{"name"}) {
		t.Fatalf("ChangedFields() = %v, want [name]", got)
	}
}

func TestChangedFieldsIgnoresHousekeepingFields(t *testing.T) {
	t.Parallel()

	local := resource.Payload{
		"id":           int64(1),
		"url":          "https://a/queues/1",
		"modified_at":  "2024-01-01T00:00:00Z",
		"organization": "https://a/organizations/1",
		"rir_url":      "https://rir/a",
		"_local_note":  "scratch",
		"name":         "Q",
	}
	remote := resource.Payload{
		"id":           int64(1),
		"url":          "https://a/queues/1",
		"modified_at":  "2024-06-01T00:00:00Z",
		"organization": "https://a/organizations/1",
		"rir_url":      "https://rir/b",
		"name":         "Q",
	}

	if got := ChangedFields(local, remote, resource.Queue, Options{}); len(got) != 0 {
		t.Fatalf("expected no changes for ignored fields, got %v", got)
	}
	if got := ChangedFields(local, remote, resource.Schema, Options{}); !reflect.DeepEqual(got, []string{"rir_url"}) {
		t.Fatalf("rir_url is only ignored for queues, got %v", got)
	}
}

func TestChangedFieldsTrimsMessageAtAnyDepth(t *testing.T) {
	t.Parallel()

	local := resource.Payload{
		"message": "Hello\n",
		"nested":  map[string]any{"message": "Body  \n\n"},
	}
	remote := resource.Payload{
		"message": "Hello",
		"nested":  map[string]any{"message": "Body"},
	}
	if got := ChangedFields(local, remote, resource.EmailTemplate, Options{}); len(got) != 0 {
		t.Fatalf("expected trailing whitespace in message to be ignored, got %v", got)
	}

	remote["message"] = "  Hello"
	if got := ChangedFields(local, remote, resource.EmailTemplate, Options{}); !reflect.DeepEqual(got, []string{"message"}) {
		t.Fatalf("leading whitespace must still differ, got %v", got)
	}
}

func TestChangedFieldsTreatsMissingAsNull(t *testing.T) {
	t.Parallel()

	local := resource.Payload{"name": "Q", "description": nil}
	remote := resource.Payload{"name": "Q"}
	if got := ChangedFields(local, remote, resource.Queue, Options{}); len(got) != 0 {
		t.Fatalf("missing and null must compare equal, got %v", got)
	}

	remote["extra"] = "set"
	if got := ChangedFields(local, remote, resource.Queue, Options{}); !reflect.DeepEqual(got, []string{"extra"}) {
		t.Fatalf("expected extra field to differ, got %v", got)
	}
}

func TestFieldDiffsRemapsURLsAcrossEnvironments(t *testing.T) {
	t.Parallel()

	mapping := idmap.New(1, 2)
	mapping.Add(resource.Schema, 50, 70)
	mapping.Add(resource.Queue, 1, 5)
	mapping.Add(resource.Queue, 10, 11)

	source := resource.Payload{
		"schema":  "https://prod.example.com/api/v1/schemas/50",
		"queues":  []any{"https://prod.example.com/api/v1/queues/1", "https://prod.example.com/api/v1/queues/10/"},
		"config":  map[string]any{"code": "fetch('https://prod.example.com/api/v1/queues/1')"},
		"name":    "Hook",
		"comment": "queue 1 stays untouched",
	}
	target := resource.Payload{
		"schema":  "https://sandbox.example.com/api/v1/schemas/70",
		"queues":  []any{"https://sandbox.example.com/api/v1/queues/5", "https://sandbox.example.com/api/v1/queues/11"},
		"config":  map[string]any{"code": "fetch('https://sandbox.example.com/api/v1/queues/5')"},
		"name":    "Hook",
		"comment": "queue 1 stays untouched",
	}

	if diffs := FieldDiffs(source, target, resource.Hook, Options{Mapping: mapping}); len(diffs) != 0 {
		t.Fatalf("expected mapped objects to compare equal, got %#v", diffs)
	}

	target["schema"] = "https://sandbox.example.com/api/v1/schemas/71"
	diffs := FieldDiffs(source, target, resource.Hook, Options{Mapping: mapping})
	if len(diffs) != 1 || diffs[0].Field != "schema" {
		t.Fatalf("expected schema diff, got %#v", diffs)
	}
	if diffs[0].SourceValue != source["schema"] || diffs[0].TargetValue != target["schema"] {
		t.Fatalf("expected original values in diff, got %#v", diffs[0])
	}
}

func TestCrossEnvironmentRemapDoesNotTouchLongerIDs(t *testing.T) {
	t.Parallel()

	mapping := idmap.New(1, 2)
	mapping.Add(resource.Queue, 1, 5)

	source := resource.Payload{"queue": "https://a/queues/10"}
	target := resource.Payload{"queue": "https://b/queues/50"}
	if got := ChangedFields(source, target, resource.EmailTemplate, Options{Mapping: mapping}); !reflect.DeepEqual(got, []string{"queue"}) {
		t.Fatalf("queue 10 must not be rewritten by the mapping for queue 1, got %v", got)
	}
}

func TestStripIgnored(t *testing.T) {
	t.Parallel()

	data := resource.Payload{"id": int64(1), "name": "Inbox", "email_hash": "x", "_meta": true, "filters": map[string]any{}}
	stripped := StripIgnored(resource.Inbox, data)
	if !reflect.DeepEqual(stripped, resource.Payload{"name": "Inbox", "filters": map[string]any{}}) {
		t.Fatalf("StripIgnored() = %#v", stripped)
	}
	if _, ok := data["id"]; !ok {
		t.Fatalf("StripIgnored must not mutate its input")
	}
}

func TestChangedFieldsTreatsIntegralFloatAsInteger(t *testing.T) {
	t.Parallel()

	local := resource.Payload{"default_score_threshold": int64(1), "settings": map[string]any{"ratio": int64(2)}}
	remote := resource.Payload{"default_score_threshold": float64(1), "settings": map[string]any{"ratio": 2.0}}
	if got := ChangedFields(local, remote, resource.Queue, Options{}); len(got) != 0 {
		t.Fatalf("ChangedFields() = %v, want none", got)
	}

	remote["default_score_threshold"] = 1.5
	if got := ChangedFields(local, remote, resource.Queue, Options{}); !reflect.DeepEqual(got, []string{"default_score_threshold"}) {
		t.Fatalf("ChangedFields() = %v, want [default_score_threshold]", got)
	}
}
