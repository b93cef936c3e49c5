package yamlutil

import (
	"strings"
	"testing"
)

func TestMarshalUsesTwoSpaceIndent(t *testing.T) {
	t.Parallel()

	encoded, err := Marshal(map[string]any{"api": map[string]any{"org-id": 42}})
	if err != nil {
		t.Fatalf("Marshal returned error: %v", err)
	}
	if got, want := string(encoded), "api:\n  org-id: 42\n"; got != want {
		t.Fatalf("Marshal() = %q, want %q", got, want)
	}
}

func TestDecodeStrictRejectsUnknownKeys(t *testing.T) {
	t.Parallel()

	type target struct {
		Name string `yaml:"name"`
	}

	var ok target
	if err := DecodeStrict([]byte("name: prod\n"), &ok); err != nil || ok.Name != "prod" {
		t.Fatalf("DecodeStrict() = %#v, %v", ok, err)
	}

	var rejected target
	err := DecodeStrict([]byte("name: prod\nbase-url: x\n"), &rejected)
	if err == nil || !strings.Contains(err.Error(), "base-url") {
		t.Fatalf("expected unknown field error, got %v", err)
	}
}
