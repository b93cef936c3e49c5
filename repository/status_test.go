package repository

import (
	"context"
	"testing"
)

func TestIsModifiedStatus(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		name string
		line string
		want bool
	}{
		{name: "worktree_modified", line: " M file.json", want: true},
		{name: "staged_modified", line: "M  file.json", want: true},
		{name: "staged_and_worktree_modified", line: "MM file.json", want: true},
		{name: "added_then_modified", line: "AM file.json", want: true},
		{name: "untracked", line: "?? file.json", want: false},
		{name: "staged_new", line: "A  file.json", want: false},
		{name: "deleted", line: " D file.json", want: false},
		{name: "empty", line: "", want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			if got := IsModifiedStatus(tc.line); got != tc.want {
				t.Fatalf("IsModifiedStatus(%q) = %v, want %v", tc.line, got, tc.want)
			}
		})
	}
}

func TestNoChangesReportsNothing(t *testing.T) {
	t.Parallel()

	modified, err := NoChanges{}.ModifiedPaths(context.Background(), []string{"a.json"})
	if err != nil {
		t.Fatalf("ModifiedPaths returned error: %v", err)
	}
	if modified["a.json"] {
		t.Fatal("expected no modified paths")
	}
}
