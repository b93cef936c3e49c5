package fsutil

import (
	"os"
	"path/filepath"
	"testing"
)

func TestIsPathUnderRoot(t *testing.T) {
	t.Parallel()

	root := filepath.Clean("/tmp/root")
	if !IsPathUnderRoot(root, filepath.Join(root, "a", "b")) {
		t.Fatal("expected child path to be under root")
	}
	if IsPathUnderRoot(root, filepath.Clean("/tmp/other/file")) {
		t.Fatal("expected unrelated path to be outside root")
	}
}

func TestIsPathUnderRootRejectsSymlinkEscape(t *testing.T) {
	t.Parallel()

	root := t.TempDir()
	outside := t.TempDir()

	linkPath := filepath.Join(root, "link")
	if err := os.Symlink(outside, linkPath); err != nil {
		t.Fatalf("failed to create symlink: %v", err)
	}

	candidate := filepath.Join(linkPath, "escaped.txt")
	if IsPathUnderRoot(root, candidate) {
		t.Fatalf("expected symlinked path %q to be rejected under root %q", candidate, root)
	}
}

func TestWriteFileAtomicReplacesContent(t *testing.T) {
	t.Parallel()

	target := filepath.Join(t.TempDir(), "nested", "object.json")
	if err := WriteFileAtomic(target, []byte("first"), 0o644); err != nil {
		t.Fatalf("WriteFileAtomic returned error: %v", err)
	}
	if err := WriteFileAtomic(target, []byte("second"), 0o600); err != nil {
		t.Fatalf("WriteFileAtomic returned error: %v", err)
	}

	content, err := os.ReadFile(target)
	if err != nil {
		t.Fatalf("failed to read target: %v", err)
	}
	if string(content) != "second" {
		t.Fatalf("expected replaced content, got %q", content)
	}
	info, err := os.Stat(target)
	if err != nil {
		t.Fatalf("failed to stat target: %v", err)
	}
	if info.Mode().Perm() != 0o600 {
		t.Fatalf("expected 0600 permissions, got %v", info.Mode().Perm())
	}

	entries, err := os.ReadDir(filepath.Dir(target))
	if err != nil {
		t.Fatalf("failed to list directory: %v", err)
	}
	if len(entries) != 1 {
		t.Fatalf("expected temp files to be cleaned up, got %d entries", len(entries))
	}
}
