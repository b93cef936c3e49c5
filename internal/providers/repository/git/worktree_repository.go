package git

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"time"

	"github.com/crmarques/rossync/debugctx"
	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/repository"
	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/plumbing/object"
)

var _ repository.ChangeDetector = (*WorktreeRepository)(nil)
var _ repository.SnapshotCommitter = (*WorktreeRepository)(nil)

const (
	defaultCommitMessage = "rossync: update workspace snapshot"
	commitAuthorName     = "rossync"
	commitAuthorEmail    = "rossync@local"
)

// WorktreeRepository reads and records snapshot state through the git
// worktree that contains the workspace directory.
type WorktreeRepository struct {
	root     string
	autoInit bool
}

func NewWorktreeRepository(root string, autoInit bool) *WorktreeRepository {
	return &WorktreeRepository{root: filepath.Clean(root), autoInit: autoInit}
}

type worktreeStatus struct {
	root   string
	status gogit.Status
}

// ModifiedPaths reports, for each path, whether git sees uncommitted edits
// to a tracked file. Status is computed once per repository. Paths outside a
// repository, and any git failure, count as not modified.
func (r *WorktreeRepository) ModifiedPaths(ctx context.Context, paths []string) (map[string]bool, error) {
	result := make(map[string]bool, len(paths))
	byDir := map[string]*worktreeStatus{}
	byRoot := map[string]*worktreeStatus{}

	for _, path := range paths {
		result[path] = false

		absolute, err := resolvePath(path)
		if err != nil {
			debugctx.Printf(ctx, "git status skipped for %s: %v", path, err)
			continue
		}

		dir := filepath.Dir(absolute)
		status, seen := byDir[dir]
		if !seen {
			status = r.loadStatus(ctx, dir, byRoot)
			byDir[dir] = status
		}
		if status == nil {
			continue
		}

		relative, err := filepath.Rel(status.root, absolute)
		if err != nil {
			continue
		}
		fileStatus, ok := status.status[filepath.ToSlash(relative)]
		if !ok {
			continue
		}
		line := statusCodeString(fileStatus.Staging) + statusCodeString(fileStatus.Worktree) + " " + filepath.ToSlash(relative)
		result[path] = repository.IsModifiedStatus(line)
	}

	return result, nil
}

func (r *WorktreeRepository) loadStatus(ctx context.Context, dir string, byRoot map[string]*worktreeStatus) *worktreeStatus {
	repo, err := gogit.PlainOpenWithOptions(dir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		if !errors.Is(err, gogit.ErrRepositoryNotExists) {
			debugctx.Printf(ctx, "git open failed for %s: %v", dir, err)
		}
		return nil
	}

	worktree, err := repo.Worktree()
	if err != nil {
		debugctx.Printf(ctx, "git worktree unavailable for %s: %v", dir, err)
		return nil
	}

	root, err := resolvePath(worktree.Filesystem.Root())
	if err != nil {
		return nil
	}
	if cached, ok := byRoot[root]; ok {
		return cached
	}

	status, err := worktree.Status()
	if err != nil {
		debugctx.Printf(ctx, "git status failed for %s: %v", root, err)
		byRoot[root] = nil
		return nil
	}

	loaded := &worktreeStatus{root: root, status: status}
	byRoot[root] = loaded
	return loaded
}

// CommitSnapshot stages everything below the workspace root and commits it.
// It reports false when there was nothing to commit.
func (r *WorktreeRepository) CommitSnapshot(ctx context.Context, message string) (bool, error) {
	repo, err := r.openRepository(ctx)
	if err != nil {
		return false, err
	}

	worktree, err := repo.Worktree()
	if err != nil {
		return false, internalError("failed to open git worktree", err)
	}

	status, err := worktree.Status()
	if err != nil {
		return false, internalError("failed to inspect git worktree status", err)
	}
	if status.IsClean() {
		return false, nil
	}

	worktreeRoot, err := resolvePath(worktree.Filesystem.Root())
	if err != nil {
		return false, internalError("failed to resolve git worktree root", err)
	}
	workspaceRoot, err := resolvePath(r.root)
	if err != nil {
		return false, internalError("failed to resolve workspace root", err)
	}
	relative, err := filepath.Rel(worktreeRoot, workspaceRoot)
	if err != nil {
		return false, internalError("workspace is not inside the git worktree", err)
	}

	if relative == "." {
		err = worktree.AddGlob(".")
	} else {
		_, err = worktree.Add(filepath.ToSlash(relative))
	}
	if err != nil {
		return false, internalError("failed to stage git changes", err)
	}

	commitMessage := strings.TrimSpace(message)
	if commitMessage == "" {
		commitMessage = defaultCommitMessage
	}

	if _, err := worktree.Commit(commitMessage, &gogit.CommitOptions{
		Author: &object.Signature{
			Name:  commitAuthorName,
			Email: commitAuthorEmail,
			When:  time.Now(),
		},
	}); err != nil {
		if errors.Is(err, gogit.ErrEmptyCommit) {
			return false, nil
		}
		return false, internalError("failed to commit git changes", err)
	}

	debugctx.Printf(ctx, "committed workspace snapshot in %s", worktreeRoot)
	return true, nil
}

func (r *WorktreeRepository) openRepository(ctx context.Context) (*gogit.Repository, error) {
	repo, err := gogit.PlainOpenWithOptions(r.root, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err == nil {
		return repo, nil
	}
	if !errors.Is(err, gogit.ErrRepositoryNotExists) {
		return nil, internalError("failed to open git repository", err)
	}
	if !r.autoInit {
		return nil, notFoundError("workspace is not inside a git repository and workspace.git-init is false")
	}

	debugctx.Printf(ctx, "initializing git repository in %s", r.root)
	repo, err = gogit.PlainInit(r.root, false)
	if err != nil {
		return nil, internalError("failed to initialize git repository", err)
	}
	return repo, nil
}

func resolvePath(path string) (string, error) {
	absolute, err := filepath.Abs(path)
	if err != nil {
		return "", err
	}
	if resolved, err := filepath.EvalSymlinks(absolute); err == nil {
		return resolved, nil
	}
	// The file itself may not exist yet; resolve its directory instead.
	resolvedDir, err := filepath.EvalSymlinks(filepath.Dir(absolute))
	if err != nil {
		return absolute, nil
	}
	return filepath.Join(resolvedDir, filepath.Base(absolute)), nil
}

func statusCodeString(code gogit.StatusCode) string {
	if code == 0 {
		return " "
	}
	return string(code)
}

func notFoundError(message string) error {
	return faults.NewTypedError(faults.NotFoundError, message, nil)
}

func internalError(message string, cause error) error {
	return faults.NewTypedError(faults.InternalError, message, cause)
}
