package cli

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/internal/cli/testkit"
	"github.com/crmarques/rossync/internal/providers/repository/fsstore"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server/servertest"
	"github.com/crmarques/rossync/workspace"
)

const testBaseURL = "https://dev.example.com/api/v1"

func testDeps(t *testing.T) Dependencies {
	t.Helper()

	remote := servertest.NewFakeRemote(testBaseURL, 0)
	remote.Put(resource.Workspace, 1, resource.Payload{
		"name":         "Main",
		"organization": testBaseURL + "/organizations/1",
	})
	remote.Put(resource.Queue, 100, resource.Payload{
		"name":      "Inbound",
		"workspace": remote.URL(resource.Workspace, 1),
	})

	ws := &workspace.Workspace{
		Store:  fsstore.NewLocalObjectStore(t.TempDir()),
		Remote: remote,
		OrgID:  1,
	}
	return Dependencies{
		Workspaces: func(_ context.Context, name string) (*workspace.Workspace, config.Context, error) {
			if name != "" && name != "dev" {
				return nil, config.Context{}, faults.NewTypedError(faults.NotFoundError, "context not found", nil)
			}
			return ws, config.Context{Name: "dev"}, nil
		},
	}
}

func executeForTest(deps Dependencies, args ...string) (string, string, error) {
	root, _ := newRootCommand(deps)
	return testkit.ExecuteCommandForTestWithStreams(root, "", args...)
}

func assertTypedCategory(t *testing.T, err error, category faults.ErrorCategory) {
	t.Helper()

	if err == nil {
		t.Fatalf("expected %q error, got nil", category)
	}
	var typedErr *faults.TypedError
	if !errors.As(err, &typedErr) {
		t.Fatalf("expected typed error, got %T: %v", err, err)
	}
	if typedErr.Category != category {
		t.Fatalf("expected %q category, got %q", category, typedErr.Category)
	}
}

func TestRequiredCommandPathsRegistered(t *testing.T) {
	t.Parallel()

	requiredPaths := []string{
		"pull",
		"diff",
		"push",
		"objects",
		"copy",
		"deploy",
		"compare",
		"mapping",
		"mapping show",
		"context",
		"context add",
		"context use",
		"context show",
		"mcp",
		"version",
	}

	pathSet := make(map[string]struct{})
	for _, path := range testkit.RegisteredPaths(NewRootCommand(testDeps(t)), nil) {
		pathSet[testkit.JoinPath(path)] = struct{}{}
	}

	for _, required := range requiredPaths {
		if _, ok := pathSet[required]; !ok {
			t.Fatalf("expected command path %q to be registered", required)
		}
	}
}

func TestRootWithoutArgsShowsHelp(t *testing.T) {
	t.Parallel()

	output, _, err := executeForTest(testDeps(t))
	if err != nil {
		t.Fatalf("root command returned error: %v", err)
	}
	if !strings.Contains(output, "Workspace Commands:") || !strings.Contains(output, "Environment Commands:") {
		t.Fatalf("expected grouped help output, got %q", output)
	}
	if !strings.Contains(output, "\n  deploy ") {
		t.Fatalf("expected deploy command in root help, got %q", output)
	}
}

func TestGlobalFlagValidation(t *testing.T) {
	t.Parallel()

	t.Run("unknown_output_format", func(t *testing.T) {
		t.Parallel()
		_, _, err := executeForTest(testDeps(t), "--output", "xml", "version")
		assertTypedCategory(t, err, faults.ValidationError)
	})

	t.Run("mcp_rejects_structured_output", func(t *testing.T) {
		t.Parallel()
		_, _, err := executeForTest(testDeps(t), "--output", "json", "mcp")
		assertTypedCategory(t, err, faults.ValidationError)
	})

	t.Run("unknown_trace_exporter", func(t *testing.T) {
		t.Parallel()
		_, _, err := executeForTest(testDeps(t), "--trace", "zipkin", "version")
		assertTypedCategory(t, err, faults.ValidationError)
	})
}

func TestGlobalFlagsParse(t *testing.T) {
	t.Parallel()

	output, _, err := executeForTest(testDeps(t), "-c", "dev", "-n", "-o", "json", "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(output, "\"version\"") {
		t.Fatalf("expected json version output, got %q", output)
	}
}

func TestDebugFlagPrintsTraceOutput(t *testing.T) {
	t.Parallel()

	_, debugOutput, err := executeForTest(testDeps(t), "--debug", "version")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(debugOutput, "root flags") {
		t.Fatalf("expected root debug trace, got %q", debugOutput)
	}
}

func TestPullThenDiffThroughRoot(t *testing.T) {
	t.Parallel()

	deps := testDeps(t)

	output, _, err := executeForTest(deps, "pull")
	if err != nil {
		t.Fatalf("pull returned error: %v", err)
	}
	if !strings.Contains(output, "2 pulled, 0 failed") {
		t.Fatalf("unexpected pull output %q", output)
	}

	output, _, err = executeForTest(deps, "diff")
	if err != nil {
		t.Fatalf("diff returned error: %v", err)
	}
	if strings.TrimSpace(output) != "no changes" {
		t.Fatalf("expected clean diff after pull, got %q", output)
	}
}

func TestUnknownContextMapsToNotFound(t *testing.T) {
	t.Parallel()

	_, _, err := executeForTest(testDeps(t), "--context", "prod", "diff")
	assertTypedCategory(t, err, faults.NotFoundError)
	if got := ExitCodeForError(err); got != 3 {
		t.Fatalf("ExitCodeForError() = %d, want 3", got)
	}
}

func TestMetricsFileWrittenOnFinish(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "metrics.prom")
	root, state := newRootCommand(testDeps(t))
	if _, _, err := testkit.ExecuteCommandForTestWithStreams(root, "", "--metrics-file", path, "version"); err != nil {
		t.Fatalf("version returned error: %v", err)
	}
	if err := state.finish(context.Background()); err != nil {
		t.Fatalf("finish returned error: %v", err)
	}
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("expected metrics file at %s: %v", path, err)
	}
}

func TestExitCodeForError(t *testing.T) {
	t.Parallel()

	testCases := []struct {
		err  error
		want int
	}{
		{err: nil, want: 0},
		{err: errors.New("plain"), want: 1},
		{err: faults.NewTypedError(faults.ValidationError, "bad", nil), want: 2},
		{err: faults.NewTypedError(faults.NotFoundError, "missing", nil), want: 3},
		{err: faults.NewTypedError(faults.AuthError, "denied", nil), want: 4},
		{err: faults.NewTypedError(faults.ConflictError, "conflict", nil), want: 5},
		{err: faults.NewTypedError(faults.TransportError, "down", nil), want: 6},
		{err: faults.NewTypedError(faults.ParseError, "garbled", nil), want: 7},
		{err: faults.NewTypedError(faults.InternalError, "2 object(s) failed", nil), want: 1},
	}

	for _, testCase := range testCases {
		if got := ExitCodeForError(testCase.err); got != testCase.want {
			t.Fatalf("ExitCodeForError(%v) = %d, want %d", testCase.err, got, testCase.want)
		}
	}
}
