// Package testkit runs cobra command trees against in-memory streams.
package testkit

import (
	"bytes"
	"strings"
	"sync"

	"github.com/spf13/cobra"
)

// cobra writes to shared annotation maps during help and completion, so
// parallel tests take turns.
var executeMu sync.Mutex

func ExecuteCommandForTest(command *cobra.Command, stdin string, args ...string) (string, error) {
	output, _, err := ExecuteCommandForTestWithStreams(command, stdin, args...)
	return output, err
}

func ExecuteCommandForTestWithStreams(command *cobra.Command, stdin string, args ...string) (string, string, error) {
	executeMu.Lock()
	defer executeMu.Unlock()

	stdout := &bytes.Buffer{}
	stderr := &bytes.Buffer{}
	command.SetOut(stdout)
	command.SetErr(stderr)
	command.SetIn(strings.NewReader(stdin))
	if args == nil {
		args = []string{}
	}
	command.SetArgs(args)

	err := command.Execute()
	return stdout.String(), stderr.String(), err
}

// RegisteredPaths lists every user-facing command path below command,
// skipping help and the hidden completion helpers.
func RegisteredPaths(command *cobra.Command, prefix []string) [][]string {
	paths := make([][]string, 0)
	for _, child := range command.Commands() {
		name := child.Name()
		if name == "help" || strings.HasPrefix(name, "__") {
			continue
		}
		current := append(append([]string{}, prefix...), name)
		paths = append(paths, current)
		paths = append(paths, RegisteredPaths(child, current)...)
	}
	return paths
}

func JoinPath(path []string) string {
	if len(path) == 0 {
		return "root"
	}
	return strings.Join(path, " ")
}
