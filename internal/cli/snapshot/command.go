// Package snapshot holds the commands that read or write the local snapshot
// of the current context: pull, diff, push and objects.
package snapshot

import (
	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/spf13/cobra"
)

func NewCommands(deps common.CommandDependencies, globalFlags *common.GlobalFlags) []*cobra.Command {
	return []*cobra.Command{
		newPullCommand(deps, globalFlags),
		newDiffCommand(deps, globalFlags),
		newPushCommand(deps, globalFlags),
		newObjectsCommand(deps, globalFlags),
	}
}
