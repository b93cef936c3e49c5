package cli

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/crmarques/rossync/debugctx"
	"github.com/crmarques/rossync/faults"
	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/internal/cli/config"
	"github.com/crmarques/rossync/internal/cli/environment"
	mcpcmd "github.com/crmarques/rossync/internal/cli/mcp"
	"github.com/crmarques/rossync/internal/cli/snapshot"
	"github.com/crmarques/rossync/internal/cli/version"
	"github.com/crmarques/rossync/internal/telemetry"
	"github.com/spf13/cobra"
)

const usageTemplate = `Usage:{{if .Runnable}}
  {{.UseLine}}{{end}}{{if .HasAvailableSubCommands}}
  {{.CommandPath}} [command]{{end}}{{if gt (len .Aliases) 0}}

Aliases:
  {{.NameAndAliases}}{{end}}{{if .HasExample}}

Examples:
{{.Example}}{{end}}{{if .HasAvailableSubCommands}}{{$cmds := .Commands}}{{if eq (len .Groups) 0}}

Available Commands:{{range $cmds}}{{if (or .IsAvailableCommand (eq .Name "help"))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{else}}{{range $group := .Groups}}

{{.Title}}{{range $cmds}}{{if (and (eq .GroupID $group.ID) (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{if not .AllChildCommandsHaveGroup}}

Additional Commands:{{range $cmds}}{{if (and (eq .GroupID "") (or .IsAvailableCommand (eq .Name "help")))}}
  {{rpad .Name .NamePadding }} {{.Short}}{{end}}{{end}}{{end}}{{end}}{{end}}{{if .LocalNonPersistentFlags.HasAvailableFlags}}

Flags:
{{.LocalNonPersistentFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{if or .HasAvailableInheritedFlags .HasAvailablePersistentFlags}}

Global Flags:
{{if .HasAvailableInheritedFlags}}{{.InheritedFlags.FlagUsages | trimTrailingWhitespaces}}
{{end}}{{if and .HasAvailableInheritedFlags .HasAvailablePersistentFlags}}
{{end}}{{if .HasAvailablePersistentFlags}}{{.PersistentFlags.FlagUsages | trimTrailingWhitespaces}}{{end}}{{end}}{{if .HasHelpSubCommands}}

Additional help topics:{{range .Commands}}{{if .IsAdditionalHelpTopicCommand}}
  {{rpad .CommandPath .CommandPathPadding}} {{.Short}}{{end}}{{end}}{{end}}
{{if .HasAvailableSubCommands}}Use "{{.CommandPath}} [command] --help" for more information about a command.{{end}}
`

// runtimeState carries what the root pre-run sets up and Execute tears down.
type runtimeState struct {
	flags          *common.GlobalFlags
	shutdownTraces func(context.Context) error
}

func (s *runtimeState) finish(ctx context.Context) error {
	var errs []error
	if s.shutdownTraces != nil {
		if err := s.shutdownTraces(ctx); err != nil {
			errs = append(errs, err)
		}
		s.shutdownTraces = nil
	}
	if s.flags != nil && strings.TrimSpace(s.flags.MetricsFile) != "" {
		if err := telemetry.WriteMetricsFile(s.flags.MetricsFile); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func NewRootCommand(deps Dependencies) *cobra.Command {
	root, _ := newRootCommand(deps)
	return root
}

func newRootCommand(deps Dependencies) (*cobra.Command, *runtimeState) {
	commandDeps := deps.commandDependencies()
	var globalFlags common.GlobalFlags
	state := &runtimeState{flags: &globalFlags}

	root := &cobra.Command{
		Use:   "rossync",
		Short: "Sync Rossum organization configuration with a local workspace",
		RunE: func(command *cobra.Command, _ []string) error {
			return command.Help()
		},
		Args: cobra.NoArgs,
		PersistentPreRunE: func(command *cobra.Command, _ []string) error {
			if err := common.ValidateOutputFormat(globalFlags.Output); err != nil {
				return err
			}
			if err := common.ValidateOutputFormatForCommandPath(command.CommandPath(), globalFlags.Output); err != nil {
				return err
			}

			commandContext := command.Context()
			if commandContext == nil {
				commandContext = context.Background()
			}
			commandContext = common.WithContextName(commandContext, globalFlags.Context)
			commandContext = debugctx.WithEnabled(commandContext, globalFlags.Debug)
			commandContext = debugctx.WithLogger(commandContext, debugctx.NewWriterLogger(command.ErrOrStderr(), globalFlags.Debug))

			shutdown, err := telemetry.SetupTracing(commandContext, telemetry.TraceConfig{
				Exporter: globalFlags.Trace,
				Endpoint: os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
				Insecure: os.Getenv("OTEL_EXPORTER_OTLP_INSECURE") == "true",
				Writer:   command.ErrOrStderr(),
				Version:  version.Version,
			})
			if err != nil {
				return common.ValidationError("flag --trace is invalid", err)
			}
			state.shutdownTraces = shutdown
			command.SetContext(commandContext)

			debugctx.Printf(
				command.Context(),
				"root flags context=%q output=%q no_status=%t no_color=%t trace=%q command=%q",
				globalFlags.Context,
				globalFlags.Output,
				globalFlags.NoStatus,
				globalFlags.NoColor,
				globalFlags.Trace,
				command.CommandPath(),
			)

			return nil
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetUsageTemplate(usageTemplate)
	defaultHelpFunc := root.HelpFunc()
	root.SetHelpFunc(func(command *cobra.Command, args []string) {
		originalOut := command.OutOrStdout()
		originalErr := command.ErrOrStderr()

		buffer := &bytes.Buffer{}
		command.SetOut(buffer)
		command.SetErr(buffer)
		defaultHelpFunc(command, args)
		command.SetOut(originalOut)
		command.SetErr(originalErr)

		rendered := strings.TrimRight(buffer.String(), "\n")
		if rendered == "" {
			_, _ = fmt.Fprintln(originalOut)
			return
		}

		_, _ = fmt.Fprintln(originalOut, rendered)
	})

	common.BindGlobalFlags(root, &globalFlags)
	registerContextFlagCompletion(root, commandDeps)
	root.PersistentFlags().BoolP("help", "h", false, "help for command")

	root.AddGroup(
		&cobra.Group{ID: "sync", Title: "Workspace Commands:"},
		&cobra.Group{ID: "environment", Title: "Environment Commands:"},
		&cobra.Group{ID: "other", Title: "Other Commands:"},
	)

	for _, command := range snapshot.NewCommands(commandDeps, &globalFlags) {
		command.GroupID = "sync"
		root.AddCommand(command)
	}
	for _, command := range environment.NewCommands(commandDeps, &globalFlags) {
		command.GroupID = "environment"
		root.AddCommand(command)
	}

	otherCommands := []*cobra.Command{
		config.NewCommand(commandDeps, &globalFlags),
		mcpcmd.NewCommand(commandDeps),
		version.NewCommand(&globalFlags),
	}
	for _, command := range otherCommands {
		command.GroupID = "other"
		root.AddCommand(command)
	}
	root.SetCompletionCommandGroupID("other")

	wrapUsageForMissingPositionalParameterErrors(root)

	return root, state
}

func registerContextFlagCompletion(root *cobra.Command, deps common.CommandDependencies) {
	_ = root.RegisterFlagCompletionFunc("context", func(command *cobra.Command, _ []string, _ string) ([]string, cobra.ShellCompDirective) {
		contexts, err := common.RequireContexts(deps)
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		items, err := contexts.List(command.Context())
		if err != nil {
			return nil, cobra.ShellCompDirectiveNoFileComp
		}
		names := make([]string, 0, len(items))
		for _, item := range items {
			names = append(names, item.Name)
		}
		return names, cobra.ShellCompDirectiveNoFileComp
	})
}

func wrapUsageForMissingPositionalParameterErrors(root *cobra.Command) {
	if root == nil {
		return
	}

	var wrapCommandTree func(*cobra.Command)
	wrapCommandTree = func(command *cobra.Command) {
		if command == nil {
			return
		}

		command.Args = wrapCommandErrorHandlerWithUsage(command.Args)
		command.PersistentPreRunE = wrapCommandErrorHandlerWithUsage(command.PersistentPreRunE)
		command.PreRunE = wrapCommandErrorHandlerWithUsage(command.PreRunE)
		command.RunE = wrapCommandErrorHandlerWithUsage(command.RunE)

		for _, child := range command.Commands() {
			wrapCommandTree(child)
		}
	}

	wrapCommandTree(root)
}

func wrapCommandErrorHandlerWithUsage(handler func(*cobra.Command, []string) error) func(*cobra.Command, []string) error {
	if handler == nil {
		return nil
	}

	return func(command *cobra.Command, args []string) error {
		err := handler(command, args)
		if shouldPrintUsageForMissingPositionalParameter(command, err, args) {
			printCommandUsageOnError(command)
		}
		return err
	}
}

func shouldPrintUsageForMissingPositionalParameter(command *cobra.Command, err error, args []string) bool {
	if err == nil || len(args) != 0 {
		return false
	}
	if !commandDeclaresPositionalParameters(command) {
		return false
	}

	message := strings.TrimSpace(strings.ToLower(err.Error()))
	if message == "" {
		return false
	}

	if faults.IsCategory(err, faults.ValidationError) {
		if strings.HasPrefix(message, "flag ") {
			return false
		}
		if strings.Contains(message, "input is required") {
			return false
		}
		if strings.Contains(message, "interactive terminal is required") {
			return false
		}
		if strings.Contains(message, "value is required") {
			return false
		}
		return strings.Contains(message, " is required")
	}

	return strings.Contains(message, "arg(s)") && strings.Contains(message, "received 0")
}

func commandDeclaresPositionalParameters(command *cobra.Command) bool {
	if command == nil {
		return false
	}

	use := strings.TrimSpace(command.Use)
	return strings.Contains(use, "[") || strings.Contains(use, "<")
}

func printCommandUsageOnError(command *cobra.Command) {
	if command == nil {
		return
	}

	rendered := strings.TrimRight(command.UsageString(), "\n")
	if rendered == "" {
		return
	}

	_, _ = fmt.Fprintln(command.ErrOrStderr(), rendered)
}
