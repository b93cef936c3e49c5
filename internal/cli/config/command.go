package config

import (
	"fmt"
	"io"
	"strings"

	configdomain "github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/spf13/cobra"
)

const redacted = "<redacted>"

type contextPrompter interface {
	Select(command *cobra.Command, prompt string, options []string) (string, error)
	Confirm(command *cobra.Command, prompt string, defaultYes bool) (bool, error)
}

type terminalPrompter struct{}

func (terminalPrompter) Select(command *cobra.Command, prompt string, options []string) (string, error) {
	return common.PromptSelect(command, prompt, options)
}

func (terminalPrompter) Confirm(command *cobra.Command, prompt string, defaultYes bool) (bool, error) {
	return common.PromptConfirm(command, prompt, defaultYes)
}

func NewCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return newCommandWithPrompter(deps, globalFlags, terminalPrompter{})
}

func newCommandWithPrompter(
	deps common.CommandDependencies,
	globalFlags *common.GlobalFlags,
	prompter contextPrompter,
) *cobra.Command {
	command := &cobra.Command{
		Use:   "context",
		Short: "Manage contexts",
		Args:  cobra.NoArgs,
	}

	command.AddCommand(
		newAddCommand(deps),
		newDeleteCommand(deps, globalFlags, prompter),
		newListCommand(deps, globalFlags),
		newUseCommand(deps, prompter),
		newShowCommand(deps, globalFlags),
		newCurrentCommand(deps, globalFlags),
		newValidateCommand(deps),
	)

	return command
}

func newAddCommand(deps common.CommandDependencies) *cobra.Command {
	var (
		file       string
		setCurrent bool
	)

	command := &cobra.Command{
		Use:   "add [name]",
		Short: "Add a context from a YAML file or stdin",
		Example: strings.Join([]string{
			"  rossync context add --file prod.yaml",
			"  cat staging.yaml | rossync context add staging --set-current",
		}, "\n"),
		Args: cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}

			cfg, err := decodeContextInput(command, file)
			if err != nil {
				return err
			}
			if len(args) > 0 {
				cfg.Name = strings.TrimSpace(args[0])
			}
			if cfg.Name == "" {
				return common.ValidationError("context name is required", nil)
			}

			if err := contexts.Create(command.Context(), cfg); err != nil {
				return err
			}
			if setCurrent {
				return contexts.SetCurrent(command.Context(), cfg.Name)
			}
			return nil
		},
	}

	command.Flags().StringVarP(&file, "file", "f", "-", "context YAML file (use '-' for stdin)")
	command.Flags().BoolVar(&setCurrent, "set-current", false, "make the added context current")
	return command
}

func newDeleteCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags, prompter contextPrompter) *cobra.Command {
	return &cobra.Command{
		Use:   "delete [name]",
		Short: "Delete a context (interactive when name is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}

			if len(args) > 0 {
				return contexts.Delete(command.Context(), args[0])
			}

			selected, err := selectContext(command, contexts, prompter, "Context to delete")
			if err != nil {
				return err
			}
			if !globalFlags.Yes {
				confirmed, err := prompter.Confirm(command, fmt.Sprintf("Delete context %q?", selected), false)
				if err != nil {
					return err
				}
				if !confirmed {
					return common.WriteText(command, common.OutputText, "delete canceled")
				}
			}
			return contexts.Delete(command.Context(), selected)
		},
	}
}

func newListCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List contexts",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			items, err := contexts.List(command.Context())
			if err != nil {
				return err
			}
			names := make([]string, 0, len(items))
			for _, item := range items {
				names = append(names, item.Name)
			}
			return common.WriteOutput(command, globalFlags.Output, names, func(w io.Writer, value []string) error {
				for _, name := range value {
					if _, writeErr := fmt.Fprintln(w, name); writeErr != nil {
						return writeErr
					}
				}
				return nil
			})
		},
	}
}

func newUseCommand(deps common.CommandDependencies, prompter contextPrompter) *cobra.Command {
	return &cobra.Command{
		Use:   "use [name]",
		Short: "Set current context (interactive when name is omitted)",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(command *cobra.Command, args []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}

			name := ""
			if len(args) > 0 {
				name = args[0]
			} else {
				name, err = selectContext(command, contexts, prompter, "Context to use")
				if err != nil {
					return err
				}
			}
			return contexts.SetCurrent(command.Context(), name)
		},
	}
}

func newShowCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "show",
		Short: "Show the resolved context with credentials redacted",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}

			shown, err := contexts.ResolveContext(command.Context(), configdomain.ContextSelection{Name: globalFlags.Context})
			if err != nil {
				return err
			}

			encoded, err := encodeContext(redactContext(shown))
			if err != nil {
				return err
			}
			_, err = command.OutOrStdout().Write(encoded)
			return err
		},
	}
}

func newCurrentCommand(deps common.CommandDependencies, globalFlags *common.GlobalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "current",
		Short: "Get current context",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			current, err := contexts.GetCurrent(command.Context())
			if err != nil {
				return err
			}
			return common.WriteText(command, globalFlags.Output, current.Name)
		},
	}
}

func newValidateCommand(deps common.CommandDependencies) *cobra.Command {
	var file string

	command := &cobra.Command{
		Use:   "validate",
		Short: "Validate a context YAML file without saving it",
		Args:  cobra.NoArgs,
		RunE: func(command *cobra.Command, _ []string) error {
			contexts, err := common.RequireContexts(deps)
			if err != nil {
				return err
			}
			cfg, err := decodeContextInput(command, file)
			if err != nil {
				return err
			}
			return contexts.Validate(command.Context(), cfg)
		},
	}

	command.Flags().StringVarP(&file, "file", "f", "-", "context YAML file (use '-' for stdin)")
	return command
}

func selectContext(command *cobra.Command, contexts configdomain.ContextService, prompter contextPrompter, prompt string) (string, error) {
	items, err := contexts.List(command.Context())
	if err != nil {
		return "", err
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return prompter.Select(command, prompt, names)
}

func redactContext(cfg configdomain.Context) configdomain.Context {
	if cfg.API == nil || cfg.API.Auth == nil {
		return cfg
	}
	api := *cfg.API
	auth := *api.Auth
	if auth.Token != "" {
		auth.Token = redacted
	}
	if auth.Password != "" {
		auth.Password = redacted
	}
	api.Auth = &auth
	cfg.API = &api
	return cfg
}
