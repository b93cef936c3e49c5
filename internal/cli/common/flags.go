package common

import "github.com/spf13/cobra"

type GlobalFlags struct {
	Context     string
	Debug       bool
	NoStatus    bool
	NoColor     bool
	Yes         bool
	Output      string
	MetricsFile string
	Trace       string
}

func BindGlobalFlags(command *cobra.Command, flags *GlobalFlags) {
	command.PersistentFlags().StringVarP(&flags.Context, "context", "c", "", "context name")
	command.PersistentFlags().BoolVarP(&flags.Debug, "debug", "d", false, "enable debug output")
	command.PersistentFlags().BoolVarP(&flags.NoStatus, "no-status", "n", false, "hide status output")
	command.PersistentFlags().BoolVar(&flags.NoColor, "no-color", false, "disable color output")
	command.PersistentFlags().BoolVarP(&flags.Yes, "yes", "y", false, "skip confirmation prompts")
	command.PersistentFlags().StringVarP(&flags.Output, "output", "o", OutputText, "output format: text|json|yaml")
	command.PersistentFlags().StringVar(&flags.MetricsFile, "metrics-file", "", "write prometheus metrics to this file on exit")
	command.PersistentFlags().StringVar(&flags.Trace, "trace", "none", "span exporter: none|stdout|otlp")
	_ = command.RegisterFlagCompletionFunc("output", fixedCompletion(OutputText, OutputJSON, OutputYAML))
	_ = command.RegisterFlagCompletionFunc("trace", fixedCompletion("none", "stdout", "otlp"))
}

func fixedCompletion(values ...string) func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
	return func(*cobra.Command, []string, string) ([]string, cobra.ShellCompDirective) {
		return values, cobra.ShellCompDirectiveNoFileComp
	}
}
