package commandmeta

import "strings"

type OutputPolicy uint8

const (
	OutputPolicyStructured OutputPolicy = iota
	OutputPolicyTextOnly
)

// EmitsExecutionStatusPath reports whether a command prints the trailing
// [OK]/[ERROR] status line on stderr.
func EmitsExecutionStatusPath(path string) bool {
	switch strings.TrimSpace(path) {
	case "rossync pull",
		"rossync push",
		"rossync copy",
		"rossync deploy",
		"rossync context use",
		"rossync context delete":
		return true
	default:
		return false
	}
}

func OutputPolicyForPath(path string) OutputPolicy {
	switch strings.TrimSpace(path) {
	case "rossync mcp",
		"rossync completion bash",
		"rossync completion zsh",
		"rossync completion fish",
		"rossync completion powershell":
		return OutputPolicyTextOnly
	default:
		return OutputPolicyStructured
	}
}
