package config

import (
	"bytes"
	"io"
	"os"
	"strings"

	configdomain "github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/internal/cli/common"
	"github.com/crmarques/rossync/yamlutil"
	"github.com/spf13/cobra"
)

func decodeContextInput(command *cobra.Command, path string) (configdomain.Context, error) {
	data, err := readInput(command, path)
	if err != nil {
		return configdomain.Context{}, err
	}
	return decodeContextStrict(data)
}

func readInput(command *cobra.Command, path string) ([]byte, error) {
	path = strings.TrimSpace(path)
	if path == "" || path == "-" {
		data, err := io.ReadAll(command.InOrStdin())
		if err != nil {
			return nil, common.ValidationError("failed to read context from stdin", err)
		}
		return data, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, common.ValidationError("failed to read context file "+path, err)
	}
	return data, nil
}

func decodeContextStrict(data []byte) (configdomain.Context, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return configdomain.Context{}, common.ValidationError("context input is required", nil)
	}

	var cfg configdomain.Context
	if err := yamlutil.DecodeStrict(data, &cfg); err != nil {
		return configdomain.Context{}, common.ValidationError("invalid context yaml", err)
	}
	return cfg, nil
}

func encodeContext(cfg configdomain.Context) ([]byte, error) {
	return yamlutil.Marshal(cfg)
}
