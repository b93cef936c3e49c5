package file

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/adrg/xdg"
	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/yamlutil"
)

func decodeCatalogFile(path string) (config.ContextCatalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return config.ContextCatalog{}, err
	}
	return decodeCatalog(data)
}

func decodeCatalog(data []byte) (config.ContextCatalog, error) {
	var contextCatalog config.ContextCatalog

	if len(bytes.TrimSpace(data)) == 0 {
		return contextCatalog, nil
	}

	if err := yamlutil.DecodeStrict(data, &contextCatalog); err != nil {
		return config.ContextCatalog{}, validationError("invalid context catalog yaml", err)
	}

	return contextCatalog, nil
}

func encodeCatalog(contextCatalog config.ContextCatalog) ([]byte, error) {
	return yamlutil.Marshal(contextCatalog)
}

// DefaultCatalogPath is the catalog location used when neither an explicit
// path nor ROSSYNC_CONTEXTS_FILE is given.
func DefaultCatalogPath() string {
	return filepath.Join(xdg.ConfigHome, "rossync", "contexts.yaml")
}

func resolveCatalogPath(explicitPath string) (string, error) {
	path := strings.TrimSpace(explicitPath)
	if path == "" {
		path = strings.TrimSpace(os.Getenv(config.ContextFileEnvVar))
	}
	if path == "" {
		path = DefaultCatalogPath()
	}

	if path == "~" || strings.HasPrefix(path, "~/") {
		homeDir, err := os.UserHomeDir()
		if err != nil {
			return "", internalError("failed to resolve user home directory", err)
		}
		path = filepath.Join(homeDir, strings.TrimPrefix(strings.TrimPrefix(path, "~"), "/"))
	}

	cleanPath := filepath.Clean(path)
	if cleanPath == "." {
		return "", validationError("context catalog path is invalid", errors.New("resolved to current directory"))
	}

	if !filepath.IsAbs(cleanPath) {
		absolute, err := filepath.Abs(cleanPath)
		if err != nil {
			return "", internalError("failed to resolve context catalog path", err)
		}
		cleanPath = absolute
	}

	return cleanPath, nil
}

func unknownOverrideError(key string) error {
	return validationError(fmt.Sprintf("unknown override key %q", key), nil)
}
