package core

import (
	"net/http"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/workspace"
)

// RossyncContext is one resolved context wired to its local snapshot, change
// detector and remote gateway.
type RossyncContext struct {
	Contexts  config.ContextService
	Context   config.Context
	Workspace *workspace.Workspace
}

type BootstrapConfig struct {
	ContextCatalogPath string
	// HTTPClient replaces the gateway client, mostly for tests.
	HTTPClient *http.Client
}
