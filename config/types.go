package config

type ContextSelection struct {
	Name      string
	Overrides map[string]string
}

const (
	ContextFileEnvVar  = "ROSSYNC_CONTEXTS_FILE"
	APIBaseEnvVar      = "ROSSYNC_API_BASE"
	APITokenEnvVar     = "ROSSYNC_API_TOKEN"
	OrgIDEnvVar        = "ROSSYNC_ORG_ID"
	WorkspaceDirEnvVar = "ROSSYNC_WORKSPACE_DIR"

	// EnvContextName names the context synthesized from environment
	// variables when the catalog is empty.
	EnvContextName = "env"

	DefaultRequestsPerSecond = 10
	DefaultBurst             = 5
)

// Override keys accepted by ContextSelection.Overrides.
const (
	OverrideAPIBaseURL   = "api.base-url"
	OverrideAPIToken     = "api.auth.token"
	OverrideAPIOrgID     = "api.org-id"
	OverrideWorkspaceDir = "workspace.dir"
)

type ContextCatalog struct {
	Contexts   []Context `yaml:"contexts"`
	CurrentCtx string    `yaml:"current-ctx"`
}

type Context struct {
	Name      string    `yaml:"name"`
	Workspace Workspace `yaml:"workspace"`
	API       *API      `yaml:"api,omitempty"`
}

type Workspace struct {
	Dir       string `yaml:"dir"`
	GitCommit bool   `yaml:"git-commit,omitempty"`
	GitInit   *bool  `yaml:"git-init,omitempty"`
}

func (w Workspace) GitInitEnabled() bool {
	if w.GitInit == nil {
		return true
	}
	return *w.GitInit
}

type API struct {
	BaseURL   string     `yaml:"base-url"`
	OrgID     int64      `yaml:"org-id,omitempty"`
	Auth      *APIAuth   `yaml:"auth,omitempty"`
	TLS       *TLS       `yaml:"tls,omitempty"`
	RateLimit *RateLimit `yaml:"rate-limit,omitempty"`
}

// APIAuth holds either a static token or credentials exchanged for one at
// the API login endpoint.
type APIAuth struct {
	Token    string `yaml:"token,omitempty"`
	Username string `yaml:"username,omitempty"`
	Password string `yaml:"password,omitempty"`
}

type TLS struct {
	CACertFile         string `yaml:"ca-cert-file,omitempty"`
	ClientCertFile     string `yaml:"client-cert-file,omitempty"`
	ClientKeyFile      string `yaml:"client-key-file,omitempty"`
	InsecureSkipVerify bool   `yaml:"insecure-skip-verify,omitempty"`
}

type RateLimit struct {
	RequestsPerSecond float64 `yaml:"requests-per-second,omitempty"`
	Burst             int     `yaml:"burst,omitempty"`
}
