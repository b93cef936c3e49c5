package file

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"

	"github.com/crmarques/rossync/config"
)

func validateCatalog(contextCatalog config.ContextCatalog) error {
	if len(contextCatalog.Contexts) == 0 {
		if contextCatalog.CurrentCtx != "" {
			return validationError("current-ctx must be empty when contexts list is empty", nil)
		}
		return nil
	}

	seen := map[string]struct{}{}
	for _, item := range contextCatalog.Contexts {
		if item.Name == "" {
			return validationError("context name must not be empty", nil)
		}
		if _, exists := seen[item.Name]; exists {
			return validationError(fmt.Sprintf("duplicate context name %q", item.Name), nil)
		}
		seen[item.Name] = struct{}{}

		if err := validateConfig(item); err != nil {
			return err
		}
	}

	if contextCatalog.CurrentCtx == "" {
		return validationError("current-ctx must be set when contexts are defined", nil)
	}

	if _, exists := seen[contextCatalog.CurrentCtx]; !exists {
		return validationError(fmt.Sprintf("current-ctx %q does not match any context", contextCatalog.CurrentCtx), nil)
	}

	return nil
}

func validateConfig(cfg config.Context) error {
	cfg = normalizeConfig(cfg)

	if cfg.Name == "" {
		return validationError("context name must not be empty", nil)
	}
	if cfg.Workspace.Dir == "" {
		return validationError(fmt.Sprintf("context %q: workspace.dir is required", cfg.Name), nil)
	}

	return validateAPI(cfg.Name, cfg.API)
}

func validateAPI(name string, api *config.API) error {
	if api == nil {
		return nil
	}

	if api.BaseURL == "" {
		return validationError(fmt.Sprintf("context %q: api.base-url is required", name), nil)
	}
	parsed, err := url.Parse(api.BaseURL)
	if err != nil || (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return validationError(fmt.Sprintf("context %q: api.base-url must be an absolute http(s) url", name), err)
	}
	if api.OrgID < 0 {
		return validationError(fmt.Sprintf("context %q: api.org-id must not be negative", name), nil)
	}

	if api.Auth == nil {
		return validationError(fmt.Sprintf("context %q: api.auth is required", name), nil)
	}
	hasToken := api.Auth.Token != ""
	hasCredentials := api.Auth.Username != "" || api.Auth.Password != ""
	if countSet(hasToken, hasCredentials) != 1 {
		return validationError(fmt.Sprintf("context %q: api.auth must define exactly one of token or username/password", name), nil)
	}
	if hasCredentials && (api.Auth.Username == "" || api.Auth.Password == "") {
		return validationError(fmt.Sprintf("context %q: api.auth requires both username and password", name), nil)
	}

	if api.TLS != nil && (api.TLS.ClientCertFile == "") != (api.TLS.ClientKeyFile == "") {
		return validationError(fmt.Sprintf("context %q: api.tls requires both client-cert-file and client-key-file", name), nil)
	}

	if api.RateLimit != nil {
		if api.RateLimit.RequestsPerSecond < 0 || api.RateLimit.Burst < 0 {
			return validationError(fmt.Sprintf("context %q: api.rate-limit values must not be negative", name), nil)
		}
	}

	return nil
}

func normalizeConfig(cfg config.Context) config.Context {
	cfg.Name = strings.TrimSpace(cfg.Name)
	cfg.Workspace.Dir = strings.TrimSpace(cfg.Workspace.Dir)
	if cfg.API != nil {
		api := *cfg.API
		api.BaseURL = strings.TrimRight(strings.TrimSpace(api.BaseURL), "/")
		cfg.API = &api
	}
	return cfg
}

func applyConfigDefaults(cfg config.Context) config.Context {
	cfg = normalizeConfig(cfg)
	if cfg.API == nil {
		return cfg
	}

	rateLimit := config.RateLimit{}
	if cfg.API.RateLimit != nil {
		rateLimit = *cfg.API.RateLimit
	}
	if rateLimit.RequestsPerSecond == 0 {
		rateLimit.RequestsPerSecond = config.DefaultRequestsPerSecond
	}
	if rateLimit.Burst == 0 {
		rateLimit.Burst = config.DefaultBurst
	}
	cfg.API.RateLimit = &rateLimit
	return cfg
}

func applyOverrides(cfg config.Context, overrides map[string]string) (config.Context, error) {
	for _, key := range sortedOverrideKeys(overrides) {
		value := overrides[key]
		switch key {
		case config.OverrideWorkspaceDir:
			cfg.Workspace.Dir = value
		case config.OverrideAPIBaseURL:
			api := ensureAPI(&cfg)
			api.BaseURL = value
		case config.OverrideAPIToken:
			api := ensureAPI(&cfg)
			api.Auth = &config.APIAuth{Token: value}
		case config.OverrideAPIOrgID:
			orgID, err := strconv.ParseInt(value, 10, 64)
			if err != nil {
				return config.Context{}, validationError(fmt.Sprintf("override %s must be an integer", key), err)
			}
			api := ensureAPI(&cfg)
			api.OrgID = orgID
		default:
			return config.Context{}, unknownOverrideError(key)
		}
	}

	return cfg, nil
}

func ensureAPI(cfg *config.Context) *config.API {
	if cfg.API == nil {
		cfg.API = &config.API{}
	} else {
		api := *cfg.API
		cfg.API = &api
	}
	return cfg.API
}

func sortedOverrideKeys(overrides map[string]string) []string {
	keys := make([]string, 0, len(overrides))
	for key := range overrides {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

func countSet(values ...bool) int {
	count := 0
	for _, value := range values {
		if value {
			count++
		}
	}
	return count
}
