package config

import "strings"

var envOverrideKeys = []struct {
	env string
	key string
}{
	{env: APIBaseEnvVar, key: OverrideAPIBaseURL},
	{env: APITokenEnvVar, key: OverrideAPIToken},
	{env: OrgIDEnvVar, key: OverrideAPIOrgID},
	{env: WorkspaceDirEnvVar, key: OverrideWorkspaceDir},
}

// EnvOverrides translates ROSSYNC_* variables into context overrides.
// Empty values are ignored.
func EnvOverrides(lookup func(string) (string, bool)) map[string]string {
	overrides := map[string]string{}
	if lookup == nil {
		return overrides
	}
	for _, item := range envOverrideKeys {
		value, ok := lookup(item.env)
		if !ok || strings.TrimSpace(value) == "" {
			continue
		}
		overrides[item.key] = strings.TrimSpace(value)
	}
	return overrides
}
