package http

import (
	"context"
	"net/http"
	"strings"

	"github.com/crmarques/rossync/config"
)

const loginPath = "auth/login"

type authMode int

const (
	authModeToken authMode = iota + 1
	authModeLogin
)

type authConfig struct {
	mode     authMode
	token    string
	username string
	password string
}

func buildAuthConfig(auth *config.APIAuth) (authConfig, error) {
	if auth == nil {
		return authConfig{}, validationError("api.auth is required", nil)
	}

	token := strings.TrimSpace(auth.Token)
	username := strings.TrimSpace(auth.Username)
	hasCredentials := username != "" || auth.Password != ""

	switch {
	case token != "" && hasCredentials:
		return authConfig{}, validationError("api.auth must define exactly one of token or username/password", nil)
	case token != "":
		return authConfig{mode: authModeToken, token: token}, nil
	case username != "" && auth.Password != "":
		return authConfig{mode: authModeLogin, username: username, password: auth.Password}, nil
	case hasCredentials:
		return authConfig{}, validationError("api.auth requires both username and password", nil)
	default:
		return authConfig{}, validationError("api.auth must define a token or username/password", nil)
	}
}

func (g *HTTPRemoteGateway) applyAuth(ctx context.Context, request *http.Request) error {
	token, err := g.bearerToken(ctx)
	if err != nil {
		return err
	}
	request.Header.Set("Authorization", "Bearer "+token)
	return nil
}

func (g *HTTPRemoteGateway) bearerToken(ctx context.Context) (string, error) {
	if g.auth.mode == authModeToken {
		return g.auth.token, nil
	}

	g.tokenMu.Lock()
	defer g.tokenMu.Unlock()

	if g.loginToken != "" {
		return g.loginToken, nil
	}

	token, err := g.login(ctx)
	if err != nil {
		return "", err
	}
	g.loginToken = token
	return token, nil
}

// invalidateToken drops a cached login token so the next request logs in
// again. Static tokens cannot be refreshed.
func (g *HTTPRemoteGateway) invalidateToken() bool {
	if g.auth.mode != authModeLogin {
		return false
	}

	g.tokenMu.Lock()
	defer g.tokenMu.Unlock()
	g.loginToken = ""
	return true
}

func (g *HTTPRemoteGateway) login(ctx context.Context) (string, error) {
	body := map[string]any{
		"username": g.auth.username,
		"password": g.auth.password,
	}

	request, err := g.newRequest(ctx, http.MethodPost, loginPath, nil, body)
	if err != nil {
		return "", err
	}

	response, err := g.send(ctx, request)
	if err != nil {
		return "", err
	}
	if response.status == http.StatusUnauthorized || response.status == http.StatusForbidden {
		return "", authError("api login rejected the configured credentials", nil)
	}
	if response.status < 200 || response.status >= 300 {
		return "", classifyStatusError(http.MethodPost, loginPath, response.status, response.body)
	}

	payload, err := decodeJSONResponse(response.body)
	if err != nil {
		return "", err
	}
	key, _ := payload["key"].(string)
	if strings.TrimSpace(key) == "" {
		return "", authError("api login response did not contain a key", nil)
	}
	return key, nil
}
