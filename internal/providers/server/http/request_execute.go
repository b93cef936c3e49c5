package http

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/crmarques/rossync/resource"
)

type rawResponse struct {
	status int
	body   []byte
}

// call executes one authenticated API request. A 401 on a login-based
// context refreshes the token and retries exactly once.
func (g *HTTPRemoteGateway) call(
	ctx context.Context,
	method string,
	requestPath string,
	query url.Values,
	body resource.Payload,
) (resource.Payload, error) {
	response, err := g.execute(ctx, method, requestPath, query, body)
	if err != nil {
		return nil, err
	}
	return decodeJSONResponse(response.body)
}

func (g *HTTPRemoteGateway) execute(
	ctx context.Context,
	method string,
	requestPath string,
	query url.Values,
	body resource.Payload,
) (rawResponse, error) {
	return g.executeURL(ctx, method, g.resolveRequestURL(requestPath, query), requestPath, body)
}

// executeURL sends to an already resolved absolute URL; label names the
// endpoint in error messages.
func (g *HTTPRemoteGateway) executeURL(
	ctx context.Context,
	method string,
	requestURL string,
	label string,
	body resource.Payload,
) (rawResponse, error) {
	for attempt := 0; ; attempt++ {
		request, err := g.newRequestURL(ctx, method, requestURL, body)
		if err != nil {
			return rawResponse{}, err
		}
		if err := g.applyAuth(ctx, request); err != nil {
			return rawResponse{}, err
		}

		response, err := g.send(ctx, request)
		if err != nil {
			return rawResponse{}, err
		}

		if response.status == http.StatusUnauthorized && attempt == 0 && g.invalidateToken() {
			continue
		}
		if response.status < 200 || response.status >= 300 {
			return rawResponse{}, classifyStatusError(method, label, response.status, response.body)
		}
		return response, nil
	}
}

func (g *HTTPRemoteGateway) send(ctx context.Context, request *http.Request) (rawResponse, error) {
	if err := g.limiter.Wait(ctx); err != nil {
		return rawResponse{}, transportError("request throttling interrupted", err)
	}

	response, err := g.doRequest(ctx, request)
	if err != nil {
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return rawResponse{}, transportError("request canceled", err)
		}
		return rawResponse{}, transportError("request failed", err)
	}
	defer response.Body.Close()

	body, err := io.ReadAll(io.LimitReader(response.Body, maxResponseBytes+1))
	if err != nil {
		return rawResponse{}, transportError("failed to read response body", err)
	}
	if len(body) > maxResponseBytes {
		return rawResponse{}, transportError(
			fmt.Sprintf("response body exceeds %d bytes", maxResponseBytes),
			nil,
		)
	}

	return rawResponse{status: response.StatusCode, body: body}, nil
}

func (g *HTTPRemoteGateway) newRequest(
	ctx context.Context,
	method string,
	requestPath string,
	query url.Values,
	body any,
) (*http.Request, error) {
	return g.newRequestURL(ctx, method, g.resolveRequestURL(requestPath, query), body)
}

func (g *HTTPRemoteGateway) newRequestURL(ctx context.Context, method string, requestURL string, body any) (*http.Request, error) {
	bodyReader, err := encodeRequestBody(body)
	if err != nil {
		return nil, err
	}

	request, err := http.NewRequestWithContext(ctx, method, requestURL, bodyReader)
	if err != nil {
		return nil, internalError("failed to build request", err)
	}

	request.Header.Set("Accept", defaultMediaType)
	if bodyReader != nil {
		request.Header.Set("Content-Type", defaultMediaType)
	}
	return request, nil
}

func (g *HTTPRemoteGateway) resolveRequestURL(requestPath string, query url.Values) string {
	resolved := *g.baseURL
	resolved.Path = joinBaseAndRequestPath(g.baseURL.Path, normalizeRequestPath(requestPath))
	resolved.RawPath = ""
	if len(query) > 0 {
		resolved.RawQuery = query.Encode()
	}
	return resolved.String()
}

func joinBaseAndRequestPath(basePath string, requestPath string) string {
	if basePath == "" || basePath == "/" {
		return requestPath
	}
	return path.Join(basePath, requestPath)
}

func normalizeRequestPath(value string) string {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return ""
	}
	if !strings.HasPrefix(trimmed, "/") {
		trimmed = "/" + trimmed
	}
	cleaned := path.Clean(trimmed)
	if cleaned == "." {
		return "/"
	}
	return cleaned
}
