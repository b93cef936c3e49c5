package http

import (
	"context"
	"crypto/tls"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/internal/providers/shared/tlsconfig"
	"github.com/crmarques/rossync/resource"
	"github.com/crmarques/rossync/server"
	"golang.org/x/time/rate"
)

const (
	defaultHTTPTimeout = 30 * time.Second
	defaultMediaType   = "application/json"
	defaultPageSize    = 100
	maxResponseBytes   = 32 << 20
)

var _ server.RemoteAPI = (*HTTPRemoteGateway)(nil)

type HTTPRemoteGateway struct {
	baseURL  *url.URL
	auth     authConfig
	client   *http.Client
	limiter  *rate.Limiter
	tlsDebug tlsDebugInfo
	pageSize int

	tokenMu    sync.Mutex
	loginToken string
}

type GatewayOption func(*HTTPRemoteGateway)

// WithHTTPClient replaces the default client; tests use it to reach
// httptest servers.
func WithHTTPClient(client *http.Client) GatewayOption {
	return func(g *HTTPRemoteGateway) {
		if client != nil {
			g.client = client
		}
	}
}

func WithPageSize(size int) GatewayOption {
	return func(g *HTTPRemoteGateway) {
		if size > 0 {
			g.pageSize = size
		}
	}
}

func NewHTTPRemoteGateway(cfg config.API, opts ...GatewayOption) (*HTTPRemoteGateway, error) {
	baseURL, err := parseBaseURL(cfg.BaseURL)
	if err != nil {
		return nil, err
	}

	auth, err := buildAuthConfig(cfg.Auth)
	if err != nil {
		return nil, err
	}

	tlsConfig, err := buildTLSConfig(cfg.TLS)
	if err != nil {
		return nil, err
	}

	transport := http.DefaultTransport.(*http.Transport).Clone()
	transport.TLSClientConfig = tlsConfig

	gateway := &HTTPRemoteGateway{
		baseURL: baseURL,
		auth:    auth,
		client: &http.Client{
			Timeout:   defaultHTTPTimeout,
			Transport: transport,
		},
		limiter:  buildLimiter(cfg.RateLimit),
		tlsDebug: newTLSDebugInfo(cfg.TLS),
		pageSize: defaultPageSize,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(gateway)
	}
	return gateway, nil
}

func (g *HTTPRemoteGateway) BaseURL() string {
	return strings.TrimRight(g.baseURL.String(), "/")
}

func (g *HTTPRemoteGateway) Retrieve(ctx context.Context, objectType resource.ObjectType, id int64) (resource.Payload, error) {
	if !objectType.Valid() {
		return nil, validationError(fmt.Sprintf("unsupported object type %q", objectType), nil)
	}
	return g.call(ctx, http.MethodGet, objectPath(objectType, id), nil, nil)
}

func (g *HTTPRemoteGateway) Create(ctx context.Context, objectType resource.ObjectType, payload resource.Payload) (resource.Payload, error) {
	if !objectType.Valid() {
		return nil, validationError(fmt.Sprintf("unsupported object type %q", objectType), nil)
	}
	return g.call(ctx, http.MethodPost, objectType.Collection(), nil, payload)
}

func (g *HTTPRemoteGateway) Update(
	ctx context.Context,
	objectType resource.ObjectType,
	id int64,
	payload resource.Payload,
) (resource.Payload, error) {
	if !objectType.Valid() {
		return nil, validationError(fmt.Sprintf("unsupported object type %q", objectType), nil)
	}
	return g.call(ctx, http.MethodPatch, objectPath(objectType, id), nil, payload)
}

func (g *HTTPRemoteGateway) Request(
	ctx context.Context,
	method string,
	endpointPath string,
	body resource.Payload,
) (resource.Payload, error) {
	resolvedMethod := strings.ToUpper(strings.TrimSpace(method))
	if resolvedMethod == "" {
		return nil, validationError("request method is required", nil)
	}

	resolvedPath := normalizeRequestPath(endpointPath)
	if resolvedPath == "" || resolvedPath == "/" {
		return nil, validationError("request path is required", nil)
	}

	return g.call(ctx, resolvedMethod, resolvedPath, nil, body)
}

func objectPath(objectType resource.ObjectType, id int64) string {
	return objectType.Collection() + "/" + strconv.FormatInt(id, 10)
}

func parseBaseURL(raw string) (*url.URL, error) {
	value := strings.TrimSpace(raw)
	if value == "" {
		return nil, validationError("api.base-url is required", nil)
	}

	parsed, err := url.Parse(value)
	if err != nil {
		return nil, validationError("api.base-url is invalid", err)
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return nil, validationError("api.base-url must use http or https", nil)
	}
	if parsed.Host == "" {
		return nil, validationError("api.base-url host is required", nil)
	}

	parsed.Path = strings.TrimRight(parsed.Path, "/")
	parsed.RawQuery = ""
	return parsed, nil
}

func buildTLSConfig(tlsSettings *config.TLS) (*tls.Config, error) {
	return tlsconfig.BuildTLSConfig(tlsSettings, "api")
}

func buildLimiter(settings *config.RateLimit) *rate.Limiter {
	requestsPerSecond := float64(config.DefaultRequestsPerSecond)
	burst := config.DefaultBurst
	if settings != nil {
		if settings.RequestsPerSecond > 0 {
			requestsPerSecond = settings.RequestsPerSecond
		}
		if settings.Burst > 0 {
			burst = settings.Burst
		}
	}
	return rate.NewLimiter(rate.Limit(requestsPerSecond), burst)
}
