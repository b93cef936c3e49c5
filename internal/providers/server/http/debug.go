package http

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/crmarques/rossync/config"
	"github.com/crmarques/rossync/debugctx"
	"github.com/crmarques/rossync/internal/telemetry"
	"go.opentelemetry.io/otel/attribute"
)

type tlsDebugInfo struct {
	enabled            bool
	caCertConfigured   bool
	clientCertPresent  bool
	insecureSkipVerify bool
}

func newTLSDebugInfo(tlsSettings *config.TLS) tlsDebugInfo {
	if tlsSettings == nil {
		return tlsDebugInfo{}
	}
	return tlsDebugInfo{
		enabled:            true,
		caCertConfigured:   strings.TrimSpace(tlsSettings.CACertFile) != "",
		clientCertPresent:  strings.TrimSpace(tlsSettings.ClientCertFile) != "",
		insecureSkipVerify: tlsSettings.InsecureSkipVerify,
	}
}

// doRequest wraps one HTTP round trip with a span, request metrics and
// debug logging. Auth headers and credentials never reach the log.
func (g *HTTPRemoteGateway) doRequest(ctx context.Context, request *http.Request) (*http.Response, error) {
	ctx, span := telemetry.StartSpan(
		ctx,
		"rossync.http "+request.Method,
		attribute.String("http.method", request.Method),
		attribute.String("http.path", request.URL.Path),
	)

	startedAt := time.Now()
	debugctx.Printf(
		ctx,
		"http request method=%q url=%q tls=%t tls_ca=%t tls_client_cert=%t tls_insecure=%t",
		request.Method,
		redactURLForDebug(request.URL),
		g.tlsDebug.enabled,
		g.tlsDebug.caCertConfigured,
		g.tlsDebug.clientCertPresent,
		g.tlsDebug.insecureSkipVerify,
	)

	response, err := g.client.Do(request.WithContext(ctx))
	elapsed := time.Since(startedAt)
	if err != nil {
		telemetry.ObserveHTTPRequest(request.Method, 0, elapsed)
		debugctx.Printf(
			ctx,
			"http request failed method=%q url=%q duration=%s error=%v",
			request.Method,
			redactURLForDebug(request.URL),
			elapsed,
			err,
		)
		telemetry.EndSpan(span, err)
		return nil, err
	}

	telemetry.ObserveHTTPRequest(request.Method, response.StatusCode, elapsed)
	span.SetAttributes(attribute.Int("http.status_code", response.StatusCode))
	debugctx.Printf(
		ctx,
		"http response method=%q url=%q status=%d duration=%s",
		request.Method,
		redactURLForDebug(request.URL),
		response.StatusCode,
		elapsed,
	)

	var spanErr error
	if response.StatusCode >= 500 {
		spanErr = fmt.Errorf("http status %d", response.StatusCode)
	}
	telemetry.EndSpan(span, spanErr)
	return response, nil
}

func redactURLForDebug(value *url.URL) string {
	if value == nil {
		return ""
	}

	copied := *value
	if copied.User != nil {
		copied.User = url.User("REDACTED")
	}
	return copied.String()
}
