// Package otel provides OpenTelemetry HTTP instrumentation for lsproxy.
package otel

import (
	"net/http"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

// HTTPMiddleware returns a chi-compatible middleware that creates a span
// per request. With no tracer provider configured it uses the global
// no-op provider, so this is safe to mount unconditionally.
func HTTPMiddleware(serviceName string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return otelhttp.NewHandler(next, serviceName)
	}
}
