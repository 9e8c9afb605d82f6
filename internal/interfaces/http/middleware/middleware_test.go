package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/floodguard/serving/internal/infrastructure/monitoring"
	"github.com/floodguard/serving/pkg/logger"
)

func TestRequestIDHonorsCallerHeader(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())

	var seen string
	engine.GET("/ping", func(c *gin.Context) {
		seen, _ = monitoring.RequestIDFromContext(c.Request.Context())
		c.Status(http.StatusOK)
	})

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("X-Request-ID", "caller-supplied")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	assert.Equal(t, "caller-supplied", seen)
	assert.Equal(t, "caller-supplied", rec.Header().Get("X-Request-ID"))
}

func TestRequestIDGeneratedWhenAbsent(t *testing.T) {
	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(RequestID())
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	assert.NotEmpty(t, rec.Header().Get("X-Request-ID"))
}

func TestTracingOpensServerSpanPerRequest(t *testing.T) {
	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tm := monitoring.NewTracingManagerFromTracer(
		provider.Tracer("test"), logger.NewNoopLogger())

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Tracing(tm))

	var handlerTraceID string
	engine.GET("/ping", func(c *gin.Context) {
		// The handler runs inside the request span.
		handlerTraceID = trace.SpanFromContext(c.Request.Context()).
			SpanContext().TraceID().String()
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ping", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "HTTP GET", span.Name())
	assert.Equal(t, trace.SpanKindServer, span.SpanKind())
	assert.Equal(t, span.SpanContext().TraceID().String(), handlerTraceID)

	var sawStatus bool
	for _, attr := range span.Attributes() {
		if string(attr.Key) == "http.status_code" {
			sawStatus = true
			assert.Equal(t, int64(http.StatusOK), attr.Value.AsInt64())
		}
	}
	assert.True(t, sawStatus)
}

func TestTracingContinuesPropagatedTrace(t *testing.T) {
	prev := otel.GetTextMapPropagator()
	otel.SetTextMapPropagator(propagation.TraceContext{})
	t.Cleanup(func() { otel.SetTextMapPropagator(prev) })

	recorder := tracetest.NewSpanRecorder()
	provider := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder))
	tm := monitoring.NewTracingManagerFromTracer(
		provider.Tracer("test"), logger.NewNoopLogger())

	gin.SetMode(gin.TestMode)
	engine := gin.New()
	engine.Use(Tracing(tm))
	engine.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("traceparent", "00-4bf92f3577b34da6a3ce929d0e0e4736-00f067aa0ba902b7-01")
	rec := httptest.NewRecorder()
	engine.ServeHTTP(rec, req)

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736",
		spans[0].SpanContext().TraceID().String())
}
