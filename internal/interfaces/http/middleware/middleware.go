// Package middleware holds the gin middleware shared by all routes.
package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.17.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/floodguard/serving/internal/infrastructure/monitoring"
	"github.com/floodguard/serving/pkg/logger"
)

const requestIDHeader = "X-Request-ID"

// RequestID stamps every request with an ID, honoring one supplied by the
// caller, and threads it through the context so log entries carry it.
func RequestID() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := c.GetHeader(requestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Header(requestIDHeader, requestID)

		ctx := monitoring.ContextWithRequestID(c.Request.Context(), requestID)
		c.Request = c.Request.WithContext(ctx)

		c.Next()
	}
}

// Tracing opens one server span per request, continuing a trace propagated
// by the caller. The span context rides the request context so downstream
// spans and log entries attach to it.
func Tracing(tm *monitoring.TracingManager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(
			c.Request.Context(),
			propagation.HeaderCarrier(c.Request.Header),
		)

		ctx, span := tm.StartSpan(
			ctx,
			"HTTP "+c.Request.Method,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				semconv.HTTPMethodKey.String(c.Request.Method),
				semconv.HTTPRouteKey.String(c.FullPath()),
			),
		)
		defer span.End()

		if traceID := tm.TraceID(ctx); traceID != "" {
			c.Set("trace_id", traceID)
		}
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		span.SetAttributes(attribute.Int("http.status_code", c.Writer.Status()))
	}
}

// AccessLog writes one structured entry per request.
func AccessLog(log logger.Logger) gin.HandlerFunc {
	accessLog := log.WithComponent("http")
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		accessLog.Info(c.Request.Context(), "request completed",
			logger.String("method", c.Request.Method),
			logger.String("path", path),
			logger.Int("status", c.Writer.Status()),
			logger.Duration("duration", time.Since(start)),
			logger.Int("size", c.Writer.Size()),
		)
	}
}
