package middleware

import (
	"github.com/erp/tradedesk/internal/infrastructure/logger"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Tracing opens a server span per request through otelgin. The incoming W3C
// trace context is continued with the global propagator, so the caller's
// trace ID reaches the logs even when no SDK provider is installed.
func Tracing(serviceName string, opts ...otelgin.Option) gin.HandlerFunc {
	return otelgin.Middleware(serviceName, opts...)
}

// SpanAttributes tags the request span with the request and composition
// session IDs. It must run after Tracing and RequestID.
func SpanAttributes() gin.HandlerFunc {
	return func(c *gin.Context) {
		span := trace.SpanFromContext(c.Request.Context())
		if !span.IsRecording() {
			c.Next()
			return
		}
		if id := c.GetString(logger.RequestIDKey); id != "" {
			span.SetAttributes(attribute.String("request_id", id))
		}

		c.Next()

		// handlers attach the session to a derived request
		if id := logger.SessionID(c.Request.Context()); id != "" {
			span.SetAttributes(attribute.String("session_id", id))
		}
	}
}
