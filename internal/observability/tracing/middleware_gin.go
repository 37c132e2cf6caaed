package tracing

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/somagouache/gouache/internal/observability/context"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// GinMiddleware opens a server span per request, named after the matched route.
// Webhook spans carry the settlement outcome; rejected deliveries are marked with
// a "webhook.rejected" event rather than an error status.
func GinMiddleware() gin.HandlerFunc {
	tracer := otel.Tracer("gouache/http")
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = "unknown"
		}

		ctx := ExtractContext(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route, trace.WithSpanKind(trace.SpanKindServer))
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Next()

		status := c.Writer.Status()
		reqCtx := c.Request.Context()
		span.SetAttributes(SafeAttributes(
			attribute.String("http.method", c.Request.Method),
			attribute.String("http.route", route),
			attribute.Int("http.status_code", status),
			attribute.String("request_id", obscontext.RequestIDFromContext(reqCtx)),
			attribute.String("payment_intent_id", obscontext.PaymentIntentIDFromContext(reqCtx)),
		)...)

		if outcome := c.GetString(obscontext.WebhookOutcomeKey); outcome != "" {
			span.SetAttributes(SafeAttributes(attribute.String("webhook_outcome", outcome))...)
		}

		lastErr := c.Errors.Last()
		switch {
		case status >= http.StatusInternalServerError:
			if lastErr != nil {
				span.RecordError(SafeError(lastErr.Err))
			}
			span.SetStatus(codes.Error, http.StatusText(status))
		case strings.HasSuffix(route, "/webhook") && status >= http.StatusBadRequest:
			reason := http.StatusText(status)
			if lastErr != nil {
				reason = SafeError(lastErr.Err).Error()
			}
			span.AddEvent("webhook.rejected", trace.WithAttributes(attribute.String("reason", reason)))
		}
	}
}
