package tracing

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	obscontext "github.com/somagouache/gouache/internal/observability/context"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
)

func TestGinMiddlewareTagsWebhookOutcome(t *testing.T) {
	gin.SetMode(gin.TestMode)
	recorder := tracetest.NewSpanRecorder()
	prev := otel.GetTracerProvider()
	otel.SetTracerProvider(sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(recorder)))
	defer otel.SetTracerProvider(prev)

	r := gin.New()
	r.Use(GinMiddleware())
	r.POST("/api/payments/webhook", func(c *gin.Context) {
		c.Request = c.Request.WithContext(obscontext.WithPaymentIntentID(c.Request.Context(), "pi_123"))
		c.Set(obscontext.WebhookOutcomeKey, "rejected")
		c.Status(http.StatusBadRequest)
	})

	r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodPost, "/api/payments/webhook", nil))

	spans := recorder.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, "POST /api/payments/webhook", span.Name())

	attrs := map[attribute.Key]attribute.Value{}
	for _, kv := range span.Attributes() {
		attrs[kv.Key] = kv.Value
	}
	assert.Equal(t, "rejected", attrs["webhook_outcome"].AsString())
	assert.Equal(t, "pi_123", attrs["payment_intent_id"].AsString())
	assert.Equal(t, int64(http.StatusBadRequest), attrs["http.status_code"].AsInt64())

	require.Len(t, span.Events(), 1)
	assert.Equal(t, "webhook.rejected", span.Events()[0].Name)
}
