package obscontext

import (
	"context"
	"strings"
)

type requestIDKey struct{}
type buyerIDKey struct{}
type eventIDKey struct{}

func WithRequestID(ctx context.Context, requestID string) context.Context {
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return ctx
	}
	return context.WithValue(ctx, requestIDKey{}, requestID)
}

func RequestIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(requestIDKey{}).(string)
	return v
}

// WithBuyerID records the purchasing user for the request.
func WithBuyerID(ctx context.Context, buyerID string) context.Context {
	buyerID = strings.TrimSpace(buyerID)
	if buyerID == "" {
		return ctx
	}
	return context.WithValue(ctx, buyerIDKey{}, buyerID)
}

func BuyerIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(buyerIDKey{}).(string)
	return v
}

// WithEventID records the provider event being settled.
func WithEventID(ctx context.Context, eventID string) context.Context {
	eventID = strings.TrimSpace(eventID)
	if eventID == "" {
		return ctx
	}
	return context.WithValue(ctx, eventIDKey{}, eventID)
}

func EventIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(eventIDKey{}).(string)
	return v
}

type paymentIntentIDKey struct{}

// WithPaymentIntentID records the payment intent the request or event concerns.
func WithPaymentIntentID(ctx context.Context, paymentIntentID string) context.Context {
	paymentIntentID = strings.TrimSpace(paymentIntentID)
	if paymentIntentID == "" {
		return ctx
	}
	return context.WithValue(ctx, paymentIntentIDKey{}, paymentIntentID)
}

func PaymentIntentIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	v, _ := ctx.Value(paymentIntentIDKey{}).(string)
	return v
}

// WebhookOutcomeKey is the gin context key the webhook handler stores the
// settlement outcome under for the request log and span.
const WebhookOutcomeKey = "webhook_outcome"
