package domain

import (
	"context"
	"time"
)

//go:generate mockgen -source=provider.go -destination=./mocks/mock_provider.go -package=mocks

type CreatePaymentIntentParams struct {
	Amount               int64
	Currency             string
	ApplicationFeeAmount int64
	DestinationAccount   string
	Description          string
	IdempotencyKey       string
	Metadata             map[string]string
}

// ProviderPaymentIntent is the provider's view of a payment intent.
type ProviderPaymentIntent struct {
	ID                   string
	ClientSecret         string
	Status               string
	Amount               int64
	Currency             string
	ApplicationFeeAmount int64
	Created              time.Time
	Metadata             map[string]string
}

// Provider is the outbound payment provider API.
type Provider interface {
	CreatePaymentIntent(ctx context.Context, params CreatePaymentIntentParams) (*ProviderPaymentIntent, error)
	RetrievePaymentIntent(ctx context.Context, id string) (*ProviderPaymentIntent, error)
}

// WebhookAdapter authenticates and decodes inbound provider notifications.
type WebhookAdapter interface {
	Provider() string
	Verify(ctx context.Context, payload []byte, signatureHeader string) error
	Parse(ctx context.Context, payload []byte) (Event, error)
}
