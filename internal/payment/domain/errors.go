package domain

import (
	"errors"
	"fmt"
	"strings"
)

var (
	ErrInvalidRequest   = errors.New("invalid_request")
	ErrInvalidAmount    = errors.New("invalid_amount")
	ErrInvalidCurrency  = errors.New("invalid_currency")
	ErrInvalidItemType  = errors.New("invalid_item_type")
	ErrItemTypeMismatch = errors.New("item_type_mismatch")

	ErrArtistNotFound = errors.New("artist_not_found")
	ErrItemNotFound   = errors.New("item_not_found")
	ErrSaleNotFound   = errors.New("sale_not_found")

	ErrOwnershipMismatch = errors.New("ownership_mismatch")

	ErrPayeeNotReady = errors.New("payee_not_ready")
	ErrNotAvailable  = errors.New("item_not_available")

	ErrProviderNotConfigured = errors.New("provider_not_configured")

	ErrWebhookSecretMissing = errors.New("webhook_secret_missing")
	ErrMissingSignature     = errors.New("missing_signature")
	ErrInvalidSignature     = errors.New("invalid_signature")
	ErrSignatureExpired     = errors.New("signature_expired")

	ErrInvalidPayload = errors.New("invalid_payload")
)

// ProviderError wraps an upstream payment provider failure; Message is shown to the caller verbatim.
type ProviderError struct {
	StatusCode int
	Code       string
	Message    string
}

func (e *ProviderError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("provider error (%d %s): %s", e.StatusCode, e.Code, e.Message)
	}
	return fmt.Sprintf("provider error (%d): %s", e.StatusCode, e.Message)
}

// MalformedEventError marks an authentic event that can never be applied.
type MalformedEventError struct {
	EventID   string
	EventType string
	Missing   []string
}

func NewMalformedEventError(env Envelope, missing ...string) *MalformedEventError {
	return &MalformedEventError{EventID: env.ID, EventType: env.Type, Missing: missing}
}

func (e *MalformedEventError) Error() string {
	return fmt.Sprintf("malformed event %s (%s): missing %s", e.EventID, e.EventType, strings.Join(e.Missing, ", "))
}

func IsMalformedEvent(err error) bool {
	var target *MalformedEventError
	return errors.As(err, &target)
}

func IsSignatureError(err error) bool {
	return errors.Is(err, ErrMissingSignature) ||
		errors.Is(err, ErrInvalidSignature) ||
		errors.Is(err, ErrSignatureExpired)
}
