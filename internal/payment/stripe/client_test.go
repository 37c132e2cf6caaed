package stripe

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCreatePaymentIntentSendsSplit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/v1/payment_intents", r.URL.Path)
		assert.Equal(t, "Bearer sk_test_123", r.Header.Get("Authorization"))
		assert.Equal(t, "checkout:u1:art1", r.Header.Get("Idempotency-Key"))
		require.NoError(t, r.ParseForm())
		assert.Equal(t, "2999", r.PostForm.Get("amount"))
		assert.Equal(t, "usd", r.PostForm.Get("currency"))
		assert.Equal(t, "150", r.PostForm.Get("application_fee_amount"))
		assert.Equal(t, "acct_seller", r.PostForm.Get("transfer_data[destination]"))
		assert.Equal(t, "art1", r.PostForm.Get("metadata[itemId]"))

		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"pi_1","client_secret":"pi_1_secret_x","status":"requires_payment_method","amount":2999,"currency":"usd","application_fee_amount":150,"metadata":{"itemId":"art1"}}`))
	}))
	defer server.Close()

	client := NewClient("sk_test_123", server.URL)
	intent, err := client.CreatePaymentIntent(context.Background(), paymentdomain.CreatePaymentIntentParams{
		Amount:               2999,
		Currency:             "USD",
		ApplicationFeeAmount: 150,
		DestinationAccount:   "acct_seller",
		IdempotencyKey:       "checkout:u1:art1",
		Metadata:             map[string]string{MetadataItemID: "art1"},
	})
	require.NoError(t, err)
	assert.Equal(t, "pi_1", intent.ID)
	assert.Equal(t, "pi_1_secret_x", intent.ClientSecret)
	assert.Equal(t, int64(150), intent.ApplicationFeeAmount)
	assert.Equal(t, "art1", intent.Metadata[MetadataItemID])
}

func TestRetrievePaymentIntentProviderError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/payment_intents/pi_missing", r.URL.Path)
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"type":"invalid_request_error","code":"resource_missing","message":"No such payment_intent: 'pi_missing'"}}`))
	}))
	defer server.Close()

	client := NewClient("sk_test_123", server.URL)
	_, err := client.RetrievePaymentIntent(context.Background(), "pi_missing")

	var providerErr *paymentdomain.ProviderError
	require.True(t, errors.As(err, &providerErr))
	assert.Equal(t, http.StatusNotFound, providerErr.StatusCode)
	assert.Equal(t, "resource_missing", providerErr.Code)
	assert.Equal(t, "No such payment_intent: 'pi_missing'", providerErr.Message)
}

func TestClientWithoutKey(t *testing.T) {
	client := NewClient("", "")
	_, err := client.RetrievePaymentIntent(context.Background(), "pi_1")
	assert.ErrorIs(t, err, paymentdomain.ErrProviderNotConfigured)
}
