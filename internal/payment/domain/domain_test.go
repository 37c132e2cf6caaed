package domain

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSplitConservesAmount(t *testing.T) {
	fee, payout := Split(2999, 0.05)
	assert.Equal(t, int64(150), fee)
	assert.Equal(t, int64(2849), payout)

	for _, amount := range []int64{50, 51, 99, 1000, 12345, 999999} {
		fee, payout := Split(amount, 0.05)
		assert.Equal(t, amount, fee+payout)
		assert.Equal(t, ApplicationFee(amount, 0.05), fee)
	}
}

func TestCanTransition(t *testing.T) {
	assert.True(t, CanTransition(PaymentStatusUnseen, PaymentStatusSucceeded))
	assert.True(t, CanTransition(PaymentStatusUnseen, PaymentStatusFailed))
	assert.True(t, CanTransition(PaymentStatusFailed, PaymentStatusSucceeded))
	assert.True(t, CanTransition(PaymentStatusFailed, PaymentStatusFailed))
	assert.False(t, CanTransition(PaymentStatusSucceeded, PaymentStatusFailed))
	assert.False(t, CanTransition(PaymentStatusSucceeded, PaymentStatusSucceeded))
}

func TestAllowedFrom(t *testing.T) {
	assert.ElementsMatch(t, []PaymentStatus{PaymentStatusUnseen, PaymentStatusFailed}, AllowedFrom(PaymentStatusSucceeded))
	assert.ElementsMatch(t, []PaymentStatus{PaymentStatusUnseen, PaymentStatusFailed}, AllowedFrom(PaymentStatusFailed))
	assert.Empty(t, AllowedFrom(PaymentStatusUnseen))
}

func TestPaymentSucceededValidate(t *testing.T) {
	event := PaymentSucceeded{
		Env:             Envelope{ID: "evt_1", Type: EventTypePaymentSucceeded},
		PaymentIntentID: "pi_1",
		Amount:          2999,
		Currency:        "usd",
		Metadata: SaleMetadata{
			BuyerID:  "u1",
			ArtistID: "a1",
			ItemID:   "art1",
			ItemType: "print",
		},
	}
	require.NoError(t, event.Validate())

	event.Metadata.BuyerID = ""
	event.Metadata.ItemID = " "
	err := event.Validate()
	require.Error(t, err)
	assert.True(t, IsMalformedEvent(err))

	var malformed *MalformedEventError
	require.ErrorAs(t, err, &malformed)
	assert.Equal(t, []string{"itemId", "buyerId"}, malformed.Missing)
	assert.Equal(t, "evt_1", malformed.EventID)
}

func TestPaymentSucceededRejectsUnknownItemType(t *testing.T) {
	event := PaymentSucceeded{
		Env:             Envelope{ID: "evt_2"},
		PaymentIntentID: "pi_2",
		Amount:          100,
		Currency:        "usd",
		Metadata:        SaleMetadata{BuyerID: "u", ArtistID: "a", ItemID: "i", ItemType: "sculpture"},
	}
	assert.True(t, IsMalformedEvent(event.Validate()))
}

func TestIsSignatureError(t *testing.T) {
	assert.True(t, IsSignatureError(ErrMissingSignature))
	assert.True(t, IsSignatureError(ErrSignatureExpired))
	assert.False(t, IsSignatureError(ErrWebhookSecretMissing))
}

func TestFormatAmount(t *testing.T) {
	cases := map[string]struct {
		amount   int64
		currency string
		want     string
	}{
		"cents":        {amount: 2999, currency: "usd", want: "USD 29.99"},
		"padded":       {amount: 105, currency: "eur", want: "EUR 1.05"},
		"zero decimal": {amount: 5000, currency: "jpy", want: "JPY 5000"},
		"negative":     {amount: -150, currency: "gbp", want: "GBP -1.50"},
	}
	for name, tc := range cases {
		if got := FormatAmount(tc.amount, tc.currency); got != tc.want {
			t.Fatalf("%s: expected %q, got %q", name, tc.want, got)
		}
	}
}
