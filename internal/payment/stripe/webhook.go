package stripe

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/somagouache/gouache/internal/clock"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
)

const SignatureHeader = "Stripe-Signature"

// WebhookAdapter authenticates Stripe-signed deliveries and decodes them into domain events.
type WebhookAdapter struct {
	secret    string
	tolerance time.Duration
	clock     clock.Clock
}

// NewWebhookAdapter builds an adapter; a zero tolerance disables the timestamp check.
func NewWebhookAdapter(secret string, tolerance time.Duration, clk clock.Clock) *WebhookAdapter {
	if clk == nil {
		clk = clock.New()
	}
	return &WebhookAdapter{
		secret:    strings.TrimSpace(secret),
		tolerance: tolerance,
		clock:     clk,
	}
}

func (a *WebhookAdapter) Provider() string {
	return paymentdomain.ProviderStripe
}

func (a *WebhookAdapter) Verify(ctx context.Context, payload []byte, signatureHeader string) error {
	if a.secret == "" {
		return paymentdomain.ErrWebhookSecretMissing
	}
	sigHeader := strings.TrimSpace(signatureHeader)
	if sigHeader == "" {
		return paymentdomain.ErrMissingSignature
	}

	timestamp, signatures, err := parseStripeSignature(sigHeader)
	if err != nil {
		return paymentdomain.ErrInvalidSignature
	}

	expected := ComputeSignature(a.secret, timestamp, payload)
	matched := false
	for _, signature := range signatures {
		if hmac.Equal([]byte(signature), []byte(expected)) {
			matched = true
			break
		}
	}
	if !matched {
		return paymentdomain.ErrInvalidSignature
	}

	if a.tolerance > 0 {
		unix, err := strconv.ParseInt(timestamp, 10, 64)
		if err != nil {
			return paymentdomain.ErrInvalidSignature
		}
		age := a.clock.Now().Sub(time.Unix(unix, 0))
		if age > a.tolerance || age < -a.tolerance {
			return paymentdomain.ErrSignatureExpired
		}
	}
	return nil
}

// ComputeSignature returns the hex HMAC-SHA256 of "<timestamp>.<payload>".
func ComputeSignature(secret string, timestamp string, payload []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	_, _ = mac.Write([]byte(timestamp))
	_, _ = mac.Write([]byte("."))
	_, _ = mac.Write(payload)
	return hex.EncodeToString(mac.Sum(nil))
}

// SignatureHeaderValue builds a header value the way Stripe sends it.
func SignatureHeaderValue(secret string, at time.Time, payload []byte) string {
	ts := strconv.FormatInt(at.Unix(), 10)
	return fmt.Sprintf("t=%s,v1=%s", ts, ComputeSignature(secret, ts, payload))
}

func (a *WebhookAdapter) Parse(ctx context.Context, payload []byte) (paymentdomain.Event, error) {
	var event stripeEvent
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	env := paymentdomain.Envelope{
		ID:         strings.TrimSpace(event.ID),
		Type:       strings.TrimSpace(event.Type),
		OccurredAt: a.occurredAt(event.Created),
		Livemode:   event.Livemode,
		Raw:        payload,
	}
	if env.ID == "" || env.Type == "" {
		return nil, paymentdomain.ErrInvalidPayload
	}

	var (
		decoded paymentdomain.Event
		err     error
	)
	switch env.Type {
	case paymentdomain.EventTypePaymentSucceeded:
		decoded, err = parsePaymentSucceeded(env, event.Data.Object)
	case paymentdomain.EventTypePaymentFailed:
		decoded, err = parsePaymentFailed(env, event.Data.Object)
	case paymentdomain.EventTypeTransferCreated:
		decoded, err = parseTransfer(env, event.Data.Object)
	case paymentdomain.EventTypePayoutPaid, paymentdomain.EventTypePayoutFailed:
		decoded, err = parsePayout(env, event.Data.Object)
	case paymentdomain.EventTypeDisputeCreated:
		decoded, err = parseDispute(env, event.Data.Object)
	default:
		return paymentdomain.Unhandled{Env: env}, nil
	}
	if err != nil {
		return nil, err
	}
	if err := decoded.Validate(); err != nil {
		return nil, err
	}
	return decoded, nil
}

type stripeEvent struct {
	ID       string          `json:"id"`
	Type     string          `json:"type"`
	Created  int64           `json:"created"`
	Livemode bool            `json:"livemode"`
	Data     stripeEventData `json:"data"`
}

type stripeEventData struct {
	Object json.RawMessage `json:"object"`
}

type stripePaymentIntent struct {
	ID                   string              `json:"id"`
	ClientSecret         string              `json:"client_secret"`
	Status               string              `json:"status"`
	Amount               int64               `json:"amount"`
	AmountReceived       int64               `json:"amount_received"`
	Currency             string              `json:"currency"`
	ApplicationFeeAmount *int64              `json:"application_fee_amount"`
	Created              int64               `json:"created"`
	Metadata             map[string]any      `json:"metadata"`
	LastPaymentError     *stripePaymentError `json:"last_payment_error"`
}

type stripePaymentError struct {
	Code        string `json:"code"`
	DeclineCode string `json:"decline_code"`
	Message     string `json:"message"`
}

type stripeTransfer struct {
	ID                string `json:"id"`
	Amount            int64  `json:"amount"`
	Currency          string `json:"currency"`
	Destination       string `json:"destination"`
	SourceTransaction string `json:"source_transaction"`
}

type stripePayout struct {
	ID          string `json:"id"`
	Amount      int64  `json:"amount"`
	Currency    string `json:"currency"`
	Status      string `json:"status"`
	FailureCode string `json:"failure_code"`
}

type stripeDispute struct {
	ID            string `json:"id"`
	Charge        string `json:"charge"`
	PaymentIntent string `json:"payment_intent"`
	Amount        int64  `json:"amount"`
	Currency      string `json:"currency"`
	Reason        string `json:"reason"`
	Status        string `json:"status"`
}

func parsePaymentSucceeded(env paymentdomain.Envelope, raw json.RawMessage) (paymentdomain.Event, error) {
	var intent stripePaymentIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	return paymentdomain.PaymentSucceeded{
		Env:                  env,
		PaymentIntentID:      strings.TrimSpace(intent.ID),
		Amount:               intent.Amount,
		Currency:             strings.ToLower(strings.TrimSpace(intent.Currency)),
		ApplicationFeeAmount: intent.ApplicationFeeAmount,
		Metadata:             saleMetadata(intent.Metadata),
	}, nil
}

func parsePaymentFailed(env paymentdomain.Envelope, raw json.RawMessage) (paymentdomain.Event, error) {
	var intent stripePaymentIntent
	if err := json.Unmarshal(raw, &intent); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	event := paymentdomain.PaymentFailed{
		Env:             env,
		PaymentIntentID: strings.TrimSpace(intent.ID),
		Amount:          intent.Amount,
		Currency:        strings.ToLower(strings.TrimSpace(intent.Currency)),
		Metadata:        saleMetadata(intent.Metadata),
	}
	if intent.LastPaymentError != nil {
		event.ErrorCode = strings.TrimSpace(intent.LastPaymentError.Code)
		if event.ErrorCode == "" {
			event.ErrorCode = strings.TrimSpace(intent.LastPaymentError.DeclineCode)
		}
		event.ErrorMessage = strings.TrimSpace(intent.LastPaymentError.Message)
	}
	return event, nil
}

func parseTransfer(env paymentdomain.Envelope, raw json.RawMessage) (paymentdomain.Event, error) {
	var transfer stripeTransfer
	if err := json.Unmarshal(raw, &transfer); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	return paymentdomain.TransferCreated{
		Env:               env,
		TransferID:        strings.TrimSpace(transfer.ID),
		Destination:       strings.TrimSpace(transfer.Destination),
		SourceTransaction: strings.TrimSpace(transfer.SourceTransaction),
		Amount:            transfer.Amount,
		Currency:          strings.ToLower(strings.TrimSpace(transfer.Currency)),
	}, nil
}

func parsePayout(env paymentdomain.Envelope, raw json.RawMessage) (paymentdomain.Event, error) {
	var payout stripePayout
	if err := json.Unmarshal(raw, &payout); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	return paymentdomain.Payout{
		Env:         env,
		PayoutID:    strings.TrimSpace(payout.ID),
		Amount:      payout.Amount,
		Currency:    strings.ToLower(strings.TrimSpace(payout.Currency)),
		Status:      strings.TrimSpace(payout.Status),
		FailureCode: strings.TrimSpace(payout.FailureCode),
	}, nil
}

func parseDispute(env paymentdomain.Envelope, raw json.RawMessage) (paymentdomain.Event, error) {
	var dispute stripeDispute
	if err := json.Unmarshal(raw, &dispute); err != nil {
		return nil, paymentdomain.ErrInvalidPayload
	}
	return paymentdomain.DisputeCreated{
		Env:             env,
		DisputeID:       strings.TrimSpace(dispute.ID),
		ChargeID:        strings.TrimSpace(dispute.Charge),
		PaymentIntentID: strings.TrimSpace(dispute.PaymentIntent),
		Amount:          dispute.Amount,
		Currency:        strings.ToLower(strings.TrimSpace(dispute.Currency)),
		Reason:          strings.TrimSpace(dispute.Reason),
		Status:          strings.TrimSpace(dispute.Status),
	}, nil
}

func saleMetadata(metadata map[string]any) paymentdomain.SaleMetadata {
	return paymentdomain.SaleMetadata{
		BuyerID:       readMetadataValue(metadata, MetadataBuyerID),
		ArtistID:      readMetadataValue(metadata, MetadataArtistID),
		ItemID:        readMetadataValue(metadata, MetadataItemID),
		ItemType:      readMetadataValue(metadata, MetadataItemType),
		ItemTitle:     readMetadataValue(metadata, MetadataItemTitle),
		StockSnapshot: readMetadataValue(metadata, MetadataStock),
	}
}

func parseStripeSignature(header string) (string, []string, error) {
	parts := strings.Split(header, ",")
	var timestamp string
	signatures := []string{}
	for _, part := range parts {
		piece := strings.TrimSpace(part)
		if piece == "" {
			continue
		}
		keyValue := strings.SplitN(piece, "=", 2)
		if len(keyValue) != 2 {
			continue
		}
		key := strings.TrimSpace(keyValue[0])
		value := strings.TrimSpace(keyValue[1])
		if key == "t" {
			timestamp = value
		}
		if key == "v1" {
			signatures = append(signatures, value)
		}
	}
	if timestamp == "" || len(signatures) == 0 {
		return "", nil, errors.New("invalid_signature")
	}
	return timestamp, signatures, nil
}

// occurredAt falls back to the adapter clock for events sent without "created".
func (a *WebhookAdapter) occurredAt(created int64) time.Time {
	if created == 0 {
		return a.clock.Now().UTC()
	}
	return unixTime(created)
}

// unixTime returns the zero time for a zero timestamp.
func unixTime(value int64) time.Time {
	if value == 0 {
		return time.Time{}
	}
	return time.Unix(value, 0).UTC()
}

func readMetadataValue(metadata map[string]any, key string) string {
	if metadata == nil {
		return ""
	}
	value, ok := metadata[key]
	if !ok {
		return ""
	}
	switch cast := value.(type) {
	case string:
		return strings.TrimSpace(cast)
	case float64:
		return strconv.FormatInt(int64(cast), 10)
	case json.Number:
		return cast.String()
	case int64:
		return strconv.FormatInt(cast, 10)
	case int:
		return strconv.Itoa(cast)
	}
	return ""
}

var _ paymentdomain.WebhookAdapter = (*WebhookAdapter)(nil)
