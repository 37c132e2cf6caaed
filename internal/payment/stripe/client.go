package stripe

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
)

const (
	MetadataBuyerID   = "buyerId"
	MetadataArtistID  = "artistId"
	MetadataItemID    = "itemId"
	MetadataItemType  = "itemType"
	MetadataItemTitle = "itemTitle"
	MetadataStock     = "stock"
)

const defaultAPIBase = "https://api.stripe.com"

type stripeErrorResponse struct {
	Error struct {
		Type    string `json:"type"`
		Code    string `json:"code"`
		Message string `json:"message"`
	} `json:"error"`
}

// Client is a minimal form-encoded Stripe REST client for payment intents.
type Client struct {
	apiKey  string
	baseURL string
	client  *http.Client
}

func NewClient(apiKey string, baseURL string) *Client {
	baseURL = strings.TrimRight(strings.TrimSpace(baseURL), "/")
	if baseURL == "" {
		baseURL = defaultAPIBase
	}
	return &Client{
		apiKey:  strings.TrimSpace(apiKey),
		baseURL: baseURL,
		client:  &http.Client{Timeout: 12 * time.Second},
	}
}

func (c *Client) CreatePaymentIntent(ctx context.Context, params paymentdomain.CreatePaymentIntentParams) (*paymentdomain.ProviderPaymentIntent, error) {
	values := url.Values{}
	values.Set("amount", strconv.FormatInt(params.Amount, 10))
	values.Set("currency", strings.ToLower(strings.TrimSpace(params.Currency)))
	values.Set("automatic_payment_methods[enabled]", "true")
	values.Set("application_fee_amount", strconv.FormatInt(params.ApplicationFeeAmount, 10))
	values.Set("transfer_data[destination]", params.DestinationAccount)
	if description := strings.TrimSpace(params.Description); description != "" {
		values.Set("description", description)
	}
	for key, value := range params.Metadata {
		values.Set("metadata["+key+"]", value)
	}

	return c.doRequest(ctx, http.MethodPost, "/v1/payment_intents", values, params.IdempotencyKey)
}

func (c *Client) RetrievePaymentIntent(ctx context.Context, id string) (*paymentdomain.ProviderPaymentIntent, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, paymentdomain.ErrInvalidRequest
	}
	return c.doRequest(ctx, http.MethodGet, "/v1/payment_intents/"+url.PathEscape(id), nil, "")
}

func (c *Client) doRequest(
	ctx context.Context,
	method string,
	path string,
	values url.Values,
	idempotencyKey string,
) (*paymentdomain.ProviderPaymentIntent, error) {
	if c.apiKey == "" {
		return nil, paymentdomain.ErrProviderNotConfigured
	}
	var bodyReader *strings.Reader
	if values != nil {
		bodyReader = strings.NewReader(values.Encode())
	} else {
		bodyReader = strings.NewReader("")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	if values != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}
	if idempotencyKey != "" {
		req.Header.Set("Idempotency-Key", idempotencyKey)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &paymentdomain.ProviderError{StatusCode: http.StatusBadGateway, Message: err.Error()}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		var stripeErr stripeErrorResponse
		if err := json.NewDecoder(resp.Body).Decode(&stripeErr); err != nil {
			return nil, &paymentdomain.ProviderError{StatusCode: resp.StatusCode, Message: "stripe_request_failed"}
		}
		message := strings.TrimSpace(stripeErr.Error.Message)
		if message == "" {
			message = "stripe_request_failed"
		}
		return nil, &paymentdomain.ProviderError{
			StatusCode: resp.StatusCode,
			Code:       strings.TrimSpace(stripeErr.Error.Code),
			Message:    message,
		}
	}

	var intent stripePaymentIntent
	if err := json.NewDecoder(resp.Body).Decode(&intent); err != nil {
		return nil, &paymentdomain.ProviderError{StatusCode: resp.StatusCode, Message: "stripe_response_invalid"}
	}
	if intent.ID == "" {
		return nil, &paymentdomain.ProviderError{StatusCode: resp.StatusCode, Message: "stripe_response_invalid"}
	}
	return toProviderIntent(intent), nil
}

func toProviderIntent(intent stripePaymentIntent) *paymentdomain.ProviderPaymentIntent {
	metadata := make(map[string]string, len(intent.Metadata))
	for key := range intent.Metadata {
		metadata[key] = readMetadataValue(intent.Metadata, key)
	}
	var fee int64
	if intent.ApplicationFeeAmount != nil {
		fee = *intent.ApplicationFeeAmount
	}
	return &paymentdomain.ProviderPaymentIntent{
		ID:                   intent.ID,
		ClientSecret:         intent.ClientSecret,
		Status:               intent.Status,
		Amount:               intent.Amount,
		Currency:             strings.ToLower(intent.Currency),
		ApplicationFeeAmount: fee,
		Created:              unixTime(intent.Created),
		Metadata:             metadata,
	}
}

var _ paymentdomain.Provider = (*Client)(nil)
