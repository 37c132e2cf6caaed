package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	catalogdomain "github.com/somagouache/gouache/internal/catalog/domain"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
	"gorm.io/gorm"
)

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

type errorPayload struct {
	Type    string            `json:"type"`
	Message string            `json:"message"`
	Errors  []ValidationError `json:"errors,omitempty"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound           = errors.New("not_found")
	ErrInvalidRequest     = errors.New("invalid_request")
	ErrRateLimited        = errors.New("rate_limited")
	ErrServiceUnavailable = errors.New("service_unavailable")
	ErrPayloadTooLarge    = errors.New("payload_too_large")
)

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

func mapError(err error) (int, errorPayload) {
	if err == nil {
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}

	if vErr := asValidationErrors(err); vErr != nil {
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors:  vErr.Errors,
		}
	}

	var providerErr *paymentdomain.ProviderError
	switch {
	case isValidationError(err):
		code := err.Error()
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Message: "validation error",
			Errors: []ValidationError{
				{
					Field:   validationErrorField(err),
					Code:    code,
					Message: validationErrorMessage(err),
				},
			},
		}
	case paymentdomain.IsSignatureError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "signature_error",
			Message: err.Error(),
		}
	case errors.Is(err, paymentdomain.ErrPayeeNotReady),
		errors.Is(err, paymentdomain.ErrNotAvailable):
		return http.StatusBadRequest, errorPayload{
			Type:    "precondition_failed",
			Message: preconditionMessage(err),
		}
	case errors.Is(err, paymentdomain.ErrOwnershipMismatch):
		return http.StatusForbidden, errorPayload{
			Type:    "forbidden",
			Message: "item does not belong to this artist",
		}
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Message: notFoundMessage(err),
		}
	case errors.Is(err, ErrPayloadTooLarge):
		return http.StatusRequestEntityTooLarge, errorPayload{
			Type:    "payload_too_large",
			Message: "request body too large",
		}
	case errors.Is(err, ErrRateLimited):
		return http.StatusTooManyRequests, errorPayload{
			Type:    "rate_limited",
			Message: "too many requests",
		}
	case errors.Is(err, ErrServiceUnavailable):
		return http.StatusServiceUnavailable, errorPayload{
			Type:    "service_unavailable",
			Message: "service unavailable",
		}
	case errors.As(err, &providerErr):
		return http.StatusInternalServerError, errorPayload{
			Type:    "provider_error",
			Message: providerErr.Message,
		}
	case errors.Is(err, paymentdomain.ErrProviderNotConfigured):
		return http.StatusInternalServerError, errorPayload{
			Type:    "provider_error",
			Message: "payment provider is not configured",
		}
	case errors.Is(err, paymentdomain.ErrWebhookSecretMissing):
		return http.StatusInternalServerError, errorPayload{
			Type:    "configuration_error",
			Message: "webhook secret is not configured",
		}
	default:
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Message: "internal server error",
		}
	}
}

// classifyErrorForLog reports the error type and code for the request log line.
func classifyErrorForLog(err error) (string, string) {
	_, payload := mapError(err)
	code := payload.Type
	if len(payload.Errors) > 0 {
		code = payload.Errors[0].Code
	} else if !errors.As(err, new(*paymentdomain.ProviderError)) && payload.Type != "internal_error" {
		code = err.Error()
	}
	return payload.Type, code
}

func asValidationErrors(err error) *ValidationErrors {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		return vErr
	}
	return nil
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidRequest),
		errors.Is(err, paymentdomain.ErrInvalidAmount),
		errors.Is(err, paymentdomain.ErrInvalidCurrency),
		errors.Is(err, paymentdomain.ErrInvalidItemType),
		errors.Is(err, paymentdomain.ErrItemTypeMismatch):
		return true
	default:
		return false
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, paymentdomain.ErrArtistNotFound),
		errors.Is(err, paymentdomain.ErrItemNotFound),
		errors.Is(err, paymentdomain.ErrSaleNotFound),
		errors.Is(err, catalogdomain.ErrSellerNotFound),
		errors.Is(err, catalogdomain.ErrItemNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func validationErrorField(err error) string {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidAmount):
		return "amount"
	case errors.Is(err, paymentdomain.ErrInvalidCurrency):
		return "currency"
	case errors.Is(err, paymentdomain.ErrInvalidItemType),
		errors.Is(err, paymentdomain.ErrItemTypeMismatch):
		return "itemType"
	default:
		return "request"
	}
}

func validationErrorMessage(err error) string {
	switch {
	case errors.Is(err, paymentdomain.ErrInvalidAmount):
		return "amount is below the minimum charge"
	case errors.Is(err, paymentdomain.ErrInvalidCurrency):
		return "currency is not supported"
	case errors.Is(err, paymentdomain.ErrInvalidItemType):
		return "itemType must be one of original, print, book, course"
	case errors.Is(err, paymentdomain.ErrItemTypeMismatch):
		return "itemType does not match the item"
	default:
		return "missing required fields"
	}
}

func preconditionMessage(err error) string {
	if errors.Is(err, paymentdomain.ErrPayeeNotReady) {
		return "artist has not completed payout onboarding"
	}
	return "item is not available for purchase"
}

func notFoundMessage(err error) string {
	switch {
	case errors.Is(err, paymentdomain.ErrArtistNotFound),
		errors.Is(err, catalogdomain.ErrSellerNotFound):
		return "artist not found"
	case errors.Is(err, paymentdomain.ErrItemNotFound),
		errors.Is(err, catalogdomain.ErrItemNotFound):
		return "item not found"
	case errors.Is(err, paymentdomain.ErrSaleNotFound):
		return "sale not found"
	default:
		return "not found"
	}
}
