package server

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	obscontext "github.com/somagouache/gouache/internal/observability/context"
	paymentdomain "github.com/somagouache/gouache/internal/payment/domain"
)

const (
	stripeSignatureHeader = "Stripe-Signature"
	maxWebhookBodyBytes   = 1 << 20
)

func (s *Server) CreatePaymentIntent(c *gin.Context) {
	var req paymentdomain.CreateIntentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	c.Request = c.Request.WithContext(obscontext.WithBuyerID(c.Request.Context(), req.BuyerID))

	resp, err := s.intentSvc.CreateIntent(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	if resp != nil {
		c.Request = c.Request.WithContext(obscontext.WithPaymentIntentID(c.Request.Context(), resp.PaymentIntentID))
	}

	c.JSON(http.StatusOK, resp)
}

// HandlePaymentWebhook acknowledges every authentic delivery; only authenticity
// failures and a missing signing secret produce an error status.
func (s *Server) HandlePaymentWebhook(c *gin.Context) {
	payload, err := io.ReadAll(http.MaxBytesReader(c.Writer, c.Request.Body, maxWebhookBodyBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			AbortWithError(c, ErrPayloadTooLarge)
			return
		}
		AbortWithError(c, invalidRequestError())
		return
	}

	outcome, err := s.settlementSvc.HandleEvent(c.Request.Context(), payload, c.GetHeader(stripeSignatureHeader))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Set(obscontext.WebhookOutcomeKey, string(outcome))
	c.JSON(http.StatusOK, gin.H{"received": true})
}

func (s *Server) VerifyPayment(c *gin.Context) {
	paymentIntentID := c.Query("paymentIntentId")
	c.Request = c.Request.WithContext(obscontext.WithPaymentIntentID(c.Request.Context(), paymentIntentID))

	result, err := s.verifySvc.Verify(c.Request.Context(), paymentIntentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, result)
}

func (s *Server) DownloadReceipt(c *gin.Context) {
	paymentIntentID := strings.TrimSpace(c.Param("paymentIntentId"))
	c.Request = c.Request.WithContext(obscontext.WithPaymentIntentID(c.Request.Context(), paymentIntentID))

	doc, err := s.receiptSvc.Render(c.Request.Context(), paymentIntentID)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", "receipt-"+paymentIntentID+".pdf"))
	c.Data(http.StatusOK, "application/pdf", doc)
}
