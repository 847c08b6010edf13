package handlers

import (
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/incridea/fest-backend/internal/apperror"
	"github.com/incridea/fest-backend/internal/auth"
	"github.com/incridea/fest-backend/internal/config"
	"github.com/incridea/fest-backend/internal/services"
)

// POST /api/payment/initiate {selector}
func InitiatePayment(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			Selector string `json:"selector"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
			return
		}
		out, err := svc.Initiate(c.Request.Context(), auth.UserID(c), config.Selector(req.Selector))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// POST /api/payment/initiate-event {teamId}
func InitiateEventPayment(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req struct {
			TeamID string `json:"teamId"`
		}
		if err := c.BindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad json"})
			return
		}
		teamID, err := uuid.Parse(req.TeamID)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "bad teamId"})
			return
		}
		out, err := svc.InitiateEventPayment(c.Request.Context(), auth.UserID(c), teamID)
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}

// POST /api/payment/webhook is unauthenticated; the HMAC header is the
// auth. Everything except a signature mismatch acks 200 so the gateway
// does not retry-storm.
func PaymentWebhook(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		// Signature verification needs the bytes exactly as sent.
		raw, err := io.ReadAll(c.Request.Body)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "unreadable body"})
			return
		}
		err = svc.HandleWebhook(c.Request.Context(), raw, c.GetHeader("X-Signature"))
		if errors.Is(err, apperror.ErrInvalidSignature) {
			writeError(c, err)
			return
		}
		if err != nil {
			// Logged, still acked: a gateway retry lands on the same
			// idempotent path.
			log.Printf("❌ webhook processing error (acked): %v", err)
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	}
}

// GET /api/payment/receipt/:orderId/verify?paymentId=...
func VerifyReceipt(svc *services.PaymentService) gin.HandlerFunc {
	return func(c *gin.Context) {
		out, err := svc.VerifyReceipt(c.Request.Context(), c.Param("orderId"), c.Query("paymentId"))
		if err != nil {
			writeError(c, err)
			return
		}
		c.JSON(http.StatusOK, out)
	}
}
