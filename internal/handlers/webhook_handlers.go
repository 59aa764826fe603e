package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"coinapp-api/internal/logger"
	"coinapp-api/internal/reconcile"
)

// WebhookHandler handles inbound Circle webhook deliveries
type WebhookHandler struct {
	common *CommonServices
}

// NewWebhookHandler creates a new WebhookHandler instance
func NewWebhookHandler(common *CommonServices) *WebhookHandler {
	return &WebhookHandler{common: common}
}

// WebhookAck is the acknowledgment body Circle expects on accepted deliveries
type WebhookAck struct {
	Received bool `json:"received"`
}

// HandleCircleNotification processes a signed webhook delivery. Once the
// signature checks out the delivery is acknowledged with 200 no matter what
// reconciliation does; a non-2xx here makes Circle retry a notification that
// will fail identically every time.
func (h *WebhookHandler) HandleCircleNotification(c *gin.Context) {
	signature := c.GetHeader("x-circle-signature")
	keyID := c.GetHeader("x-circle-key-id")
	if signature == "" || keyID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "Missing signature or keyId"})
		return
	}

	// The signature covers the exact bytes on the wire; the body must not
	// be re-serialized before verification.
	rawBody, err := c.GetRawData()
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to read request body", err)
		return
	}

	if !h.common.verifier.Verify(c.Request.Context(), rawBody, signature, keyID) {
		logger.Log.Warn("Rejected webhook delivery with invalid signature",
			zap.String("keyId", keyID),
			zap.String("client_ip", c.ClientIP()))
		c.JSON(http.StatusForbidden, ErrorResponse{Error: "Invalid signature"})
		return
	}

	env, err := reconcile.ParseEnvelope(rawBody)
	if err != nil {
		sendError(c, http.StatusInternalServerError, "Failed to process notification", err)
		return
	}

	// Errors past this point are logged inside Process and swallowed.
	_ = h.common.reconciler.Process(c.Request.Context(), env)

	c.JSON(http.StatusOK, WebhookAck{Received: true})
}

// HandleCircleNotificationHead answers the reachability probe Circle sends
// when a webhook subscription is registered.
func (h *WebhookHandler) HandleCircleNotificationHead(c *gin.Context) {
	c.Status(http.StatusOK)
}
