package settlement

import (
	"encoding/json"
	"log/slog"
	"net/http"

	"github.com/rsharma-dev/order-settlement/internal/transport"
)

type WebhookHandler struct {
	*transport.BaseHandler
	service ServiceAPI
	logger  *slog.Logger
}

func NewWebhookHandler(baseHandler *transport.BaseHandler, service ServiceAPI, logger *slog.Logger) *WebhookHandler {
	return &WebhookHandler{
		BaseHandler: baseHandler,
		service:     service,
		logger:      logger,
	}
}

// GatewayCallbackRequest is the gateway's capture notification payload.
type GatewayCallbackRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

type GatewayCallbackResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// HandleGatewayCallback handles POST /webhook/settlement/callback. The
// tenant is resolved from the payment order; the signature check inside the
// engine authenticates the caller.
func (h *WebhookHandler) HandleGatewayCallback(w http.ResponseWriter, r *http.Request) {
	var req GatewayCallbackRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.logger.Error("invalid gateway callback request", "error", err)
		h.WriteErrorResponse(w, http.StatusBadRequest, "invalid request body")
		return
	}

	h.logger.Info("received gateway callback",
		"gateway_order_id", req.GatewayOrderID,
		"gateway_payment_id", req.GatewayPaymentID)

	if req.GatewayOrderID == "" {
		h.WriteErrorResponse(w, http.StatusBadRequest, "gateway_order_id is required")
		return
	}
	if req.GatewayPaymentID == "" {
		h.WriteErrorResponse(w, http.StatusBadRequest, "gateway_payment_id is required")
		return
	}

	result, err := h.service.VerifyCallback(r.Context(), &VerifyPaymentRequest{
		GatewayOrderID:   req.GatewayOrderID,
		GatewayPaymentID: req.GatewayPaymentID,
		Signature:        req.Signature,
	})
	if err != nil {
		h.logger.Error("failed to process gateway callback",
			"gateway_order_id", req.GatewayOrderID,
			"error", err)
		h.HandleServiceError(w, err)
		return
	}

	if !result.Success {
		h.logger.Warn("gateway callback rejected",
			"gateway_order_id", req.GatewayOrderID,
			"message", result.Message)
		h.WriteJSON(w, http.StatusBadRequest, GatewayCallbackResponse{
			Status:  "rejected",
			Message: result.Message,
		})
		return
	}

	h.logger.Info("gateway callback processed",
		"gateway_order_id", req.GatewayOrderID,
		"order_status", result.OrderStatus)

	h.WriteJSON(w, http.StatusOK, GatewayCallbackResponse{
		Status:  "success",
		Message: "callback processed successfully",
	})
}

func (h *WebhookHandler) WriteErrorResponse(w http.ResponseWriter, statusCode int, message string) {
	response := map[string]string{
		"error": message,
	}
	h.WriteJSON(w, statusCode, response)
}
