package settlement

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi"
	errors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/payment"
	"github.com/rsharma-dev/order-settlement/internal/transport"
)

// ServiceAPI is the engine surface the HTTP layer depends on.
type ServiceAPI interface {
	CreateOrder(ctx context.Context, clientID int64, req *CreateOrderRequest) (*CheckoutResponse, error)
	VerifyPayment(ctx context.Context, clientID int64, req *VerifyPaymentRequest) (*VerificationResult, error)
	VerifyCallback(ctx context.Context, req *VerifyPaymentRequest) (*VerificationResult, error)
	RecordCashPayment(ctx context.Context, clientID int64, req *CashPaymentRequest) (*VerificationResult, error)
	InitiateRefund(ctx context.Context, clientID int64, req *RefundRequest) (*RefundResult, error)
	IsPaid(ctx context.Context, entityType string, entityID int64) bool
	PaymentsForOrder(ctx context.Context, clientID int64, entityType string, entityID int64) ([]*payment.Payment, error)
	PaymentByID(ctx context.Context, clientID, paymentID int64) (*payment.Payment, error)
	GatewayKeyID(ctx context.Context, clientID int64) (string, error)
	PaymentReceipt(ctx context.Context, clientID, paymentID int64) ([]byte, string, error)
}

type Handler struct {
	*transport.BaseHandler
	Service ServiceAPI
}

func NewHandler(service ServiceAPI, logger *slog.Logger) *Handler {
	return &Handler{
		BaseHandler: transport.NewBaseHandler(logger),
		Service:     service,
	}
}

type createOrderBody struct {
	EntityType  string `json:"entity_type"`
	EntityID    int64  `json:"entity_id"`
	AmountPaise *int64 `json:"amount_paise,omitempty"`
	Currency    string `json:"currency,omitempty"`
	Notes       string `json:"notes,omitempty"`
}

// CreateOrder handles POST /api/v1/settlement/orders
func (h *Handler) CreateOrder(w http.ResponseWriter, r *http.Request) {
	h.createOrder(w, r, false)
}

// CreateFollowUpOrder handles POST /api/v1/settlement/orders/follow-up
func (h *Handler) CreateFollowUpOrder(w http.ResponseWriter, r *http.Request) {
	h.createOrder(w, r, true)
}

func (h *Handler) createOrder(w http.ResponseWriter, r *http.Request, followUp bool) {
	clientID := errors.ClientIDFromContext(r.Context())

	var body createOrderBody
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		h.Logger.Error("CreateOrder: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}

	req := &CreateOrderRequest{
		EntityType: body.EntityType,
		EntityID:   body.EntityID,
		Amount:     RemainingBalance(),
		Currency:   body.Currency,
		Notes:      body.Notes,
		FollowUp:   followUp,
	}
	if body.AmountPaise != nil {
		req.Amount = ExplicitAmount(*body.AmountPaise)
	}

	resp, err := h.Service.CreateOrder(r.Context(), clientID, req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, resp)
}

// VerifyPayment handles POST /api/v1/settlement/verify
func (h *Handler) VerifyPayment(w http.ResponseWriter, r *http.Request) {
	h.verifyPayment(w, r, false)
}

// VerifyFollowUpPayment handles POST /api/v1/settlement/verify/follow-up
func (h *Handler) VerifyFollowUpPayment(w http.ResponseWriter, r *http.Request) {
	h.verifyPayment(w, r, true)
}

func (h *Handler) verifyPayment(w http.ResponseWriter, r *http.Request, followUp bool) {
	clientID := errors.ClientIDFromContext(r.Context())

	var req VerifyPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("VerifyPayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}
	req.FollowUp = followUp

	result, err := h.Service.VerifyPayment(r.Context(), clientID, &req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	status := http.StatusOK
	if !result.Success {
		status = http.StatusBadRequest
	}
	h.WriteJSON(w, status, result)
}

// RecordCashPayment handles POST /api/v1/settlement/cash
func (h *Handler) RecordCashPayment(w http.ResponseWriter, r *http.Request) {
	h.recordCashPayment(w, r, false)
}

// RecordFollowUpCashPayment handles POST /api/v1/settlement/cash/follow-up
func (h *Handler) RecordFollowUpCashPayment(w http.ResponseWriter, r *http.Request) {
	h.recordCashPayment(w, r, true)
}

func (h *Handler) recordCashPayment(w http.ResponseWriter, r *http.Request, followUp bool) {
	clientID := errors.ClientIDFromContext(r.Context())

	var req CashPaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.Logger.Error("RecordCashPayment: failed to parse request body", "error", err)
		h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
		return
	}
	req.FollowUp = followUp

	result, err := h.Service.RecordCashPayment(r.Context(), clientID, &req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusCreated, result)
}

// InitiateRefund handles POST /api/v1/settlement/payments/{paymentID}/refund
func (h *Handler) InitiateRefund(w http.ResponseWriter, r *http.Request) {
	clientID := errors.ClientIDFromContext(r.Context())

	paymentID, err := pathID(r, "paymentID")
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid payment ID", errors.ErrCodeValidationFailed))
		return
	}

	var req RefundRequest
	if r.ContentLength > 0 {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			h.Logger.Error("InitiateRefund: failed to parse request body", "error", err)
			h.HandleError(w, errors.NewValidationError("invalid request body", errors.ErrCodeValidationFailed))
			return
		}
	}
	req.PaymentID = paymentID

	result, err := h.Service.InitiateRefund(r.Context(), clientID, &req)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, result)
}

// ListOrderPayments handles GET /api/v1/settlement/orders/{orderID}/payments
func (h *Handler) ListOrderPayments(w http.ResponseWriter, r *http.Request) {
	clientID := errors.ClientIDFromContext(r.Context())

	orderID, err := pathID(r, "orderID")
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid order ID", errors.ErrCodeValidationFailed))
		return
	}

	entityType := r.URL.Query().Get("entity_type")
	if entityType == "" {
		entityType = payment.EntityTypePurchaseOrder
	}

	payments, err := h.Service.PaymentsForOrder(r.Context(), clientID, entityType, orderID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, map[string]interface{}{
		"payments": payments,
		"is_paid":  h.Service.IsPaid(r.Context(), entityType, orderID),
	})
}

// GetPayment handles GET /api/v1/settlement/payments/{paymentID}
func (h *Handler) GetPayment(w http.ResponseWriter, r *http.Request) {
	clientID := errors.ClientIDFromContext(r.Context())

	paymentID, err := pathID(r, "paymentID")
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid payment ID", errors.ErrCodeValidationFailed))
		return
	}

	p, err := h.Service.PaymentByID(r.Context(), clientID, paymentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, p)
}

// GetReceipt handles GET /api/v1/settlement/payments/{paymentID}/receipt
func (h *Handler) GetReceipt(w http.ResponseWriter, r *http.Request) {
	clientID := errors.ClientIDFromContext(r.Context())

	paymentID, err := pathID(r, "paymentID")
	if err != nil {
		h.HandleError(w, errors.NewValidationError("invalid payment ID", errors.ErrCodeValidationFailed))
		return
	}

	receipt, contentType, err := h.Service.PaymentReceipt(r.Context(), clientID, paymentID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", contentType)
	w.WriteHeader(http.StatusOK)
	if _, err := w.Write(receipt); err != nil {
		h.Logger.Error("GetReceipt: failed to write receipt", "error", err)
	}
}

// GetGatewayKey handles GET /api/v1/settlement/key
func (h *Handler) GetGatewayKey(w http.ResponseWriter, r *http.Request) {
	clientID := errors.ClientIDFromContext(r.Context())

	keyID, err := h.Service.GatewayKeyID(r.Context(), clientID)
	if err != nil {
		h.HandleServiceError(w, err)
		return
	}

	h.WriteJSON(w, http.StatusOK, GatewayKeyResponse{KeyID: keyID})
}

func pathID(r *http.Request, param string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, param), 10, 64)
}
