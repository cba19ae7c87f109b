package settlement

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	errors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/order"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/payment"
	tenantmodel "github.com/rsharma-dev/order-settlement/internal/core/datamodel/tenant"
	"github.com/rsharma-dev/order-settlement/internal/core/events"
	"github.com/rsharma-dev/order-settlement/internal/gateway"
	"github.com/rsharma-dev/order-settlement/internal/tenant"
)

// PaymentRepositoryAPI is the append-only payment ledger. Rows are created
// and amended through lifecycle transitions, never deleted.
type PaymentRepositoryAPI interface {
	Create(p *payment.Payment) error
	Save(p *payment.Payment) error
	GetByID(paymentID int64) (*payment.Payment, error)
	GetByGatewayOrderID(gatewayOrderID string) (*payment.Payment, error)
	ListByEntity(entityType string, entityID int64) ([]*payment.Payment, error)
	NetPaidPaise(entityType string, entityID int64) (int64, error)
	HasSuccessfulPayment(entityType string, entityID int64) (bool, error)
}

type OrderRepositoryAPI interface {
	GetByID(purchaseOrderID int64) (*order.PurchaseOrder, error)
	Save(po *order.PurchaseOrder) error
	GetSummaryByEntity(entityType string, entityID int64) (*order.OrderSummary, error)
	SaveSummary(summary *order.OrderSummary) error
}

// CredentialResolver resolves per-tenant gateway credentials and tenant
// metadata.
type CredentialResolver interface {
	GetClient(clientID int64) (*tenantmodel.Client, error)
	ResolveGatewayCredentials(clientID int64) (*tenant.GatewayCredentials, error)
}

type Service struct {
	payments PaymentRepositoryAPI
	orders   OrderRepositoryAPI
	tenants  CredentialResolver
	gateway  gateway.API
	renderer ReceiptRenderer
	eventBus *events.EventBus
	locks    *entityLocks
	testMode bool
	logger   *slog.Logger
}

func NewService(
	payments PaymentRepositoryAPI,
	orders OrderRepositoryAPI,
	tenants CredentialResolver,
	gw gateway.API,
	renderer ReceiptRenderer,
	eventBus *events.EventBus,
	testMode bool,
	logger *slog.Logger,
) *Service {
	return &Service{
		payments: payments,
		orders:   orders,
		tenants:  tenants,
		gateway:  gw,
		renderer: renderer,
		eventBus: eventBus,
		locks:    newEntityLocks(),
		testMode: testMode,
		logger:   logger,
	}
}

func (s *Service) CreateOrder(ctx context.Context, clientID int64, req *CreateOrderRequest) (*CheckoutResponse, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	creds, err := s.tenants.ResolveGatewayCredentials(clientID)
	if err != nil {
		return nil, err
	}

	po, err := s.loadEligibleOrder(clientID, req.EntityID, req.FollowUp)
	if err != nil {
		return nil, err
	}

	amountPaise, err := s.resolveAmount(req.EntityType, req.EntityID, req.Amount)
	if err != nil {
		return nil, err
	}

	currency := req.Currency
	if currency == "" {
		currency = "INR"
	}

	receipt := orderReceipt(req.EntityType, req.EntityID)

	remoteOrder, err := s.gateway.CreateOrder(ctx, creds, &gateway.CreateOrderRequest{
		AmountPaise:    amountPaise,
		Currency:       currency,
		Receipt:        receipt,
		IdempotencyKey: receipt,
	})
	if err != nil {
		s.logger.Error("gateway order creation failed",
			"client_id", clientID,
			"entity_type", req.EntityType,
			"entity_id", req.EntityID,
			"error", err)
		return nil, err
	}

	userName := auditUser(ctx)
	p := payment.NewGatewayOrderPayment(req.EntityType, req.EntityID, remoteOrder.ID, receipt, amountPaise, currency, clientID, userName)
	p.IsTestPayment = s.testMode
	if req.Notes != "" {
		notes := req.Notes
		p.Notes = &notes
	}

	if err := s.payments.Create(p); err != nil {
		s.logger.Error("failed to persist payment order",
			"gateway_order_id", remoteOrder.ID,
			"entity_id", req.EntityID,
			"error", err)
		return nil, errors.NewInternalError("failed to persist payment order", err)
	}

	client, err := s.tenants.GetClient(clientID)
	if err != nil {
		return nil, err
	}

	s.logger.Info("payment order created",
		"payment_id", p.PaymentID,
		"gateway_order_id", remoteOrder.ID,
		"entity_type", req.EntityType,
		"entity_id", req.EntityID,
		"amount_paise", amountPaise,
		"order_status", po.PurchaseOrderStatus)

	return &CheckoutResponse{
		GatewayOrderID: remoteOrder.ID,
		KeyID:          creds.KeyID,
		AmountPaise:    amountPaise,
		Currency:       currency,
		CompanyName:    client.ClientName,
		PrefillEmail:   client.SupportEmail,
		Description:    req.Notes,
		EntityType:     req.EntityType,
		EntityID:       req.EntityID,
		PaymentID:      p.PaymentID,
	}, nil
}

func (s *Service) VerifyPayment(ctx context.Context, clientID int64, req *VerifyPaymentRequest) (*VerificationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	creds, err := s.tenants.ResolveGatewayCredentials(clientID)
	if err != nil {
		return nil, err
	}

	p, err := s.payments.GetByGatewayOrderID(req.GatewayOrderID)
	if err != nil {
		s.logger.Error("payment order not found for verification",
			"gateway_order_id", req.GatewayOrderID,
			"error", err)
		return nil, errors.ErrPaymentOrderNotFound
	}

	if p.ClientID != clientID {
		return nil, errors.ErrAccessDeniedToPayment
	}

	po, err := s.loadEligibleOrder(clientID, p.EntityID, req.FollowUp)
	if err != nil {
		return nil, err
	}

	userName := auditUser(ctx)

	if !VerifySignature(req.GatewayOrderID, req.GatewayPaymentID, req.Signature, creds.Secret) {
		p.MarkFailed("SIGNATURE_MISMATCH", "Invalid signature", userName)
		if saveErr := s.payments.Save(p); saveErr != nil {
			s.logger.Error("failed to persist failed payment",
				"payment_id", p.PaymentID,
				"error", saveErr)
			return nil, errors.NewInternalError("failed to persist payment state", saveErr)
		}

		s.eventBus.Publish(ctx, events.NewPaymentCaptureFailedEvent(
			p.PaymentID, p.EntityType, p.EntityID, req.GatewayOrderID, "invalid signature"))

		s.logger.Warn("payment signature verification failed",
			"payment_id", p.PaymentID,
			"gateway_order_id", req.GatewayOrderID)

		return &VerificationResult{
			Success: false,
			Message: "Payment verification failed: Invalid signature",
		}, nil
	}

	unlock := s.locks.lock(p.EntityType, p.EntityID)
	defer unlock.Unlock()

	p.MarkCaptured(req.GatewayPaymentID, req.Signature, p.OrderAmountPaise, userName)
	if err := s.payments.Save(p); err != nil {
		s.logger.Error("failed to persist captured payment",
			"payment_id", p.PaymentID,
			"error", err)
		return nil, errors.NewInternalError("failed to persist payment state", err)
	}

	summary, newStatus, err := s.reconcile(p.EntityType, p.EntityID, po, userName)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, events.NewPaymentCapturedEvent(
		p.PaymentID, p.EntityType, p.EntityID, req.GatewayOrderID, req.GatewayPaymentID,
		p.AmountPaidPaise, derefOr(p.PaymentMethod, "")))

	s.logger.Info("payment captured",
		"payment_id", p.PaymentID,
		"gateway_order_id", req.GatewayOrderID,
		"gateway_payment_id", req.GatewayPaymentID,
		"amount_paise", p.AmountPaidPaise,
		"order_status", newStatus,
		"pending_amount", summary.PendingAmount.String())

	return &VerificationResult{
		Success:       true,
		Message:       "Payment verified successfully",
		PaymentID:     p.PaymentID,
		OrderStatus:   newStatus,
		PendingAmount: summary.PendingAmount,
	}, nil
}

// VerifyCallback handles the gateway webhook: the tenant is resolved from
// the payment row and the eligibility gate is inferred from the order's
// current status.
func (s *Service) VerifyCallback(ctx context.Context, req *VerifyPaymentRequest) (*VerificationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p, err := s.payments.GetByGatewayOrderID(req.GatewayOrderID)
	if err != nil {
		s.logger.Error("payment order not found for callback",
			"gateway_order_id", req.GatewayOrderID,
			"error", err)
		return nil, errors.ErrPaymentOrderNotFound
	}

	po, err := s.orders.GetByID(p.EntityID)
	if err != nil {
		return nil, errors.ErrPurchaseOrderNotFound
	}

	callbackReq := *req
	callbackReq.FollowUp = !order.EligibleForFirstPayment(po.PurchaseOrderStatus)

	return s.VerifyPayment(ctx, p.ClientID, &callbackReq)
}

func (s *Service) RecordCashPayment(ctx context.Context, clientID int64, req *CashPaymentRequest) (*VerificationResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.tenants.ResolveGatewayCredentials(clientID); err != nil {
		return nil, err
	}

	po, err := s.loadEligibleOrder(clientID, req.EntityID, req.FollowUp)
	if err != nil {
		return nil, err
	}

	userName := auditUser(ctx)

	unlock := s.locks.lock(req.EntityType, req.EntityID)
	defer unlock.Unlock()

	summary, err := s.orders.GetSummaryByEntity(req.EntityType, req.EntityID)
	if err != nil {
		return nil, errors.ErrOrderSummaryNotFound
	}

	netPaid, err := s.payments.NetPaidPaise(req.EntityType, req.EntityID)
	if err != nil {
		return nil, errors.NewInternalError("failed to compute net paid amount", err)
	}

	pendingPaise := summary.GrandTotalPaise() - netPaid
	if req.AmountPaise > pendingPaise {
		return nil, errors.NewPaymentExceedsPendingError(
			payment.PaiseToDecimal(req.AmountPaise).String(),
			payment.PaiseToDecimal(pendingPaise).String())
	}

	method := payment.MethodCash
	var upiTxn *string
	if req.UPITransactionID != "" {
		method = payment.MethodUPI
		txn := req.UPITransactionID
		upiTxn = &txn
	}

	var notes *string
	if req.Notes != "" {
		n := req.Notes
		notes = &n
	}

	p := payment.NewManualPayment(req.EntityType, req.EntityID, req.AmountPaise, "INR",
		method, req.PaymentDate, notes, upiTxn, "Manual payment", s.testMode, clientID, userName)

	if err := s.payments.Create(p); err != nil {
		s.logger.Error("failed to persist manual payment",
			"entity_type", req.EntityType,
			"entity_id", req.EntityID,
			"error", err)
		return nil, errors.NewInternalError("failed to persist manual payment", err)
	}

	summary, newStatus, err := s.reconcile(req.EntityType, req.EntityID, po, userName)
	if err != nil {
		return nil, err
	}

	s.eventBus.Publish(ctx, events.NewPaymentCapturedEvent(
		p.PaymentID, p.EntityType, p.EntityID, "", "", p.AmountPaidPaise, method))

	s.logger.Info("manual payment recorded",
		"payment_id", p.PaymentID,
		"entity_type", req.EntityType,
		"entity_id", req.EntityID,
		"amount_paise", req.AmountPaise,
		"method", method,
		"order_status", newStatus)

	return &VerificationResult{
		Success:       true,
		Message:       "Payment recorded successfully",
		PaymentID:     p.PaymentID,
		OrderStatus:   newStatus,
		PendingAmount: summary.PendingAmount,
	}, nil
}

func (s *Service) InitiateRefund(ctx context.Context, clientID int64, req *RefundRequest) (*RefundResult, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	creds, err := s.tenants.ResolveGatewayCredentials(clientID)
	if err != nil {
		return nil, err
	}

	p, err := s.payments.GetByID(req.PaymentID)
	if err != nil {
		return nil, errors.ErrPaymentNotFound
	}

	if p.ClientID != clientID {
		return nil, errors.ErrAccessDeniedToPayment
	}

	if !p.CanBeRefunded() {
		return nil, errors.ErrCannotRefund
	}

	remaining := p.RefundableAmountPaise()
	if remaining <= 0 {
		return nil, errors.ErrCannotRefund
	}

	refundPaise := remaining
	if req.AmountPaise != nil {
		refundPaise = *req.AmountPaise
	}
	if refundPaise > remaining {
		return nil, errors.NewRefundExceedsRefundableError(remaining)
	}

	userName := auditUser(ctx)

	var refundID string
	if p.PaymentGateway == payment.GatewayManual {
		refundID = manualRefundID(p.PaymentID, p.RefundCount+1)
	} else {
		notes := map[string]string{}
		if req.Reason != "" {
			notes["reason"] = req.Reason
		}

		remoteRefund, err := s.gateway.Refund(ctx, creds, derefOr(p.GatewayPaymentID, ""), &gateway.RefundRequest{
			AmountPaise:    &refundPaise,
			Speed:          "normal",
			Notes:          notes,
			IdempotencyKey: fmt.Sprintf("refund_%d_%d", p.PaymentID, p.RefundCount+1),
		})
		if err != nil {
			s.logger.Error("gateway refund failed",
				"payment_id", p.PaymentID,
				"gateway_payment_id", derefOr(p.GatewayPaymentID, ""),
				"error", err)
			return nil, err
		}
		refundID = remoteRefund.ID
	}

	p.RecordRefund(refundID, refundPaise, userName)
	if err := s.payments.Save(p); err != nil {
		s.logger.Error("failed to persist refund",
			"payment_id", p.PaymentID,
			"refund_id", refundID,
			"error", err)
		return nil, errors.NewInternalError("failed to persist refund", err)
	}

	unlock := s.locks.lock(p.EntityType, p.EntityID)
	defer unlock.Unlock()

	summary, err := s.orders.GetSummaryByEntity(p.EntityType, p.EntityID)
	if err != nil {
		return nil, errors.ErrOrderSummaryNotFound
	}

	netPaid, err := s.payments.NetPaidPaise(p.EntityType, p.EntityID)
	if err != nil {
		return nil, errors.NewInternalError("failed to compute net paid amount", err)
	}

	summary.RecomputePending(netPaid, userName)
	if err := s.orders.SaveSummary(summary); err != nil {
		return nil, errors.NewInternalError("failed to persist order summary", err)
	}

	s.eventBus.Publish(ctx, events.NewPaymentRefundedEvent(
		p.PaymentID, p.EntityType, p.EntityID, refundID, refundPaise, p.PaymentStatus))

	s.logger.Info("refund processed",
		"payment_id", p.PaymentID,
		"refund_id", refundID,
		"refund_paise", refundPaise,
		"payment_status", p.PaymentStatus,
		"pending_amount", summary.PendingAmount.String())

	return &RefundResult{
		PaymentID:          p.PaymentID,
		RefundID:           refundID,
		RefundedPaise:      refundPaise,
		TotalRefundedPaise: p.AmountRefundedPaise,
		PaymentStatus:      p.PaymentStatus,
		OrderPendingAmount: summary.PendingAmount,
	}, nil
}

// IsPaid reports whether the entity has at least one successful payment.
// Lookup failures read as unpaid.
func (s *Service) IsPaid(ctx context.Context, entityType string, entityID int64) bool {
	paid, err := s.payments.HasSuccessfulPayment(entityType, entityID)
	if err != nil {
		s.logger.Error("failed to check payment status",
			"entity_type", entityType,
			"entity_id", entityID,
			"error", err)
		return false
	}
	return paid
}

func (s *Service) PaymentsForOrder(ctx context.Context, clientID int64, entityType string, entityID int64) ([]*payment.Payment, error) {
	po, err := s.orders.GetByID(entityID)
	if err != nil {
		return nil, errors.ErrPurchaseOrderNotFound
	}
	if po.ClientID != clientID {
		return nil, errors.ErrAccessDeniedToPurchaseOrder
	}

	return s.payments.ListByEntity(entityType, entityID)
}

func (s *Service) PaymentByID(ctx context.Context, clientID, paymentID int64) (*payment.Payment, error) {
	p, err := s.payments.GetByID(paymentID)
	if err != nil {
		return nil, errors.ErrPaymentNotFound
	}
	if p.ClientID != clientID {
		return nil, errors.ErrAccessDeniedToPayment
	}
	return p, nil
}

// GatewayKeyID exposes the tenant's public key id for checkout bootstrap.
func (s *Service) GatewayKeyID(ctx context.Context, clientID int64) (string, error) {
	creds, err := s.tenants.ResolveGatewayCredentials(clientID)
	if err != nil {
		return "", err
	}
	return creds.KeyID, nil
}

func (s *Service) loadEligibleOrder(clientID, entityID int64, followUp bool) (*order.PurchaseOrder, error) {
	po, err := s.orders.GetByID(entityID)
	if err != nil {
		return nil, errors.ErrPurchaseOrderNotFound
	}

	if po.ClientID != clientID {
		return nil, errors.ErrAccessDeniedToPurchaseOrder
	}

	if followUp {
		if !order.EligibleForFollowUpPayment(po.PurchaseOrderStatus) {
			return nil, errors.ErrFollowUpRequiresApproval
		}
	} else {
		if !order.EligibleForFirstPayment(po.PurchaseOrderStatus) {
			return nil, errors.ErrOnlyPendingApprovalCanBePaid
		}
	}

	return po, nil
}

func (s *Service) resolveAmount(entityType string, entityID int64, spec AmountSpec) (int64, error) {
	if spec.Mode == AmountExplicit {
		return spec.Paise, nil
	}

	summary, err := s.orders.GetSummaryByEntity(entityType, entityID)
	if err != nil {
		return 0, errors.ErrOrderSummaryNotFound
	}

	netPaid, err := s.payments.NetPaidPaise(entityType, entityID)
	if err != nil {
		return 0, errors.NewInternalError("failed to compute net paid amount", err)
	}

	remaining := summary.GrandTotalPaise() - netPaid
	if remaining <= 0 {
		return 0, errors.ErrValidAmountRequired
	}

	return remaining, nil
}

// reconcile recomputes the entity's financial truth after a capture: the
// net-paid aggregate, the overpayment guard, the persisted pending amount,
// and the order status transition. Callers hold the entity lock.
func (s *Service) reconcile(entityType string, entityID int64, po *order.PurchaseOrder, userName string) (*order.OrderSummary, string, error) {
	summary, err := s.orders.GetSummaryByEntity(entityType, entityID)
	if err != nil {
		return nil, "", errors.ErrOrderSummaryNotFound
	}

	netPaid, err := s.payments.NetPaidPaise(entityType, entityID)
	if err != nil {
		return nil, "", errors.NewInternalError("failed to compute net paid amount", err)
	}

	grandTotalPaise := summary.GrandTotalPaise()
	if netPaid > grandTotalPaise {
		s.logger.Error("overpayment detected",
			"entity_type", entityType,
			"entity_id", entityID,
			"net_paid_paise", netPaid,
			"grand_total_paise", grandTotalPaise)
		return nil, "", errors.NewOverpaymentError(
			payment.PaiseToDecimal(netPaid).String(),
			summary.GrandTotal.String())
	}

	summary.RecomputePending(netPaid, userName)
	if err := s.orders.SaveSummary(summary); err != nil {
		return nil, "", errors.NewInternalError("failed to persist order summary", err)
	}

	newStatus := order.StatusApprovedWithPartialPayment
	if netPaid == grandTotalPaise {
		newStatus = order.StatusApproved
	}

	if po.PurchaseOrderStatus != newStatus {
		po.PurchaseOrderStatus = newStatus
		po.ModifiedUser = userName
		now := time.Now()
		po.UpdatedAt = now
		if newStatus == order.StatusApproved && po.ApprovedAt == nil {
			po.ApprovedAt = &now
		}
		if err := s.orders.Save(po); err != nil {
			return nil, "", errors.NewInternalError("failed to persist order status", err)
		}

		s.eventBus.Publish(context.Background(), events.NewOrderApprovedEvent(
			po.PurchaseOrderID, newStatus, userName))
	}

	return summary, newStatus, nil
}

func auditUser(ctx context.Context) string {
	if userName := errors.UserFromContext(ctx); userName != "" {
		return userName
	}
	return "system"
}

func orderReceipt(entityType string, entityID int64) string {
	return fmt.Sprintf("%s_%d_%d", entityType, entityID, time.Now().UnixMilli())
}

func manualRefundID(paymentID int64, seq int) string {
	return fmt.Sprintf("manual_refund_%d_%d", paymentID, seq)
}

func derefOr(s *string, def string) string {
	if s != nil {
		return *s
	}
	return def
}
