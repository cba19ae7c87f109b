package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypePaymentCaptured      = "payment.captured"
	EventTypePaymentCaptureFailed = "payment.capture_failed"
	EventTypePaymentRefunded      = "payment.refunded"
	EventTypeOrderApproved        = "order.approved"
)

type PaymentCapturedEvent struct {
	BaseEvent
	PaymentID        int64  `json:"payment_id"`
	EntityType       string `json:"entity_type"`
	EntityID         int64  `json:"entity_id"`
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	AmountPaise      int64  `json:"amount_paise"`
	PaymentMethod    string `json:"payment_method"`
}

func NewPaymentCapturedEvent(paymentID int64, entityType string, entityID int64, gatewayOrderID, gatewayPaymentID string, amountPaise int64, paymentMethod string) *PaymentCapturedEvent {
	return &PaymentCapturedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCaptured,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":         paymentID,
				"entity_type":        entityType,
				"entity_id":          entityID,
				"gateway_order_id":   gatewayOrderID,
				"gateway_payment_id": gatewayPaymentID,
				"amount_paise":       amountPaise,
				"payment_method":     paymentMethod,
			},
		},
		PaymentID:        paymentID,
		EntityType:       entityType,
		EntityID:         entityID,
		GatewayOrderID:   gatewayOrderID,
		GatewayPaymentID: gatewayPaymentID,
		AmountPaise:      amountPaise,
		PaymentMethod:    paymentMethod,
	}
}

type PaymentCaptureFailedEvent struct {
	BaseEvent
	PaymentID      int64  `json:"payment_id"`
	EntityType     string `json:"entity_type"`
	EntityID       int64  `json:"entity_id"`
	GatewayOrderID string `json:"gateway_order_id"`
	FailureReason  string `json:"failure_reason"`
}

func NewPaymentCaptureFailedEvent(paymentID int64, entityType string, entityID int64, gatewayOrderID, failureReason string) *PaymentCaptureFailedEvent {
	return &PaymentCaptureFailedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentCaptureFailed,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":       paymentID,
				"entity_type":      entityType,
				"entity_id":        entityID,
				"gateway_order_id": gatewayOrderID,
				"failure_reason":   failureReason,
			},
		},
		PaymentID:      paymentID,
		EntityType:     entityType,
		EntityID:       entityID,
		GatewayOrderID: gatewayOrderID,
		FailureReason:  failureReason,
	}
}

type PaymentRefundedEvent struct {
	BaseEvent
	PaymentID         int64  `json:"payment_id"`
	EntityType        string `json:"entity_type"`
	EntityID          int64  `json:"entity_id"`
	RefundID          string `json:"refund_id"`
	RefundAmountPaise int64  `json:"refund_amount_paise"`
	PaymentStatus     string `json:"payment_status"`
}

func NewPaymentRefundedEvent(paymentID int64, entityType string, entityID int64, refundID string, refundAmountPaise int64, paymentStatus string) *PaymentRefundedEvent {
	return &PaymentRefundedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePaymentRefunded,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"payment_id":          paymentID,
				"entity_type":         entityType,
				"entity_id":           entityID,
				"refund_id":           refundID,
				"refund_amount_paise": refundAmountPaise,
				"payment_status":      paymentStatus,
			},
		},
		PaymentID:         paymentID,
		EntityType:        entityType,
		EntityID:          entityID,
		RefundID:          refundID,
		RefundAmountPaise: refundAmountPaise,
		PaymentStatus:     paymentStatus,
	}
}

type OrderApprovedEvent struct {
	BaseEvent
	PurchaseOrderID int64  `json:"purchase_order_id"`
	OrderStatus     string `json:"order_status"`
	ApprovedBy      string `json:"approved_by"`
}

func NewOrderApprovedEvent(purchaseOrderID int64, orderStatus, approvedBy string) *OrderApprovedEvent {
	return &OrderApprovedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeOrderApproved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"purchase_order_id": purchaseOrderID,
				"order_status":      orderStatus,
				"approved_by":       approvedBy,
			},
		},
		PurchaseOrderID: purchaseOrderID,
		OrderStatus:     orderStatus,
		ApprovedBy:      approvedBy,
	}
}
