package payment

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Payment statuses follow the gateway lifecycle.
const (
	StatusCreated           = "CREATED"
	StatusCaptured          = "CAPTURED"
	StatusFailed            = "FAILED"
	StatusPartiallyRefunded = "PARTIALLY_REFUNDED"
	StatusRefunded          = "REFUNDED"
)

const (
	MethodCard = "CARD"
	MethodUPI  = "UPI"
	MethodCash = "CASH"
)

const (
	GatewayRazorpay = "RAZORPAY"
	GatewayManual   = "MANUAL"
)

const (
	EntityTypePurchaseOrder = "PURCHASE_ORDER"
	EntityTypeSalesOrder    = "SALES_ORDER"
	EntityTypeInvoice       = "INVOICE"
)

func IsValidStatus(status string) bool {
	switch status {
	case StatusCreated, StatusCaptured, StatusFailed, StatusPartiallyRefunded, StatusRefunded:
		return true
	}
	return false
}

// Payment is one row per attempted or completed monetary transaction. Rows
// are never deleted; they are the audit trail. All amounts are stored in
// paise with decimal mirrors for reporting.
type Payment struct {
	PaymentID int64 `json:"payment_id" gorm:"primaryKey;column:payment_id"`

	ClientID   int64  `json:"client_id" gorm:"column:client_id;not null;index"`
	EntityType string `json:"entity_type" gorm:"column:entity_type;not null"`
	EntityID   int64  `json:"entity_id" gorm:"column:entity_id;not null;index"`

	GatewayOrderID   *string `json:"gateway_order_id,omitempty" gorm:"column:gateway_order_id;uniqueIndex"`
	GatewayPaymentID *string `json:"gateway_payment_id,omitempty" gorm:"column:gateway_payment_id"`
	GatewayReceipt   string  `json:"gateway_receipt" gorm:"column:gateway_receipt"`
	Signature        *string `json:"-" gorm:"column:signature"`

	OrderAmountPaise    int64           `json:"order_amount_paise" gorm:"column:order_amount_paise;not null"`
	AmountPaidPaise     int64           `json:"amount_paid_paise" gorm:"column:amount_paid_paise;not null;default:0"`
	AmountRefundedPaise int64           `json:"amount_refunded_paise" gorm:"column:amount_refunded_paise;not null;default:0"`
	AmountPaid          decimal.Decimal `json:"amount_paid" gorm:"column:amount_paid;type:decimal(12,2)"`
	AmountRefunded      decimal.Decimal `json:"amount_refunded" gorm:"column:amount_refunded;type:decimal(12,2)"`
	Currency            string          `json:"currency" gorm:"column:currency;default:INR"`

	PaymentStatus  string `json:"payment_status" gorm:"column:payment_status;not null"`
	PaymentMethod  *string `json:"payment_method,omitempty" gorm:"column:payment_method"`
	PaymentGateway string `json:"payment_gateway" gorm:"column:payment_gateway;not null"`
	IsTestPayment  bool   `json:"is_test_payment" gorm:"column:is_test_payment;default:false"`

	LastRefundID *string `json:"last_refund_id,omitempty" gorm:"column:last_refund_id"`
	RefundCount  int     `json:"refund_count" gorm:"column:refund_count;default:0"`
	LastRefundAt *time.Time `json:"last_refund_at,omitempty" gorm:"column:last_refund_at"`

	Description      string  `json:"description" gorm:"column:description"`
	Notes            *string `json:"notes,omitempty" gorm:"column:notes"`
	UPITransactionID *string `json:"upi_transaction_id,omitempty" gorm:"column:upi_transaction_id"`
	ErrorCode        *string `json:"error_code,omitempty" gorm:"column:error_code"`
	ErrorDescription *string `json:"error_description,omitempty" gorm:"column:error_description"`

	// CapturedAt is gateway-confirmed; PaymentDate is manual entry. At most
	// one of the two is authoritative per record.
	CapturedAt     *time.Time `json:"captured_at,omitempty" gorm:"column:captured_at"`
	PaymentDate    *time.Time `json:"payment_date,omitempty" gorm:"column:payment_date"`
	OrderCreatedAt time.Time  `json:"order_created_at" gorm:"column:order_created_at"`

	CreatedUser  string    `json:"created_user" gorm:"column:created_user"`
	ModifiedUser string    `json:"modified_user" gorm:"column:modified_user"`
	CreatedAt    time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (Payment) TableName() string {
	return "payments"
}

// PaiseToDecimal converts integer minor units to a major-unit decimal.
func PaiseToDecimal(paise int64) decimal.Decimal {
	return decimal.NewFromInt(paise).Div(decimal.NewFromInt(100))
}

// NewGatewayOrderPayment builds a CREATED ledger row for a freshly minted
// remote order. Nothing has been paid yet.
func NewGatewayOrderPayment(entityType string, entityID int64, gatewayOrderID, receipt string, orderAmountPaise int64, currency string, clientID int64, createdUser string) *Payment {
	now := time.Now().UTC()
	return &Payment{
		EntityType:       entityType,
		EntityID:         entityID,
		GatewayOrderID:   &gatewayOrderID,
		GatewayReceipt:   receipt,
		OrderAmountPaise: orderAmountPaise,
		Currency:         currency,
		PaymentGateway:   GatewayRazorpay,
		PaymentStatus:    StatusCreated,
		AmountPaid:       decimal.Zero,
		AmountRefunded:   decimal.Zero,
		ClientID:         clientID,
		CreatedUser:      createdUser,
		ModifiedUser:     createdUser,
		OrderCreatedAt:   now,
	}
}

// NewManualPayment builds an immediately CAPTURED ledger row for a cash or
// UPI payment recorded by an operator. No gateway round-trip is involved.
func NewManualPayment(entityType string, entityID int64, amountPaise int64, currency, paymentMethod string, paymentDate time.Time, notes, upiTransactionID *string, description string, testPayment bool, clientID int64, createdUser string) *Payment {
	now := time.Now().UTC()
	receipt := manualReceipt(entityID, now)
	return &Payment{
		EntityType:       entityType,
		EntityID:         entityID,
		GatewayReceipt:   receipt,
		OrderAmountPaise: amountPaise,
		AmountPaidPaise:  amountPaise,
		AmountPaid:       PaiseToDecimal(amountPaise),
		AmountRefunded:   decimal.Zero,
		Currency:         currency,
		PaymentGateway:   GatewayManual,
		PaymentMethod:    &paymentMethod,
		PaymentStatus:    StatusCaptured,
		PaymentDate:      &paymentDate,
		CapturedAt:       &now,
		Notes:            notes,
		UPITransactionID: upiTransactionID,
		Description:      description,
		IsTestPayment:    testPayment,
		ClientID:         clientID,
		CreatedUser:      createdUser,
		ModifiedUser:     createdUser,
		OrderCreatedAt:   now,
	}
}

// MarkCaptured records a verified gateway payment.
func (p *Payment) MarkCaptured(gatewayPaymentID, signature string, amountPaidPaise int64, modifiedUser string) {
	now := time.Now().UTC()
	p.GatewayPaymentID = &gatewayPaymentID
	p.Signature = &signature
	p.AmountPaidPaise = amountPaidPaise
	p.AmountPaid = PaiseToDecimal(amountPaidPaise)
	p.PaymentStatus = StatusCaptured
	p.CapturedAt = &now
	p.ModifiedUser = modifiedUser
}

// MarkFailed records a failed verification. Failed rows contribute nothing
// to the net-paid aggregate.
func (p *Payment) MarkFailed(errorCode, errorDescription, modifiedUser string) {
	p.PaymentStatus = StatusFailed
	p.ErrorCode = &errorCode
	p.ErrorDescription = &errorDescription
	p.ModifiedUser = modifiedUser
}

// RecordRefund applies a processed refund. The caller is responsible for
// checking RefundableAmountPaise first; amounts here are trusted.
func (p *Payment) RecordRefund(refundID string, refundAmountPaise int64, modifiedUser string) {
	now := time.Now().UTC()
	p.LastRefundID = &refundID
	p.LastRefundAt = &now
	p.RefundCount++

	p.AmountRefundedPaise += refundAmountPaise
	p.AmountRefunded = PaiseToDecimal(p.AmountRefundedPaise)

	if p.AmountRefundedPaise >= p.AmountPaidPaise {
		p.PaymentStatus = StatusRefunded
	} else {
		p.PaymentStatus = StatusPartiallyRefunded
	}

	p.ModifiedUser = modifiedUser
}

// IsSuccessful reports whether the payment contributes to the net-paid
// aggregate: captured money that has not been fully returned.
func (p *Payment) IsSuccessful() bool {
	return p.PaymentStatus == StatusCaptured || p.PaymentStatus == StatusPartiallyRefunded
}

func (p *Payment) CanBeRefunded() bool {
	if !p.IsSuccessful() {
		return false
	}
	return p.AmountPaidPaise > p.AmountRefundedPaise
}

func (p *Payment) RefundableAmountPaise() int64 {
	if !p.CanBeRefunded() {
		return 0
	}
	return p.AmountPaidPaise - p.AmountRefundedPaise
}

func manualReceipt(entityID int64, at time.Time) string {
	return fmt.Sprintf("CASH_%d_%d", entityID, at.UnixMilli())
}
