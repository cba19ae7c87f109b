package settlement

import (
	"time"

	errors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/core/common/validation"
	"github.com/shopspring/decimal"
)

// AmountMode selects how the order amount is resolved.
type AmountMode string

const (
	// AmountExplicit charges exactly the caller-supplied minor-unit amount.
	AmountExplicit AmountMode = "EXPLICIT"
	// AmountRemainingBalance charges whatever is still outstanding on the
	// entity's order summary.
	AmountRemainingBalance AmountMode = "REMAINING_BALANCE"
)

// AmountSpec is a tagged amount: either an explicit paise value or a request
// for the remaining balance. Paise is only meaningful in EXPLICIT mode.
type AmountSpec struct {
	Mode  AmountMode
	Paise int64
}

func ExplicitAmount(paise int64) AmountSpec {
	return AmountSpec{Mode: AmountExplicit, Paise: paise}
}

func RemainingBalance() AmountSpec {
	return AmountSpec{Mode: AmountRemainingBalance}
}

// CreateOrderRequest asks the engine to mint a gateway order for an entity.
// FollowUp selects the follow-up eligibility gate (order already approved)
// instead of the first-payment gate (order pending approval).
type CreateOrderRequest struct {
	EntityType string     `json:"entity_type"`
	EntityID   int64      `json:"entity_id"`
	Amount     AmountSpec `json:"-"`
	Currency   string     `json:"currency"`
	Notes      string     `json:"notes"`
	FollowUp   bool       `json:"-"`
}

func (r *CreateOrderRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("entity_type", r.EntityType).Required()
	validator.Field("entity_id", r.EntityID).Required()
	if r.Amount.Mode == AmountExplicit {
		validator.Field("amount_paise", r.Amount.Paise).Required().MinInt(1, errors.ErrCodeInvalidAmount)
	}

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// CheckoutResponse carries everything browser checkout needs to open the
// gateway widget. The secret never appears here.
type CheckoutResponse struct {
	GatewayOrderID string `json:"gateway_order_id"`
	KeyID          string `json:"key_id"`
	AmountPaise    int64  `json:"amount_paise"`
	Currency       string `json:"currency"`
	CompanyName    string `json:"company_name"`
	PrefillEmail   string `json:"prefill_email,omitempty"`
	Description    string `json:"description,omitempty"`
	EntityType     string `json:"entity_type"`
	EntityID       int64  `json:"entity_id"`
	PaymentID      int64  `json:"payment_id"`
}

// VerifyPaymentRequest carries the gateway callback triple.
type VerifyPaymentRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
	FollowUp         bool   `json:"-"`
}

func (r *VerifyPaymentRequest) Validate() error {
	validator := validation.NewValidator()

	validator.Field("gateway_order_id", r.GatewayOrderID).Required()
	validator.Field("gateway_payment_id", r.GatewayPaymentID).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// VerificationResult reports the business outcome of a verification attempt.
// A failed signature is a result, not an error.
type VerificationResult struct {
	Success       bool            `json:"success"`
	Message       string          `json:"message"`
	PaymentID     int64           `json:"payment_id,omitempty"`
	OrderStatus   string          `json:"order_status,omitempty"`
	PendingAmount decimal.Decimal `json:"pending_amount"`
}

// CashPaymentRequest records an out-of-band payment against an entity.
type CashPaymentRequest struct {
	EntityType       string    `json:"entity_type"`
	EntityID         int64     `json:"entity_id"`
	AmountPaise      int64     `json:"amount_paise"`
	PaymentDate      time.Time `json:"payment_date"`
	UPITransactionID string    `json:"upi_transaction_id,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	FollowUp         bool      `json:"-"`
}

func (r *CashPaymentRequest) Validate() error {
	if r.PaymentDate.IsZero() {
		return errors.ErrPaymentDateRequired
	}

	validator := validation.NewValidator()

	validator.Field("entity_type", r.EntityType).Required()
	validator.Field("entity_id", r.EntityID).Required()
	validator.Field("amount_paise", r.AmountPaise).Required().MinInt(1, errors.ErrCodeInvalidAmount)
	validator.Field("payment_date", r.PaymentDate).NotFuture()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

// RefundRequest asks for a refund on a captured payment. A nil AmountPaise
// refunds the full refundable remainder.
type RefundRequest struct {
	PaymentID   int64  `json:"-"`
	AmountPaise *int64 `json:"amount_paise,omitempty"`
	Reason      string `json:"reason,omitempty"`
}

func (r *RefundRequest) Validate() error {
	if r.AmountPaise != nil {
		if appErr := validation.ValidateRefundAmount(*r.AmountPaise); appErr != nil {
			return appErr
		}
	}
	return nil
}

// RefundResult reports the outcome of a processed refund.
type RefundResult struct {
	PaymentID          int64           `json:"payment_id"`
	RefundID           string          `json:"refund_id"`
	RefundedPaise      int64           `json:"refunded_paise"`
	TotalRefundedPaise int64           `json:"total_refunded_paise"`
	PaymentStatus      string          `json:"payment_status"`
	OrderPendingAmount decimal.Decimal `json:"order_pending_amount"`
}

// GatewayKeyResponse exposes the public key id for checkout bootstrap.
type GatewayKeyResponse struct {
	KeyID string `json:"key_id"`
}
