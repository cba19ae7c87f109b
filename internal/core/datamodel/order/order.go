package order

import (
	"time"

	"github.com/shopspring/decimal"
)

// Purchase order approval lifecycle. The settlement engine drives
// PENDING_APPROVAL forward; it never moves an order backward.
const (
	StatusPendingApproval            = "PENDING_APPROVAL"
	StatusApproved                   = "APPROVED"
	StatusApprovedWithPartialPayment = "APPROVED_WITH_PARTIAL_PAYMENT"
	StatusRejected                   = "REJECTED"
	StatusCancelled                  = "CANCELLED"
)

// EligibleForFirstPayment reports whether an order may receive its first
// payment.
func EligibleForFirstPayment(status string) bool {
	return status == StatusPendingApproval
}

// EligibleForFollowUpPayment reports whether an order may receive an
// additional payment after a prior approval.
func EligibleForFollowUpPayment(status string) bool {
	return status == StatusApproved || status == StatusApprovedWithPartialPayment
}

// PurchaseOrder is the subset of the purchase order aggregate the settlement
// engine reads and writes.
type PurchaseOrder struct {
	PurchaseOrderID     int64   `json:"purchase_order_id" gorm:"primaryKey;column:purchase_order_id"`
	ClientID            int64   `json:"client_id" gorm:"column:client_id;not null;index"`
	VendorNumber        string  `json:"vendor_number" gorm:"column:vendor_number"`
	PurchaseOrderStatus string  `json:"purchase_order_status" gorm:"column:purchase_order_status;not null"`
	ApprovedByUserID    *int64  `json:"approved_by_user_id,omitempty" gorm:"column:approved_by_user_id"`
	ApprovedAt          *time.Time `json:"approved_at,omitempty" gorm:"column:approved_at"`
	CreatedUser         string  `json:"created_user" gorm:"column:created_user"`
	ModifiedUser        string  `json:"modified_user" gorm:"column:modified_user"`
	CreatedAt           time.Time `json:"created_at" gorm:"column:created_at"`
	UpdatedAt           time.Time `json:"updated_at" gorm:"column:updated_at"`
}

func (PurchaseOrder) TableName() string {
	return "purchase_orders"
}

// OrderSummary is the financial snapshot of one business entity.
// PendingAmount is derived, not independent truth: it always equals
// GrandTotal minus the ledger's net-paid aggregate, and is recomputed and
// persisted after every capture and refund.
type OrderSummary struct {
	OrderSummaryID int64           `json:"order_summary_id" gorm:"primaryKey;column:order_summary_id"`
	EntityType     string          `json:"entity_type" gorm:"column:entity_type;not null;uniqueIndex:idx_order_summaries_entity,priority:1"`
	EntityID       int64           `json:"entity_id" gorm:"column:entity_id;not null;uniqueIndex:idx_order_summaries_entity,priority:2"`
	GrandTotal     decimal.Decimal `json:"grand_total" gorm:"column:grand_total;type:decimal(12,2);not null"`
	PendingAmount  decimal.Decimal `json:"pending_amount" gorm:"column:pending_amount;type:decimal(12,2);not null"`
	CreatedUser    string          `json:"created_user" gorm:"column:created_user"`
	ModifiedUser   string          `json:"modified_user" gorm:"column:modified_user"`
	CreatedAt      time.Time       `json:"created_at" gorm:"column:created_at"`
	UpdatedAt      time.Time       `json:"updated_at" gorm:"column:updated_at"`
}

func (OrderSummary) TableName() string {
	return "order_summaries"
}

// GrandTotalPaise converts the stored major-unit total into minor units.
func (s *OrderSummary) GrandTotalPaise() int64 {
	return s.GrandTotal.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}

// RecomputePending derives the outstanding balance from the ledger's
// net-paid aggregate and clamps it at zero.
func (s *OrderSummary) RecomputePending(netPaidPaise int64, modifiedUser string) {
	pending := s.GrandTotalPaise() - netPaidPaise
	if pending < 0 {
		pending = 0
	}
	s.PendingAmount = decimal.NewFromInt(pending).Div(decimal.NewFromInt(100))
	s.ModifiedUser = modifiedUser
	s.UpdatedAt = time.Now()
}
