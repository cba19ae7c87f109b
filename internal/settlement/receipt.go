package settlement

import (
	"context"
	"encoding/json"
	"time"

	errors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/order"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/payment"
	tenantmodel "github.com/rsharma-dev/order-settlement/internal/core/datamodel/tenant"
)

// ReceiptRenderer turns receipt data into a downloadable document. The
// renderer lives outside the engine; only the data mapping is owned here.
type ReceiptRenderer interface {
	Render(data *ReceiptData) ([]byte, error)
	ContentType() string
}

type ReceiptData struct {
	ReceiptNumber    string    `json:"receipt_number"`
	CompanyName      string    `json:"company_name"`
	CompanyWebsite   string    `json:"company_website,omitempty"`
	SupportEmail     string    `json:"support_email,omitempty"`
	PaymentID        int64     `json:"payment_id"`
	GatewayPaymentID string    `json:"gateway_payment_id,omitempty"`
	EntityType       string    `json:"entity_type"`
	EntityID         int64     `json:"entity_id"`
	VendorNumber     string    `json:"vendor_number,omitempty"`
	AmountPaid       string    `json:"amount_paid"`
	AmountRefunded   string    `json:"amount_refunded,omitempty"`
	Currency         string    `json:"currency"`
	PaymentMethod    string    `json:"payment_method,omitempty"`
	PaymentStatus    string    `json:"payment_status"`
	PaidAt           time.Time `json:"paid_at"`
	Notes            string    `json:"notes,omitempty"`
}

// BuildReceiptData maps a payment and its surroundings into renderer input.
// CapturedAt wins over PaymentDate when both are set.
func BuildReceiptData(client *tenantmodel.Client, p *payment.Payment, po *order.PurchaseOrder) *ReceiptData {
	paidAt := p.CreatedAt
	if p.PaymentDate != nil {
		paidAt = *p.PaymentDate
	}
	if p.CapturedAt != nil {
		paidAt = *p.CapturedAt
	}

	data := &ReceiptData{
		ReceiptNumber:    p.GatewayReceipt,
		CompanyName:      client.ClientName,
		CompanyWebsite:   client.Website,
		SupportEmail:     client.SupportEmail,
		PaymentID:        p.PaymentID,
		GatewayPaymentID: derefOr(p.GatewayPaymentID, ""),
		EntityType:       p.EntityType,
		EntityID:         p.EntityID,
		AmountPaid:       payment.PaiseToDecimal(p.AmountPaidPaise).StringFixed(2),
		Currency:         p.Currency,
		PaymentStatus:    p.PaymentStatus,
		PaidAt:           paidAt,
	}

	if p.AmountRefundedPaise > 0 {
		data.AmountRefunded = payment.PaiseToDecimal(p.AmountRefundedPaise).StringFixed(2)
	}
	if p.PaymentMethod != nil {
		data.PaymentMethod = *p.PaymentMethod
	}
	if p.Notes != nil {
		data.Notes = *p.Notes
	}
	if po != nil {
		data.VendorNumber = po.VendorNumber
	}

	return data
}

// PaymentReceipt renders a receipt for a successful payment after the usual
// ownership checks.
func (s *Service) PaymentReceipt(ctx context.Context, clientID, paymentID int64) ([]byte, string, error) {
	p, err := s.PaymentByID(ctx, clientID, paymentID)
	if err != nil {
		return nil, "", err
	}

	if !p.IsSuccessful() && p.PaymentStatus != payment.StatusRefunded {
		return nil, "", errors.NewValidationError("receipt is only available for successful payments", errors.ErrCodeInvalidOrderState)
	}

	client, err := s.tenants.GetClient(clientID)
	if err != nil {
		return nil, "", err
	}

	var po *order.PurchaseOrder
	if p.EntityType == payment.EntityTypePurchaseOrder {
		if loaded, err := s.orders.GetByID(p.EntityID); err == nil {
			po = loaded
		}
	}

	rendered, err := s.renderer.Render(BuildReceiptData(client, p, po))
	if err != nil {
		s.logger.Error("receipt rendering failed",
			"payment_id", paymentID,
			"error", err)
		return nil, "", errors.NewInternalError("failed to render receipt", err)
	}

	return rendered, s.renderer.ContentType(), nil
}

// JSONReceiptRenderer renders receipts as plain JSON. It stands in for
// richer renderers (PDF and the like) wired at composition time.
type JSONReceiptRenderer struct{}

func (JSONReceiptRenderer) Render(data *ReceiptData) ([]byte, error) {
	return json.MarshalIndent(data, "", "  ")
}

func (JSONReceiptRenderer) ContentType() string {
	return "application/json"
}
