package postgres

import (
	"errors"

	apperrors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/payment"
	"github.com/rsharma-dev/order-settlement/internal/settlement"
	"gorm.io/gorm"
)

type PaymentRepository struct {
	db *gorm.DB
}

func NewPaymentRepository(db *gorm.DB) settlement.PaymentRepositoryAPI {
	return &PaymentRepository{
		db: db,
	}
}

func (r *PaymentRepository) Create(p *payment.Payment) error {
	return r.db.Create(p).Error
}

func (r *PaymentRepository) Save(p *payment.Payment) error {
	return r.db.Save(p).Error
}

func (r *PaymentRepository) GetByID(paymentID int64) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.First(&p, paymentID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) GetByGatewayOrderID(gatewayOrderID string) (*payment.Payment, error) {
	var p payment.Payment
	err := r.db.Where("gateway_order_id = ?", gatewayOrderID).First(&p).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPaymentOrderNotFound
		}
		return nil, err
	}
	return &p, nil
}

func (r *PaymentRepository) ListByEntity(entityType string, entityID int64) ([]*payment.Payment, error) {
	var payments []*payment.Payment
	err := r.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("created_at DESC").
		Find(&payments).Error
	return payments, err
}

// NetPaidPaise sums captured minus refunded over every non-FAILED row.
// CREATED rows carry amount_paid_paise 0 so they contribute nothing.
func (r *PaymentRepository) NetPaidPaise(entityType string, entityID int64) (int64, error) {
	var netPaid int64
	err := r.db.Model(&payment.Payment{}).
		Select("COALESCE(SUM(amount_paid_paise - amount_refunded_paise), 0)").
		Where("entity_type = ? AND entity_id = ? AND payment_status <> ?",
			entityType, entityID, payment.StatusFailed).
		Scan(&netPaid).Error
	return netPaid, err
}

func (r *PaymentRepository) HasSuccessfulPayment(entityType string, entityID int64) (bool, error) {
	var count int64
	err := r.db.Model(&payment.Payment{}).
		Where("entity_type = ? AND entity_id = ? AND payment_status IN ?",
			entityType, entityID,
			[]string{payment.StatusCaptured, payment.StatusPartiallyRefunded}).
		Count(&count).Error
	if err != nil {
		return false, err
	}
	return count > 0, nil
}
