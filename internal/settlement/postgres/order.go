package postgres

import (
	"errors"

	apperrors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/order"
	"github.com/rsharma-dev/order-settlement/internal/settlement"
	"gorm.io/gorm"
)

type OrderRepository struct {
	db *gorm.DB
}

func NewOrderRepository(db *gorm.DB) settlement.OrderRepositoryAPI {
	return &OrderRepository{
		db: db,
	}
}

func (r *OrderRepository) GetByID(purchaseOrderID int64) (*order.PurchaseOrder, error) {
	var po order.PurchaseOrder
	err := r.db.First(&po, purchaseOrderID).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrPurchaseOrderNotFound
		}
		return nil, err
	}
	return &po, nil
}

func (r *OrderRepository) Save(po *order.PurchaseOrder) error {
	return r.db.Save(po).Error
}

func (r *OrderRepository) GetSummaryByEntity(entityType string, entityID int64) (*order.OrderSummary, error) {
	var summary order.OrderSummary
	err := r.db.Where("entity_type = ? AND entity_id = ?", entityType, entityID).First(&summary).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrOrderSummaryNotFound
		}
		return nil, err
	}
	return &summary, nil
}

func (r *OrderRepository) SaveSummary(summary *order.OrderSummary) error {
	return r.db.Save(summary).Error
}
