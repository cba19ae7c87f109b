package postgres

import (
	"errors"

	apperrors "github.com/rsharma-dev/order-settlement/internal"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/tenant"
	tenantpkg "github.com/rsharma-dev/order-settlement/internal/tenant"
	"gorm.io/gorm"
)

type ClientRepository struct {
	db *gorm.DB
}

func NewClientRepository(db *gorm.DB) tenantpkg.RepositoryAPI {
	return &ClientRepository{
		db: db,
	}
}

func (r *ClientRepository) GetByID(clientID int64) (*tenant.Client, error) {
	var c tenant.Client
	err := r.db.Where("client_id = ? AND deleted_at IS NULL", clientID).First(&c).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrClientNotFound
		}
		return nil, err
	}
	return &c, nil
}
