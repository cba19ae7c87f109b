package postgres

import (
	"time"

	"github.com/rsharma-dev/order-settlement/internal/auth"
	"github.com/rsharma-dev/order-settlement/internal/core/datamodel/user"
	"gorm.io/gorm"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) auth.UserRepository {
	return &UserRepository{
		db: db,
	}
}

func (r *UserRepository) GetByUserName(userName string) (*user.User, error) {
	var u user.User
	err := r.db.Where("user_name = ?", userName).First(&u).Error
	if err != nil {
		return nil, err
	}
	return &u, nil
}

func (r *UserRepository) RecordLogin(userID int64) error {
	return r.db.Model(&user.User{}).
		Where("user_id = ?", userID).
		UpdateColumn("last_login_at", time.Now()).Error
}
