package user

import (
	"time"

	"golang.org/x/crypto/bcrypt"
)

// User is an operator account scoped to a single client.
type User struct {
	UserID       int64      `json:"user_id" gorm:"primaryKey;column:user_id"`
	ClientID     int64      `json:"client_id" gorm:"column:client_id;not null;index"`
	UserName     string     `json:"user_name" gorm:"column:user_name;not null;uniqueIndex"`
	Email        string     `json:"email" gorm:"column:email"`
	PasswordHash string     `json:"-" gorm:"column:password_hash;not null"`
	IsActive     bool       `json:"is_active" gorm:"column:is_active;default:true"`
	LastLoginAt  *time.Time `json:"last_login_at,omitempty" gorm:"column:last_login_at"`
	CreatedAt    time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt    time.Time  `json:"updated_at" gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

// SetPassword hashes and stores the given plaintext password.
func (u *User) SetPassword(plain string, cost int) error {
	hash, err := bcrypt.GenerateFromPassword([]byte(plain), cost)
	if err != nil {
		return err
	}
	u.PasswordHash = string(hash)
	return nil
}

// CheckPassword compares the given plaintext password against the stored hash.
func (u *User) CheckPassword(plain string) bool {
	return bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(plain)) == nil
}
