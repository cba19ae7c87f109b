package tenant

import (
	"strings"
	"time"
)

// Client is one tenant of the platform. Gateway credentials are stored
// per client so every tenant settles against its own gateway account.
type Client struct {
	ClientID         int64      `json:"client_id" gorm:"primaryKey;column:client_id"`
	ClientName       string     `json:"client_name" gorm:"column:client_name;not null"`
	Website          string     `json:"website" gorm:"column:website"`
	SupportEmail     string     `json:"support_email" gorm:"column:support_email"`
	GatewayAPIKey    string     `json:"-" gorm:"column:gateway_api_key"`
	GatewayAPISecret string     `json:"-" gorm:"column:gateway_api_secret"`
	IsActive         bool       `json:"is_active" gorm:"column:is_active;default:true"`
	CreatedUser      string     `json:"created_user" gorm:"column:created_user"`
	ModifiedUser     string     `json:"modified_user" gorm:"column:modified_user"`
	CreatedAt        time.Time  `json:"created_at" gorm:"column:created_at"`
	UpdatedAt        time.Time  `json:"updated_at" gorm:"column:updated_at"`
	DeletedAt        *time.Time `json:"-" gorm:"column:deleted_at;index"`
}

func (Client) TableName() string {
	return "clients"
}

// HasGatewayCredentials reports whether both gateway credentials are present
// after trimming whitespace.
func (c *Client) HasGatewayCredentials() bool {
	return strings.TrimSpace(c.GatewayAPIKey) != "" && strings.TrimSpace(c.GatewayAPISecret) != ""
}
