package auth

import (
	"github.com/rsharma-dev/order-settlement/internal/core/common/validation"
)

type LoginDTO struct {
	UserName string `json:"user_name"`
	Password string `json:"password"`
}

func (d *LoginDTO) Validate() error {
	validator := validation.NewValidator()

	validator.Field("user_name", d.UserName).Required()
	validator.Field("password", d.Password).Required()

	if appErr := validator.Validate(); appErr != nil {
		return appErr
	}
	return nil
}

type RefreshDTO struct {
	RefreshToken string `json:"refresh_token"`
}

type AuthTokens struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
}
