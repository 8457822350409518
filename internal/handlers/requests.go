package handlers

import (
	"strings"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/AnshRaj112/partsdesk-auth/pkg/utils"
)

type SendOtpRequest struct {
	Target  string `json:"target"`
	Channel string `json:"channel"`
	Purpose string `json:"purpose"`
}

func (r *SendOtpRequest) Validate() error {
	r.Target = strings.TrimSpace(r.Target)
	if err := utils.ValidateIdentifier("target", r.Target); err != nil {
		return err
	}
	if !models.Channel(r.Channel).Valid() {
		return &utils.ValidationError{Field: "channel", Message: "channel must be email or sms"}
	}
	if !models.Purpose(r.Purpose).Valid() {
		return &utils.ValidationError{Field: "purpose", Message: "purpose must be login or forgot"}
	}
	return nil
}

type VerifyOtpRequest struct {
	Target  string `json:"target"`
	Purpose string `json:"purpose"`
	Code    string `json:"code"`
}

func (r *VerifyOtpRequest) Validate() error {
	r.Target = strings.TrimSpace(r.Target)
	if err := utils.ValidateIdentifier("target", r.Target); err != nil {
		return err
	}
	if !models.Purpose(r.Purpose).Valid() {
		return &utils.ValidationError{Field: "purpose", Message: "purpose must be login or forgot"}
	}
	return utils.ValidateCode(r.Code)
}

type OtpSigninRequest struct {
	Target string `json:"target"`
	Code   string `json:"code"`
}

func (r *OtpSigninRequest) Validate() error {
	r.Target = strings.TrimSpace(r.Target)
	if err := utils.ValidateIdentifier("target", r.Target); err != nil {
		return err
	}
	return utils.ValidateCode(r.Code)
}

type SigninRequest struct {
	Identifier string `json:"identifier"`
	Password   string `json:"password"`
}

func (r *SigninRequest) Validate() error {
	r.Identifier = strings.TrimSpace(r.Identifier)
	if err := utils.ValidateIdentifier("identifier", r.Identifier); err != nil {
		return err
	}
	if r.Password == "" {
		return &utils.ValidationError{Field: "password", Message: "password is required"}
	}
	return nil
}

type SignupRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Phone    string `json:"phone"`
	Password string `json:"password"`
	Name     string `json:"name"`
}

type ForgotIdentifyRequest struct {
	Identifier string `json:"identifier"`
	Delivery   string `json:"delivery"`
}

func (r *ForgotIdentifyRequest) Validate() error {
	r.Identifier = strings.TrimSpace(r.Identifier)
	if err := utils.ValidateIdentifier("identifier", r.Identifier); err != nil {
		return err
	}
	if !models.Channel(r.Delivery).Valid() {
		return &utils.ValidationError{Field: "delivery", Message: "delivery must be email or sms"}
	}
	return nil
}

type ForgotVerifyRequest struct {
	Identifier string `json:"identifier"`
	Code       string `json:"code"`
}

func (r *ForgotVerifyRequest) Validate() error {
	r.Identifier = strings.TrimSpace(r.Identifier)
	if err := utils.ValidateIdentifier("identifier", r.Identifier); err != nil {
		return err
	}
	return utils.ValidateCode(r.Code)
}

type ForgotResetRequest struct {
	Identifier  string `json:"identifier"`
	Code        string `json:"code"`
	NewPassword string `json:"newPassword"`
}

func (r *ForgotResetRequest) Validate() error {
	r.Identifier = strings.TrimSpace(r.Identifier)
	if err := utils.ValidateIdentifier("identifier", r.Identifier); err != nil {
		return err
	}
	if err := utils.ValidateCode(r.Code); err != nil {
		return err
	}
	return utils.ValidatePassword("newPassword", r.NewPassword)
}

type OAuthRequest struct {
	IDToken string `json:"id_token"`
	Code    string `json:"code"`
	State   string `json:"state"`
}

func (r *OAuthRequest) Validate() error {
	if r.IDToken == "" && r.Code == "" {
		return &utils.ValidationError{Field: "id_token", Message: "id_token or code is required"}
	}
	return nil
}
