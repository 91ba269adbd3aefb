package auth

import (
	errors "github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/core/common/validation"
)

type LoginDTO struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (d LoginDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("password", d.Password).Required()
	return v.Validate()
}

// LoginResult mirrors the login response contract.
type LoginResult struct {
	User                  *User  `json:"user"`
	Token                 string `json:"token"`
	RequirePasswordChange bool   `json:"requirePasswordChange"`
}

type ChangePasswordDTO struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (d ChangePasswordDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("currentPassword", d.CurrentPassword).Required()
	v.Field("newPassword", d.NewPassword).Required()
	v.Field("confirmPassword", d.ConfirmPassword).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	if d.NewPassword != d.ConfirmPassword {
		return errors.NewValidationFieldError("confirmPassword", "passwords do not match", errors.ErrCodePasswordMismatch)
	}
	return nil
}

// ChangePasswordResult carries the rotated token.
type ChangePasswordResult struct {
	User  *User  `json:"user"`
	Token string `json:"token"`
}

type ForgotPasswordDTO struct {
	Email string `json:"email"`
}

func (d ForgotPasswordDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	return v.Validate()
}

type CheckCooldownDTO struct {
	Email string `json:"email"`
}

func (d CheckCooldownDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	return v.Validate()
}

// CooldownStatus is returned by the idempotent cooldown query.
type CooldownStatus struct {
	IsBlocked        bool  `json:"isBlocked"`
	RemainingSeconds int64 `json:"remainingSeconds"`
}

type ResetPasswordDTO struct {
	Token           string `json:"token"`
	NewPassword     string `json:"newPassword"`
	ConfirmPassword string `json:"confirmPassword"`
}

func (d ResetPasswordDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("token", d.Token).Required()
	v.Field("newPassword", d.NewPassword).Required()
	v.Field("confirmPassword", d.ConfirmPassword).Required()
	if err := v.Validate(); err != nil {
		return err
	}
	// Reset is an unauthenticated flow: a mismatch is reported the same way
	// as a bad token so callers learn nothing about what failed.
	if d.NewPassword != d.ConfirmPassword {
		return errors.ErrInvalidResetToken
	}
	return nil
}
