package user

import (
	"strings"

	errors "github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/auth"
	"github.com/campuscare/grievance-management/internal/core/common/validation"
)

type CreateUserDTO struct {
	Email      string `json:"email"`
	Name       string `json:"name"`
	Role       string `json:"role"`
	Department string `json:"department,omitempty"`
	College    string `json:"college,omitempty"`
}

func (d CreateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("email", d.Email).Required().Email()
	v.Field("name", d.Name).Required().MinLength(2)
	v.Field("role", d.Role).Required().OneOf(
		string(auth.RoleAdmin),
		string(auth.RoleSubAdmin),
		string(auth.RoleEmployee),
		string(auth.RoleStudent))
	if err := v.Validate(); err != nil {
		return err
	}

	// Every account except an admin belongs to a department.
	if auth.Role(d.Role) != auth.RoleAdmin && strings.TrimSpace(d.Department) == "" {
		return errors.NewValidationFieldError("department",
			"department is required for this role", errors.ErrCodeMissingField)
	}
	return nil
}

type UpdateUserDTO struct {
	Name       *string `json:"name,omitempty"`
	Department *string `json:"department,omitempty"`
	College    *string `json:"college,omitempty"`
	IsActive   *bool   `json:"isActive,omitempty"`
}

func (d UpdateUserDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	if d.Name != nil {
		v.Field("name", *d.Name).Required().MinLength(2)
	}
	if d.Department != nil {
		v.Field("department", *d.Department).Required()
	}
	return v.Validate()
}

type BulkCreateUsersDTO struct {
	Users []CreateUserDTO `json:"users"`
}

func (d BulkCreateUsersDTO) Validate() *errors.AppError {
	if len(d.Users) == 0 {
		return errors.NewValidationFieldError("users",
			"at least one user is required", errors.ErrCodeMissingField)
	}
	return nil
}

// CreatedUser pairs the stored account with the outcome of its row in a bulk
// request; failures carry the rejection instead of aborting the batch.
type BulkCreateResult struct {
	Created []auth.User     `json:"created"`
	Failed  []BulkRowResult `json:"failed"`
}

type BulkRowResult struct {
	Email   string `json:"email"`
	Message string `json:"message"`
}
