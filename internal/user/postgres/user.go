package postgres

import (
	"context"
	"errors"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/auth"
	userDatamodel "github.com/campuscare/grievance-management/internal/core/datamodel/user"
)

// Repository implements user.Repository on the users table.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) Create(ctx context.Context, u *auth.User, passwordHash string) error {
	row := userDatamodel.User{
		Email:               u.Email,
		Name:                u.Name,
		Role:                string(u.Role),
		College:             u.College,
		PasswordHash:        passwordHash,
		ForcePasswordChange: u.ForcePasswordChange,
		IsActive:            u.IsActive,
		CreatedAt:           u.CreatedAt,
		UpdatedAt:           u.CreatedAt,
	}
	if u.Department != "" {
		row.Department = &u.Department
	}

	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		if isUniqueViolation(err) {
			return internal.ErrDuplicateEmail
		}
		return internal.NewUnavailableError("could not create user", err)
	}

	u.ID = row.ID
	return nil
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*auth.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	u := toAuthUser(&row)
	return &u, nil
}

func (r *Repository) List(ctx context.Context, scope auth.Scope, limit, offset int) ([]*auth.User, error) {
	query := r.db.WithContext(ctx).Model(&userDatamodel.User{})

	switch scope.Kind {
	case auth.ScopeAll:
		// no filter
	case auth.ScopeDepartment:
		// Sub-admins manage employees only; their own peer accounts are
		// outside the management surface.
		query = query.Where("department = ? AND role = ?", scope.Department, string(auth.RoleEmployee))
	case auth.ScopeOwn:
		query = query.Where("id = ?", scope.UserID)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []userDatamodel.User
	if err := query.Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*auth.User, len(rows))
	for i := range rows {
		u := toAuthUser(&rows[i])
		out[i] = &u
	}
	return out, nil
}

func (r *Repository) Update(ctx context.Context, id int64, fields map[string]interface{}) error {
	result := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", id).
		Updates(fields)
	if result.Error != nil {
		return internal.NewUnavailableError("could not update user", result.Error)
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *Repository) Deactivate(ctx context.Context, id int64) error {
	return r.Update(ctx, id, map[string]interface{}{
		"is_active":  false,
		"updated_at": time.Now(),
	})
}

// isUniqueViolation matches both the postgres error text and sqlite's, since
// tests run against the latter.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	return strings.Contains(msg, "duplicate key") || strings.Contains(msg, "unique constraint")
}

func toAuthUser(row *userDatamodel.User) auth.User {
	role, _ := auth.ParseRole(row.Role)

	var department string
	if row.Department != nil {
		department = *row.Department
	}

	return auth.User{
		ID:                  row.ID,
		Email:               row.Email,
		Name:                row.Name,
		Role:                role,
		Department:          department,
		College:             row.College,
		ForcePasswordChange: row.ForcePasswordChange,
		IsActive:            row.IsActive,
		PasswordChangedAt:   row.PasswordChangedAt,
		CreatedAt:           row.CreatedAt,
	}
}
