package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"gorm.io/gorm"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/auth"
	userDatamodel "github.com/campuscare/grievance-management/internal/core/datamodel/user"
)

// Repository implements auth.Repository on the users and
// password_reset_tokens tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

func (r *Repository) GetCredentialByEmail(ctx context.Context, email string) (*auth.Credential, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("email = ?", email).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	return &auth.Credential{
		User:         toAuthUser(&row),
		PasswordHash: row.PasswordHash,
	}, nil
}

func (r *Repository) GetUserByID(ctx context.Context, id int64) (*auth.User, error) {
	var row userDatamodel.User
	err := r.db.WithContext(ctx).Where("id = ?", id).First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrUserNotFound
		}
		return nil, err
	}

	user := toAuthUser(&row)
	return &user, nil
}

func (r *Repository) UpdatePassword(ctx context.Context, userID int64, newHash string, changedAt time.Time) error {
	result := r.db.WithContext(ctx).Model(&userDatamodel.User{}).
		Where("id = ?", userID).
		Updates(map[string]interface{}{
			"password_hash":         newHash,
			"password_changed_at":   changedAt,
			"force_password_change": false,
			"updated_at":            time.Now(),
		})
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrUserNotFound
	}
	return nil
}

func (r *Repository) CreateResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error {
	row := userDatamodel.PasswordResetToken{
		UserID:    userID,
		TokenHash: tokenHash,
		ExpiresAt: expiresAt,
		CreatedAt: time.Now(),
	}
	return r.db.WithContext(ctx).Create(&row).Error
}

// ConsumeResetToken marks the token used with a single conditional update,
// so two concurrent redemptions cannot both succeed.
func (r *Repository) ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (int64, error) {
	var row userDatamodel.PasswordResetToken
	err := r.db.WithContext(ctx).
		Where("token_hash = ? AND used_at IS NULL AND expires_at > ?", tokenHash, now).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return 0, internal.ErrInvalidResetToken
		}
		return 0, err
	}

	result := r.db.WithContext(ctx).Model(&userDatamodel.PasswordResetToken{}).
		Where("id = ? AND used_at IS NULL", row.ID).
		Update("used_at", sql.NullTime{Time: now, Valid: true})
	if result.Error != nil {
		return 0, result.Error
	}
	if result.RowsAffected == 0 {
		return 0, internal.ErrInvalidResetToken
	}

	return row.UserID, nil
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
