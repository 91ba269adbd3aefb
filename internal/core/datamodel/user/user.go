package user

import "time"

// User is the persistence model for the users table.
type User struct {
	ID                  int64      `gorm:"primaryKey"`
	Email               string     `gorm:"uniqueIndex;not null"`
	Name                string     `gorm:"not null"`
	Role                string     `gorm:"not null"`
	Department          *string    `gorm:"column:department"`
	College             string     `gorm:"column:college"`
	PasswordHash        string     `gorm:"column:password_hash;not null"`
	ForcePasswordChange bool       `gorm:"column:force_password_change;not null;default:false"`
	PasswordChangedAt   *time.Time `gorm:"column:password_changed_at"`
	IsActive            bool       `gorm:"column:is_active;not null;default:true"`
	CreatedAt           time.Time  `gorm:"column:created_at"`
	UpdatedAt           time.Time  `gorm:"column:updated_at"`
}

func (User) TableName() string {
	return "users"
}

// PasswordResetToken stores the SHA-256 hash of an issued reset token.
// used_at flips exactly once via a conditional update.
type PasswordResetToken struct {
	ID        int64      `gorm:"primaryKey"`
	UserID    int64      `gorm:"column:user_id;not null;index"`
	TokenHash string     `gorm:"column:token_hash;not null"`
	ExpiresAt time.Time  `gorm:"column:expires_at;not null"`
	UsedAt    *time.Time `gorm:"column:used_at"`
	CreatedAt time.Time  `gorm:"column:created_at"`
}

func (PasswordResetToken) TableName() string {
	return "password_reset_tokens"
}
