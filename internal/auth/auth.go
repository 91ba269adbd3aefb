package auth

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/campuscare/grievance-management/internal"
)

// Role is a closed set; call sites switch exhaustively instead of comparing
// strings. Role is immutable after account creation.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleSubAdmin Role = "SUB_ADMIN"
	RoleEmployee Role = "EMPLOYEE"
	RoleStudent  Role = "STUDENT"
)

func ParseRole(s string) (Role, error) {
	switch Role(s) {
	case RoleAdmin, RoleSubAdmin, RoleEmployee, RoleStudent:
		return Role(s), nil
	default:
		return "", fmt.Errorf("unknown role: %q", s)
	}
}

func (r Role) Valid() bool {
	_, err := ParseRole(string(r))
	return err == nil
}

// IsStaff reports whether the role may mutate complaint status.
func (r Role) IsStaff() bool {
	return r == RoleAdmin || r == RoleSubAdmin
}

// User is the authenticated identity resolved once per request. Department
// scoping is always derived from this value, never from request parameters.
type User struct {
	ID                  int64      `json:"id"`
	Email               string     `json:"email"`
	Name                string     `json:"name"`
	Role                Role       `json:"role"`
	Department          string     `json:"department,omitempty"`
	College             string     `json:"college,omitempty"`
	ForcePasswordChange bool       `json:"forcePasswordChange"`
	IsActive            bool       `json:"isActive"`
	PasswordChangedAt   *time.Time `json:"-"`
	CreatedAt           time.Time  `json:"createdAt"`
}

// Credential pairs an identity with its stored password hash. The hash never
// leaves the auth package.
type Credential struct {
	User         User
	PasswordHash string
}

// Claims embeds the session identity in the bearer token. PasswordRotation
// mirrors the account's password_changed_at; a token minted before the last
// password change fails verification.
type Claims struct {
	UserID              int64  `json:"uid"`
	Email               string `json:"email"`
	Role                string `json:"role"`
	Department          string `json:"department,omitempty"`
	ForcePasswordChange bool   `json:"force_password_change"`
	PasswordRotation    int64  `json:"pwd_rot,omitempty"`
	jwt.RegisteredClaims
}

// TokenGenerator mints and verifies session tokens. Tokens are immutable;
// rotation means issuing a new one.
type TokenGenerator interface {
	GenerateToken(user *User) (string, error)
	ValidateToken(tokenString string) (*Claims, error)
}

type JWTTokenGenerator struct {
	Secret   []byte
	TokenTTL time.Duration
}

func NewJWTTokenGenerator(secret string, ttl time.Duration) *JWTTokenGenerator {
	return &JWTTokenGenerator{
		Secret:   []byte(secret),
		TokenTTL: ttl,
	}
}

func (j *JWTTokenGenerator) GenerateToken(user *User) (string, error) {
	now := time.Now()

	var rotation int64
	if user.PasswordChangedAt != nil {
		rotation = user.PasswordChangedAt.Unix()
	}

	claims := &Claims{
		UserID:              user.ID,
		Email:               user.Email,
		Role:                string(user.Role),
		Department:          user.Department,
		ForcePasswordChange: user.ForcePasswordChange,
		PasswordRotation:    rotation,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(j.TokenTTL)),
			IssuedAt:  jwt.NewNumericDate(now),
			Subject:   fmt.Sprintf("%d", user.ID),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(j.Secret)
}

func (j *JWTTokenGenerator) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return j.Secret, nil
	})
	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, internal.ErrTokenExpired
		}
		return nil, internal.ErrInvalidToken
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, internal.ErrInvalidToken
	}
	return claims, nil
}

type ctxKey string

const ContextUserKey ctxKey = "user"

func UserFromContext(ctx context.Context) (*User, bool) {
	u, ok := ctx.Value(ContextUserKey).(*User)
	return u, ok
}

func ContextWithUser(ctx context.Context, u *User) context.Context {
	return context.WithValue(ctx, ContextUserKey, u)
}
