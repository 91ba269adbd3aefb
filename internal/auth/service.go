package auth

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/core/events"
)

// Repository is the credential store consumed by the session manager.
type Repository interface {
	GetCredentialByEmail(ctx context.Context, email string) (*Credential, error)
	GetUserByID(ctx context.Context, id int64) (*User, error)
	// UpdatePassword rehashes, stamps password_changed_at and clears
	// force_password_change in one statement.
	UpdatePassword(ctx context.Context, userID int64, newHash string, changedAt time.Time) error

	CreateResetToken(ctx context.Context, userID int64, tokenHash string, expiresAt time.Time) error
	// ConsumeResetToken flips used_at exactly once; it returns the owning
	// user id, or internal.ErrInvalidResetToken when the token is unknown,
	// expired or already used.
	ConsumeResetToken(ctx context.Context, tokenHash string, now time.Time) (int64, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Config carries the externally supplied security knobs; nothing here is a
// code constant.
type Config struct {
	BCryptCost        int
	PasswordMinLength int
	ResetTokenTTL     time.Duration
	CooldownMax       int
}

// Service owns the session/authentication lifecycle.
type Service struct {
	repo     Repository
	tokenGen TokenGenerator
	cooldown CooldownStore
	bus      Publisher
	cfg      Config
	logger   *slog.Logger
	now      func() time.Time
}

func NewService(repo Repository, tokenGen TokenGenerator, cooldown CooldownStore, bus Publisher, cfg Config, logger *slog.Logger) *Service {
	if cfg.BCryptCost == 0 {
		cfg.BCryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:     repo,
		tokenGen: tokenGen,
		cooldown: cooldown,
		bus:      bus,
		cfg:      cfg,
		logger:   logger,
		now:      time.Now,
	}
}

// Login verifies credentials and mints a token whose claims reflect the
// account's role, department and forced-password-change state. Unknown
// email, bad password and inactive account are indistinguishable.
func (s *Service) Login(ctx context.Context, dto LoginDTO) (*LoginResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	cred, err := s.repo.GetCredentialByEmail(ctx, dto.Email)
	if err != nil {
		s.logger.Warn("login failed: credential lookup", "email", dto.Email)
		return nil, internal.ErrInvalidCredentials
	}
	if !cred.User.IsActive {
		s.logger.Warn("login failed: inactive account", "user_id", cred.User.ID)
		return nil, internal.ErrInvalidCredentials
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(dto.Password)); err != nil {
		s.logger.Warn("login failed: password mismatch", "user_id", cred.User.ID)
		return nil, internal.ErrInvalidCredentials
	}

	token, err := s.tokenGen.GenerateToken(&cred.User)
	if err != nil {
		return nil, internal.NewUnavailableError("could not issue session token", err)
	}

	s.logger.Info("login succeeded",
		"user_id", cred.User.ID,
		"role", cred.User.Role,
		"require_password_change", cred.User.ForcePasswordChange)

	user := cred.User
	return &LoginResult{
		User:                  &user,
		Token:                 token,
		RequirePasswordChange: cred.User.ForcePasswordChange,
	}, nil
}

// Verify resolves a bearer token to its current account. Tokens issued
// before the last password change are rejected.
func (s *Service) Verify(ctx context.Context, tokenString string) (*User, error) {
	claims, err := s.tokenGen.ValidateToken(tokenString)
	if err != nil {
		return nil, err
	}

	user, err := s.repo.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, internal.ErrInvalidToken
	}
	if !user.IsActive {
		return nil, internal.ErrInvalidToken
	}

	var rotation int64
	if user.PasswordChangedAt != nil {
		rotation = user.PasswordChangedAt.Unix()
	}
	if claims.PasswordRotation != rotation {
		s.logger.Warn("stale token after password rotation", "user_id", user.ID)
		return nil, internal.ErrTokenExpired
	}

	return user, nil
}

// ChangePassword verifies the current password, applies the policy and
// rotates the session. Completing it is the only way out of the
// forced-password-change state.
func (s *Service) ChangePassword(ctx context.Context, actor *User, dto ChangePasswordDTO) (*ChangePasswordResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	cred, err := s.repo.GetCredentialByEmail(ctx, actor.Email)
	if err != nil {
		return nil, internal.NewUnavailableError("could not load credentials", err)
	}

	if err := bcrypt.CompareHashAndPassword([]byte(cred.PasswordHash), []byte(dto.CurrentPassword)); err != nil {
		return nil, internal.ErrInvalidCredentials
	}
	if dto.NewPassword == dto.CurrentPassword {
		return nil, internal.NewValidationError("new password must differ from the current password", internal.ErrCodePasswordReuse)
	}
	if err := ValidatePasswordPolicy(dto.NewPassword, s.cfg.PasswordMinLength); err != nil {
		return nil, err
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.cfg.BCryptCost)
	if err != nil {
		return nil, internal.NewUnavailableError("could not hash password", err)
	}

	changedAt := s.now().Truncate(time.Second)
	if err := s.repo.UpdatePassword(ctx, actor.ID, string(newHash), changedAt); err != nil {
		return nil, internal.NewUnavailableError("could not update password", err)
	}

	updated := *actor
	updated.ForcePasswordChange = false
	updated.PasswordChangedAt = &changedAt

	token, err := s.tokenGen.GenerateToken(&updated)
	if err != nil {
		return nil, internal.NewUnavailableError("could not issue session token", err)
	}

	s.logger.Info("password changed", "user_id", actor.ID)
	return &ChangePasswordResult{User: &updated, Token: token}, nil
}

// RequestReset is enumeration-safe: the response shape is identical whether
// or not the email exists. Every attempt counts against the cooldown.
func (s *Service) RequestReset(ctx context.Context, dto ForgotPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	count, err := s.cooldown.Hit(ctx, dto.Email)
	if err != nil {
		return internal.NewUnavailableError("cooldown store unavailable", err)
	}
	if count > int64(s.cfg.CooldownMax) {
		_, remaining, serr := s.cooldown.Status(ctx, dto.Email)
		if serr != nil {
			return internal.NewUnavailableError("cooldown store unavailable", serr)
		}
		s.logger.Warn("reset request blocked by cooldown", "email", dto.Email, "count", count)
		return internal.NewRateLimitedError("too many reset requests, try again later", int64(remaining.Seconds()))
	}

	cred, err := s.repo.GetCredentialByEmail(ctx, dto.Email)
	if err != nil || !cred.User.IsActive {
		// Success-shaped no-op prevents account enumeration.
		s.logger.Info("reset requested for unknown or inactive account", "email", dto.Email)
		return nil
	}

	token, err := GenerateRandomToken()
	if err != nil {
		return internal.NewUnavailableError("could not generate reset token", err)
	}

	expiresAt := s.now().Add(s.cfg.ResetTokenTTL)
	if err := s.repo.CreateResetToken(ctx, cred.User.ID, hashResetToken(token), expiresAt); err != nil {
		return internal.NewUnavailableError("could not store reset token", err)
	}

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewPasswordResetRequestedEvent(cred.User.ID, cred.User.Email, token))
	}

	s.logger.Info("reset token issued", "user_id", cred.User.ID)
	return nil
}

// CheckCooldown reports the countdown without mutating it.
func (s *Service) CheckCooldown(ctx context.Context, dto CheckCooldownDTO) (*CooldownStatus, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	count, remaining, err := s.cooldown.Status(ctx, dto.Email)
	if err != nil {
		return nil, internal.NewUnavailableError("cooldown store unavailable", err)
	}

	if count >= int64(s.cfg.CooldownMax) && remaining > 0 {
		return &CooldownStatus{IsBlocked: true, RemainingSeconds: int64(remaining.Seconds())}, nil
	}
	return &CooldownStatus{IsBlocked: false, RemainingSeconds: 0}, nil
}

// ResetPassword redeems a single-use token and sets a new password.
func (s *Service) ResetPassword(ctx context.Context, dto ResetPasswordDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}
	if err := ValidatePasswordPolicy(dto.NewPassword, s.cfg.PasswordMinLength); err != nil {
		return err
	}

	userID, err := s.repo.ConsumeResetToken(ctx, hashResetToken(dto.Token), s.now())
	if err != nil {
		return internal.ErrInvalidResetToken
	}

	newHash, err := bcrypt.GenerateFromPassword([]byte(dto.NewPassword), s.cfg.BCryptCost)
	if err != nil {
		return internal.NewUnavailableError("could not hash password", err)
	}

	changedAt := s.now().Truncate(time.Second)
	if err := s.repo.UpdatePassword(ctx, userID, string(newHash), changedAt); err != nil {
		return internal.NewUnavailableError("could not update password", err)
	}

	s.logger.Info("password reset completed", "user_id", userID)
	return nil
}

// hashResetToken makes the opaque token safe to store and indexable for
// lookup. The raw token only ever travels in the outbound mail.
func hashResetToken(token string) string {
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}

// WithClock overrides the service clock; tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
