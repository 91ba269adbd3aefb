package user

import (
	"context"
	"log/slog"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/auth"
	"github.com/campuscare/grievance-management/internal/core/events"
)

// Repository is the account store for the user-management module.
type Repository interface {
	Create(ctx context.Context, u *auth.User, passwordHash string) error
	GetByID(ctx context.Context, id int64) (*auth.User, error)
	List(ctx context.Context, scope auth.Scope, limit, offset int) ([]*auth.User, error)
	Update(ctx context.Context, id int64, fields map[string]interface{}) error
	Deactivate(ctx context.Context, id int64) error
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

type Config struct {
	BCryptCost int
}

// Service provisions and manages accounts. New accounts start in the
// forced-password-change state with a generated temporary password.
type Service struct {
	repo   Repository
	bus    Publisher
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, bus Publisher, cfg Config, logger *slog.Logger) *Service {
	if cfg.BCryptCost == 0 {
		cfg.BCryptCost = bcrypt.DefaultCost
	}
	return &Service{
		repo:   repo,
		bus:    bus,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Create provisions one account under the caller's management policy. The
// temporary password never appears in the response; it travels only on the
// credential-delivery event.
func (s *Service) Create(ctx context.Context, actor *auth.User, dto CreateUserDTO) (*auth.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	role, err := auth.ParseRole(dto.Role)
	if err != nil {
		return nil, internal.NewValidationFieldError("role", "unknown role", internal.ErrCodeValidationFailed)
	}
	if err := auth.CanManageUser(actor, role, dto.Department); err != nil {
		return nil, err
	}

	tempPassword, err := auth.GenerateTempPassword()
	if err != nil {
		return nil, internal.NewUnavailableError("could not generate temporary password", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(tempPassword), s.cfg.BCryptCost)
	if err != nil {
		return nil, internal.NewUnavailableError("could not hash password", err)
	}

	u := &auth.User{
		Email:               dto.Email,
		Name:                dto.Name,
		Role:                role,
		Department:          dto.Department,
		College:             dto.College,
		ForcePasswordChange: true,
		IsActive:            true,
		CreatedAt:           s.now(),
	}

	if err := s.repo.Create(ctx, u, string(hash)); err != nil {
		return nil, err
	}

	s.logger.Info("user created",
		"user_id", u.ID,
		"role", u.Role,
		"department", u.Department,
		"created_by", actor.ID)

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewUserCreatedEvent(u.ID, u.Email, u.Name, tempPassword))
	}

	return u, nil
}

// BulkCreate provisions accounts row by row; one bad row does not abort the
// batch, it lands in the Failed list with its rejection message.
func (s *Service) BulkCreate(ctx context.Context, actor *auth.User, dto BulkCreateUsersDTO) (*BulkCreateResult, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	result := &BulkCreateResult{
		Created: []auth.User{},
		Failed:  []BulkRowResult{},
	}
	for _, row := range dto.Users {
		u, err := s.Create(ctx, actor, row)
		if err != nil {
			message := "could not create user"
			if appErr, ok := internal.IsAppError(err); ok {
				message = appErr.Message
			}
			result.Failed = append(result.Failed, BulkRowResult{Email: row.Email, Message: message})
			continue
		}
		result.Created = append(result.Created, *u)
	}

	s.logger.Info("bulk user creation finished",
		"requested", len(dto.Users),
		"created", len(result.Created),
		"failed", len(result.Failed),
		"created_by", actor.ID)

	return result, nil
}

func (s *Service) Get(ctx context.Context, actor *auth.User, id int64) (*auth.User, error) {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if actor.ID != target.ID {
		if err := auth.CanManageUser(actor, target.Role, target.Department); err != nil {
			return nil, err
		}
	}
	return target, nil
}

// List is scoped by role: admins see everyone, sub-admins their department's
// employees.
func (s *Service) List(ctx context.Context, actor *auth.User, limit, offset int) ([]*auth.User, error) {
	scope, err := auth.Authorize(actor, auth.ActionWriteUser)
	if err != nil {
		return nil, err
	}

	users, err := s.repo.List(ctx, scope, limit, offset)
	if err != nil {
		s.logger.Error("failed to list users", "error", err, "actor_id", actor.ID)
		return nil, internal.NewUnavailableError("could not list users", err)
	}
	return users, nil
}

// Update applies partial edits to a managed account.
func (s *Service) Update(ctx context.Context, actor *auth.User, id int64, dto UpdateUserDTO) (*auth.User, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := auth.CanManageUser(actor, target.Role, target.Department); err != nil {
		return nil, err
	}

	fields := map[string]interface{}{"updated_at": s.now()}
	if dto.Name != nil {
		fields["name"] = *dto.Name
	}
	if dto.Department != nil {
		// Sub-admins cannot move an employee out of their own department.
		if err := auth.CanManageUser(actor, target.Role, *dto.Department); err != nil {
			return nil, err
		}
		fields["department"] = *dto.Department
	}
	if dto.College != nil {
		fields["college"] = *dto.College
	}
	if dto.IsActive != nil {
		fields["is_active"] = *dto.IsActive
	}

	if err := s.repo.Update(ctx, id, fields); err != nil {
		return nil, err
	}

	s.logger.Info("user updated", "user_id", id, "updated_by", actor.ID)
	return s.repo.GetByID(ctx, id)
}

// Deactivate disables login without deleting the account; complaints keep
// their owner row.
func (s *Service) Deactivate(ctx context.Context, actor *auth.User, id int64) error {
	target, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return err
	}
	if err := auth.CanManageUser(actor, target.Role, target.Department); err != nil {
		return err
	}

	if err := s.repo.Deactivate(ctx, id); err != nil {
		return err
	}

	s.logger.Info("user deactivated", "user_id", id, "deactivated_by", actor.ID)
	return nil
}

// WithClock overrides the service clock; tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
