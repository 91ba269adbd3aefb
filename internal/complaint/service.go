package complaint

import (
	"context"
	"log/slog"
	"time"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/auth"
	"github.com/campuscare/grievance-management/internal/core/events"
)

// ResolveParams travels with a transition into RESOLVED; the acknowledgment
// is written atomically with the status.
type ResolveParams struct {
	Acknowledgment string
	ResolvedBy     int64
	ResolvedAt     time.Time
}

// Repository is the persistence surface for complaints. Every state
// mutation is a compare-and-set: the boolean result reports whether the
// guarded update actually applied.
type Repository interface {
	Create(ctx context.Context, c *Complaint) error
	GetByID(ctx context.Context, id int64) (*Complaint, error)
	List(ctx context.Context, scope auth.Scope, limit, offset int) ([]*Complaint, error)

	UpdateStatusCAS(ctx context.Context, id int64, expected, next Status, resolve *ResolveParams) (bool, error)
	SetRatingCAS(ctx context.Context, id int64, rating int16) (bool, error)
	SetOwnerAcknowledged(ctx context.Context, id int64, role auth.Role, at time.Time) error
	// AppendReopen moves RESOLVED to UNDER_REVIEW and inserts the reopen
	// event in one transaction; clearFeedback optionally wipes rating and
	// owner acknowledgment flags tied to the prior resolution.
	AppendReopen(ctx context.Context, id int64, event ReopenEvent, clearFeedback bool) (bool, error)
	ListReopenEvents(ctx context.Context, id int64) ([]ReopenEvent, error)
}

type Publisher interface {
	Publish(ctx context.Context, event events.Event) error
}

// Config is the reopen policy knob; the source behavior is unspecified so
// both branches are supported and tested.
type Config struct {
	ClearFeedbackOnReopen bool
}

// Service owns the complaint state machine.
type Service struct {
	repo   Repository
	bus    Publisher
	cfg    Config
	logger *slog.Logger
	now    func() time.Time
}

func NewService(repo Repository, bus Publisher, cfg Config, logger *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		bus:    bus,
		cfg:    cfg,
		logger: logger,
		now:    time.Now,
	}
}

// Submit files a new complaint for the calling student or employee.
func (s *Service) Submit(ctx context.Context, owner *auth.User, dto SubmitComplaintDTO) (*ComplaintView, error) {
	if owner.Role != auth.RoleStudent && owner.Role != auth.RoleEmployee {
		return nil, internal.ErrForbidden
	}
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	c := &Complaint{
		OwnerID:         owner.ID,
		Subject:         dto.Subject,
		Content:         dto.Content,
		Status:          StatusSubmitted,
		CreatedAt:       s.now(),
		OwnerDepartment: owner.Department,
		OwnerRole:       owner.Role,
		OwnerEmail:      owner.Email,
	}

	if err := s.repo.Create(ctx, c); err != nil {
		s.logger.Error("failed to create complaint", "error", err, "owner_id", owner.ID)
		return nil, internal.NewUnavailableError("could not store complaint", err)
	}

	s.logger.Info("complaint submitted",
		"complaint_id", c.ID,
		"complaint_code", c.ComplaintCode,
		"owner_id", owner.ID)

	return NewComplaintView(c), nil
}

// Get returns one complaint when the caller's scope covers it.
func (s *Service) Get(ctx context.Context, actor *auth.User, id int64) (*ComplaintView, error) {
	c, err := s.loadWithHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.checkReadScope(actor, c); err != nil {
		return nil, err
	}
	return NewComplaintView(c), nil
}

// List narrows results to the caller's authorized scope; there is no
// parameter through which a wider scope can be requested.
func (s *Service) List(ctx context.Context, actor *auth.User, limit, offset int) ([]*ComplaintView, error) {
	scope, err := auth.Authorize(actor, s.readActionFor(actor))
	if err != nil {
		return nil, err
	}

	complaints, err := s.repo.List(ctx, scope, limit, offset)
	if err != nil {
		s.logger.Error("failed to list complaints", "error", err, "actor_id", actor.ID)
		return nil, internal.NewUnavailableError("could not list complaints", err)
	}

	views := make([]*ComplaintView, len(complaints))
	for i, c := range complaints {
		views[i] = NewComplaintView(c)
	}
	return views, nil
}

// UpdateStatus performs a forward transition. Steps may be skipped, but a
// RESOLVED complaint only moves again through Reopen.
func (s *Service) UpdateStatus(ctx context.Context, actor *auth.User, id int64, dto UpdateStatusDTO) (*ComplaintView, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	scope, err := auth.Authorize(actor, auth.ActionWriteStatus)
	if err != nil {
		return nil, err
	}

	c, err := s.loadWithHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Covers(c.OwnerID, c.OwnerDepartment) {
		s.logger.Warn("status update denied: out of scope",
			"complaint_id", id, "actor_id", actor.ID, "actor_department", actor.Department)
		return nil, internal.ErrForbidden
	}

	next := Status(dto.Status)
	if c.Status == StatusResolved {
		return nil, internal.ErrAlreadyResolved
	}
	if !c.Status.CanAdvanceTo(next) {
		return nil, internal.ErrInvalidState
	}

	var resolve *ResolveParams
	if next == StatusResolved {
		resolve = &ResolveParams{
			Acknowledgment: dto.Acknowledgment,
			ResolvedBy:     actor.ID,
			ResolvedAt:     s.now(),
		}
	}

	applied, err := s.repo.UpdateStatusCAS(ctx, id, c.Status, next, resolve)
	if err != nil {
		s.logger.Error("status update failed", "error", err, "complaint_id", id)
		return nil, internal.NewUnavailableError("could not update complaint", err)
	}
	if !applied {
		// Lost the race; report against the state that won.
		current, lerr := s.loadWithHistory(ctx, id)
		if lerr == nil && current.Status == StatusResolved {
			return nil, internal.ErrAlreadyResolved
		}
		return nil, internal.ErrInvalidState
	}

	s.logger.Info("complaint status updated",
		"complaint_id", id,
		"from", c.Status,
		"to", next,
		"actor_id", actor.ID)

	if next == StatusResolved && s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewComplaintResolvedEvent(
			c.ID, c.ComplaintCode, c.OwnerID, c.OwnerEmail, dto.Acknowledgment))
	}

	return s.Get(ctx, actor, id)
}

// Rate records the owner's one-time rating of a resolved complaint.
func (s *Service) Rate(ctx context.Context, actor *auth.User, id int64, dto RateComplaintDTO) error {
	if err := dto.Validate(); err != nil {
		return err
	}

	c, err := s.loadWithHistory(ctx, id)
	if err != nil {
		return err
	}
	if c.OwnerID != actor.ID {
		return internal.ErrForbidden
	}
	if c.Status != StatusResolved {
		return internal.ErrInvalidState
	}
	if c.Rating != nil {
		return internal.ErrAlreadyRated
	}

	applied, err := s.repo.SetRatingCAS(ctx, id, int16(dto.Rating))
	if err != nil {
		s.logger.Error("rating update failed", "error", err, "complaint_id", id)
		return internal.NewUnavailableError("could not store rating", err)
	}
	if !applied {
		return internal.ErrAlreadyRated
	}

	s.logger.Info("complaint rated", "complaint_id", id, "rating", dto.Rating, "owner_id", actor.ID)
	return nil
}

// AcknowledgeResolution lets the owner confirm they have seen the
// resolution. Idempotent; the flag depends on the owner's role.
func (s *Service) AcknowledgeResolution(ctx context.Context, actor *auth.User, id int64) error {
	c, err := s.loadWithHistory(ctx, id)
	if err != nil {
		return err
	}
	if c.OwnerID != actor.ID {
		return internal.ErrForbidden
	}
	if c.Status != StatusResolved {
		return internal.ErrInvalidState
	}

	if err := s.repo.SetOwnerAcknowledged(ctx, id, actor.Role, s.now()); err != nil {
		s.logger.Error("acknowledgment update failed", "error", err, "complaint_id", id)
		return internal.NewUnavailableError("could not store acknowledgment", err)
	}

	s.logger.Info("resolution acknowledged", "complaint_id", id, "owner_id", actor.ID, "role", actor.Role)
	return nil
}

// Reopen is the only backward edge: RESOLVED to UNDER_REVIEW, appending to
// the reopen history.
func (s *Service) Reopen(ctx context.Context, actor *auth.User, id int64, dto ReopenComplaintDTO) (*ComplaintView, error) {
	if err := dto.Validate(); err != nil {
		return nil, err
	}

	scope, err := auth.Authorize(actor, auth.ActionWriteStatus)
	if err != nil {
		return nil, err
	}

	c, err := s.loadWithHistory(ctx, id)
	if err != nil {
		return nil, err
	}
	if !scope.Covers(c.OwnerID, c.OwnerDepartment) {
		return nil, internal.ErrForbidden
	}
	if c.Status != StatusResolved {
		return nil, internal.ErrInvalidState
	}

	event := ReopenEvent{
		PreviousStatus: StatusResolved,
		ReopenRemarks:  dto.Remarks,
		ReopenedBy:     actor.ID,
		ReopenedAt:     s.now(),
	}

	applied, err := s.repo.AppendReopen(ctx, id, event, s.cfg.ClearFeedbackOnReopen)
	if err != nil {
		s.logger.Error("reopen failed", "error", err, "complaint_id", id)
		return nil, internal.NewUnavailableError("could not reopen complaint", err)
	}
	if !applied {
		return nil, internal.ErrInvalidState
	}

	s.logger.Info("complaint reopened", "complaint_id", id, "actor_id", actor.ID)

	if s.bus != nil {
		_ = s.bus.Publish(ctx, events.NewComplaintReopenedEvent(c.ID, c.ComplaintCode, c.OwnerID, c.OwnerEmail, dto.Remarks))
	}

	return s.Get(ctx, actor, id)
}

func (s *Service) loadWithHistory(ctx context.Context, id int64) (*Complaint, error) {
	c, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	history, err := s.repo.ListReopenEvents(ctx, id)
	if err != nil {
		return nil, internal.NewUnavailableError("could not load reopen history", err)
	}
	c.ReopenHistory = NewReopenLog(history)
	return c, nil
}

func (s *Service) checkReadScope(actor *auth.User, c *Complaint) error {
	scope, err := auth.Authorize(actor, s.readActionFor(actor))
	if err != nil {
		return err
	}
	if !scope.Covers(c.OwnerID, c.OwnerDepartment) {
		return internal.ErrForbidden
	}
	return nil
}

func (s *Service) readActionFor(actor *auth.User) auth.Action {
	switch actor.Role {
	case auth.RoleAdmin:
		return auth.ActionReadAll
	case auth.RoleSubAdmin:
		return auth.ActionReadDepartment
	default:
		return auth.ActionReadOwn
	}
}

// WithClock overrides the service clock; tests only.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}
