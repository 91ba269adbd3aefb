package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/auth"
	"github.com/campuscare/grievance-management/internal/complaint"
	complaintDatamodel "github.com/campuscare/grievance-management/internal/core/datamodel/complaint"
)

// Repository implements complaint.Repository on the complaints and
// complaint_reopen_events tables.
type Repository struct {
	db *gorm.DB
}

func NewRepository(db *gorm.DB) *Repository {
	return &Repository{db: db}
}

// ownerRow is the join projection used to hydrate owner attributes the
// authorizer scopes on.
type ownerRow struct {
	complaintDatamodel.Complaint
	OwnerDepartment *string
	OwnerRole       string
	OwnerEmail      string
}

const ownerJoinSelect = "complaints.*, users.department AS owner_department, users.role AS owner_role, users.email AS owner_email"

// Create inserts the complaint and assigns its public code from the row id
// inside one transaction, so codes are unique without a separate sequence.
func (r *Repository) Create(ctx context.Context, c *complaint.Complaint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		row := complaintDatamodel.Complaint{
			UserID:    c.OwnerID,
			Subject:   c.Subject,
			Content:   c.Content,
			Status:    string(c.Status),
			CreatedAt: c.CreatedAt,
			UpdatedAt: c.CreatedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		code := fmt.Sprintf("GRV-%d-%05d", c.CreatedAt.Year(), row.ID)
		if err := tx.Model(&complaintDatamodel.Complaint{}).
			Where("id = ?", row.ID).
			Update("complaint_code", code).Error; err != nil {
			return err
		}

		c.ID = row.ID
		c.ComplaintCode = code
		return nil
	})
}

func (r *Repository) GetByID(ctx context.Context, id int64) (*complaint.Complaint, error) {
	var row ownerRow
	err := r.db.WithContext(ctx).
		Model(&complaintDatamodel.Complaint{}).
		Select(ownerJoinSelect).
		Joins("JOIN users ON users.id = complaints.user_id").
		Where("complaints.id = ?", id).
		First(&row).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, internal.ErrComplaintNotFound
		}
		return nil, err
	}
	return toDomain(&row), nil
}

func (r *Repository) List(ctx context.Context, scope auth.Scope, limit, offset int) ([]*complaint.Complaint, error) {
	query := r.db.WithContext(ctx).
		Model(&complaintDatamodel.Complaint{}).
		Select(ownerJoinSelect).
		Joins("JOIN users ON users.id = complaints.user_id")

	switch scope.Kind {
	case auth.ScopeAll:
		// no filter
	case auth.ScopeDepartment:
		query = query.Where("users.department = ?", scope.Department)
	case auth.ScopeOwn:
		query = query.Where("complaints.user_id = ?", scope.UserID)
	}

	if limit > 0 {
		query = query.Limit(limit)
	}
	if offset > 0 {
		query = query.Offset(offset)
	}

	var rows []ownerRow
	if err := query.Order("complaints.created_at DESC").Find(&rows).Error; err != nil {
		return nil, err
	}

	out := make([]*complaint.Complaint, len(rows))
	for i := range rows {
		out[i] = toDomain(&rows[i])
	}
	return out, nil
}

// UpdateStatusCAS applies the transition only when the stored status still
// matches what the caller saw. RowsAffected tells whether we won the race.
func (r *Repository) UpdateStatusCAS(ctx context.Context, id int64, expected, next complaint.Status, resolve *complaint.ResolveParams) (bool, error) {
	updates := map[string]interface{}{
		"status":     string(next),
		"updated_at": time.Now(),
	}
	if resolve != nil {
		updates["acknowledgment"] = resolve.Acknowledgment
		updates["resolved_by"] = resolve.ResolvedBy
		updates["resolved_at"] = resolve.ResolvedAt
	}

	result := r.db.WithContext(ctx).Model(&complaintDatamodel.Complaint{}).
		Where("id = ? AND status = ?", id, string(expected)).
		Updates(updates)
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// SetRatingCAS stores the rating only while the complaint is resolved and
// unrated; the guard makes a second rating attempt a no-op.
func (r *Repository) SetRatingCAS(ctx context.Context, id int64, rating int16) (bool, error) {
	result := r.db.WithContext(ctx).Model(&complaintDatamodel.Complaint{}).
		Where("id = ? AND status = ? AND rating IS NULL", id, string(complaint.StatusResolved)).
		Updates(map[string]interface{}{
			"rating":     rating,
			"updated_at": time.Now(),
		})
	if result.Error != nil {
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

func (r *Repository) SetOwnerAcknowledged(ctx context.Context, id int64, role auth.Role, at time.Time) error {
	updates := map[string]interface{}{"updated_at": time.Now()}
	switch role {
	case auth.RoleStudent:
		updates["acknowledged_by_student"] = true
		updates["acknowledged_student_at"] = at
	case auth.RoleEmployee:
		updates["acknowledged_by_employee"] = true
		updates["acknowledged_employee_at"] = at
	default:
		return internal.ErrForbidden
	}

	result := r.db.WithContext(ctx).Model(&complaintDatamodel.Complaint{}).
		Where("id = ? AND status = ?", id, string(complaint.StatusResolved)).
		Updates(updates)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return internal.ErrInvalidState
	}
	return nil
}

// AppendReopen moves the complaint back to UNDER_REVIEW and records the
// event in the same transaction. The status guard means two concurrent
// reopens produce exactly one history entry.
func (r *Repository) AppendReopen(ctx context.Context, id int64, event complaint.ReopenEvent, clearFeedback bool) (bool, error) {
	applied := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		updates := map[string]interface{}{
			"status":     string(complaint.StatusUnderReview),
			"updated_at": time.Now(),
		}
		if clearFeedback {
			updates["rating"] = nil
			updates["acknowledged_by_student"] = false
			updates["acknowledged_student_at"] = nil
			updates["acknowledged_by_employee"] = false
			updates["acknowledged_employee_at"] = nil
		}

		result := tx.Model(&complaintDatamodel.Complaint{}).
			Where("id = ? AND status = ?", id, string(complaint.StatusResolved)).
			Updates(updates)
		if result.Error != nil {
			return result.Error
		}
		if result.RowsAffected == 0 {
			return nil
		}

		row := complaintDatamodel.ReopenEvent{
			ComplaintID:    id,
			PreviousStatus: string(event.PreviousStatus),
			ReopenRemarks:  event.ReopenRemarks,
			ReopenedBy:     event.ReopenedBy,
			ReopenedAt:     event.ReopenedAt,
		}
		if err := tx.Create(&row).Error; err != nil {
			return err
		}

		applied = true
		return nil
	})
	return applied, err
}

func (r *Repository) ListReopenEvents(ctx context.Context, id int64) ([]complaint.ReopenEvent, error) {
	var rows []complaintDatamodel.ReopenEvent
	err := r.db.WithContext(ctx).
		Where("complaint_id = ?", id).
		Order("reopened_at ASC, id ASC").
		Find(&rows).Error
	if err != nil {
		return nil, err
	}

	events := make([]complaint.ReopenEvent, len(rows))
	for i := range rows {
		events[i] = complaint.ReopenEventFromDataModel(&rows[i])
	}
	return events, nil
}

func toDomain(row *ownerRow) *complaint.Complaint {
	c := complaint.FromDataModel(&row.Complaint)
	if row.OwnerDepartment != nil {
		c.OwnerDepartment = *row.OwnerDepartment
	}
	role, _ := auth.ParseRole(row.OwnerRole)
	c.OwnerRole = role
	c.OwnerEmail = row.OwnerEmail
	return c
}
