package events

import (
	"time"

	"github.com/google/uuid"
)

const (
	EventTypeUserCreated            = "user.created"
	EventTypePasswordResetRequested = "auth.password_reset_requested"
	EventTypeComplaintResolved      = "complaint.resolved"
	EventTypeComplaintReopened      = "complaint.reopened"
)

// UserCreatedEvent carries the one-time temporary password so the mailer
// can deliver initial credentials. It is never persisted.
type UserCreatedEvent struct {
	BaseEvent
	UserID       int64  `json:"user_id"`
	Email        string `json:"email"`
	Name         string `json:"name"`
	TempPassword string `json:"-"`
}

func NewUserCreatedEvent(userID int64, email, name, tempPassword string) *UserCreatedEvent {
	return &UserCreatedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeUserCreated,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id": userID,
				"email":   email,
				"name":    name,
			},
		},
		UserID:       userID,
		Email:        email,
		Name:         name,
		TempPassword: tempPassword,
	}
}

// PasswordResetRequestedEvent carries the opaque reset token for delivery.
type PasswordResetRequestedEvent struct {
	BaseEvent
	UserID     int64  `json:"user_id"`
	Email      string `json:"email"`
	ResetToken string `json:"-"`
}

func NewPasswordResetRequestedEvent(userID int64, email, resetToken string) *PasswordResetRequestedEvent {
	return &PasswordResetRequestedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypePasswordResetRequested,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"user_id": userID,
				"email":   email,
			},
		},
		UserID:     userID,
		Email:      email,
		ResetToken: resetToken,
	}
}

type ComplaintResolvedEvent struct {
	BaseEvent
	ComplaintID    int64  `json:"complaint_id"`
	ComplaintCode  string `json:"complaint_code"`
	OwnerID        int64  `json:"owner_id"`
	OwnerEmail     string `json:"owner_email"`
	Acknowledgment string `json:"acknowledgment"`
}

func NewComplaintResolvedEvent(complaintID int64, complaintCode string, ownerID int64, ownerEmail, acknowledgment string) *ComplaintResolvedEvent {
	return &ComplaintResolvedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeComplaintResolved,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"complaint_id":   complaintID,
				"complaint_code": complaintCode,
				"owner_id":       ownerID,
			},
		},
		ComplaintID:    complaintID,
		ComplaintCode:  complaintCode,
		OwnerID:        ownerID,
		OwnerEmail:     ownerEmail,
		Acknowledgment: acknowledgment,
	}
}

type ComplaintReopenedEvent struct {
	BaseEvent
	ComplaintID   int64  `json:"complaint_id"`
	ComplaintCode string `json:"complaint_code"`
	OwnerID       int64  `json:"owner_id"`
	OwnerEmail    string `json:"owner_email"`
	Remarks       string `json:"remarks"`
}

func NewComplaintReopenedEvent(complaintID int64, complaintCode string, ownerID int64, ownerEmail, remarks string) *ComplaintReopenedEvent {
	return &ComplaintReopenedEvent{
		BaseEvent: BaseEvent{
			ID:        uuid.New().String(),
			Type:      EventTypeComplaintReopened,
			Timestamp: time.Now(),
			Data: map[string]interface{}{
				"complaint_id":   complaintID,
				"complaint_code": complaintCode,
				"owner_id":       ownerID,
				"remarks":        remarks,
			},
		},
		ComplaintID:   complaintID,
		ComplaintCode: complaintCode,
		OwnerID:       ownerID,
		OwnerEmail:    ownerEmail,
		Remarks:       remarks,
	}
}
