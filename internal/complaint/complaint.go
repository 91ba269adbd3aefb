package complaint

import (
	"fmt"
	"time"

	"github.com/campuscare/grievance-management/internal/auth"
	complaintDatamodel "github.com/campuscare/grievance-management/internal/core/datamodel/complaint"
)

// Status moves forward only; reopen is the single backward edge and always
// lands on UNDER_REVIEW.
type Status string

const (
	StatusSubmitted   Status = "SUBMITTED"
	StatusRead        Status = "READ"
	StatusUnderReview Status = "UNDER_REVIEW"
	StatusResolved    Status = "RESOLVED"
)

func ParseStatus(s string) (Status, error) {
	switch Status(s) {
	case StatusSubmitted, StatusRead, StatusUnderReview, StatusResolved:
		return Status(s), nil
	default:
		return "", fmt.Errorf("unknown complaint status: %q", s)
	}
}

// rank orders the forward path. Staff may skip steps but never walk back.
func (s Status) rank() int {
	switch s {
	case StatusSubmitted:
		return 0
	case StatusRead:
		return 1
	case StatusUnderReview:
		return 2
	case StatusResolved:
		return 3
	}
	return -1
}

// CanAdvanceTo reports whether the forward path admits the move.
func (s Status) CanAdvanceTo(target Status) bool {
	return target.rank() > s.rank()
}

// ReopenEvent records one reopen. Events are immutable once appended.
type ReopenEvent struct {
	PreviousStatus Status    `json:"previousStatus"`
	ReopenRemarks  string    `json:"reopenRemarks"`
	ReopenedBy     int64     `json:"reopenedBy"`
	ReopenedAt     time.Time `json:"reopenedAt"`
}

// ReopenLog is an append-only sequence; there is no way to edit or drop an
// entry through this type.
type ReopenLog struct {
	entries []ReopenEvent
}

func NewReopenLog(entries []ReopenEvent) ReopenLog {
	copied := make([]ReopenEvent, len(entries))
	copy(copied, entries)
	return ReopenLog{entries: copied}
}

func (l ReopenLog) Append(e ReopenEvent) ReopenLog {
	entries := make([]ReopenEvent, len(l.entries), len(l.entries)+1)
	copy(entries, l.entries)
	return ReopenLog{entries: append(entries, e)}
}

func (l ReopenLog) Entries() []ReopenEvent {
	copied := make([]ReopenEvent, len(l.entries))
	copy(copied, l.entries)
	return copied
}

func (l ReopenLog) Len() int {
	return len(l.entries)
}

// Complaint is the domain view, including the owner attributes the
// authorizer scopes on.
type Complaint struct {
	ID             int64      `json:"id"`
	ComplaintCode  string     `json:"complaintId"`
	OwnerID        int64      `json:"ownerId"`
	Subject        string     `json:"subject"`
	Content        string     `json:"content"`
	Status         Status     `json:"status"`
	Acknowledgment string     `json:"acknowledgment,omitempty"`
	ResolvedBy     *int64     `json:"resolvedBy,omitempty"`
	ResolvedAt     *time.Time `json:"resolvedAt,omitempty"`
	Rating         *int16     `json:"rating,omitempty"`

	AcknowledgedByStudent  bool       `json:"acknowledgedByStudent"`
	AcknowledgedStudentAt  *time.Time `json:"acknowledgedStudentAt,omitempty"`
	AcknowledgedByEmployee bool       `json:"acknowledgedByEmployee"`
	AcknowledgedEmployeeAt *time.Time `json:"acknowledgedEmployeeAt,omitempty"`

	ReopenHistory ReopenLog `json:"-"`
	CreatedAt     time.Time `json:"createdAt"`

	// Owner attributes hydrated by the repository join; scoping reads
	// these, never request parameters.
	OwnerDepartment string    `json:"-"`
	OwnerRole       auth.Role `json:"-"`
	OwnerEmail      string    `json:"-"`
}

func (c *Complaint) IsResolved() bool {
	return c.Status == StatusResolved
}

func FromDataModel(row *complaintDatamodel.Complaint) *Complaint {
	status, _ := ParseStatus(row.Status)
	return &Complaint{
		ID:                     row.ID,
		ComplaintCode:          row.ComplaintCode,
		OwnerID:                row.UserID,
		Subject:                row.Subject,
		Content:                row.Content,
		Status:                 status,
		Acknowledgment:         row.Acknowledgment,
		ResolvedBy:             row.ResolvedBy,
		ResolvedAt:             row.ResolvedAt,
		Rating:                 row.Rating,
		AcknowledgedByStudent:  row.AcknowledgedByStudent,
		AcknowledgedStudentAt:  row.AcknowledgedStudentAt,
		AcknowledgedByEmployee: row.AcknowledgedByEmployee,
		AcknowledgedEmployeeAt: row.AcknowledgedEmployeeAt,
		CreatedAt:              row.CreatedAt,
	}
}

func ReopenEventFromDataModel(row *complaintDatamodel.ReopenEvent) ReopenEvent {
	status, _ := ParseStatus(row.PreviousStatus)
	return ReopenEvent{
		PreviousStatus: status,
		ReopenRemarks:  row.ReopenRemarks,
		ReopenedBy:     row.ReopenedBy,
		ReopenedAt:     row.ReopenedAt,
	}
}
