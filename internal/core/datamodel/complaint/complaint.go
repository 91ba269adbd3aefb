package complaint

import "time"

// Complaint is the persistence model for the complaints table. Rows are
// never deleted; the reopen trail lives in complaint_reopen_events.
type Complaint struct {
	ID                      int64      `gorm:"primaryKey"`
	ComplaintCode           string     `gorm:"column:complaint_code;uniqueIndex;not null"`
	UserID                  int64      `gorm:"column:user_id;not null;index"`
	Subject                 string     `gorm:"not null"`
	Content                 string     `gorm:"not null"`
	Status                  string     `gorm:"not null;default:SUBMITTED"`
	Acknowledgment          string     `gorm:"column:acknowledgment"`
	ResolvedBy              *int64     `gorm:"column:resolved_by"`
	ResolvedAt              *time.Time `gorm:"column:resolved_at"`
	Rating                  *int16     `gorm:"column:rating"`
	AcknowledgedByStudent   bool       `gorm:"column:acknowledged_by_student;not null;default:false"`
	AcknowledgedStudentAt   *time.Time `gorm:"column:acknowledged_student_at"`
	AcknowledgedByEmployee  bool       `gorm:"column:acknowledged_by_employee;not null;default:false"`
	AcknowledgedEmployeeAt  *time.Time `gorm:"column:acknowledged_employee_at"`
	CreatedAt               time.Time  `gorm:"column:created_at"`
	UpdatedAt               time.Time  `gorm:"column:updated_at"`
}

func (Complaint) TableName() string {
	return "complaints"
}

// ReopenEvent is an append-only record; the repository exposes insert and
// list operations only.
type ReopenEvent struct {
	ID             int64     `gorm:"primaryKey"`
	ComplaintID    int64     `gorm:"column:complaint_id;not null;index"`
	PreviousStatus string    `gorm:"column:previous_status;not null"`
	ReopenRemarks  string    `gorm:"column:reopen_remarks;not null"`
	ReopenedBy     int64     `gorm:"column:reopened_by;not null"`
	ReopenedAt     time.Time `gorm:"column:reopened_at;not null"`
}

func (ReopenEvent) TableName() string {
	return "complaint_reopen_events"
}
