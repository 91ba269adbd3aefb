package complaint

import (
	"strings"

	errors "github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/core/common/validation"
)

const (
	subjectMinLength = 5
	contentMinWords  = 10
	contentMaxWords  = 5000
)

type SubmitComplaintDTO struct {
	Subject string `json:"subject"`
	Content string `json:"content"`
}

func (d SubmitComplaintDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("subject", d.Subject).Required().MinLength(subjectMinLength)
	v.Field("content", d.Content).Required().WordCountBetween(contentMinWords, contentMaxWords)
	return v.Validate()
}

type UpdateStatusDTO struct {
	Status         string `json:"status"`
	Acknowledgment string `json:"acknowledgment,omitempty"`
}

func (d UpdateStatusDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("status", d.Status).Required().
		OneOf(string(StatusRead), string(StatusUnderReview), string(StatusResolved))
	if err := v.Validate(); err != nil {
		return err
	}
	if Status(d.Status) == StatusResolved && strings.TrimSpace(d.Acknowledgment) == "" {
		return errors.NewValidationFieldError("acknowledgment",
			"acknowledgment is required to resolve a complaint", errors.ErrCodeBlankAck)
	}
	return nil
}

type RateComplaintDTO struct {
	Rating int64 `json:"rating"`
}

func (d RateComplaintDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("rating", d.Rating).Required().IntBetween(1, 5)
	return v.Validate()
}

type ReopenComplaintDTO struct {
	Remarks string `json:"remarks"`
}

func (d ReopenComplaintDTO) Validate() *errors.AppError {
	v := validation.NewValidator()
	v.Field("remarks", d.Remarks).Required()
	return v.Validate()
}

// ComplaintView augments the domain record with its reopen trail for
// responses.
type ComplaintView struct {
	*Complaint
	ReopenHistory []ReopenEvent `json:"reopenHistory"`
}

func NewComplaintView(c *Complaint) *ComplaintView {
	return &ComplaintView{
		Complaint:     c,
		ReopenHistory: c.ReopenHistory.Entries(),
	}
}
