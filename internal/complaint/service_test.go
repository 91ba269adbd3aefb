package complaint

import (
	"context"
	"fmt"
	"testing"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/auth"
	"github.com/campuscare/grievance-management/internal/core/events"
	"github.com/campuscare/grievance-management/pkg/logger"
)

func TestComplaint(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "Complaint Module Suite")
}

// mockComplaintRepo keeps complaints in memory with the same conditional
// update semantics as the SQL implementation.
type mockComplaintRepo struct {
	complaints map[int64]*Complaint
	reopens    map[int64][]ReopenEvent
	nextID     int64
}

func newMockComplaintRepo() *mockComplaintRepo {
	return &mockComplaintRepo{
		complaints: make(map[int64]*Complaint),
		reopens:    make(map[int64][]ReopenEvent),
	}
}

func (m *mockComplaintRepo) Create(_ context.Context, c *Complaint) error {
	m.nextID++
	c.ID = m.nextID
	c.ComplaintCode = fmt.Sprintf("GRV-%d-%05d", c.CreatedAt.Year(), c.ID)
	copied := *c
	m.complaints[c.ID] = &copied
	return nil
}

func (m *mockComplaintRepo) GetByID(_ context.Context, id int64) (*Complaint, error) {
	c, ok := m.complaints[id]
	if !ok {
		return nil, internal.ErrComplaintNotFound
	}
	copied := *c
	return &copied, nil
}

func (m *mockComplaintRepo) List(_ context.Context, scope auth.Scope, limit, offset int) ([]*Complaint, error) {
	var out []*Complaint
	for id := int64(1); id <= m.nextID; id++ {
		c, ok := m.complaints[id]
		if !ok || !scope.Covers(c.OwnerID, c.OwnerDepartment) {
			continue
		}
		copied := *c
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockComplaintRepo) UpdateStatusCAS(_ context.Context, id int64, expected, next Status, resolve *ResolveParams) (bool, error) {
	c, ok := m.complaints[id]
	if !ok || c.Status != expected {
		return false, nil
	}
	c.Status = next
	if resolve != nil {
		c.Acknowledgment = resolve.Acknowledgment
		c.ResolvedBy = &resolve.ResolvedBy
		at := resolve.ResolvedAt
		c.ResolvedAt = &at
	}
	return true, nil
}

func (m *mockComplaintRepo) SetRatingCAS(_ context.Context, id int64, rating int16) (bool, error) {
	c, ok := m.complaints[id]
	if !ok || c.Status != StatusResolved || c.Rating != nil {
		return false, nil
	}
	c.Rating = &rating
	return true, nil
}

func (m *mockComplaintRepo) SetOwnerAcknowledged(_ context.Context, id int64, role auth.Role, at time.Time) error {
	c, ok := m.complaints[id]
	if !ok || c.Status != StatusResolved {
		return internal.ErrInvalidState
	}
	switch role {
	case auth.RoleStudent:
		c.AcknowledgedByStudent = true
		c.AcknowledgedStudentAt = &at
	case auth.RoleEmployee:
		c.AcknowledgedByEmployee = true
		c.AcknowledgedEmployeeAt = &at
	default:
		return internal.ErrForbidden
	}
	return nil
}

func (m *mockComplaintRepo) AppendReopen(_ context.Context, id int64, event ReopenEvent, clearFeedback bool) (bool, error) {
	c, ok := m.complaints[id]
	if !ok || c.Status != StatusResolved {
		return false, nil
	}
	c.Status = StatusUnderReview
	if clearFeedback {
		c.Rating = nil
		c.AcknowledgedByStudent = false
		c.AcknowledgedStudentAt = nil
		c.AcknowledgedByEmployee = false
		c.AcknowledgedEmployeeAt = nil
	}
	m.reopens[id] = append(m.reopens[id], event)
	return true, nil
}

func (m *mockComplaintRepo) ListReopenEvents(_ context.Context, id int64) ([]ReopenEvent, error) {
	entries := m.reopens[id]
	copied := make([]ReopenEvent, len(entries))
	copy(copied, entries)
	return copied, nil
}

type recordingPublisher struct {
	published []events.Event
}

func (p *recordingPublisher) Publish(_ context.Context, event events.Event) error {
	p.published = append(p.published, event)
	return nil
}

func (p *recordingPublisher) typesSeen() []string {
	out := make([]string, len(p.published))
	for i, e := range p.published {
		out[i] = e.EventType()
	}
	return out
}

var validContent = "The projector in lecture hall B has been broken for two weeks now despite repeated requests."

var _ = Describe("ComplaintService", func() {
	var (
		service *Service
		repo    *mockComplaintRepo
		bus     *recordingPublisher
		ctx     context.Context

		admin     *auth.User
		subAdmin  *auth.User
		student   *auth.User
		employee  *auth.User
		outsider  *auth.User
		otherDept *auth.User
	)

	newService := func(clearFeedback bool) *Service {
		return NewService(repo, bus, Config{ClearFeedbackOnReopen: clearFeedback}, logger.L())
	}

	submitAs := func(owner *auth.User) *ComplaintView {
		view, err := service.Submit(ctx, owner, SubmitComplaintDTO{
			Subject: "Broken projector",
			Content: validContent,
		})
		Expect(err).To(BeNil())
		return view
	}

	resolveAs := func(actor *auth.User, id int64) *ComplaintView {
		view, err := service.UpdateStatus(ctx, actor, id, UpdateStatusDTO{
			Status:         string(StatusResolved),
			Acknowledgment: "Projector replaced by facilities.",
		})
		Expect(err).To(BeNil())
		return view
	}

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockComplaintRepo()
		bus = &recordingPublisher{}

		admin = &auth.User{ID: 1, Email: "admin@campus.local", Role: auth.RoleAdmin}
		subAdmin = &auth.User{ID: 2, Email: "sub@campus.local", Role: auth.RoleSubAdmin, Department: "Physics"}
		student = &auth.User{ID: 3, Email: "stu@campus.local", Role: auth.RoleStudent, Department: "Physics"}
		employee = &auth.User{ID: 4, Email: "emp@campus.local", Role: auth.RoleEmployee, Department: "Library"}
		outsider = &auth.User{ID: 5, Email: "other@campus.local", Role: auth.RoleStudent, Department: "Physics"}
		otherDept = &auth.User{ID: 6, Email: "math@campus.local", Role: auth.RoleSubAdmin, Department: "Mathematics"}

		service = newService(false)
	})

	Describe("Submit", func() {
		It("files a complaint in SUBMITTED with a public code", func() {
			view := submitAs(student)

			Expect(view.Status).To(Equal(StatusSubmitted))
			Expect(view.ComplaintCode).To(HavePrefix("GRV-"))
			Expect(view.OwnerID).To(Equal(student.ID))
		})

		It("rejects staff as complainants", func() {
			_, err := service.Submit(ctx, admin, SubmitComplaintDTO{Subject: "Broken projector", Content: validContent})
			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("rejects a short subject", func() {
			_, err := service.Submit(ctx, student, SubmitComplaintDTO{Subject: "Bad", Content: validContent})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("rejects content under the word floor", func() {
			_, err := service.Submit(ctx, student, SubmitComplaintDTO{Subject: "Broken projector", Content: "too few words here"})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("UpdateStatus", func() {
		var id int64

		BeforeEach(func() {
			id = submitAs(student).ID
		})

		It("walks the forward path", func() {
			view, err := service.UpdateStatus(ctx, admin, id, UpdateStatusDTO{Status: string(StatusRead)})
			Expect(err).To(BeNil())
			Expect(view.Status).To(Equal(StatusRead))

			view, err = service.UpdateStatus(ctx, admin, id, UpdateStatusDTO{Status: string(StatusUnderReview)})
			Expect(err).To(BeNil())
			Expect(view.Status).To(Equal(StatusUnderReview))
		})

		It("allows skipping intermediate steps", func() {
			view := resolveAs(admin, id)

			Expect(view.Status).To(Equal(StatusResolved))
			Expect(view.Acknowledgment).To(ContainSubstring("facilities"))
			Expect(view.ResolvedBy).ToNot(BeNil())
			Expect(*view.ResolvedBy).To(Equal(admin.ID))
		})

		It("never walks backward", func() {
			_, err := service.UpdateStatus(ctx, admin, id, UpdateStatusDTO{Status: string(StatusUnderReview)})
			Expect(err).To(BeNil())

			_, err = service.UpdateStatus(ctx, admin, id, UpdateStatusDTO{Status: string(StatusRead)})
			Expect(err).To(Equal(internal.ErrInvalidState))
		})

		It("reports resolved complaints distinctly", func() {
			resolveAs(admin, id)

			_, err := service.UpdateStatus(ctx, admin, id, UpdateStatusDTO{Status: string(StatusUnderReview)})
			Expect(err).To(Equal(internal.ErrAlreadyResolved))
		})

		It("requires an acknowledgment to resolve", func() {
			_, err := service.UpdateStatus(ctx, admin, id, UpdateStatusDTO{Status: string(StatusResolved), Acknowledgment: "   "})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("publishes a resolution event", func() {
			resolveAs(admin, id)
			Expect(bus.typesSeen()).To(ContainElement(events.EventTypeComplaintResolved))
		})

		It("confines sub-admins to their department", func() {
			// student is in Physics; subAdmin matches, otherDept does not.
			_, err := service.UpdateStatus(ctx, otherDept, id, UpdateStatusDTO{Status: string(StatusRead)})
			Expect(err).To(Equal(internal.ErrForbidden))

			view, err := service.UpdateStatus(ctx, subAdmin, id, UpdateStatusDTO{Status: string(StatusRead)})
			Expect(err).To(BeNil())
			Expect(view.Status).To(Equal(StatusRead))
		})

		It("denies owners the status write entirely", func() {
			_, err := service.UpdateStatus(ctx, student, id, UpdateStatusDTO{Status: string(StatusRead)})
			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("Rate", func() {
		var id int64

		BeforeEach(func() {
			id = submitAs(student).ID
		})

		It("requires a resolved complaint", func() {
			err := service.Rate(ctx, student, id, RateComplaintDTO{Rating: 4})
			Expect(err).To(Equal(internal.ErrInvalidState))
		})

		It("stores the owner's rating exactly once", func() {
			resolveAs(admin, id)

			Expect(service.Rate(ctx, student, id, RateComplaintDTO{Rating: 4})).To(BeNil())

			err := service.Rate(ctx, student, id, RateComplaintDTO{Rating: 5})
			Expect(err).To(Equal(internal.ErrAlreadyRated))

			view, gerr := service.Get(ctx, student, id)
			Expect(gerr).To(BeNil())
			Expect(*view.Rating).To(Equal(int16(4)))
		})

		It("rejects out-of-range ratings", func() {
			resolveAs(admin, id)

			for _, r := range []int64{0, 6, -1} {
				err := service.Rate(ctx, student, id, RateComplaintDTO{Rating: r})
				appErr, ok := internal.IsAppError(err)
				Expect(ok).To(BeTrue())
				Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
			}
		})

		It("rejects anyone but the owner", func() {
			resolveAs(admin, id)

			err := service.Rate(ctx, outsider, id, RateComplaintDTO{Rating: 3})
			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("AcknowledgeResolution", func() {
		It("records the owner's acknowledgment per role and stays idempotent", func() {
			studentID := submitAs(student).ID
			employeeID := submitAs(employee).ID
			resolveAs(admin, studentID)
			resolveAs(admin, employeeID)

			Expect(service.AcknowledgeResolution(ctx, student, studentID)).To(BeNil())
			Expect(service.AcknowledgeResolution(ctx, student, studentID)).To(BeNil())
			Expect(service.AcknowledgeResolution(ctx, employee, employeeID)).To(BeNil())

			studentView, _ := service.Get(ctx, student, studentID)
			Expect(studentView.AcknowledgedByStudent).To(BeTrue())
			Expect(studentView.AcknowledgedByEmployee).To(BeFalse())

			employeeView, _ := service.Get(ctx, employee, employeeID)
			Expect(employeeView.AcknowledgedByEmployee).To(BeTrue())
		})

		It("requires a resolved complaint", func() {
			id := submitAs(student).ID
			err := service.AcknowledgeResolution(ctx, student, id)
			Expect(err).To(Equal(internal.ErrInvalidState))
		})

		It("rejects non-owners", func() {
			id := submitAs(student).ID
			resolveAs(admin, id)

			err := service.AcknowledgeResolution(ctx, outsider, id)
			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("Reopen", func() {
		var id int64

		BeforeEach(func() {
			id = submitAs(student).ID
		})

		It("moves a resolved complaint back to UNDER_REVIEW with a history entry", func() {
			resolveAs(admin, id)

			view, err := service.Reopen(ctx, admin, id, ReopenComplaintDTO{Remarks: "Projector failed again"})

			Expect(err).To(BeNil())
			Expect(view.Status).To(Equal(StatusUnderReview))
			Expect(view.ReopenHistory).To(HaveLen(1))
			Expect(view.ReopenHistory[0].PreviousStatus).To(Equal(StatusResolved))
			Expect(view.ReopenHistory[0].ReopenRemarks).To(Equal("Projector failed again"))
			Expect(view.ReopenHistory[0].ReopenedBy).To(Equal(admin.ID))
		})

		It("only applies to resolved complaints", func() {
			_, err := service.Reopen(ctx, admin, id, ReopenComplaintDTO{Remarks: "nope"})
			Expect(err).To(Equal(internal.ErrInvalidState))
		})

		It("requires remarks", func() {
			resolveAs(admin, id)

			_, err := service.Reopen(ctx, admin, id, ReopenComplaintDTO{})
			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})

		It("publishes a reopen event", func() {
			resolveAs(admin, id)

			_, err := service.Reopen(ctx, admin, id, ReopenComplaintDTO{Remarks: "recheck"})
			Expect(err).To(BeNil())
			Expect(bus.typesSeen()).To(ContainElement(events.EventTypeComplaintReopened))
		})

		It("accumulates history across repeated reopen cycles", func() {
			resolveAs(admin, id)
			_, err := service.Reopen(ctx, admin, id, ReopenComplaintDTO{Remarks: "first relapse"})
			Expect(err).To(BeNil())

			resolveAs(admin, id)
			view, err := service.Reopen(ctx, admin, id, ReopenComplaintDTO{Remarks: "second relapse"})
			Expect(err).To(BeNil())

			Expect(view.ReopenHistory).To(HaveLen(2))
			Expect(view.ReopenHistory[0].ReopenRemarks).To(Equal("first relapse"))
			Expect(view.ReopenHistory[1].ReopenRemarks).To(Equal("second relapse"))
		})

		Context("with clear_feedback_on_reopen disabled (default)", func() {
			It("keeps the prior rating and acknowledgment", func() {
				resolveAs(admin, id)
				Expect(service.Rate(ctx, student, id, RateComplaintDTO{Rating: 2})).To(BeNil())
				Expect(service.AcknowledgeResolution(ctx, student, id)).To(BeNil())

				view, err := service.Reopen(ctx, admin, id, ReopenComplaintDTO{Remarks: "recheck"})

				Expect(err).To(BeNil())
				Expect(view.Rating).ToNot(BeNil())
				Expect(*view.Rating).To(Equal(int16(2)))
				Expect(view.AcknowledgedByStudent).To(BeTrue())
			})
		})

		Context("with clear_feedback_on_reopen enabled", func() {
			BeforeEach(func() {
				service = newService(true)
			})

			It("wipes the rating and acknowledgment tied to the prior resolution", func() {
				resolveAs(admin, id)
				Expect(service.Rate(ctx, student, id, RateComplaintDTO{Rating: 2})).To(BeNil())
				Expect(service.AcknowledgeResolution(ctx, student, id)).To(BeNil())

				view, err := service.Reopen(ctx, admin, id, ReopenComplaintDTO{Remarks: "recheck"})

				Expect(err).To(BeNil())
				Expect(view.Rating).To(BeNil())
				Expect(view.AcknowledgedByStudent).To(BeFalse())
			})
		})
	})

	Describe("Get and List scoping", func() {
		var physicsID, libraryID int64

		BeforeEach(func() {
			physicsID = submitAs(student).ID
			libraryID = submitAs(employee).ID
		})

		It("lets owners see only their own complaints", func() {
			_, err := service.Get(ctx, student, physicsID)
			Expect(err).To(BeNil())

			_, err = service.Get(ctx, student, libraryID)
			Expect(err).To(Equal(internal.ErrForbidden))

			views, err := service.List(ctx, student, 50, 0)
			Expect(err).To(BeNil())
			Expect(views).To(HaveLen(1))
			Expect(views[0].ID).To(Equal(physicsID))
		})

		It("lets sub-admins see their department only", func() {
			views, err := service.List(ctx, subAdmin, 50, 0)
			Expect(err).To(BeNil())
			Expect(views).To(HaveLen(1))
			Expect(views[0].ID).To(Equal(physicsID))

			_, err = service.Get(ctx, subAdmin, libraryID)
			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("lets admins see everything", func() {
			views, err := service.List(ctx, admin, 50, 0)
			Expect(err).To(BeNil())
			Expect(views).To(HaveLen(2))
		})
	})

	Describe("full lifecycle", func() {
		It("runs submit through reopen and re-resolution", func() {
			id := submitAs(student).ID

			_, err := service.UpdateStatus(ctx, subAdmin, id, UpdateStatusDTO{Status: string(StatusRead)})
			Expect(err).To(BeNil())
			_, err = service.UpdateStatus(ctx, subAdmin, id, UpdateStatusDTO{Status: string(StatusUnderReview)})
			Expect(err).To(BeNil())

			resolveAs(subAdmin, id)
			Expect(service.Rate(ctx, student, id, RateComplaintDTO{Rating: 1})).To(BeNil())

			_, err = service.Reopen(ctx, subAdmin, id, ReopenComplaintDTO{Remarks: "student disputes the fix"})
			Expect(err).To(BeNil())

			final := resolveAs(subAdmin, id)
			Expect(final.Status).To(Equal(StatusResolved))
			Expect(final.ReopenHistory).To(HaveLen(1))

			Expect(service.AcknowledgeResolution(ctx, student, id)).To(BeNil())
		})
	})
})
