package user

import (
	"context"
	"testing"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuscare/grievance-management/internal"
	"github.com/campuscare/grievance-management/internal/auth"
	"github.com/campuscare/grievance-management/internal/core/events"
	"github.com/campuscare/grievance-management/pkg/logger"
)

func TestUser(t *testing.T) {
	RegisterFailHandler(Fail)
	RunSpecs(t, "User Module Suite")
}

type mockUserRepo struct {
	users    map[int64]*auth.User
	byEmail  map[string]int64
	hashes   map[int64]string
	nextID   int64
	failWith error
}

func newMockUserRepo() *mockUserRepo {
	return &mockUserRepo{
		users:   make(map[int64]*auth.User),
		byEmail: make(map[string]int64),
		hashes:  make(map[int64]string),
	}
}

func (m *mockUserRepo) Create(_ context.Context, u *auth.User, passwordHash string) error {
	if m.failWith != nil {
		return m.failWith
	}
	if _, exists := m.byEmail[u.Email]; exists {
		return internal.ErrDuplicateEmail
	}
	m.nextID++
	u.ID = m.nextID
	copied := *u
	m.users[u.ID] = &copied
	m.byEmail[u.Email] = u.ID
	m.hashes[u.ID] = passwordHash
	return nil
}

func (m *mockUserRepo) GetByID(_ context.Context, id int64) (*auth.User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, internal.ErrUserNotFound
	}
	copied := *u
	return &copied, nil
}

func (m *mockUserRepo) List(_ context.Context, scope auth.Scope, limit, offset int) ([]*auth.User, error) {
	var out []*auth.User
	for id := int64(1); id <= m.nextID; id++ {
		u, ok := m.users[id]
		if !ok {
			continue
		}
		switch scope.Kind {
		case auth.ScopeDepartment:
			if u.Department != scope.Department || u.Role != auth.RoleEmployee {
				continue
			}
		case auth.ScopeOwn:
			if u.ID != scope.UserID {
				continue
			}
		}
		copied := *u
		out = append(out, &copied)
	}
	return out, nil
}

func (m *mockUserRepo) Update(_ context.Context, id int64, fields map[string]interface{}) error {
	u, ok := m.users[id]
	if !ok {
		return internal.ErrUserNotFound
	}
	if v, ok := fields["name"].(string); ok {
		u.Name = v
	}
	if v, ok := fields["department"].(string); ok {
		u.Department = v
	}
	if v, ok := fields["college"].(string); ok {
		u.College = v
	}
	if v, ok := fields["is_active"].(bool); ok {
		u.IsActive = v
	}
	return nil
}

func (m *mockUserRepo) Deactivate(_ context.Context, id int64) error {
	return m.Update(context.Background(), id, map[string]interface{}{"is_active": false})
}

type capturingPublisher struct {
	published []events.Event
}

func (p *capturingPublisher) Publish(_ context.Context, event events.Event) error {
	p.published = append(p.published, event)
	return nil
}

var _ = Describe("UserService", func() {
	var (
		service *Service
		repo    *mockUserRepo
		bus     *capturingPublisher
		ctx     context.Context

		admin    *auth.User
		subAdmin *auth.User
	)

	BeforeEach(func() {
		ctx = context.Background()
		repo = newMockUserRepo()
		bus = &capturingPublisher{}
		service = NewService(repo, bus, Config{BCryptCost: bcrypt.MinCost}, logger.L())

		admin = &auth.User{ID: 100, Role: auth.RoleAdmin}
		subAdmin = &auth.User{ID: 101, Role: auth.RoleSubAdmin, Department: "Library"}
	})

	Describe("Create", func() {
		It("provisions an account in the forced-password-change state", func() {
			created, err := service.Create(ctx, admin, CreateUserDTO{
				Email:      "new@campus.local",
				Name:       "New Student",
				Role:       "STUDENT",
				Department: "Physics",
			})

			Expect(err).To(BeNil())
			Expect(created.ID).To(BeNumerically(">", 0))
			Expect(created.ForcePasswordChange).To(BeTrue())
			Expect(created.IsActive).To(BeTrue())
		})

		It("publishes a credential-delivery event carrying a policy-compliant temp password", func() {
			_, err := service.Create(ctx, admin, CreateUserDTO{
				Email: "new@campus.local", Name: "New Student", Role: "STUDENT", Department: "Physics",
			})
			Expect(err).To(BeNil())
			Expect(bus.published).To(HaveLen(1))

			event, ok := bus.published[0].(*events.UserCreatedEvent)
			Expect(ok).To(BeTrue())
			Expect(event.TempPassword).ToNot(BeEmpty())
			Expect(auth.ValidatePasswordPolicy(event.TempPassword, 8)).To(BeNil())

			// The stored hash matches the delivered password.
			storedHash := repo.hashes[event.UserID]
			Expect(bcrypt.CompareHashAndPassword([]byte(storedHash), []byte(event.TempPassword))).To(Succeed())
		})

		It("requires a department for every role except admin", func() {
			_, err := service.Create(ctx, admin, CreateUserDTO{
				Email: "emp@campus.local", Name: "Employee", Role: "EMPLOYEE",
			})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))

			_, err = service.Create(ctx, admin, CreateUserDTO{
				Email: "boss@campus.local", Name: "Another Admin", Role: "ADMIN",
			})
			Expect(err).To(Equal(internal.ErrForbidden))
		})

		It("reports duplicate emails as a conflict", func() {
			dto := CreateUserDTO{Email: "dup@campus.local", Name: "Duplicate", Role: "STUDENT", Department: "Physics"}

			_, err := service.Create(ctx, admin, dto)
			Expect(err).To(BeNil())

			_, err = service.Create(ctx, admin, dto)
			Expect(err).To(Equal(internal.ErrDuplicateEmail))
		})

		It("lets sub-admins create employees in their own department only", func() {
			_, err := service.Create(ctx, subAdmin, CreateUserDTO{
				Email: "lib@campus.local", Name: "Librarian", Role: "EMPLOYEE", Department: "Library",
			})
			Expect(err).To(BeNil())

			_, err = service.Create(ctx, subAdmin, CreateUserDTO{
				Email: "phy@campus.local", Name: "Physicist", Role: "EMPLOYEE", Department: "Physics",
			})
			Expect(err).To(Equal(internal.ErrDepartmentMismatch))

			_, err = service.Create(ctx, subAdmin, CreateUserDTO{
				Email: "stu@campus.local", Name: "Student", Role: "STUDENT", Department: "Library",
			})
			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("BulkCreate", func() {
		It("keeps going past failed rows and reports both outcomes", func() {
			result, err := service.BulkCreate(ctx, admin, BulkCreateUsersDTO{Users: []CreateUserDTO{
				{Email: "a@campus.local", Name: "Alpha", Role: "STUDENT", Department: "Physics"},
				{Email: "bad-email", Name: "Broken", Role: "STUDENT", Department: "Physics"},
				{Email: "a@campus.local", Name: "Duplicate", Role: "STUDENT", Department: "Physics"},
				{Email: "b@campus.local", Name: "Beta", Role: "EMPLOYEE", Department: "Library"},
			}})

			Expect(err).To(BeNil())
			Expect(result.Created).To(HaveLen(2))
			Expect(result.Failed).To(HaveLen(2))
			Expect(result.Failed[0].Email).To(Equal("bad-email"))
			Expect(result.Failed[1].Email).To(Equal("a@campus.local"))
		})

		It("rejects an empty batch", func() {
			_, err := service.BulkCreate(ctx, admin, BulkCreateUsersDTO{})

			appErr, ok := internal.IsAppError(err)
			Expect(ok).To(BeTrue())
			Expect(appErr.Type).To(Equal(internal.ErrorTypeValidation))
		})
	})

	Describe("Update", func() {
		var employeeID int64

		BeforeEach(func() {
			created, err := service.Create(ctx, admin, CreateUserDTO{
				Email: "emp@campus.local", Name: "Employee", Role: "EMPLOYEE", Department: "Library",
			})
			Expect(err).To(BeNil())
			employeeID = created.ID
		})

		It("applies partial edits", func() {
			newName := "Renamed Employee"
			updated, err := service.Update(ctx, admin, employeeID, UpdateUserDTO{Name: &newName})

			Expect(err).To(BeNil())
			Expect(updated.Name).To(Equal(newName))
			Expect(updated.Department).To(Equal("Library"))
		})

		It("stops sub-admins from moving employees out of their department", func() {
			other := "Physics"
			_, err := service.Update(ctx, subAdmin, employeeID, UpdateUserDTO{Department: &other})
			Expect(err).To(Equal(internal.ErrDepartmentMismatch))
		})

		It("denies managing accounts outside the caller's policy", func() {
			created, err := service.Create(ctx, admin, CreateUserDTO{
				Email: "stu@campus.local", Name: "Student", Role: "STUDENT", Department: "Physics",
			})
			Expect(err).To(BeNil())

			name := "Hijacked"
			_, err = service.Update(ctx, subAdmin, created.ID, UpdateUserDTO{Name: &name})
			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("Deactivate", func() {
		It("disables the account without removing it", func() {
			created, err := service.Create(ctx, admin, CreateUserDTO{
				Email: "emp@campus.local", Name: "Employee", Role: "EMPLOYEE", Department: "Library",
			})
			Expect(err).To(BeNil())

			Expect(service.Deactivate(ctx, admin, created.ID)).To(BeNil())

			stored, err := repo.GetByID(ctx, created.ID)
			Expect(err).To(BeNil())
			Expect(stored.IsActive).To(BeFalse())
		})
	})

	Describe("List", func() {
		BeforeEach(func() {
			for _, dto := range []CreateUserDTO{
				{Email: "lib1@campus.local", Name: "Librarian One", Role: "EMPLOYEE", Department: "Library"},
				{Email: "phy1@campus.local", Name: "Physicist One", Role: "EMPLOYEE", Department: "Physics"},
				{Email: "stu1@campus.local", Name: "Student One", Role: "STUDENT", Department: "Library"},
			} {
				_, err := service.Create(ctx, admin, dto)
				Expect(err).To(BeNil())
			}
		})

		It("gives admins the full roster", func() {
			users, err := service.List(ctx, admin, 50, 0)
			Expect(err).To(BeNil())
			Expect(users).To(HaveLen(3))
		})

		It("gives sub-admins only their department's employees", func() {
			users, err := service.List(ctx, subAdmin, 50, 0)
			Expect(err).To(BeNil())
			Expect(users).To(HaveLen(1))
			Expect(users[0].Email).To(Equal("lib1@campus.local"))
		})

		It("denies students", func() {
			student := &auth.User{ID: 200, Role: auth.RoleStudent, Department: "Physics"}
			_, err := service.List(ctx, student, 50, 0)
			Expect(err).To(Equal(internal.ErrForbidden))
		})
	})

	Describe("Get", func() {
		It("lets users read their own record", func() {
			created, err := service.Create(ctx, admin, CreateUserDTO{
				Email: "stu@campus.local", Name: "Student", Role: "STUDENT", Department: "Physics",
			})
			Expect(err).To(BeNil())

			self := &auth.User{ID: created.ID, Role: auth.RoleStudent, Department: "Physics"}
			got, err := service.Get(ctx, self, created.ID)
			Expect(err).To(BeNil())
			Expect(got.Email).To(Equal("stu@campus.local"))
		})

		It("applies the management policy to everyone else", func() {
			created, err := service.Create(ctx, admin, CreateUserDTO{
				Email: "stu@campus.local", Name: "Student", Role: "STUDENT", Department: "Physics",
			})
			Expect(err).To(BeNil())

			_, err = service.Get(ctx, subAdmin, created.ID)
			Expect(err).To(Equal(internal.ErrForbidden))

			_, err = service.Get(ctx, admin, created.ID)
			Expect(err).To(BeNil())
		})
	})
})
