package auth

import (
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"

	"github.com/campuscare/grievance-management/internal"
)

var _ = ginkgo.Describe("Authorize", func() {
	admin := &User{ID: 10, Role: RoleAdmin}
	subAdmin := &User{ID: 11, Role: RoleSubAdmin, Department: "Library"}
	employee := &User{ID: 12, Role: RoleEmployee, Department: "Library"}
	student := &User{ID: 13, Role: RoleStudent, Department: "Physics"}

	ginkgo.It("grants admins an unrestricted scope for every action", func() {
		for _, action := range []Action{ActionReadAll, ActionReadDepartment, ActionReadOwn, ActionWriteStatus, ActionWriteUser} {
			scope, err := Authorize(admin, action)
			gomega.Expect(err).To(gomega.BeNil())
			gomega.Expect(scope.Kind).To(gomega.Equal(ScopeAll))
		}
	})

	ginkgo.It("confines sub-admin writes to their own department", func() {
		scope, err := Authorize(subAdmin, ActionWriteStatus)

		gomega.Expect(err).To(gomega.BeNil())
		gomega.Expect(scope.Kind).To(gomega.Equal(ScopeDepartment))
		gomega.Expect(scope.Department).To(gomega.Equal("Library"))
	})

	ginkgo.It("denies sub-admins a global read", func() {
		_, err := Authorize(subAdmin, ActionReadAll)
		gomega.Expect(err).To(gomega.Equal(internal.ErrForbidden))
	})

	ginkgo.It("gives students and employees an own-records scope only", func() {
		for _, actor := range []*User{employee, student} {
			scope, err := Authorize(actor, ActionReadOwn)
			gomega.Expect(err).To(gomega.BeNil())
			gomega.Expect(scope.Kind).To(gomega.Equal(ScopeOwn))
			gomega.Expect(scope.UserID).To(gomega.Equal(actor.ID))

			for _, action := range []Action{ActionReadDepartment, ActionReadAll, ActionWriteStatus, ActionWriteUser} {
				_, err := Authorize(actor, action)
				gomega.Expect(err).To(gomega.Equal(internal.ErrForbidden))
			}
		}
	})

	ginkgo.It("rejects a missing actor", func() {
		_, err := Authorize(nil, ActionReadOwn)

		appErr, ok := internal.IsAppError(err)
		gomega.Expect(ok).To(gomega.BeTrue())
		gomega.Expect(appErr.Type).To(gomega.Equal(internal.ErrorTypeUnauthenticated))
	})
})

var _ = ginkgo.Describe("Scope.Covers", func() {
	ginkgo.It("covers everything for the all scope", func() {
		gomega.Expect(Scope{Kind: ScopeAll}.Covers(99, "Anywhere")).To(gomega.BeTrue())
	})

	ginkgo.It("matches department scope on the owner's department only", func() {
		scope := Scope{Kind: ScopeDepartment, Department: "Library"}

		gomega.Expect(scope.Covers(99, "Library")).To(gomega.BeTrue())
		gomega.Expect(scope.Covers(99, "Physics")).To(gomega.BeFalse())
	})

	ginkgo.It("never matches an empty department", func() {
		scope := Scope{Kind: ScopeDepartment, Department: ""}
		gomega.Expect(scope.Covers(99, "")).To(gomega.BeFalse())
	})

	ginkgo.It("matches own scope on the owner id", func() {
		scope := Scope{Kind: ScopeOwn, UserID: 13}

		gomega.Expect(scope.Covers(13, "Physics")).To(gomega.BeTrue())
		gomega.Expect(scope.Covers(14, "Physics")).To(gomega.BeFalse())
	})
})

var _ = ginkgo.Describe("CanManageUser", func() {
	admin := &User{ID: 10, Role: RoleAdmin}
	subAdmin := &User{ID: 11, Role: RoleSubAdmin, Department: "Library"}
	employee := &User{ID: 12, Role: RoleEmployee, Department: "Library"}

	ginkgo.It("lets admins manage any non-admin account", func() {
		gomega.Expect(CanManageUser(admin, RoleSubAdmin, "Library")).To(gomega.BeNil())
		gomega.Expect(CanManageUser(admin, RoleEmployee, "Physics")).To(gomega.BeNil())
		gomega.Expect(CanManageUser(admin, RoleStudent, "")).To(gomega.BeNil())
	})

	ginkgo.It("stops admins from managing other admins", func() {
		gomega.Expect(CanManageUser(admin, RoleAdmin, "")).To(gomega.Equal(internal.ErrForbidden))
	})

	ginkgo.It("lets sub-admins manage employees in their department only", func() {
		gomega.Expect(CanManageUser(subAdmin, RoleEmployee, "Library")).To(gomega.BeNil())
		gomega.Expect(CanManageUser(subAdmin, RoleEmployee, "Physics")).To(gomega.Equal(internal.ErrDepartmentMismatch))
		gomega.Expect(CanManageUser(subAdmin, RoleStudent, "Library")).To(gomega.Equal(internal.ErrForbidden))
		gomega.Expect(CanManageUser(subAdmin, RoleSubAdmin, "Library")).To(gomega.Equal(internal.ErrForbidden))
	})

	ginkgo.It("denies employees and students entirely", func() {
		gomega.Expect(CanManageUser(employee, RoleStudent, "Library")).To(gomega.Equal(internal.ErrForbidden))
	})
})
