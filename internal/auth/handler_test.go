package auth

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"time"

	"github.com/go-chi/chi"
	"github.com/onsi/ginkgo/v2"
	"github.com/onsi/gomega"
	"golang.org/x/crypto/bcrypt"

	"github.com/campuscare/grievance-management/pkg/logger"
)

var _ = ginkgo.Describe("Auth HTTP surface", func() {
	var (
		handler *Handler
		router  *chi.Mux
	)

	okStub := func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}

	do := func(method, path, token string, payload interface{}) *httptest.ResponseRecorder {
		var body *bytes.Reader
		if payload != nil {
			raw, err := json.Marshal(payload)
			gomega.Expect(err).ToNot(gomega.HaveOccurred())
			body = bytes.NewReader(raw)
		} else {
			body = bytes.NewReader(nil)
		}

		req := httptest.NewRequest(method, path, body)
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}

		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	login := func(email string) string {
		w := do(http.MethodPost, "/auth/login", "", LoginDTO{Email: email, Password: "Correct1pass"})
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

		var resp struct {
			Data LoginResult `json:"data"`
		}
		gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
		gomega.Expect(resp.Data.Token).ToNot(gomega.BeEmpty())
		return resp.Data.Token
	}

	ginkgo.BeforeEach(func() {
		repo := newMockAuthRepository()
		cooldown := NewMemoryCooldownStore(15 * time.Minute)
		tokenGen := NewJWTTokenGenerator("handler-suite-secret", time.Hour)

		service := NewService(repo, tokenGen, cooldown, &mockPublisher{}, Config{
			BCryptCost:        bcrypt.MinCost,
			PasswordMinLength: 8,
			CooldownMax:       3,
			ResetTokenTTL:     30 * time.Minute,
		}, logger.L())
		handler = NewHandler(service)

		// Mirrors the production route tree: change-password sits behind the
		// session check only, everything else also behind the forced-change
		// gate and a role gate where applicable.
		router = chi.NewRouter()
		router.Post("/auth/login", handler.Login)
		router.Group(func(r chi.Router) {
			r.Use(handler.AuthMiddleware)
			r.Post("/auth/change-password", handler.ChangePassword)
		})
		router.Group(func(r chi.Router) {
			r.Use(handler.AuthMiddleware)
			r.Use(RequirePasswordChanged)
			r.Get("/complaints", okStub)
			r.Route("/admin", func(ar chi.Router) {
				ar.Use(RequireRole(RoleAdmin))
				ar.Get("/users", okStub)
			})
		})
	})

	ginkgo.It("rejects requests without a bearer token", func() {
		w := do(http.MethodGet, "/complaints", "", nil)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("rejects garbage tokens", func() {
		w := do(http.MethodGet, "/complaints", "not-a-token", nil)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("admits a settled account to protected routes", func() {
		token := login("student@campus.local")

		w := do(http.MethodGet, "/complaints", token, nil)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))
	})

	ginkgo.It("blocks a forced-change account everywhere but the password change", func() {
		token := login("fresh@campus.local")

		w := do(http.MethodGet, "/complaints", token, nil)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))

		w = do(http.MethodPost, "/auth/change-password", token, ChangePasswordDTO{
			CurrentPassword: "Correct1pass",
			NewPassword:     "Brand2newpass",
			ConfirmPassword: "Brand2newpass",
		})
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

		var resp struct {
			Data ChangePasswordResult `json:"data"`
		}
		gomega.Expect(json.NewDecoder(w.Body).Decode(&resp)).To(gomega.Succeed())
		gomega.Expect(resp.Data.Token).ToNot(gomega.BeEmpty())

		// The rotated token passes the gate; the pre-change one no longer
		// authenticates at all.
		w = do(http.MethodGet, "/complaints", resp.Data.Token, nil)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusOK))

		w = do(http.MethodGet, "/complaints", token, nil)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusUnauthorized))
	})

	ginkgo.It("denies roles outside a role gate", func() {
		token := login("student@campus.local")

		w := do(http.MethodGet, "/admin/users", token, nil)
		gomega.Expect(w.Code).To(gomega.Equal(http.StatusForbidden))
	})
})
