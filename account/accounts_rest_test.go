package account_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/account"
	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/assujiar/ugc-business-command-portal-sub003/testinfra"
	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/ginkgo"
	. "github.com/onsi/gomega"
)

var _ = Describe("AccountsRestAPI", func() {
	var (
		router *gin.Engine
		token  string
	)
	BeforeEach(func() {
		router = gin.New()
		router.Use(bizerror.ErrorHandling())
		account.RegisterAccountsRestAPI(router, session.SimpleAuthFilter(), account.ActorFilter())
		token = testinfra.BuildSession(2, "dina").Token
	})
	AfterEach(func() {
		session.RevokeToken(token)
		account.ResolveActorFunc = account.ResolveActor
		account.UpdateRoleFunc = account.UpdateRole
	})

	Describe("HandleMe", func() {
		It("should return the actor with its fresh role", func() {
			var identity session.Identity
			account.ResolveActorFunc = func(ctx context.Context, i session.Identity) (authority.Actor, error) {
				identity = i
				return authority.Actor{ID: i.ID, Name: i.Name, Role: authority.RoleMember}, nil
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"id":"2","name":"dina","role":"member","capabilities":["ticket:access"]}`))
			Expect(identity).To(Equal(session.Identity{ID: 2, Name: "dina"}))
		})

		It("should fail when token is missing or unknown", func() {
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusUnauthorized))
			Expect(body).To(MatchJSON(`{"code":"UNAUTHORIZED","message":"unauthenticated","data":null}`))

			req = httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: "bad token"})
			status, _, _ = testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusUnauthorized))
		})

		It("should fail when the account store is unavailable", func() {
			account.ResolveActorFunc = func(ctx context.Context, i session.Identity) (authority.Actor, error) {
				return authority.Actor{}, &bizerror.ErrDependency{Dependency: "account store", Cause: errors.New("connection refused")}
			}
			req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
			req.Header.Set("Authorization", "Bearer "+token)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusInternalServerError))
			Expect(body).To(MatchJSON(`{"code":"INTERNAL_ERROR","message":"internal error","data":null}`))
		})
	})

	Describe("HandleUpdateRole", func() {
		BeforeEach(func() {
			account.ResolveActorFunc = func(ctx context.Context, i session.Identity) (authority.Actor, error) {
				return authority.Actor{ID: i.ID, Name: i.Name, Role: authority.RoleAdmin}, nil
			}
		})

		It("should update role", func() {
			var captured *account.RoleUpdating
			var target types.ID
			account.UpdateRoleFunc = func(ctx context.Context, id types.ID, u *account.RoleUpdating, actor authority.Actor) (*account.Account, error) {
				captured, target = u, id
				return &account.Account{ID: id, Name: "sam", Role: u.Role, CreateTime: time.Date(2021, 1, 1, 0, 0, 0, 0, time.UTC)}, nil
			}
			req := httptest.NewRequest(http.MethodPut, "/v1/accounts/3/role", strings.NewReader(`{"role":"sales"}`))
			req.Header.Set("Authorization", "Bearer "+token)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusOK))
			Expect(body).To(MatchJSON(`{"id":"3","name":"sam","role":"sales","createTime":"2021-01-01T00:00:00Z"}`))
			Expect(target).To(BeEquivalentTo(3))
			Expect(captured.Role).To(Equal(authority.RoleSales))
		})

		It("should validate request", func() {
			req := httptest.NewRequest(http.MethodPut, "/v1/accounts/x/role", strings.NewReader(`{"role":"sales"}`))
			req.Header.Set("Authorization", "Bearer "+token)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
			Expect(body).To(MatchJSON(`{"code":"VALIDATION_FAILED","message":"invalid id 'x'","data":null}`))

			req = httptest.NewRequest(http.MethodPut, "/v1/accounts/3/role", strings.NewReader(`{"role":"sales","id":"1"}`))
			req.Header.Set("Authorization", "Bearer "+token)
			status, _, _ = testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusBadRequest))
		})

		It("should map forbidden", func() {
			account.UpdateRoleFunc = func(ctx context.Context, id types.ID, u *account.RoleUpdating, actor authority.Actor) (*account.Account, error) {
				return nil, bizerror.Forbidden("role 'designer' cannot manage accounts")
			}
			req := httptest.NewRequest(http.MethodPut, "/v1/accounts/3/role", strings.NewReader(`{"role":"sales"}`))
			req.Header.Set("Authorization", "Bearer "+token)
			status, body, _ := testinfra.ExecuteRequest(req, router)
			Expect(status).To(Equal(http.StatusForbidden))
			Expect(body).To(MatchJSON(`{"code":"FORBIDDEN","message":"role 'designer' cannot manage accounts","data":null}`))
		})
	})
})
