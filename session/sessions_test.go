package session_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/gin-gonic/gin"
	. "github.com/onsi/gomega"
)

func TestExtractSessionFromGinContext(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should work correctly", func(t *testing.T) {
		ginCtx := &gin.Context{Request: httptest.NewRequest(http.MethodGet, "/", nil)}
		Expect(session.ExtractSessionFromGinContext(ginCtx).Token).To(BeEmpty())

		ginCtx.Set(session.KeySecCtx, "string value")
		Expect(session.ExtractSessionFromGinContext(ginCtx).Token).To(BeEmpty())

		ginCtx.Set(session.KeySecCtx, &session.Session{})
		Expect(session.ExtractSessionFromGinContext(ginCtx).Token).To(BeEmpty())

		ginCtx.Set(session.KeySecCtx, &session.Session{Token: "a token", Identity: session.Identity{ID: 10, Name: "ann"}})
		s := session.ExtractSessionFromGinContext(ginCtx)
		Expect(s.Token).To(Equal("a token"))
		Expect(s.Identity).To(Equal(session.Identity{ID: 10, Name: "ann"}))
		Expect(s.Context).To(Equal(ginCtx.Request.Context()))
	})
}

func TestInjectSessionIntoGinContext(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should work correctly", func(t *testing.T) {
		ginCtx := &gin.Context{}
		session.InjectSessionIntoGinContext(ginCtx, nil)
		_, found := ginCtx.Get(session.KeySecCtx)
		Expect(found).To(BeFalse())

		session.InjectSessionIntoGinContext(ginCtx, &session.Session{})
		_, found = ginCtx.Get(session.KeySecCtx)
		Expect(found).To(BeFalse())

		session.InjectSessionIntoGinContext(ginCtx, &session.Session{Token: "a token"})
		val, found := ginCtx.Get(session.KeySecCtx)
		Expect(found).To(BeTrue())
		Expect(val.(*session.Session).Token).To(Equal("a token"))
	})
}

func TestSimpleAuthFilter(t *testing.T) {
	RegisterTestingT(t)

	router := gin.New()
	router.Use(bizerror.ErrorHandling())
	router.GET("/secured", session.SimpleAuthFilter(), func(c *gin.Context) {
		s := session.ExtractSessionFromGinContext(c)
		c.JSON(http.StatusOK, &s.Identity)
	})
	session.RegisterToken("token-1", session.Identity{ID: 1, Name: "ann"})
	defer session.RevokeToken("token-1")

	t.Run("should reject request without token", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/secured", nil))
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
		Expect(w.Body.String()).To(MatchJSON(`{"code":"UNAUTHORIZED","message":"unauthenticated","data":null}`))
	})

	t.Run("should reject unknown token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secured", nil)
		req.Header.Set("Authorization", "Bearer unknown")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})

	t.Run("should accept bearer token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secured", nil)
		req.Header.Set("Authorization", "Bearer token-1")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))
		Expect(w.Body.String()).To(MatchJSON(`{"id":"1","name":"ann"}`))
	})

	t.Run("should accept cookie token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/secured", nil)
		req.AddCookie(&http.Cookie{Name: session.KeySecToken, Value: "token-1"})
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusOK))
	})

	t.Run("should reject revoked token", func(t *testing.T) {
		session.RegisterToken("token-2", session.Identity{ID: 2, Name: "bob"})
		session.RevokeToken("token-2")
		req := httptest.NewRequest(http.MethodGet, "/secured", nil)
		req.Header.Set("Authorization", "Bearer token-2")
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		Expect(w.Code).To(Equal(http.StatusUnauthorized))
	})
}

func TestExtractActor(t *testing.T) {
	RegisterTestingT(t)

	t.Run("should panic when actor is absent", func(t *testing.T) {
		ginCtx := &gin.Context{}
		Expect(func() { session.ExtractActor(ginCtx) }).To(Panic())
	})

	t.Run("should return injected actor", func(t *testing.T) {
		ginCtx := &gin.Context{}
		actor := authority.Actor{ID: 3, Name: "cat", Role: authority.RoleSales}
		session.InjectActor(ginCtx, actor)
		Expect(session.ExtractActor(ginCtx)).To(Equal(actor))
	})
}
