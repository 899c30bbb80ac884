package testinfra

import (
	"io"
	"net/http"
	"net/http/httptest"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// BuildSession registers a fresh token for the identity and returns the session.
func BuildSession(uid types.ID, name string) *session.Session {
	token := uuid.New().String()
	identity := session.Identity{ID: uid, Name: name}
	session.RegisterToken(token, identity)
	return &session.Session{Token: token, Identity: identity}
}

// ActorInjector stands in for role resolution in REST tests.
func ActorInjector(actor *authority.Actor) gin.HandlerFunc {
	return func(c *gin.Context) {
		if actor != nil {
			session.InjectActor(c, *actor)
		}
		c.Next()
	}
}

func ExecuteRequest(req *http.Request, engine http.Handler) (int, string, *http.Response) {
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)

	resp := w.Result()
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, string(body), resp
}
