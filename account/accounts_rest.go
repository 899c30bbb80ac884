package account

import (
	"errors"
	"net/http"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
)

// ActorFilter resolves the role of the authenticated identity for this request. It runs after
// session.SimpleAuthFilter.
func ActorFilter() gin.HandlerFunc {
	return func(c *gin.Context) {
		s := session.ExtractSessionFromGinContext(c)
		if s.Token == "" {
			panic(bizerror.ErrUnauthenticated)
		}
		actor, err := ResolveActorFunc(c.Request.Context(), s.Identity)
		if err != nil {
			panic(err)
		}
		session.InjectActor(c, actor)
		c.Next()
	}
}

type meBody struct {
	authority.Actor
	Capabilities []authority.Capability `json:"capabilities"`
}

func RegisterAccountsRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	r.Group("/v1/me", middleWares...).GET("", HandleMe)

	g := r.Group("/v1/accounts", middleWares...)
	g.PUT("/:id/role", HandleUpdateRole)
}

func HandleMe(c *gin.Context) {
	actor := session.ExtractActor(c)
	c.JSON(http.StatusOK, &meBody{Actor: actor, Capabilities: authority.CapabilitiesOf(actor.Role)})
}

func HandleUpdateRole(c *gin.Context) {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	payload := RoleUpdating{}
	if err := common.BindStrictJSON(c, &payload); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	a, err := UpdateRoleFunc(c.Request.Context(), id, &payload, session.ExtractActor(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, a)
}
