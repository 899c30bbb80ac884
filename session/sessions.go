package session

import (
	"context"
	"strings"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/patrickmn/go-cache"
)

const TokenExpiration = 24 * time.Hour

var TokenCache = cache.New(TokenExpiration, 1*time.Minute)

const (
	KeySecCtx   = "SecCtx"
	KeyActor    = "Actor"
	KeySecToken = "sec_token"
)

type Identity struct {
	ID   types.ID `json:"id"`
	Name string   `json:"name"`
}

// Session holds the authenticated identity only, roles are resolved per request.
type Session struct {
	Token    string   `json:"token"`
	Identity Identity `json:"identity"`

	Context context.Context `json:"-"`
}

func (s *Session) Clone() Session {
	return Session{Token: s.Token, Identity: s.Identity, Context: s.Context}
}

// RegisterToken makes token resolve to identity until it is revoked.
func RegisterToken(token string, identity Identity) {
	TokenCache.Set(token, &Session{Token: token, Identity: identity}, cache.NoExpiration)
}

func RevokeToken(token string) {
	TokenCache.Delete(token)
}

func ExtractSessionFromGinContext(ctx *gin.Context) *Session {
	value, found := ctx.Get(KeySecCtx)
	if !found {
		return &Session{Context: ctx.Request.Context()}
	}
	s0, ok := value.(*Session)
	if !ok || s0.Token == "" {
		return &Session{Context: ctx.Request.Context()}
	}
	s := s0.Clone()
	s.Context = ctx.Request.Context() // trace context
	return &s
}

func InjectSessionIntoGinContext(ctx *gin.Context, s *Session) {
	if s != nil && s.Token != "" {
		ctx.Set(KeySecCtx, s)
	}
}

// SimpleAuthFilter accepts a bearer token or the sec_token cookie.
func SimpleAuthFilter() gin.HandlerFunc {
	return func(ctx *gin.Context) {
		token := extractToken(ctx)
		if token == "" {
			panic(bizerror.ErrUnauthenticated)
		}
		value, found := TokenCache.Get(token)
		if !found {
			panic(bizerror.ErrUnauthenticated)
		}
		s, ok := value.(*Session)
		if !ok {
			panic(bizerror.ErrUnauthenticated)
		}
		InjectSessionIntoGinContext(ctx, s)
		ctx.Next()
	}
}

func extractToken(ctx *gin.Context) string {
	header := ctx.GetHeader("Authorization")
	if len(header) > 7 && strings.EqualFold(header[:7], "bearer ") {
		return strings.TrimSpace(header[7:])
	}
	token, err := ctx.Cookie(KeySecToken)
	if err != nil {
		return ""
	}
	return token
}

func InjectActor(ctx *gin.Context, actor authority.Actor) {
	ctx.Set(KeyActor, actor)
}

// ExtractActor panics with ErrUnauthenticated when no actor was resolved for the request.
func ExtractActor(ctx *gin.Context) authority.Actor {
	value, found := ctx.Get(KeyActor)
	if !found {
		panic(bizerror.ErrUnauthenticated)
	}
	actor, ok := value.(authority.Actor)
	if !ok {
		panic(bizerror.ErrUnauthenticated)
	}
	return actor
}
