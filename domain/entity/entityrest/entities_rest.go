package entityrest

import (
	"errors"
	"net/http"

	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/activity"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/entity"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/workflow"
	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/fundwit/go-commons/types"
	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
)

var (
	PathEntities = "/v1/entities"

	HeaderAuditDegraded = "X-Audit-Degraded"
)

func RegisterEntitiesRestAPI(r *gin.Engine, middleWares ...gin.HandlerFunc) {
	g := r.Group(PathEntities+"/:type", middleWares...)
	g.GET("", handleQuery)
	g.POST("", handleCreate)
	g.GET("/:id", handleDetail)
	g.PATCH("/:id", handleUpdate)
	g.PATCH("/:id/status", handleTransition)
	g.POST("/:id/comments", handleAddComment)
	g.GET("/:id/comments", handleListComments)
	g.GET("/:id/activities", handleListActivities)
}

type entityBody struct {
	*domain.Entity
	Degraded   bool   `json:"degraded,omitempty"`
	AuditError string `json:"auditError,omitempty"`
}

type commentBody struct {
	*activity.Comment
	Degraded   bool   `json:"degraded,omitempty"`
	AuditError string `json:"auditError,omitempty"`
}

func entityType(c *gin.Context) domain.EntityType {
	return domain.EntityType(c.Param("type"))
}

func entityID(c *gin.Context) types.ID {
	id, err := types.ParseID(c.Param("id"))
	if err != nil {
		panic(&bizerror.ErrBadParam{Cause: errors.New("invalid id '" + c.Param("id") + "'")})
	}
	return id
}

func markDegraded(c *gin.Context, auditErr error) (bool, string) {
	if auditErr == nil {
		return false, ""
	}
	c.Header(HeaderAuditDegraded, "true")
	return true, auditErr.Error()
}

func respondEntity(c *gin.Context, status int, e *domain.Entity, auditErr error) {
	degraded, message := markDegraded(c, auditErr)
	c.JSON(status, &entityBody{Entity: e, Degraded: degraded, AuditError: message})
}

func handleQuery(c *gin.Context) {
	query := domain.EntityQuery{}
	if err := c.ShouldBindWith(&query, binding.Query); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	entities, total, err := entity.QueryEntitiesFunc(c.Request.Context(), entityType(c), query, session.ExtractActor(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, &common.PagedBody{List: entities, Total: total})
}

func handleCreate(c *gin.Context) {
	creation := domain.EntityCreation{}
	if err := common.BindStrictJSON(c, &creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	result, err := entity.CreateEntityFunc(c.Request.Context(), entityType(c), &creation, session.ExtractActor(c))
	if err != nil {
		panic(err)
	}
	respondEntity(c, http.StatusCreated, result.Entity, result.AuditErr)
}

func handleDetail(c *gin.Context) {
	e, err := entity.DetailEntityFunc(c.Request.Context(), entityType(c), entityID(c), session.ExtractActor(c))
	if err != nil {
		_ = c.Error(err)
		return
	}
	c.JSON(http.StatusOK, e)
}

func handleUpdate(c *gin.Context) {
	id := entityID(c)
	updating := domain.EntityUpdating{}
	if err := common.BindStrictJSON(c, &updating); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	result, err := entity.UpdateEntityFunc(c.Request.Context(), entityType(c), id, &updating, session.ExtractActor(c))
	if err != nil {
		panic(err)
	}
	respondEntity(c, http.StatusOK, result.Entity, result.AuditErr)
}

func handleTransition(c *gin.Context) {
	id := entityID(c)
	updating := domain.EntityStatusUpdating{}
	if err := common.BindStrictJSON(c, &updating); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	result, err := entity.TransitionEntityFunc(c.Request.Context(), workflow.TransitionRequest{
		EntityType: entityType(c),
		EntityID:   id,
		Target:     updating.State,
		Actor:      session.ExtractActor(c),
		Comment:    updating.Comment,
		AssignedTo: updating.AssignedTo,
	})
	if err != nil {
		panic(err)
	}
	respondEntity(c, http.StatusOK, result.Entity, result.AuditErr)
}

func handleAddComment(c *gin.Context) {
	id := entityID(c)
	creation := activity.CommentCreation{}
	if err := common.BindStrictJSON(c, &creation); err != nil {
		panic(&bizerror.ErrBadParam{Cause: err})
	}
	result, err := entity.AddCommentFunc(c.Request.Context(), entityType(c), id, &creation, session.ExtractActor(c))
	if err != nil {
		panic(err)
	}
	degraded, message := markDegraded(c, result.AuditErr)
	c.JSON(http.StatusCreated, &commentBody{Comment: result.Comment, Degraded: degraded, AuditError: message})
}

func handleListComments(c *gin.Context) {
	comments, err := entity.ListCommentsFunc(c.Request.Context(), entityType(c), entityID(c), session.ExtractActor(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, comments)
}

func handleListActivities(c *gin.Context) {
	records, err := entity.ListActivitiesFunc(c.Request.Context(), entityType(c), entityID(c), session.ExtractActor(c))
	if err != nil {
		panic(err)
	}
	c.JSON(http.StatusOK, records)
}
