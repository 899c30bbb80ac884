package entity

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/client/es"
	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/activity"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/sla"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/workflow"
	"github.com/assujiar/ugc-business-command-portal-sub003/indices/search"
	"github.com/assujiar/ugc-business-command-portal-sub003/persistence"
	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

var (
	entityIdWorker = common.NewIdWorker()

	CreateEntityFunc     = CreateEntity
	QueryEntitiesFunc    = QueryEntities
	DetailEntityFunc     = DetailEntity
	UpdateEntityFunc     = UpdateEntity
	TransitionEntityFunc = TransitionEntity
	AddCommentFunc       = AddComment
	ListCommentsFunc     = ListComments
	ListActivitiesFunc   = ListActivities
)

// Result is the outcome of a committed write. AuditErr is set when the write committed but its
// activity could not be recorded.
type Result struct {
	Entity   *domain.Entity
	AuditErr error
}

type CommentResult struct {
	Comment  *activity.Comment
	AuditErr error
}

var errNoSubmitState = errors.New("entity type has no submit state")
var errEmptyUpdate = errors.New("no field to update")

func tableOf(entityType domain.EntityType, actor authority.Actor) (*workflow.Table, error) {
	table, found := workflow.ActiveRegistry.Table(entityType)
	if !found {
		return nil, bizerror.ErrNotFound
	}
	if !actor.Can(table.AccessCapability) {
		return nil, bizerror.Forbidden(fmt.Sprintf("role '%s' has no access to %s", actor.Role, entityType))
	}
	return table, nil
}

// CreateEntity stores a new entity in the initial state of its table. With SubmitImmediately the first
// transition to the submit state is applied in the same transaction.
func CreateEntity(ctx context.Context, entityType domain.EntityType, c *domain.EntityCreation, actor authority.Actor) (*Result, error) {
	table, err := tableOf(entityType, actor)
	if err != nil {
		return nil, err
	}
	if c.SubmitImmediately && table.SubmitState == "" {
		return nil, &bizerror.ErrBadParam{Cause: errNoSubmitState}
	}

	now := common.NowUTC()
	priority := c.Priority
	if priority == "" {
		priority = domain.PriorityMedium
	}
	e := &domain.Entity{
		ID:             common.NextId(entityIdWorker),
		EntityType:     entityType,
		Title:          c.Title,
		Description:    c.Description,
		Priority:       priority,
		State:          table.InitialState,
		StateChangedAt: now,
		StateChangedBy: actor.ID,
		CreatedBy:      actor.ID,
		AssignedTo:     c.AssignedTo,
		DueTime:        c.DueTime,
		Version:        1,
		CreateTime:     now,
		UpdateTime:     now,
	}
	if e.DueTime == nil {
		e.DueTime = sla.ActivePolicy.DueTime(entityType, priority, now)
	} else {
		due := e.DueTime.UTC().Truncate(time.Microsecond)
		e.DueTime = &due
	}

	executor := workflow.NewExecutor(workflow.ActiveRegistry, nil)
	executor.Now = func() time.Time { return now }
	submitReq := workflow.TransitionRequest{EntityType: entityType, EntityID: e.ID, Target: table.SubmitState, Actor: actor}
	var submitted *workflow.TransitionResult
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	err = db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(e).Error; err != nil {
			return err
		}
		if !c.SubmitImmediately {
			return nil
		}
		applied, err := executor.Apply(ctx, &GormStore{DB: tx}, e, submitReq)
		if err != nil {
			return err
		}
		submitted = applied
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := &Result{Entity: e}
	details := activity.Details{To: table.InitialState, Metadata: map[string]interface{}{"title": e.Title}}
	if _, err := activity.LogFunc(ctx, entityType, e.ID, actor.ID, activity.ActionCreated, details); err != nil {
		result.AuditErr = err
	}
	if submitted != nil {
		executor.Audit(ctx, submitReq, submitted)
		result.Entity = submitted.Entity
		if submitted.AuditErr != nil {
			result.AuditErr = submitted.AuditErr
		}
	}
	if result.AuditErr != nil {
		logrus.WithError(result.AuditErr).WithField("entityId", e.ID).Error("entity created but its activity was not written")
	}
	return result, nil
}

// QueryEntities lists the entities visible to actor, most recently updated first.
func QueryEntities(ctx context.Context, entityType domain.EntityType, query domain.EntityQuery, actor authority.Actor) ([]domain.Entity, uint64, error) {
	table, err := tableOf(entityType, actor)
	if err != nil {
		return nil, 0, err
	}
	query.Normalize()

	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	q := db.Model(&domain.Entity{}).Where("entity_type = ?", entityType)
	if !seesAll(table, actor) {
		q = q.Where("created_by = ? OR assigned_to = ?", actor.ID, actor.ID)
	}
	if query.State != "" {
		q = q.Where("state = ?", query.State)
	}
	if query.AssignedTo != 0 {
		q = q.Where("assigned_to = ?", query.AssignedTo)
	}
	if query.CreatedBy != 0 {
		q = q.Where("created_by = ?", query.CreatedBy)
	}
	if keyword := strings.TrimSpace(query.Keyword); keyword != "" {
		if es.Enabled() {
			ids, err := search.SearchEntityIDsFunc(ctx, entityType, keyword)
			if err != nil {
				return nil, 0, &bizerror.ErrDependency{Dependency: "search", Cause: err}
			}
			if len(ids) == 0 {
				return []domain.Entity{}, 0, nil
			}
			q = q.Where("id IN (?)", ids)
		} else {
			like := "%" + keyword + "%"
			q = q.Where("title LIKE ? OR description LIKE ?", like, like)
		}
	}

	var total uint64
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, err
	}
	entities := []domain.Entity{}
	if err := q.Order("update_time DESC, id DESC").Offset(query.Offset()).Limit(query.Limit).Find(&entities).Error; err != nil {
		return nil, 0, err
	}
	return entities, total, nil
}

func seesAll(table *workflow.Table, actor authority.Actor) bool {
	if table.ViewAllCapability != "" && actor.Can(table.ViewAllCapability) {
		return true
	}
	return actor.Can(authority.CapSupervise)
}

func DetailEntity(ctx context.Context, entityType domain.EntityType, id types.ID, actor authority.Actor) (*domain.Entity, error) {
	table, err := tableOf(entityType, actor)
	if err != nil {
		return nil, err
	}
	e, err := (&GormStore{DB: persistence.ActiveDataSourceManager.GormDB(ctx)}).Load(ctx, id)
	if err != nil {
		return nil, err
	}
	if e.EntityType != entityType || !workflow.Visible(table, e, actor) {
		return nil, bizerror.ErrNotFound
	}
	return e, nil
}

// UpdateEntity changes the non-state fields of an entity. Only its requester, its assignee and supervisors may
// edit it.
func UpdateEntity(ctx context.Context, entityType domain.EntityType, id types.ID, u *domain.EntityUpdating, actor authority.Actor) (*Result, error) {
	if u.IsEmpty() {
		return nil, &bizerror.ErrBadParam{Cause: errEmptyUpdate}
	}
	e, err := DetailEntity(ctx, entityType, id, actor)
	if err != nil {
		return nil, err
	}
	if e.CreatedBy != actor.ID && e.AssignedTo != actor.ID && !actor.Can(authority.CapSupervise) {
		return nil, bizerror.Forbidden("only the requester, the assignee or a supervisor can edit this entity")
	}

	now := common.NowUTC()
	changes := map[string]interface{}{}
	var fields []string
	if u.Title != nil && *u.Title != e.Title {
		changes["title"] = *u.Title
		e.Title = *u.Title
		fields = append(fields, "title")
	}
	if u.Description != nil && *u.Description != e.Description {
		changes["description"] = *u.Description
		e.Description = *u.Description
		fields = append(fields, "description")
	}
	if u.Priority != nil && *u.Priority != e.Priority {
		changes["priority"] = *u.Priority
		e.Priority = *u.Priority
		fields = append(fields, "priority")
		if u.DueTime == nil {
			if due := sla.ActivePolicy.DueTime(e.EntityType, e.Priority, e.CreateTime); due != nil {
				u.DueTime = due
			}
		}
	}
	if u.DueTime != nil {
		due := u.DueTime.UTC().Truncate(time.Microsecond)
		if e.DueTime == nil || !e.DueTime.Equal(due) {
			changes["due_time"] = due
			e.DueTime = &due
			fields = append(fields, "dueTime")
		}
	}
	if len(fields) == 0 {
		return &Result{Entity: e}, nil
	}

	changes["version"] = e.Version + 1
	changes["update_time"] = now
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	result := db.Model(&domain.Entity{}).Where("id = ? AND version = ?", e.ID, e.Version).Updates(changes)
	if result.Error != nil {
		return nil, result.Error
	}
	if result.RowsAffected == 0 {
		return nil, bizerror.ErrConflict
	}
	e.Version++
	e.UpdateTime = now

	r := &Result{Entity: e}
	details := activity.Details{Metadata: map[string]interface{}{"fields": fields}}
	if _, err := activity.LogFunc(ctx, entityType, e.ID, actor.ID, activity.ActionFieldsUpdated, details); err != nil {
		logrus.WithError(err).WithField("entityId", e.ID).Error("entity updated but its activity was not written")
		r.AuditErr = err
	}
	return r, nil
}

func TransitionEntity(ctx context.Context, req workflow.TransitionRequest) (*workflow.TransitionResult, error) {
	store := &GormStore{DB: persistence.ActiveDataSourceManager.GormDB(ctx)}
	return workflow.NewExecutor(workflow.ActiveRegistry, store).Transition(ctx, req)
}

func AddComment(ctx context.Context, entityType domain.EntityType, id types.ID, c *activity.CommentCreation, actor authority.Actor) (*CommentResult, error) {
	e, err := DetailEntity(ctx, entityType, id, actor)
	if err != nil {
		return nil, err
	}
	comment, err := activity.AppendCommentFunc(ctx, entityType, e.ID, actor.ID, c.Body, activity.CommentTypeComment)
	if err != nil {
		return nil, err
	}
	r := &CommentResult{Comment: comment}
	details := activity.Details{Metadata: map[string]interface{}{"commentId": comment.ID.String()}}
	if _, err := activity.LogFunc(ctx, entityType, e.ID, actor.ID, activity.ActionCommentAdded, details); err != nil {
		logrus.WithError(err).WithField("entityId", e.ID).Error("comment added but its activity was not written")
		r.AuditErr = err
	}
	return r, nil
}

func ListComments(ctx context.Context, entityType domain.EntityType, id types.ID, actor authority.Actor) ([]activity.Comment, error) {
	if _, err := DetailEntity(ctx, entityType, id, actor); err != nil {
		return nil, err
	}
	return activity.ListCommentsFunc(ctx, entityType, id)
}

func ListActivities(ctx context.Context, entityType domain.EntityType, id types.ID, actor authority.Actor) ([]activity.Record, error) {
	if _, err := DetailEntity(ctx, entityType, id, actor); err != nil {
		return nil, err
	}
	return activity.ListRecordsFunc(ctx, entityType, id)
}
