package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/activity"
	"github.com/fundwit/go-commons/types"
	"github.com/sethvargo/go-retry"
	"github.com/sirupsen/logrus"
)

// Store reads and conditionally writes entities. CompareAndSwap returns bizerror.ErrConflict when the stored
// row no longer carries the version and state of current.
type Store interface {
	Load(ctx context.Context, id types.ID) (*domain.Entity, error)
	CompareAndSwap(ctx context.Context, current, next *domain.Entity) error
}

type TransitionRequest struct {
	EntityType domain.EntityType
	EntityID   types.ID
	Target     string
	Actor      authority.Actor
	Comment    string
	AssignedTo types.ID
}

type TransitionResult struct {
	Entity  *domain.Entity    `json:"entity"`
	From    string            `json:"-"`
	Record  *activity.Record  `json:"record,omitempty"`
	Comment *activity.Comment `json:"comment,omitempty"`

	// AuditErr is set when the state change committed but its record or comment could not be written.
	AuditErr error `json:"-"`
}

func (r *TransitionResult) Degraded() bool {
	return r.AuditErr != nil
}

type Executor struct {
	Registry *Registry
	Store    Store

	Log           func(ctx context.Context, entityType domain.EntityType, entityID, actorID types.ID, action activity.Action, details activity.Details) (*activity.Record, error)
	AppendComment func(ctx context.Context, entityType domain.EntityType, entityID, authorID types.ID, body string, commentType activity.CommentType) (*activity.Comment, error)
	Now           func() time.Time

	// ConflictBackoff is the pause before the single re-read after a lost compare-and-swap.
	ConflictBackoff time.Duration
}

func NewExecutor(registry *Registry, store Store) *Executor {
	return &Executor{
		Registry:        registry,
		Store:           store,
		Log:             activity.LogFunc,
		AppendComment:   activity.AppendCommentFunc,
		Now:             common.NowUTC,
		ConflictBackoff: 5 * time.Millisecond,
	}
}

// Transition validates the request against the latest stored entity and writes the new state. A lost
// compare-and-swap is retried once against a fresh read, a second loss surfaces as bizerror.ErrConflict.
func (e *Executor) Transition(ctx context.Context, req TransitionRequest) (*TransitionResult, error) {
	table, found := e.Registry.Table(req.EntityType)
	if !found {
		return nil, bizerror.ErrNotFound
	}

	backoff := e.ConflictBackoff
	if backoff <= 0 {
		backoff = time.Millisecond
	}

	var result *TransitionResult
	err := retry.Do(ctx, retry.WithMaxRetries(1, retry.NewConstant(backoff)), func(ctx context.Context) error {
		current, err := e.Store.Load(ctx, req.EntityID)
		if err != nil {
			return err
		}
		if current.EntityType != req.EntityType {
			return bizerror.ErrNotFound
		}
		applied, err := e.apply(ctx, e.Store, table, current, req)
		if err != nil {
			if errors.Is(err, bizerror.ErrConflict) {
				logrus.WithField("entityId", req.EntityID).Info("transition lost a concurrent write, re-validating")
				return retry.RetryableError(err)
			}
			return err
		}
		result = applied
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.audit(ctx, table, req, result)
	return result, nil
}

// Apply validates req against current, which the caller has just read through store, and writes it once.
// Nothing is audited, the caller passes the result to Audit after its own transaction committed.
func (e *Executor) Apply(ctx context.Context, store Store, current *domain.Entity, req TransitionRequest) (*TransitionResult, error) {
	table, found := e.Registry.Table(req.EntityType)
	if !found || current.EntityType != req.EntityType {
		return nil, bizerror.ErrNotFound
	}
	return e.apply(ctx, store, table, current, req)
}

// Audit appends the record and comment of an applied transition and reports failures on result.
func (e *Executor) Audit(ctx context.Context, req TransitionRequest, result *TransitionResult) {
	table, found := e.Registry.Table(req.EntityType)
	if !found {
		return
	}
	e.audit(ctx, table, req, result)
}

func (e *Executor) apply(ctx context.Context, store Store, table *Table, current *domain.Entity, req TransitionRequest) (*TransitionResult, error) {
	planned, err := Plan(table, current, req, e.Now())
	if err != nil {
		return nil, err
	}
	if err := store.CompareAndSwap(ctx, current, planned); err != nil {
		return nil, err
	}
	return &TransitionResult{Entity: planned, From: current.State}, nil
}

func (e *Executor) audit(ctx context.Context, table *Table, req TransitionRequest, result *TransitionResult) {
	next := result.Entity
	comment := strings.TrimSpace(req.Comment)
	def, _ := table.State(next.State)
	commentType := CommentTypeFor(def)

	metadata := map[string]interface{}{}
	if comment != "" {
		metadata["commentType"] = string(commentType)
	}
	if next.AssignedTo != 0 {
		metadata["assignedTo"] = next.AssignedTo.String()
	}
	details := activity.Details{From: result.From, To: next.State, Metadata: metadata}

	record, err := e.Log(ctx, next.EntityType, next.ID, req.Actor.ID, activity.ActionStatusChanged, details)
	if err != nil {
		logrus.WithError(err).WithField("entityId", next.ID).Error("transition committed but its record was not written")
		result.AuditErr = err
		return
	}
	result.Record = record

	if comment == "" {
		return
	}
	c, err := e.AppendComment(ctx, next.EntityType, next.ID, req.Actor.ID, comment, commentType)
	if err != nil {
		logrus.WithError(err).WithField("entityId", next.ID).Error("transition committed but its comment was not written")
		result.AuditErr = err
		return
	}
	result.Comment = c
}

// Plan checks the request against current and derives the entity as it will be stored. It writes nothing.
func Plan(table *Table, current *domain.Entity, req TransitionRequest, now time.Time) (*domain.Entity, error) {
	actor := req.Actor
	if !actor.Can(table.AccessCapability) {
		return nil, bizerror.Forbidden(fmt.Sprintf("role '%s' has no access to %s", actor.Role, table.EntityType))
	}
	if !Visible(table, current, actor) {
		return nil, bizerror.ErrNotFound
	}

	if !table.Allowed(current.State, req.Target) {
		return nil, &bizerror.ErrInvalidTransition{From: current.State, To: req.Target}
	}
	rule, _ := table.Rule(current.State, req.Target)
	if err := checkActor(table, rule, current, actor); err != nil {
		return nil, err
	}
	if err := checkAssignee(rule, current, req); err != nil {
		return nil, err
	}
	if rule.RequiresComment && strings.TrimSpace(req.Comment) == "" {
		return nil, bizerror.ErrCommentRequired
	}

	def, _ := table.State(req.Target)
	next := *current
	next.State = req.Target
	next.StateChangedAt = now
	next.StateChangedBy = actor.ID
	if def.Stamp != "" {
		next.ApplyStamp(def.Stamp, now)
	}
	if def.BumpRevision {
		next.RevisionCount++
	}
	if req.AssignedTo != 0 {
		next.AssignedTo = req.AssignedTo
	} else if def.AssignProducer && rule.Actor == ActorProducer && next.AssignedTo == 0 {
		next.AssignedTo = actor.ID
	}
	next.Version++
	next.UpdateTime = now
	return &next, nil
}

// Visible reports whether actor may see entity at all: its requester, its assignee, holders of the
// table's view-all capability and supervisors.
func Visible(table *Table, entity *domain.Entity, actor authority.Actor) bool {
	if entity.CreatedBy == actor.ID || (entity.AssignedTo != 0 && entity.AssignedTo == actor.ID) {
		return true
	}
	if table.ViewAllCapability != "" && actor.Can(table.ViewAllCapability) {
		return true
	}
	return actor.Can(authority.CapSupervise)
}

func checkActor(table *Table, rule *TransitionRule, entity *domain.Entity, actor authority.Actor) error {
	switch rule.Actor {
	case ActorRequester:
		// the assigned producer never reviews its own work, not even as creator or supervisor
		if entity.AssignedTo != 0 && entity.AssignedTo == actor.ID {
			return bizerror.Forbidden(fmt.Sprintf("the assigned producer cannot move to '%s'", rule.To))
		}
		if table.Produced(entity.State) && entity.StateChangedBy == actor.ID {
			return bizerror.Forbidden(fmt.Sprintf("the producer of '%s' cannot move to '%s'", entity.State, rule.To))
		}
		if entity.CreatedBy == actor.ID || actor.Can(authority.CapSupervise) {
			return nil
		}
		return bizerror.Forbidden(fmt.Sprintf("only the requester or a supervisor can move to '%s'", rule.To))
	case ActorProducer:
		if actor.Can(table.ProducerCapability) || actor.Can(authority.CapSupervise) {
			return nil
		}
		return bizerror.Forbidden(fmt.Sprintf("role '%s' cannot move to '%s'", actor.Role, rule.To))
	}
	return nil
}

// checkAssignee lets supervisors assign on any transition. Other actors may only name the assignee while
// taking up unassigned work through a producer transition.
func checkAssignee(rule *TransitionRule, entity *domain.Entity, req TransitionRequest) error {
	if req.AssignedTo == 0 || req.AssignedTo == entity.AssignedTo || req.Actor.Can(authority.CapSupervise) {
		return nil
	}
	if rule.Actor == ActorProducer && entity.AssignedTo == 0 {
		return nil
	}
	return bizerror.Forbidden(fmt.Sprintf("role '%s' cannot reassign on the move to '%s'", req.Actor.Role, rule.To))
}

func CommentTypeFor(def *StateDefinition) activity.CommentType {
	if def == nil {
		return activity.CommentTypeStatusChange
	}
	switch {
	case def.BumpRevision:
		return activity.CommentTypeRevisionFeedback
	case def.Name == "approved":
		return activity.CommentTypeApproval
	case def.Name == "cancelled":
		return activity.CommentTypeSystem
	}
	return activity.CommentTypeStatusChange
}
