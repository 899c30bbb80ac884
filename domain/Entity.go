package domain

import (
	"time"

	"github.com/fundwit/go-commons/types"
)

type EntityType string

const (
	EntityTypeDesignRequest EntityType = "design_request"
	EntityTypeContentPlan   EntityType = "content_plan"
	EntityTypeQuotation     EntityType = "quotation"
	EntityTypeTicket        EntityType = "ticket"
	EntityTypeLead          EntityType = "lead"
)

type Priority string

const (
	PriorityLow    Priority = "low"
	PriorityMedium Priority = "medium"
	PriorityHigh   Priority = "high"
	PriorityUrgent Priority = "urgent"
)

// Entity is the persisted form of every workflow entity. State and the fields derived from it are
// written by the transition executor only.
type Entity struct {
	ID          types.ID   `json:"id" gorm:"primary_key;auto_increment:false"`
	EntityType  EntityType `json:"entityType" gorm:"type:varchar(32);not null;index"`
	Title       string     `json:"title" gorm:"type:varchar(255);not null"`
	Description string     `json:"description" gorm:"type:text"`
	Priority    Priority   `json:"priority" gorm:"type:varchar(16)"`

	State          string    `json:"state" gorm:"type:varchar(32);not null;index"`
	StateChangedAt time.Time `json:"stateChangedAt"`
	StateChangedBy types.ID  `json:"stateChangedBy"`
	RevisionCount  int       `json:"revisionCount"`

	CreatedBy  types.ID `json:"createdBy" gorm:"index"`
	AssignedTo types.ID `json:"assignedTo" gorm:"index"`

	SubmittedAt *time.Time `json:"submittedAt"`
	AcceptedAt  *time.Time `json:"acceptedAt"`
	DeliveredAt *time.Time `json:"deliveredAt"`
	ApprovedAt  *time.Time `json:"approvedAt"`
	RejectedAt  *time.Time `json:"rejectedAt"`
	PublishedAt *time.Time `json:"publishedAt"`
	ResolvedAt  *time.Time `json:"resolvedAt"`
	ClosedAt    *time.Time `json:"closedAt"`
	CancelledAt *time.Time `json:"cancelledAt"`

	DueTime       *time.Time `json:"dueTime"`
	SlaBreached   bool       `json:"slaBreached"`
	SlaBreachedAt *time.Time `json:"slaBreachedAt"`

	Version    int       `json:"version"`
	CreateTime time.Time `json:"createTime"`
	UpdateTime time.Time `json:"updateTime"`
}

func (Entity) TableName() string {
	return "entities"
}

// Stamp names accepted by transition tables, each maps to one timestamp column.
const (
	StampSubmitted = "submitted_at"
	StampAccepted  = "accepted_at"
	StampDelivered = "delivered_at"
	StampApproved  = "approved_at"
	StampRejected  = "rejected_at"
	StampPublished = "published_at"
	StampResolved  = "resolved_at"
	StampClosed    = "closed_at"
	StampCancelled = "cancelled_at"
)

var stampColumns = map[string]func(e *Entity) **time.Time{
	StampSubmitted: func(e *Entity) **time.Time { return &e.SubmittedAt },
	StampAccepted:  func(e *Entity) **time.Time { return &e.AcceptedAt },
	StampDelivered: func(e *Entity) **time.Time { return &e.DeliveredAt },
	StampApproved:  func(e *Entity) **time.Time { return &e.ApprovedAt },
	StampRejected:  func(e *Entity) **time.Time { return &e.RejectedAt },
	StampPublished: func(e *Entity) **time.Time { return &e.PublishedAt },
	StampResolved:  func(e *Entity) **time.Time { return &e.ResolvedAt },
	StampClosed:    func(e *Entity) **time.Time { return &e.ClosedAt },
	StampCancelled: func(e *Entity) **time.Time { return &e.CancelledAt },
}

func IsKnownStamp(stamp string) bool {
	_, found := stampColumns[stamp]
	return found
}

// ApplyStamp sets the timestamp column named by stamp, it reports false for unknown names.
func (e *Entity) ApplyStamp(stamp string, at time.Time) bool {
	column, found := stampColumns[stamp]
	if !found {
		return false
	}
	t := at
	*column(e) = &t
	return true
}

func (e *Entity) StampValue(stamp string) *time.Time {
	column, found := stampColumns[stamp]
	if !found {
		return nil
	}
	return *column(e)
}

type EntityCreation struct {
	Title             string     `json:"title" binding:"required,max=255"`
	Description       string     `json:"description"`
	Priority          Priority   `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	AssignedTo        types.ID   `json:"assignedTo"`
	DueTime           *time.Time `json:"dueTime"`
	SubmitImmediately bool       `json:"submitImmediately"`
}

// EntityUpdating lists every field the plain update path may touch.
type EntityUpdating struct {
	Title       *string    `json:"title" binding:"omitempty,min=1,max=255"`
	Description *string    `json:"description"`
	Priority    *Priority  `json:"priority" binding:"omitempty,oneof=low medium high urgent"`
	DueTime     *time.Time `json:"dueTime"`
}

func (u *EntityUpdating) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.Priority == nil && u.DueTime == nil
}

type EntityStatusUpdating struct {
	State      string   `json:"state" binding:"required"`
	Comment    string   `json:"comment"`
	AssignedTo types.ID `json:"assignedTo"`
}

type EntityQuery struct {
	State      string   `form:"state"`
	AssignedTo types.ID `form:"assignedTo"`
	CreatedBy  types.ID `form:"createdBy"`
	Keyword    string   `form:"q"`
	Page       int      `form:"page" binding:"omitempty,min=1"`
	Limit      int      `form:"limit" binding:"omitempty,min=1,max=100"`
}

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

func (q *EntityQuery) Normalize() {
	if q.Page <= 0 {
		q.Page = 1
	}
	if q.Limit <= 0 {
		q.Limit = DefaultPageSize
	}
	if q.Limit > MaxPageSize {
		q.Limit = MaxPageSize
	}
}

func (q *EntityQuery) Offset() int {
	return (q.Page - 1) * q.Limit
}
