package activity

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/fundwit/go-commons/types"
)

type Action string

const (
	ActionCreated       Action = "created"
	ActionStatusChanged Action = "status_changed"
	ActionFieldsUpdated Action = "fields_updated"
	ActionCommentAdded  Action = "comment_added"
	ActionSlaBreached   Action = "sla_breached"
)

type CommentType string

const (
	CommentTypeComment          CommentType = "comment"
	CommentTypeStatusChange     CommentType = "status_change"
	CommentTypeRevisionFeedback CommentType = "revision_feedback"
	CommentTypeApproval         CommentType = "approval"
	CommentTypeSystem           CommentType = "system"
)

type Details struct {
	From     string                 `json:"from,omitempty"`
	To       string                 `json:"to,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Record is append only, nothing in this package updates or deletes it.
type Record struct {
	ID         types.ID          `json:"id" gorm:"primary_key;auto_increment:false"`
	EntityType domain.EntityType `json:"entityType" gorm:"type:varchar(32);not null"`
	EntityID   types.ID          `json:"entityId" gorm:"index"`
	ActorID    types.ID          `json:"actorId"`
	Action     Action            `json:"action" gorm:"type:varchar(32);not null"`
	Details    Details           `json:"details" sql:"type:TEXT"`
	CreateTime time.Time         `json:"createTime"`
}

func (Record) TableName() string {
	return "activity_records"
}

type Comment struct {
	ID          types.ID          `json:"id" gorm:"primary_key;auto_increment:false"`
	EntityType  domain.EntityType `json:"entityType" gorm:"type:varchar(32);not null"`
	EntityID    types.ID          `json:"entityId" gorm:"index"`
	AuthorID    types.ID          `json:"authorId"`
	Body        string            `json:"body" sql:"type:TEXT"`
	CommentType CommentType       `json:"commentType" gorm:"type:varchar(32);not null"`
	CreateTime  time.Time         `json:"createTime"`
}

func (Comment) TableName() string {
	return "comments"
}

type CommentCreation struct {
	Body string `json:"body" binding:"required,max=10000"`
}

func (d Details) Value() (driver.Value, error) {
	jsonBytes, err := json.Marshal(&d)
	if err != nil {
		return nil, err
	}
	return string(jsonBytes), nil
}

func (d *Details) Scan(v interface{}) error {
	jsonString, ok := v.(string)
	if !ok {
		jsonByte, ok := v.([]byte)
		if !ok {
			return fmt.Errorf("type is neither string nor []byte: %T %v", v, v)
		}
		jsonString = string(jsonByte)
	}
	return json.Unmarshal([]byte(jsonString), d)
}
