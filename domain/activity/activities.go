package activity

import (
	"context"
	"errors"
	"strings"

	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/persistence"
	"github.com/fundwit/go-commons/types"
)

var (
	LogFunc           = Log
	AppendCommentFunc = AppendComment
	ListRecordsFunc   = ListRecords
	ListCommentsFunc  = ListComments

	idWorker = common.NewIdWorker()
)

var errBlankComment = errors.New("comment body must not be blank")

// Log appends one record and hands it to the registered handlers once it is stored.
func Log(ctx context.Context, entityType domain.EntityType, entityID, actorID types.ID,
	action Action, details Details) (*Record, error) {

	r := &Record{
		ID:         common.NextId(idWorker),
		EntityType: entityType,
		EntityID:   entityID,
		ActorID:    actorID,
		Action:     action,
		Details:    details,
		CreateTime: common.NowUTC(),
	}
	if err := persistence.ActiveDataSourceManager.GormDB(ctx).Create(r).Error; err != nil {
		return nil, err
	}
	InvokeHandlersFunc(r)
	return r, nil
}

func AppendComment(ctx context.Context, entityType domain.EntityType, entityID, authorID types.ID,
	body string, commentType CommentType) (*Comment, error) {

	body = strings.TrimSpace(body)
	if body == "" {
		return nil, &bizerror.ErrBadParam{Cause: errBlankComment}
	}
	c := &Comment{
		ID:          common.NextId(idWorker),
		EntityType:  entityType,
		EntityID:    entityID,
		AuthorID:    authorID,
		Body:        body,
		CommentType: commentType,
		CreateTime:  common.NowUTC(),
	}
	if err := persistence.ActiveDataSourceManager.GormDB(ctx).Create(c).Error; err != nil {
		return nil, err
	}
	return c, nil
}

// ListRecords returns the records of one entity, oldest first.
func ListRecords(ctx context.Context, entityType domain.EntityType, entityID types.ID) ([]Record, error) {
	records := []Record{}
	err := persistence.ActiveDataSourceManager.GormDB(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("create_time ASC, id ASC").Find(&records).Error
	if err != nil {
		return nil, err
	}
	return records, nil
}

func ListComments(ctx context.Context, entityType domain.EntityType, entityID types.ID) ([]Comment, error) {
	comments := []Comment{}
	err := persistence.ActiveDataSourceManager.GormDB(ctx).
		Where("entity_type = ? AND entity_id = ?", entityType, entityID).
		Order("create_time ASC, id ASC").Find(&comments).Error
	if err != nil {
		return nil, err
	}
	return comments, nil
}
