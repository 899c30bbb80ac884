package indices

import (
	"context"
	"fmt"

	"github.com/assujiar/ugc-business-command-portal-sub003/client/es"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/activity"
	"github.com/assujiar/ugc-business-command-portal-sub003/persistence"
	"github.com/fundwit/go-commons/types"
	"github.com/sirupsen/logrus"
)

var (
	EntityIndexName                = "bizflow_entities"
	EntityIndexActivityHandlerName = "entityIndexer"

	LoadEntityFunc = loadEntity
)

type EntityDocument struct {
	domain.Entity
}

type BatchActionError map[types.ID]error

func (e BatchActionError) Error() string {
	return fmt.Sprintf("%v", map[types.ID]error(e))
}

func IndexEntities(ctx context.Context, entities []domain.Entity) error {
	errs := BatchActionError{}
	for _, e := range entities {
		doc := EntityDocument{Entity: e}
		if err := es.IndexFunc(ctx, EntityIndexName, e.ID, doc); err != nil {
			errs[e.ID] = err
			logrus.Warnf("index entity %d %s: %v", e.ID, e.EntityType, err)
		} else {
			logrus.Debugf("index entity %d %s successfully", e.ID, e.EntityType)
		}
	}
	if len(errs) == 0 {
		return nil
	}
	return errs
}

// IndexEntityActivityHandler re-indexes the entity a record belongs to. It ignores records while search is disabled.
func IndexEntityActivityHandler(r *activity.Record) *activity.HandleResult {
	if !es.Enabled() {
		return nil
	}
	ctx := context.Background()
	e, err := LoadEntityFunc(ctx, r.EntityID)
	if err != nil {
		return &activity.HandleResult{
			Message:           fmt.Sprintf("load entity when index entity %d, %v", r.EntityID, err),
			HandlerIdentifier: EntityIndexActivityHandlerName,
		}
	}
	if err := IndexEntities(ctx, []domain.Entity{*e}); err != nil {
		return &activity.HandleResult{
			Message:           fmt.Sprintf("index entity %d, %v", r.EntityID, err),
			HandlerIdentifier: EntityIndexActivityHandlerName,
		}
	}
	return &activity.HandleResult{Success: true, HandlerIdentifier: EntityIndexActivityHandlerName}
}

func loadEntity(ctx context.Context, id types.ID) (*domain.Entity, error) {
	e := domain.Entity{}
	if err := persistence.ActiveDataSourceManager.GormDB(ctx).Where("id = ?", id).First(&e).Error; err != nil {
		return nil, err
	}
	return &e, nil
}
