package indices

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/client/es"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/persistence"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

var (
	lock    sync.Mutex
	running bool

	// SyncLimiter throttles manually requested full syncs.
	SyncLimiter = rate.NewLimiter(rate.Every(time.Minute), 1)

	IndicesFullSyncFunc    = IndicesFullSync
	ScheduleNewSyncRunFunc = ScheduleNewSyncRun
	LoadEntitiesFunc       = loadEntities

	SyncBatchSize = 500
)

var errSearchDisabled = errors.New("search is disabled")

// ScheduleNewSyncRun starts a full sync in the background. It reports false when a run is in progress
// or the request is throttled.
func ScheduleNewSyncRun(actor authority.Actor) (bool, error) {
	if !actor.Can(authority.CapIndicesManage) {
		return false, bizerror.Forbidden("indices management is not allowed for role '" + string(actor.Role) + "'")
	}
	if !es.Enabled() {
		return false, &bizerror.ErrBadParam{Cause: errSearchDisabled}
	}
	if !SyncLimiter.Allow() {
		return false, nil
	}
	return startRun(), nil
}

func startRun() bool {
	lock.Lock()
	if running {
		lock.Unlock()
		return false
	}
	running = true
	lock.Unlock()

	waitRunning := sync.WaitGroup{}
	waitRunning.Add(1)
	go func() {
		waitRunning.Done()
		defer func() {
			lock.Lock()
			running = false
			lock.Unlock()
		}()
		if err := IndicesFullSyncFunc(context.Background()); err != nil {
			logrus.Errorf("indices full sync: %v", err)
		}
	}()
	waitRunning.Wait()
	return true
}

func IndicesFullSync(ctx context.Context) (err error) {
	defer func() {
		if ret := recover(); ret != nil {
			e, ok := ret.(error)
			if ok {
				err = e
			} else {
				err = fmt.Errorf("error on indices full sync: %v", ret)
			}
		}
	}()

	page := 1
	for {
		entities, err := LoadEntitiesFunc(ctx, page, SyncBatchSize)
		if err != nil {
			return fmt.Errorf("load entities (page = %d, pageSize = %d): %w", page, SyncBatchSize, err)
		}
		if len(entities) == 0 {
			logrus.Infof("indices full sync: there are no more entities to index")
			return nil
		}
		if err := IndexEntities(ctx, entities); err != nil {
			logrus.Warnf("indices full sync: error on index entities (page = %d, pageSize = %d): %v", page, SyncBatchSize, err)
		}
		page++
	}
}

func loadEntities(ctx context.Context, page, pageSize int) ([]domain.Entity, error) {
	entities := []domain.Entity{}
	err := persistence.ActiveDataSourceManager.GormDB(ctx).Order("id ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).Find(&entities).Error
	if err != nil {
		return nil, err
	}
	return entities, nil
}
