package entity

import (
	"context"
	"errors"

	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
)

// GormStore is the workflow store over the entities table. DB may be a transaction.
type GormStore struct {
	DB *gorm.DB
}

func (s *GormStore) Load(ctx context.Context, id types.ID) (*domain.Entity, error) {
	e := domain.Entity{}
	if err := s.DB.Where("id = ?", id).First(&e).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	return &e, nil
}

// CompareAndSwap writes the state derived fields of next when the row still holds current's version and state.
func (s *GormStore) CompareAndSwap(ctx context.Context, current, next *domain.Entity) error {
	changes := map[string]interface{}{
		"state":            next.State,
		"state_changed_at": next.StateChangedAt,
		"state_changed_by": next.StateChangedBy,
		"revision_count":   next.RevisionCount,
		"assigned_to":      next.AssignedTo,
		"version":          next.Version,
		"update_time":      next.UpdateTime,
	}
	for _, stamp := range stamps {
		changes[stamp] = next.StampValue(stamp)
	}

	result := s.DB.Model(&domain.Entity{}).
		Where("id = ? AND version = ? AND state = ?", current.ID, current.Version, current.State).
		Updates(changes)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return bizerror.ErrConflict
	}
	return nil
}

var stamps = []string{
	domain.StampSubmitted, domain.StampAccepted, domain.StampDelivered, domain.StampApproved, domain.StampRejected,
	domain.StampPublished, domain.StampResolved, domain.StampClosed, domain.StampCancelled,
}
