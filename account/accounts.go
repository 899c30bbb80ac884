package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/bizerror"
	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/assujiar/ugc-business-command-portal-sub003/persistence"
	"github.com/assujiar/ugc-business-command-portal-sub003/session"
	"github.com/fundwit/go-commons/types"
	"github.com/jinzhu/gorm"
	"github.com/sirupsen/logrus"
)

// Account is the role holder of one identity. The role is read on every request.
type Account struct {
	ID         types.ID       `json:"id" gorm:"primary_key;auto_increment:false"`
	Name       string         `json:"name" gorm:"type:varchar(64);not null"`
	Role       authority.Role `json:"role" gorm:"type:varchar(32);not null"`
	CreateTime time.Time      `json:"createTime"`
}

func (Account) TableName() string {
	return "accounts"
}

type RoleUpdating struct {
	Role authority.Role `json:"role" binding:"required"`
}

var (
	ResolveActorFunc = ResolveActor
	UpdateRoleFunc   = UpdateRole
	DetailFunc       = Detail
)

func Detail(ctx context.Context, id types.ID) (*Account, error) {
	a := Account{}
	if err := persistence.ActiveDataSourceManager.GormDB(ctx).Where("id = ?", id).First(&a).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, bizerror.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

// ResolveActor reads the current role of identity. An identity without account is not authenticated.
func ResolveActor(ctx context.Context, identity session.Identity) (authority.Actor, error) {
	a, err := Detail(ctx, identity.ID)
	if err != nil {
		if errors.Is(err, bizerror.ErrNotFound) {
			return authority.Actor{}, bizerror.ErrUnauthenticated
		}
		return authority.Actor{}, &bizerror.ErrDependency{Dependency: "account store", Cause: err}
	}
	return authority.Actor{ID: a.ID, Name: a.Name, Role: authority.NormalizeRole(a.Role)}, nil
}

func UpdateRole(ctx context.Context, id types.ID, u *RoleUpdating, actor authority.Actor) (*Account, error) {
	if !actor.Can(authority.CapAccountManage) {
		return nil, bizerror.Forbidden(fmt.Sprintf("role '%s' cannot manage accounts", actor.Role))
	}
	if !authority.IsKnownRole(u.Role) {
		return nil, &bizerror.ErrBadParam{Cause: fmt.Errorf("unknown role '%s'", u.Role)}
	}
	role := authority.NormalizeRole(u.Role)

	var updated *Account
	err := persistence.ActiveDataSourceManager.GormDB(ctx).Transaction(func(tx *gorm.DB) error {
		a := Account{}
		if err := tx.Where("id = ?", id).First(&a).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return bizerror.ErrNotFound
			}
			return err
		}
		if err := tx.Model(&Account{}).Where("id = ?", id).Update("role", role).Error; err != nil {
			return err
		}
		a.Role = role
		updated = &a
		return nil
	})
	if err != nil {
		return nil, err
	}
	logrus.WithField("accountId", id).WithField("role", role).WithField("by", actor.ID).Info("account role changed")
	return updated, nil
}

// Provision creates the accounts that do not exist yet. Existing accounts keep their current role.
func Provision(ctx context.Context, accounts []Account) error {
	db := persistence.ActiveDataSourceManager.GormDB(ctx)
	for _, a := range accounts {
		if !authority.IsKnownRole(a.Role) {
			return fmt.Errorf("account %d: unknown role '%s'", a.ID, a.Role)
		}
		existing := Account{}
		err := db.Where("id = ?", a.ID).First(&existing).Error
		if err == nil {
			continue
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}
		a.Role = authority.NormalizeRole(a.Role)
		a.CreateTime = common.NowUTC()
		if err := db.Create(&a).Error; err != nil {
			return err
		}
		logrus.WithField("accountId", a.ID).WithField("role", a.Role).Info("account provisioned")
	}
	return nil
}
