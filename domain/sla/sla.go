package sla

import (
	"context"
	"time"

	"github.com/assujiar/ugc-business-command-portal-sub003/authority"
	"github.com/assujiar/ugc-business-command-portal-sub003/common"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/activity"
	"github.com/assujiar/ugc-business-command-portal-sub003/domain/workflow"
	"github.com/assujiar/ugc-business-command-portal-sub003/persistence"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// Policy maps ticket priorities to resolution hours.
type Policy struct {
	Hours map[domain.Priority]int `yaml:"hours"`
}

func DefaultPolicy() Policy {
	return Policy{Hours: map[domain.Priority]int{
		domain.PriorityUrgent: 4,
		domain.PriorityHigh:   8,
		domain.PriorityMedium: 24,
		domain.PriorityLow:    72,
	}}
}

var (
	ActivePolicy = DefaultPolicy()

	ScanBreachesFunc = ScanBreaches
)

// DueTime is nil for entity types without SLA and for priorities without configured hours.
func (p Policy) DueTime(entityType domain.EntityType, priority domain.Priority, from time.Time) *time.Time {
	if entityType != domain.EntityTypeTicket {
		return nil
	}
	if priority == "" {
		priority = domain.PriorityMedium
	}
	hours, found := p.Hours[priority]
	if !found || hours <= 0 {
		return nil
	}
	due := from.Add(time.Duration(hours) * time.Hour)
	return &due
}

// ScanBreaches marks overdue open tickets as breached and records each breach. It returns the number of
// tickets marked. A ticket changed concurrently is left for the next scan.
func ScanBreaches(ctx context.Context, now time.Time) (int, error) {
	table, found := workflow.ActiveRegistry.Table(domain.EntityTypeTicket)
	if !found {
		return 0, nil
	}
	db := persistence.ActiveDataSourceManager.GormDB(ctx)

	q := db.Where("entity_type = ? AND sla_breached = ? AND due_time IS NOT NULL AND due_time < ?",
		domain.EntityTypeTicket, false, now)
	if terminals := table.TerminalStates(); len(terminals) > 0 {
		q = q.Where("state NOT IN (?)", terminals)
	}
	var overdue []domain.Entity
	if err := q.Order("due_time ASC").Find(&overdue).Error; err != nil {
		return 0, err
	}

	marked := 0
	for _, e := range overdue {
		result := db.Model(&domain.Entity{}).Where("id = ? AND version = ?", e.ID, e.Version).
			Updates(map[string]interface{}{
				"sla_breached":    true,
				"sla_breached_at": now,
				"version":         e.Version + 1,
				"update_time":     now,
			})
		if result.Error != nil {
			return marked, result.Error
		}
		if result.RowsAffected == 0 {
			continue
		}
		marked++

		details := activity.Details{Metadata: map[string]interface{}{"dueTime": e.DueTime, "state": e.State}}
		if _, err := activity.LogFunc(ctx, e.EntityType, e.ID, authority.SystemActor.ID, activity.ActionSlaBreached, details); err != nil {
			logrus.WithError(err).WithField("entityId", e.ID).Error("sla breach marked but its record was not written")
		}
	}
	return marked, nil
}

func RegisterCron(c *cron.Cron, schedule string) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		marked, err := ScanBreachesFunc(context.Background(), common.NowUTC())
		if err != nil {
			logrus.Errorf("sla scan: %v", err)
			return
		}
		if marked > 0 {
			logrus.Infof("sla scan: %d ticket(s) breached", marked)
		}
	})
}
