package indices

import (
	"github.com/assujiar/ugc-business-command-portal-sub003/client/es"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// RegisterCron schedules the periodic full sync, schedule takes the standard cron syntax or a descriptor like @daily.
func RegisterCron(c *cron.Cron, schedule string) (cron.EntryID, error) {
	return c.AddFunc(schedule, func() {
		if !es.Enabled() {
			return
		}
		if !startRun() {
			logrus.Info("indices full sync skipped, a run is in progress")
		}
	})
}
