package indices

import (
	cron "github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// DefaultSyncSchedule runs the full sync every night at 23:00.
const DefaultSyncSchedule = "0 0 23 * * ?"

// StartCron schedules the nightly full sync, the caller stops the returned cron on shutdown.
func StartCron(schedule string) (*cron.Cron, error) {
	if schedule == "" {
		schedule = DefaultSyncSchedule
	}
	crontab := cron.New(cron.WithSeconds())
	if _, err := crontab.AddFunc(schedule, func() {
		if !startSyncRun() {
			logrus.Info("indices full sync skipped, a run is in progress")
		}
	}); err != nil {
		return nil, err
	}
	crontab.Start()
	return crontab, nil
}
