package scheduler

import (
	"context"

	"github.com/healthcoach/notification-service/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/sirupsen/logrus"
)

// StartSweeperCronJobs schedules the hourly expiry sweep. The sweep itself is
// stateless and idempotent, so overlapping with a manual admin sweep is fine.
func StartSweeperCronJobs(notificationService *services.NotificationService) *cron.Cron {
	c := cron.New()

	c.AddFunc("@hourly", func() {
		count, err := notificationService.DeleteExpiredNotifications(context.Background())
		if err != nil {
			logrus.WithError(err).Error("Expired notification sweep failed")
			return
		}
		if count > 0 {
			logrus.WithField("count", count).Info("Expired notification sweep completed")
		}
	})

	c.Start()
	return c
}
