package scheduler

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/eventdesk/eventdesk/internal/metrics"
	"github.com/eventdesk/eventdesk/internal/models"
	"github.com/eventdesk/eventdesk/internal/repo"
	"github.com/robfig/cron/v3"
)

// Run starts a background cron job that rolls event statuses (scheduled to
// ongoing, ongoing to completed) every intervalSeconds. The returned cron can
// be stopped on shutdown. Listing also rolls statuses on demand; this job
// keeps the table current between requests.
func Run(events *repo.EventRepo, intervalSeconds int) (*cron.Cron, error) {
	c := cron.New(cron.WithSeconds())

	spec := fmt.Sprintf("@every %ds", intervalSeconds)
	_, err := c.AddFunc(spec, func() {
		ongoing, completed, err := events.RollStatuses(context.Background())
		if err != nil {
			slog.Error("scheduler: roll event statuses", "error", err)
			return
		}
		if ongoing > 0 {
			metrics.IncStatusTransitions(models.StatusOngoing, ongoing)
		}
		if completed > 0 {
			metrics.IncStatusTransitions(models.StatusCompleted, completed)
		}
		if ongoing > 0 || completed > 0 {
			slog.Info("scheduler: rolled event statuses", "ongoing", ongoing, "completed", completed)
		}
	})
	if err != nil {
		return nil, fmt.Errorf("scheduler: %w", err)
	}

	c.Start()
	return c, nil
}
