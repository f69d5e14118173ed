package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// TrialReminderJobName is the name of the trial ending reminder job
const TrialReminderJobName = "trial-ending-reminders"

// TrialReminderSender sends trial_ending notifications.
// Implemented by service.TrialReminderService.
type TrialReminderSender interface {
	SendTrialEndingReminders(ctx context.Context, withinDays int) (sent int, failed int, err error)
}

// TrialReminderJob reminds trialing users a few days before their trial ends
type TrialReminderJob struct {
	sender     TrialReminderSender
	withinDays int
	logger     *zap.Logger
	timeout    time.Duration
}

// NewTrialReminderJob creates a new trial reminder job
func NewTrialReminderJob(sender TrialReminderSender, withinDays int, logger *zap.Logger, timeout time.Duration) *TrialReminderJob {
	return &TrialReminderJob{
		sender:     sender,
		withinDays: withinDays,
		logger:     logger,
		timeout:    timeout,
	}
}

// Run executes one reminder pass. Called by the scheduler.
func (j *TrialReminderJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	start := time.Now()
	sent, failed, err := j.sender.SendTrialEndingReminders(ctx, j.withinDays)
	if err != nil {
		j.logger.Error("trial reminder job failed",
			zap.Error(err),
			zap.Duration("duration", time.Since(start)))
		return
	}

	j.logger.Info("trial reminder job completed",
		zap.Int("sent", sent),
		zap.Int("failed", failed),
		zap.Int("within_days", j.withinDays),
		zap.Duration("duration", time.Since(start)))
}

// RegisterTrialReminderJob registers the trial reminder job with the scheduler
func RegisterTrialReminderJob(scheduler *Scheduler, sender TrialReminderSender, withinDays int, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewTrialReminderJob(sender, withinDays, logger, timeout)
	return scheduler.AddJob(TrialReminderJobName, cronExpr, job.Run)
}
