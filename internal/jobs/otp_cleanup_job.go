package jobs

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// OTPCleanupJobName is the name of the expired code cleanup job
const OTPCleanupJobName = "otp-cleanup"

// OTPCleaner deletes expired verification codes.
// Implemented by service.OTPService.
type OTPCleaner interface {
	CleanupExpired(ctx context.Context) (int64, error)
}

// OTPCleanupJob purges expired email verification codes
type OTPCleanupJob struct {
	cleaner OTPCleaner
	logger  *zap.Logger
	timeout time.Duration
}

// NewOTPCleanupJob creates a new cleanup job
func NewOTPCleanupJob(cleaner OTPCleaner, logger *zap.Logger, timeout time.Duration) *OTPCleanupJob {
	return &OTPCleanupJob{cleaner: cleaner, logger: logger, timeout: timeout}
}

// Run executes one cleanup pass
func (j *OTPCleanupJob) Run() {
	ctx, cancel := context.WithTimeout(context.Background(), j.timeout)
	defer cancel()

	deleted, err := j.cleaner.CleanupExpired(ctx)
	if err != nil {
		j.logger.Error("otp cleanup job failed", zap.Error(err))
		return
	}
	if deleted > 0 {
		j.logger.Info("otp cleanup job completed", zap.Int64("deleted", deleted))
	}
}

// RegisterOTPCleanupJob registers the cleanup job with the scheduler
func RegisterOTPCleanupJob(scheduler *Scheduler, cleaner OTPCleaner, logger *zap.Logger, cronExpr string, timeout time.Duration) error {
	job := NewOTPCleanupJob(cleaner, logger, timeout)
	return scheduler.AddJob(OTPCleanupJobName, cronExpr, job.Run)
}
