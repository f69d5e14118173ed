package jobs

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeReminderSender struct {
	mu         sync.Mutex
	calls      int
	withinDays int
	err        error
}

func (f *fakeReminderSender) SendTrialEndingReminders(ctx context.Context, withinDays int) (int, int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	f.withinDays = withinDays
	if f.err != nil {
		return 0, 0, f.err
	}
	return 2, 0, nil
}

type fakeCleaner struct {
	calls int
	err   error
}

func (f *fakeCleaner) CleanupExpired(ctx context.Context) (int64, error) {
	f.calls++
	return 3, f.err
}

func TestScheduler_AddAndRemoveJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, s.AddJob("a", "0 0 8 * * *", func() {}))
	assert.Error(t, s.AddJob("a", "0 0 8 * * *", func() {}), "duplicate names are rejected")
	assert.Error(t, s.AddJob("b", "not a cron", func() {}))

	assert.ElementsMatch(t, []string{"a"}, s.GetJobNames())

	require.NoError(t, s.RemoveJob("a"))
	assert.Error(t, s.RemoveJob("a"))
	assert.Empty(t, s.GetJobNames())
}

func TestRegisterJobs(t *testing.T) {
	s := NewScheduler(zap.NewNop())

	require.NoError(t, RegisterTrialReminderJob(s, &fakeReminderSender{}, 3, zap.NewNop(), "0 0 8 * * *", time.Minute))
	require.NoError(t, RegisterOTPCleanupJob(s, &fakeCleaner{}, zap.NewNop(), "0 0 * * * *", time.Minute))

	assert.ElementsMatch(t, []string{TrialReminderJobName, OTPCleanupJobName}, s.GetJobNames())
}

func TestTrialReminderJob_Run(t *testing.T) {
	t.Run("passes the reminder window", func(t *testing.T) {
		sender := &fakeReminderSender{}
		NewTrialReminderJob(sender, 3, zap.NewNop(), time.Second).Run()

		assert.Equal(t, 1, sender.calls)
		assert.Equal(t, 3, sender.withinDays)
	})

	t.Run("survives a failing sender", func(t *testing.T) {
		sender := &fakeReminderSender{err: errors.New("db down")}
		assert.NotPanics(t, NewTrialReminderJob(sender, 3, zap.NewNop(), time.Second).Run)
		assert.Equal(t, 1, sender.calls)
	})
}

func TestOTPCleanupJob_Run(t *testing.T) {
	cleaner := &fakeCleaner{}
	NewOTPCleanupJob(cleaner, zap.NewNop(), time.Second).Run()
	assert.Equal(t, 1, cleaner.calls)

	failing := &fakeCleaner{err: errors.New("db down")}
	assert.NotPanics(t, NewOTPCleanupJob(failing, zap.NewNop(), time.Second).Run)
}
