package scheduler

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/ternarybob/arbor"
)

func newTestScheduler(t *testing.T) *Service {
	t.Helper()
	return NewService(arbor.NewLogger())
}

func TestScheduler_RegisterJob(t *testing.T) {
	service := newTestScheduler(t)

	err := service.RegisterJob("draft-sweep", "*/30 * * * *", func() error { return nil })
	require.NoError(t, err)

	statuses := service.GetAllJobStatuses()
	require.Contains(t, statuses, "draft-sweep")
	assert.Equal(t, "*/30 * * * *", statuses["draft-sweep"].Schedule)
	assert.False(t, statuses["draft-sweep"].IsRunning)
	assert.Nil(t, statuses["draft-sweep"].LastRun)
}

func TestScheduler_RegisterJobValidation(t *testing.T) {
	service := newTestScheduler(t)

	err := service.RegisterJob("bad-schedule", "not a cron expr", func() error { return nil })
	assert.Error(t, err)

	err = service.RegisterJob("too-frequent", "* * * * *", func() error { return nil })
	assert.Error(t, err)

	err = service.RegisterJob("no-handler", "0 * * * *", nil)
	assert.Error(t, err)

	require.NoError(t, service.RegisterJob("gc", "0 * * * *", func() error { return nil }))
	err = service.RegisterJob("gc", "0 * * * *", func() error { return nil })
	assert.Error(t, err, "duplicate registration should fail")
}

func TestScheduler_StartStop(t *testing.T) {
	service := newTestScheduler(t)
	require.NoError(t, service.RegisterJob("gc", "0 * * * *", func() error { return nil }))

	assert.False(t, service.IsRunning())

	require.NoError(t, service.Start())
	assert.True(t, service.IsRunning())

	assert.Error(t, service.Start(), "second start should fail")

	require.NoError(t, service.Stop())
	assert.False(t, service.IsRunning())

	assert.NoError(t, service.Stop(), "stopping a stopped scheduler is a no-op")
}

func TestScheduler_TriggerJob(t *testing.T) {
	service := newTestScheduler(t)

	var runs atomic.Int32
	require.NoError(t, service.RegisterJob("sweep", "*/30 * * * *", func() error {
		runs.Add(1)
		return nil
	}))

	require.NoError(t, service.TriggerJob("sweep"))

	require.Eventually(t, func() bool {
		status := service.GetAllJobStatuses()["sweep"]
		return status != nil && status.LastRun != nil && !status.IsRunning
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, int32(1), runs.Load())
	assert.Empty(t, service.GetAllJobStatuses()["sweep"].LastError)
}

func TestScheduler_TriggerUnknownJob(t *testing.T) {
	service := newTestScheduler(t)
	assert.Error(t, service.TriggerJob("missing"))
}

func TestScheduler_JobFailureRecorded(t *testing.T) {
	service := newTestScheduler(t)

	require.NoError(t, service.RegisterJob("failing", "0 * * * *", func() error {
		return assert.AnError
	}))

	require.NoError(t, service.TriggerJob("failing"))

	require.Eventually(t, func() bool {
		status := service.GetAllJobStatuses()["failing"]
		return status != nil && status.LastRun != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.Equal(t, assert.AnError.Error(), service.GetAllJobStatuses()["failing"].LastError)
}

func TestScheduler_PanicRecovered(t *testing.T) {
	service := newTestScheduler(t)

	require.NoError(t, service.RegisterJob("panicking", "0 * * * *", func() error {
		panic("boom")
	}))

	require.NoError(t, service.TriggerJob("panicking"))

	require.Eventually(t, func() bool {
		status := service.GetAllJobStatuses()["panicking"]
		return status != nil && status.LastError != ""
	}, 2*time.Second, 10*time.Millisecond)

	assert.Contains(t, service.GetAllJobStatuses()["panicking"].LastError, "panic")
	assert.False(t, service.GetAllJobStatuses()["panicking"].IsRunning)
}

func TestScheduler_NextRunPopulatedWhenRunning(t *testing.T) {
	service := newTestScheduler(t)
	require.NoError(t, service.RegisterJob("gc", "0 * * * *", func() error { return nil }))

	require.NoError(t, service.Start())
	defer func() { _ = service.Stop() }()

	require.Eventually(t, func() bool {
		status := service.GetAllJobStatuses()["gc"]
		return status != nil && status.NextRun != nil
	}, 2*time.Second, 10*time.Millisecond)

	assert.True(t, service.GetAllJobStatuses()["gc"].NextRun.After(time.Now()))
}
