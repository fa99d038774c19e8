package worker_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/vytor/cfpractice/internal/models"
	"github.com/vytor/cfpractice/internal/services"
	"github.com/vytor/cfpractice/internal/testutil/mocks"
	"github.com/vytor/cfpractice/internal/worker"
)

type settingsStub struct {
	values map[string]string
}

func (s *settingsStub) Get(ctx context.Context, key string) (string, bool, error) {
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *settingsStub) Set(ctx context.Context, key, value string) error {
	s.values[key] = value
	return nil
}

func (s *settingsStub) Delete(ctx context.Context, key string) error {
	delete(s.values, key)
	return nil
}

func (s *settingsStub) All(ctx context.Context) (map[string]string, error) {
	return s.values, nil
}

func TestQuickRecheckJob_NoLastHandleIsNoOp(t *testing.T) {
	progress := new(mocks.MockProgressService)
	job := &worker.QuickRecheckJob{
		Progress: progress,
		Settings: &settingsStub{values: map[string]string{}},
	}

	err := job.Run(context.Background())
	require.NoError(t, err)
	progress.AssertNotCalled(t, "Recheck", mock.Anything, mock.Anything)
}

func TestQuickRecheckJob_RechecksLastHandle(t *testing.T) {
	progress := new(mocks.MockProgressService)
	progress.On("Recheck", mock.Anything, "tourist").
		Return(&services.Overview{User: &models.UserData{Handle: "tourist"}}, nil)

	job := &worker.QuickRecheckJob{
		Progress: progress,
		Settings: &settingsStub{values: map[string]string{services.SettingLastHandle: "tourist"}},
	}

	err := job.Run(context.Background())
	require.NoError(t, err)
	progress.AssertExpectations(t)
}

type recordedJob struct {
	done chan struct{}
}

func (j *recordedJob) Name() string { return "recorded" }

func (j *recordedJob) Run(ctx context.Context) error {
	close(j.done)
	return nil
}

func TestPoolRunsSubmittedJobs(t *testing.T) {
	pool := worker.NewPool(1, 4)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	pool.Start(ctx)
	defer pool.Stop()

	job := &recordedJob{done: make(chan struct{})}
	require.True(t, pool.Submit(job))

	select {
	case <-job.done:
	case <-time.After(2 * time.Second):
		t.Fatal("job was not executed")
	}
}

func TestPoolDropsWhenQueueFull(t *testing.T) {
	// Never started, so nothing drains the queue.
	pool := worker.NewPool(1, 1)

	assert.True(t, pool.Submit(&recordedJob{done: make(chan struct{})}))
	assert.False(t, pool.Submit(&recordedJob{done: make(chan struct{})}))
	assert.Equal(t, 1, pool.QueueSize())
}
