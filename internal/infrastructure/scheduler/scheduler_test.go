package scheduler

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type funcJob struct {
	name string
	run  func(ctx context.Context) error
}

func (j *funcJob) Name() string                  { return j.name }
func (j *funcJob) Description() string           { return "test job " + j.name }
func (j *funcJob) Run(ctx context.Context) error { return j.run(ctx) }

func newTestScheduler() *Scheduler {
	cfg := DefaultSchedulerConfig()
	cfg.TickInterval = 5 * time.Millisecond
	return NewScheduler(cfg)
}

func TestScheduler_RunsDueJobsWithoutOverlap(t *testing.T) {
	s := newTestScheduler()

	var runs, inFlight, overlaps atomic.Int32
	job := &funcJob{name: "slow", run: func(ctx context.Context) error {
		if inFlight.Add(1) > 1 {
			overlaps.Add(1)
		}
		time.Sleep(20 * time.Millisecond)
		inFlight.Add(-1)
		runs.Add(1)
		return nil
	}}
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool { return runs.Load() >= 3 }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())

	assert.Zero(t, overlaps.Load())
	assert.False(t, s.IsRunning())
}

func TestScheduler_SurvivesFailuresAndPanics(t *testing.T) {
	s := newTestScheduler()

	var failing, panicking atomic.Int32
	require.NoError(t, s.Register(&funcJob{name: "failing", run: func(context.Context) error {
		failing.Add(1)
		return errors.New("boom")
	}}, NewIntervalSchedule(time.Millisecond)))
	require.NoError(t, s.Register(&funcJob{name: "panicking", run: func(context.Context) error {
		panicking.Add(1)
		panic("kaboom")
	}}, NewIntervalSchedule(time.Millisecond)))

	require.NoError(t, s.Start(context.Background()))
	assert.Eventually(t, func() bool {
		return failing.Load() >= 2 && panicking.Load() >= 2
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, s.Stop())

	snap := s.GetMetrics().Snapshot()
	assert.Equal(t, snap.TotalExecutions, snap.TotalFailures)

	infos := s.ListJobs()
	require.Len(t, infos, 2)
	assert.Equal(t, "failing", infos[0].Name)
	require.NotNil(t, infos[1].LastResult)
	assert.ErrorIs(t, infos[1].LastResult.Error, ErrJobPanicked)
}

func TestScheduler_RunNow(t *testing.T) {
	s := newTestScheduler()

	var runs atomic.Int32
	require.NoError(t, s.Register(&funcJob{name: "tally", run: func(context.Context) error {
		runs.Add(1)
		return nil
	}}, NewIntervalSchedule(time.Hour)))

	res, err := s.RunNow(context.Background(), "tally")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.True(t, res.Manual)
	assert.EqualValues(t, 1, runs.Load())

	_, err = s.RunNow(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrJobNotFound)
}

func TestScheduler_Registration(t *testing.T) {
	s := newTestScheduler()
	job := &funcJob{name: "a", run: func(context.Context) error { return nil }}

	assert.ErrorIs(t, s.Register(nil, NewIntervalSchedule(time.Hour)), ErrNilJob)
	assert.ErrorIs(t, s.Register(job, nil), ErrNilSchedule)
	require.NoError(t, s.Register(job, NewIntervalSchedule(time.Hour)))
	assert.ErrorIs(t, s.Register(job, NewIntervalSchedule(time.Hour)), ErrJobAlreadyExists)
}

func TestScheduler_Lifecycle(t *testing.T) {
	s := newTestScheduler()

	assert.ErrorIs(t, s.Stop(), ErrSchedulerNotRunning)
	require.NoError(t, s.Start(context.Background()))
	assert.ErrorIs(t, s.Start(context.Background()), ErrSchedulerAlreadyRunning)
	require.NoError(t, s.Stop())
}
