package core

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type pollStep struct {
	task *Task
	err  error
}

// scriptedFetcher replays steps in order and repeats the last one forever.
type scriptedFetcher struct {
	mu    sync.Mutex
	steps []pollStep
	calls int
}

func (f *scriptedFetcher) TaskStatus(ctx context.Context, taskID string) (*Task, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	i := f.calls
	if i >= len(f.steps) {
		i = len(f.steps) - 1
	}
	f.calls++
	s := f.steps[i]
	if s.err != nil {
		return nil, s.err
	}
	t := s.task.Clone()
	t.ID = taskID
	return t, nil
}

func (f *scriptedFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func state(status TaskStatus, progress int) pollStep {
	t := &Task{Status: status, Progress: progress}
	if status == StatusSucceeded {
		t.Result = &TaskResult{ModelURL: "https://cdn.example.com/m.glb", Format: FormatGLB}
	}
	return pollStep{task: t}
}

func failure(err error) pollStep {
	return pollStep{err: err}
}

func fastPoll() PollConfig {
	return PollConfig{Interval: time.Millisecond, MaxConsecutiveErrors: 3, Timeout: 5 * time.Second}
}

func queued(id string) *Task {
	return &Task{ID: id, Type: TaskImageToModel, Status: StatusQueued, Format: FormatGLB}
}

var errFlaky = &APIError{Provider: "test", Status: 503, Message: "unavailable", Err: ErrServer}

func TestPollerReportsDistinctProgress(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{
		state(StatusQueued, 0),
		state(StatusRunning, 30),
		state(StatusRunning, 30),
		state(StatusRunning, 70),
		state(StatusSucceeded, 100),
	}}

	var events []ProgressEvent
	task, err := NewPoller(f, fastPoll(), nil).Wait(context.Background(), queued("t1"), func(e ProgressEvent) {
		events = append(events, e)
	})
	require.NoError(t, err)

	assert.Equal(t, StatusSucceeded, task.Status)
	assert.Equal(t, 100, task.Progress)
	assert.Equal(t, FormatGLB, task.Format)
	assert.Equal(t, 5, f.Calls())
	assert.Equal(t, []ProgressEvent{
		{TaskID: "t1", Percent: 0, Status: StatusQueued},
		{TaskID: "t1", Percent: 30, Status: StatusRunning},
		{TaskID: "t1", Percent: 70, Status: StatusRunning},
		{TaskID: "t1", Percent: 100, Status: StatusSucceeded},
	}, events)
}

func TestPollerToleratesTransientErrors(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{
		failure(errFlaky),
		failure(fmt.Errorf("dial: %w", ErrTransport)),
		failure(errFlaky),
		state(StatusSucceeded, 100),
	}}

	task, err := NewPoller(f, fastPoll(), nil).Wait(context.Background(), queued("t2"), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, task.Status)
	assert.Equal(t, 4, f.Calls())
}

func TestPollerGivesUpAfterConsecutiveErrors(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{failure(errFlaky)}}

	task, err := NewPoller(f, fastPoll(), nil).Wait(context.Background(), queued("t3"), nil)
	require.Error(t, err)

	var pollErr *PollError
	require.ErrorAs(t, err, &pollErr)
	assert.Equal(t, "t3", pollErr.TaskID)
	assert.Equal(t, 4, pollErr.Attempts)
	assert.ErrorIs(t, err, ErrPoll)
	assert.ErrorIs(t, err, ErrServer)
	assert.Equal(t, "PollError", Kind(err))
	assert.Equal(t, StatusErrored, task.Status)
	assert.Equal(t, 4, f.Calls())
}

func TestPollerResetsErrorBudgetOnSuccess(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{
		failure(errFlaky),
		failure(errFlaky),
		failure(errFlaky),
		state(StatusRunning, 10),
		failure(errFlaky),
		failure(errFlaky),
		failure(errFlaky),
		state(StatusSucceeded, 100),
	}}

	_, err := NewPoller(f, fastPoll(), nil).Wait(context.Background(), queued("t4"), nil)
	require.NoError(t, err)
	assert.Equal(t, 8, f.Calls())
}

func TestPollerCustomRetryKeepsErrorBudget(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{
		failure(errFlaky),
		failure(errFlaky),
		failure(errFlaky),
		failure(errFlaky),
		state(StatusSucceeded, 100),
	}}
	cfg := fastPoll()
	cfg.Retry = NewRetryPolicy(RetryConfig{MaxRetries: 10, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})

	_, err := NewPoller(f, cfg, nil).Wait(context.Background(), queued("t12"), nil)

	var pollErr *PollError
	require.ErrorAs(t, err, &pollErr)
	assert.Equal(t, 4, pollErr.Attempts)
	assert.Equal(t, 4, f.Calls())
}

func TestPollerCustomRetryOnlyPicksDelay(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{
		failure(errFlaky),
		failure(errFlaky),
		failure(errFlaky),
		state(StatusSucceeded, 100),
	}}
	cfg := fastPoll()
	// Refuses after the first retry; the budget of three still applies.
	cfg.Retry = NewRetryPolicy(RetryConfig{MaxRetries: 1, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond})

	task, err := NewPoller(f, cfg, nil).Wait(context.Background(), queued("t13"), nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, task.Status)
	assert.Equal(t, 4, f.Calls())
}

func TestPollerNonTransientErrorSurfacesImmediately(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"auth", &APIError{Provider: "test", Status: 401, Err: ErrAuth}, ErrAuth},
		{"unknown status", fmt.Errorf("%w: unknown task status %q", ErrProtocol, "paused"), ErrProtocol},
		{"bad request", &APIError{Provider: "test", Status: 404, Err: ErrRequest}, ErrRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := &scriptedFetcher{steps: []pollStep{state(StatusRunning, 5), failure(tt.err)}}

			task, err := NewPoller(f, fastPoll(), nil).Wait(context.Background(), queued("t5"), nil)
			require.ErrorIs(t, err, tt.want)
			assert.NotErrorIs(t, err, ErrPoll)
			assert.Equal(t, StatusErrored, task.Status)
			assert.Equal(t, 5, task.Progress)
			assert.Equal(t, 2, f.Calls())
		})
	}
}

func TestPollerGenerationFailed(t *testing.T) {
	for _, status := range []TaskStatus{StatusFailed, StatusCancelled} {
		t.Run(string(status), func(t *testing.T) {
			failed := &Task{Status: status, Progress: 40, Message: "content policy violation"}
			f := &scriptedFetcher{steps: []pollStep{state(StatusRunning, 40), {task: failed}}}

			task, err := NewPoller(f, fastPoll(), nil).Wait(context.Background(), queued("t6"), nil)
			require.ErrorIs(t, err, ErrGenerationFailed)

			var genErr *GenerationFailedError
			require.ErrorAs(t, err, &genErr)
			assert.Equal(t, "t6", genErr.TaskID)
			assert.Equal(t, status, genErr.Status)
			assert.Equal(t, "content policy violation", genErr.Reason)
			assert.Equal(t, status, task.Status)
		})
	}
}

func TestPollerTimeout(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{state(StatusRunning, 50)}}
	cfg := fastPoll()
	cfg.Interval = 5 * time.Millisecond
	cfg.Timeout = 40 * time.Millisecond

	task, err := NewPoller(f, cfg, nil).Wait(context.Background(), queued("t7"), nil)
	require.ErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "TimeoutError", Kind(err))
	assert.Equal(t, StatusTimedOut, task.Status)
	assert.Equal(t, 50, task.Progress)
}

func TestPollerCancellationIsNotTimeout(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{state(StatusRunning, 20)}}
	cfg := fastPoll()
	cfg.Interval = 5 * time.Millisecond

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	task, err := NewPoller(f, cfg, nil).Wait(ctx, queued("t8"), nil)
	require.ErrorIs(t, err, context.Canceled)
	assert.NotErrorIs(t, err, ErrTimeout)
	assert.Equal(t, "Canceled", Kind(err))
	assert.Equal(t, StatusRunning, task.Status)
}

func TestPollerHonorsRetryAfter(t *testing.T) {
	limited := &APIError{Provider: "test", Status: 429, RetryAfter: 60 * time.Millisecond, Err: ErrRateLimited}
	f := &scriptedFetcher{steps: []pollStep{failure(limited), state(StatusSucceeded, 100)}}

	cfg := fastPoll()
	cfg.HonorRetryAfter = true

	start := time.Now()
	_, err := NewPoller(f, cfg, nil).Wait(context.Background(), queued("t9"), nil)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
}

func TestPollerTerminalTaskReturnsWithoutFetching(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{state(StatusRunning, 0)}}
	done := &Task{ID: "t10", Status: StatusSucceeded, Progress: 100}

	task, err := NewPoller(f, fastPoll(), nil).Wait(context.Background(), done, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusSucceeded, task.Status)
	assert.Zero(t, f.Calls())
}

func TestPollerRejectsTaskWithoutID(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{state(StatusRunning, 0)}}

	_, err := NewPoller(f, fastPoll(), nil).Wait(context.Background(), &Task{Status: StatusQueued}, nil)
	require.ErrorIs(t, err, ErrInvalidState)
	assert.Zero(t, f.Calls())
}

func TestPollerDoesNotMutateInputTask(t *testing.T) {
	f := &scriptedFetcher{steps: []pollStep{state(StatusSucceeded, 100)}}
	in := queued("t11")

	_, err := NewPoller(f, fastPoll(), nil).Wait(context.Background(), in, nil)
	require.NoError(t, err)
	assert.Equal(t, StatusQueued, in.Status)
	assert.Nil(t, in.Result)
}

func TestPollConfigDefaults(t *testing.T) {
	p := NewPoller(StatusFetcherFunc(func(context.Context, string) (*Task, error) {
		return nil, errors.New("unused")
	}), PollConfig{}, nil)

	cfg := p.Config()
	assert.Equal(t, 2*time.Second, cfg.Interval)
	assert.Equal(t, 3, cfg.MaxConsecutiveErrors)
	assert.Equal(t, 10*time.Minute, cfg.Timeout)
	assert.NotNil(t, cfg.Retry)
}
