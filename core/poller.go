package core

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
)

// StatusFetcher performs a single task status query.
type StatusFetcher interface {
	TaskStatus(ctx context.Context, taskID string) (*Task, error)
}

// StatusFetcherFunc adapts a function to StatusFetcher.
type StatusFetcherFunc func(ctx context.Context, taskID string) (*Task, error)

// TaskStatus calls f.
func (f StatusFetcherFunc) TaskStatus(ctx context.Context, taskID string) (*Task, error) {
	return f(ctx, taskID)
}

// PollConfig configures the wait loop.
type PollConfig struct {
	// Interval is the delay between successful status queries (default: 2s).
	Interval time.Duration

	// Jitter randomizes Interval by ±Jitter (0.0-1.0). Zero disables it.
	Jitter float64

	// MaxConsecutiveErrors is the number of transient failures in a row that
	// are tolerated before Wait gives up with a PollError (default: 3).
	MaxConsecutiveErrors int

	// Timeout bounds the total wall-clock wait (default: 10m).
	Timeout time.Duration

	// HonorRetryAfter makes the poller wait at least the server's Retry-After
	// duration after a rate-limit response.
	HonorRetryAfter bool

	// Retry overrides the delay schedule after transient failures. It picks
	// delays only; MaxConsecutiveErrors alone decides when to give up. By
	// default delays start at Interval and double, capped at 30s.
	Retry RetryPolicy
}

// DefaultPollConfig returns a 2s interval with 10% jitter, a budget of three
// consecutive transient errors and a 10 minute timeout.
func DefaultPollConfig() PollConfig {
	return PollConfig{
		Interval:             2 * time.Second,
		Jitter:               0.1,
		MaxConsecutiveErrors: 3,
		Timeout:              10 * time.Minute,
	}
}

func (c PollConfig) withDefaults() PollConfig {
	def := DefaultPollConfig()
	if c.Interval <= 0 {
		c.Interval = def.Interval
	}
	if c.Jitter < 0 || c.Jitter > 1 {
		c.Jitter = def.Jitter
	}
	if c.MaxConsecutiveErrors <= 0 {
		c.MaxConsecutiveErrors = def.MaxConsecutiveErrors
	}
	if c.Timeout <= 0 {
		c.Timeout = def.Timeout
	}
	if c.Retry == nil {
		c.Retry = NewRetryPolicy(RetryConfig{
			MaxRetries: c.MaxConsecutiveErrors,
			BaseDelay:  c.Interval,
			MaxDelay:   max(30*time.Second, c.Interval),
			Jitter:     c.Jitter,
		})
	}
	return c
}

// Poller drives a task to a terminal state by repeatedly querying its status.
// A Poller holds no per-task state and may be shared by concurrent Wait calls.
type Poller struct {
	fetch  StatusFetcher
	cfg    PollConfig
	logger *zap.Logger
}

// NewPoller creates a Poller. A nil logger disables logging.
func NewPoller(fetch StatusFetcher, cfg PollConfig, logger *zap.Logger) *Poller {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Poller{
		fetch:  fetch,
		cfg:    cfg.withDefaults(),
		logger: logger.With(zap.String("component", "poller")),
	}
}

// Config returns the effective configuration, with defaults applied.
func (p *Poller) Config() PollConfig {
	return p.cfg
}

// Wait polls until the task reaches a terminal state and returns the final task.
//
// onProgress (may be nil) is invoked synchronously once per distinct
// (percent, status) pair, in the order observed. Wait returns:
//   - the succeeded task and a nil error;
//   - a *GenerationFailedError when the server reports failed or cancelled;
//   - a *PollError when more than MaxConsecutiveErrors transient failures occur in a row;
//   - ErrTimeout when Timeout elapses (the remote task is left running);
//   - ctx.Err() wrapped, when the caller cancels ctx;
//   - any non-transient transport error, unchanged.
//
// On error the returned task carries the last observed state, with status
// timed_out or errored for local failures.
func (p *Poller) Wait(ctx context.Context, task *Task, onProgress ProgressFunc) (*Task, error) {
	if task == nil || task.ID == "" {
		return nil, fmt.Errorf("%w: cannot wait on a task without an id", ErrInvalidState)
	}

	current := task.Clone()
	if current.Status.IsTerminal() {
		return p.finish(current)
	}

	waitCtx, cancel := context.WithTimeout(ctx, p.cfg.Timeout)
	defer cancel()

	log := p.logger.With(zap.String("task_id", current.ID))
	start := time.Now()
	var (
		last     *ProgressEvent
		failures int
	)

	for {
		polled, err := p.fetch.TaskStatus(waitCtx, current.ID)
		if err != nil {
			if waitCtx.Err() != nil {
				return p.interrupted(ctx, current, start)
			}
			if !IsTransient(err) {
				current.Status = StatusErrored
				return current, err
			}

			failures++
			if failures > p.cfg.MaxConsecutiveErrors {
				current.Status = StatusErrored
				log.Warn("giving up after consecutive poll failures",
					zap.Int("failures", failures), zap.Error(err))
				return current, &PollError{TaskID: current.ID, Attempts: failures, Err: err}
			}
			delay, ok := p.cfg.Retry.NextDelay(failures-1, err)
			if !ok {
				delay = p.cfg.Interval
			}
			if p.cfg.HonorRetryAfter {
				var apiErr *APIError
				if errors.As(err, &apiErr) && apiErr.RetryAfter > delay {
					delay = apiErr.RetryAfter
				}
			}
			log.Warn("status query failed, will retry",
				zap.Int("failures", failures),
				zap.Duration("delay", delay),
				zap.Error(err))
			if sleepCtx(waitCtx, delay) != nil {
				return p.interrupted(ctx, current, start)
			}
			continue
		}

		failures = 0
		merge(current, polled)

		ev := ProgressEvent{TaskID: current.ID, Percent: current.Progress, Status: current.Status}
		if last == nil || last.Percent != ev.Percent || last.Status != ev.Status {
			log.Debug("task progress", zap.String("status", string(ev.Status)), zap.Int("progress", ev.Percent))
			if onProgress != nil {
				onProgress(ev)
			}
			last = &ev
		}

		if current.Status.IsTerminal() {
			return p.finish(current)
		}

		if sleepCtx(waitCtx, p.interval()) != nil {
			return p.interrupted(ctx, current, start)
		}
	}
}

func (p *Poller) finish(t *Task) (*Task, error) {
	switch t.Status {
	case StatusSucceeded:
		return t, nil
	case StatusFailed, StatusCancelled:
		return t, &GenerationFailedError{TaskID: t.ID, Status: t.Status, Reason: t.Message}
	default:
		return t, fmt.Errorf("%w: task %s is %s", ErrInvalidState, t.ID, t.Status)
	}
}

// interrupted distinguishes caller cancellation from the poll timeout.
func (p *Poller) interrupted(parent context.Context, t *Task, start time.Time) (*Task, error) {
	if err := parent.Err(); err != nil {
		p.logger.Debug("wait abandoned by caller", zap.String("task_id", t.ID))
		return t, fmt.Errorf("waiting for task %s abandoned: %w", t.ID, err)
	}
	t.Status = StatusTimedOut
	return t, fmt.Errorf("%w: task %s not finished after %s", ErrTimeout, t.ID, time.Since(start).Round(time.Millisecond))
}

func (p *Poller) interval() time.Duration {
	d := float64(p.cfg.Interval)
	if p.cfg.Jitter > 0 {
		d += jitter(d, p.cfg.Jitter)
	}
	return time.Duration(d)
}

// merge copies server-observed fields onto the tracked task. The requested
// Format is local knowledge and is kept.
func merge(dst, src *Task) {
	if src == nil {
		return
	}
	dst.Status = src.Status
	dst.Progress = src.Progress
	dst.Message = src.Message
	if src.Type != "" {
		dst.Type = src.Type
	}
	if src.Result != nil {
		r := *src.Result
		dst.Result = &r
	}
	if dst.CreatedAt.IsZero() {
		dst.CreatedAt = src.CreatedAt
	}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
