package core

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Job is one entry of a batch run.
type Job struct {
	Name       string
	Input      Input
	Options    GenerationOptions
	Output     string
	OnProgress ProgressFunc
}

// JobResult is the outcome of one Job. Err is nil on success.
type JobResult struct {
	Job  Job
	Task *Task
	Path string
	Err  error
}

// GenerateBatch runs jobs with at most concurrency pipelines in flight.
//
// A failing job does not stop the others. Results are returned in job
// order, and the error joins every job error (nil when all succeeded).
// Cancelling ctx stops jobs that have not started yet.
func (c *Client) GenerateBatch(ctx context.Context, jobs []Job, concurrency int) ([]JobResult, error) {
	if concurrency <= 0 {
		concurrency = 1
	}
	results := make([]JobResult, len(jobs))

	var g errgroup.Group
	g.SetLimit(concurrency)

	for i, job := range jobs {
		results[i].Job = job
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				results[i].Err = err
				return nil
			}
			res, err := c.Generate(ctx, job.Input, job.Options, job.Output, job.OnProgress)
			if res != nil {
				results[i].Task = res.Task
				results[i].Path = res.Path
			}
			if err != nil {
				c.logger.Warn("batch job failed", zap.String("job", job.Name), zap.Error(err))
				results[i].Err = err
			}
			return nil
		})
	}
	_ = g.Wait()

	var errs []error
	for i, r := range results {
		if r.Err != nil {
			errs = append(errs, fmt.Errorf("job %d (%s): %w", i, r.Job.Name, r.Err))
		}
	}
	return results, errors.Join(errs...)
}
