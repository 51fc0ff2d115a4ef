package core

import (
	"context"

	"go.uber.org/zap"
)

// GenerateResult is the outcome of a full generation run.
type GenerateResult struct {
	// Task is the last task observed. For converted outputs it is the
	// convert task, and Source holds the generation task.
	Task   *Task
	Source *Task

	// Path is where the model was written.
	Path string
}

// Generate runs the whole pipeline for one input: validate, upload, submit,
// wait, convert when the requested format is not what the service
// produced, and download to dest.
//
// Validation failures return before any network call. When an error occurs
// after submission, the returned result is non-nil and carries the task
// state observed so far, so the caller can report the task id.
func (c *Client) Generate(ctx context.Context, in Input, opts GenerationOptions, dest string, onProgress ProgressFunc) (*GenerateResult, error) {
	req, uploads, err := c.prepare(in, opts)
	if err != nil {
		return nil, err
	}

	log := c.logger.With(zap.String("task_type", string(req.TaskType())))

	switch r := req.(type) {
	case *ImageRequest:
		f, err := c.Upload(ctx, uploads[0])
		if err != nil {
			return nil, err
		}
		r.Image = f
	case *MultiviewRequest:
		views, err := c.UploadMany(ctx, uploads)
		if err != nil {
			return nil, err
		}
		r.Views = views
	}

	task, err := c.Submit(ctx, req)
	if err != nil {
		return nil, err
	}
	log = log.With(zap.String("task_id", task.ID))
	log.Info("task submitted")

	res := &GenerateResult{Task: task}
	task, err = c.Wait(ctx, task, onProgress)
	res.Task = task
	if err != nil {
		return res, err
	}

	want := req.Options().Format
	if producedFormat(task) != want {
		log.Info("converting model", zap.String("format", string(want)))
		res.Source = task
		conv, err := c.Convert(ctx, task, want, ConvertOptions{Quad: opts.Quad, FaceLimit: opts.FaceLimit})
		if err != nil {
			return res, err
		}
		res.Task = conv
		conv, err = c.Wait(ctx, conv, onProgress)
		res.Task = conv
		if err != nil {
			return res, err
		}
		task = conv
	}

	path, err := c.Download(ctx, task, dest)
	if err != nil {
		return res, err
	}
	res.Path = path
	log.Info("model saved", zap.String("path", path))
	return res, nil
}

// prepare validates the input and options without touching the network and
// returns the request skeleton plus the local files still to upload.
func (c *Client) prepare(in Input, opts GenerationOptions) (GenerationRequest, []string, error) {
	if in == nil {
		return nil, nil, inputError("input", "no input given")
	}
	if err := in.validate(); err != nil {
		return nil, nil, err
	}
	if err := opts.Validate(); err != nil {
		return nil, nil, err
	}

	switch v := in.(type) {
	case ImageInput:
		if err := ValidateImagePath(v.Path); err != nil {
			return nil, nil, err
		}
		return &ImageRequest{GenerationOptions: opts}, []string{v.Path}, nil
	case MultiviewInput:
		for i, p := range v.Paths {
			if err := ValidateImagePath(p); err != nil {
				return nil, nil, &UploadError{Index: i, Path: p, Err: err}
			}
		}
		return &MultiviewRequest{GenerationOptions: opts}, v.Paths, nil
	case TextInput:
		return &TextRequest{Prompt: v.Prompt, NegativePrompt: v.NegativePrompt, GenerationOptions: opts}, nil, nil
	default:
		return nil, nil, inputError("input", "unsupported input %T", in)
	}
}

// producedFormat is the format the server reported for a succeeded task.
// Generation tasks without an explicit format produce GLB.
func producedFormat(t *Task) Format {
	if t.Result != nil && t.Result.Format != "" {
		return t.Result.Format
	}
	return DefaultFormat
}
