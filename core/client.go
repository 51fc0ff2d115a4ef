package core

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Provider is the interface a 3D generation backend implements.
// Providers SHOULD be safe for concurrent calls.
type Provider interface {
	// ID returns the provider identifier (e.g., "tripo").
	ID() string

	// Upload turns a local image into a server-side file token.
	Upload(ctx context.Context, path string) (UploadedFile, error)

	// Submit creates a generation task. The returned task is queued at 0%.
	Submit(ctx context.Context, req GenerationRequest) (*Task, error)

	// TaskStatus performs a single status query.
	TaskStatus(ctx context.Context, taskID string) (*Task, error)

	// Download writes the succeeded task's model to dest and returns dest.
	Download(ctx context.Context, task *Task, dest string) (string, error)

	// Balance returns the account credits.
	Balance(ctx context.Context) (*Balance, error)
}

// ConvertOptions tunes a server-side format conversion.
type ConvertOptions struct {
	Quad          bool
	FaceLimit     *int
	TextureSize   *int
	FlattenBottom bool
}

// Converter is an optional interface for providers that can convert a
// generated model into another format server-side.
type Converter interface {
	Convert(ctx context.Context, task *Task, format Format, opts ConvertOptions) (*Task, error)
}

// Client runs the upload → submit → poll → download pipeline on top of a Provider.
// Client is safe for concurrent use.
type Client struct {
	provider          Provider
	telemetry         TelemetryHook
	poll              PollConfig
	logger            *zap.Logger
	uploadConcurrency int
}

// ClientOption configures a Client.
type ClientOption func(*Client)

// NewClient creates a new Client with the given provider and options.
func NewClient(p Provider, opts ...ClientOption) *Client {
	c := &Client{
		provider:          p,
		telemetry:         NoopTelemetryHook{},
		poll:              DefaultPollConfig(),
		logger:            zap.NewNop(),
		uploadConcurrency: 1,
	}
	for _, opt := range opts {
		opt(c)
	}
	c.logger = c.logger.With(zap.String("provider", p.ID()))
	return c
}

// WithTelemetry sets the telemetry hook for the client.
func WithTelemetry(h TelemetryHook) ClientOption {
	return func(c *Client) {
		if h != nil {
			c.telemetry = h
		}
	}
}

// WithPollConfig sets the poll interval, retry budget and timeout used by Wait.
// Zero fields fall back to DefaultPollConfig.
func WithPollConfig(cfg PollConfig) ClientOption {
	return func(c *Client) {
		c.poll = cfg
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) ClientOption {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithUploadConcurrency sets how many multiview images are uploaded at once.
func WithUploadConcurrency(n int) ClientOption {
	return func(c *Client) {
		if n > 0 {
			c.uploadConcurrency = n
		}
	}
}

// Provider returns the underlying provider.
func (c *Client) Provider() Provider {
	return c.provider
}

// observe reports fn to the telemetry hook as one call.
func (c *Client) observe(op, taskID string, fn func() error) error {
	start := RequestStartEvent{
		CallID:    uuid.NewString(),
		Provider:  c.provider.ID(),
		Operation: op,
		TaskID:    taskID,
		Start:     time.Now(),
	}
	c.telemetry.OnRequestStart(start)
	err := fn()
	c.telemetry.OnRequestEnd(RequestEndEvent{
		CallID:    start.CallID,
		Provider:  start.Provider,
		Operation: op,
		TaskID:    taskID,
		Start:     start.Start,
		End:       time.Now(),
		Err:       err,
	})
	return err
}

// Upload uploads a single image.
func (c *Client) Upload(ctx context.Context, path string) (UploadedFile, error) {
	var f UploadedFile
	err := c.observe(OpUpload, "", func() (err error) {
		f, err = c.provider.Upload(ctx, path)
		return err
	})
	return f, err
}

// Submit validates req and creates a task. Invalid requests fail with
// ErrInput before the provider is called.
func (c *Client) Submit(ctx context.Context, req GenerationRequest) (*Task, error) {
	if req == nil {
		return nil, inputError("request", "nil generation request")
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}
	var t *Task
	err := c.observe(OpSubmit, "", func() (err error) {
		t, err = c.provider.Submit(ctx, req)
		return err
	})
	if err == nil && t != nil && t.Format == "" {
		t.Format = req.Options().Format
	}
	return t, err
}

// TaskStatus performs a single status query.
func (c *Client) TaskStatus(ctx context.Context, taskID string) (*Task, error) {
	var t *Task
	err := c.observe(OpStatus, taskID, func() (err error) {
		t, err = c.provider.TaskStatus(ctx, taskID)
		return err
	})
	return t, err
}

// Wait polls task to completion using the client's PollConfig.
// See Poller.Wait for the result contract.
func (c *Client) Wait(ctx context.Context, task *Task, onProgress ProgressFunc) (*Task, error) {
	return NewPoller(c, c.poll, c.logger).Wait(ctx, task, onProgress)
}

// Convert requests a server-side conversion of a succeeded task to format.
// The provider must implement Converter.
func (c *Client) Convert(ctx context.Context, task *Task, format Format, opts ConvertOptions) (*Task, error) {
	conv, ok := c.provider.(Converter)
	if !ok {
		return nil, fmt.Errorf("%w: provider %s cannot convert to %s", ErrInvalidState, c.provider.ID(), format)
	}
	if !format.IsValid() {
		return nil, inputError("format", "unsupported format %q", format)
	}
	if task == nil || task.Status != StatusSucceeded {
		return nil, fmt.Errorf("%w: only succeeded tasks can be converted", ErrInvalidState)
	}
	var t *Task
	err := c.observe(OpConvert, task.ID, func() (err error) {
		t, err = conv.Convert(ctx, task, format, opts)
		return err
	})
	return t, err
}

// Download writes the model of a succeeded task to dest.
func (c *Client) Download(ctx context.Context, task *Task, dest string) (string, error) {
	id := ""
	if task != nil {
		id = task.ID
	}
	var out string
	err := c.observe(OpDownload, id, func() (err error) {
		out, err = c.provider.Download(ctx, task, dest)
		return err
	})
	return out, err
}

// Balance returns the account credits.
func (c *Client) Balance(ctx context.Context) (*Balance, error) {
	var b *Balance
	err := c.observe(OpBalance, "", func() (err error) {
		b, err = c.provider.Balance(ctx)
		return err
	})
	return b, err
}
