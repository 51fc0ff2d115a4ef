package tripo

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"github.com/mberenty7/tripo-tools/core"
)

// tempFile is the partial file a download is written to.
type tempFile interface {
	io.Writer
	Sync() error
	Close() error
	Name() string
}

func osCreateTemp(dir, pattern string) (tempFile, error) {
	return os.CreateTemp(dir, pattern)
}

// Download streams the model of a succeeded task to dest and returns dest.
//
// The body is written to a hidden partial file next to dest, synced, then
// renamed over dest, so dest is either absent or complete. A task that has
// not succeeded, has no model URL, or whose produced format differs from the
// requested one fails with ErrInvalidState before any network call.
func (p *Tripo) Download(ctx context.Context, task *core.Task, dest string) (string, error) {
	if task == nil {
		return "", fmt.Errorf("%w: no task to download", core.ErrInvalidState)
	}
	if task.Status != core.StatusSucceeded {
		return "", fmt.Errorf("%w: task %s is %s, not succeeded", core.ErrInvalidState, task.ID, task.Status)
	}
	modelURL := task.Result.DownloadURL()
	if modelURL == "" {
		return "", fmt.Errorf("%w: task %s has no model url", core.ErrInvalidState, task.ID)
	}
	if task.Format != "" && task.Result.Format != "" && task.Format != task.Result.Format {
		return "", fmt.Errorf("%w: task %s produced %s but %s was requested", core.ErrInvalidState, task.ID, task.Result.Format, task.Format)
	}
	if dest == "" {
		return "", &core.ValidationError{Field: "dest", Reason: "must not be empty", Err: core.ErrInput}
	}

	dir := filepath.Dir(dest)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("%w: creating %s: %v", core.ErrIO, dir, err)
	}

	resp, err := p.fetch(ctx, modelURL)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", normalizeError(resp.StatusCode, body, resp.Header)
	}

	n, err := p.writeAtomic(ctx, dest, resp)
	if err != nil {
		return "", err
	}

	p.logger.Debug("model downloaded",
		zap.String("task_id", task.ID),
		zap.String("path", dest),
		zap.Int64("bytes", n))
	return dest, nil
}

// fetch issues a GET for a signed asset URL. The API key is not sent to
// asset hosts.
func (p *Tripo) fetch(ctx context.Context, rawURL string) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, newProtocolError("invalid model url: %v", err)
	}
	req.Header.Set("User-Agent", p.config.UserAgent)

	resp, err := p.config.HTTPClient.Do(req)
	if err != nil {
		return nil, p.contextError(ctx, err)
	}
	return resp, nil
}

// writeAtomic streams resp into a temp file beside dest and renames it into
// place. The temp file is removed on every failure path.
func (p *Tripo) writeAtomic(ctx context.Context, dest string, resp *http.Response) (n int64, err error) {
	tmp, err := p.createTemp(filepath.Dir(dest), "."+filepath.Base(dest)+".*.part")
	if err != nil {
		return 0, fmt.Errorf("%w: creating temp file: %v", core.ErrIO, err)
	}
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmp.Name())
		}
	}()

	src := &readTracker{r: resp.Body}
	n, err = io.Copy(tmp, src)
	if err != nil {
		if src.err != nil {
			return n, p.contextError(ctx, src.err)
		}
		return n, fmt.Errorf("%w: writing %s: %v", core.ErrIO, dest, err)
	}
	if resp.ContentLength >= 0 && n != resp.ContentLength {
		return n, newNetworkError(fmt.Errorf("download truncated: got %d of %d bytes", n, resp.ContentLength))
	}
	if err := tmp.Sync(); err != nil {
		return n, fmt.Errorf("%w: syncing %s: %v", core.ErrIO, tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return n, fmt.Errorf("%w: closing %s: %v", core.ErrIO, tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), dest); err != nil {
		return n, fmt.Errorf("%w: renaming to %s: %v", core.ErrIO, dest, err)
	}
	committed = true
	return n, nil
}

// readTracker records read-side failures so they can be told apart from
// write failures after io.Copy.
type readTracker struct {
	r   io.Reader
	err error
}

func (t *readTracker) Read(p []byte) (int, error) {
	n, err := t.r.Read(p)
	if err != nil && !errors.Is(err, io.EOF) {
		t.err = err
	}
	return n, err
}
