package tripo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
)

// maxResponseBytes caps how much of an API response body is read.
const maxResponseBytes = 8 << 20

// send executes one authenticated API request. The caller must close the body.
func (p *Tripo) send(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if p.limiter != nil {
		if err := p.limiter.Wait(ctx); err != nil {
			return nil, p.contextError(ctx, err)
		}
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, p.config.BaseURL+path, body)
	if err != nil {
		return nil, newNetworkError(err)
	}
	for key, values := range p.buildHeaders() {
		for _, v := range values {
			httpReq.Header.Add(key, v)
		}
	}
	if contentType != "" {
		httpReq.Header.Set("Content-Type", contentType)
	}
	httpReq.Header.Set("Accept", "application/json")

	resp, err := p.config.HTTPClient.Do(httpReq)
	if err != nil {
		return nil, p.contextError(ctx, err)
	}
	return resp, nil
}

// do performs an API call and decodes the envelope's data into out.
// A nil out skips decoding of data.
func (p *Tripo) do(ctx context.Context, method, path string, body io.Reader, contentType string, out any) error {
	if p.config.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.config.Timeout)
		defer cancel()
	}

	start := time.Now()
	resp, err := p.send(ctx, method, path, body, contentType)
	if err != nil {
		p.logger.Debug("request failed", zap.String("method", method), zap.String("path", path), zap.Error(err))
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return p.contextError(ctx, err)
	}

	p.logger.Debug("request completed",
		zap.String("method", method),
		zap.String("path", path),
		zap.Int("status", resp.StatusCode),
		zap.Duration("duration", time.Since(start)),
		zap.String("request_id", resp.Header.Get("X-Request-Id")),
	)

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return normalizeError(resp.StatusCode, respBody, resp.Header)
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return newDecodeError(resp.StatusCode, fmt.Errorf("decoding response envelope: %w", err))
	}
	if env.Code == nil {
		return newDecodeError(resp.StatusCode, errors.New("response envelope has no code"))
	}
	if *env.Code != 0 {
		return envelopeError(resp, *env.Code, env.Message, env.Suggestion)
	}
	if out == nil {
		return nil
	}
	if len(env.Data) == 0 || string(env.Data) == "null" {
		return newDecodeError(resp.StatusCode, errors.New("response envelope has no data"))
	}
	if err := json.Unmarshal(env.Data, out); err != nil {
		return newDecodeError(resp.StatusCode, fmt.Errorf("decoding response data: %w", err))
	}
	return nil
}

// contextError reports caller cancellation as context.Canceled. Deadlines and
// everything else are transport failures.
func (p *Tripo) contextError(ctx context.Context, err error) error {
	if errors.Is(ctx.Err(), context.Canceled) {
		return fmt.Errorf("%s: %w", providerID, ctx.Err())
	}
	return newNetworkError(err)
}
