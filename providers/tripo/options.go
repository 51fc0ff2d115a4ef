package tripo

import (
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// Config holds configuration for the Tripo provider.
type Config struct {
	// BaseURL is the API base URL. Defaults to https://api.tripo3d.ai/v2/openapi
	BaseURL string

	// HTTPClient is the HTTP client to use. Defaults to http.DefaultClient.
	HTTPClient *http.Client

	// Headers contains optional extra headers to include in API requests.
	Headers http.Header

	// Timeout bounds each API call. Model downloads are bounded only by the
	// caller's context.
	Timeout time.Duration

	// UserAgent overrides the User-Agent header.
	UserAgent string

	// Logger receives debug logs for every request. Defaults to a no-op logger.
	Logger *zap.Logger

	// RequestsPerSecond and Burst throttle outgoing API calls. Zero disables throttling.
	RequestsPerSecond float64
	Burst             int
}

// DefaultBaseURL is the default Tripo API base URL.
const DefaultBaseURL = "https://api.tripo3d.ai/v2/openapi"

// DefaultUserAgent is sent when no User-Agent is configured.
const DefaultUserAgent = "tripo-tools-go"

// Option configures the Tripo provider.
type Option func(*Config)

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Config) {
		c.HTTPClient = client
	}
}

// WithHeader adds an extra header to include in requests.
func WithHeader(key, value string) Option {
	return func(c *Config) {
		if c.Headers == nil {
			c.Headers = make(http.Header)
		}
		c.Headers.Set(key, value)
	}
}

// WithTimeout sets the per-call timeout for API requests.
func WithTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.Timeout = d
	}
}

// WithUserAgent sets the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Config) {
		c.UserAgent = ua
	}
}

// WithLogger sets the structured logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithRateLimit throttles API calls to rps requests per second with the given burst.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *Config) {
		c.RequestsPerSecond = rps
		c.Burst = burst
	}
}

func (c Config) limiter() *rate.Limiter {
	if c.RequestsPerSecond <= 0 {
		return nil
	}
	burst := c.Burst
	if burst <= 0 {
		burst = 1
	}
	return rate.NewLimiter(rate.Limit(c.RequestsPerSecond), burst)
}
