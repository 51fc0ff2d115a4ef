// Package tripo implements core.Provider for the Tripo3D generation API.
package tripo

import (
	"errors"
	"net/http"
	"os"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/mberenty7/tripo-tools/core"
)

// DefaultAPIKeyEnvVar is the environment variable name for the Tripo API key.
const DefaultAPIKeyEnvVar = "TRIPO_API_KEY"

const providerID = "tripo"

// ErrAPIKeyNotFound is returned when the API key environment variable is not set.
var ErrAPIKeyNotFound = &core.ValidationError{
	Field:  "api_key",
	Reason: DefaultAPIKeyEnvVar + " environment variable not set",
	Err:    core.ErrConfig,
}

// NewFromEnv creates a new Tripo provider using the TRIPO_API_KEY environment variable.
//
//	provider, err := tripo.NewFromEnv()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	client := core.NewClient(provider)
func NewFromEnv(opts ...Option) (*Tripo, error) {
	apiKey := os.Getenv(DefaultAPIKeyEnvVar)
	if strings.TrimSpace(apiKey) == "" {
		return nil, ErrAPIKeyNotFound
	}
	return New(apiKey, opts...)
}

// Tripo is a 3D generation provider for the Tripo3D API.
// Tripo is safe for concurrent use.
type Tripo struct {
	apiKey  core.Secret
	config  Config
	limiter *rate.Limiter
	logger  *zap.Logger

	// createTemp opens the partial file a download is streamed into.
	createTemp func(dir, pattern string) (tempFile, error)
}

// New creates a new Tripo provider with the given API key and options.
// The key is taken as given; New never consults the environment.
func New(apiKey string, opts ...Option) (*Tripo, error) {
	key := core.NewSecret(apiKey)
	if key.IsEmpty() {
		return nil, &core.ValidationError{Field: "api_key", Reason: "API key is required", Err: core.ErrConfig}
	}

	cfg := Config{
		BaseURL:    DefaultBaseURL,
		HTTPClient: http.DefaultClient,
		UserAgent:  DefaultUserAgent,
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.BaseURL == "" {
		return nil, &core.ValidationError{Field: "base_url", Reason: "must not be empty", Err: core.ErrConfig}
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Tripo{
		apiKey:     key,
		config:     cfg,
		limiter:    cfg.limiter(),
		logger:     logger.With(zap.String("provider", providerID)),
		createTemp: osCreateTemp,
	}, nil
}

// ID returns the provider identifier.
func (p *Tripo) ID() string {
	return providerID
}

// BaseURL returns the configured API base URL.
func (p *Tripo) BaseURL() string {
	return p.config.BaseURL
}

// buildHeaders constructs the HTTP headers for an API request.
func (p *Tripo) buildHeaders() http.Header {
	headers := make(http.Header)

	headers.Set("Authorization", "Bearer "+p.apiKey.Expose())
	headers.Set("User-Agent", p.config.UserAgent)
	headers.Set("X-Request-ID", uuid.NewString())

	for key, values := range p.config.Headers {
		for _, v := range values {
			headers.Add(key, v)
		}
	}

	return headers
}

// IsAPIKeyMissing reports whether err came from a missing credential.
func IsAPIKeyMissing(err error) bool {
	var vErr *core.ValidationError
	return errors.As(err, &vErr) && vErr.Field == "api_key"
}

// Compile-time check that Tripo implements Provider.
var _ core.Provider = (*Tripo)(nil)

// Compile-time check that Tripo implements Converter.
var _ core.Converter = (*Tripo)(nil)
