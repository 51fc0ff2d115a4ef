package tripo

import (
	"github.com/mberenty7/tripo-tools/core"
	"github.com/mberenty7/tripo-tools/providers"
)

func init() {
	providers.Register(providerID, func(s providers.Settings) (core.Provider, error) {
		p, err := New(s.APIKey, settingsOptions(s)...)
		if err != nil {
			return nil, err
		}
		return p, nil
	})
}

// settingsOptions maps registry settings onto provider options.
func settingsOptions(s providers.Settings) []Option {
	var opts []Option
	if s.BaseURL != "" {
		opts = append(opts, WithBaseURL(s.BaseURL))
	}
	if s.Timeout > 0 {
		opts = append(opts, WithTimeout(s.Timeout))
	}
	if s.RequestsPerSecond > 0 {
		opts = append(opts, WithRateLimit(s.RequestsPerSecond, s.Burst))
	}
	if s.Logger != nil {
		opts = append(opts, WithLogger(s.Logger))
	}
	return opts
}
