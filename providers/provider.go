// Package providers contains 3D generation provider implementations.
//
// Each provider is implemented in its own subpackage (e.g., providers/tripo).
// Providers implement the core.Provider interface and register a factory
// from their init function so tools can select them by name:
//
//	import _ "github.com/mberenty7/tripo-tools/providers/tripo"
//
//	p, err := providers.Create("tripo", providers.Settings{APIKey: key})
//
// # Concurrency
//
// Providers SHOULD be safe for concurrent calls. If a provider cannot be
// concurrent-safe, it MUST document this limitation.
//
// # Errors
//
// Providers MUST classify every failure with one of the core sentinels
// (core.ErrAuth, core.ErrRateLimited, core.ErrTransport, ...) so the poller
// can tell transient failures from permanent ones.
package providers

import "github.com/mberenty7/tripo-tools/core"

// Re-export core types for convenience.
// Provider implementations can import just the providers package.
type (
	// Provider is the interface that generation providers must implement.
	Provider = core.Provider

	// Converter is implemented by providers that convert models server-side.
	Converter = core.Converter

	// Task is a server-tracked unit of generation work.
	Task = core.Task

	// GenerationRequest is a validated generation request.
	GenerationRequest = core.GenerationRequest

	// APIError represents an error returned by a provider.
	APIError = core.APIError
)

// Re-export sentinel errors.
var (
	ErrAuth        = core.ErrAuth
	ErrRateLimited = core.ErrRateLimited
	ErrRequest     = core.ErrRequest
	ErrServer      = core.ErrServer
	ErrTransport   = core.ErrTransport
	ErrProtocol    = core.ErrProtocol
)
