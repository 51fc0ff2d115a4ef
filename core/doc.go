// Package core provides the client and types for generating 3D models from
// images or text with a hosted generation service.
//
// The core package defines the abstractions every provider implements and
// the provider-independent pipeline built on top of them.
//
// # Client and Provider
//
// The primary entry point is [Client], which wraps a [Provider] and adds
// telemetry, polling and the end-to-end pipeline:
//
//	provider, err := tripo.New(apiKey)
//	if err != nil {
//	    return err
//	}
//	client := core.NewClient(provider,
//	    core.WithTelemetry(myTelemetryHook),
//	    core.WithPollConfig(core.PollConfig{Interval: time.Second, Timeout: 5 * time.Minute}),
//	)
//
// # Generating a model
//
// [Client.Generate] validates the input, uploads local images, submits the
// task, waits for it and downloads the model:
//
//	res, err := client.Generate(ctx,
//	    core.MultiviewInput{Paths: []string{"front.png", "back.png", "left.png"}},
//	    core.GenerationOptions{Format: core.FormatGLB},
//	    "chair.glb",
//	    func(e core.ProgressEvent) { fmt.Printf("%d%% %s\n", e.Percent, e.Status) },
//	)
//
// Each stage is also available on its own ([Client.Upload], [Client.Submit],
// [Client.Wait], [Client.Download]) for callers that persist task ids and
// resume later.
//
// # Polling
//
// [Poller] drives a task to a terminal state. Transient failures (network,
// 5xx, rate limits) are retried with exponential backoff up to
// [PollConfig.MaxConsecutiveErrors] in a row; anything else is returned
// immediately. The overall wait is bounded by [PollConfig.Timeout], and
// cancelling the context abandons the wait without reporting a timeout.
// Neither cancels the remote task.
//
// # Error Handling
//
// Every error wraps exactly one sentinel:
//   - [ErrConfig]: missing or invalid credentials or configuration
//   - [ErrInput]: bad local arguments, detected before any network call
//   - [ErrAuth]: rejected credentials (401/403)
//   - [ErrRateLimited]: throttled by the service (429)
//   - [ErrRequest]: other 4xx, or a service-level error code
//   - [ErrServer]: 5xx
//   - [ErrTransport]: connection, TLS or read failures
//   - [ErrProtocol]: undecodable or unexpected response bodies
//   - [ErrPoll]: too many consecutive polling failures
//   - [ErrTimeout]: the wait deadline elapsed
//   - [ErrGenerationFailed]: the service reported failure or cancellation
//   - [ErrInvalidState]: operation not allowed for the task's state
//   - [ErrIO]: local filesystem failures
//
// Use errors.Is to check error kinds and [Kind] for a short display name:
//
//	if errors.Is(err, core.ErrRateLimited) {
//	    // Back off
//	}
//
// # Telemetry
//
// Implement [TelemetryHook] to observe provider calls. Events carry the
// operation, task id, timing and outcome, never credentials or asset URLs.
//
// # Thread Safety
//
// [Client] and [Poller] are safe for concurrent use across goroutines.
// Providers SHOULD be safe for concurrent calls.
package core
