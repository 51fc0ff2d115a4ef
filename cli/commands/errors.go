package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/mberenty7/tripo-tools/core"
)

// Exit codes
const (
	ExitSuccess    = 0
	ExitValidation = 1
	ExitProvider   = 2
	ExitNetwork    = 3
	ExitCancelled  = 130
)

// exitError wraps an error with an exit code.
type exitError struct {
	code int
	err  error
}

func (e *exitError) Error() string {
	return e.err.Error()
}

func (e *exitError) Unwrap() error {
	return e.err
}

func (e *exitError) ExitCode() int {
	return e.code
}

func exitWithCode(code int, err error) error {
	return &exitError{code: code, err: err}
}

// exitCodeFor maps an error kind to a process exit code.
func exitCodeFor(err error) int {
	var ee *exitError
	if errors.As(err, &ee) {
		return ee.code
	}
	switch {
	case errors.Is(err, context.Canceled):
		return ExitCancelled
	case errors.Is(err, core.ErrPoll),
		errors.Is(err, core.ErrTimeout),
		errors.Is(err, core.ErrTransport):
		return ExitNetwork
	case errors.Is(err, core.ErrInput),
		errors.Is(err, core.ErrConfig),
		errors.Is(err, core.ErrIO):
		return ExitValidation
	case core.Kind(err) == "Error":
		// Unclassified errors come from flag parsing and usage mistakes.
		return ExitValidation
	default:
		return ExitProvider
	}
}

// taskError attaches the id of the task a failure belongs to.
type taskError struct {
	taskID string
	err    error
}

func (e *taskError) Error() string { return e.err.Error() }
func (e *taskError) Unwrap() error { return e.err }

func withTask(task *core.Task, err error) error {
	if task == nil || task.ID == "" {
		return err
	}
	return &taskError{taskID: task.ID, err: err}
}

type errorOutput struct {
	Kind       string `json:"kind"`
	Message    string `json:"message"`
	TaskID     string `json:"task_id,omitempty"`
	RequestID  string `json:"request_id,omitempty"`
	Suggestion string `json:"suggestion,omitempty"`
}

func describeError(err error) errorOutput {
	out := errorOutput{Kind: core.Kind(err), Message: err.Error()}
	var te *taskError
	if errors.As(err, &te) {
		out.TaskID = te.taskID
	}
	var apiErr *core.APIError
	if errors.As(err, &apiErr) {
		out.RequestID = apiErr.RequestID
		out.Suggestion = apiErr.Suggestion
	}
	return out
}

func (a *App) printError(err error) {
	out := describeError(err)

	if a.jsonOutput {
		_ = writeJSON(a.stderr, map[string]errorOutput{"error": out})
		return
	}

	if out.Kind == "Canceled" {
		fmt.Fprintln(a.stderr, "Cancelled.")
	} else {
		fmt.Fprintf(a.stderr, "Error [%s]: %s\n", out.Kind, out.Message)
	}
	if out.TaskID != "" {
		fmt.Fprintf(a.stderr, "  Task ID: %s\n", out.TaskID)
	}
	if out.RequestID != "" {
		fmt.Fprintf(a.stderr, "  Request ID: %s\n", out.RequestID)
	}
	if out.Suggestion != "" {
		fmt.Fprintf(a.stderr, "  Suggestion: %s\n", out.Suggestion)
	}
}

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
