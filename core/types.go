package core

import (
	"path"
	"strings"
	"time"
)

// Format is the file format of a generated model.
type Format string

const (
	FormatGLB  Format = "GLB"
	FormatFBX  Format = "FBX"
	FormatOBJ  Format = "OBJ"
	FormatSTL  Format = "STL"
	FormatUSDZ Format = "USDZ"
)

// Formats lists every supported output format.
var Formats = []Format{FormatGLB, FormatFBX, FormatOBJ, FormatSTL, FormatUSDZ}

// IsValid reports whether the format is a recognized value.
func (f Format) IsValid() bool {
	switch f {
	case FormatGLB, FormatFBX, FormatOBJ, FormatSTL, FormatUSDZ:
		return true
	default:
		return false
	}
}

// Ext returns the lowercase file extension for the format, including the dot.
func (f Format) Ext() string {
	return "." + strings.ToLower(string(f))
}

// ParseFormat parses a case-insensitive format name ("glb", "FBX", ".obj").
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToUpper(strings.TrimPrefix(strings.TrimSpace(s), ".")))
	if !f.IsValid() {
		return "", inputError("format", "unsupported format %q (want one of glb, fbx, obj, stl, usdz)", s)
	}
	return f, nil
}

// FormatFromURL infers the model format from the extension of a URL path.
// The second result is false when the extension is not a known format.
func FormatFromURL(rawURL string) (Format, bool) {
	p := rawURL
	if i := strings.IndexAny(p, "?#"); i >= 0 {
		p = p[:i]
	}
	ext := path.Ext(p)
	if ext == "" {
		return "", false
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", false
	}
	return f, true
}

// TaskStatus is the lifecycle state of a generation task.
// Queued and running come from the server and are non-terminal. Succeeded,
// failed and cancelled come from the server and are terminal. TimedOut and
// Errored are local conditions recorded by the poller.
type TaskStatus string

const (
	StatusQueued    TaskStatus = "queued"
	StatusRunning   TaskStatus = "running"
	StatusSucceeded TaskStatus = "succeeded"
	StatusFailed    TaskStatus = "failed"
	StatusCancelled TaskStatus = "cancelled"
	StatusTimedOut  TaskStatus = "timed_out"
	StatusErrored   TaskStatus = "errored"
)

// IsTerminal reports whether no further transition can occur.
func (s TaskStatus) IsTerminal() bool {
	switch s {
	case StatusQueued, StatusRunning:
		return false
	default:
		return true
	}
}

// TaskType identifies the kind of server-side work.
type TaskType string

const (
	TaskImageToModel     TaskType = "image_to_model"
	TaskMultiviewToModel TaskType = "multiview_to_model"
	TaskTextToModel      TaskType = "text_to_model"
	TaskConvertModel     TaskType = "convert_model"
)

// Task is a server-tracked unit of generation work.
type Task struct {
	ID       string
	Type     TaskType
	Status   TaskStatus
	Progress int

	// Format is the format the caller asked for.
	Format Format

	// Result is populated once the task has succeeded.
	Result *TaskResult

	// Message is the server-reported detail, typically set on failure.
	Message   string
	CreatedAt time.Time
}

// TaskResult references the generated assets of a succeeded task.
type TaskResult struct {
	ModelURL         string
	PBRModelURL      string
	BaseModelURL     string
	RenderedImageURL string

	// Format is the format the server actually produced.
	Format Format
}

// DownloadURL returns the preferred model URL: model, then pbr_model, then base_model.
func (r *TaskResult) DownloadURL() string {
	if r == nil {
		return ""
	}
	for _, u := range []string{r.ModelURL, r.PBRModelURL, r.BaseModelURL} {
		if u != "" {
			return u
		}
	}
	return ""
}

// Clone returns a deep copy of the task.
func (t *Task) Clone() *Task {
	if t == nil {
		return nil
	}
	c := *t
	if t.Result != nil {
		r := *t.Result
		c.Result = &r
	}
	return &c
}

// UploadedFile is a server-assigned token referencing a previously uploaded image.
type UploadedFile struct {
	Token string
	// Name is the local base name of the uploaded file.
	Name string
	// Type is the image file type reported to the server (jpg, png, webp).
	Type string
}

// ProgressEvent is a single observed (percent, status) pair for a task.
type ProgressEvent struct {
	TaskID  string
	Percent int
	Status  TaskStatus
}

// ProgressFunc receives progress events. It runs synchronously on the
// polling goroutine and must not block.
type ProgressFunc func(ProgressEvent)

// Balance is the account credit state.
type Balance struct {
	Available float64 `json:"balance"`
	Frozen    float64 `json:"frozen"`
}
