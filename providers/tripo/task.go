package tripo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/mberenty7/tripo-tools/core"
)

const taskPath = "/task"

// fileTokenType is the file type sent for previously uploaded images.
const fileTokenType = "image_token"

// Submit creates a generation task. The request is validated first, so an
// invalid request (for example a multiview request with one view) makes no
// network call.
func (p *Tripo) Submit(ctx context.Context, req core.GenerationRequest) (*core.Task, error) {
	if req == nil {
		return nil, &core.ValidationError{Field: "request", Reason: "nil generation request", Err: core.ErrInput}
	}
	if err := req.Validate(); err != nil {
		return nil, err
	}

	body, err := buildTaskRequest(req)
	if err != nil {
		return nil, err
	}
	task, err := p.createTask(ctx, body)
	if err != nil {
		return nil, err
	}
	task.Format = req.Options().Format
	return task, nil
}

// Convert submits a convert_model task producing format from a succeeded task.
func (p *Tripo) Convert(ctx context.Context, src *core.Task, format core.Format, opts core.ConvertOptions) (*core.Task, error) {
	if src == nil || src.ID == "" {
		return nil, fmt.Errorf("%w: convert needs a source task id", core.ErrInvalidState)
	}
	if !format.IsValid() {
		return nil, &core.ValidationError{Field: "format", Reason: fmt.Sprintf("unsupported format %q", format), Err: core.ErrInput}
	}

	task, err := p.createTask(ctx, &taskRequest{
		Type:                string(core.TaskConvertModel),
		OriginalModelTaskID: src.ID,
		Format:              string(format),
		Quad:                opts.Quad,
		FaceLimit:           opts.FaceLimit,
		TextureSize:         opts.TextureSize,
		FlattenBottom:       opts.FlattenBottom,
	})
	if err != nil {
		return nil, err
	}
	task.Format = format
	return task, nil
}

func (p *Tripo) createTask(ctx context.Context, body *taskRequest) (*core.Task, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("%w: encoding task request: %v", core.ErrInput, err)
	}

	var data createTaskData
	if err := p.do(ctx, http.MethodPost, taskPath, bytes.NewReader(payload), "application/json", &data); err != nil {
		return nil, err
	}
	if data.TaskID == "" {
		return nil, newProtocolError("task response has no task_id")
	}

	p.logger.Debug("task created", zap.String("task_id", data.TaskID), zap.String("type", body.Type))

	return &core.Task{
		ID:        data.TaskID,
		Type:      core.TaskType(body.Type),
		Status:    core.StatusQueued,
		Progress:  0,
		CreatedAt: time.Now(),
	}, nil
}

// buildTaskRequest maps a validated request onto the wire body. Views are
// sent in exactly the order given.
func buildTaskRequest(req core.GenerationRequest) (*taskRequest, error) {
	o := req.Options()
	body := &taskRequest{
		Type:             string(req.TaskType()),
		ModelVersion:     o.ModelVersion,
		Texture:          o.Texture,
		PBR:              o.PBR,
		TextureQuality:   o.TextureQuality,
		TextureSeed:      o.TextureSeed,
		TextureAlignment: o.TextureAlignment,
		FaceLimit:        o.FaceLimit,
		Seed:             o.Seed,
		Quad:             o.Quad,
		AutoSize:         o.AutoSize,
		Style:            o.Style,
	}
	// standard is the service default and is omitted.
	if body.TextureQuality == core.TextureQualityStandard {
		body.TextureQuality = ""
	}

	switch r := req.(type) {
	case *core.ImageRequest:
		body.File = &fileRef{Type: fileTokenType, FileToken: r.Image.Token}
	case *core.MultiviewRequest:
		body.Files = make([]fileRef, len(r.Views))
		for i, v := range r.Views {
			body.Files[i] = fileRef{Type: fileTokenType, FileToken: v.Token}
		}
	case *core.TextRequest:
		body.Prompt = r.Prompt
		body.NegativePrompt = r.NegativePrompt
	default:
		return nil, &core.ValidationError{Field: "request", Reason: fmt.Sprintf("unsupported request %T", req), Err: core.ErrInput}
	}
	return body, nil
}

// TaskStatus performs a single status query.
func (p *Tripo) TaskStatus(ctx context.Context, taskID string) (*core.Task, error) {
	if strings.TrimSpace(taskID) == "" {
		return nil, &core.ValidationError{Field: "task_id", Reason: "must not be empty", Err: core.ErrInput}
	}

	var data taskData
	if err := p.do(ctx, http.MethodGet, taskPath+"/"+url.PathEscape(taskID), nil, "", &data); err != nil {
		return nil, err
	}
	return mapTask(taskID, &data)
}

// mapTask converts the wire task into a core.Task.
func mapTask(taskID string, d *taskData) (*core.Task, error) {
	status, err := mapStatus(d.Status)
	if err != nil {
		return nil, err
	}

	t := &core.Task{
		ID:       taskID,
		Type:     core.TaskType(d.Type),
		Status:   status,
		Progress: d.Progress,
		Message:  d.Message,
	}
	if d.CreateTime > 0 {
		t.CreatedAt = time.Unix(d.CreateTime, 0)
	}
	if status == core.StatusSucceeded {
		t.Result = &core.TaskResult{
			ModelURL:         d.Output.Model,
			PBRModelURL:      d.Output.PBRModel,
			BaseModelURL:     d.Output.BaseModel,
			RenderedImageURL: d.Output.RenderedImage,
		}
		if f, ok := core.FormatFromURL(t.Result.DownloadURL()); ok {
			t.Result.Format = f
		}
	}
	return t, nil
}

// mapStatus maps service status labels onto core statuses. Unknown labels
// are a protocol error rather than a guess.
func mapStatus(s string) (core.TaskStatus, error) {
	switch s {
	case "queued":
		return core.StatusQueued, nil
	case "running":
		return core.StatusRunning, nil
	case "success":
		return core.StatusSucceeded, nil
	case "failed", "banned", "expired", "unknown":
		return core.StatusFailed, nil
	case "cancelled":
		return core.StatusCancelled, nil
	default:
		return "", newProtocolError("unknown task status %q", s)
	}
}
