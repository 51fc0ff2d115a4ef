package tripo

import (
	"encoding/json"
	"io"
	"mime"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mberenty7/tripo-tools/core"
)

func TestUpload(t *testing.T) {
	s := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/upload", r.URL.Path)
		mediaType, _, err := mime.ParseMediaType(r.Header.Get("Content-Type"))
		require.NoError(t, err)
		assert.Equal(t, "multipart/form-data", mediaType)

		file, header, err := r.FormFile("file")
		require.NoError(t, err)
		defer file.Close()
		assert.Equal(t, "front.png", header.Filename)
		content, _ := io.ReadAll(file)
		assert.True(t, strings.HasPrefix(string(content), "\x89PNG"))

		writeOK(t, w, map[string]any{"image_token": "tok-front"})
	})
	p := newTestProvider(t, s)

	f, err := p.Upload(t.Context(), writeImage(t, "front.png"))
	require.NoError(t, err)
	assert.Equal(t, core.UploadedFile{Token: "tok-front", Name: "front.png", Type: "png"}, f)
}

func TestUploadInvalidPathMakesNoRequest(t *testing.T) {
	s := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(t, w, map[string]any{"image_token": "x"})
	})
	p := newTestProvider(t, s)

	_, err := p.Upload(t.Context(), "/does/not/exist.png")
	require.ErrorIs(t, err, core.ErrInput)
	_, err = p.Upload(t.Context(), writeImage(t, "model.tiff"))
	require.ErrorIs(t, err, core.ErrInput)
	assert.Zero(t, s.hits.Load())
}

func TestUploadMissingToken(t *testing.T) {
	s := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(t, w, map[string]any{})
	})
	p := newTestProvider(t, s)

	_, err := p.Upload(t.Context(), writeImage(t, "a.jpg"))
	assert.ErrorIs(t, err, core.ErrProtocol)
}

func TestSubmitMultiviewPreservesOrder(t *testing.T) {
	var body taskRequest
	s := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/task", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeOK(t, w, map[string]any{"task_id": "task-mv"})
	})
	p := newTestProvider(t, s)

	req := &core.MultiviewRequest{
		Views: []core.UploadedFile{{Token: "front"}, {Token: "back"}, {Token: "left"}, {Token: "right"}},
		GenerationOptions: core.GenerationOptions{
			Format:         core.FormatFBX,
			ModelVersion:   "v2.5-20250123",
			TextureQuality: core.TextureQualityDetailed,
			FaceLimit:      ptr(5000),
			Quad:           true,
		},
	}
	task, err := p.Submit(t.Context(), req)
	require.NoError(t, err)

	assert.Equal(t, "multiview_to_model", body.Type)
	require.Len(t, body.Files, 4)
	for i, want := range []string{"front", "back", "left", "right"} {
		assert.Equal(t, want, body.Files[i].FileToken)
		assert.Equal(t, "image_token", body.Files[i].Type)
	}
	assert.Nil(t, body.File)
	assert.Equal(t, "v2.5-20250123", body.ModelVersion)
	assert.Equal(t, "detailed", body.TextureQuality)
	assert.Equal(t, 5000, *body.FaceLimit)
	assert.True(t, body.Quad)

	assert.Equal(t, "task-mv", task.ID)
	assert.Equal(t, core.StatusQueued, task.Status)
	assert.Equal(t, 0, task.Progress)
	assert.Equal(t, core.FormatFBX, task.Format)
	assert.Equal(t, core.TaskMultiviewToModel, task.Type)
}

func TestSubmitInvalidRequestMakesNoRequest(t *testing.T) {
	s := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(t, w, map[string]any{"task_id": "x"})
	})
	p := newTestProvider(t, s)

	bad := []core.GenerationRequest{
		&core.MultiviewRequest{Views: []core.UploadedFile{{Token: "only"}}},
		&core.MultiviewRequest{Views: make([]core.UploadedFile, 7)},
		&core.TextRequest{Prompt: strings.Repeat("x", core.MaxPromptLength+1)},
		&core.TextRequest{Prompt: ""},
		&core.ImageRequest{Image: core.UploadedFile{Token: "t"}, GenerationOptions: core.GenerationOptions{Format: "dae"}},
		nil,
	}
	for _, req := range bad {
		_, err := p.Submit(t.Context(), req)
		assert.ErrorIs(t, err, core.ErrInput)
	}
	assert.Zero(t, s.hits.Load())
}

func TestSubmitImageAndTextPayloads(t *testing.T) {
	var raw map[string]any
	s := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		raw = nil
		require.NoError(t, json.NewDecoder(r.Body).Decode(&raw))
		writeOK(t, w, map[string]any{"task_id": "task-1"})
	})
	p := newTestProvider(t, s)

	_, err := p.Submit(t.Context(), &core.ImageRequest{
		Image:             core.UploadedFile{Token: "img"},
		GenerationOptions: core.GenerationOptions{Texture: ptr(false), PBR: ptr(true), Seed: ptr(42), TextureQuality: core.TextureQualityStandard},
	})
	require.NoError(t, err)
	assert.Equal(t, "image_to_model", raw["type"])
	assert.Equal(t, map[string]any{"type": "image_token", "file_token": "img"}, raw["file"])
	assert.Equal(t, false, raw["texture"])
	assert.Equal(t, true, raw["pbr"])
	assert.InDelta(t, 42, raw["seed"], 0)
	assert.NotContains(t, raw, "texture_quality")
	assert.NotContains(t, raw, "files")

	_, err = p.Submit(t.Context(), &core.TextRequest{Prompt: "a red teapot", NegativePrompt: "blurry"})
	require.NoError(t, err)
	assert.Equal(t, "text_to_model", raw["type"])
	assert.Equal(t, "a red teapot", raw["prompt"])
	assert.Equal(t, "blurry", raw["negative_prompt"])
	assert.NotContains(t, raw, "file")
}

func TestSubmitMissingTaskID(t *testing.T) {
	s := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		writeOK(t, w, map[string]any{"task_id": ""})
	})
	p := newTestProvider(t, s)

	_, err := p.Submit(t.Context(), &core.TextRequest{Prompt: "a cube"})
	assert.ErrorIs(t, err, core.ErrProtocol)
}

func TestConvert(t *testing.T) {
	var body taskRequest
	s := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		writeOK(t, w, map[string]any{"task_id": "conv-1"})
	})
	p := newTestProvider(t, s)

	task, err := p.Convert(t.Context(), &core.Task{ID: "gen-1", Status: core.StatusSucceeded}, core.FormatUSDZ, core.ConvertOptions{TextureSize: ptr(2048)})
	require.NoError(t, err)

	assert.Equal(t, "convert_model", body.Type)
	assert.Equal(t, "gen-1", body.OriginalModelTaskID)
	assert.Equal(t, "USDZ", body.Format)
	assert.Equal(t, 2048, *body.TextureSize)
	assert.Equal(t, "conv-1", task.ID)
	assert.Equal(t, core.FormatUSDZ, task.Format)
	assert.Equal(t, core.TaskConvertModel, task.Type)
}

func TestTaskStatusMapping(t *testing.T) {
	tests := []struct {
		label        string
		wantStatus   core.TaskStatus
		wantErr      error
		wantProgress int
	}{
		{"queued", core.StatusQueued, nil, 0},
		{"running", core.StatusRunning, nil, 45},
		{"success", core.StatusSucceeded, nil, 100},
		{"failed", core.StatusFailed, nil, 45},
		{"banned", core.StatusFailed, nil, 45},
		{"expired", core.StatusFailed, nil, 45},
		{"unknown", core.StatusFailed, nil, 45},
		{"cancelled", core.StatusCancelled, nil, 45},
		{"paused", "", core.ErrProtocol, 0},
		{"", "", core.ErrProtocol, 0},
	}

	for _, tt := range tests {
		t.Run(tt.label, func(t *testing.T) {
			s := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
				assert.Equal(t, "/task/abc-123", r.URL.Path)
				progress := 45
				if tt.label == "queued" {
					progress = 0
				}
				if tt.label == "success" {
					progress = 100
				}
				writeOK(t, w, map[string]any{
					"task_id":  "abc-123",
					"type":     "image_to_model",
					"status":   tt.label,
					"progress": progress,
					"output": map[string]any{
						"pbr_model":      "https://cdn.example.com/abc/model.glb?sig=1",
						"rendered_image": "https://cdn.example.com/abc/preview.webp",
					},
				})
			})
			p := newTestProvider(t, s)

			task, err := p.TaskStatus(t.Context(), "abc-123")
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantStatus, task.Status)
			assert.Equal(t, tt.wantProgress, task.Progress)
			assert.Equal(t, core.TaskImageToModel, task.Type)
			if tt.wantStatus == core.StatusSucceeded {
				require.NotNil(t, task.Result)
				assert.Equal(t, "https://cdn.example.com/abc/model.glb?sig=1", task.Result.DownloadURL())
				assert.Equal(t, core.FormatGLB, task.Result.Format)
				assert.Equal(t, "https://cdn.example.com/abc/preview.webp", task.Result.RenderedImageURL)
			} else {
				assert.Nil(t, task.Result)
			}
		})
	}
}

func TestTaskStatusPassesProgressThrough(t *testing.T) {
	for _, progress := range []int{-5, 0, 42, 140} {
		s := newAPIServer(t, func(w http.ResponseWriter, r *http.Request) {
			writeOK(t, w, map[string]any{"status": "running", "progress": progress})
		})
		p := newTestProvider(t, s)

		task, err := p.TaskStatus(t.Context(), "t")
		require.NoError(t, err)
		assert.Equal(t, progress, task.Progress)
	}
}

func TestTaskStatusEmptyID(t *testing.T) {
	p, err := New(testKey)
	require.NoError(t, err)
	_, err = p.TaskStatus(t.Context(), " ")
	assert.ErrorIs(t, err, core.ErrInput)
}

func ptr[T any](v T) *T { return &v }
