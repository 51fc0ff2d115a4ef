package core

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func views(n int) []UploadedFile {
	out := make([]UploadedFile, n)
	for i := range out {
		out[i] = UploadedFile{Token: "tok-" + strings.Repeat("x", i+1), Type: "png"}
	}
	return out
}

func TestMultiviewRequestViewCount(t *testing.T) {
	for n := 0; n <= 8; n++ {
		err := (&MultiviewRequest{Views: views(n)}).Validate()
		if n >= MinViews && n <= MaxViews {
			assert.NoError(t, err, "%d views", n)
		} else {
			assert.ErrorIs(t, err, ErrInput, "%d views", n)
		}
	}
}

func TestMultiviewRequestMissingToken(t *testing.T) {
	v := views(3)
	v[1].Token = ""
	err := (&MultiviewRequest{Views: v}).Validate()
	require.ErrorIs(t, err, ErrInput)
	assert.Contains(t, err.Error(), "view 1")
}

func TestTextRequestPromptLength(t *testing.T) {
	tests := []struct {
		name    string
		prompt  string
		wantErr bool
	}{
		{"empty", "", true},
		{"whitespace", "  \t\n", true},
		{"single", "a", false},
		{"at limit", strings.Repeat("a", MaxPromptLength), false},
		{"over limit", strings.Repeat("a", MaxPromptLength+1), true},
		{"multibyte at limit", strings.Repeat("é", MaxPromptLength), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := (&TextRequest{Prompt: tt.prompt}).Validate()
			if tt.wantErr {
				assert.ErrorIs(t, err, ErrInput)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTextRequestNegativePrompt(t *testing.T) {
	ok := &TextRequest{Prompt: "a chair", NegativePrompt: strings.Repeat("n", MaxNegativePromptLength)}
	assert.NoError(t, ok.Validate())

	long := &TextRequest{Prompt: "a chair", NegativePrompt: strings.Repeat("n", MaxNegativePromptLength+1)}
	assert.ErrorIs(t, long.Validate(), ErrInput)
}

func TestGenerationOptionsValidate(t *testing.T) {
	opts := GenerationOptions{}
	require.NoError(t, opts.Validate())
	assert.Equal(t, FormatGLB, opts.Format)

	opts = GenerationOptions{Format: ".fbx", TextureQuality: TextureQualityDetailed}
	require.NoError(t, opts.Validate())
	assert.Equal(t, FormatFBX, opts.Format)

	bad := []GenerationOptions{
		{Format: "3ds"},
		{TextureQuality: "ultra"},
		{TextureAlignment: "uv"},
		{FaceLimit: ptr(0)},
	}
	for _, o := range bad {
		assert.ErrorIs(t, o.Validate(), ErrInput, "%+v", o)
	}
}

func TestImageRequestRequiresToken(t *testing.T) {
	assert.ErrorIs(t, (&ImageRequest{}).Validate(), ErrInput)
	assert.NoError(t, (&ImageRequest{Image: UploadedFile{Token: "abc"}}).Validate())
}

func TestRequestTaskTypes(t *testing.T) {
	assert.Equal(t, TaskImageToModel, (&ImageRequest{}).TaskType())
	assert.Equal(t, TaskMultiviewToModel, (&MultiviewRequest{}).TaskType())
	assert.Equal(t, TaskTextToModel, (&TextRequest{}).TaskType())
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"glb", "GLB", ".glb", " Glb "} {
		f, err := ParseFormat(in)
		require.NoError(t, err, in)
		assert.Equal(t, FormatGLB, f)
	}
	_, err := ParseFormat("gltf")
	assert.ErrorIs(t, err, ErrInput)
	assert.Equal(t, ".usdz", FormatUSDZ.Ext())
}

func TestFormatFromURL(t *testing.T) {
	f, ok := FormatFromURL("https://cdn.example.com/tasks/abc/model.fbx?Expires=1&Signature=x")
	assert.True(t, ok)
	assert.Equal(t, FormatFBX, f)

	_, ok = FormatFromURL("https://cdn.example.com/tasks/abc/model")
	assert.False(t, ok)

	_, ok = FormatFromURL("https://cdn.example.com/preview.webp")
	assert.False(t, ok)
}

func TestTaskStatusIsTerminal(t *testing.T) {
	assert.False(t, StatusQueued.IsTerminal())
	assert.False(t, StatusRunning.IsTerminal())
	for _, s := range []TaskStatus{StatusSucceeded, StatusFailed, StatusCancelled, StatusTimedOut, StatusErrored} {
		assert.True(t, s.IsTerminal(), s)
	}
}

func TestTaskResultDownloadURL(t *testing.T) {
	var nilResult *TaskResult
	assert.Empty(t, nilResult.DownloadURL())
	assert.Equal(t, "pbr", (&TaskResult{PBRModelURL: "pbr", BaseModelURL: "base"}).DownloadURL())
	assert.Equal(t, "model", (&TaskResult{ModelURL: "model", PBRModelURL: "pbr"}).DownloadURL())
}

func ptr[T any](v T) *T { return &v }
