package tripo

import "encoding/json"

// envelope is the wrapper around every Tripo API response.
type envelope struct {
	Code       *int            `json:"code"`
	Data       json.RawMessage `json:"data"`
	Message    string          `json:"message"`
	Suggestion string          `json:"suggestion"`
}

// fileRef references an uploaded image in a task request.
type fileRef struct {
	Type      string `json:"type"`
	FileToken string `json:"file_token"`
}

// taskRequest is the POST /task body. Which fields are set depends on Type.
type taskRequest struct {
	Type string `json:"type"`

	File           *fileRef  `json:"file,omitempty"`
	Files          []fileRef `json:"files,omitempty"`
	Prompt         string    `json:"prompt,omitempty"`
	NegativePrompt string    `json:"negative_prompt,omitempty"`

	ModelVersion     string `json:"model_version,omitempty"`
	Texture          *bool  `json:"texture,omitempty"`
	PBR              *bool  `json:"pbr,omitempty"`
	TextureQuality   string `json:"texture_quality,omitempty"`
	TextureSeed      *int   `json:"texture_seed,omitempty"`
	TextureAlignment string `json:"texture_alignment,omitempty"`
	FaceLimit        *int   `json:"face_limit,omitempty"`
	Seed             *int   `json:"seed,omitempty"`
	Quad             bool   `json:"quad,omitempty"`
	AutoSize         bool   `json:"auto_size,omitempty"`
	Style            string `json:"style,omitempty"`

	// convert_model
	OriginalModelTaskID string `json:"original_model_task_id,omitempty"`
	Format              string `json:"format,omitempty"`
	TextureSize         *int   `json:"texture_size,omitempty"`
	FlattenBottom       bool   `json:"flatten_bottom,omitempty"`
}

type uploadData struct {
	ImageToken string `json:"image_token"`
}

type createTaskData struct {
	TaskID string `json:"task_id"`
}

type taskData struct {
	TaskID     string     `json:"task_id"`
	Type       string     `json:"type"`
	Status     string     `json:"status"`
	Progress   int        `json:"progress"`
	Message    string     `json:"message"`
	CreateTime int64      `json:"create_time"`
	Output     taskOutput `json:"output"`
}

type taskOutput struct {
	Model         string `json:"model"`
	PBRModel      string `json:"pbr_model"`
	BaseModel     string `json:"base_model"`
	RenderedImage string `json:"rendered_image"`
}

type balanceData struct {
	Balance float64 `json:"balance"`
	Frozen  float64 `json:"frozen"`
}
