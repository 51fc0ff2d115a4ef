package core

import (
	"strings"
	"unicode/utf8"
)

// Request limits enforced locally before anything is sent.
const (
	MinViews                 = 2
	MaxViews                 = 6
	MaxPromptLength          = 1024
	MaxNegativePromptLength  = 255
	DefaultFormat            = FormatGLB
	TextureQualityStandard   = "standard"
	TextureQualityDetailed   = "detailed"
	TextureAlignmentImage    = "original_image"
	TextureAlignmentGeometry = "geometry"
)

// Known model versions accepted by the service.
var ModelVersions = []string{
	"v2.5-20250123",
	"v2.0-20240919",
	"v1.4-20240625",
	"Turbo-v1.0-20250506",
}

// GenerationOptions holds the parameters shared by every generation mode.
// Zero values mean "server default".
type GenerationOptions struct {
	Format           Format
	ModelVersion     string
	Texture          *bool
	PBR              *bool
	TextureQuality   string
	TextureSeed      *int
	TextureAlignment string
	FaceLimit        *int
	Seed             *int
	Quad             bool
	AutoSize         bool
	Style            string
}

// Validate checks option values and normalizes Format to its canonical form.
func (o *GenerationOptions) Validate() error {
	if o.Format == "" {
		o.Format = DefaultFormat
	} else {
		f, err := ParseFormat(string(o.Format))
		if err != nil {
			return err
		}
		o.Format = f
	}
	switch o.TextureQuality {
	case "", TextureQualityStandard, TextureQualityDetailed:
	default:
		return inputError("texture_quality", "unsupported value %q", o.TextureQuality)
	}
	switch o.TextureAlignment {
	case "", TextureAlignmentImage, TextureAlignmentGeometry:
	default:
		return inputError("texture_alignment", "unsupported value %q", o.TextureAlignment)
	}
	if o.FaceLimit != nil && *o.FaceLimit <= 0 {
		return inputError("face_limit", "must be positive, got %d", *o.FaceLimit)
	}
	return nil
}

// GenerationRequest is a tagged variant over the three generation modes:
// *ImageRequest, *MultiviewRequest and *TextRequest. No other type can
// implement it.
type GenerationRequest interface {
	TaskType() TaskType
	Options() *GenerationOptions
	Validate() error
	generationRequest()
}

// ImageRequest generates a model from a single uploaded image.
type ImageRequest struct {
	Image UploadedFile
	GenerationOptions
}

// MultiviewRequest generates a model from 2-6 ordered views of one subject.
// View order is significant and is sent exactly as given.
type MultiviewRequest struct {
	Views []UploadedFile
	GenerationOptions
}

// TextRequest generates a model from a text prompt.
type TextRequest struct {
	Prompt         string
	NegativePrompt string
	GenerationOptions
}

func (*ImageRequest) TaskType() TaskType     { return TaskImageToModel }
func (*MultiviewRequest) TaskType() TaskType { return TaskMultiviewToModel }
func (*TextRequest) TaskType() TaskType      { return TaskTextToModel }

func (r *ImageRequest) Options() *GenerationOptions     { return &r.GenerationOptions }
func (r *MultiviewRequest) Options() *GenerationOptions { return &r.GenerationOptions }
func (r *TextRequest) Options() *GenerationOptions      { return &r.GenerationOptions }

func (*ImageRequest) generationRequest()     {}
func (*MultiviewRequest) generationRequest() {}
func (*TextRequest) generationRequest()      {}

// Validate checks the request and its options.
func (r *ImageRequest) Validate() error {
	if r.Image.Token == "" {
		return inputError("image", "missing file token")
	}
	return r.GenerationOptions.Validate()
}

// Validate checks the view count, every view token, and the options.
func (r *MultiviewRequest) Validate() error {
	if err := ValidateViewCount(len(r.Views)); err != nil {
		return err
	}
	for i, v := range r.Views {
		if v.Token == "" {
			return inputError("views", "view %d has no file token", i)
		}
	}
	return r.GenerationOptions.Validate()
}

// Validate checks the prompt lengths and the options.
func (r *TextRequest) Validate() error {
	if err := ValidatePrompt(r.Prompt); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(r.NegativePrompt); n > MaxNegativePromptLength {
		return inputError("negative_prompt", "length %d exceeds maximum %d", n, MaxNegativePromptLength)
	}
	return r.GenerationOptions.Validate()
}

// ValidateViewCount checks that n is within [MinViews, MaxViews].
func ValidateViewCount(n int) error {
	if n < MinViews || n > MaxViews {
		return inputError("views", "multiview requires %d to %d images, got %d", MinViews, MaxViews, n)
	}
	return nil
}

// ValidatePrompt checks that the prompt is non-empty and at most MaxPromptLength characters.
func ValidatePrompt(prompt string) error {
	if strings.TrimSpace(prompt) == "" {
		return inputError("prompt", "must not be empty")
	}
	if n := utf8.RuneCountInString(prompt); n > MaxPromptLength {
		return inputError("prompt", "length %d exceeds maximum %d", n, MaxPromptLength)
	}
	return nil
}

// Input is what a caller hands to Client.Generate: local image paths or a
// prompt. It is a tagged variant over ImageInput, MultiviewInput and TextInput.
type Input interface {
	validate() error
	input()
}

// ImageInput is a single local image.
type ImageInput struct {
	Path string
}

// MultiviewInput is an ordered list of local view images (front, back, left, right, ...).
type MultiviewInput struct {
	Paths []string
}

// TextInput is a text prompt.
type TextInput struct {
	Prompt         string
	NegativePrompt string
}

func (ImageInput) input()     {}
func (MultiviewInput) input() {}
func (TextInput) input()      {}

func (in ImageInput) validate() error {
	if in.Path == "" {
		return inputError("image", "path is empty")
	}
	return nil
}

func (in MultiviewInput) validate() error {
	return ValidateViewCount(len(in.Paths))
}

func (in TextInput) validate() error {
	if err := ValidatePrompt(in.Prompt); err != nil {
		return err
	}
	if n := utf8.RuneCountInString(in.NegativePrompt); n > MaxNegativePromptLength {
		return inputError("negative_prompt", "length %d exceeds maximum %d", n, MaxNegativePromptLength)
	}
	return nil
}
