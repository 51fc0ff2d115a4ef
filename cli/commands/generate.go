package commands

import (
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mberenty7/tripo-tools/core"
)

// generateFlags are the root command's generation flags.
type generateFlags struct {
	image          string
	multiview      []string
	prompt         string
	negativePrompt string
	balance        bool
	output         string
	format         string
	modelVersion   string
	textureQuality string
	faceLimit      int
	seed           int
	texture        bool
	pbr            bool
	quad           bool
}

func (a *App) addGenerateFlags(root *cobra.Command) {
	f := root.Flags()
	f.StringVarP(&a.gen.image, "image", "i", "", "input image file path")
	f.StringArrayVarP(&a.gen.multiview, "multiview", "m", nil, "view images in order: front back left right (2-6)")
	f.StringVarP(&a.gen.prompt, "prompt", "p", "", "text prompt for 3D generation")
	f.StringVar(&a.gen.negativePrompt, "negative-prompt", "", "what the model should avoid (text mode)")
	f.BoolVarP(&a.gen.balance, "balance", "b", false, "check credit balance and exit")
	f.StringVarP(&a.gen.output, "output", "o", "", "output file path (e.g. model.glb)")
	f.StringVarP(&a.gen.format, "format", "f", "", "output format: glb, fbx, obj, stl, usdz (default glb)")
	f.StringVar(&a.gen.modelVersion, "model-version", "", "model version (e.g. "+core.ModelVersions[0]+")")
	f.StringVar(&a.gen.textureQuality, "texture-quality", "", "texture quality: standard or detailed")
	f.IntVar(&a.gen.faceLimit, "face-limit", 0, "maximum number of faces")
	f.IntVar(&a.gen.seed, "seed", 0, "geometry seed")
	f.BoolVar(&a.gen.texture, "texture", true, "generate textures")
	f.BoolVar(&a.gen.pbr, "pbr", true, "generate PBR materials")
	f.BoolVar(&a.gen.quad, "quad", false, "quad-dominant remeshing")
}

// rootArgs accepts trailing view images after --multiview, so
// "--multiview f.png b.png l.png r.png" works, and nothing otherwise.
func (a *App) rootArgs(cmd *cobra.Command, args []string) error {
	if len(args) > 0 && len(a.gen.multiview) == 0 {
		return fmt.Errorf("unexpected arguments %q (did you mean --multiview?)", args)
	}
	return nil
}

func (a *App) runRoot(cmd *cobra.Command, args []string) error {
	views := append(append([]string(nil), a.gen.multiview...), args...)

	modes := 0
	for _, set := range []bool{a.gen.image != "", len(views) > 0, a.gen.prompt != "", a.gen.balance} {
		if set {
			modes++
		}
	}
	switch {
	case modes == 0:
		_ = cmd.Usage()
		return &core.ValidationError{Reason: "specify --image, --multiview, --prompt or --balance", Err: core.ErrInput}
	case modes > 1:
		return &core.ValidationError{Reason: "--image, --multiview, --prompt and --balance are mutually exclusive", Err: core.ErrInput}
	}

	if a.gen.balance {
		return a.runBalance(cmd)
	}

	var in core.Input
	var mode string
	switch {
	case a.gen.image != "":
		in, mode = core.ImageInput{Path: a.gen.image}, "Image → 3D"
	case len(views) > 0:
		in, mode = core.MultiviewInput{Paths: views}, "Multiview → 3D"
	default:
		in, mode = core.TextInput{Prompt: a.gen.prompt, NegativePrompt: a.gen.negativePrompt}, "Text → 3D"
	}

	opts, err := a.generationOptions(cmd)
	if err != nil {
		return err
	}
	if a.gen.output == "" {
		return &core.ValidationError{Field: "output", Reason: "--output is required", Err: core.ErrInput}
	}
	dest := withFormatExt(a.gen.output, opts.Format)

	client, flush, err := a.newClient()
	if err != nil {
		return err
	}
	defer flush()

	if !a.quiet && !a.jsonOutput {
		fmt.Fprintf(a.stderr, "Mode: %s\nOutput: %s\n", mode, dest)
	}

	progress := a.newProgress()
	res, err := client.Generate(cmd.Context(), in, opts, dest, progress.Update)
	progress.Done()
	if err != nil {
		if res != nil {
			return withTask(res.Task, err)
		}
		return err
	}

	return a.printResult(res, opts.Format)
}

// generationOptions merges flags over config defaults. Unset optional flags
// leave the server default in place.
func (a *App) generationOptions(cmd *cobra.Command) (core.GenerationOptions, error) {
	opts := core.GenerationOptions{
		Format:         a.cfg.Format(),
		ModelVersion:   a.cfg.ModelVersion,
		TextureQuality: a.gen.textureQuality,
		Quad:           a.gen.quad,
	}
	if a.gen.format != "" {
		f, err := core.ParseFormat(a.gen.format)
		if err != nil {
			return opts, err
		}
		opts.Format = f
	}
	if a.gen.modelVersion != "" {
		opts.ModelVersion = a.gen.modelVersion
	}

	flags := cmd.Flags()
	if flags.Changed("face-limit") {
		opts.FaceLimit = &a.gen.faceLimit
	}
	if flags.Changed("seed") {
		opts.Seed = &a.gen.seed
	}
	if flags.Changed("texture") {
		opts.Texture = &a.gen.texture
	}
	if flags.Changed("pbr") {
		opts.PBR = &a.gen.pbr
	}
	return opts, opts.Validate()
}

// withFormatExt replaces the extension of path with the format's, unless
// it already matches (case-insensitively).
func withFormatExt(path string, f core.Format) string {
	ext := f.Ext()
	if strings.HasSuffix(strings.ToLower(path), ext) {
		return path
	}
	return strings.TrimSuffix(path, filepath.Ext(path)) + ext
}

type resultOutput struct {
	TaskID       string `json:"task_id"`
	SourceTaskID string `json:"source_task_id,omitempty"`
	Status       string `json:"status"`
	Format       string `json:"format"`
	Path         string `json:"path"`
}

func (a *App) printResult(res *core.GenerateResult, f core.Format) error {
	out := resultOutput{
		TaskID: res.Task.ID,
		Status: string(res.Task.Status),
		Format: string(f),
		Path:   res.Path,
	}
	if res.Source != nil {
		out.SourceTaskID = res.Source.ID
	}

	if a.jsonOutput {
		return writeJSON(a.stdout, out)
	}
	fmt.Fprintf(a.stdout, "Done! Saved to %s (task %s)\n", out.Path, out.TaskID)
	return nil
}

func (a *App) runBalance(cmd *cobra.Command) error {
	client, flush, err := a.newClient()
	if err != nil {
		return err
	}
	defer flush()

	b, err := client.Balance(cmd.Context())
	if err != nil {
		return err
	}

	if a.jsonOutput {
		return writeJSON(a.stdout, b)
	}
	fmt.Fprintf(a.stdout, "Credits: %g available, %g frozen\n", b.Available, b.Frozen)
	return nil
}

func secondsToDuration(s int) time.Duration {
	return time.Duration(s) * time.Second
}
