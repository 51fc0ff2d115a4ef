package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/mberenty7/tripo-tools/core"
)

// Manifest describes a batch run. Relative paths are resolved against the
// manifest's directory.
//
//	concurrency: 2
//	defaults:
//	  format: fbx
//	jobs:
//	  - name: barrel
//	    prompt: a wooden barrel
//	    output: out/barrel
//	  - name: statue
//	    multiview: [front.png, back.png, left.png, right.png]
//	    output: out/statue.glb
//	    format: glb
type Manifest struct {
	Concurrency int           `yaml:"concurrency"`
	Defaults    JobSpec       `yaml:"defaults"`
	Jobs        []ManifestJob `yaml:"jobs"`
}

// JobSpec holds the generation options a job may set.
type JobSpec struct {
	Format         string `yaml:"format"`
	ModelVersion   string `yaml:"model_version"`
	TextureQuality string `yaml:"texture_quality"`
	FaceLimit      *int   `yaml:"face_limit"`
	Seed           *int   `yaml:"seed"`
	Texture        *bool  `yaml:"texture"`
	PBR            *bool  `yaml:"pbr"`
	Quad           *bool  `yaml:"quad"`
}

// ManifestJob is one generation in a manifest. Exactly one of Image,
// Multiview and Prompt must be set.
type ManifestJob struct {
	Name           string   `yaml:"name"`
	Image          string   `yaml:"image"`
	Multiview      []string `yaml:"multiview"`
	Prompt         string   `yaml:"prompt"`
	NegativePrompt string   `yaml:"negative_prompt"`
	Output         string   `yaml:"output"`
	JobSpec        `yaml:",inline"`
}

// LoadManifest reads and parses a manifest file.
func LoadManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &core.ValidationError{Field: "manifest", Reason: err.Error(), Err: core.ErrInput}
	}
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &core.ValidationError{Field: "manifest", Reason: err.Error(), Err: core.ErrInput}
	}
	if len(m.Jobs) == 0 {
		return nil, &core.ValidationError{Field: "manifest", Reason: "no jobs", Err: core.ErrInput}
	}
	return &m, nil
}

// merge overlays the non-zero fields of o on s.
func (s JobSpec) merge(o JobSpec) JobSpec {
	if o.Format != "" {
		s.Format = o.Format
	}
	if o.ModelVersion != "" {
		s.ModelVersion = o.ModelVersion
	}
	if o.TextureQuality != "" {
		s.TextureQuality = o.TextureQuality
	}
	if o.FaceLimit != nil {
		s.FaceLimit = o.FaceLimit
	}
	if o.Seed != nil {
		s.Seed = o.Seed
	}
	if o.Texture != nil {
		s.Texture = o.Texture
	}
	if o.PBR != nil {
		s.PBR = o.PBR
	}
	if o.Quad != nil {
		s.Quad = o.Quad
	}
	return s
}

// CoreJobs converts the manifest into core jobs. base is the directory relative
// paths are resolved against; fallback supplies defaults not set anywhere in
// the manifest.
func (m *Manifest) CoreJobs(base string, fallback core.GenerationOptions) ([]core.Job, error) {
	resolve := func(p string) string {
		if p == "" || filepath.IsAbs(p) {
			return p
		}
		return filepath.Join(base, p)
	}

	jobs := make([]core.Job, 0, len(m.Jobs))
	for i, mj := range m.Jobs {
		name := mj.Name
		if name == "" {
			name = fmt.Sprintf("job-%d", i+1)
		}
		fail := func(reason string) error {
			return &core.ValidationError{Field: fmt.Sprintf("jobs[%d] (%s)", i, name), Reason: reason, Err: core.ErrInput}
		}

		var in core.Input
		set := 0
		if mj.Image != "" {
			in = core.ImageInput{Path: resolve(mj.Image)}
			set++
		}
		if len(mj.Multiview) > 0 {
			paths := make([]string, len(mj.Multiview))
			for j, p := range mj.Multiview {
				paths[j] = resolve(p)
			}
			in = core.MultiviewInput{Paths: paths}
			set++
		}
		if mj.Prompt != "" {
			in = core.TextInput{Prompt: mj.Prompt, NegativePrompt: mj.NegativePrompt}
			set++
		}
		if set != 1 {
			return nil, fail("exactly one of image, multiview or prompt is required")
		}
		if mj.Output == "" {
			return nil, fail("output is required")
		}

		spec := m.Defaults.merge(mj.JobSpec)
		opts := fallback
		if spec.Format != "" {
			f, err := core.ParseFormat(spec.Format)
			if err != nil {
				return nil, fail(err.Error())
			}
			opts.Format = f
		}
		if spec.ModelVersion != "" {
			opts.ModelVersion = spec.ModelVersion
		}
		if spec.TextureQuality != "" {
			opts.TextureQuality = spec.TextureQuality
		}
		if spec.FaceLimit != nil {
			opts.FaceLimit = spec.FaceLimit
		}
		if spec.Seed != nil {
			opts.Seed = spec.Seed
		}
		if spec.Texture != nil {
			opts.Texture = spec.Texture
		}
		if spec.PBR != nil {
			opts.PBR = spec.PBR
		}
		if spec.Quad != nil {
			opts.Quad = *spec.Quad
		}
		if err := opts.Validate(); err != nil {
			return nil, fail(err.Error())
		}

		jobs = append(jobs, core.Job{
			Name:    name,
			Input:   in,
			Options: opts,
			Output:  withFormatExt(resolve(mj.Output), opts.Format),
		})
	}
	return jobs, nil
}

func (a *App) newBatchCommand() *cobra.Command {
	var concurrency int

	cmd := &cobra.Command{
		Use:   "batch <manifest.yaml>",
		Short: "Run several generations from a YAML manifest",
		Long: `Run several independent generations described by a YAML manifest.

Jobs run concurrently (--concurrency, or concurrency in the manifest). A
failing job does not stop the others; the command exits non-zero if any
job failed.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runBatch(cmd, args[0], concurrency)
		},
	}
	cmd.Flags().IntVarP(&concurrency, "concurrency", "c", 0, "jobs in flight (default: manifest value or 1)")
	return cmd
}

type jobOutput struct {
	Name   string       `json:"name"`
	TaskID string       `json:"task_id,omitempty"`
	Path   string       `json:"path,omitempty"`
	Error  *errorOutput `json:"error,omitempty"`
}

func (a *App) runBatch(cmd *cobra.Command, path string, concurrency int) error {
	m, err := LoadManifest(path)
	if err != nil {
		return err
	}
	fallback := core.GenerationOptions{Format: a.cfg.Format(), ModelVersion: a.cfg.ModelVersion}
	jobs, err := m.CoreJobs(filepath.Dir(path), fallback)
	if err != nil {
		return err
	}
	if concurrency <= 0 {
		concurrency = max(m.Concurrency, 1)
	}

	client, flush, err := a.newClient()
	if err != nil {
		return err
	}
	defer flush()

	if !a.quiet && !a.jsonOutput {
		var mu sync.Mutex
		for i := range jobs {
			// Line mode only: parallel jobs share stderr.
			r := &progressRenderer{w: a.stderr, label: "[" + jobs[i].Name + "]", mu: &mu}
			jobs[i].OnProgress = r.Update
		}
	}

	results, batchErr := client.GenerateBatch(cmd.Context(), jobs, concurrency)

	outputs := make([]jobOutput, len(results))
	failed := 0
	var firstErr error
	for i, r := range results {
		out := jobOutput{Name: r.Job.Name, Path: r.Path}
		if r.Task != nil {
			out.TaskID = r.Task.ID
		}
		if r.Err != nil {
			failed++
			e := describeError(withTask(r.Task, r.Err))
			out.Error = &e
			if firstErr == nil {
				firstErr = r.Err
			}
		}
		outputs[i] = out
	}

	if a.jsonOutput {
		if err := writeJSON(a.stdout, outputs); err != nil {
			return err
		}
	} else {
		for _, o := range outputs {
			if o.Error != nil {
				fmt.Fprintf(a.stdout, "FAIL %s: [%s] %s\n", o.Name, o.Error.Kind, o.Error.Message)
				continue
			}
			fmt.Fprintf(a.stdout, "OK   %s: %s (task %s)\n", o.Name, o.Path, o.TaskID)
		}
	}

	if batchErr == nil {
		return nil
	}
	if firstErr == nil {
		firstErr = batchErr
	}
	return fmt.Errorf("%d of %d jobs failed: %w", failed, len(results), firstErr)
}
