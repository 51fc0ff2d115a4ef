//go:build integration

package integration

import (
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/mberenty7/tripo-tools/core"
	"github.com/mberenty7/tripo-tools/providers/tripo"
)

func TestTripo_Balance(t *testing.T) {
	skipIfNoAPIKey(t)

	b, err := newClient(t).Balance(testContext(t))
	if err != nil {
		t.Fatalf("Balance: %v", err)
	}
	if b.Available < 0 || b.Frozen < 0 {
		t.Errorf("Balance = %+v, want non-negative values", b)
	}
	t.Logf("balance: %g available, %g frozen", b.Available, b.Frozen)
}

func TestTripo_InvalidKey(t *testing.T) {
	skipIfNoAPIKey(t)

	p, err := tripo.New("tsk_invalid_integration_key")
	if err != nil {
		t.Fatal(err)
	}
	_, err = core.NewClient(p).Balance(testContext(t))
	if !errors.Is(err, core.ErrAuth) {
		t.Fatalf("Balance error = %v, want ErrAuth", err)
	}
	var apiErr *core.APIError
	if errors.As(err, &apiErr) && apiErr.Status == 0 {
		t.Errorf("APIError without HTTP status: %+v", apiErr)
	}
}

func TestTripo_UnknownTask(t *testing.T) {
	skipIfNoAPIKey(t)

	_, err := newClient(t).TaskStatus(testContext(t), "00000000-0000-0000-0000-000000000000")
	if err == nil {
		t.Fatal("TaskStatus for unknown task succeeded")
	}
	t.Logf("unknown task: [%s] %v", core.Kind(err), err)
}

func TestTripo_ImageToModel(t *testing.T) {
	skipUnlessGenerating(t)

	faces := 2000
	dest := filepath.Join(t.TempDir(), "cube.glb")
	var events int
	res, err := newClient(t).Generate(testContext(t),
		core.ImageInput{Path: writeTestImage(t, "cube.png")},
		core.GenerationOptions{FaceLimit: &faces},
		dest,
		func(core.ProgressEvent) { events++ },
	)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Task.Status != core.StatusSucceeded {
		t.Errorf("Status = %s, want %s", res.Task.Status, core.StatusSucceeded)
	}
	if events == 0 {
		t.Error("no progress events")
	}
	info, err := os.Stat(res.Path)
	if err != nil || info.Size() == 0 {
		t.Fatalf("downloaded model missing or empty: %v", err)
	}
}

func TestTripo_TextToModelConverted(t *testing.T) {
	skipUnlessGenerating(t)

	faces := 2000
	res, err := newClient(t).Generate(testContext(t),
		core.TextInput{Prompt: "a small wooden crate"},
		core.GenerationOptions{Format: core.FormatOBJ, FaceLimit: &faces},
		filepath.Join(t.TempDir(), "crate.obj"),
		nil,
	)
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if res.Source == nil {
		t.Fatal("converted result has no source task")
	}
	if res.Task.Format != core.FormatOBJ {
		t.Errorf("Format = %s, want %s", res.Task.Format, core.FormatOBJ)
	}
	if _, err := os.Stat(res.Path); err != nil {
		t.Fatalf("downloaded model: %v", err)
	}
}
