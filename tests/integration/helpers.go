//go:build integration

package integration

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"os"
	"os/exec"
	"path/filepath"
	"testing"
	"time"

	"github.com/mberenty7/tripo-tools/core"
	"github.com/mberenty7/tripo-tools/providers/tripo"
)

// isCI reports whether a common CI environment variable is set.
func isCI() bool {
	for _, v := range []string{"CI", "GITHUB_ACTIONS", "GITLAB_CI", "CIRCLECI", "TRAVIS", "JENKINS_URL"} {
		if os.Getenv(v) != "" {
			return true
		}
	}
	return false
}

// skipIfNoAPIKey skips without TRIPO_API_KEY. In CI it fails instead,
// unless TRIPO_SKIP_INTEGRATION is set.
func skipIfNoAPIKey(t *testing.T) {
	t.Helper()
	if os.Getenv(tripo.DefaultAPIKeyEnvVar) != "" {
		return
	}
	if isCI() && os.Getenv("TRIPO_SKIP_INTEGRATION") == "" {
		t.Fatalf("%s not set (CI environment detected; set TRIPO_SKIP_INTEGRATION=1 to skip)", tripo.DefaultAPIKeyEnvVar)
	}
	t.Skipf("%s not set", tripo.DefaultAPIKeyEnvVar)
}

// skipUnlessGenerating skips tests that spend credits unless
// TRIPO_INTEGRATION_GENERATE is set.
func skipUnlessGenerating(t *testing.T) {
	t.Helper()
	skipIfNoAPIKey(t)
	if os.Getenv("TRIPO_INTEGRATION_GENERATE") == "" {
		t.Skip("TRIPO_INTEGRATION_GENERATE not set; skipping credit-spending test")
	}
}

func newClient(t *testing.T) *core.Client {
	t.Helper()
	p, err := tripo.NewFromEnv(tripo.WithTimeout(60 * time.Second))
	if err != nil {
		t.Fatalf("NewFromEnv: %v", err)
	}
	return core.NewClient(p, core.WithPollConfig(core.PollConfig{
		Interval:             3 * time.Second,
		Jitter:               0.1,
		MaxConsecutiveErrors: 3,
		Timeout:              8 * time.Minute,
	}))
}

func testContext(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	t.Cleanup(cancel)
	return ctx
}

// writeTestImage writes a small PNG of a grey square on white.
func writeTestImage(t *testing.T, name string) string {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 256, 256))
	for y := 0; y < 256; y++ {
		for x := 0; x < 256; x++ {
			c := color.RGBA{255, 255, 255, 255}
			if x > 64 && x < 192 && y > 64 && y < 192 {
				c = color.RGBA{120, 120, 120, 255}
			}
			img.Set(x, y, c)
		}
	}
	path := filepath.Join(t.TempDir(), name)
	f, err := os.Create(path)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if err := png.Encode(f, img); err != nil {
		t.Fatal(err)
	}
	return path
}

type cliResult struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// runCLI runs the pre-built binary with HOME pointed at a temp directory,
// so config and keystore files never touch the real home.
func runCLI(t *testing.T, stdin string, env []string, args ...string) cliResult {
	t.Helper()
	if cliBinary == "" {
		t.Fatal("CLI binary not built - TestMain may not have run")
	}

	cmd := exec.Command(cliBinary, args...)
	cmd.Env = append(os.Environ(), "HOME="+t.TempDir(), "TRIPO_KEYSTORE_PASSPHRASE=integration")
	cmd.Env = append(cmd.Env, env...)
	cmd.Stdin = bytes.NewBufferString(stdin)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	exitCode := 0
	if err := cmd.Run(); err != nil {
		var exitErr *exec.ExitError
		if !errors.As(err, &exitErr) {
			t.Fatalf("Failed to run CLI: %v", err)
		}
		exitCode = exitErr.ExitCode()
	}

	return cliResult{Stdout: stdout.String(), Stderr: stderr.String(), ExitCode: exitCode}
}
