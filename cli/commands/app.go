package commands

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/term"

	"github.com/mberenty7/tripo-tools/cli/config"
	"github.com/mberenty7/tripo-tools/cli/keystore"
	"github.com/mberenty7/tripo-tools/core"
	"github.com/mberenty7/tripo-tools/providers"
	"github.com/mberenty7/tripo-tools/providers/tripo"
)

// keyName is the keystore entry holding the Tripo API key.
const keyName = "tripo"

// ConfigLoader loads CLI config from a path.
type ConfigLoader func(path string) (*config.Config, error)

// ProviderFactory creates a provider from resolved settings.
type ProviderFactory func(s providers.Settings) (core.Provider, error)

// KeystoreFactory creates a keystore instance.
type KeystoreFactory func() (keystore.Keystore, error)

// AppOption customizes App dependencies.
type AppOption func(*App)

// App holds CLI state and runtime dependencies.
type App struct {
	root *cobra.Command

	loadConfig     ConfigLoader
	createProvider ProviderFactory
	newKeystore    KeystoreFactory
	stdin          io.Reader
	stdout         io.Writer
	stderr         io.Writer

	cfgFile     string
	apiKey      string
	jsonOutput  bool
	verbose     bool
	quiet       bool
	timeoutSecs int
	metricsFile string
	cfg         *config.Config
	logger      *zap.Logger

	gen generateFlags
}

// WithConfigLoader injects a config loader dependency.
func WithConfigLoader(loader ConfigLoader) AppOption {
	return func(a *App) {
		if loader != nil {
			a.loadConfig = loader
		}
	}
}

// WithProviderFactory injects a provider factory dependency.
func WithProviderFactory(factory ProviderFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.createProvider = factory
		}
	}
}

// WithKeystoreFactory injects a keystore factory dependency.
func WithKeystoreFactory(factory KeystoreFactory) AppOption {
	return func(a *App) {
		if factory != nil {
			a.newKeystore = factory
		}
	}
}

// WithIO injects process I/O streams.
func WithIO(stdin io.Reader, stdout, stderr io.Writer) AppOption {
	return func(a *App) {
		if stdin != nil {
			a.stdin = stdin
		}
		if stdout != nil {
			a.stdout = stdout
		}
		if stderr != nil {
			a.stderr = stderr
		}
	}
}

// NewApp creates a new CLI app with default dependencies.
func NewApp(opts ...AppOption) *App {
	a := &App{
		loadConfig:     config.LoadConfig,
		createProvider: defaultProviderFactory,
		newKeystore:    keystore.NewKeystore,
		stdin:          os.Stdin,
		stdout:         os.Stdout,
		stderr:         os.Stderr,
		logger:         zap.NewNop(),
	}

	for _, opt := range opts {
		opt(a)
	}

	a.root = a.newRootCommand()
	return a
}

func defaultProviderFactory(s providers.Settings) (core.Provider, error) {
	return providers.Create("tripo", s)
}

func (a *App) newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:   "tripo",
		Short: "Tripo3D image-to-3D and text-to-3D generation",
		Long: `tripo generates 3D models with the Tripo3D API.

Examples:
  tripo --image photo.png --output model.glb
  tripo --prompt "a wooden barrel" --output barrel.glb
  tripo --multiview front.png back.png left.png right.png --output model.fbx --format fbx
  tripo --balance
  tripo batch jobs.yaml`,
		Version: Version,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.initConfig()
		},
		Args:          a.rootArgs,
		RunE:          a.runRoot,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("tripo-tools {{.Version}}\n")
	root.SetIn(a.stdin)
	root.SetOut(a.stdout)
	root.SetErr(a.stderr)

	pf := root.PersistentFlags()
	pf.StringVar(&a.cfgFile, "config", "", "config file (default is ~/.tripo/config.yaml)")
	pf.StringVarP(&a.apiKey, "api-key", "k", "", "Tripo API key (default: $TRIPO_API_KEY, then the keystore)")
	pf.BoolVar(&a.jsonOutput, "json", false, "emit JSON output")
	pf.BoolVar(&a.verbose, "verbose", false, "enable debug logging")
	pf.BoolVarP(&a.quiet, "quiet", "q", false, "suppress progress output")
	pf.IntVarP(&a.timeoutSecs, "timeout", "t", 0, "max wait time in seconds (default: 600 or poll.timeout from config)")
	pf.StringVar(&a.metricsFile, "metrics-file", "", "write Prometheus metrics in text format to this file on exit")

	a.addGenerateFlags(root)

	root.AddCommand(a.newBatchCommand())
	root.AddCommand(a.newKeysCommand())
	root.AddCommand(a.newVersionCommand())

	return root
}

// Execute runs the root command with a background context.
func (a *App) Execute() error {
	return a.ExecuteContext(context.Background())
}

// ExecuteContext runs the root command. A failure is reported on stderr as
// "Error [<Kind>]: message" and returned as an error carrying an exit code.
func (a *App) ExecuteContext(ctx context.Context) error {
	err := a.root.ExecuteContext(ctx)
	defer func() { _ = a.logger.Sync() }()
	if err == nil {
		return nil
	}
	a.printError(err)
	return exitWithCode(exitCodeFor(err), err)
}

// SetArgs overrides the command line, for tests and embedding.
func (a *App) SetArgs(args []string) {
	a.root.SetArgs(args)
}

func (a *App) initConfig() error {
	path := a.cfgFile
	if path == "" {
		path = config.DefaultConfigPath()
	}

	cfg, err := a.loadConfig(path)
	if err != nil {
		return err
	}
	a.cfg = cfg
	a.logger = newLogger(a.stderr, a.verbose)
	return nil
}

// newLogger writes to w: development encoding at debug level when verbose,
// JSON at warn level otherwise.
func newLogger(w io.Writer, verbose bool) *zap.Logger {
	if verbose {
		enc := zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig())
		return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zapcore.DebugLevel))
	}
	enc := zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig())
	return zap.New(zapcore.NewCore(enc, zapcore.Lock(zapcore.AddSync(w)), zapcore.WarnLevel))
}

// resolveAPIKey returns --api-key, then $TRIPO_API_KEY, then the keystore entry.
func (a *App) resolveAPIKey() (string, error) {
	if a.apiKey != "" {
		return a.apiKey, nil
	}
	if v := os.Getenv(tripo.DefaultAPIKeyEnvVar); v != "" {
		return v, nil
	}

	ks, err := a.newKeystore()
	if err != nil {
		return "", fmt.Errorf("%w: opening keystore: %v", core.ErrConfig, err)
	}
	key, err := ks.Get(keyName)
	if err != nil {
		var notFound *keystore.ErrKeyNotFound
		if errors.As(err, &notFound) {
			return "", fmt.Errorf("%w: no API key: pass --api-key, set %s, or run 'tripo keys set'",
				core.ErrConfig, tripo.DefaultAPIKeyEnvVar)
		}
		return "", fmt.Errorf("%w: reading keystore: %v", core.ErrConfig, err)
	}
	return key, nil
}

// newClient builds the provider and core client from flags and config. The
// returned flush func writes the metrics file, if one was requested.
func (a *App) newClient() (*core.Client, func(), error) {
	key, err := a.resolveAPIKey()
	if err != nil {
		return nil, nil, err
	}

	p, err := a.createProvider(providers.Settings{
		APIKey:            key,
		BaseURL:           a.cfg.BaseURL,
		RequestsPerSecond: a.cfg.RateLimit.RequestsPerSecond,
		Burst:             a.cfg.RateLimit.Burst,
		Logger:            a.logger,
	})
	if err != nil {
		return nil, nil, err
	}

	pc := a.cfg.PollConfig()
	if a.timeoutSecs > 0 {
		pc.Timeout = secondsToDuration(a.timeoutSecs)
	}

	opts := []core.ClientOption{
		core.WithPollConfig(pc),
		core.WithLogger(a.logger),
		core.WithUploadConcurrency(a.cfg.UploadConcurrency),
	}

	flush := func() {}
	if a.metricsFile != "" {
		hook, write := newMetrics(a.metricsFile, a.logger)
		opts = append(opts, core.WithTelemetry(hook))
		flush = write
	}

	return core.NewClient(p, opts...), flush, nil
}

func (a *App) isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}

// Execute runs a fresh default app with ctx.
func Execute(ctx context.Context) error {
	return NewApp().ExecuteContext(ctx)
}
