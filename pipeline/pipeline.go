package pipeline

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ml-infra/guide-acceptor/cache"
	"github.com/ml-infra/guide-acceptor/logging"
	"github.com/ml-infra/guide-acceptor/metrics"
	"github.com/ml-infra/guide-acceptor/pyenv"
	"github.com/ml-infra/guide-acceptor/registry"
	"github.com/ml-infra/guide-acceptor/types"
)

// installerPackages are upgraded inside the virtualenv before any install
// group runs.
var installerPackages = []string{"pip", "setuptools", "wheel"}

// maxOutputTail bounds how much combined output is kept in memory on a
// step result; full output always goes to the step's log file.
const maxOutputTail = 4096

// PipelineRunner defines the interface for running the guide pipeline
type PipelineRunner interface {
	RunAll(ctx context.Context) (*Result, error)
	Plan() []types.StepMetadata
}

// Config holds configuration for creating a new runner
type Config struct {
	Registry     *registry.Registry
	WorkDir      string // Framework checkout the pipeline runs against
	RunID        string // Run identifier; generated when empty
	Log          *zap.SugaredLogger
	CacheDir     string // Base directory for persisted pip caches
	NoCache      bool   // Force a cache miss for this run
	PythonBinary string // Interpreter override, skips discovery
	GuideTimeout time.Duration
	FileLogger   *logging.FileLogger
	CmdBuilder   pyenv.CmdBuilder // Injectable for tests
}

// runner struct implements the PipelineRunner interface
type runner struct {
	manifest     *types.Manifest
	workDir      string
	log          *zap.SugaredLogger
	runID        string
	venvDir      string
	cacheStore   *cache.Store
	noCache      bool
	provisioner  *pyenv.Provisioner
	cmdBuilder   pyenv.CmdBuilder
	guideTimeout time.Duration
	fileLogger   *logging.FileLogger
	tracer       trace.Tracer
}

// NewPipelineRunner creates a new pipeline runner instance
func NewPipelineRunner(cfg Config) (PipelineRunner, error) {
	if cfg.Registry == nil {
		return nil, fmt.Errorf("registry is required")
	}
	if cfg.WorkDir == "" {
		return nil, fmt.Errorf("work directory is required")
	}
	if cfg.Log == nil {
		cfg.Log = zap.S()
		cfg.Log.Error("No logger provided, using default")
	}
	if cfg.CmdBuilder == nil {
		cfg.CmdBuilder = exec.CommandContext
	}

	manifest := cfg.Registry.Manifest()
	runID := cfg.RunID
	if runID == "" {
		runID = uuid.New().String()
	}

	provisioner, err := pyenv.NewProvisioner(manifest.Python, cfg.PythonBinary, cfg.Log, cfg.CmdBuilder)
	if err != nil {
		return nil, fmt.Errorf("failed to create provisioner: %w", err)
	}

	return &runner{
		manifest:     manifest,
		workDir:      cfg.WorkDir,
		log:          cfg.Log,
		runID:        runID,
		venvDir:      filepath.Join(os.TempDir(), "guide-acceptor-venv-"+runID),
		cacheStore:   cache.NewStore(cfg.CacheDir, cfg.Log),
		noCache:      cfg.NoCache,
		provisioner:  provisioner,
		cmdBuilder:   cfg.CmdBuilder,
		guideTimeout: cfg.GuideTimeout,
		fileLogger:   cfg.FileLogger,
		tracer:       otel.Tracer("guide pipeline"),
	}, nil
}

// step pairs resolved metadata with the closure that executes it.
type step struct {
	meta types.StepMetadata
	run  func(ctx context.Context) ([]byte, error)
}

// Plan returns the resolved step sequence without executing anything.
func (r *runner) Plan() []types.StepMetadata {
	plan := []types.StepMetadata{
		r.provisionMeta(),
		r.installerMeta(),
		r.cacheMeta(),
	}
	for _, spec := range r.manifest.Install {
		plan = append(plan, r.installMeta(spec))
	}
	return append(plan, r.guidesMeta())
}

// RunAll executes the pipeline steps strictly in order. Step failures are
// captured on the Result rather than returned: the returned error is
// reserved for the pipeline itself being unable to run.
func (r *runner) RunAll(ctx context.Context) (*Result, error) {
	ctx, span := r.tracer.Start(ctx, "pipeline run")
	defer span.End()

	r.log.Infow("Starting guide pipeline", "run_id", r.runID,
		"runner", r.manifest.Runner, "python", r.manifest.Python)

	result := &Result{RunID: r.runID, Status: types.StepStatusPass}
	result.Stats.StartTime = time.Now()

	// The virtualenv is scoped to this run
	defer os.RemoveAll(r.venvDir)

	var env *pyenv.Env
	var resolution cache.Resolution

	steps := []step{
		{
			meta: r.provisionMeta(),
			run: func(ctx context.Context) ([]byte, error) {
				interp, err := r.provisioner.FindInterpreter(ctx)
				if err != nil {
					return nil, err
				}
				e, err := r.provisioner.CreateEnv(ctx, interp, r.venvDir)
				if err != nil {
					return nil, err
				}
				env = e
				out := fmt.Sprintf("interpreter: %s (%s)\nvirtualenv: %s\n", interp.Binary, interp.Version, e.Root)
				return []byte(out), nil
			},
		},
		{
			meta: r.installerMeta(),
			run: func(ctx context.Context) ([]byte, error) {
				args := append([]string{"install", "--upgrade"}, installerPackages...)
				return r.runPip(ctx, env, resolution.Dir, args)
			},
		},
		{
			meta: r.cacheMeta(),
			run: func(ctx context.Context) ([]byte, error) {
				manifestPath := filepath.Join(r.workDir, r.manifest.Cache.KeyManifest)
				key, err := cache.KeyFromFile(r.manifest.Runner, manifestPath)
				if err != nil {
					return nil, err
				}
				res, err := r.cacheStore.Resolve(key, r.noCache)
				if err != nil {
					return nil, err
				}
				resolution = res
				result.CacheOutcome = res.Outcome
				metrics.RecordCacheResolution(r.manifest.Runner, res.Outcome)
				out := fmt.Sprintf("key: %s\noutcome: %s\ndir: %s\n", res.Key, res.Outcome, res.Dir)
				return []byte(out), nil
			},
		},
	}

	for _, spec := range r.manifest.Install {
		spec := spec
		steps = append(steps, step{
			meta: r.installMeta(spec),
			run: func(ctx context.Context) ([]byte, error) {
				return r.runPip(ctx, env, resolution.Dir, spec.PipArgs())
			},
		})
	}

	steps = append(steps, step{
		meta: r.guidesMeta(),
		run: func(ctx context.Context) ([]byte, error) {
			return r.runGuides(ctx, env, resolution.Dir)
		},
	})

	failed := false
	for _, s := range steps {
		if failed {
			skipped := &types.StepResult{Metadata: s.meta, Status: types.StepStatusSkip}
			metrics.RecordStep(r.manifest.Runner, r.runID, s.meta.ID, s.meta.Kind, skipped.Status)
			result.addStep(skipped)
			continue
		}
		stepResult := r.runStep(ctx, s)
		result.addStep(stepResult)
		if stepResult.Status == types.StepStatusFail {
			failed = true
		}
	}

	result.Stats.EndTime = time.Now()
	result.Duration = result.Stats.EndTime.Sub(result.Stats.StartTime)
	if failed {
		result.Status = types.StepStatusFail
	}

	if resolution.Ephemeral && resolution.Dir != "" {
		_ = os.RemoveAll(resolution.Dir)
	}

	if r.fileLogger != nil {
		if err := r.fileLogger.WriteSummary(r.runID, result.Status, result.Duration, result.Steps); err != nil {
			r.log.Errorw("Failed to write run summary", "error", err)
		}
	}

	r.log.Infow("Guide pipeline completed", "run_id", r.runID,
		"status", result.Status, "duration", result.Duration)
	return result, nil
}

// runStep executes one step, capturing output to the file logger and
// recording metrics.
func (r *runner) runStep(ctx context.Context, s step) *types.StepResult {
	ctx, span := r.tracer.Start(ctx, fmt.Sprintf("step %s", s.meta.ID))
	defer span.End()

	r.log.Infow("Running step", "step", s.meta.ID, "command", s.meta.Command)
	start := time.Now()
	output, err := s.run(ctx)
	duration := time.Since(start)

	stepResult := &types.StepResult{
		Metadata: s.meta,
		Status:   types.StepStatusPass,
		Duration: duration,
	}
	if err != nil {
		stepResult.Status = types.StepStatusFail
		stepResult.Error = err
		stepResult.Stdout = tail(output, maxOutputTail)
	}

	if r.fileLogger != nil {
		path, logErr := r.fileLogger.LogStep(stepResult, output)
		if logErr != nil {
			r.log.Errorw("Failed to write step log", "step", s.meta.ID, "error", logErr)
		} else {
			stepResult.LogFile = path
		}
	}

	metrics.RecordStep(r.manifest.Runner, r.runID, s.meta.ID, s.meta.Kind, stepResult.Status)

	if stepResult.Status == types.StepStatusFail {
		r.log.Errorw("Step failed", "step", s.meta.ID, "duration", duration, "error", err)
	} else {
		r.log.Infow("Step passed", "step", s.meta.ID, "duration", duration)
	}
	return stepResult
}

// runPip invokes pip through the virtualenv's interpreter.
func (r *runner) runPip(ctx context.Context, env *pyenv.Env, cacheDir string, args []string) ([]byte, error) {
	cmd := r.cmdBuilder(ctx, env.Python, append([]string{"-m", "pip"}, args...)...)
	cmd.Dir = r.workDir
	cmd.Env = env.Environ(cacheDir)

	out, err := cmd.CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("pip %s: %w", strings.Join(args, " "), err)
	}
	return out, nil
}

// runGuides executes the guide script. The script is an opaque
// collaborator: its exit status is the outcome, its internal failure
// handling is its own business.
func (r *runner) runGuides(ctx context.Context, env *pyenv.Env, cacheDir string) ([]byte, error) {
	if r.guideTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.guideTimeout)
		defer cancel()
	}

	args := append([]string{r.manifest.Guides.Script}, r.manifest.Guides.Args...)
	cmd := r.cmdBuilder(ctx, "bash", args...)
	cmd.Dir = r.workDir
	cmd.Env = env.Environ(cacheDir)

	out, err := cmd.CombinedOutput()
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return out, fmt.Errorf("guide script %s timed out after %v", r.manifest.Guides.Script, r.guideTimeout)
		}
		return out, fmt.Errorf("guide script %s: %w", r.manifest.Guides.Script, err)
	}
	return out, nil
}

func (r *runner) provisionMeta() types.StepMetadata {
	return types.StepMetadata{
		ID:      "provision",
		Kind:    types.StepKindProvision,
		Command: fmt.Sprintf("python%s -m venv %s", r.manifest.Python, r.venvDir),
	}
}

func (r *runner) installerMeta() types.StepMetadata {
	return types.StepMetadata{
		ID:      "installer-upgrade",
		Kind:    types.StepKindInstaller,
		Command: "python -m pip install --upgrade " + strings.Join(installerPackages, " "),
	}
}

func (r *runner) cacheMeta() types.StepMetadata {
	return types.StepMetadata{
		ID:      "cache-restore",
		Kind:    types.StepKindCache,
		Command: fmt.Sprintf("restore pip cache (key manifest: %s)", r.manifest.Cache.KeyManifest),
	}
}

func (r *runner) installMeta(spec types.InstallSpec) types.StepMetadata {
	name := spec.Name
	if name == "" {
		name = spec.Target
	}
	return types.StepMetadata{
		ID:      "install/" + name,
		Kind:    types.StepKindInstall,
		Command: "python -m pip " + strings.Join(spec.PipArgs(), " "),
	}
}

func (r *runner) guidesMeta() types.StepMetadata {
	command := "bash " + r.manifest.Guides.Script
	if len(r.manifest.Guides.Args) > 0 {
		command += " " + strings.Join(r.manifest.Guides.Args, " ")
	}
	return types.StepMetadata{
		ID:      "guides",
		Kind:    types.StepKindGuides,
		Command: command,
	}
}

// tail returns the trailing portion of output, at most n bytes.
func tail(output []byte, n int) string {
	if len(output) <= n {
		return string(output)
	}
	return string(output[len(output)-n:])
}
