package gir

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync/atomic"

	"github.com/google/uuid"

	"github.com/ml-infra/guide-acceptor/exitcodes"
	"github.com/ml-infra/guide-acceptor/logging"
	"github.com/ml-infra/guide-acceptor/pipeline"
	"github.com/ml-infra/guide-acceptor/registry"
)

// Lifecycle is the service contract the CLI drives: one manually
// dispatched pipeline run per invocation, no automatic re-triggering.
type Lifecycle interface {
	Start(ctx context.Context) error
	Stop(ctx context.Context) error
	Stopped() bool
}

// gir implements the Lifecycle interface.
var _ Lifecycle = &gir{}

// gir is a Guide Integration Runner that runs documentation guides.
type gir struct {
	ctx        context.Context
	config     *Config
	version    string
	runID      string
	registry   *registry.Registry
	runner     pipeline.PipelineRunner
	fileLogger *logging.FileLogger
	result     *pipeline.Result

	running atomic.Bool
}

func New(ctx context.Context, config *Config, version string) (*gir, error) {
	if config == nil {
		return nil, errors.New("config is required")
	}

	config.Log.Debugw("Creating guide-acceptor with config",
		"manifest", config.ManifestPath,
		"workDir", config.WorkDir,
		"cacheDir", config.CacheDir,
		"noCache", config.NoCache,
		"dryRun", config.DryRun)

	reg, err := registry.NewRegistry(registry.Config{
		Log:          config.Log,
		ManifestFile: config.ManifestPath,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create registry: %w", err)
	}

	runID := uuid.New().String()

	// Dry runs plan only, so they leave no log directory behind
	var fileLogger *logging.FileLogger
	if !config.DryRun {
		fileLogger, err = logging.NewFileLogger(config.LogDir, runID)
		if err != nil {
			return nil, fmt.Errorf("failed to create file logger: %w", err)
		}
	}

	// Create runner with registry
	pipelineRunner, err := pipeline.NewPipelineRunner(pipeline.Config{
		Registry:     reg,
		WorkDir:      config.WorkDir,
		RunID:        runID,
		Log:          config.Log,
		CacheDir:     config.CacheDir,
		NoCache:      config.NoCache,
		PythonBinary: config.PythonBinary,
		GuideTimeout: config.GuideTimeout,
		FileLogger:   fileLogger,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create pipeline runner: %w", err)
	}
	config.Log.Info("gir.New: created registry and pipeline runner")

	return &gir{
		ctx:        ctx,
		config:     config,
		version:    version,
		runID:      runID,
		registry:   reg,
		runner:     pipelineRunner,
		fileLogger: fileLogger,
	}, nil
}

// Start runs the guide pipeline exactly once and returns its outcome.
// Start implements the Lifecycle interface.
func (n *gir) Start(ctx context.Context) error {
	// Set up panic recovery to ensure we exit with code 2 for runtime errors
	defer func() {
		if r := recover(); r != nil {
			n.config.Log.Errorw("Runtime error occurred", "error", r)
			os.Exit(exitcodes.RuntimeErr)
		}
	}()

	n.ctx = ctx
	n.running.Store(true)
	defer n.running.Store(false)

	if n.config.DryRun {
		n.config.Log.Infow("Starting guide-acceptor in dry-run mode", "run_id", n.runID)
		n.printPlanTable()
		return nil
	}

	n.config.Log.Infow("Starting guide-acceptor", "run_id", n.runID)

	result, err := n.runner.RunAll(ctx)
	if err != nil {
		// The pipeline itself could not run; this is never a guide failure
		n.config.Log.Errorw("Runtime error running pipeline", "error", err)
		return NewRuntimeError(err)
	}
	n.result = result

	n.printResultsTable(result)
	fmt.Println(result.String())
	if n.fileLogger != nil {
		n.config.Log.Infow("Step logs written", "dir", n.fileLogger.LogDir())
	}
	n.config.Log.Infow("Pipeline run completed", "run_id", result.RunID, "status", result.Status)

	if result.FailedStep != nil {
		if result.GuideFailure() {
			// Guides ran and reported failure: exit code 1
			return NewGuideFailureError(result.FailedStep.Error.Error())
		}
		// Provisioning or install failure: exit code 2
		return NewRuntimeError(result.FailedStep.Error)
	}
	return nil
}

// Stop stops the guide-acceptor service.
// Stop implements the Lifecycle interface.
func (n *gir) Stop(ctx context.Context) error {
	n.config.Log.Info("Stopping guide-acceptor")

	if !n.running.Load() {
		n.config.Log.Debug("Service already stopped, nothing to do")
		return nil
	}
	n.running.Store(false)

	n.config.Log.Info("guide-acceptor stopped successfully")
	return nil
}

// Stopped returns true if the guide-acceptor service is stopped.
// Stopped implements the Lifecycle interface.
func (n *gir) Stopped() bool {
	return !n.running.Load()
}

// Result returns the outcome of the last pipeline run, nil before any run.
func (n *gir) Result() *pipeline.Result {
	return n.result
}
