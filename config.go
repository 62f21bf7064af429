package gir

import (
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/urfave/cli/v2"
	"go.uber.org/zap"

	"github.com/ml-infra/guide-acceptor/flags"
)

// Config holds the application configuration
type Config struct {
	ManifestPath string        // Path to the pipeline manifest (guides.yaml)
	WorkDir      string        // Framework checkout the pipeline runs against
	CacheDir     string        // Base directory for persisted pip caches; empty disables persistence
	NoCache      bool          // Force a cache miss for this run
	LogDir       string        // Directory to store per-step output logs
	PythonBinary string        // Interpreter override; skips discovery when set
	GuideTimeout time.Duration // Timeout for the guide script, 0 means none
	DryRun       bool          // Print the resolved step plan without executing
	Log          *zap.SugaredLogger
}

// NewConfig creates a new Config from cli context
func NewConfig(ctx *cli.Context, log *zap.SugaredLogger, manifestPath string, workDir string) (*Config, error) {
	if err := flags.CheckRequired(ctx); err != nil {
		return nil, fmt.Errorf("missing required flags: %w", err)
	}
	if manifestPath == "" {
		return nil, errors.New("manifest path is required")
	}
	if workDir == "" {
		return nil, errors.New("work directory is required")
	}

	absManifest, err := filepath.Abs(manifestPath)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for manifest '%s': %w", manifestPath, err)
	}
	absWorkDir, err := filepath.Abs(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for work directory '%s': %w", workDir, err)
	}

	// Get log directory, default to "logs" if not specified
	logDir := ctx.String(flags.LogDir.Name)
	if logDir == "" {
		logDir = "logs"
	}
	logDir, err = filepath.Abs(logDir)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve absolute path for log directory '%s': %w", logDir, err)
	}

	cacheDir := ctx.String(flags.CacheDir.Name)
	if cacheDir != "" {
		cacheDir, err = filepath.Abs(cacheDir)
		if err != nil {
			return nil, fmt.Errorf("failed to resolve absolute path for cache directory '%s': %w", cacheDir, err)
		}
	}

	return &Config{
		ManifestPath: absManifest,
		WorkDir:      absWorkDir,
		CacheDir:     cacheDir,
		NoCache:      ctx.Bool(flags.NoCache.Name),
		LogDir:       logDir,
		PythonBinary: ctx.String(flags.PythonBinary.Name),
		GuideTimeout: ctx.Duration(flags.GuideTimeout.Name),
		DryRun:       ctx.Bool(flags.DryRun.Name),
		Log:          log,
	}, nil
}
