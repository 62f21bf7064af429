package gir

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
	"go.uber.org/zap/zaptest"

	"github.com/ml-infra/guide-acceptor/flags"
)

// runConfig builds a Config through a real cli.App so flag parsing behaves
// exactly as it does in the binary.
func runConfig(t *testing.T, args ...string) (*Config, error) {
	t.Helper()

	var cfg *Config
	var cfgErr error

	app := &cli.App{
		Name:  "guide-acceptor-test",
		Flags: flags.Flags,
		Action: func(ctx *cli.Context) error {
			cfg, cfgErr = NewConfig(ctx,
				zaptest.NewLogger(t).Sugar(),
				ctx.String(flags.Manifest.Name),
				ctx.String(flags.WorkDir.Name))
			return nil
		},
	}

	err := app.Run(append([]string{"guide-acceptor-test"}, args...))
	require.NoError(t, err)
	return cfg, cfgErr
}

func TestNewConfig_ResolvesAbsolutePaths(t *testing.T) {
	cfg, err := runConfig(t,
		"--manifest", "guides.yaml",
		"--workdir", ".",
	)
	require.NoError(t, err)

	assert.True(t, filepath.IsAbs(cfg.ManifestPath))
	assert.True(t, filepath.IsAbs(cfg.WorkDir))
	assert.True(t, filepath.IsAbs(cfg.LogDir))
	assert.Equal(t, "logs", filepath.Base(cfg.LogDir))
	assert.Empty(t, cfg.CacheDir, "cache dir stays empty unless requested")
	assert.False(t, cfg.NoCache)
	assert.False(t, cfg.DryRun)
	assert.Zero(t, cfg.GuideTimeout)
}

func TestNewConfig_AllFlags(t *testing.T) {
	cfg, err := runConfig(t,
		"--manifest", "guides.yaml",
		"--workdir", "/tmp/framework",
		"--cache-dir", "cache",
		"--no-cache",
		"--logdir", "/tmp/run-logs",
		"--python-binary", "/usr/local/bin/python3.10",
		"--guide-timeout", "45m",
		"--dry-run",
	)
	require.NoError(t, err)

	assert.Equal(t, "/tmp/framework", cfg.WorkDir)
	assert.True(t, filepath.IsAbs(cfg.CacheDir))
	assert.True(t, cfg.NoCache)
	assert.Equal(t, "/tmp/run-logs", cfg.LogDir)
	assert.Equal(t, "/usr/local/bin/python3.10", cfg.PythonBinary)
	assert.Equal(t, 45*time.Minute, cfg.GuideTimeout)
	assert.True(t, cfg.DryRun)
}

func TestNewConfig_MissingManifest(t *testing.T) {
	_, err := runConfig(t, "--manifest", "", "--workdir", ".")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "manifest")
}

func TestNewConfig_MissingWorkDir(t *testing.T) {
	_, err := runConfig(t, "--manifest", "guides.yaml", "--workdir", "")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "work directory")
}
