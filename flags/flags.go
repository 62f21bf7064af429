package flags

import (
	"fmt"

	"github.com/urfave/cli/v2"
)

const EnvVarPrefix = "GUIDE_ACCEPTOR"

// prefixEnvVars prepends the application prefix to an environment variable
// suffix, e.g. "MANIFEST" -> "GUIDE_ACCEPTOR_MANIFEST".
func prefixEnvVars(suffix string) []string {
	return []string{EnvVarPrefix + "_" + suffix}
}

var (
	Manifest = &cli.StringFlag{
		Name:     "manifest",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("MANIFEST"),
		Usage:    "Path to the pipeline manifest file (eg. 'guides.yaml')",
	}
	WorkDir = &cli.StringFlag{
		Name:     "workdir",
		Value:    "",
		Required: true,
		EnvVars:  prefixEnvVars("WORKDIR"),
		Usage:    "Path to the framework checkout containing the guide script",
	}
	CacheDir = &cli.StringFlag{
		Name:    "cache-dir",
		Value:   "",
		EnvVars: prefixEnvVars("CACHE_DIR"),
		Usage:   "Directory holding pip package caches across runs (empty disables persistence)",
	}
	NoCache = &cli.BoolFlag{
		Name:    "no-cache",
		Value:   false,
		EnvVars: prefixEnvVars("NO_CACHE"),
		Usage:   "Force a cache miss even when a matching cache entry exists",
	}
	LogDir = &cli.StringFlag{
		Name:    "logdir",
		Value:   "logs",
		EnvVars: prefixEnvVars("LOGDIR"),
		Usage:   "Directory to store per-step output logs",
	}
	LogLevel = &cli.StringFlag{
		Name:    "log-level",
		Value:   "info",
		EnvVars: prefixEnvVars("LOG_LEVEL"),
		Usage:   "Log level (debug, info, warn, error)",
	}
	PythonBinary = &cli.StringFlag{
		Name:    "python-binary",
		Value:   "",
		EnvVars: prefixEnvVars("PYTHON_BINARY"),
		Usage:   "Path to the Python interpreter to use instead of discovering one",
	}
	GuideTimeout = &cli.DurationFlag{
		Name:    "guide-timeout",
		Value:   0,
		EnvVars: prefixEnvVars("GUIDE_TIMEOUT"),
		Usage:   "Timeout for the guide script (e.g. '2h'). Set to 0 or omit for no timeout.",
	}
	DryRun = &cli.BoolFlag{
		Name:    "dry-run",
		Value:   false,
		EnvVars: prefixEnvVars("DRY_RUN"),
		Usage:   "Print the resolved step plan without executing anything",
	}
)

var requiredFlags = []cli.Flag{
	Manifest,
	WorkDir,
}

var optionalFlags = []cli.Flag{
	CacheDir,
	NoCache,
	LogDir,
	LogLevel,
	PythonBinary,
	GuideTimeout,
	DryRun,
}

var Flags []cli.Flag

func init() {
	Flags = append(requiredFlags, optionalFlags...)
}

func CheckRequired(ctx *cli.Context) error {
	for _, f := range requiredFlags {
		if !ctx.IsSet(f.Names()[0]) {
			return fmt.Errorf("flag %s is required", f.Names()[0])
		}
	}
	return nil
}
