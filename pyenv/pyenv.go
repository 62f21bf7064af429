// Package pyenv provisions isolated Python execution environments pinned to
// a specific interpreter series.
package pyenv

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/mod/semver"
)

// CmdBuilder constructs the command used to invoke an interpreter. It is
// injectable so tests can substitute stub processes.
type CmdBuilder func(ctx context.Context, name string, arg ...string) *exec.Cmd

// Interpreter is a discovered Python binary and its reported version.
type Interpreter struct {
	Binary  string // Resolved binary name or path
	Version string // Full version, e.g. "3.10.14"
}

// Env is a provisioned virtual environment.
type Env struct {
	Root   string // Virtualenv root directory
	Python string // Path to the environment's python binary
}

// Provisioner discovers a matching interpreter and creates virtualenvs
// from it.
type Provisioner struct {
	series     string // Pinned interpreter series, e.g. "3.10"
	binary     string // Explicit interpreter override; skips discovery when set
	log        *zap.SugaredLogger
	cmdBuilder CmdBuilder
}

// NewProvisioner creates a provisioner for the given interpreter series.
// binary, when non-empty, bypasses discovery but is still version-checked.
func NewProvisioner(series string, binary string, log *zap.SugaredLogger, cmdBuilder CmdBuilder) (*Provisioner, error) {
	if series == "" {
		return nil, fmt.Errorf("interpreter series is required")
	}
	if !semver.IsValid("v" + series) {
		return nil, fmt.Errorf("invalid interpreter series %q", series)
	}
	if log == nil {
		log = zap.S()
	}
	if cmdBuilder == nil {
		cmdBuilder = exec.CommandContext
	}
	return &Provisioner{
		series:     series,
		binary:     binary,
		log:        log,
		cmdBuilder: cmdBuilder,
	}, nil
}

// FindInterpreter locates a Python binary whose version matches the pinned
// series. Candidates are probed in order of specificity; the first match
// wins. Failing to find one is fatal for the run.
func (p *Provisioner) FindInterpreter(ctx context.Context) (Interpreter, error) {
	candidates := []string{
		"python" + p.series,
		"python3",
		"python",
	}
	if p.binary != "" {
		candidates = []string{p.binary}
	}

	var probed []string
	for _, candidate := range candidates {
		version, err := p.probe(ctx, candidate)
		if err != nil {
			p.log.Debugw("Interpreter probe failed", "binary", candidate, "error", err)
			probed = append(probed, candidate)
			continue
		}
		if !matchesSeries(version, p.series) {
			p.log.Debugw("Interpreter version mismatch",
				"binary", candidate, "version", version, "want", p.series)
			probed = append(probed, fmt.Sprintf("%s (%s)", candidate, version))
			continue
		}
		p.log.Infow("Found interpreter", "binary", candidate, "version", version)
		return Interpreter{Binary: candidate, Version: version}, nil
	}

	return Interpreter{}, fmt.Errorf("no Python %s interpreter found (tried: %s)",
		p.series, strings.Join(probed, ", "))
}

// CreateEnv provisions a fresh virtualenv at dir using the given interpreter.
func (p *Provisioner) CreateEnv(ctx context.Context, interp Interpreter, dir string) (*Env, error) {
	cmd := p.cmdBuilder(ctx, interp.Binary, "-m", "venv", dir)
	if out, err := cmd.CombinedOutput(); err != nil {
		return nil, fmt.Errorf("creating virtualenv at %s: %w\n%s", dir, err, strings.TrimSpace(string(out)))
	}

	env := &Env{
		Root:   dir,
		Python: filepath.Join(dir, binDir(), "python"),
	}
	p.log.Infow("Created virtualenv", "dir", dir, "python", env.Python)
	return env, nil
}

// probe runs "<binary> --version" and parses the reported version.
func (p *Provisioner) probe(ctx context.Context, binary string) (string, error) {
	cmd := p.cmdBuilder(ctx, binary, "--version")
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("probing %s: %w", binary, err)
	}
	return parseVersion(string(out))
}

// parseVersion extracts the version number from "--version" output of the
// form "Python 3.10.14".
func parseVersion(out string) (string, error) {
	fields := strings.Fields(strings.TrimSpace(out))
	if len(fields) != 2 || fields[0] != "Python" {
		return "", fmt.Errorf("unexpected version output %q", strings.TrimSpace(out))
	}
	version := fields[1]
	if !semver.IsValid("v" + version) {
		return "", fmt.Errorf("unparseable interpreter version %q", version)
	}
	return version, nil
}

// matchesSeries reports whether a full interpreter version belongs to the
// pinned major.minor series.
func matchesSeries(version string, series string) bool {
	return semver.MajorMinor("v"+version) == semver.MajorMinor("v"+series)
}

// Environ assembles the process environment for commands executed inside
// the virtualenv: the venv bin directory leads PATH, VIRTUAL_ENV is set and
// pip is pointed at the resolved cache directory.
func (e *Env) Environ(pipCacheDir string) []string {
	binPath := filepath.Join(e.Root, binDir())

	environ := []string{
		"VIRTUAL_ENV=" + e.Root,
	}
	if pipCacheDir != "" {
		environ = append(environ, "PIP_CACHE_DIR="+pipCacheDir)
	}
	for _, kv := range os.Environ() {
		switch {
		case strings.HasPrefix(kv, "PATH="):
			environ = append(environ, "PATH="+binPath+string(os.PathListSeparator)+strings.TrimPrefix(kv, "PATH="))
		case strings.HasPrefix(kv, "VIRTUAL_ENV="), strings.HasPrefix(kv, "PIP_CACHE_DIR="):
			// Already set above
		default:
			environ = append(environ, kv)
		}
	}
	return environ
}

func binDir() string {
	if runtime.GOOS == "windows" {
		return "Scripts"
	}
	return "bin"
}
