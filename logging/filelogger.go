// Package logging persists captured step output for each pipeline run.
//
// Logs from the failing step are the only diagnostic surface of a run, so
// every step's combined output is written to its own file under a
// per-run directory, with failing steps mirrored into failed/ for quick
// triage and a summary.log capturing the step sequence.
package logging

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/acarl005/stripansi"

	"github.com/ml-infra/guide-acceptor/types"
)

const (
	RunDirectoryPrefix = "run-" // Standardized prefix for run directories
	SummaryFilename    = "summary.log"
)

// FileLogger handles writing step output to files
type FileLogger struct {
	baseDir     string // Base directory for logs
	logDir      string // Directory for this run
	failedDir   string // Directory mirroring failed steps
	summaryFile string // Path to the summary file
	runID       string // Current run ID
	mu          sync.Mutex
}

// NewFileLogger creates a new FileLogger with given configuration
func NewFileLogger(baseDir string, runID string) (*FileLogger, error) {
	if runID == "" {
		return nil, fmt.Errorf("runID cannot be empty")
	}
	if baseDir == "" {
		return nil, fmt.Errorf("baseDir cannot be empty")
	}

	logDir := filepath.Join(baseDir, RunDirectoryPrefix+runID)
	failedDir := filepath.Join(logDir, "failed")

	for _, dir := range []string{baseDir, logDir, failedDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	return &FileLogger{
		baseDir:     baseDir,
		logDir:      logDir,
		failedDir:   failedDir,
		summaryFile: filepath.Join(logDir, SummaryFilename),
		runID:       runID,
	}, nil
}

// LogDir returns the directory holding this run's logs.
func (l *FileLogger) LogDir() string {
	return l.logDir
}

// LogStep writes the combined output of one step to its log file and
// returns the file path. Output is ANSI-stripped so the files stay
// greppable. Failed steps are mirrored into the failed/ directory.
func (l *FileLogger) LogStep(result *types.StepResult, output []byte) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	clean := stripansi.Strip(string(output))

	var header strings.Builder
	fmt.Fprintf(&header, "step: %s\n", result.Metadata.ID)
	fmt.Fprintf(&header, "command: %s\n", result.Metadata.Command)
	fmt.Fprintf(&header, "status: %s\n", result.Status)
	fmt.Fprintf(&header, "duration: %s\n", result.Duration)
	if result.Error != nil {
		fmt.Fprintf(&header, "error: %v\n", result.Error)
	}
	header.WriteString("\n")

	content := []byte(header.String() + clean)
	filename := sanitizeStepID(result.Metadata.ID) + ".log"

	path := filepath.Join(l.logDir, filename)
	if err := os.WriteFile(path, content, 0644); err != nil {
		return "", fmt.Errorf("failed to write step log %s: %w", path, err)
	}

	if result.Status == types.StepStatusFail {
		failedPath := filepath.Join(l.failedDir, filename)
		if err := os.WriteFile(failedPath, content, 0644); err != nil {
			return "", fmt.Errorf("failed to mirror failed step log %s: %w", failedPath, err)
		}
	}

	return path, nil
}

// WriteSummary persists a plain-text digest of the whole run.
func (l *FileLogger) WriteSummary(runID string, status types.StepStatus, duration time.Duration, steps []*types.StepResult) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	var b strings.Builder
	fmt.Fprintf(&b, "Guide pipeline run %s\n", runID)
	fmt.Fprintf(&b, "Status: %s\n", status)
	fmt.Fprintf(&b, "Duration: %.1fs\n\n", duration.Seconds())

	for _, step := range steps {
		marker := "✓"
		switch step.Status {
		case types.StepStatusFail:
			marker = "✗"
		case types.StepStatusSkip:
			marker = "-"
		}
		fmt.Fprintf(&b, "%s %-24s %8.1fs", marker, step.Metadata.ID, step.Duration.Seconds())
		if step.Error != nil {
			fmt.Fprintf(&b, "  %s", firstLine(step.Error.Error()))
		}
		b.WriteString("\n")
	}

	if err := os.WriteFile(l.summaryFile, []byte(b.String()), 0644); err != nil {
		return fmt.Errorf("failed to write summary: %w", err)
	}
	return nil
}

func sanitizeStepID(id string) string {
	return strings.NewReplacer("/", "_", " ", "_", ":", "_").Replace(id)
}

func firstLine(s string) string {
	if idx := strings.IndexByte(s, '\n'); idx != -1 {
		return s[:idx]
	}
	return s
}
