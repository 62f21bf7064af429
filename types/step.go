package types

import (
	"time"
)

// StepStatus represents the possible states of a pipeline step execution
type StepStatus string

const (
	StepStatusPass StepStatus = "pass"
	StepStatusFail StepStatus = "fail"
	StepStatusSkip StepStatus = "skip"
)

// StepKind identifies the phase of the pipeline a step belongs to.
type StepKind string

const (
	StepKindProvision StepKind = "provision"
	StepKindInstaller StepKind = "installer"
	StepKindCache     StepKind = "cache"
	StepKindInstall   StepKind = "install"
	StepKindGuides    StepKind = "guides"
)

// StepMetadata describes a resolved pipeline step before execution.
type StepMetadata struct {
	ID      string   // Stable identifier, e.g. "install/jax"
	Kind    StepKind // Pipeline phase
	Command string   // Human-readable command line
}

// StepResult captures the outcome of a single step execution
type StepResult struct {
	Metadata StepMetadata
	Status   StepStatus
	Error    error         // Non-nil when the step exited non-zero or could not start
	Duration time.Duration // Wall-clock execution time
	Stdout   string        // Tail of combined output for failing steps
	LogFile  string        // Path to the full captured output, when file logging is enabled
}

// ResultStats tracks step statistics for a run.
type ResultStats struct {
	Total     int
	Passed    int
	Failed    int
	Skipped   int
	StartTime time.Time
	EndTime   time.Time
}
