package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/ml-infra/guide-acceptor/types"
)

// Result captures the complete pipeline run results
type Result struct {
	RunID        string
	Status       types.StepStatus
	Duration     time.Duration
	Steps        []*types.StepResult
	Stats        types.ResultStats
	CacheOutcome string // hit, miss or bypass
	// FailedStep points at the first failing step, nil on success. Its
	// kind decides the exit code: a guides failure exits 1, anything
	// else is a runtime error and exits 2.
	FailedStep *types.StepResult
}

// GuideFailure reports whether the run failed inside the guide script
// rather than during provisioning or installs.
func (r *Result) GuideFailure() bool {
	return r.FailedStep != nil && r.FailedStep.Metadata.Kind == types.StepKindGuides
}

func (r *Result) String() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Guide Pipeline Results (%s):\n", formatDuration(r.Duration)))
	b.WriteString(fmt.Sprintf("Total: %d, Passed: %d, Failed: %d, Skipped: %d\n",
		r.Stats.Total, r.Stats.Passed, r.Stats.Failed, r.Stats.Skipped))

	for _, step := range r.Steps {
		b.WriteString(fmt.Sprintf("├── Step: %s (%s) [status=%s]\n",
			step.Metadata.ID, formatDuration(step.Duration), step.Status))
		if step.Error != nil {
			b.WriteString(fmt.Sprintf("│       └── Error: %s\n", step.Error.Error()))
		}
	}

	b.WriteString(fmt.Sprintf("└── Result: %s\n", r.Status))
	return b.String()
}

// addStep folds one step result into the aggregate.
func (r *Result) addStep(step *types.StepResult) {
	r.Steps = append(r.Steps, step)
	r.Stats.Total++
	switch step.Status {
	case types.StepStatusPass:
		r.Stats.Passed++
	case types.StepStatusFail:
		r.Stats.Failed++
		if r.FailedStep == nil {
			r.FailedStep = step
		}
	case types.StepStatusSkip:
		r.Stats.Skipped++
	}
}

func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
