package metrics

import (
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/ml-infra/guide-acceptor/types"
)

func TestErrToLabel(t *testing.T) {
	tests := []struct {
		name string
		err  error
	}{
		{
			name: "nil error",
			err:  nil,
		},
		{
			name: "simple error",
			err:  errors.New("test error"),
		},
		{
			name: "error with special chars",
			err:  errors.New("test@error#123"),
		},
		{
			name: "error with multiple spaces",
			err:  errors.New("test   error"),
		},
		{
			name: "error with multiple underscores",
			err:  errors.New("test__error"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := errToLabel(tt.err)
			validLabelRegex := regexp.MustCompile(`[a-zA-Z_][a-zA-Z0-9_]*`)
			if !validLabelRegex.MatchString(result) {
				t.Errorf("errLabel() = %v, is not a valid Prometheus label", result)
			}
		})
	}
}

func TestRecordError(t *testing.T) {
	// just test that it doesn't panic
	defer func() {
		if r := recover(); r != nil {
			t.Errorf("RecordError panic'd")
		}
	}()

	RecordError("test_error")
}

func TestRecordErrorDetails(t *testing.T) {
	// Test with nil error
	RecordErrorDetails("test", nil)

	// Test with actual error
	RecordErrorDetails("test", errors.New("sample error"))
}

func TestRecordStep(t *testing.T) {
	RecordStep("ubuntu-latest", "run1", "provision", types.StepKindProvision, types.StepStatusPass)
	RecordStep("ubuntu-latest", "run1", "install/jax", types.StepKindInstall, types.StepStatusFail)
	RecordStep("ubuntu-latest", "run1", "guides", types.StepKindGuides, types.StepStatusSkip)

	// Invalid results are dropped rather than recorded
	RecordStep("ubuntu-latest", "run1", "guides", types.StepKindGuides, types.StepStatus("bogus"))
}

func TestRecordCacheResolution(t *testing.T) {
	RecordCacheResolution("ubuntu-latest", "hit")
	RecordCacheResolution("ubuntu-latest", "miss")
	RecordCacheResolution("ubuntu-latest", "bypass")
}

func TestRecordPipeline(t *testing.T) {
	RecordPipeline("ubuntu-latest", "run1", "pass", 7, 6, 0, time.Second)
	RecordPipeline("ubuntu-latest", "run1", "fail", 7, 3, 1, time.Second)
}
