package metrics

import (
	"fmt"
	"regexp"
	"slices"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	"github.com/ml-infra/guide-acceptor/types"
)

const (
	MetricsNamespace = "gir"
)

var (
	Debug                bool = true
	validResults              = []types.StepStatus{types.StepStatusPass, types.StepStatusFail, types.StepStatusSkip}
	nonAlphanumericRegex      = regexp.MustCompile(`[^a-zA-Z ]+`)

	errorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "errors_total",
		Help:      "Count of errors",
	}, []string{
		"error",
	})

	stepsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "steps_total",
		Help:      "Count of executed pipeline steps",
	}, []string{
		"runner_name",
		"run_id",
		"step",
		"kind",
		"result",
	})

	pipelineResults = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "pipeline_results",
		Help:      "Result of guide pipeline runs",
	}, []string{
		"runner_name",
		"run_id",
		"result",
	})

	pipelineStepTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "pipeline_step_total",
		Help:      "Total number of pipeline steps per run",
	}, []string{
		"runner_name",
		"run_id",
	})

	pipelineStepPassed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "pipeline_step_passed",
		Help:      "Number of passed pipeline steps",
	}, []string{
		"runner_name",
		"run_id",
	})

	pipelineStepFailed = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "pipeline_step_failed",
		Help:      "Number of failed pipeline steps",
	}, []string{
		"runner_name",
		"run_id",
	})

	pipelineDuration = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Namespace: MetricsNamespace,
		Name:      "pipeline_duration",
		Help:      "Duration of guide pipeline runs",
	}, []string{
		"runner_name",
		"run_id",
	})

	cacheResolutions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: MetricsNamespace,
		Name:      "cache_resolutions_total",
		Help:      "Count of package cache resolutions",
	}, []string{
		"runner_name",
		"outcome",
	})
)

// errToLabel tries to make the error string a more valid Prometheus label
func errToLabel(err error) string {
	if err == nil {
		return "nil"
	}
	errClean := nonAlphanumericRegex.ReplaceAllString(err.Error(), "")
	errClean = strings.ReplaceAll(errClean, " ", "_")
	errClean = strings.ReplaceAll(errClean, "__", "_")
	return errClean
}

func RecordError(error string) {
	if Debug {
		zap.S().Debugw("metric inc",
			"m", "errors_total",
			"error", error,
		)
	}
	errorsTotal.WithLabelValues(error).Inc()
}

// RecordErrorDetails concats the error message to the label
// and also tries to clean the label to be a valid Prometheus label
func RecordErrorDetails(label string, err error) {
	if err == nil {
		return
	}
	label = fmt.Sprintf("%s.%s", label, errToLabel(err))
	RecordError(label)
}

func RecordStep(runnerName string, runID string, stepID string, kind types.StepKind, result types.StepStatus) {
	if !isValidResult(result) {
		zap.S().Errorw("RecordStep - invalid result", "result", result)
		return
	}
	if Debug {
		zap.S().Debugw("metric inc",
			"m", "steps_total",
			"runner", runnerName,
			"run_id", runID,
			"step", stepID,
			"kind", kind,
			"result", result)
	}
	stepsTotal.WithLabelValues(runnerName, runID, stepID, string(kind), string(result)).Inc()
}

// RecordCacheResolution tracks cache hits and misses. Outcome is "hit",
// "miss" or "bypass".
func RecordCacheResolution(runnerName string, outcome string) {
	if Debug {
		zap.S().Debugw("metric inc",
			"m", "cache_resolutions_total",
			"runner", runnerName,
			"outcome", outcome)
	}
	cacheResolutions.WithLabelValues(runnerName, outcome).Inc()
}

func RecordPipeline(
	runnerName string,
	runID string,
	result string,
	total int,
	passed int,
	failed int,
	duration time.Duration,
) {
	pipelineResults.WithLabelValues(runnerName, runID, result).Set(1)
	pipelineStepTotal.WithLabelValues(runnerName, runID).Add(float64(total))
	pipelineStepPassed.WithLabelValues(runnerName, runID).Add(float64(passed))
	pipelineStepFailed.WithLabelValues(runnerName, runID).Add(float64(failed))
	pipelineDuration.WithLabelValues(runnerName, runID).Set(duration.Seconds())
}

func isValidResult(result types.StepStatus) bool {
	return slices.Contains(validResults, result)
}
