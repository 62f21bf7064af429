package gir

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ml-infra/guide-acceptor/metrics"
	"github.com/ml-infra/guide-acceptor/pipeline"
	"github.com/ml-infra/guide-acceptor/types"
)

// printResultsTable prints the results of the pipeline run to the console.
func (n *gir) printResultsTable(result *pipeline.Result) {
	n.config.Log.Info("Printing results...")
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle(fmt.Sprintf("Guide Pipeline Results (%s)", formatDuration(result.Duration)))

	// Configure columns
	t.AppendHeader(table.Row{
		"Kind", "Step", "Duration", "Status", "Error",
	})

	// Set column configurations for better readability
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Kind", AutoMerge: true},
		{Name: "Step", WidthMax: 50, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Duration", Align: text.AlignRight},
		{Name: "Error", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, step := range result.Steps {
		prefix := "├──"
		if i == len(result.Steps)-1 {
			prefix = "└──"
		}

		t.AppendRow(table.Row{
			string(step.Metadata.Kind),
			fmt.Sprintf("%s %s", prefix, step.Metadata.ID),
			formatDuration(step.Duration),
			getResultString(step.Status),
			extractKeyErrorMessage(step.Error),
		})
	}

	// Update the table style setting based on result status
	if result.Status == types.StepStatusPass {
		t.SetStyle(table.StyleColoredBlackOnGreenWhite)
	} else if result.Status == types.StepStatusSkip {
		t.SetStyle(table.StyleColoredBlackOnYellowWhite)
	} else {
		t.SetStyle(table.StyleColoredBlackOnRedWhite)
	}

	// Add summary footer
	t.AppendFooter(table.Row{
		"TOTAL",
		fmt.Sprintf("%d passed / %d failed / %d skipped", result.Stats.Passed, result.Stats.Failed, result.Stats.Skipped),
		formatDuration(result.Duration),
		getResultString(result.Status),
		"",
	})

	t.Render()

	// Emit metrics
	metrics.RecordPipeline(
		n.registry.Manifest().Runner,
		result.RunID,
		string(result.Status),
		result.Stats.Total,
		result.Stats.Passed,
		result.Stats.Failed,
		result.Duration,
	)
}

// printPlanTable prints the steps the pipeline would run, without running them.
func (n *gir) printPlanTable() {
	t := table.NewWriter()
	t.SetOutputMirror(os.Stdout)
	t.SetTitle("Guide Pipeline Plan (dry run)")

	t.AppendHeader(table.Row{"#", "Kind", "Step", "Command"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "#", Align: text.AlignRight},
		{Name: "Kind", AutoMerge: true},
		{Name: "Command", WidthMax: 80, WidthMaxEnforcer: text.WrapSoft},
	})

	for i, meta := range n.runner.Plan() {
		t.AppendRow(table.Row{
			i + 1,
			string(meta.Kind),
			meta.ID,
			meta.Command,
		})
	}

	t.SetStyle(table.StyleColoredBlackOnBlueWhite)
	t.Render()
}

// getResultString converts a StepStatus to a colored display string.
func getResultString(status types.StepStatus) string {
	switch status {
	case types.StepStatusPass:
		return "✓ pass"
	case types.StepStatusSkip:
		return "- skip"
	default:
		return "✗ fail"
	}
}

// extractKeyErrorMessage extracts the most pertinent part of the error message for display
func extractKeyErrorMessage(err error) string {
	if err == nil {
		return ""
	}

	errStr := err.Error()

	// pip prints its diagnosis on an ERROR: line, surface that one
	if idx := strings.Index(errStr, "ERROR:"); idx != -1 {
		start := idx
		end := len(errStr)
		if newLine := strings.Index(errStr[start:], "\n"); newLine != -1 {
			end = start + newLine
		}
		return errStr[start:end]
	}

	// Guide runs that hit the timeout already carry a one-line message
	if idx := strings.Index(errStr, "timed out after"); idx != -1 {
		return errStr[idx:]
	}

	// Otherwise keep the first line only, command output tails can be long
	if newLine := strings.Index(errStr, "\n"); newLine != -1 {
		return errStr[:newLine]
	}
	return errStr
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
