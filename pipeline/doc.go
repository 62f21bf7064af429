// Package pipeline executes the guide integration pipeline: an ordered,
// fail-fast sequence of provisioning and install steps feeding into one
// guide-suite execution.
//
// The main components are:
//   - PipelineRunner: resolves the manifest into a step plan and runs it
//   - Step: one external-process invocation with captured output
//   - Result: the aggregated outcome of a run, including per-step results
//
// Steps are strictly sequential. Any step exiting non-zero aborts the run;
// remaining steps are recorded as skipped and the guide script is never
// reached after an install failure.
package pipeline
