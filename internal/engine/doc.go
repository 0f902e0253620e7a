// Package engine executes pipelines.
//
// A run walks the pipeline's jobs in dependency order and each job's
// steps strictly sequentially. The first failed step fails its job and
// skips the remaining steps; a job whose dependencies did not all
// succeed is skipped without running. There is no retry policy and no
// partial-failure recovery: failure propagation is exactly the exit
// status of each step's underlying tool.
//
// The engine reports infrastructure problems (unloadable files, a
// missing analyzer binary) as errors; a step that ran and failed is not
// an error but a failure status in the returned RunResult.
package engine
