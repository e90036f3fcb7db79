/*
Package operation runs the stages of a profile sync.

	+-------------+     +-------------+     +-------------+
	|    copy     | --> |  registry   | --> |  shortcuts  |
	| (robocopy)  |     | (reg export)|     |   (MotW)    |
	+------+------+     +------+------+     +------+------+
	       |                   |                   |
	       +---------+---------+---------+---------+
	                 |                   |
	          execution.Engine     status.Summary

🎯 Purpose:
- Resolves the sync rules into copy tasks and runs one robocopy per task
- Exports the configured registry keys, elevated when asked to
- Strips Mark of the Web from the copied desktop shortcuts

🔄 Flow:
 1. The copy stage probes the source and authenticates if the share refuses us
 2. Each task runs once; access denial triggers one authentication and one rerun
 3. A missing robocopy marks the remaining copy tasks as not attempted and ends the run
 4. Registry export and shortcut cleanup run once every copy task has been tried

⚡ Fatal errors:
An invalid profile or rule, a failed preflight and a missing robocopy stop the
run. Every other failure is recorded in the summary and decides the exit code.

🔍 Example:

	sum, err := operation.Sync(ctx, operation.Options{
		Config: cfg,
		Exec:   execution.NewEngine(nil),
		Auth:   mediator,
		Prober: &auth.StatProber{},
	})
*/
package operation
