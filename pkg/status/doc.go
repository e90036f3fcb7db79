/*
Package status collects the outcome of every copy task, registry export and
post-processing step of a run and turns them into a summary and an exit code.

	+-------------+      +-------------+
	|  operation  | ---> |   Summary   |
	|   (runner)  |      |  (entries)  |
	+-------------+      +------+------+
	                            |
	              +-------------+-------------+
	              |                           |
	       +------+------+             +------+------+
	       |   Render    |             |  ExitCode   |
	       |  (console)  |             |  (process)  |
	       +-------------+             +-------------+

🎯 Purpose:
- Records one Entry per task or job, in execution order
- Counts outcomes, including simulated successes under dry run
- Renders the final table with fatih/color
- Maps the aggregate result to the process exit status

📝 Exit status:
  - 0 when every entry succeeded (a partial copy counts, with a warning)
  - 1 when any entry failed, a tool was missing or authentication was exhausted
  - 2 is reserved for configuration and usage errors raised before a run starts
*/
package status
