/*
Package status tracks per-file outcomes of a dispatch and reports progress.

	            +-------------+
	            |   Tracker   |
	            | (outcomes)  |
	            +------+------+
	                   |
	      +-----------+-----------+
	      |                       |
	+-----+-----+           +----+----+
	|  Summary  |           |  Logs   |
	|  (counts) |           | (UI/UX) |
	+-----------+           +---------+

🎯 Purpose:
- Records one FileInfo per dispatched path
- Logs progress as workers finish
- Produces a Summary for the CLI

🔄 Flow:
1. The runner calls StartOperation with the number of enumerated paths
2. Each worker calls TrackFile once, from its own goroutine
3. FinishOperation logs and returns the Summary

🤝 Interfaces:
- StatusReporter: implemented by Tracker
- FileFormatter: turns outcomes into messages

🔍 Example:

	tracker := status.New(&logger)
	tracker.StartOperation(ctx, len(paths))

	// from any worker
	tracker.TrackFile(ctx, status.FileInfo{Path: path, Status: status.StatusRewritten, Replacements: 3})

	sum := tracker.FinishOperation(ctx)
	fmt.Println(status.NewDefaultFileFormatter().FormatSummary(sum))
*/
package status
