// Package operation dispatches per-file rewrites over the paths a glob resolves to.
//
//	+-------------+
//	|  Enumerator |
//	|   (glob)    |
//	+------+------+
//	       |
//	+------+------+
//	|   Runner    |
//	| (errgroup)  |
//	+------+------+
//	       |
//	+------+------+
//	|   replace   |
//	| (temp file) |
//	+-------------+
//
// 🎯 Purpose:
// - Resolves a glob into an ordered list of paths
// - Rewrites every regular file concurrently, bounded by the worker limit
// - Returns one Outcome per enumerated path, in enumeration order
//
// 🔄 Flow:
// 1. Validate the pattern sequence and the glob; either failing aborts the call
// 2. Enumerate every path up front and report the total to the status tracker
// 3. Spawn one unit per path; directories pass through as skipped
// 4. Wait for every unit before returning
//
// ⚡ Guarantees:
// - A failing or panicking unit only affects its own Outcome
// - No unit outlives ReplaceGlob
// - Units are not cancelled once spawned
//
// 🔍 Example:
//
//	runner, err := operation.New(operation.Options{Workers: 8})
//	outcomes, err := runner.ReplaceGlob(ctx, "src/**/*.go", []string{"oldName"}, "newName")
//	if err := operation.FirstError(outcomes); err != nil {
//		return err
//	}
package operation
