// Homography Backend - Point Annotation and Homography Bridge Server
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/homography-backend

/*
Package bridge turns named options into an external process invocation and
reports how it ended.

Options keep insertion order. A true flag renders as "--name", a false flag
is dropped and a string renders as "--name value":

	opts := bridge.NewOptions().Set("a", "x").Flag("b", true).Flag("c", false)
	opts.Suffix() // " --a x --b"

Bridge.Run blocks until the process exits and returns a Result with the
exit code and captured output. Failures are classified:

  - *ProcessError (ErrProcessFailed): the process exited non-zero
  - ErrStartFailed: the interpreter could not be started
  - ErrTimeout: the process exceeded bridge.timeout and was killed
  - ErrUnavailable: the circuit breaker is open

Bridge.Start returns a pending tasks.Task at once and records the outcome
when the process finishes. Shutdown cancels those processes; their tasks
end as failed.
*/
package bridge
