// Package supervisor runs long-lived operations (poll loops, serve loops,
// scheduler loops) as cancellable tasks.
//
// A Task starts immediately on Spawn. Cancel requests cooperative
// cancellation through the task's context and blocks until the operation has
// returned, so any resources the operation opened have been released by the
// time Cancel returns.
//
// Outcome rules:
//   - an operation that returns a context error after being cancelled has a
//     nil outcome; cancellation is a normal way to stop
//   - an operation that already finished on its own keeps its outcome, even
//     when Cancel is called afterwards
//   - a panic inside the operation is recovered and reported as an error
package supervisor
