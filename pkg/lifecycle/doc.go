// Package lifecycle drives the configure, start and shutdown phases of the
// modules that make up a botkit process.
//
// Modules are registered in dependency order: a module's constructor may use
// resources produced by any module registered before it. Configure runs at
// registration time, Start runs for every module in registration order when
// Run is called, and Shutdown runs exactly once per module, in reverse
// registration order, no matter how many times or from where the
// orchestrator's Shutdown is requested.
//
// A single termination Event ends Run. It is set by SIGINT or SIGTERM, by an
// explicit Terminate call, or by a supervised task that exits unexpectedly.
package lifecycle
