// Package dispatch fans a notification out to many recipients through the
// bot while staying under a fixed message rate.
//
// Recipients are processed one at a time. Every delivery attempt waits on a
// token bucket limiter, so a run over M recipients at R messages per second
// takes at least (M-1)/R seconds. Failures are classified:
//
//   - permanent (bot blocked, chat gone): no retry
//   - transient (network, flood control, 5xx): retried with jittered backoff
//     until the attempt budget is spent
//   - fatal (the run context ended): the run stops
//   - anything else: given up immediately, the batch continues
//
// After the pass, delivered recipients are flagged as reminded and every
// other recipient is deactivated, in two independent bulk updates.
package dispatch
