// Package sweeper drives time-based approval transitions: a recurring sweep
// escalates or expires due approvals, and a low-frequency cleanup removes
// terminal records past the retention window. Both passes run under a hard
// execution budget and rely on the registry's conditional transitions to
// stay idempotent under overlapping runs.
package sweeper
