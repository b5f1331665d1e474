// Package approval implements the human-approval gate lifecycle: pending
// requests resolved by role holders, escalated to a fallback role when their
// deadline passes, and expired when nobody acts in time.
package approval
