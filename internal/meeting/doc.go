// Package meeting owns the booking lifecycle: deterministic meeting
// identity, the Pending/Confirmed/Cancelled state machine, the validated
// booking pipeline, and cancellation matching for requests that arrive
// without an explicit meeting ID.
package meeting
