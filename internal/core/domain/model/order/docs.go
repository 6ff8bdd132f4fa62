// Package order holds the fulfillment aggregate: the Order record, its closed
// set of lifecycle states and actions, the evidence each action needs, and the
// pure transition guards.
//
// Lifecycle:
//
//	New -> Accepted -> Processing -> ReadyForPickup -> Completed
//
// with Reject (New only) and Cancel (any non-terminal state) leading to
// Cancelled. Every committed transition appends one AuditEntry; refused
// requests return a *TransitionError and leave the order untouched.
//
// The handover from ReadyForPickup to Completed may be gated by a six-digit
// one-time code decided at MarkReady time. The code is single use: once it
// is consumed, expired or revoked its value is wiped and only its status
// remains.
package order
