// Package services provides the domain services around the order aggregate:
//   - HandoverVerifier: decides whether a supplied handover code completes an order
//   - RandomCodeGenerator: issues six-digit handover codes
//   - CancellationLedger: turns a cancelled order into a ledger entry and refund intent
//
// Services hold no state and do no I/O; persistence is the caller's concern.
package services
