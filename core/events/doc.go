// Package events defines the reconciliation events emitted on the event bus.
//
// Available event types:
//   - DecisionEvent: a machine has been reconciled
//   - ExecutionEvent: a start or deallocate call has completed
//   - ReportEvent: a subscription report has been assembled
package events
