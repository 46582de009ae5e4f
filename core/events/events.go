package events

import (
	"time"

	"github.com/kilianp07/autoshutdown/core/model"
)

// DecisionEvent is published once per reconciled machine.
type DecisionEvent struct {
	RunID    string
	Decision model.Decision
	Simulate bool
	Time     time.Time
}

// ExecutionEvent is published when a mutating call returns.
type ExecutionEvent struct {
	RunID    string
	Decision model.Decision
	Err      error
	Latency  time.Duration
	Time     time.Time
}

// ReportEvent is published for each subscription processed, whether or not
// the report is delivered.
type ReportEvent struct {
	RunID            string
	SubscriptionID   string
	SubscriptionName string
	Machines         int
	Tagged           int
	Untagged         int
	Started          int
	Stopped          int
	Failed           int
	ListErr          error
	Time             time.Time
}
