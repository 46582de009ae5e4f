package metrics

import (
	"time"

	"github.com/kilianp07/autoshutdown/core/factory"
)

// Config lists the sinks to build.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
}

// DecisionRecord is one reconciled machine.
type DecisionRecord struct {
	RunID          string
	SubscriptionID string
	ResourceGroup  string
	Machine        string
	Action         string
	Reason         string
	Tagged         bool
	Simulate       bool
	Time           time.Time
}

// Sink records decisions.
type Sink interface {
	RecordDecision(rec DecisionRecord) error
}

// ExecutionRecord is one completed start or deallocate call.
type ExecutionRecord struct {
	RunID          string
	SubscriptionID string
	Machine        string
	Action         string
	Success        bool
	Error          string
	Latency        time.Duration
	Time           time.Time
}

// ExecutionRecorder records provider calls.
type ExecutionRecorder interface {
	RecordExecution(rec ExecutionRecord) error
}

// SubscriptionRun summarises one subscription of a run.
type SubscriptionRun struct {
	RunID            string
	SubscriptionID   string
	SubscriptionName string
	Machines         int
	Tagged           int
	Untagged         int
	Started          int
	Stopped          int
	Failed           int
	ListFailed       bool
	Time             time.Time
}

// SubscriptionRunRecorder records per-subscription summaries.
type SubscriptionRunRecorder interface {
	RecordSubscriptionRun(run SubscriptionRun) error
}

// NopSink implements every recorder with no-op methods.
type NopSink struct{}

func (NopSink) RecordDecision(DecisionRecord) error         { return nil }
func (NopSink) RecordExecution(ExecutionRecord) error       { return nil }
func (NopSink) RecordSubscriptionRun(SubscriptionRun) error { return nil }
