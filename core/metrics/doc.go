// Package metrics defines the sinks recording reconciliation activity.
// Sinks such as PromSink and InfluxSink (package infra/metrics) record one
// entry per machine decision and may implement the optional recorder
// interfaces for provider calls and subscription runs. NewSink builds a
// MultiSink automatically when several sinks are configured.
package metrics
