package metrics

import (
	"errors"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"

	coremetrics "github.com/kilianp07/autoshutdown/core/metrics"
)

// PromSink records reconciliation activity in Prometheus metrics.
type PromSink struct {
	decisions  *prometheus.CounterVec
	executions *prometheus.CounterVec
	latency    *prometheus.HistogramVec
	machines   *prometheus.GaugeVec
	lastRun    *prometheus.GaugeVec
}

// NewPromSink registers the metrics on the default Prometheus registerer.
// The HTTP endpoint is served separately by StartPromServer.
func NewPromSink() (*PromSink, error) {
	return NewPromSinkWithRegistry(prometheus.DefaultRegisterer)
}

// NewPromSinkWithRegistry registers metrics on reg. A nil registerer
// defaults to the global Prometheus registerer.
func NewPromSinkWithRegistry(reg prometheus.Registerer) (*PromSink, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	decisions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoshutdown_decisions_total",
		Help: "Machine decisions by action",
	}, []string{"subscription", "action", "reason", "simulate"})
	executions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "autoshutdown_provider_calls_total",
		Help: "Start and deallocate calls by outcome",
	}, []string{"subscription", "action", "success"})
	latency := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "autoshutdown_provider_call_seconds",
		Help:    "Duration of start and deallocate calls",
		Buckets: []float64{1, 5, 15, 30, 60, 120, 300},
	}, []string{"action"})
	machines := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "autoshutdown_machines",
		Help: "Machines seen in the last run by tag state",
	}, []string{"subscription", "tagged"})
	lastRun := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "autoshutdown_last_run_timestamp_seconds",
		Help: "Unix time of the last completed run per subscription",
	}, []string{"subscription"})

	var err error
	if decisions, err = register(reg, decisions); err != nil {
		return nil, err
	}
	if executions, err = register(reg, executions); err != nil {
		return nil, err
	}
	if latency, err = register(reg, latency); err != nil {
		return nil, err
	}
	if machines, err = register(reg, machines); err != nil {
		return nil, err
	}
	if lastRun, err = register(reg, lastRun); err != nil {
		return nil, err
	}
	return &PromSink{decisions: decisions, executions: executions, latency: latency, machines: machines, lastRun: lastRun}, nil
}

// register reuses an identical collector registered by an earlier sink.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) (C, error) {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing, nil
			}
		}
		return c, err
	}
	return c, nil
}

// RecordDecision increments the decision counter.
func (s *PromSink) RecordDecision(rec coremetrics.DecisionRecord) error {
	s.decisions.WithLabelValues(rec.SubscriptionID, rec.Action, rec.Reason, strconv.FormatBool(rec.Simulate)).Inc()
	return nil
}

// RecordExecution counts the call and observes its latency.
func (s *PromSink) RecordExecution(rec coremetrics.ExecutionRecord) error {
	s.executions.WithLabelValues(rec.SubscriptionID, rec.Action, strconv.FormatBool(rec.Success)).Inc()
	s.latency.WithLabelValues(rec.Action).Observe(rec.Latency.Seconds())
	return nil
}

// RecordSubscriptionRun updates the per-subscription gauges.
func (s *PromSink) RecordSubscriptionRun(run coremetrics.SubscriptionRun) error {
	s.machines.WithLabelValues(run.SubscriptionID, "true").Set(float64(run.Tagged))
	s.machines.WithLabelValues(run.SubscriptionID, "false").Set(float64(run.Untagged))
	s.lastRun.WithLabelValues(run.SubscriptionID).Set(float64(run.Time.Unix()))
	return nil
}
