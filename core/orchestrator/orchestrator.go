// Package orchestrator drives the batch runner over every configured
// subscription, one subscription at a time, and assembles the reports handed
// to notification sinks.
package orchestrator

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/kilianp07/autoshutdown/core/batch"
	"github.com/kilianp07/autoshutdown/core/events"
	"github.com/kilianp07/autoshutdown/core/logger"
	"github.com/kilianp07/autoshutdown/core/model"
	"github.com/kilianp07/autoshutdown/internal/eventbus"
)

// Inventory lists the machines of a subscription.
type Inventory interface {
	ListMachines(ctx context.Context, subscriptionID string) ([]model.Machine, error)
}

// Orchestrator runs reconciliation for a list of subscriptions.
type Orchestrator struct {
	inventory Inventory
	executor  batch.Executor
	runner    *batch.Runner
	log       logger.Logger
	bus       eventbus.EventBus
	clock     func() time.Time
}

// Option configures an Orchestrator.
type Option func(*Orchestrator)

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(o *Orchestrator) { o.log = logger.OrNop(l) }
}

// WithEventBus publishes one ReportEvent per subscription on bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(o *Orchestrator) { o.bus = bus }
}

// WithClock overrides the time source stamped on reports.
func WithClock(now func() time.Time) Option {
	return func(o *Orchestrator) {
		if now != nil {
			o.clock = now
		}
	}
}

// New creates an Orchestrator. exec receives every Start and Stop decision of
// non-simulated subscriptions.
func New(inv Inventory, exec batch.Executor, runner *batch.Runner, opts ...Option) *Orchestrator {
	o := &Orchestrator{
		inventory: inv,
		executor:  exec,
		runner:    runner,
		log:       logger.Nop{},
		clock:     func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run processes subs sequentially and returns a report for every
// subscription in which at least one machine was started or stopped.
// A subscription whose machines cannot be listed is logged and treated as
// empty.
func (o *Orchestrator) Run(ctx context.Context, subs []Subscription, d Defaults) []Report {
	runID := uuid.NewString()
	runner := o.runner.WithRunID(runID)
	var reports []Report
	for _, sub := range subs {
		if ctx.Err() != nil {
			o.log.Warnf("run %s cancelled before subscription %s", runID, sub.DisplayName())
			break
		}
		policy := sub.Policy(d)
		o.log.Infof("verifying machine state in %s (simulate=%t, defaultToOff=%t)", sub.DisplayName(), policy.Simulate, policy.DefaultToOff)

		machines, err := o.inventory.ListMachines(ctx, sub.ID)
		if err != nil {
			o.log.Errorf("list machines in %s: %v", sub.DisplayName(), err)
			machines = nil
		}

		res := runner.Run(ctx, machines, policy, o.executor)
		o.publish(events.ReportEvent{
			RunID:            runID,
			SubscriptionID:   sub.ID,
			SubscriptionName: sub.DisplayName(),
			Machines:         len(machines),
			Tagged:           len(res.Tagged),
			Untagged:         len(res.Untagged),
			Started:          len(res.Started),
			Stopped:          len(res.Stopped),
			Failed:           len(res.Failed),
			ListErr:          err,
			Time:             o.clock(),
		})
		o.log.Infof("%s: %d machines, %d tagged, %d started, %d stopped, %d failed",
			sub.DisplayName(), len(machines), len(res.Tagged), len(res.Started), len(res.Stopped), len(res.Failed))
		if !res.Changed() {
			continue
		}
		reports = append(reports, newReport(runID, sub, policy.Simulate, res, o.clock()))
	}
	return reports
}

func (o *Orchestrator) publish(ev eventbus.Event) {
	if o.bus != nil {
		o.bus.Publish(ev)
	}
}
