// Package metrics holds the Prometheus and InfluxDB sinks and the collector
// feeding them from the event bus.
package metrics

import (
	"context"

	"github.com/kilianp07/autoshutdown/core/events"
	coremetrics "github.com/kilianp07/autoshutdown/core/metrics"
	"github.com/kilianp07/autoshutdown/infra/logger"
	"github.com/kilianp07/autoshutdown/internal/eventbus"
)

// StartEventCollector subscribes to the event bus and records metrics for
// events. It stops when the context is canceled or the bus is closed. The
// returned channel is closed once the collector has drained.
func StartEventCollector(ctx context.Context, bus eventbus.EventBus, sink coremetrics.Sink) <-chan struct{} {
	done := make(chan struct{})
	if bus == nil || sink == nil {
		close(done)
		return done
	}
	log := logger.New("metrics-collector")
	sub := bus.Subscribe()
	go func() {
		defer close(done)
		defer bus.Unsubscribe(sub)
		for {
			select {
			case <-ctx.Done():
				return
			case ev, ok := <-sub:
				if !ok {
					return
				}
				if err := record(sink, ev); err != nil {
					log.Warnf("record %T: %v", ev, err)
				}
			}
		}
	}()
	return done
}

func record(sink coremetrics.Sink, ev eventbus.Event) error {
	switch e := ev.(type) {
	case events.DecisionEvent:
		d := e.Decision
		return sink.RecordDecision(coremetrics.DecisionRecord{
			RunID:          e.RunID,
			SubscriptionID: d.Machine.SubscriptionID,
			ResourceGroup:  d.Machine.ResourceGroup,
			Machine:        d.Machine.Name,
			Action:         d.Action.String(),
			Reason:         d.Reason,
			Tagged:         d.Tagged,
			Simulate:       e.Simulate,
			Time:           e.Time,
		})
	case events.ExecutionEvent:
		r, ok := sink.(coremetrics.ExecutionRecorder)
		if !ok {
			return nil
		}
		errStr := ""
		if e.Err != nil {
			errStr = e.Err.Error()
		}
		return r.RecordExecution(coremetrics.ExecutionRecord{
			RunID:          e.RunID,
			SubscriptionID: e.Decision.Machine.SubscriptionID,
			Machine:        e.Decision.Machine.Name,
			Action:         e.Decision.Action.String(),
			Success:        e.Err == nil,
			Error:          errStr,
			Latency:        e.Latency,
			Time:           e.Time,
		})
	case events.ReportEvent:
		r, ok := sink.(coremetrics.SubscriptionRunRecorder)
		if !ok {
			return nil
		}
		return r.RecordSubscriptionRun(coremetrics.SubscriptionRun{
			RunID:            e.RunID,
			SubscriptionID:   e.SubscriptionID,
			SubscriptionName: e.SubscriptionName,
			Machines:         e.Machines,
			Tagged:           e.Tagged,
			Untagged:         e.Untagged,
			Started:          e.Started,
			Stopped:          e.Stopped,
			Failed:           e.Failed,
			ListFailed:       e.ListErr != nil,
			Time:             e.Time,
		})
	}
	return nil
}
