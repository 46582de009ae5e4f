// Package reconcile decides what to do with a single machine given its
// observed state and the effective policy of its subscription.
package reconcile

import (
	"time"

	"github.com/kilianp07/autoshutdown/core/logger"
	"github.com/kilianp07/autoshutdown/core/model"
	"github.com/kilianp07/autoshutdown/core/schedule"
)

// Reconciler computes a Decision per machine. It holds no mutable state and
// is safe for concurrent use.
type Reconciler struct {
	eval *schedule.Evaluator
	log  logger.Logger
}

// New returns a Reconciler. A nil logger discards output.
func New(log logger.Logger) *Reconciler {
	log = logger.OrNop(log)
	return &Reconciler{eval: schedule.NewEvaluator(log), log: log}
}

// Decide returns the action needed to bring m in line with its schedule at now.
func (r *Reconciler) Decide(m model.Machine, p model.Policy, now time.Time) model.Decision {
	d := model.Decision{Machine: m.ID, Action: model.ActionNone}
	value, tagged := m.Tag(model.ScheduleTag)
	d.Tagged = tagged

	if m.Provisioning == model.ProvisioningFailed {
		r.log.Warnf("%s: provisioned with error, skipping", m.ID.Name)
		d.Action = model.ActionSkip
		d.Reason = model.ReasonProvisioningFailed
		return d
	}

	if !tagged {
		r.log.Debugf("%s: no %s tag", m.ID.Name, model.ScheduleTag)
		d.Reason = model.ReasonUntagged
		if p.DefaultToOff && m.Power == model.PowerRunning {
			d.Action = model.ActionStop
			d.Reason = model.ReasonDefaultToOff
		}
		return d
	}

	if schedule.IsDoNotShutdown(value) {
		d.Reason = model.ReasonDoNotShutdown
		return d
	}

	shouldBeOff := r.eval.EvaluateSet(value, now)
	switch {
	case shouldBeOff && m.Power == model.PowerRunning:
		d.Action = model.ActionStop
	case !shouldBeOff && m.Power == model.PowerDeallocated:
		d.Action = model.ActionStart
	}
	if shouldBeOff {
		d.Reason = model.ReasonInWindow
	} else {
		d.Reason = model.ReasonOutOfWindow
	}
	r.log.Debugw("machine reconciled", map[string]any{
		"machine":       m.ID.Name,
		"power":         m.Power.String(),
		"should_be_off": shouldBeOff,
		"action":        d.Action.String(),
	})
	return d
}
