package notify

import (
	"context"

	"github.com/kilianp07/autoshutdown/core/orchestrator"
	"github.com/kilianp07/autoshutdown/infra/logger"
)

// LogNotifier writes reports to the structured log.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier returns a LogNotifier writing through l, or a component
// logger when l is nil.
func NewLogNotifier(l logger.Logger) *LogNotifier {
	if l == nil {
		l = logger.New("notify-log")
	}
	return &LogNotifier{log: l}
}

// Notify logs one entry per report.
func (n *LogNotifier) Notify(_ context.Context, reports []orchestrator.Report) error {
	for _, r := range reports {
		n.log.Debugw("report", map[string]any{
			"run_id":       r.RunID,
			"subscription": r.SubscriptionID,
			"tagged":       r.TaggedCount,
			"untagged":     r.UntaggedCount,
		})
		n.log.Infof("%s: started %s; stopped %s; %d failed; %d pending",
			Title(r), names(r.Started), names(r.Stopped), len(r.Failed), len(r.Pending))
	}
	return nil
}
