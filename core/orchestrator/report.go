package orchestrator

import (
	"time"

	"github.com/kilianp07/autoshutdown/core/batch"
)

// Report summarises what one run changed in one subscription. It is only
// produced when at least one machine was started or stopped.
type Report struct {
	RunID            string          `json:"runId" yaml:"runId"`
	SubscriptionID   string          `json:"subscriptionId" yaml:"subscriptionId"`
	SubscriptionName string          `json:"subscriptionName" yaml:"subscriptionName"`
	Simulate         bool            `json:"simulate" yaml:"simulate"`
	TaggedCount      int             `json:"taggedCount" yaml:"taggedCount"`
	UntaggedCount    int             `json:"untaggedCount" yaml:"untaggedCount"`
	Tagged           []string        `json:"tagged" yaml:"tagged"`
	Untagged         []string        `json:"untagged" yaml:"untagged"`
	Started          []string        `json:"started" yaml:"started"`
	Stopped          []string        `json:"stopped" yaml:"stopped"`
	Failed           []batch.Failure `json:"failed,omitempty" yaml:"failed,omitempty"`
	Pending          []string        `json:"pending,omitempty" yaml:"pending,omitempty"`
	GeneratedAt      time.Time       `json:"generatedAt" yaml:"generatedAt"`
}

func newReport(runID string, sub Subscription, simulate bool, res batch.Result, at time.Time) Report {
	return Report{
		RunID:            runID,
		SubscriptionID:   sub.ID,
		SubscriptionName: sub.DisplayName(),
		Simulate:         simulate,
		TaggedCount:      len(res.Tagged),
		UntaggedCount:    len(res.Untagged),
		Tagged:           res.Tagged,
		Untagged:         res.Untagged,
		Started:          res.Started,
		Stopped:          res.Stopped,
		Failed:           res.Failed,
		Pending:          res.Pending,
		GeneratedAt:      at,
	}
}
