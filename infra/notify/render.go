// Package notify holds the notification sinks: log, Slack, MQTT and Telegram.
package notify

import (
	"fmt"
	"strings"

	"github.com/kilianp07/autoshutdown/core/orchestrator"
)

const none = "(none)"

// Title returns the headline of a report.
func Title(r orchestrator.Report) string {
	t := fmt.Sprintf("Auto shutdown report for %s", r.SubscriptionName)
	if r.Simulate {
		t = "[SIMULATE] " + t
	}
	return t
}

// Text renders one report as plain text.
func Text(r orchestrator.Report) string {
	var b strings.Builder
	b.WriteString(Title(r))
	b.WriteString("\n")
	fmt.Fprintf(&b, "Tagged machines: %d, untagged machines: %d\n", r.TaggedCount, r.UntaggedCount)
	fmt.Fprintf(&b, "Started: %s\n", names(r.Started))
	fmt.Fprintf(&b, "Stopped: %s\n", names(r.Stopped))
	if len(r.Failed) > 0 {
		b.WriteString("Failed:\n")
		for _, f := range r.Failed {
			fmt.Fprintf(&b, "  %s (%s): %s\n", f.Machine.Name, f.Action, f.Error)
		}
	}
	if len(r.Pending) > 0 {
		fmt.Fprintf(&b, "Still running: %s\n", names(r.Pending))
	}
	return strings.TrimRight(b.String(), "\n")
}

// TextAll renders every report separated by a blank line.
func TextAll(reports []orchestrator.Report) string {
	parts := make([]string, 0, len(reports))
	for _, r := range reports {
		parts = append(parts, Text(r))
	}
	return strings.Join(parts, "\n\n")
}

func names(list []string) string {
	if len(list) == 0 {
		return none
	}
	return strings.Join(list, ", ")
}
