package notify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kilianp07/autoshutdown/core/orchestrator"
)

// DefaultTopicPrefix is used when no topic prefix is configured.
const DefaultTopicPrefix = "autoshutdown/reports"

// Publisher sends a payload to a topic.
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// MQTTNotifier publishes each report as JSON on <prefix>/<subscriptionId>.
type MQTTNotifier struct {
	pub    Publisher
	prefix string
}

// NewMQTTNotifier creates an MQTTNotifier over pub.
func NewMQTTNotifier(pub Publisher, prefix string) *MQTTNotifier {
	prefix = strings.TrimRight(prefix, "/")
	if prefix == "" {
		prefix = DefaultTopicPrefix
	}
	return &MQTTNotifier{pub: pub, prefix: prefix}
}

// Topic returns the topic a report for subscriptionID is published on.
func (n *MQTTNotifier) Topic(subscriptionID string) string {
	return n.prefix + "/" + subscriptionID
}

// Notify publishes every report; a failed publish does not stop the others.
func (n *MQTTNotifier) Notify(ctx context.Context, reports []orchestrator.Report) error {
	var errs []error
	for _, r := range reports {
		payload, err := json.Marshal(r)
		if err != nil {
			errs = append(errs, fmt.Errorf("encode report %s: %w", r.SubscriptionID, err))
			continue
		}
		if err := n.pub.Publish(ctx, n.Topic(r.SubscriptionID), payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
