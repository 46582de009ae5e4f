// Package notify delivers run reports to the configured channels.
package notify

import (
	"context"
	"errors"
	"fmt"

	"github.com/kilianp07/autoshutdown/core/factory"
	"github.com/kilianp07/autoshutdown/core/orchestrator"
)

// ErrDisabled is returned by a factory whose configuration leaves the
// notifier switched off, for example a Slack sink without a webhook URL.
var ErrDisabled = errors.New("notifier disabled")

// Notifier delivers the reports of one run. Implementations are called only
// when at least one report exists.
type Notifier interface {
	Notify(ctx context.Context, reports []orchestrator.Report) error
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(ctx context.Context, reports []orchestrator.Report) error

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, reports []orchestrator.Report) error {
	return f(ctx, reports)
}

// Config lists the notification sinks to build.
type Config struct {
	Sinks []factory.ModuleConfig `json:"sinks" yaml:"sinks"`
}

// Nop discards reports.
type Nop struct{}

func (Nop) Notify(context.Context, []orchestrator.Report) error { return nil }

// Multi delivers to every notifier and joins their errors.
type Multi []Notifier

// Notify forwards reports to all notifiers, even after a failure.
func (m Multi) Notify(ctx context.Context, reports []orchestrator.Report) error {
	var errs []error
	for _, n := range m {
		if err := n.Notify(ctx, reports); err != nil {
			errs = append(errs, fmt.Errorf("%T: %w", n, err))
		}
	}
	return errors.Join(errs...)
}
