// Package app wires configuration, the Azure adapter, metrics and
// notification sinks around the orchestrator.
package app

import (
	"context"
	"fmt"
	"reflect"
	"sync"

	"github.com/kilianp07/autoshutdown/config"
	"github.com/kilianp07/autoshutdown/core/batch"
	coremetrics "github.com/kilianp07/autoshutdown/core/metrics"
	"github.com/kilianp07/autoshutdown/core/notify"
	"github.com/kilianp07/autoshutdown/core/orchestrator"
	"github.com/kilianp07/autoshutdown/core/reconcile"
	"github.com/kilianp07/autoshutdown/infra/azure"
	"github.com/kilianp07/autoshutdown/infra/logger"
	"github.com/kilianp07/autoshutdown/infra/metrics"
	_ "github.com/kilianp07/autoshutdown/infra/notify"
	"github.com/kilianp07/autoshutdown/internal/eventbus"
)

// Service runs reconciliation passes for the configured subscriptions.
type Service struct {
	log       logger.Logger
	inventory orchestrator.Inventory
	executor  batch.Executor
	bus       *eventbus.Bus
	sink      coremetrics.Sink
	collector <-chan struct{}
	stop      context.CancelFunc

	mu       sync.RWMutex
	cfg      *config.Config
	orch     *orchestrator.Orchestrator
	notifier notify.Notifier
}

// Option configures a Service.
type Option func(*Service)

// WithInventory replaces the Azure inventory.
func WithInventory(inv orchestrator.Inventory) Option {
	return func(s *Service) { s.inventory = inv }
}

// WithExecutor replaces the Azure executor.
func WithExecutor(exec batch.Executor) Option {
	return func(s *Service) { s.executor = exec }
}

// WithNotifier replaces the configured notification sinks.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// New creates a Service from the configuration.
func New(cfg *config.Config, opts ...Option) (*Service, error) {
	s := &Service{cfg: cfg, log: logger.New("service"), bus: eventbus.New()}
	for _, o := range opts {
		o(s)
	}

	if s.inventory == nil || s.executor == nil {
		cred, err := azure.NewCredential(cfg.Azure)
		if err != nil {
			return nil, fmt.Errorf("azure credential: %w", err)
		}
		client := azure.NewClient(cred, cfg.Azure, azure.WithLogger(logger.New("azure")))
		if s.inventory == nil {
			s.inventory = client
		}
		if s.executor == nil {
			s.executor = client
		}
	}

	if s.notifier == nil {
		n, err := buildNotifier(cfg, s.log)
		if err != nil {
			return nil, err
		}
		s.notifier = n
	}

	sink, err := coremetrics.NewSink(cfg.Metrics.Sinks)
	if err != nil {
		return nil, fmt.Errorf("metrics sink: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s.stop = cancel
	s.sink = sink
	s.collector = metrics.StartEventCollector(ctx, s.bus, sink)
	s.orch = s.buildOrchestrator(cfg)
	return s, nil
}

func buildNotifier(cfg *config.Config, log logger.Logger) (notify.Notifier, error) {
	n, skipped, err := notify.New(cfg.Notify.Sinks)
	if err != nil {
		return nil, fmt.Errorf("notification sinks: %w", err)
	}
	for _, t := range skipped {
		log.Warnf("notification sink %s is not configured, skipping", t)
	}
	return n, nil
}

func (s *Service) buildOrchestrator(cfg *config.Config) *orchestrator.Orchestrator {
	runner := batch.NewRunner(
		reconcile.New(logger.New("reconciler")),
		batch.WithConcurrency(cfg.Concurrency),
		batch.WithExecTimeout(cfg.ExecTimeout()),
		batch.WithLogger(logger.New("batch")),
		batch.WithEventBus(s.bus),
	)
	return orchestrator.New(s.inventory, s.executor, runner,
		orchestrator.WithLogger(logger.New("orchestrator")),
		orchestrator.WithEventBus(s.bus),
	)
}

// Config returns the configuration in use.
func (s *Service) Config() *config.Config {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.cfg
}

// Reload swaps in a new configuration. The notifier is rebuilt unless the
// new sinks fail to build, in which case the previous one is kept. Metrics
// sinks, azure settings and daemon.timezone/metricsAddr keep their startup
// values until a restart; changes to them are logged.
func (s *Service) Reload(cfg *config.Config) {
	for _, key := range restartRequired(s.Config(), cfg) {
		s.log.Warnf("reload: %s changed, restart to apply", key)
	}
	n, err := buildNotifier(cfg, s.log)
	if err != nil {
		s.log.Errorf("reload: %v; keeping previous notification sinks", err)
	}
	orch := s.buildOrchestrator(cfg)
	s.mu.Lock()
	s.cfg = cfg
	s.orch = orch
	if err == nil {
		s.notifier = n
	}
	s.mu.Unlock()
	s.log.Infof("configuration reloaded: %d subscriptions", len(cfg.Subscriptions))
}

// restartRequired lists the settings that differ between prev and next but
// are only read at startup.
func restartRequired(prev, next *config.Config) []string {
	var keys []string
	if !reflect.DeepEqual(prev.Metrics, next.Metrics) {
		keys = append(keys, "metrics.sinks")
	}
	if prev.Azure != next.Azure {
		keys = append(keys, "azure")
	}
	if prev.Daemon.Timezone != next.Daemon.Timezone {
		keys = append(keys, "daemon.timezone")
	}
	if prev.Daemon.MetricsAddr != next.Daemon.MetricsAddr {
		keys = append(keys, "daemon.metricsAddr")
	}
	return keys
}

// RunOnce reconciles every subscription and delivers the reports.
// Notification failures are logged and do not fail the run.
func (s *Service) RunOnce(ctx context.Context) []orchestrator.Report {
	s.mu.RLock()
	cfg, orch, notifier := s.cfg, s.orch, s.notifier
	s.mu.RUnlock()

	reports := orch.Run(ctx, cfg.Subscriptions, cfg.Defaults())
	if len(reports) == 0 {
		s.log.Infof("run complete, no machine changed state")
		return reports
	}
	if err := notifier.Notify(ctx, reports); err != nil {
		s.log.Errorf("notify: %v", err)
	}
	return reports
}

// Close flushes pending metrics and releases resources.
func (s *Service) Close() error {
	s.bus.Close()
	<-s.collector
	s.stop()
	coremetrics.CloseSink(s.sink)
	if d := s.bus.Dropped(); d > 0 {
		s.log.Warnf("%d metric events dropped", d)
	}
	return nil
}
