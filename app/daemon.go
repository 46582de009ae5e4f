package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/robfig/cron/v3"

	"github.com/kilianp07/autoshutdown/config"
	"github.com/kilianp07/autoshutdown/infra/logger"
	"github.com/kilianp07/autoshutdown/infra/metrics"
)

// RunDaemon runs reconciliation on the configured cron schedule until ctx is
// canceled. When cfgPath is set and daemon.watchConfig is on, edits to the
// file are applied without a restart.
func (s *Service) RunDaemon(ctx context.Context, cfgPath string) error {
	cfg := s.Config()
	log := logger.New("daemon")

	if addr := cfg.Daemon.MetricsAddr; addr != "" {
		go func() {
			if err := metrics.StartPromServer(ctx, addr); err != nil {
				log.Errorf("prom server: %v", err)
			}
		}()
	}

	c := cron.New(
		cron.WithParser(config.CronParser),
		cron.WithLocation(cfg.Daemon.Location()),
		cron.WithChain(cron.SkipIfStillRunning(cronLogger{log})),
	)
	job := cron.FuncJob(func() {
		if ctx.Err() != nil {
			return
		}
		s.RunOnce(ctx)
	})
	id, err := c.AddJob(cfg.Daemon.Cron, job)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", cfg.Daemon.Cron, err)
	}
	sched := &schedule{cron: c, id: id, spec: cfg.Daemon.Cron, job: job}

	if cfgPath != "" && cfg.Daemon.WatchConfig {
		go func() {
			err := config.Watch(ctx, cfgPath, func(next *config.Config, err error) {
				if err != nil {
					log.Errorf("reload %s: %v", cfgPath, err)
					return
				}
				s.Reload(next)
				if err := sched.update(next.Daemon.Cron); err != nil {
					log.Errorf("reschedule: %v", err)
				}
			})
			if err != nil {
				log.Errorf("watch %s: %v", cfgPath, err)
			}
		}()
	}

	c.Start()
	log.Infof("daemon started, schedule %q in %s", cfg.Daemon.Cron, cfg.Daemon.Location())
	if cfg.Daemon.RunOnStart {
		go job.Run()
	}
	<-ctx.Done()
	log.Infof("daemon stopping")
	<-c.Stop().Done()
	if errors.Is(ctx.Err(), context.Canceled) {
		return nil
	}
	return ctx.Err()
}

// schedule tracks the cron entry so reloads can change its spec. Reloads
// arrive on the watcher goroutine only.
type schedule struct {
	cron *cron.Cron
	id   cron.EntryID
	spec string
	job  cron.Job
}

func (s *schedule) update(spec string) error {
	if spec == s.spec {
		return nil
	}
	id, err := s.cron.AddJob(spec, s.job)
	if err != nil {
		return fmt.Errorf("schedule %q: %w", spec, err)
	}
	s.cron.Remove(s.id)
	s.id, s.spec = id, spec
	return nil
}

// cronLogger adapts Logger to cron.Logger.
type cronLogger struct {
	log logger.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...any) {
	l.log.Debugw(msg, kv(keysAndValues))
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...any) {
	l.log.Errorf("%s: %v %v", msg, err, keysAndValues)
}

func kv(pairs []any) map[string]any {
	m := make(map[string]any, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		m[fmt.Sprint(pairs[i])] = pairs[i+1]
	}
	return m
}
