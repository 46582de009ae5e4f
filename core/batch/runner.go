// Package batch reconciles every machine of a subscription on a bounded
// worker pool and dispatches the resulting start and deallocate calls.
package batch

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kilianp07/autoshutdown/core/events"
	"github.com/kilianp07/autoshutdown/core/logger"
	"github.com/kilianp07/autoshutdown/core/model"
	"github.com/kilianp07/autoshutdown/core/reconcile"
	"github.com/kilianp07/autoshutdown/internal/eventbus"
)

const (
	// DefaultConcurrency bounds the number of concurrent reconciliations.
	DefaultConcurrency = 50
	// DefaultExecTimeout bounds how long Run waits for dispatched calls.
	DefaultExecTimeout = 5 * time.Minute
)

// Executor performs the provider call for a Start or Stop decision.
type Executor interface {
	Execute(ctx context.Context, d model.Decision) error
}

// ExecutorFunc adapts a function to Executor.
type ExecutorFunc func(ctx context.Context, d model.Decision) error

// Execute calls f.
func (f ExecutorFunc) Execute(ctx context.Context, d model.Decision) error { return f(ctx, d) }

// Failure is a dispatched call that returned an error.
type Failure struct {
	Machine model.MachineID `json:"machine"`
	Action  string          `json:"action"`
	Error   string          `json:"error"`
}

// Result is the outcome of one Run.
type Result struct {
	Summary
	Decisions []model.Decision
	// Failed lists calls that returned an error before the wait deadline.
	Failed []Failure
	// Pending lists machines, as resourceGroup/name, whose call had not
	// returned at the deadline.
	Pending []string
}

// Runner fans a Reconciler out over a set of machines.
type Runner struct {
	reconciler  *reconcile.Reconciler
	concurrency int
	execTimeout time.Duration
	clock       func() time.Time
	log         logger.Logger
	bus         eventbus.EventBus
	runID       string
}

// Option configures a Runner.
type Option func(*Runner)

// WithConcurrency sets the worker pool width. Values below one use DefaultConcurrency.
func WithConcurrency(n int) Option {
	return func(r *Runner) {
		if n > 0 {
			r.concurrency = n
		}
	}
}

// WithExecTimeout sets how long Run waits for dispatched calls before reporting them pending.
func WithExecTimeout(d time.Duration) Option {
	return func(r *Runner) {
		if d > 0 {
			r.execTimeout = d
		}
	}
}

// WithClock overrides the time source used for schedule evaluation.
func WithClock(now func() time.Time) Option {
	return func(r *Runner) {
		if now != nil {
			r.clock = now
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(r *Runner) { r.log = logger.OrNop(l) }
}

// WithEventBus publishes decision and execution events on bus.
func WithEventBus(bus eventbus.EventBus) Option {
	return func(r *Runner) { r.bus = bus }
}

// NewRunner creates a Runner around rec.
func NewRunner(rec *reconcile.Reconciler, opts ...Option) *Runner {
	r := &Runner{
		reconciler:  rec,
		concurrency: DefaultConcurrency,
		execTimeout: DefaultExecTimeout,
		clock:       func() time.Time { return time.Now().UTC() },
		log:         logger.Nop{},
	}
	for _, o := range opts {
		o(r)
	}
	return r
}

// WithRunID returns a shallow copy of r tagging its events with id.
func (r *Runner) WithRunID(id string) *Runner {
	cp := *r
	cp.runID = id
	return &cp
}

// Run reconciles machines under policy p. Mutating decisions are handed to
// exec on their own goroutine unless p.Simulate is set; the tally always
// reflects decisions, never call outcomes. Run returns once every machine has
// been reconciled and dispatched calls have returned or the exec timeout
// elapsed.
func (r *Runner) Run(ctx context.Context, machines []model.Machine, p model.Policy, exec Executor) Result {
	tally := NewTally()
	decisions := make([]model.Decision, len(machines))
	calls := newTracker()

	var g errgroup.Group
	g.SetLimit(r.concurrency)
	for i, m := range machines {
		if ctx.Err() != nil {
			r.log.Warnf("run cancelled, %d machines not reconciled", len(machines)-i)
			break
		}
		i, m := i, m
		g.Go(func() error {
			now := r.clock()
			d := r.reconciler.Decide(m, p, now)
			decisions[i] = d
			tally.Record(d)
			r.publish(events.DecisionEvent{RunID: r.runID, Decision: d, Simulate: p.Simulate, Time: now})
			if !d.Action.Mutating() {
				return nil
			}
			if p.Simulate {
				r.log.Infof("[simulate] would %s %s", d.Action, d.Machine.Name)
				return nil
			}
			r.log.Infof("%s %s", actionVerb(d.Action), d.Machine.Name)
			r.dispatch(ctx, calls, exec, d)
			return nil
		})
	}
	_ = g.Wait()

	res := Result{Summary: tally.Summary(), Decisions: compact(decisions)}
	res.Failed, res.Pending = calls.wait(ctx, r.execTimeout, r.log)
	return res
}

func (r *Runner) dispatch(ctx context.Context, calls *tracker, exec Executor, d model.Decision) {
	calls.start(d)
	go func() {
		start := time.Now()
		err := safeExecute(ctx, exec, d)
		if err != nil {
			r.log.Errorf("%s %s failed: %v", d.Action, d.Machine.Name, err)
		}
		r.publish(events.ExecutionEvent{RunID: r.runID, Decision: d, Err: err, Latency: time.Since(start), Time: r.clock()})
		calls.done(d, err)
	}()
}

func (r *Runner) publish(ev eventbus.Event) {
	if r.bus != nil {
		r.bus.Publish(ev)
	}
}

func safeExecute(ctx context.Context, exec Executor, d model.Decision) (err error) {
	defer func() {
		if rec := recover(); rec != nil {
			err = fmt.Errorf("executor panic: %v", rec)
		}
	}()
	if exec == nil {
		return fmt.Errorf("no executor configured")
	}
	return exec.Execute(ctx, d)
}

func actionVerb(a model.Action) string {
	if a == model.ActionStop {
		return "shutting down"
	}
	return "starting"
}

// compact drops zero decisions left by a cancelled run.
func compact(in []model.Decision) []model.Decision {
	out := in[:0]
	for _, d := range in {
		if d.Machine.Name != "" {
			out = append(out, d)
		}
	}
	return out
}

// tracker follows dispatched calls until they return.
type tracker struct {
	wg       sync.WaitGroup
	mu       sync.Mutex
	inflight map[model.MachineID]struct{}
	failed   []Failure
}

func newTracker() *tracker {
	return &tracker{inflight: make(map[model.MachineID]struct{})}
}

func (t *tracker) start(d model.Decision) {
	t.wg.Add(1)
	t.mu.Lock()
	t.inflight[d.Machine] = struct{}{}
	t.mu.Unlock()
}

func (t *tracker) done(d model.Decision, err error) {
	t.mu.Lock()
	delete(t.inflight, d.Machine)
	if err != nil {
		t.failed = append(t.failed, Failure{Machine: d.Machine, Action: d.Action.String(), Error: err.Error()})
	}
	t.mu.Unlock()
	t.wg.Done()
}

func (t *tracker) wait(ctx context.Context, timeout time.Duration, log logger.Logger) ([]Failure, []string) {
	done := make(chan struct{})
	go func() {
		t.wg.Wait()
		close(done)
	}()
	timer := time.NewTimer(timeout)
	defer timer.Stop()
	select {
	case <-done:
	case <-timer.C:
		log.Warnf("provider calls still running after %s", timeout)
	case <-ctx.Done():
		log.Warnf("stopped waiting for provider calls: %v", ctx.Err())
	}

	t.mu.Lock()
	defer t.mu.Unlock()
	failed := make([]Failure, len(t.failed))
	copy(failed, t.failed)
	sort.Slice(failed, func(i, j int) bool { return failed[i].Machine.Name < failed[j].Machine.Name })
	pending := make([]string, 0, len(t.inflight))
	for id := range t.inflight {
		pending = append(pending, id.ResourceGroup+"/"+id.Name)
	}
	sort.Strings(pending)
	return failed, pending
}
