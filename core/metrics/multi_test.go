package metrics

import (
	"errors"
	"testing"
)

type recordSink struct {
	decisions  int
	executions int
	fail       bool
}

func (r *recordSink) RecordDecision(DecisionRecord) error {
	r.decisions++
	if r.fail {
		return errors.New("down")
	}
	return nil
}

func (r *recordSink) RecordExecution(ExecutionRecord) error {
	r.executions++
	return nil
}

// decisionOnly does not implement ExecutionRecorder.
type decisionOnly struct{ n int }

func (d *decisionOnly) RecordDecision(DecisionRecord) error { d.n++; return nil }

func TestMultiSinkForwards(t *testing.T) {
	s1 := &recordSink{fail: true}
	s2 := &recordSink{}
	s3 := &decisionOnly{}
	m := NewMultiSink(s1, s2, s3)
	if err := m.RecordDecision(DecisionRecord{}); err == nil {
		t.Fatalf("expected joined error from failing sink")
	}
	if err := m.RecordExecution(ExecutionRecord{}); err != nil {
		t.Fatalf("record execution: %v", err)
	}
	if err := m.RecordSubscriptionRun(SubscriptionRun{}); err != nil {
		t.Fatalf("record run: %v", err)
	}
	if s1.decisions != 1 || s2.decisions != 1 || s3.n != 1 {
		t.Fatalf("decision not forwarded to every sink")
	}
	if s1.executions != 1 || s2.executions != 1 {
		t.Fatalf("execution not forwarded")
	}
}

func TestNewSinkDefaultsToNop(t *testing.T) {
	s, err := NewSink(nil)
	if err != nil {
		t.Fatalf("create nop default: %v", err)
	}
	if _, ok := s.(NopSink); !ok {
		t.Fatalf("expected NopSink, got %T", s)
	}
}

type closingSink struct {
	decisionOnly
	closed bool
}

func (c *closingSink) Close() { c.closed = true }

func TestMultiSinkClose(t *testing.T) {
	c := &closingSink{}
	m := NewMultiSink(&recordSink{}, c)
	CloseSink(m)
	if !c.closed {
		t.Fatalf("inner sink not closed")
	}
	CloseSink(NopSink{})
}
