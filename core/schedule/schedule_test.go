package schedule

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordLogger struct {
	mu    sync.Mutex
	warns []string
}

func (r *recordLogger) Debugf(string, ...any)         {}
func (r *recordLogger) Debugw(string, map[string]any) {}
func (r *recordLogger) Infof(string, ...any)          {}
func (r *recordLogger) Errorf(string, ...any)         {}
func (r *recordLogger) Warnf(format string, args ...any) {
	r.mu.Lock()
	r.warns = append(r.warns, fmt.Sprintf(format, args...))
	r.mu.Unlock()
}

// 2026-10-19 is a Monday.
func at(day, hour, minute int) time.Time {
	return time.Date(2026, 10, day, hour, minute, 0, 0, time.UTC)
}

func TestEvaluateDoNotShutdownAndBlank(t *testing.T) {
	ev := NewEvaluator(nil)
	for _, tok := range []string{"", "   ", "\t", "DoNotShutdown", "donotshutdown", "DONOTSHUTDOWN", " DoNotShutDown "} {
		if ev.Evaluate(tok, at(19, 12, 0)) {
			t.Fatalf("token %q should never be in a window", tok)
		}
	}
}

func TestEvaluateDayRange(t *testing.T) {
	ev := NewEvaluator(nil)
	if !ev.Evaluate("09:00->17:00", at(19, 12, 0)) {
		t.Fatalf("expected 12:00 inside 09:00->17:00")
	}
	if ev.Evaluate("09:00->17:00", at(19, 20, 0)) {
		t.Fatalf("expected 20:00 outside 09:00->17:00")
	}
	if ev.Evaluate("09:00->17:00", at(19, 9, 0)) {
		t.Fatalf("bounds are exclusive")
	}
}

func TestEvaluateMidnightCrossing(t *testing.T) {
	ev := NewEvaluator(nil)
	cases := []struct {
		now  time.Time
		want bool
	}{
		{at(19, 23, 30), true},
		{at(20, 5, 0), true},
		{at(20, 12, 0), false},
		{at(19, 21, 59), false},
		{at(20, 6, 30), false},
	}
	for _, c := range cases {
		if got := ev.Evaluate("22:00->06:00", c.now); got != c.want {
			t.Fatalf("22:00->06:00 at %s: got %v want %v", c.now.Format(time.Kitchen), got, c.want)
		}
	}
}

func TestParseMidnightCrossingAnchors(t *testing.T) {
	e := Parse("22:00->06:00", at(19, 23, 30))
	r, ok := e.(TimeRange)
	require.True(t, ok, "got %T", e)
	assert.Equal(t, at(19, 22, 0), r.Start)
	assert.Equal(t, at(20, 6, 0), r.End)

	e = Parse("22:00->06:00", at(20, 5, 0))
	r, ok = e.(TimeRange)
	require.True(t, ok, "got %T", e)
	assert.Equal(t, at(19, 22, 0), r.Start)
	assert.Equal(t, at(20, 6, 0), r.End)
}

func TestEvaluateMalformedRangeWarns(t *testing.T) {
	log := &recordLogger{}
	ev := NewEvaluator(log)
	assert.NotPanics(t, func() {
		if ev.Evaluate("09:00->17:00->20:00", at(19, 18, 0)) {
			t.Fatalf("malformed range must not force a shutdown")
		}
	})
	require.Len(t, log.warns, 1)
	assert.Contains(t, log.warns[0], "09:00->17:00->20:00")
}

func TestEvaluateUnparseableRangeWarns(t *testing.T) {
	log := &recordLogger{}
	ev := NewEvaluator(log)
	if ev.Evaluate("tea time->17:00", at(19, 12, 0)) {
		t.Fatalf("unparseable start must evaluate false")
	}
	if len(log.warns) != 1 {
		t.Fatalf("expected one warning, got %d", len(log.warns))
	}
}

func TestEvaluateWeekday(t *testing.T) {
	ev := NewEvaluator(nil)
	for _, tok := range []string{"Monday", "monday", "MONDAY", "Mon"} {
		if !ev.Evaluate(tok, at(19, 0, 30)) {
			t.Fatalf("%q should match early Monday", tok)
		}
		if !ev.Evaluate(tok, at(19, 23, 59)) {
			t.Fatalf("%q should match late Monday", tok)
		}
		if ev.Evaluate(tok, at(20, 12, 0)) {
			t.Fatalf("%q should not match Tuesday", tok)
		}
	}
	if _, ok := Parse("Friday", at(19, 12, 0)).(NoMatch); !ok {
		t.Fatalf("other weekday should be NoMatch")
	}
}

func TestEvaluateCalendarDate(t *testing.T) {
	ev := NewEvaluator(nil)
	for _, tok := range []string{"October 19", "Oct 19", "2026-10-19", "10/19/2026", "19 October 2026"} {
		if !ev.Evaluate(tok, at(19, 10, 0)) {
			t.Fatalf("%q should cover 2026-10-19", tok)
		}
		if ev.Evaluate(tok, at(20, 10, 0)) {
			t.Fatalf("%q should not cover 2026-10-20", tok)
		}
	}
	d, ok := Parse("December 25", at(19, 10, 0)).(FullDay)
	require.True(t, ok)
	assert.Equal(t, time.Date(2026, 12, 25, 0, 0, 0, 0, time.UTC), d.Start)
	assert.Equal(t, time.Date(2026, 12, 25, 23, 59, 59, 0, time.UTC), d.End)
}

func TestEvaluateTwelveHourClock(t *testing.T) {
	ev := NewEvaluator(nil)
	if !ev.Evaluate("10pm->6am", at(19, 23, 0)) {
		t.Fatalf("expected 23:00 inside 10pm->6am")
	}
	if ev.Evaluate("10 PM->6 AM", at(19, 15, 0)) {
		t.Fatalf("expected 15:00 outside 10 PM->6 AM")
	}
}

func TestEvaluateFullDateRange(t *testing.T) {
	ev := NewEvaluator(nil)
	tok := "2026-10-17 18:00->2026-10-20 08:00"
	if !ev.Evaluate(tok, at(19, 12, 0)) {
		t.Fatalf("expected inside multi-day range")
	}
	if ev.Evaluate(tok, at(20, 9, 0)) {
		t.Fatalf("expected outside after range end")
	}
}

func TestEvaluateMisspelledWeekday(t *testing.T) {
	log := &recordLogger{}
	ev := NewEvaluator(log)
	if ev.Evaluate("Mondy", at(19, 12, 0)) {
		t.Fatalf("misspelled weekday must evaluate false")
	}
	if _, ok := Parse("Mondy", at(19, 12, 0)).(Invalid); !ok {
		t.Fatalf("misspelled weekday should be Invalid")
	}
	assert.Len(t, log.warns, 1)
}

func TestEvaluateSetOr(t *testing.T) {
	ev := NewEvaluator(nil)
	value := "Monday,22:00->06:00"
	// weekday true, range false
	if !ev.EvaluateSet(value, at(19, 12, 0)) {
		t.Fatalf("Monday noon should be inside")
	}
	// weekday false, range true
	if !ev.EvaluateSet(value, at(20, 23, 0)) {
		t.Fatalf("Tuesday 23:00 should be inside")
	}
	if ev.EvaluateSet(value, at(20, 12, 0)) {
		t.Fatalf("Tuesday noon should be outside")
	}
	if ev.EvaluateSet("", at(19, 12, 0)) {
		t.Fatalf("empty set is false")
	}
	if !ev.EvaluateSet(" Tuesday , Monday ", at(19, 12, 0)) {
		t.Fatalf("tokens should be trimmed")
	}
}

func TestSplit(t *testing.T) {
	assert.Nil(t, Split("  "))
	assert.Equal(t, []string{"a", "b", ""}, Split(" a, b ,"))
	assert.True(t, IsDoNotShutdown(" doNotShutdown"))
	assert.False(t, IsDoNotShutdown("DoNotShutdown,Monday"))
}

func TestFullDayBoundsExclusive(t *testing.T) {
	ev := NewEvaluator(nil)
	if ev.Evaluate("Monday", at(19, 0, 0)) {
		t.Fatalf("00:00:00 sits on the lower bound and is outside")
	}
	if ev.Evaluate("October 19", time.Date(2026, 10, 19, 23, 59, 59, 500, time.UTC)) {
		t.Fatalf("the last second of the day is outside")
	}
	if !ev.Evaluate("Monday", time.Date(2026, 10, 19, 0, 0, 1, 0, time.UTC)) {
		t.Fatalf("00:00:01 should be inside")
	}
}
