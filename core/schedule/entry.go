package schedule

import (
	"fmt"
	"time"
)

// Entry is the parsed form of a single schedule token.
type Entry interface {
	// Contains reports whether now falls strictly inside the shutdown window.
	Contains(now time.Time) bool
	String() string
	entry()
}

// DoNotShutdown disables every other token of the tag.
type DoNotShutdown struct{}

// TimeRange is a window built from a "<start>-><end>" token, already
// anchored around the evaluation instant.
type TimeRange struct {
	Start time.Time
	End   time.Time
}

// FullDay covers one calendar day from a weekday or date token.
type FullDay struct {
	Start time.Time
	End   time.Time
}

// NoMatch is a weekday token naming a day other than today.
type NoMatch struct {
	Token string
}

// Invalid is a token that could not be parsed.
type Invalid struct {
	Token  string
	Reason string
}

func (DoNotShutdown) entry() {}
func (TimeRange) entry()     {}
func (FullDay) entry()       {}
func (NoMatch) entry()       {}
func (Invalid) entry()       {}

func (DoNotShutdown) Contains(time.Time) bool { return false }
func (NoMatch) Contains(time.Time) bool       { return false }
func (Invalid) Contains(time.Time) bool       { return false }

func (r TimeRange) Contains(now time.Time) bool { return within(now, r.Start, r.End) }
func (d FullDay) Contains(now time.Time) bool   { return within(now, d.Start, d.End) }

func (DoNotShutdown) String() string { return "do-not-shutdown" }

func (r TimeRange) String() string {
	return fmt.Sprintf("range %s -> %s", r.Start.Format(time.RFC3339), r.End.Format(time.RFC3339))
}

func (d FullDay) String() string { return "day " + d.Start.Format("2006-01-02 (Monday)") }

func (n NoMatch) String() string { return fmt.Sprintf("weekday %q is not today", n.Token) }

func (i Invalid) String() string { return fmt.Sprintf("invalid %q: %s", i.Token, i.Reason) }

// within is strict on both bounds.
func within(now, start, end time.Time) bool {
	return now.After(start) && now.Before(end)
}
