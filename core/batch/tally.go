package batch

import (
	"sort"
	"sync"

	"github.com/kilianp07/autoshutdown/core/model"
)

// Tally accumulates machine names per category during one subscription run.
// It is safe for concurrent use; order of insertion is not preserved.
type Tally struct {
	mu       sync.Mutex
	tagged   []string
	untagged []string
	started  []string
	stopped  []string
}

// Summary is a sorted snapshot of a Tally.
type Summary struct {
	Tagged   []string `json:"tagged"`
	Untagged []string `json:"untagged"`
	Started  []string `json:"started"`
	Stopped  []string `json:"stopped"`
}

// NewTally returns an empty tally.
func NewTally() *Tally { return &Tally{} }

// Record files the decision's machine under tagged or untagged, and under
// started or stopped when the action mutates.
func (t *Tally) Record(d model.Decision) {
	name := d.Machine.Name
	t.mu.Lock()
	defer t.mu.Unlock()
	if d.Tagged {
		t.tagged = append(t.tagged, name)
	} else {
		t.untagged = append(t.untagged, name)
	}
	switch d.Action {
	case model.ActionStart:
		t.started = append(t.started, name)
	case model.ActionStop:
		t.stopped = append(t.stopped, name)
	}
}

// Summary returns sorted copies of every category.
func (t *Tally) Summary() Summary {
	t.mu.Lock()
	defer t.mu.Unlock()
	return Summary{
		Tagged:   sorted(t.tagged),
		Untagged: sorted(t.untagged),
		Started:  sorted(t.started),
		Stopped:  sorted(t.stopped),
	}
}

// Changed reports whether anything was started or stopped.
func (s Summary) Changed() bool { return len(s.Started) > 0 || len(s.Stopped) > 0 }

func sorted(in []string) []string {
	out := make([]string, len(in))
	copy(out, in)
	sort.Strings(out)
	return out
}
