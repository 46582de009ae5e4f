package orchestrator

import "github.com/kilianp07/autoshutdown/core/model"

// Subscription is one cloud subscription to reconcile. Simulate and
// DefaultToOff override the global defaults only when set.
type Subscription struct {
	ID           string `json:"id" yaml:"id"`
	Name         string `json:"name" yaml:"name"`
	Simulate     *bool  `json:"simulate,omitempty" yaml:"simulate,omitempty"`
	DefaultToOff *bool  `json:"defaultToOff,omitempty" yaml:"defaultToOff,omitempty"`
}

// Defaults are the run-wide policy values.
type Defaults struct {
	Simulate     bool
	DefaultToOff bool
}

// Policy resolves the effective policy of s.
func (s Subscription) Policy(d Defaults) model.Policy {
	p := model.Policy{Simulate: d.Simulate, DefaultToOff: d.DefaultToOff}
	if s.Simulate != nil {
		p.Simulate = *s.Simulate
	}
	if s.DefaultToOff != nil {
		p.DefaultToOff = *s.DefaultToOff
	}
	return p
}

// DisplayName returns the name, falling back to the id.
func (s Subscription) DisplayName() string {
	if s.Name != "" {
		return s.Name
	}
	return s.ID
}
