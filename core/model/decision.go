package model

// Action is the outcome of reconciling a machine.
type Action int

const (
	ActionNone Action = iota
	ActionStart
	ActionStop
	ActionSkip
)

// String returns a human-readable representation of the action.
func (a Action) String() string {
	switch a {
	case ActionStart:
		return "start"
	case ActionStop:
		return "stop"
	case ActionSkip:
		return "skip"
	default:
		return "none"
	}
}

// Mutating reports whether the action requires a call to the provider.
func (a Action) Mutating() bool { return a == ActionStart || a == ActionStop }

// Skip reasons.
const (
	ReasonProvisioningFailed = "provisioning_failed"
	ReasonDoNotShutdown      = "do_not_shutdown"
	ReasonInWindow           = "in_shutdown_window"
	ReasonOutOfWindow        = "outside_shutdown_window"
	ReasonDefaultToOff       = "default_to_off"
	ReasonUntagged           = "untagged"
)

// Decision is the reconciliation result for one machine.
type Decision struct {
	Machine MachineID
	Action  Action
	// Tagged is true when the machine carries the schedule tag.
	Tagged bool
	Reason string
}

// Policy is the effective behaviour for one subscription.
type Policy struct {
	Simulate     bool
	DefaultToOff bool
}
