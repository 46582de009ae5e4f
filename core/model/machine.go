package model

import "strings"

// ScheduleTag is the resource tag holding the shutdown schedule.
const ScheduleTag = "AutoShutdownSchedule"

// MachineID identifies a virtual machine within a subscription.
type MachineID struct {
	SubscriptionID string `json:"subscription_id"`
	ResourceGroup  string `json:"resource_group"`
	Name           string `json:"name"`
}

// String renders the identity as subscription/resourceGroup/name.
func (id MachineID) String() string {
	return id.SubscriptionID + "/" + id.ResourceGroup + "/" + id.Name
}

// ProvisioningState is the control-plane status of the last management operation.
type ProvisioningState int

const (
	ProvisioningUnknown ProvisioningState = iota
	ProvisioningSucceeded
	ProvisioningFailed
	ProvisioningCreating
	ProvisioningUpdating
	ProvisioningDeleting
)

// String returns a human-readable representation of the provisioning state.
func (s ProvisioningState) String() string {
	switch s {
	case ProvisioningSucceeded:
		return "Succeeded"
	case ProvisioningFailed:
		return "Failed"
	case ProvisioningCreating:
		return "Creating"
	case ProvisioningUpdating:
		return "Updating"
	case ProvisioningDeleting:
		return "Deleting"
	default:
		return "Unknown"
	}
}

// PowerState is the observed run state of a machine.
type PowerState int

const (
	PowerUnknown PowerState = iota
	PowerRunning
	PowerDeallocated
	PowerStopped
	PowerStarting
	PowerStopping
	PowerDeallocating
)

// String returns a human-readable representation of the power state.
func (s PowerState) String() string {
	switch s {
	case PowerRunning:
		return "running"
	case PowerDeallocated:
		return "deallocated"
	case PowerStopped:
		return "stopped"
	case PowerStarting:
		return "starting"
	case PowerStopping:
		return "stopping"
	case PowerDeallocating:
		return "deallocating"
	default:
		return "unknown"
	}
}

// Machine is a single observation of a virtual machine.
type Machine struct {
	ID           MachineID
	Tags         map[string]string
	Provisioning ProvisioningState
	Power        PowerState
}

// Tag returns the value of the tag whose key matches name case-insensitively.
func (m Machine) Tag(name string) (string, bool) {
	if v, ok := m.Tags[name]; ok {
		return v, true
	}
	for k, v := range m.Tags {
		if strings.EqualFold(k, name) {
			return v, true
		}
	}
	return "", false
}
