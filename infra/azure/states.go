package azure

import (
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"

	"github.com/kilianp07/autoshutdown/core/model"
)

const powerStatePrefix = "PowerState/"

// provisioningState maps the ARM provisioningState property.
func provisioningState(s string) model.ProvisioningState {
	switch strings.ToLower(s) {
	case "succeeded":
		return model.ProvisioningSucceeded
	case "failed":
		return model.ProvisioningFailed
	case "creating":
		return model.ProvisioningCreating
	case "updating", "migrating":
		return model.ProvisioningUpdating
	case "deleting":
		return model.ProvisioningDeleting
	}
	return model.ProvisioningUnknown
}

// powerState extracts the PowerState/* status from an instance view.
func powerState(statuses []*armcompute.InstanceViewStatus) (model.PowerState, bool) {
	for _, st := range statuses {
		if st == nil || st.Code == nil {
			continue
		}
		code := *st.Code
		if !strings.HasPrefix(code, powerStatePrefix) {
			continue
		}
		switch strings.ToLower(strings.TrimPrefix(code, powerStatePrefix)) {
		case "running":
			return model.PowerRunning, true
		case "deallocated":
			return model.PowerDeallocated, true
		case "stopped":
			return model.PowerStopped, true
		case "starting":
			return model.PowerStarting, true
		case "stopping":
			return model.PowerStopping, true
		case "deallocating":
			return model.PowerDeallocating, true
		}
		return model.PowerUnknown, true
	}
	return model.PowerUnknown, false
}

// provisioningFromStatuses reads a ProvisioningState/* status when the
// property is absent, as in status-only listings.
func provisioningFromStatuses(statuses []*armcompute.InstanceViewStatus) model.ProvisioningState {
	for _, st := range statuses {
		if st == nil || st.Code == nil {
			continue
		}
		rest, ok := strings.CutPrefix(*st.Code, "ProvisioningState/")
		if !ok {
			continue
		}
		state, _, _ := strings.Cut(rest, "/")
		return provisioningState(state)
	}
	return model.ProvisioningUnknown
}
