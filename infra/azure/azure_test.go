package azure

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	azfake "github.com/Azure/azure-sdk-for-go/sdk/azcore/fake"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5/fake"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/autoshutdown/core/model"
)

const vmPrefix = "/subscriptions/sub-1/resourceGroups/rg-app/providers/Microsoft.Compute/virtualMachines/"

func status(codes ...string) *armcompute.VirtualMachineInstanceView {
	iv := &armcompute.VirtualMachineInstanceView{}
	for _, c := range codes {
		iv.Statuses = append(iv.Statuses, &armcompute.InstanceViewStatus{Code: to.Ptr(c)})
	}
	return iv
}

func newTestClient(t *testing.T, srv *fake.VirtualMachinesServer) *Client {
	t.Helper()
	opts := &arm.ClientOptions{ClientOptions: azcore.ClientOptions{Transport: fake.NewVirtualMachinesServerTransport(srv)}}
	return NewClient(&azfake.TokenCredential{}, Config{PollIntervalSeconds: 1}, WithClientOptions(opts))
}

func TestListMachines(t *testing.T) {
	var instanceViews int
	srv := &fake.VirtualMachinesServer{
		NewListAllPager: func(options *armcompute.VirtualMachinesClientListAllOptions) (resp azfake.PagerResponder[armcompute.VirtualMachinesClientListAllResponse]) {
			if options == nil || options.StatusOnly == nil || *options.StatusOnly != "true" {
				t.Errorf("expected status-only listing")
			}
			resp.AddPage(http.StatusOK, armcompute.VirtualMachinesClientListAllResponse{
				VirtualMachineListResult: armcompute.VirtualMachineListResult{Value: []*armcompute.VirtualMachine{
					{
						ID:   to.Ptr(vmPrefix + "web-1"),
						Tags: map[string]*string{"AutoShutdownSchedule": to.Ptr("18:00->08:00")},
						Properties: &armcompute.VirtualMachineProperties{
							ProvisioningState: to.Ptr("Succeeded"),
							InstanceView:      status("ProvisioningState/succeeded", "PowerState/running"),
						},
					},
					{
						ID:         to.Ptr(vmPrefix + "broken"),
						Properties: &armcompute.VirtualMachineProperties{InstanceView: status("ProvisioningState/failed/InternalError", "PowerState/deallocated")},
					},
				}},
			}, nil)
			resp.AddPage(http.StatusOK, armcompute.VirtualMachinesClientListAllResponse{
				VirtualMachineListResult: armcompute.VirtualMachineListResult{Value: []*armcompute.VirtualMachine{
					{ID: to.Ptr(vmPrefix + "no-view"), Properties: &armcompute.VirtualMachineProperties{ProvisioningState: to.Ptr("Succeeded")}},
					{ID: to.Ptr("not-an-arm-id")},
				}},
			}, nil)
			return
		},
		InstanceView: func(_ context.Context, rg, name string, _ *armcompute.VirtualMachinesClientInstanceViewOptions) (resp azfake.Responder[armcompute.VirtualMachinesClientInstanceViewResponse], errResp azfake.ErrorResponder) {
			instanceViews++
			assert.Equal(t, "rg-app", rg)
			assert.Equal(t, "no-view", name)
			resp.SetResponse(http.StatusOK, armcompute.VirtualMachinesClientInstanceViewResponse{
				VirtualMachineInstanceView: *status("PowerState/stopped"),
			}, nil)
			return
		},
	}
	c := newTestClient(t, srv)
	machines, err := c.ListMachines(context.Background(), "sub-1")
	require.NoError(t, err)
	require.Len(t, machines, 3)

	web := machines[0]
	assert.Equal(t, model.MachineID{SubscriptionID: "sub-1", ResourceGroup: "rg-app", Name: "web-1"}, web.ID)
	assert.Equal(t, model.ProvisioningSucceeded, web.Provisioning)
	assert.Equal(t, model.PowerRunning, web.Power)
	v, ok := web.Tag("autoshutdownschedule")
	assert.True(t, ok)
	assert.Equal(t, "18:00->08:00", v)

	assert.Equal(t, model.ProvisioningFailed, machines[1].Provisioning)
	assert.Equal(t, model.PowerDeallocated, machines[1].Power)

	assert.Equal(t, model.PowerStopped, machines[2].Power)
	assert.Equal(t, 1, instanceViews)
}

func TestListMachinesError(t *testing.T) {
	srv := &fake.VirtualMachinesServer{
		NewListAllPager: func(*armcompute.VirtualMachinesClientListAllOptions) (resp azfake.PagerResponder[armcompute.VirtualMachinesClientListAllResponse]) {
			resp.AddResponseError(http.StatusForbidden, "AuthorizationFailed")
			return
		},
	}
	_, err := newTestClient(t, srv).ListMachines(context.Background(), "sub-1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "sub-1")
}

func TestExecute(t *testing.T) {
	var mu sync.Mutex
	calls := map[string]string{}
	srv := &fake.VirtualMachinesServer{
		BeginStart: func(_ context.Context, rg, name string, _ *armcompute.VirtualMachinesClientBeginStartOptions) (resp azfake.PollerResponder[armcompute.VirtualMachinesClientStartResponse], errResp azfake.ErrorResponder) {
			mu.Lock()
			calls[name] = "start"
			mu.Unlock()
			resp.SetTerminalResponse(http.StatusOK, armcompute.VirtualMachinesClientStartResponse{}, nil)
			return
		},
		BeginDeallocate: func(_ context.Context, rg, name string, _ *armcompute.VirtualMachinesClientBeginDeallocateOptions) (resp azfake.PollerResponder[armcompute.VirtualMachinesClientDeallocateResponse], errResp azfake.ErrorResponder) {
			if name == "locked" {
				errResp.SetResponseError(http.StatusConflict, "OperationNotAllowed")
				return
			}
			mu.Lock()
			calls[name] = "deallocate"
			mu.Unlock()
			resp.SetTerminalResponse(http.StatusOK, armcompute.VirtualMachinesClientDeallocateResponse{}, nil)
			return
		},
	}
	c := newTestClient(t, srv)
	id := func(name string) model.MachineID {
		return model.MachineID{SubscriptionID: "sub-1", ResourceGroup: "rg-app", Name: name}
	}
	ctx := context.Background()
	require.NoError(t, c.Execute(ctx, model.Decision{Machine: id("web-1"), Action: model.ActionStart}))
	require.NoError(t, c.Execute(ctx, model.Decision{Machine: id("web-2"), Action: model.ActionStop}))
	assert.Equal(t, map[string]string{"web-1": "start", "web-2": "deallocate"}, calls)

	err := c.Execute(ctx, model.Decision{Machine: id("locked"), Action: model.ActionStop})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "deallocate")

	assert.Error(t, c.Execute(ctx, model.Decision{Machine: id("web-1"), Action: model.ActionSkip}))
}

func TestParseMachineID(t *testing.T) {
	id, err := ParseMachineID(vmPrefix + "db-1")
	require.NoError(t, err)
	assert.Equal(t, "rg-app", id.ResourceGroup)
	assert.Equal(t, "db-1", id.Name)
	assert.Equal(t, "sub-1", id.SubscriptionID)

	_, err = ParseMachineID("db-1")
	assert.True(t, errors.Is(err, ErrInvalidResourceID))
}

func TestStates(t *testing.T) {
	cases := map[string]model.PowerState{
		"PowerState/running":      model.PowerRunning,
		"PowerState/deallocated":  model.PowerDeallocated,
		"PowerState/stopped":      model.PowerStopped,
		"PowerState/starting":     model.PowerStarting,
		"PowerState/stopping":     model.PowerStopping,
		"PowerState/deallocating": model.PowerDeallocating,
		"PowerState/hibernated":   model.PowerUnknown,
	}
	for code, want := range cases {
		got, ok := powerState(status("ProvisioningState/succeeded", code).Statuses)
		if !ok || got != want {
			t.Fatalf("%s: got %v (%v), want %v", code, got, ok, want)
		}
	}
	if _, ok := powerState(status("ProvisioningState/succeeded").Statuses); ok {
		t.Fatalf("no power status should report not found")
	}
	assert.Equal(t, model.ProvisioningFailed, provisioningState("Failed"))
	assert.Equal(t, model.ProvisioningUpdating, provisioningState("Migrating"))
	assert.Equal(t, model.ProvisioningUnknown, provisioningState(""))
	assert.Equal(t, model.ProvisioningFailed, provisioningFromStatuses(status("ProvisioningState/failed/Timeout").Statuses))
}

func TestNewCredential(t *testing.T) {
	dir := t.TempDir()
	good := filepath.Join(dir, "cred.azure")
	require.NoError(t, os.WriteFile(good, []byte(`{"tenantId":"00000000-0000-0000-0000-000000000000","clientId":"app","clientSecret":"s3cret"}`), 0o600))
	cred, err := NewCredential(Config{CredentialsFile: good})
	require.NoError(t, err)
	assert.NotNil(t, cred)

	partial := filepath.Join(dir, "partial.azure")
	require.NoError(t, os.WriteFile(partial, []byte(`{"clientId":"app"}`), 0o600))
	_, err = NewCredential(Config{CredentialsFile: partial})
	assert.Error(t, err)

	_, err = NewCredential(Config{CredentialsFile: filepath.Join(dir, "missing")})
	assert.Error(t, err)
}

func TestConfigValidate(t *testing.T) {
	assert.NoError(t, Config{}.Validate())
	assert.NoError(t, Config{TenantID: "t", ClientID: "c", ClientSecret: "s"}.Validate())
	assert.Error(t, Config{ClientID: "c"}.Validate())
	c := Config{}
	c.SetDefaults()
	assert.Equal(t, 10.0, c.RequestsPerSecond)
}
