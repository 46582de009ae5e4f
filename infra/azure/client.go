package azure

import (
	"context"
	"fmt"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/arm"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/runtime"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/to"
	"github.com/Azure/azure-sdk-for-go/sdk/resourcemanager/compute/armcompute/v5"
	"golang.org/x/time/rate"

	"github.com/kilianp07/autoshutdown/core/model"
	"github.com/kilianp07/autoshutdown/infra/logger"
)

// Client lists and mutates virtual machines across subscriptions. It
// implements orchestrator.Inventory and batch.Executor.
type Client struct {
	cred    azcore.TokenCredential
	opts    *arm.ClientOptions
	cfg     Config
	limiter *rate.Limiter
	log     logger.Logger

	mu      sync.Mutex
	clients map[string]*armcompute.VirtualMachinesClient
}

// Option configures a Client.
type Option func(*Client)

// WithClientOptions sets the ARM client options, e.g. a fake transport.
func WithClientOptions(o *arm.ClientOptions) Option {
	return func(c *Client) { c.opts = o }
}

// WithLogger sets the logger.
func WithLogger(l logger.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.log = l
		}
	}
}

// NewClient creates a Client using cred.
func NewClient(cred azcore.TokenCredential, cfg Config, opts ...Option) *Client {
	cfg.SetDefaults()
	burst := int(cfg.RequestsPerSecond)
	if burst < 1 {
		burst = 1
	}
	c := &Client{
		cred:    cred,
		cfg:     cfg,
		limiter: rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst),
		log:     logger.New("azure"),
		clients: make(map[string]*armcompute.VirtualMachinesClient),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Client) vms(subscriptionID string) (*armcompute.VirtualMachinesClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if cl, ok := c.clients[subscriptionID]; ok {
		return cl, nil
	}
	cl, err := armcompute.NewVirtualMachinesClient(subscriptionID, c.cred, c.opts)
	if err != nil {
		return nil, fmt.Errorf("virtual machines client for %s: %w", subscriptionID, err)
	}
	c.clients[subscriptionID] = cl
	return cl, nil
}

// ListMachines returns every virtual machine of the subscription with its
// tags, provisioning state and power state.
func (c *Client) ListMachines(ctx context.Context, subscriptionID string) ([]model.Machine, error) {
	cl, err := c.vms(subscriptionID)
	if err != nil {
		return nil, err
	}
	pager := cl.NewListAllPager(&armcompute.VirtualMachinesClientListAllOptions{StatusOnly: to.Ptr("true")})
	var out []model.Machine
	for pager.More() {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
		page, err := pager.NextPage(ctx)
		if err != nil {
			return nil, fmt.Errorf("list virtual machines in %s: %w", subscriptionID, err)
		}
		for _, vm := range page.Value {
			m, err := c.machine(ctx, cl, subscriptionID, vm)
			if err != nil {
				c.log.Warnf("skipping machine: %v", err)
				continue
			}
			out = append(out, m)
		}
	}
	return out, nil
}

func (c *Client) machine(ctx context.Context, cl *armcompute.VirtualMachinesClient, subscriptionID string, vm *armcompute.VirtualMachine) (model.Machine, error) {
	if vm == nil || vm.ID == nil {
		return model.Machine{}, fmt.Errorf("%w: missing id", ErrInvalidResourceID)
	}
	id, err := ParseMachineID(*vm.ID)
	if err != nil {
		return model.Machine{}, err
	}
	if id.SubscriptionID == "" {
		id.SubscriptionID = subscriptionID
	}
	m := model.Machine{ID: id, Tags: make(map[string]string, len(vm.Tags))}
	for k, v := range vm.Tags {
		if v != nil {
			m.Tags[k] = *v
		}
	}
	var statuses []*armcompute.InstanceViewStatus
	if p := vm.Properties; p != nil {
		if p.ProvisioningState != nil {
			m.Provisioning = provisioningState(*p.ProvisioningState)
		}
		if p.InstanceView != nil {
			statuses = p.InstanceView.Statuses
		}
	}
	power, ok := powerState(statuses)
	if !ok {
		power, err = c.instancePower(ctx, cl, id)
		if err != nil {
			c.log.Warnf("instance view of %s: %v", id, err)
		}
	}
	m.Power = power
	if m.Provisioning == model.ProvisioningUnknown {
		m.Provisioning = provisioningFromStatuses(statuses)
	}
	return m, nil
}

func (c *Client) instancePower(ctx context.Context, cl *armcompute.VirtualMachinesClient, id model.MachineID) (model.PowerState, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return model.PowerUnknown, err
	}
	resp, err := cl.InstanceView(ctx, id.ResourceGroup, id.Name, nil)
	if err != nil {
		return model.PowerUnknown, err
	}
	p, _ := powerState(resp.Statuses)
	return p, nil
}

// Execute starts or deallocates the machine of d and waits for the
// long-running operation to finish.
func (c *Client) Execute(ctx context.Context, d model.Decision) error {
	cl, err := c.vms(d.Machine.SubscriptionID)
	if err != nil {
		return err
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return err
	}
	poll := &runtime.PollUntilDoneOptions{Frequency: c.cfg.PollInterval()}
	switch d.Action {
	case model.ActionStart:
		poller, err := cl.BeginStart(ctx, d.Machine.ResourceGroup, d.Machine.Name, nil)
		if err != nil {
			return fmt.Errorf("start %s: %w", d.Machine, err)
		}
		if _, err := poller.PollUntilDone(ctx, poll); err != nil {
			return fmt.Errorf("start %s: %w", d.Machine, err)
		}
	case model.ActionStop:
		poller, err := cl.BeginDeallocate(ctx, d.Machine.ResourceGroup, d.Machine.Name, nil)
		if err != nil {
			return fmt.Errorf("deallocate %s: %w", d.Machine, err)
		}
		if _, err := poller.PollUntilDone(ctx, poll); err != nil {
			return fmt.Errorf("deallocate %s: %w", d.Machine, err)
		}
	default:
		return fmt.Errorf("action %s is not executable", d.Action)
	}
	c.log.Infof("%s %s done", d.Action, d.Machine)
	return nil
}

// ParseMachineID extracts subscription, resource group and name from an ARM
// virtual machine id.
func ParseMachineID(id string) (model.MachineID, error) {
	rid, err := arm.ParseResourceID(id)
	if err != nil {
		return model.MachineID{}, fmt.Errorf("%w %q: %v", ErrInvalidResourceID, id, err)
	}
	if rid.ResourceGroupName == "" || rid.Name == "" {
		return model.MachineID{}, fmt.Errorf("%w %q: no resource group", ErrInvalidResourceID, id)
	}
	return model.MachineID{SubscriptionID: rid.SubscriptionID, ResourceGroup: rid.ResourceGroupName, Name: rid.Name}, nil
}
