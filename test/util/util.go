// Package util provides helpers shared across integration tests.
//
// StartMosquitto launches a disposable Mosquitto broker in a Docker container
// and returns the broker URL with a cleanup function.
//
// WaitForMetric polls a Prometheus endpoint until a metric appears.
//
// StartInflux launches an InfluxDB 2.7 container with an organisation,
// bucket and admin token already set up.
//
// FakeFleet is an in-memory inventory and executor.
package util

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"sync"
	"time"

	paho "github.com/eclipse/paho.mqtt.golang"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kilianp07/autoshutdown/core/model"
)

const (
	MosquittoReadyTimeout = 5 * time.Second
	InfluxStartupTimeout  = 60 * time.Second
	MetricTimeout         = 5 * time.Second

	pollInterval = 50 * time.Millisecond
)

// DockerAvailable reports whether a docker binary is on PATH.
func DockerAvailable() bool {
	_, err := exec.LookPath("docker")
	return err == nil
}

// WaitForMetric polls metricsURL until substr is found in the output or the
// context is done.
func WaitForMetric(ctx context.Context, metricsURL, substr string) error {
	for {
		req, _ := http.NewRequestWithContext(ctx, http.MethodGet, metricsURL, nil)
		resp, err := http.DefaultClient.Do(req)
		if err == nil {
			body, rerr := io.ReadAll(resp.Body)
			_ = resp.Body.Close()
			if rerr != nil {
				return fmt.Errorf("read metrics body: %w", rerr)
			}
			if strings.Contains(string(body), substr) {
				return nil
			}
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("metric %q not found: %w", substr, ctx.Err())
		case <-time.After(pollInterval):
		}
	}
}

// StartMosquitto launches a temporary Mosquitto broker inside a Docker
// container and returns its broker URL along with a cleanup function.
func StartMosquitto(ctx context.Context) (string, func(), error) {
	conf := `listener 1883
allow_anonymous true
persistence false
log_dest stdout
`

	dir, err := os.MkdirTemp("", "mosq")
	if err != nil {
		return "", nil, err
	}
	path := filepath.Join(dir, "mosquitto.conf")
	if err := os.WriteFile(path, []byte(conf), 0644); err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	req := tc.ContainerRequest{
		Image:        "eclipse-mosquitto:2.0",
		ExposedPorts: []string{"1883/tcp"},
		WaitingFor:   wait.ForListeningPort("1883/tcp"),
		Files: []tc.ContainerFile{
			{
				HostFilePath:      path,
				ContainerFilePath: "/mosquitto/config/mosquitto.conf",
				FileMode:          0644,
			},
		},
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		_ = os.RemoveAll(dir)
		return "", nil, err
	}

	cleanup := func() {
		_ = cont.Terminate(context.Background())
		_ = os.RemoveAll(dir)
	}

	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return "", nil, err
	}
	port, err := cont.MappedPort(ctx, "1883")
	if err != nil {
		cleanup()
		return "", nil, err
	}
	broker := fmt.Sprintf("tcp://%s:%s", host, port.Port())

	waitCtx, cancel := context.WithTimeout(ctx, MosquittoReadyTimeout)
	defer cancel()
	if err := waitForMQTTReady(waitCtx, broker); err != nil {
		cleanup()
		return "", nil, err
	}

	return broker, cleanup, nil
}

// Influx describes a running InfluxDB container.
type Influx struct {
	URL    string
	Org    string
	Bucket string
	Token  string
}

// StartInflux starts InfluxDB 2.7 in setup mode and returns its coordinates
// with a cleanup function.
func StartInflux(ctx context.Context) (Influx, func(), error) {
	inf := Influx{Org: "autoshutdown", Bucket: "runs", Token: "integration-token"}
	req := tc.ContainerRequest{
		Image:        "influxdb:2.7",
		ExposedPorts: []string{"8086/tcp"},
		Env: map[string]string{
			"DOCKER_INFLUXDB_INIT_MODE":        "setup",
			"DOCKER_INFLUXDB_INIT_USERNAME":    "admin",
			"DOCKER_INFLUXDB_INIT_PASSWORD":    "integration-password",
			"DOCKER_INFLUXDB_INIT_ORG":         inf.Org,
			"DOCKER_INFLUXDB_INIT_BUCKET":      inf.Bucket,
			"DOCKER_INFLUXDB_INIT_ADMIN_TOKEN": inf.Token,
		},
		WaitingFor: wait.ForHTTP("/health").WithPort("8086/tcp").WithStartupTimeout(InfluxStartupTimeout),
	}
	cont, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{ContainerRequest: req, Started: true})
	if err != nil {
		return Influx{}, nil, err
	}
	cleanup := func() { _ = cont.Terminate(context.Background()) }

	host, err := cont.Host(ctx)
	if err != nil {
		cleanup()
		return Influx{}, nil, err
	}
	port, err := cont.MappedPort(ctx, "8086")
	if err != nil {
		cleanup()
		return Influx{}, nil, err
	}
	inf.URL = fmt.Sprintf("http://%s:%s", host, port.Port())
	return inf, cleanup, nil
}

func waitForMQTTReady(ctx context.Context, broker string) error {
	opts := paho.NewClientOptions().AddBroker(broker).SetClientID("probe")
	for {
		cli := paho.NewClient(opts)
		token := cli.Connect()
		token.Wait()
		if token.Error() == nil {
			cli.Disconnect(100)
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(pollInterval):
		}
	}
}

// FakeFleet is an in-memory provider. Executed decisions flip the power
// state of the matching machine.
type FakeFleet struct {
	mu       sync.Mutex
	machines map[string][]model.Machine
	Calls    []model.Decision
}

// NewFakeFleet creates a FakeFleet holding machines keyed by subscription id.
func NewFakeFleet(machines ...model.Machine) *FakeFleet {
	f := &FakeFleet{machines: make(map[string][]model.Machine)}
	for _, m := range machines {
		f.machines[m.ID.SubscriptionID] = append(f.machines[m.ID.SubscriptionID], m)
	}
	return f
}

// ListMachines returns a copy of the machines of subscriptionID.
func (f *FakeFleet) ListMachines(_ context.Context, subscriptionID string) ([]model.Machine, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]model.Machine, len(f.machines[subscriptionID]))
	copy(out, f.machines[subscriptionID])
	return out, nil
}

// Execute records d and applies it.
func (f *FakeFleet) Execute(_ context.Context, d model.Decision) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Calls = append(f.Calls, d)
	ms := f.machines[d.Machine.SubscriptionID]
	for i := range ms {
		if ms[i].ID != d.Machine {
			continue
		}
		switch d.Action {
		case model.ActionStart:
			ms[i].Power = model.PowerRunning
		case model.ActionStop:
			ms[i].Power = model.PowerDeallocated
		}
	}
	return nil
}

// CallCount returns the number of executed decisions.
func (f *FakeFleet) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}

// Machine builds a running, successfully provisioned machine tagged with
// schedule. An empty schedule leaves it untagged.
func Machine(sub, name, schedule string) model.Machine {
	m := model.Machine{
		ID:           model.MachineID{SubscriptionID: sub, ResourceGroup: "rg", Name: name},
		Provisioning: model.ProvisioningSucceeded,
		Power:        model.PowerRunning,
	}
	if schedule != "" {
		m.Tags = map[string]string{model.ScheduleTag: schedule}
	}
	return m
}
