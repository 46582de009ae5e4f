package test

import (
	"context"
	"fmt"
	"testing"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/autoshutdown/app"
	"github.com/kilianp07/autoshutdown/config"
	"github.com/kilianp07/autoshutdown/core/factory"
	"github.com/kilianp07/autoshutdown/core/orchestrator"
	"github.com/kilianp07/autoshutdown/test/util"
)

func TestInfluxRecordsDecisions(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping container test in short mode")
	}
	if !util.DockerAvailable() {
		t.Skip("docker not installed")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Minute)
	defer cancel()

	inf, cleanup, err := util.StartInflux(ctx)
	if err != nil {
		t.Skipf("unable to start influx container: %v", err)
	}
	defer cleanup()

	cfg := &config.Config{Simulate: true, DefaultToOff: true}
	cfg.SetDefaults()
	cfg.Subscriptions = []orchestrator.Subscription{{ID: "sub-influx"}}
	cfg.Metrics.Sinks = []factory.ModuleConfig{{Type: "influx", Conf: map[string]any{
		"url":    inf.URL,
		"token":  inf.Token,
		"org":    inf.Org,
		"bucket": inf.Bucket,
	}}}

	fleet := util.NewFakeFleet(
		util.Machine("sub-influx", "vm-a", ""),
		util.Machine("sub-influx", "vm-b", "DoNotShutdown"),
	)
	svc, err := app.New(cfg, app.WithInventory(fleet), app.WithExecutor(fleet))
	require.NoError(t, err)
	svc.RunOnce(ctx)
	// Close drains the event collector so every point is written.
	require.NoError(t, svc.Close())
	require.Zero(t, fleet.CallCount(), "simulated run must not execute")

	client := influxdb2.NewClient(inf.URL, inf.Token)
	defer client.Close()
	flux := fmt.Sprintf(`from(bucket: "%s")
  |> range(start: -1h)
  |> filter(fn: (r) => r._measurement == "machine_decision" and r.subscription == "sub-influx")
  |> group(columns: ["machine"])
  |> count()`, inf.Bucket)

	machines := map[string]bool{}
	require.Eventually(t, func() bool {
		res, err := client.QueryAPI(inf.Org).Query(ctx, flux)
		if err != nil {
			return false
		}
		defer res.Close()
		for res.Next() {
			if m, ok := res.Record().ValueByKey("machine").(string); ok {
				machines[m] = true
			}
		}
		return len(machines) == 2
	}, 20*time.Second, 250*time.Millisecond)
}
