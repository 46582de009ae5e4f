package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/autoshutdown/core/metrics"
	"github.com/kilianp07/autoshutdown/infra/logger"
)

// InfluxSink writes reconciliation activity to an InfluxDB instance.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// InfluxConfig configures an InfluxSink.
type InfluxConfig struct {
	URL    string `json:"url"`
	Token  string `json:"token"`
	Org    string `json:"org"`
	Bucket string `json:"bucket"`
}

// NewInfluxSink creates a sink for the given InfluxDB endpoint.
func NewInfluxSink(cfg InfluxConfig) *InfluxSink {
	base := strings.TrimSuffix(cfg.URL, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, cfg.Token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(cfg.Org, cfg.Bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback pings the InfluxDB instance and returns a
// NopSink if the health check fails.
func NewInfluxSinkWithFallback(cfg InfluxConfig) coremetrics.Sink {
	sink := NewInfluxSink(cfg)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// Close releases the underlying client.
func (s *InfluxSink) Close() {
	s.client.Close()
}

// RecordDecision writes a machine_decision point.
func (s *InfluxSink) RecordDecision(rec coremetrics.DecisionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("machine_decision").
		AddTag("subscription", rec.SubscriptionID).
		AddTag("resource_group", rec.ResourceGroup).
		AddTag("machine", rec.Machine).
		AddTag("action", rec.Action).
		AddTag("simulate", strconv.FormatBool(rec.Simulate)).
		AddTag("run_id", rec.RunID).
		AddField("tagged", rec.Tagged).
		AddField("reason", rec.Reason).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordExecution writes a provider_call point.
func (s *InfluxSink) RecordExecution(rec coremetrics.ExecutionRecord) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("provider_call").
		AddTag("subscription", rec.SubscriptionID).
		AddTag("machine", rec.Machine).
		AddTag("action", rec.Action).
		AddTag("success", strconv.FormatBool(rec.Success)).
		AddTag("run_id", rec.RunID).
		AddField("latency_ms", round3(rec.Latency.Seconds()*1000)).
		AddField("errors", rec.Error).
		SetTime(rec.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// RecordSubscriptionRun writes a subscription_run point.
func (s *InfluxSink) RecordSubscriptionRun(run coremetrics.SubscriptionRun) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("subscription_run").
		AddTag("subscription", run.SubscriptionID).
		AddTag("run_id", run.RunID).
		AddField("machines", run.Machines).
		AddField("tagged", run.Tagged).
		AddField("untagged", run.Untagged).
		AddField("started", run.Started).
		AddField("stopped", run.Stopped).
		AddField("failed", run.Failed).
		AddField("list_failed", run.ListFailed).
		SetTime(run.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
