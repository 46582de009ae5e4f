package config

import (
	"fmt"
	"time"

	"github.com/robfig/cron/v3"
)

// CronParser parses the five-field expressions accepted by the daemon,
// plus descriptors such as @hourly.
var CronParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// DaemonConfig configures the long-running mode.
type DaemonConfig struct {
	// Cron is the schedule of reconciliation runs.
	Cron string `json:"cron"`
	// Timezone is the location the cron expression is read in.
	Timezone string `json:"timezone"`
	// MetricsAddr is the listen address of the Prometheus endpoint; empty disables it.
	MetricsAddr string `json:"metricsAddr"`
	// WatchConfig reloads the configuration file when it changes.
	WatchConfig bool `json:"watchConfig"`
	// RunOnStart triggers a run immediately instead of waiting for the first tick.
	RunOnStart bool `json:"runOnStart"`
}

// SetDefaults applies a quarter-hourly schedule in UTC.
func (c *DaemonConfig) SetDefaults() {
	if c.Cron == "" {
		c.Cron = "*/15 * * * *"
	}
	if c.Timezone == "" {
		c.Timezone = "UTC"
	}
}

// Validate checks the cron expression and time zone.
func (c DaemonConfig) Validate() error {
	if _, err := CronParser.Parse(c.Cron); err != nil {
		return fmt.Errorf("daemon.cron %q: %w", c.Cron, err)
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("daemon.timezone %q: %w", c.Timezone, err)
	}
	return nil
}

// Location returns the configured time zone, UTC when invalid.
func (c DaemonConfig) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}
