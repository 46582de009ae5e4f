// Package azure adapts the Azure Resource Manager compute API to the
// inventory and executor used by the orchestrator.
package azure

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidResourceID is returned for machine ids the resource parser rejects.
var ErrInvalidResourceID = errors.New("invalid resource id")

// Config holds Azure access settings.
type Config struct {
	// CredentialsFile points at a JSON file {tenantId, clientId, clientSecret}.
	CredentialsFile string `json:"credentialsFile"`
	TenantID        string `json:"tenantId"`
	ClientID        string `json:"clientId"`
	ClientSecret    string `json:"clientSecret"`
	// RequestsPerSecond caps control-plane calls per client.
	RequestsPerSecond float64 `json:"requestsPerSecond"`
	// PollIntervalSeconds is the frequency used while waiting on start and deallocate.
	PollIntervalSeconds int `json:"pollIntervalSeconds"`
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.RequestsPerSecond <= 0 {
		c.RequestsPerSecond = 10
	}
	if c.PollIntervalSeconds <= 0 {
		c.PollIntervalSeconds = 10
	}
}

// Validate checks that explicit credentials are complete.
func (c Config) Validate() error {
	set := 0
	for _, v := range []string{c.TenantID, c.ClientID, c.ClientSecret} {
		if v != "" {
			set++
		}
	}
	if set != 0 && set != 3 {
		return fmt.Errorf("azure: tenantId, clientId and clientSecret must be set together")
	}
	return nil
}

// PollInterval returns the poll frequency as a duration.
func (c Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSeconds) * time.Second
}
