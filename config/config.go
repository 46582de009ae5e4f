// Package config loads the application configuration from a JSON or YAML
// file with AUTOSHUTDOWN_ environment overrides.
package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"reflect"
	"strings"
	"time"
	"unicode"

	"github.com/go-viper/mapstructure/v2"
	"github.com/knadh/koanf/parsers/json"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/kilianp07/autoshutdown/core/batch"
	"github.com/kilianp07/autoshutdown/core/metrics"
	"github.com/kilianp07/autoshutdown/core/notify"
	"github.com/kilianp07/autoshutdown/core/orchestrator"
	"github.com/kilianp07/autoshutdown/infra/azure"
)

// EnvPrefix prefixes environment overrides. "__" separates nested keys, so
// AUTOSHUTDOWN_AZURE__CLIENTID sets azure.clientId.
const EnvPrefix = "AUTOSHUTDOWN_"

// ErrNoSubscriptions is returned when no subscription is configured.
var ErrNoSubscriptions = errors.New("no subscriptions configured")

// Config is the application configuration.
type Config struct {
	Simulate           bool                        `json:"simulate"`
	DefaultToOff       bool                        `json:"defaultToOff"`
	Subscriptions      []orchestrator.Subscription `json:"subscriptions"`
	Concurrency        int                         `json:"concurrency"`
	ExecTimeoutSeconds int                         `json:"execTimeoutSeconds"`
	Azure              azure.Config                `json:"azure"`
	Notify             notify.Config               `json:"notify"`
	Metrics            metrics.Config              `json:"metrics"`
	Daemon             DaemonConfig                `json:"daemon"`
	Logging            LoggingConfig               `json:"logging"`
}

// Defaults returns the run-wide policy.
func (c Config) Defaults() orchestrator.Defaults {
	return orchestrator.Defaults{Simulate: c.Simulate, DefaultToOff: c.DefaultToOff}
}

// ExecTimeout returns how long a run waits for provider calls.
func (c Config) ExecTimeout() time.Duration {
	return time.Duration(c.ExecTimeoutSeconds) * time.Second
}

// SetDefaults fills unset values.
func (c *Config) SetDefaults() {
	if c.Concurrency <= 0 {
		c.Concurrency = batch.DefaultConcurrency
	}
	if c.ExecTimeoutSeconds <= 0 {
		c.ExecTimeoutSeconds = int(batch.DefaultExecTimeout / time.Second)
	}
	c.Azure.SetDefaults()
	c.Daemon.SetDefaults()
	c.Logging.SetDefaults()
}

// Validate checks the loaded configuration.
func (c Config) Validate() error {
	if len(c.Subscriptions) == 0 {
		return ErrNoSubscriptions
	}
	seen := make(map[string]bool, len(c.Subscriptions))
	for i, s := range c.Subscriptions {
		if strings.TrimSpace(s.ID) == "" {
			return fmt.Errorf("subscriptions[%d]: id is required", i)
		}
		if strings.ContainsFunc(s.ID, func(r rune) bool { return r == ',' || unicode.IsSpace(r) }) {
			return fmt.Errorf("subscriptions[%d]: invalid id %q", i, s.ID)
		}
		if seen[s.ID] {
			return fmt.Errorf("subscriptions[%d]: duplicate id %s", i, s.ID)
		}
		seen[s.ID] = true
	}
	if err := c.Azure.Validate(); err != nil {
		return err
	}
	if err := c.Daemon.Validate(); err != nil {
		return err
	}
	return c.Logging.Validate()
}

// Load reads path, applies environment overrides, then defaults and
// validation.
func Load(path string) (*Config, error) {
	k := koanf.New(".")
	var parser koanf.Parser
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		parser = yaml.Parser()
	case ".json":
		parser = json.Parser()
	default:
		return nil, fmt.Errorf("unsupported config format: %s", ext)
	}
	if err := k.Load(file.Provider(path), parser); err != nil {
		return nil, fmt.Errorf("load %s: %w", path, err)
	}

	// Env keys arrive lower-cased; map them onto the file's camelCase keys so
	// an override replaces the file value instead of sitting beside it.
	known := make(map[string]string)
	for _, key := range k.Keys() {
		known[strings.ToLower(key)] = key
	}
	if err := k.Load(env.Provider(EnvPrefix, ".", func(s string) string {
		key := strings.ReplaceAll(strings.ToLower(strings.TrimPrefix(s, EnvPrefix)), "__", ".")
		if canonical, ok := known[key]; ok {
			return canonical
		}
		return key
	}), nil); err != nil {
		return nil, fmt.Errorf("load environment: %w", err)
	}

	var cfg Config
	err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{
		Tag: "json",
		DecoderConfig: &mapstructure.DecoderConfig{
			DecodeHook: mapstructure.ComposeDecodeHookFunc(
				mapstructure.StringToTimeDurationHookFunc(),
				mapstructure.StringToSliceHookFunc(","),
				subscriptionListHook,
				subscriptionHook,
			),
			WeaklyTypedInput: true,
			Result:           &cfg,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("decode config: %w", err)
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// subscriptionListHook splits a comma-separated string of ids into
// subscriptions, as set by AUTOSHUTDOWN_SUBSCRIPTIONS.
func subscriptionListHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf([]orchestrator.Subscription{}) {
		return data, nil
	}
	var subs []orchestrator.Subscription
	for _, id := range strings.Split(data.(string), ",") {
		if id = strings.TrimSpace(id); id != "" {
			subs = append(subs, orchestrator.Subscription{ID: id})
		}
	}
	return subs, nil
}

// subscriptionHook accepts a bare subscription id wherever a subscription
// object is expected.
func subscriptionHook(from, to reflect.Type, data any) (any, error) {
	if from.Kind() != reflect.String || to != reflect.TypeOf(orchestrator.Subscription{}) {
		return data, nil
	}
	return orchestrator.Subscription{ID: strings.TrimSpace(data.(string))}, nil
}
