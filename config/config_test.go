package config

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kilianp07/autoshutdown/core/orchestrator"
)

func write(t *testing.T, name, data string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(data), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadYAML(t *testing.T) {
	path := write(t, "config.yaml", `simulate: true
defaultToOff: false
subscriptions:
  - id: "0000-1111"
    name: "Production"
    simulate: false
  - "2222-3333"
concurrency: 8
azure:
  credentialsFile: "./cred.azure"
notify:
  sinks:
    - type: "slack"
      conf:
        webhook_url: "https://hooks.slack.com/services/x"
metrics:
  sinks:
    - type: "prometheus"
daemon:
  cron: "0 * * * *"
  metricsAddr: ":9102"
`)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	require.Len(t, cfg.Subscriptions, 2)
	assert.Equal(t, "Production", cfg.Subscriptions[0].Name)
	require.NotNil(t, cfg.Subscriptions[0].Simulate)
	assert.False(t, *cfg.Subscriptions[0].Simulate)
	assert.Equal(t, "2222-3333", cfg.Subscriptions[1].ID)
	assert.Nil(t, cfg.Subscriptions[1].Simulate)
	assert.True(t, cfg.Simulate)
	assert.Equal(t, 8, cfg.Concurrency)
	assert.Equal(t, 5*time.Minute, cfg.ExecTimeout())
	assert.Equal(t, "./cred.azure", cfg.Azure.CredentialsFile)
	assert.Equal(t, 10.0, cfg.Azure.RequestsPerSecond)
	require.Len(t, cfg.Notify.Sinks, 1)
	assert.Equal(t, "https://hooks.slack.com/services/x", cfg.Notify.Sinks[0].Conf["webhook_url"])
	assert.Equal(t, "prometheus", cfg.Metrics.Sinks[0].Type)
	assert.Equal(t, "0 * * * *", cfg.Daemon.Cron)
	assert.Equal(t, "UTC", cfg.Daemon.Timezone)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadJSONLegacyShape(t *testing.T) {
	path := write(t, "base.config.json", `{"simulate": true, "subscriptions": ["a", "b"]}`)
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "a", cfg.Subscriptions[0].ID)
	assert.Equal(t, "b", cfg.Subscriptions[1].DisplayName())
	assert.Equal(t, 50, cfg.Concurrency)
}

func TestLoadEnvOverride(t *testing.T) {
	path := write(t, "config.yaml", `simulate: true
defaultToOff: false
subscriptions: ["a"]
azure:
  clientId: "from-file"
`)
	t.Setenv("AUTOSHUTDOWN_SIMULATE", "false")
	t.Setenv("AUTOSHUTDOWN_DEFAULTTOOFF", "true")
	t.Setenv("AUTOSHUTDOWN_AZURE__TENANTID", "tenant")
	t.Setenv("AUTOSHUTDOWN_AZURE__CLIENTID", "client")
	t.Setenv("AUTOSHUTDOWN_AZURE__CLIENTSECRET", "secret")
	t.Setenv("AUTOSHUTDOWN_LOGGING__LEVEL", "debug")
	cfg, err := Load(path)
	require.NoError(t, err)
	assert.False(t, cfg.Simulate)
	assert.True(t, cfg.DefaultToOff)
	assert.Equal(t, "client", cfg.Azure.ClientID)
	assert.Equal(t, "tenant", cfg.Azure.TenantID)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestLoadEnvSubscriptions(t *testing.T) {
	path := write(t, "config.json", `{"subscriptions": ["file"]}`)
	t.Setenv("AUTOSHUTDOWN_SUBSCRIPTIONS", "x, y")
	cfg, err := Load(path)
	require.NoError(t, err)
	require.Len(t, cfg.Subscriptions, 2)
	assert.Equal(t, "x", cfg.Subscriptions[0].ID)
	assert.Equal(t, "y", cfg.Subscriptions[1].ID)
}

func TestLoadEnvSubscriptionsSkipsBlanks(t *testing.T) {
	path := write(t, "config.yaml", "subscriptions: [file]\n")
	t.Setenv("AUTOSHUTDOWN_SUBSCRIPTIONS", " sub-a,,sub-b , ")
	cfg, err := Load(path)
	require.NoError(t, err)
	ids := make([]string, 0, len(cfg.Subscriptions))
	for _, s := range cfg.Subscriptions {
		ids = append(ids, s.ID)
	}
	assert.Equal(t, []string{"sub-a", "sub-b"}, ids)
}

func TestValidateRejectsMalformedIDs(t *testing.T) {
	for _, id := range []string{"a,b", "a b", "tab\tid"} {
		cfg := Config{Subscriptions: []orchestrator.Subscription{{ID: id}}}
		cfg.SetDefaults()
		if err := cfg.Validate(); err == nil {
			t.Fatalf("id %q should be rejected", id)
		}
	}
	_, err := Load(write(t, "config.yaml", "subscriptions: [\"a, b\"]\n"))
	assert.ErrorContains(t, err, "invalid id")
}

func TestLoadErrors(t *testing.T) {
	_, err := Load(write(t, "config.yaml", "simulate: true\n"))
	assert.True(t, errors.Is(err, ErrNoSubscriptions))

	_, err = Load(write(t, "config.toml", ""))
	assert.Error(t, err)

	_, err = Load(write(t, "config.yaml", "subscriptions: [a, a]\n"))
	assert.ErrorContains(t, err, "duplicate")

	_, err = Load(write(t, "config.yaml", "subscriptions: [a]\ndaemon:\n  cron: \"every now and then\"\n"))
	assert.ErrorContains(t, err, "daemon.cron")

	_, err = Load(write(t, "config.yaml", "subscriptions: [a]\nlogging:\n  level: loud\n"))
	assert.Error(t, err)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestWatchReloads(t *testing.T) {
	path := write(t, "config.yaml", "subscriptions: [a]\n")
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var mu sync.Mutex
	var got []*Config
	done := make(chan error, 1)
	go func() {
		done <- Watch(ctx, path, func(c *Config, err error) {
			if err != nil {
				return
			}
			mu.Lock()
			got = append(got, c)
			mu.Unlock()
		})
	}()
	// Give the watcher time to register before writing.
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("subscriptions: [a, b]\n"), 0o644))

	require.Eventually(t, func() bool {
		mu.Lock()
		defer mu.Unlock()
		return len(got) > 0 && len(got[len(got)-1].Subscriptions) == 2
	}, 3*time.Second, 20*time.Millisecond)
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatalf("watch did not return after cancel")
	}
}
