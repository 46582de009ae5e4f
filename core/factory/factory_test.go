package factory

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sink struct {
	URL     string
	Retries int
	Timeout time.Duration
}

type sinkConf struct {
	URL     string        `json:"url"`
	Retries int           `json:"retries"`
	Timeout time.Duration `json:"timeout"`
}

func newSinkRegistry(t *testing.T) *Registry[*sink] {
	t.Helper()
	reg := NewRegistry[*sink]()
	require.NoError(t, reg.Register("webhook", func(conf map[string]any) (*sink, error) {
		var c sinkConf
		if err := Decode(conf, &c); err != nil {
			return nil, err
		}
		return &sink{URL: c.URL, Retries: c.Retries, Timeout: c.Timeout}, nil
	}))
	return reg
}

func TestRegistryCreate(t *testing.T) {
	reg := newSinkRegistry(t)
	s, err := reg.Create(ModuleConfig{Type: "webhook", Conf: map[string]any{"url": "http://x", "retries": "3", "timeout": "2s"}})
	require.NoError(t, err)
	assert.Equal(t, "http://x", s.URL)
	assert.Equal(t, 3, s.Retries)
	assert.Equal(t, 2*time.Second, s.Timeout)
}

func TestRegistryErrors(t *testing.T) {
	reg := newSinkRegistry(t)
	if err := reg.Register("webhook", func(map[string]any) (*sink, error) { return nil, nil }); err == nil {
		t.Fatal("expected duplicate error")
	}
	if err := reg.Register("nil", nil); err == nil {
		t.Fatal("expected nil factory error")
	}
	_, err := reg.Create(ModuleConfig{Type: "missing"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "webhook")
	if _, err := reg.CreateAll([]ModuleConfig{{Type: "webhook"}, {Type: "missing"}}); err == nil {
		t.Fatal("expected CreateAll to fail on unknown type")
	}
	assert.Equal(t, []string{"webhook"}, reg.Types())
}
