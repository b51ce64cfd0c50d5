package telemetry

import (
	"testing"
	"time"

	"github.com/fyrsmithlabs/lessons/internal/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaultConfig(t *testing.T) {
	cfg := NewDefaultConfig()

	assert.False(t, cfg.Enabled)
	assert.Equal(t, "localhost:4317", cfg.Endpoint)
	assert.Equal(t, "lessons", cfg.ServiceName)
	assert.True(t, cfg.Insecure)
	assert.Equal(t, 1.0, cfg.Sampling.Rate)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, 15*time.Second, cfg.Metrics.ExportInterval.Duration())
	assert.Equal(t, 5*time.Second, cfg.Shutdown.Timeout.Duration())

	assert.NoError(t, cfg.Validate())
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		errMsg string
	}{
		{"defaults", func(*Config) {}, ""},
		{"disabled skips checks", func(c *Config) { c.Enabled = false; c.Endpoint = "" }, ""},
		{"missing endpoint", func(c *Config) { c.Endpoint = "" }, "endpoint is required"},
		{"missing service name", func(c *Config) { c.ServiceName = "" }, "service_name is required"},
		{"missing service version", func(c *Config) { c.ServiceVersion = "" }, "service_version is required"},
		{"http protocol", func(c *Config) { c.Protocol = protocolHTTP; c.Endpoint = "http://localhost:4318" }, ""},
		{"unknown protocol", func(c *Config) { c.Protocol = "thrift" }, "protocol must be"},
		{"zero sampling", func(c *Config) { c.Sampling.Rate = 0 }, ""},
		{"partial sampling", func(c *Config) { c.Sampling.Rate = 0.25 }, ""},
		{"sampling too low", func(c *Config) { c.Sampling.Rate = -0.1 }, "sampling.rate must be between 0 and 1"},
		{"sampling too high", func(c *Config) { c.Sampling.Rate = 1.1 }, "sampling.rate must be between 0 and 1"},
		{"zero export interval", func(c *Config) { c.Metrics.ExportInterval = 0 }, "metrics.export_interval must be positive"},
		{"interval ignored without metrics", func(c *Config) { c.Metrics.Enabled = false; c.Metrics.ExportInterval = 0 }, ""},
		{"zero shutdown timeout", func(c *Config) { c.Shutdown.Timeout = config.Duration(0) }, "shutdown.timeout must be positive"},
		{"remote with TLS", func(c *Config) { c.Endpoint = "collector.prod:4317"; c.Insecure = false }, ""},
		{"remote without TLS", func(c *Config) { c.Endpoint = "collector.prod:4317" }, "insecure connections to remote endpoints"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewDefaultConfig()
			cfg.Enabled = true
			tt.mutate(cfg)

			err := cfg.Validate()
			if tt.errMsg == "" {
				require.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.errMsg)
		})
	}
}

func TestConfig_IsLocalEndpoint(t *testing.T) {
	tests := map[string]bool{
		"localhost:4317":          true,
		"localhost":               true,
		"http://localhost:4318":   true,
		"127.0.0.1:4317":          true,
		"127.0.1.1":               true,
		"[::1]:4317":              true,
		"::1":                     true,
		"collector.prod:4317":     false,
		"https://otel.example.io": false,
		"192.168.1.1:4317":        false,
		"10.0.0.1":                false,
	}
	for endpoint, want := range tests {
		t.Run(endpoint, func(t *testing.T) {
			assert.Equal(t, want, (&Config{Endpoint: endpoint}).isLocalEndpoint())
		})
	}
}
