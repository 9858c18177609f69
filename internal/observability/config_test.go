package observability

import (
	"testing"

	"github.com/smallbiznis/spacebook/internal/config"
	"github.com/stretchr/testify/assert"
)

func TestLoadConfigNormalizesProcessConfig(t *testing.T) {
	cfg := LoadConfig(config.Config{
		Environment:      "production",
		AppVersion:       " 1.2.0 ",
		LogLevel:         " WARN ",
		OTLPProtocol:     "udp",
		OTLPEndpoint:     "collector:4317",
		TracingEnabled:   true,
		TraceSampleRatio: 0.5,
	})

	assert.Equal(t, "spacebook", cfg.ServiceName)
	assert.Equal(t, "1.2.0", cfg.Version)
	assert.Equal(t, "warn", cfg.LogLevel)
	assert.Equal(t, "grpc", cfg.OTLPProtocol)
	assert.Equal(t, "json", cfg.LogFormat())
	assert.False(t, cfg.Local())

	tracing := provideTracingConfig(cfg)
	assert.True(t, tracing.Enabled)
	assert.Equal(t, "collector:4317", tracing.ExporterEndpoint)
	assert.Equal(t, 0.5, tracing.SamplingRatio)
}

func TestLocalProcessesLogToConsole(t *testing.T) {
	cfg := LoadConfig(config.Config{AppName: "spacebook-scheduler", Environment: "Development", OTLPProtocol: "http"})

	assert.True(t, cfg.Local())
	assert.Equal(t, "http", cfg.OTLPProtocol)

	logCfg := provideLoggerConfig(cfg)
	assert.Equal(t, "console", logCfg.Format)
	assert.Equal(t, "spacebook-scheduler", logCfg.ServiceName)
	assert.True(t, logCfg.IncludeStackOnError)
}
