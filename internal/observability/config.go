package observability

import (
	"strings"

	"github.com/smallbiznis/spacebook/internal/config"
)

// Config is the observability slice of the process configuration.
type Config struct {
	ServiceName string
	Environment string
	Version     string
	LogLevel    string

	TracingEnabled   bool
	OTLPEndpoint     string
	OTLPProtocol     string
	TraceSampleRatio float64
}

func LoadConfig(cfg config.Config) Config {
	serviceName := strings.TrimSpace(cfg.AppName)
	if serviceName == "" {
		serviceName = "spacebook"
	}
	protocol := strings.ToLower(strings.TrimSpace(cfg.OTLPProtocol))
	if protocol != "http" {
		protocol = "grpc"
	}

	return Config{
		ServiceName:      serviceName,
		Environment:      strings.TrimSpace(cfg.Environment),
		Version:          strings.TrimSpace(cfg.AppVersion),
		LogLevel:         strings.ToLower(strings.TrimSpace(cfg.LogLevel)),
		TracingEnabled:   cfg.TracingEnabled,
		OTLPEndpoint:     strings.TrimSpace(cfg.OTLPEndpoint),
		OTLPProtocol:     protocol,
		TraceSampleRatio: cfg.TraceSampleRatio,
	}
}

// Local reports whether the process runs on a developer machine or in tests.
// Local processes log in console format with stack traces on errors.
func (c Config) Local() bool {
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// LogFormat is console for local processes and json everywhere else.
func (c Config) LogFormat() string {
	if c.Local() {
		return "console"
	}
	return "json"
}
