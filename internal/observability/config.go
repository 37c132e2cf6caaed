package observability

import (
	"strings"

	"github.com/somagouache/gouache/internal/config"
)

// Config is the slice of the app config the logger, tracer and meter need.
type Config struct {
	ServiceName string
	Environment string
	Version     string

	LogLevel  string
	LogFormat string

	OtelEnabled          bool
	OtelExporterEndpoint string
	OtelExporterProtocol string
	OtelSamplingRatio    float64
}

func LoadConfig(cfg config.Config) Config {
	tel := cfg.Telemetry

	ratio := tel.SamplingRatio
	switch {
	case ratio < 0:
		ratio = 0
	case ratio > 1:
		ratio = 1
	}

	return Config{
		ServiceName:          firstNonEmpty(cfg.AppName, "gouache"),
		Environment:          strings.TrimSpace(cfg.Environment),
		Version:              strings.TrimSpace(cfg.AppVersion),
		LogLevel:             firstNonEmpty(tel.LogLevel, "info"),
		LogFormat:            firstNonEmpty(tel.LogFormat, "json"),
		OtelEnabled:          tel.OtelEnabled,
		OtelExporterEndpoint: strings.TrimSpace(tel.OTLPEndpoint),
		OtelExporterProtocol: firstNonEmpty(tel.OTLPProtocol, "grpc"),
		OtelSamplingRatio:    ratio,
	}
}

// Debug turns on verbose request logs and gin debug mode outside production.
func (c Config) Debug() bool {
	if c.LogLevel == "debug" {
		return true
	}
	switch strings.ToLower(c.Environment) {
	case "dev", "development", "local", "test":
		return true
	}
	return false
}

func firstNonEmpty(value, def string) string {
	if value = strings.TrimSpace(value); value != "" {
		return value
	}
	return def
}
