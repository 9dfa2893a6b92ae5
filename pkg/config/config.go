// Package config provides configuration structures and loading logic for the
// Argus agent. Configuration problems are advisory: invalid fields are warned
// about and defaulted so the agent runs in a degraded mode rather than
// refusing to run.
package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"

	"github.com/argusops/argus-go/pkg/domain"
)

// Defaults applied when a field is absent or rejected by validation.
const (
	DefaultCaptureEndpoint = "https://capture.argusops.dev/capture"
	DefaultUsageEndpoint   = "https://usage.argusops.dev/usage.gif"
	DefaultFaultEndpoint   = "https://usage.argusops.dev/fault.gif"
	DefaultLogCapacity     = 30
	DefaultConsoleBudget   = 80_000
	DefaultWindowLimit     = 10
)

// Config holds the global configuration for the agent.
type Config struct {
	// Token identifies the account at the collection endpoint.
	Token string `yaml:"token"`
	// Application distinguishes deployments sharing one token.
	Application string `yaml:"application"`

	Transport TransportConfig `yaml:"transport"`
	Console   ConsoleConfig   `yaml:"console"`
	Network   NetworkConfig   `yaml:"network"`

	// Dedupe enables consecutive-duplicate suppression.
	Dedupe bool `yaml:"dedupe"`
	// BindStack captures a stack trace at watch time so reports can say
	// where a failing callback was registered.
	BindStack bool `yaml:"bind_stack"`
	// CaptureReturnedErrors reports non-nil error return values from
	// watched functions, in addition to panics.
	CaptureReturnedErrors bool `yaml:"capture_returned_errors"`

	// LogCapacity bounds the total telemetry entry count across categories.
	LogCapacity int `yaml:"log_capacity"`
	// ConsoleBudget caps the serialized console bytes attached to a report.
	ConsoleBudget int `yaml:"console_budget"`
	// WindowLimit caps admitted reports per rolling second.
	WindowLimit int `yaml:"window_limit"`

	// Metadata is included verbatim in every report until removed.
	Metadata map[string]string `yaml:"metadata"`
}

// TransportConfig holds the delivery endpoints.
type TransportConfig struct {
	CaptureEndpoint string `yaml:"capture_endpoint"`
	UsageEndpoint   string `yaml:"usage_endpoint"`
	FaultEndpoint   string `yaml:"fault_endpoint"`
	// ForwardingEndpoint, when set, overrides every channel's base URL.
	ForwardingEndpoint string `yaml:"forwarding_endpoint"`
}

// ConsoleConfig controls the console watcher.
type ConsoleConfig struct {
	// Enabled turns console capture into the event log on.
	Enabled bool `yaml:"enabled"`
	// ReportErrors promotes error-level records into full reports.
	ReportErrors bool `yaml:"report_errors"`
}

// NetworkConfig controls the network watcher.
type NetworkConfig struct {
	// Enabled turns outbound request capture on.
	Enabled bool `yaml:"enabled"`
	// ReportErrors reports transport failures and 5xx responses.
	ReportErrors bool `yaml:"report_errors"`
	// ReportClientErrors additionally reports 4xx responses.
	ReportClientErrors bool `yaml:"report_client_errors"`
}

// Default returns the configuration the agent falls back to.
func Default() *Config {
	return &Config{
		Transport: TransportConfig{
			CaptureEndpoint: DefaultCaptureEndpoint,
			UsageEndpoint:   DefaultUsageEndpoint,
			FaultEndpoint:   DefaultFaultEndpoint,
		},
		Console:       ConsoleConfig{Enabled: true},
		Network:       NetworkConfig{Enabled: true, ReportErrors: true},
		Dedupe:        true,
		LogCapacity:   DefaultLogCapacity,
		ConsoleBudget: DefaultConsoleBudget,
		WindowLimit:   DefaultWindowLimit,
		Metadata:      map[string]string{},
	}
}

// Load reads configuration from a file, applies environment variable
// overrides, and normalizes the result. A missing or unparsable file is an
// error; individual bad field values are not.
func Load(path string, logger *slog.Logger) (*Config, error) {
	cfg := Default()

	if path != "" {
		//nolint:gosec // Config file path is controlled by the operator
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w: %w", path, domain.ErrConfigInvalid, err)
		}
	}

	applyEnvOverrides(cfg)
	cfg.Normalize(logger)
	return cfg, nil
}

func applyEnvOverrides(cfg *Config) {
	if val := os.Getenv("ARGUS_TOKEN"); val != "" {
		cfg.Token = val
	}
	if val := os.Getenv("ARGUS_APPLICATION"); val != "" {
		cfg.Application = val
	}
	if val := os.Getenv("ARGUS_CAPTURE_ENDPOINT"); val != "" {
		cfg.Transport.CaptureEndpoint = val
	}
	if val := os.Getenv("ARGUS_FORWARDING_ENDPOINT"); val != "" {
		cfg.Transport.ForwardingEndpoint = val
	}
	if val := os.Getenv("ARGUS_DEDUPE"); val != "" {
		if parsed, err := strconv.ParseBool(val); err == nil {
			cfg.Dedupe = parsed
		}
	}
	if val := os.Getenv("ARGUS_LOG_CAPACITY"); val != "" {
		if parsed, err := strconv.Atoi(val); err == nil {
			cfg.LogCapacity = parsed
		}
	}
}

// Normalize validates each field in isolation, replacing rejected values
// with defaults and logging a warning. It never fails: configuration
// problems must not keep the agent from running.
func (c *Config) Normalize(logger *slog.Logger) {
	if logger == nil {
		logger = slog.Default()
	}

	if c.Token == "" {
		logger.Warn("config: token is empty; reports will be rejected by the collector")
	}
	if c.LogCapacity <= 0 {
		logger.Warn("config: log_capacity must be positive, using default",
			"rejected", c.LogCapacity, "default", DefaultLogCapacity)
		c.LogCapacity = DefaultLogCapacity
	}
	if c.ConsoleBudget <= 0 {
		logger.Warn("config: console_budget must be positive, using default",
			"rejected", c.ConsoleBudget, "default", DefaultConsoleBudget)
		c.ConsoleBudget = DefaultConsoleBudget
	}
	if c.WindowLimit <= 0 {
		logger.Warn("config: window_limit must be positive, using default",
			"rejected", c.WindowLimit, "default", DefaultWindowLimit)
		c.WindowLimit = DefaultWindowLimit
	}
	if c.Metadata == nil {
		c.Metadata = map[string]string{}
	}

	c.Transport.CaptureEndpoint = normalizeEndpoint(logger, "capture_endpoint", c.Transport.CaptureEndpoint, DefaultCaptureEndpoint)
	c.Transport.UsageEndpoint = normalizeEndpoint(logger, "usage_endpoint", c.Transport.UsageEndpoint, DefaultUsageEndpoint)
	c.Transport.FaultEndpoint = normalizeEndpoint(logger, "fault_endpoint", c.Transport.FaultEndpoint, DefaultFaultEndpoint)
	if c.Transport.ForwardingEndpoint != "" {
		c.Transport.ForwardingEndpoint = normalizeEndpoint(logger, "forwarding_endpoint", c.Transport.ForwardingEndpoint, "")
	}
}

// normalizeEndpoint rejects unparsable URLs and defaults the scheme to https
// for scheme-less values.
func normalizeEndpoint(logger *slog.Logger, field, value, fallback string) string {
	if value == "" {
		return fallback
	}
	parsed, err := url.Parse(value)
	if err != nil {
		logger.Warn("config: endpoint is not a valid URL, using default",
			"field", field, "rejected", value)
		return fallback
	}
	if parsed.Scheme == "" {
		parsed, err = url.Parse("https://" + value)
		if err != nil {
			logger.Warn("config: endpoint is not a valid URL, using default",
				"field", field, "rejected", value)
			return fallback
		}
	}
	return parsed.String()
}
