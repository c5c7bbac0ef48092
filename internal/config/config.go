// Package config provides configuration management for the Live Gateway
// server. Settings come from an optional YAML file with environment variable
// overrides on top; the environment always wins. Access rules and trusted
// proxy addresses are parsed here once at startup and treated as immutable
// for the life of the process.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// DefaultPort is the listen port used when neither the config file nor the
// PORT environment variable provides one.
const DefaultPort = 8317

// DefaultResponseTimeout bounds one backend session from dial to completion,
// in seconds. A non-responding backend fails the request instead of holding
// it open forever.
const DefaultResponseTimeout = 300

// Config represents the application's configuration, loaded from a YAML file
// and the environment.
type Config struct {
	// Port is the network port on which the API server will listen.
	Port int `yaml:"port"`

	// Debug enables or disables debug-level logging.
	Debug bool `yaml:"debug"`

	// AllowedIPs lists exact IP addresses and CIDR ranges permitted to use
	// the gateway. Empty means every client is allowed.
	AllowedIPs []string `yaml:"allowed-ips"`

	// TrustedProxyIPs lists reverse proxy addresses whose forwarding
	// headers may override the transport peer address.
	TrustedProxyIPs []string `yaml:"trusted-proxy-ips"`

	// ReverseProxyMode enables honoring of Forwarded and X-Forwarded-For
	// headers from trusted proxies.
	ReverseProxyMode bool `yaml:"reverse-proxy-mode"`

	// ProxyURL is the URL of an optional proxy server to use for outbound
	// backend connections (socks5, http, or https).
	ProxyURL string `yaml:"proxy-url"`

	// RequestLog enables or disables detailed request logging.
	RequestLog bool `yaml:"request-log"`

	// ResponseTimeout is the maximum lifetime of one backend session in
	// seconds. Zero selects DefaultResponseTimeout.
	ResponseTimeout int `yaml:"response-timeout"`
}

// LoadConfig reads an optional YAML configuration file, applies environment
// variable overrides, and fills in defaults. A missing file is not an error;
// the gateway can be configured entirely from the environment.
func LoadConfig(configFile string) (*Config, error) {
	var config Config

	data, err := os.ReadFile(configFile)
	if err == nil {
		if err = yaml.Unmarshal(data, &config); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config.applyEnvOverrides()
	config.applyDefaults()

	return &config, nil
}

// applyEnvOverrides layers the documented environment variables over the
// file-provided values.
func (c *Config) applyEnvOverrides() {
	if v := os.Getenv("PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil && port > 0 {
			c.Port = port
		}
	}
	if v, ok := os.LookupEnv("ALLOWED_IPS"); ok {
		c.AllowedIPs = splitCommaList(v)
	}
	if v, ok := os.LookupEnv("TRUSTED_PROXY_IPS"); ok {
		c.TrustedProxyIPs = splitCommaList(v)
	}
	if v := os.Getenv("REVERSE_PROXY_MODE"); v != "" {
		c.ReverseProxyMode = strings.EqualFold(v, "true")
	}
	if v := os.Getenv("PROXY_URL"); v != "" {
		c.ProxyURL = v
	}
	if v := os.Getenv("DEBUG"); v != "" {
		c.Debug = strings.EqualFold(v, "true")
	}
}

func (c *Config) applyDefaults() {
	if c.Port == 0 {
		c.Port = DefaultPort
	}
	if c.ResponseTimeout <= 0 {
		c.ResponseTimeout = DefaultResponseTimeout
	}
}

// splitCommaList splits a comma-separated environment value into trimmed,
// non-empty entries. An empty value yields an empty list, which for
// ALLOWED_IPS means "allow everyone".
func splitCommaList(value string) []string {
	parts := strings.Split(value, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		out = append(out, part)
	}
	return out
}
