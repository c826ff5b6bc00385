// Package config reads the application settings for the consumer and
// producer binaries from a YAML file.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the face and application settings shared by the binaries.
type Config struct {
	Face struct {
		// Network is the transport network, "unix" or "tcp".
		Network string `yaml:"network"`
		// Address is the forwarder's socket address.
		Address string `yaml:"address"`
	} `yaml:"face"`
	App struct {
		// Prefix is the name prefix content is requested and served under.
		Prefix string `yaml:"prefix"`
		// LifetimeMs bounds each request in milliseconds.
		LifetimeMs uint64 `yaml:"lifetimeMs"`
		// FreshnessMs marks served payloads fresh, in milliseconds.
		FreshnessMs uint64 `yaml:"freshnessMs"`
		// CertValidityHours bounds the self-signed certificate's window.
		CertValidityHours uint64 `yaml:"certValidityHours"`
	} `yaml:"app"`
}

// Default returns the settings used when no config file is given: the local
// NFD unix socket and the example application prefix.
func Default() *Config {
	config := &Config{}
	config.Face.Network = "unix"
	config.Face.Address = "/var/run/nfd.sock"
	config.App.Prefix = "/example/testApp"
	config.App.LifetimeMs = 6000
	config.App.FreshnessMs = 4000
	config.App.CertValidityHours = 24
	return config
}

// Read loads settings from a YAML file, filling unset fields from Default.
func Read(configFilePath string) (*Config, error) {
	configFileBuffer, readFileError := os.ReadFile(configFilePath)
	if readFileError != nil {
		return nil, readFileError
	}
	config := Default()
	configUnmarshalError := yaml.Unmarshal(configFileBuffer, config)
	if configUnmarshalError != nil {
		return nil, fmt.Errorf("in file %q: %w", configFilePath, configUnmarshalError)
	}
	return config, nil
}

// Lifetime returns the request lifetime as a duration.
func (config *Config) Lifetime() time.Duration {
	return time.Duration(config.App.LifetimeMs) * time.Millisecond
}

// Freshness returns the payload freshness as a duration.
func (config *Config) Freshness() time.Duration {
	return time.Duration(config.App.FreshnessMs) * time.Millisecond
}

// CertValidity returns the certificate validity window as a duration.
func (config *Config) CertValidity() time.Duration {
	return time.Duration(config.App.CertValidityHours) * time.Hour
}
