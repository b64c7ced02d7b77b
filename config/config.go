/*
Copyright (c) Facebook, Inc. and its affiliates.

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

/*
Package config holds synchrontp settings. Values come from defaults,
an optional YAML file, SYNCHRO_NTP_* environment variables and command
line flags, in that order.
*/
package config

import (
	"fmt"
	"os"
	"time"

	yaml "gopkg.in/yaml.v2"

	"github.com/facebook/synchrontp/ntp/client"
)

// Environment variables recognized by ApplyEnv
const (
	EnvInterval  = "SYNCHRO_NTP_INTERVAL"
	EnvDirectory = "SYNCHRO_NTP_DIRECTORY"
	EnvHost      = "SYNCHRO_NTP_HOST"
)

// DefaultInterval is how long a measured delta stays valid
const DefaultInterval = "PT6H"

// DefaultMonitoringPort is the port serve listens on
const DefaultMonitoringPort = 4269

// Config represents configuration we expect to read from file
type Config struct {
	Interval           string        `yaml:"interval"`            // validity interval of a cached delta
	Directory          string        `yaml:"directory"`           // where the delta file lives, temp dir if empty or missing
	MeasurementHost    string        `yaml:"measurement_host"`    // server used to refresh the delta
	MeasurementTimeout time.Duration `yaml:"measurement_timeout"` // timeout of a refresh query
	Revalidate         bool          `yaml:"revalidate"`          // re-run freshness check on every lookup
	MonitoringPort     int           `yaml:"monitoring_port"`     // port for serve
}

// DefaultConfig returns Config with all defaults set
func DefaultConfig() *Config {
	return &Config{
		Interval:           DefaultInterval,
		MeasurementHost:    client.MeasurementHost,
		MeasurementTimeout: client.MeasurementTimeout,
		MonitoringPort:     DefaultMonitoringPort,
	}
}

// ReadConfig reads config and unmarshals it from yaml into Config.
// Fields absent from the file keep their defaults.
func ReadConfig(path string) (*Config, error) {
	c := DefaultConfig()
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	if err := yaml.UnmarshalStrict(data, c); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	return c, nil
}

// ApplyEnv overrides config values with SYNCHRO_NTP_* environment variables
func (c *Config) ApplyEnv() {
	if v, ok := os.LookupEnv(EnvInterval); ok {
		c.Interval = v
	}
	if v, ok := os.LookupEnv(EnvDirectory); ok {
		c.Directory = v
	}
	if v, ok := os.LookupEnv(EnvHost); ok {
		c.MeasurementHost = v
	}
}

// ValidityInterval returns parsed validity interval. A missing value means
// the default, a malformed one is an error.
func (c *Config) ValidityInterval() (Interval, error) {
	if c.Interval == "" {
		return ParseInterval(DefaultInterval)
	}
	return ParseInterval(c.Interval)
}

// Validate makes sure config is valid
func (c *Config) Validate() error {
	if _, err := c.ValidityInterval(); err != nil {
		return fmt.Errorf("bad config: 'interval': %w", err)
	}
	if c.MeasurementHost == "" {
		return fmt.Errorf("bad config: 'measurement_host' must be specified")
	}
	if c.MeasurementTimeout <= 0 {
		return fmt.Errorf("bad config: 'measurement_timeout' must be >0")
	}
	if c.MonitoringPort < 0 || c.MonitoringPort > 65535 {
		return fmt.Errorf("bad config: 'monitoring_port' must be between 0 and 65535")
	}
	return nil
}
