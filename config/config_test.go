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

package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

func TestDefaultConfig(t *testing.T) {
	c := DefaultConfig()
	require.NoError(t, c.Validate())
	i, err := c.ValidityInterval()
	require.NoError(t, err)
	require.Equal(t, Interval{Clock: 6 * time.Hour}, i)
	require.Equal(t, "ntp.unice.fr", c.MeasurementHost)
	require.Equal(t, time.Second, c.MeasurementTimeout)
}

func TestReadConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synchrontp.yaml")
	data := `interval: 1 day
directory: /var/cache/synchrontp
measurement_timeout: 2s
revalidate: true
`
	require.NoError(t, os.WriteFile(path, []byte(data), 0644))

	c, err := ReadConfig(path)
	require.NoError(t, err)
	want := &Config{
		Interval:           "1 day",
		Directory:          "/var/cache/synchrontp",
		MeasurementHost:    "ntp.unice.fr",
		MeasurementTimeout: 2 * time.Second,
		Revalidate:         true,
		MonitoringPort:     DefaultMonitoringPort,
	}
	require.Equal(t, want, c)
	require.NoError(t, c.Validate())
}

func TestReadConfigUnknownField(t *testing.T) {
	path := filepath.Join(t.TempDir(), "synchrontp.yaml")
	require.NoError(t, os.WriteFile(path, []byte("intervall: PT1H\n"), 0644))
	_, err := ReadConfig(path)
	require.Error(t, err)
}

func TestReadConfigMissing(t *testing.T) {
	_, err := ReadConfig(filepath.Join(t.TempDir(), "nope.yaml"))
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestApplyEnv(t *testing.T) {
	t.Setenv(EnvInterval, "PT1H")
	t.Setenv(EnvDirectory, "/tmp/synchro")
	t.Setenv(EnvHost, "time.example.com")
	c := DefaultConfig()
	c.ApplyEnv()
	require.Equal(t, "PT1H", c.Interval)
	require.Equal(t, "/tmp/synchro", c.Directory)
	require.Equal(t, "time.example.com", c.MeasurementHost)
}

func TestValidityIntervalEmptyIsDefault(t *testing.T) {
	c := &Config{}
	i, err := c.ValidityInterval()
	require.NoError(t, err)
	require.Equal(t, 6*time.Hour, i.Clock)
}

func TestValidate(t *testing.T) {
	c := DefaultConfig()
	c.Interval = "6 parsecs"
	err := c.Validate()
	require.ErrorIs(t, err, ErrInvalidInterval)

	c = DefaultConfig()
	c.MeasurementHost = ""
	require.Error(t, c.Validate())

	c = DefaultConfig()
	c.MeasurementTimeout = 0
	require.Error(t, c.Validate())

	c = DefaultConfig()
	c.MonitoringPort = 70000
	require.Error(t, c.Validate())
}
