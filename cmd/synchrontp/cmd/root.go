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

package cmd

import (
	"fmt"
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/synchrontp/config"
	"github.com/facebook/synchrontp/delta"
	"github.com/facebook/synchrontp/ntp/client"
	"github.com/facebook/synchrontp/stats"
	"github.com/facebook/synchrontp/synchro"
)

// RootCmd is a main entry point. It's exported so synchrontp could be easily extended without touching core functionality.
var RootCmd = &cobra.Command{
	Use:   "synchrontp",
	Short: "Local clock corrected against an NTP server",
}

// flags
var (
	rootVerboseFlag   bool
	rootLogLevelFlag  string
	rootConfigFlag    string
	rootDirectoryFlag string
	rootIntervalFlag  string
)

func init() {
	RootCmd.PersistentFlags().BoolVarP(&rootVerboseFlag, "verbose", "v", false, "verbose output")
	RootCmd.PersistentFlags().StringVar(&rootLogLevelFlag, "loglevel", "info", "Set a log level. Can be: debug, info, warning, error")
	RootCmd.PersistentFlags().StringVarP(&rootConfigFlag, "config", "c", "", "path to YAML config")
	RootCmd.PersistentFlags().StringVarP(&rootDirectoryFlag, "directory", "d", "", "directory of the delta file. Temp dir if empty or missing")
	RootCmd.PersistentFlags().StringVarP(&rootIntervalFlag, "interval", "i", "", fmt.Sprintf("validity of a measured delta, like %q or \"6 hours\"", config.DefaultInterval))
}

func parseLogLevel(level string) (log.Level, error) {
	switch level {
	case "debug":
		return log.DebugLevel, nil
	case "info":
		return log.InfoLevel, nil
	case "warning":
		return log.WarnLevel, nil
	case "error":
		return log.ErrorLevel, nil
	default:
		return log.InfoLevel, fmt.Errorf("unrecognized log level: %v", level)
	}
}

// ConfigureVerbosity configures log verbosity based on parsed flags. Needs to be called by any subcommand.
// --verbose wins over --loglevel.
func ConfigureVerbosity() {
	level, err := parseLogLevel(rootLogLevelFlag)
	if err != nil {
		log.Fatal(err)
	}
	if rootVerboseFlag {
		level = log.DebugLevel
	}
	log.SetLevel(level)
}

// loadConfig builds config from file, environment and flags
func loadConfig() (*config.Config, error) {
	cfg := config.DefaultConfig()
	if rootConfigFlag != "" {
		var err error
		cfg, err = config.ReadConfig(rootConfigFlag)
		if err != nil {
			return nil, fmt.Errorf("reading config: %w", err)
		}
	}
	cfg.ApplyEnv()
	if rootDirectoryFlag != "" {
		cfg.Directory = rootDirectoryFlag
	}
	if rootIntervalFlag != "" {
		cfg.Interval = rootIntervalFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	log.Debugf("config: %+v", cfg)
	return cfg, nil
}

// newService wires the corrected time service. st may be nil.
func newService(st stats.Stats) (*synchro.Service, *config.Config, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, nil, err
	}
	store := delta.NewStore(cfg.Directory)
	return synchro.New(cfg, store, client.New(), st), cfg, nil
}

// Execute is the main entry point for CLI interface
func Execute() {
	if err := RootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
