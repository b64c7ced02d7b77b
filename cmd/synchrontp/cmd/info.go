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
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/facebook/synchrontp/config"
	"github.com/facebook/synchrontp/synchro"
)

// flags
var infoJSONFlag bool

func init() {
	RootCmd.AddCommand(infoCmd)
	infoCmd.Flags().BoolVarP(&infoJSONFlag, "json", "j", false, "print in JSON format")
}

// deltaAge describes measurement time, in color depending on whether it's still valid
func deltaAge(measuredOn string, interval config.Interval, now time.Time) string {
	at, err := time.Parse(time.RFC3339, measuredOn)
	if err != nil {
		return measuredOn
	}
	age := now.Sub(at).Truncate(time.Second)
	if at.Before(interval.Before(now)) {
		return color.YellowString("%s (%s ago, stale)", measuredOn, age)
	}
	return color.GreenString("%s (%s ago)", measuredOn, age)
}

func printInfo(w io.Writer, info *synchro.Info, interval config.Interval) error {
	table := tablewriter.NewWriter(w)
	table.Header("field", "value")
	rows := [][]string{
		{"local time", strconv.FormatInt(info.Time, 10)},
		{"corrected time", strconv.FormatInt(info.Corrected, 10)},
		{"resolved", strconv.FormatBool(info.Resolved)},
		{"validity", interval.String()},
	}
	if info.Delta == nil {
		rows = append(rows, []string{"delta", color.RedString("none")})
	} else {
		rows = append(rows,
			[]string{"delta", strconv.FormatFloat(info.Delta.Value, 'f', -1, 64)},
			[]string{"measured on", deltaAge(info.Delta.MeasuredOn, interval, time.Unix(info.Time, 0))},
		)
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func infoRun() error {
	svc, cfg, err := newService(nil)
	if err != nil {
		return err
	}
	info := svc.Info()
	if infoJSONFlag {
		str, err := json.Marshal(info)
		if err != nil {
			return fmt.Errorf("marshaling json: %w", err)
		}
		fmt.Printf("%s\n", string(str))
		return nil
	}
	interval, err := cfg.ValidityInterval()
	if err != nil {
		return err
	}
	return printInfo(os.Stdout, info, interval)
}

var infoCmd = &cobra.Command{
	Use:   "info",
	Short: "Print local time, corrected time and cached delta. Never queries NTP",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := infoRun(); err != nil {
			log.Fatal(err)
		}
	},
}
