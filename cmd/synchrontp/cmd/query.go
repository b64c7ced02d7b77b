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
	"context"
	"fmt"
	"io"
	"math"
	"os"
	"strconv"
	"time"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/facebook/synchrontp/ntp/client"
	"github.com/facebook/synchrontp/synchro"
)

// how many servers we query at once
const queryParallelism = 8

// flags
var (
	queryTimeoutFlag time.Duration
	queryInspectFlag bool
)

func init() {
	RootCmd.AddCommand(queryCmd)
	queryCmd.Flags().DurationVarP(&queryTimeoutFlag, "timeout", "t", client.DefaultTimeout, "timeout of a single query")
	queryCmd.Flags().BoolVar(&queryInspectFlag, "inspect", false, "run full SNTP exchange to see sub-second offset and round trip time")
}

type queryResult struct {
	host  string
	unix  int64
	local int64
	err   error
}

// queryHosts queries all hosts concurrently. Failures don't stop other queries.
func queryHosts(ctx context.Context, q synchro.Querier, hosts []string, timeout time.Duration) []queryResult {
	results := make([]queryResult, len(hosts))
	var g errgroup.Group
	g.SetLimit(queryParallelism)
	for i, host := range hosts {
		g.Go(func() error {
			ts, err := q.Query(ctx, host, timeout)
			results[i] = queryResult{host: host, unix: ts, local: time.Now().Unix(), err: err}
			return nil
		})
	}
	_ = g.Wait()
	return results
}

func colorDiff(diff int64) string {
	abs := math.Abs(float64(diff))
	switch {
	case abs <= 1:
		return color.GreenString("%+ds", diff)
	case abs <= 60:
		return color.YellowString("%+ds", diff)
	}
	return color.RedString("%+ds", diff)
}

func printQueryResults(w io.Writer, results []queryResult) error {
	table := tablewriter.NewWriter(w)
	table.Header("host", "unix", "utc", "server - local", "error")
	rows := [][]string{}
	for _, r := range results {
		if r.err != nil {
			rows = append(rows, []string{r.host, "", "", "", r.err.Error()})
			continue
		}
		rows = append(rows, []string{
			r.host,
			strconv.FormatInt(r.unix, 10),
			time.Unix(r.unix, 0).UTC().Format(time.RFC3339),
			colorDiff(r.unix - r.local),
			"",
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func inspectHosts(c *client.Client, hosts []string, timeout time.Duration) ([]*client.Inspection, []error) {
	results := make([]*client.Inspection, len(hosts))
	errs := make([]error, len(hosts))
	var g errgroup.Group
	g.SetLimit(queryParallelism)
	for i, host := range hosts {
		g.Go(func() error {
			results[i], errs[i] = c.Inspect(host, timeout)
			return nil
		})
	}
	_ = g.Wait()
	return results, errs
}

func printInspections(w io.Writer, hosts []string, results []*client.Inspection, errs []error) error {
	table := tablewriter.NewWriter(w)
	table.Header("host", "utc", "offset", "rtt", "stratum", "refid", "error")
	rows := [][]string{}
	for i, r := range results {
		if errs[i] != nil {
			rows = append(rows, []string{hosts[i], "", "", "", "", "", errs[i].Error()})
			continue
		}
		rows = append(rows, []string{
			r.Host,
			r.Time.UTC().Format(time.RFC3339Nano),
			r.ClockOffset.String(),
			r.RTT.String(),
			strconv.Itoa(int(r.Stratum)),
			fmt.Sprintf("0x%08x", r.ReferenceID),
			"",
		})
	}
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}

func queryRun(hosts []string) error {
	if len(hosts) == 0 {
		hosts = []string{client.DefaultHost}
	}
	if queryInspectFlag {
		results, errs := inspectHosts(client.New(), hosts, queryTimeoutFlag)
		return printInspections(os.Stdout, hosts, results, errs)
	}
	svc, _, err := newService(nil)
	if err != nil {
		return err
	}
	results := queryHosts(context.Background(), svc, hosts, queryTimeoutFlag)
	return printQueryResults(os.Stdout, results)
}

var queryCmd = &cobra.Command{
	Use:   "query [host...]",
	Short: fmt.Sprintf("Ask NTP servers for current time. Default server is %s", client.DefaultHost),
	Run: func(_ *cobra.Command, args []string) {
		ConfigureVerbosity()
		if err := queryRun(args); err != nil {
			log.Fatal(err)
		}
	},
}
