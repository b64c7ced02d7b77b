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
	"time"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

// flags
var nowHumanFlag bool

func init() {
	RootCmd.AddCommand(nowCmd)
	nowCmd.Flags().BoolVarP(&nowHumanFlag, "human", "H", false, "print RFC 3339 time instead of Unix timestamp")
}

func formatNow(ts int64, human bool) string {
	if human {
		return time.Unix(ts, 0).UTC().Format(time.RFC3339)
	}
	return fmt.Sprintf("%d", ts)
}

func nowRun() error {
	svc, _, err := newService(nil)
	if err != nil {
		return err
	}
	ts, err := svc.CorrectedNow(context.Background())
	if err != nil {
		return err
	}
	fmt.Println(formatNow(ts, nowHumanFlag))
	return nil
}

var nowCmd = &cobra.Command{
	Use:   "now",
	Short: "Print corrected current time",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := nowRun(); err != nil {
			log.Fatal(err)
		}
	},
}
