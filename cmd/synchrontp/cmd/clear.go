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
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func init() {
	RootCmd.AddCommand(clearCmd)
}

func clearRun() error {
	svc, _, err := newService(nil)
	if err != nil {
		return err
	}
	return svc.ClearCache()
}

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Remove cached delta so next lookup measures it again",
	Run: func(_ *cobra.Command, _ []string) {
		ConfigureVerbosity()
		if err := clearRun(); err != nil {
			log.Fatal(err)
		}
		log.Info("delta cache cleared")
	},
}
