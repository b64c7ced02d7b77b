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

package synchro

import (
	"time"

	log "github.com/sirupsen/logrus"
)

// DeltaInfo describes the delta file
type DeltaInfo struct {
	Value      float64 `json:"value"`
	MeasuredOn string  `json:"measured_on"`
}

// Info is a snapshot of the service state
type Info struct {
	Time      int64      `json:"time"`
	Corrected int64      `json:"corrected"`
	Resolved  bool       `json:"resolved"`
	Delta     *DeltaInfo `json:"delta"`
}

// Info returns local time, corrected time and what's in the delta file.
// It never queries NTP and doesn't resolve the delta: if nothing is
// memoized yet, corrected time is computed from the delta file, or equals
// local time when there is no file.
func (s *Service) Info() *Info {
	now := s.now()
	info := &Info{Time: now.Unix(), Corrected: now.Unix()}

	cached, err := s.store.Load()
	if err != nil {
		log.Warningf("ignoring cached delta: %v", err)
	}
	if cached != nil {
		info.Delta = &DeltaInfo{
			Value:      cached.Offset(),
			MeasuredOn: cached.MeasuredAt().UTC().Format(time.RFC3339),
		}
	}

	s.mu.Lock()
	resolved, d := s.resolved, s.delta
	s.mu.Unlock()

	switch {
	case resolved:
		info.Resolved = true
		info.Corrected = corrected(now, d)
	case cached != nil:
		info.Corrected = corrected(now, cached.Offset())
	}
	return info
}
