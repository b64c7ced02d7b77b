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
Package stats implements statistics collection and reporting.
It is used by the clock service to report how often the delta is
measured, reused from cache, and what the current offset is.
*/
package stats

// Stats is a metric collection interface
type Stats interface {
	// IncQueries atomically add 1 to the NTP queries counter
	IncQueries()
	// IncQueryErrors atomically add 1 to the failed NTP queries counter
	IncQueryErrors()
	// IncCacheHits atomically add 1 to the counter of deltas reused from file
	IncCacheHits()
	// IncCacheMisses atomically add 1 to the counter of deltas that had to be measured
	IncCacheMisses()
	// SetOffset sets current delta in seconds
	SetOffset(offset float64)
}

// NoopStats discards everything
type NoopStats struct{}

// IncQueries does nothing
func (NoopStats) IncQueries() {}

// IncQueryErrors does nothing
func (NoopStats) IncQueryErrors() {}

// IncCacheHits does nothing
func (NoopStats) IncCacheHits() {}

// IncCacheMisses does nothing
func (NoopStats) IncCacheMisses() {}

// SetOffset does nothing
func (NoopStats) SetOffset(float64) {}
