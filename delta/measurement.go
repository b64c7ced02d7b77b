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
Package delta keeps the measured difference between the local clock and
a reference NTP server. A measurement is stored in a single file whose
content is the offset in seconds and whose modification time is the
moment the offset was measured.
*/
package delta

import (
	"time"
)

// Measurement says local time + Offset ≈ true time, as sampled at MeasuredAt
type Measurement struct {
	offset     float64
	measuredAt time.Time
}

// NewMeasurement creates a Measurement
func NewMeasurement(offset float64, measuredAt time.Time) Measurement {
	return Measurement{offset: offset, measuredAt: measuredAt}
}

// Offset in seconds to add to the local clock
func (m Measurement) Offset() float64 {
	return m.offset
}

// MeasuredAt is when the offset was measured
func (m Measurement) MeasuredAt() time.Time {
	return m.measuredAt
}
