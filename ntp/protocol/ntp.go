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
Package protocol implements the minimal subset of the NTP packet needed to
read a server's receive timestamp. It provides quick translation between
48 bytes and a simply accessible struct.
*/
package protocol

import (
	"time"
)

// NTPToUnixSeconds is the difference between NTP (1900) and Unix (1970) epoch in seconds
const NTPToUnixSeconds = int64(2208988800)

// NanosecondsToUnix is the difference between NTP and Unix epoch in NS
const NanosecondsToUnix = NTPToUnixSeconds * int64(time.Second)

// Time is converting Unix time to sec and frac NTP format
func Time(t time.Time) (seconds uint32, fractions uint32) {
	nsec := t.UnixNano() + NanosecondsToUnix
	sec := nsec / time.Second.Nanoseconds()
	return uint32(sec), uint32((nsec - sec*time.Second.Nanoseconds()) << 32 / time.Second.Nanoseconds())
}

// Unix is converting NTP seconds and fractions into Unix time
func Unix(seconds, fractions uint32) time.Time {
	secs := UnixSeconds(seconds)
	nanos := (int64(fractions) * time.Second.Nanoseconds()) >> 32 // convert fractional to nanos
	return time.Unix(secs, nanos)
}

// UnixSeconds converts whole NTP era seconds into Unix seconds.
// The NTP value is always unsigned, so 0xFFFFFFFF stays positive.
func UnixSeconds(seconds uint32) int64 {
	return int64(seconds) - NTPToUnixSeconds
}
