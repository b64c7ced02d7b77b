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
	"errors"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// ErrInvalidInterval is returned when a validity interval can't be parsed
var ErrInvalidInterval = errors.New("invalid validity interval")

var (
	isoInterval  = regexp.MustCompile(`^P(?:(-?\d+)Y)?(?:(-?\d+)M)?(?:(-?\d+)W)?(?:(-?\d+)D)?(?:T(?:(-?\d+)H)?(?:(-?\d+)M)?(?:(-?\d+)S)?)?$`)
	phrasePart   = regexp.MustCompile(`^(-?\d+)\s*([a-z]+)\s*`)
	phraseToUnit = map[string]string{
		"year": "y", "years": "y",
		"month": "mo", "months": "mo",
		"week": "w", "weeks": "w",
		"day": "d", "days": "d",
		"hour": "h", "hours": "h",
		"minute": "m", "minutes": "m", "min": "m", "mins": "m",
		"second": "s", "seconds": "s", "sec": "s", "secs": "s",
	}
)

// Interval is a calendar aware time interval. Years, months and days are
// applied with calendar arithmetic, Clock is applied as is.
type Interval struct {
	Years  int
	Months int
	Days   int
	Clock  time.Duration
}

// Before returns t moved back by the interval
func (i Interval) Before(t time.Time) time.Time {
	return t.AddDate(-i.Years, -i.Months, -i.Days).Add(-i.Clock)
}

func (i Interval) String() string {
	parts := []string{}
	if i.Years != 0 {
		parts = append(parts, fmt.Sprintf("%dy", i.Years))
	}
	if i.Months != 0 {
		parts = append(parts, fmt.Sprintf("%dmo", i.Months))
	}
	if i.Days != 0 {
		parts = append(parts, fmt.Sprintf("%dd", i.Days))
	}
	if i.Clock != 0 || len(parts) == 0 {
		parts = append(parts, i.Clock.String())
	}
	return strings.Join(parts, " ")
}

func (i *Interval) add(n int, unit string) error {
	switch unit {
	case "y":
		i.Years += n
	case "mo":
		i.Months += n
	case "w":
		i.Days += 7 * n
	case "d":
		i.Days += n
	case "h":
		return i.addClock(n, time.Hour)
	case "m":
		return i.addClock(n, time.Minute)
	case "s":
		return i.addClock(n, time.Second)
	}
	return nil
}

// addClock adds n units to Clock, failing instead of wrapping around
func (i *Interval) addClock(n int, unit time.Duration) error {
	limit := int64(math.MaxInt64 / unit)
	if int64(n) > limit || int64(n) < -limit {
		return fmt.Errorf("%w: %d x %s overflows", ErrInvalidInterval, n, unit)
	}
	d := time.Duration(n) * unit
	if (d > 0 && i.Clock > math.MaxInt64-d) || (d < 0 && i.Clock < math.MinInt64-d) {
		return fmt.Errorf("%w: total overflows", ErrInvalidInterval)
	}
	i.Clock += d
	return nil
}

// ParseInterval parses a validity interval. Accepted forms are
// ISO 8601 durations ("PT6H", "P1DT12H"), Go durations ("90m")
// and phrases ("6 hours", "1 day 2 hours").
func ParseInterval(s string) (Interval, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Interval{}, fmt.Errorf("%w: empty", ErrInvalidInterval)
	}
	if strings.HasPrefix(s, "P") {
		return parseISO(s)
	}
	if d, err := time.ParseDuration(s); err == nil {
		return Interval{Clock: d}, nil
	}
	return parsePhrase(s)
}

func parseISO(s string) (Interval, error) {
	m := isoInterval.FindStringSubmatch(s)
	if m == nil || s == "P" || strings.HasSuffix(s, "T") {
		return Interval{}, fmt.Errorf("%w: %q is not an ISO 8601 duration", ErrInvalidInterval, s)
	}
	units := []string{"y", "mo", "w", "d", "h", "m", "s"}
	i := Interval{}
	for idx, unit := range units {
		if m[idx+1] == "" {
			continue
		}
		n, err := strconv.Atoi(m[idx+1])
		if err != nil {
			return Interval{}, fmt.Errorf("%w: %q: %w", ErrInvalidInterval, s, err)
		}
		if err := i.add(n, unit); err != nil {
			return Interval{}, fmt.Errorf("%q: %w", s, err)
		}
	}
	return i, nil
}

func parsePhrase(s string) (Interval, error) {
	rest := strings.ToLower(s)
	i := Interval{}
	for rest != "" {
		m := phrasePart.FindStringSubmatch(rest)
		if m == nil {
			return Interval{}, fmt.Errorf("%w: can't parse %q", ErrInvalidInterval, s)
		}
		unit, ok := phraseToUnit[m[2]]
		if !ok {
			return Interval{}, fmt.Errorf("%w: unknown unit %q in %q", ErrInvalidInterval, m[2], s)
		}
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return Interval{}, fmt.Errorf("%w: %q: %w", ErrInvalidInterval, s, err)
		}
		if err := i.add(n, unit); err != nil {
			return Interval{}, fmt.Errorf("%q: %w", s, err)
		}
		rest = strings.TrimPrefix(rest[len(m[0]):], ",")
		rest = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(rest), "and "))
	}
	return i, nil
}
