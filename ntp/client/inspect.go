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

package client

import (
	"fmt"
	"time"

	"github.com/beevik/ntp"
)

// Inspection is the result of a full SNTP exchange with a server
type Inspection struct {
	Host        string
	Time        time.Time
	ClockOffset time.Duration
	RTT         time.Duration
	Stratum     uint8
	ReferenceID uint32
	Leap        uint8
}

// Inspect runs a complete SNTP exchange with host and validates the reply.
// Unlike Query it gives sub-second offset and round trip time, so it's handy
// to check what Query would measure.
func (c *Client) Inspect(host string, timeout time.Duration) (*Inspection, error) {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	resp, err := ntp.QueryWithOptions(host, ntp.QueryOptions{Timeout: timeout, Port: port})
	if err != nil {
		return nil, &QueryError{Host: host, Err: fmt.Errorf("%w: %w", ErrConnection, err)}
	}
	if err := resp.Validate(); err != nil {
		return nil, &QueryError{Host: host, Err: fmt.Errorf("%w: %w", ErrProtocol, err)}
	}
	return &Inspection{
		Host:        host,
		Time:        resp.Time,
		ClockOffset: resp.ClockOffset,
		RTT:         resp.RTT,
		Stratum:     resp.Stratum,
		ReferenceID: resp.ReferenceID,
		Leap:        uint8(resp.Leap),
	}, nil
}
