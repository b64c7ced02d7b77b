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
Package client implements a minimal NTP client. It sends a single request
to a server and returns the server receive timestamp with a one second
resolution, which is all we need to estimate the local clock offset.
*/
package client

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/synchrontp/ntp/protocol"
)

const (
	// DefaultPort is the NTP port
	DefaultPort = 123
	// DefaultHost is used by on-demand queries when no host is given
	DefaultHost = "pool.ntp.org"
	// DefaultTimeout is used by on-demand queries when no timeout is given
	DefaultTimeout = 10 * time.Second
	// MeasurementHost is queried when a cached delta needs to be refreshed
	MeasurementHost = "ntp.unice.fr"
	// MeasurementTimeout is short since measurement runs inside a time lookup
	MeasurementTimeout = time.Second
)

// DialFunc opens a datagram connection to address
type DialFunc func(ctx context.Context, network, address string, timeout time.Duration) (net.Conn, error)

func dialUDP(ctx context.Context, network, address string, timeout time.Duration) (net.Conn, error) {
	d := net.Dialer{Timeout: timeout}
	return d.DialContext(ctx, network, address)
}

// Client queries NTP servers
type Client struct {
	Port int
	Dial DialFunc
}

// New returns a Client talking to the standard NTP port
func New() *Client {
	return &Client{Port: DefaultPort, Dial: dialUDP}
}

func (c *Client) address(host string) string {
	port := c.Port
	if port == 0 {
		port = DefaultPort
	}
	return net.JoinHostPort(host, strconv.Itoa(port))
}

// Query asks host for the current time and returns it as Unix seconds.
// The whole exchange is bounded by timeout. Any failure is a *QueryError.
func (c *Client) Query(ctx context.Context, host string, timeout time.Duration) (int64, error) {
	ts, err := c.query(ctx, host, timeout)
	if err != nil {
		log.Debugf("ntp query to %s failed: %v", host, err)
		return 0, &QueryError{Host: host, Err: err}
	}
	log.Debugf("ntp query to %s returned %d", host, ts)
	return ts, nil
}

func (c *Client) query(ctx context.Context, host string, timeout time.Duration) (int64, error) {
	dial := c.Dial
	if dial == nil {
		dial = dialUDP
	}
	conn, err := dial(ctx, "udp", c.address(host), timeout)
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrTransport, err)
	}
	if conn == nil {
		return 0, fmt.Errorf("%w: no connection to %s", ErrConnection, host)
	}
	defer conn.Close()

	if err := conn.SetDeadline(time.Now().Add(timeout)); err != nil {
		return 0, fmt.Errorf("%w: setting deadline: %w", ErrConnection, err)
	}

	request, err := protocol.NewRequest().Bytes()
	if err != nil {
		return 0, fmt.Errorf("%w: encoding request: %w", ErrConnection, err)
	}
	n, err := conn.Write(request)
	if err != nil {
		return 0, fmt.Errorf("%w: sending request: %w", ErrConnection, err)
	}
	if n != len(request) {
		return 0, fmt.Errorf("%w: sent %d of %d bytes", ErrConnection, n, len(request))
	}

	buf := make([]byte, protocol.PacketSizeBytes)
	n, err = conn.Read(buf)
	if err != nil {
		return 0, fmt.Errorf("%w: reading reply: %w", ErrConnection, err)
	}

	packet, err := protocol.BytesToPacket(buf[:n])
	if err != nil {
		return 0, fmt.Errorf("%w: %w", ErrProtocol, err)
	}

	ts := packet.ReceiveUnix()
	if ts <= 0 {
		return 0, fmt.Errorf("%w: receive timestamp %d is before unix epoch", ErrConsistency, ts)
	}
	return ts, nil
}
