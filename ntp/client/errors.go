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
	"errors"
	"fmt"
)

// Failure kinds of a time query. Use errors.Is on the error returned by Query.
var (
	// ErrTransport means the network channel to the server could not be established
	ErrTransport = errors.New("cannot reach time server")
	// ErrConnection means the channel was opened but could not be used
	ErrConnection = errors.New("cannot talk to time server")
	// ErrProtocol means the reply is not a valid NTP packet
	ErrProtocol = errors.New("received data is not valid")
	// ErrConsistency means the decoded time makes no sense
	ErrConsistency = errors.New("received time is not consistent")
)

// QueryError is the single error kind returned by Query. It keeps the failure
// kind and the underlying cause reachable through errors.Is / errors.As.
type QueryError struct {
	Host string
	Err  error
}

func (e *QueryError) Error() string {
	return fmt.Sprintf("time retrieval from %s failed: %v", e.Host, e.Err)
}

func (e *QueryError) Unwrap() error {
	return e.Err
}
