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
Package synchro provides a corrected current time: the local clock plus
the delta measured against an NTP server. The delta is measured once,
shared between processes through the delta file and memoized for the
lifetime of the Service.
*/
package synchro

//go:generate mockgen -source=service.go -destination=querier_mock.go -package=synchro

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	log "github.com/sirupsen/logrus"

	"github.com/facebook/synchrontp/config"
	"github.com/facebook/synchrontp/delta"
	"github.com/facebook/synchrontp/ntp/client"
	"github.com/facebook/synchrontp/stats"
)

// how long we wait for another process measuring the delta
const lockTimeout = 5 * time.Second

// Querier returns current time of an NTP server in Unix seconds
type Querier interface {
	Query(ctx context.Context, host string, timeout time.Duration) (int64, error)
}

// Service is the corrected time source.
// Once the delta is resolved it is reused until ClearCache is called,
// unless config asks to revalidate it on every lookup.
type Service struct {
	cfg   *config.Config
	store *delta.Store
	ntp   Querier
	stats stats.Stats
	now   func() time.Time

	mu       sync.Mutex
	resolved bool
	delta    float64
}

// New creates a Service. st may be nil.
func New(cfg *config.Config, store *delta.Store, q Querier, st stats.Stats) *Service {
	if st == nil {
		st = stats.NoopStats{}
	}
	return &Service{
		cfg:   cfg,
		store: store,
		ntp:   q,
		stats: st,
		now:   time.Now,
	}
}

func corrected(now time.Time, delta float64) int64 {
	return int64(math.Round(float64(now.Unix()) + delta))
}

// CorrectedNow returns current Unix time corrected by the delta
func (s *Service) CorrectedNow(ctx context.Context) (int64, error) {
	d, err := s.Delta(ctx)
	if err != nil {
		return 0, err
	}
	return corrected(s.now(), d), nil
}

// Delta returns the memoized delta in seconds, resolving it on first use
func (s *Service) Delta(ctx context.Context) (float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.resolved && !s.cfg.Revalidate {
		return s.delta, nil
	}
	d, err := s.resolve(ctx)
	if err != nil {
		return 0, err
	}
	s.delta = d
	s.resolved = true
	s.stats.SetOffset(d)
	return d, nil
}

// resolve returns the cached delta if it's still valid, otherwise measures a new one
func (s *Service) resolve(ctx context.Context) (float64, error) {
	interval, err := s.cfg.ValidityInterval()
	if err != nil {
		return 0, err
	}
	threshold := interval.Before(s.now())

	lockCtx, cancel := context.WithTimeout(ctx, lockTimeout)
	defer cancel()
	unlock, err := s.store.Lock(lockCtx)
	if err != nil {
		log.Warningf("using delta file without lock: %v", err)
	} else {
		defer unlock()
	}

	cached, err := s.store.Load()
	if err != nil {
		log.Warningf("ignoring cached delta: %v", err)
	}
	if cached != nil && !cached.MeasuredAt().Before(threshold) {
		log.Debugf("using cached delta %v measured at %s", cached.Offset(), cached.MeasuredAt())
		s.stats.IncCacheHits()
		return cached.Offset(), nil
	}
	if cached != nil {
		log.Debugf("cached delta measured at %s is older than %s", cached.MeasuredAt(), interval)
	}

	s.stats.IncCacheMisses()
	m, err := s.measure(ctx)
	if err != nil {
		return 0, err
	}
	return m.Offset(), nil
}

// measure queries the NTP server between two local readings and stores
// the difference between server time and the middle of the two readings.
func (s *Service) measure(ctx context.Context) (delta.Measurement, error) {
	host := s.cfg.MeasurementHost
	start := s.now().Unix()
	s.stats.IncQueries()
	remote, err := s.ntp.Query(ctx, host, s.cfg.MeasurementTimeout)
	if err != nil {
		s.stats.IncQueryErrors()
		return delta.Measurement{}, err
	}
	end := s.now().Unix()

	local := float64(start+end) / 2
	offset := float64(remote) - local
	log.Debugf("measured delta %v against %s", offset, host)

	m, err := s.store.Save(offset, s.now())
	if err != nil {
		return delta.Measurement{}, fmt.Errorf("persisting delta: %w", err)
	}
	return m, nil
}

// ClearCache forgets the memoized delta and removes the delta file
func (s *Service) ClearCache() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.resolved = false
	s.delta = 0
	return s.store.Clear()
}

// Query asks host for its current time in Unix seconds.
// Empty host and zero timeout mean client defaults.
func (s *Service) Query(ctx context.Context, host string, timeout time.Duration) (int64, error) {
	if host == "" {
		host = client.DefaultHost
	}
	if timeout <= 0 {
		timeout = client.DefaultTimeout
	}
	return s.ntp.Query(ctx, host, timeout)
}
