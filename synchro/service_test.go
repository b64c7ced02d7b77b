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
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/facebook/synchrontp/config"
	"github.com/facebook/synchrontp/delta"
	"github.com/facebook/synchrontp/ntp/client"
)

var base = time.Unix(1700000000, 0)

type fakeClock struct {
	sync.Mutex
	t time.Time
}

func (c *fakeClock) Now() time.Time {
	c.Lock()
	defer c.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.Lock()
	defer c.Unlock()
	c.t = c.t.Add(d)
}

type countingStats struct {
	sync.Mutex
	queries, queryErrors, hits, misses int
	offset                             float64
}

func (s *countingStats) IncQueries() { s.Lock(); s.queries++; s.Unlock() }
func (s *countingStats) IncQueryErrors() { s.Lock(); s.queryErrors++; s.Unlock() }
func (s *countingStats) IncCacheHits() { s.Lock(); s.hits++; s.Unlock() }
func (s *countingStats) IncCacheMisses() { s.Lock(); s.misses++; s.Unlock() }
func (s *countingStats) SetOffset(o float64) { s.Lock(); s.offset = o; s.Unlock() }

type testEnv struct {
	svc   *Service
	ntp   *MockQuerier
	clock *fakeClock
	store *delta.Store
	cfg   *config.Config
	stats *countingStats
}

func newTestEnv(t *testing.T) *testEnv {
	ctrl := gomock.NewController(t)
	cfg := config.DefaultConfig()
	cfg.Directory = t.TempDir()
	store := delta.NewStore(cfg.Directory)
	q := NewMockQuerier(ctrl)
	st := &countingStats{}
	clock := &fakeClock{t: base}
	svc := New(cfg, store, q, st)
	svc.now = clock.Now
	return &testEnv{svc: svc, ntp: q, clock: clock, store: store, cfg: cfg, stats: st}
}

// expectMeasurement makes the server run `ahead` seconds in front of us,
// with the exchange taking two seconds of local time
func (e *testEnv) expectMeasurement(ahead int64) *gomock.Call {
	return e.ntp.EXPECT().
		Query(gomock.Any(), "ntp.unice.fr", time.Second).
		DoAndReturn(func(_ context.Context, _ string, _ time.Duration) (int64, error) {
			remote := e.clock.Now().Unix() + 1 + ahead
			e.clock.Advance(2 * time.Second)
			return remote, nil
		})
}

func TestCorrectedNowMeasures(t *testing.T) {
	e := newTestEnv(t)
	e.expectMeasurement(10)

	// local midpoint is base+1, server says base+11
	d, err := e.svc.Delta(context.Background())
	require.NoError(t, err)
	require.Equal(t, 10.0, d)

	e.clock.Advance(100 * time.Second)
	ts, err := e.svc.CorrectedNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, base.Unix()+102+10, ts)

	m, err := e.store.Load()
	require.NoError(t, err)
	require.Equal(t, 10.0, m.Offset())
	require.True(t, base.Add(2*time.Second).Equal(m.MeasuredAt()))
	require.Equal(t, 1, e.stats.queries)
	require.Equal(t, 1, e.stats.misses)
	require.Equal(t, 10.0, e.stats.offset)
}

func TestCorrectedNowHalfSecondOffset(t *testing.T) {
	e := newTestEnv(t)
	e.ntp.EXPECT().
		Query(gomock.Any(), gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, _ string, _ time.Duration) (int64, error) {
			e.clock.Advance(time.Second)
			return base.Unix() - 3, nil
		})
	// midpoint is base+0.5, offset is -3.5
	d, err := e.svc.Delta(context.Background())
	require.NoError(t, err)
	require.Equal(t, -3.5, d)

	ts, err := e.svc.CorrectedNow(context.Background())
	require.NoError(t, err)
	// base+1-3.5 rounds away from zero
	require.Equal(t, base.Unix()-2, ts)
}

func TestCachedDeltaFresh(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.store.Save(4.5, base.Add(-5*time.Hour))
	require.NoError(t, err)

	ts, err := e.svc.CorrectedNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, base.Unix()+5, ts)
	require.Equal(t, 1, e.stats.hits)
	require.Equal(t, 0, e.stats.queries)
}

func TestCachedDeltaStale(t *testing.T) {
	e := newTestEnv(t)
	_, err := e.store.Save(4.5, base.Add(-7*time.Hour))
	require.NoError(t, err)
	e.expectMeasurement(-20)

	d, err := e.svc.Delta(context.Background())
	require.NoError(t, err)
	require.Equal(t, -20.0, d)
	require.Equal(t, 1, e.stats.misses)
}

func TestCachedDeltaCustomInterval(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.Interval = "1 hour"
	_, err := e.store.Save(4.5, base.Add(-2*time.Hour))
	require.NoError(t, err)
	e.expectMeasurement(1)

	d, err := e.svc.Delta(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1.0, d)
}

func TestCachedDeltaCorrupt(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.WriteFile(e.store.Path(), []byte("garbage"), 0644))
	e.expectMeasurement(3)

	d, err := e.svc.Delta(context.Background())
	require.NoError(t, err)
	require.Equal(t, 3.0, d)
}

func TestInvalidInterval(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.Interval = "PT6"

	_, err := e.svc.CorrectedNow(context.Background())
	require.ErrorIs(t, err, config.ErrInvalidInterval)
}

func TestMemoization(t *testing.T) {
	e := newTestEnv(t)
	e.expectMeasurement(10).Times(1)

	first, err := e.svc.CorrectedNow(context.Background())
	require.NoError(t, err)
	second, err := e.svc.CorrectedNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, first, second)

	// file goes stale, memoized delta is still used
	e.clock.Advance(24 * time.Hour)
	_, err = e.svc.CorrectedNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, e.stats.queries)
}

func TestMemoizationConcurrent(t *testing.T) {
	e := newTestEnv(t)
	e.expectMeasurement(10).Times(1)

	var wg sync.WaitGroup
	results := make([]float64, 16)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			d, err := e.svc.Delta(context.Background())
			assert.NoError(t, err)
			results[i] = d
		}(i)
	}
	wg.Wait()
	for _, d := range results {
		require.Equal(t, 10.0, d)
	}
}

// services sharing a directory measure once, whichever wins the file lock
func TestSharedDirectorySingleQuery(t *testing.T) {
	ctrl := gomock.NewController(t)
	q := NewMockQuerier(ctrl)
	q.EXPECT().
		Query(gomock.Any(), "ntp.unice.fr", time.Second).
		DoAndReturn(func(_ context.Context, _ string, _ time.Duration) (int64, error) {
			time.Sleep(100 * time.Millisecond)
			return time.Now().Unix() + 10, nil
		}).
		Times(1)

	dir := t.TempDir()
	var wg sync.WaitGroup
	results := make([]float64, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			cfg := config.DefaultConfig()
			cfg.Directory = dir
			svc := New(cfg, delta.NewStore(dir), q, nil)
			d, err := svc.Delta(context.Background())
			assert.NoError(t, err)
			results[i] = d
		}(i)
	}
	wg.Wait()
	for _, d := range results {
		require.Equal(t, results[0], d)
	}
	m, err := delta.NewStore(dir).Load()
	require.NoError(t, err)
	require.Equal(t, results[0], m.Offset())
}

func TestRevalidate(t *testing.T) {
	e := newTestEnv(t)
	e.cfg.Revalidate = true
	_, err := e.store.Save(1, base)
	require.NoError(t, err)

	d, err := e.svc.Delta(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1.0, d)

	e.clock.Advance(7 * time.Hour)
	e.expectMeasurement(2)
	d, err = e.svc.Delta(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2.0, d)
}

func TestQueryFailure(t *testing.T) {
	e := newTestEnv(t)
	qerr := &client.QueryError{Host: "ntp.unice.fr", Err: client.ErrTransport}
	e.ntp.EXPECT().Query(gomock.Any(), gomock.Any(), gomock.Any()).Return(int64(0), qerr)

	_, err := e.svc.CorrectedNow(context.Background())
	require.ErrorIs(t, err, client.ErrTransport)
	require.NoFileExists(t, e.store.Path())
	require.Equal(t, 1, e.stats.queryErrors)

	// nothing was memoized, next call tries again
	e.expectMeasurement(5)
	d, err := e.svc.Delta(context.Background())
	require.NoError(t, err)
	require.Equal(t, 5.0, d)
}

func TestSaveFailure(t *testing.T) {
	e := newTestEnv(t)
	require.NoError(t, os.Mkdir(e.store.Path(), 0755))
	require.NoError(t, os.WriteFile(filepath.Join(e.store.Path(), "x"), nil, 0644))
	e.expectMeasurement(5)

	_, err := e.svc.Delta(context.Background())
	require.Error(t, err)
	require.Contains(t, err.Error(), "persisting delta")
}

func TestClearCache(t *testing.T) {
	e := newTestEnv(t)
	e.expectMeasurement(10).Times(2)

	_, err := e.svc.CorrectedNow(context.Background())
	require.NoError(t, err)
	require.FileExists(t, e.store.Path())

	require.NoError(t, e.svc.ClearCache())
	require.NoFileExists(t, e.store.Path())

	_, err = e.svc.CorrectedNow(context.Background())
	require.NoError(t, err)
	require.Equal(t, 2, e.stats.queries)
}

func TestQueryDefaults(t *testing.T) {
	e := newTestEnv(t)
	e.ntp.EXPECT().Query(gomock.Any(), "pool.ntp.org", 10*time.Second).Return(int64(42), nil)
	e.ntp.EXPECT().Query(gomock.Any(), "time.example.com", time.Second).Return(int64(0), errors.New("boom"))

	ts, err := e.svc.Query(context.Background(), "", 0)
	require.NoError(t, err)
	require.Equal(t, int64(42), ts)

	_, err = e.svc.Query(context.Background(), "time.example.com", time.Second)
	require.Error(t, err)
	// on-demand queries don't touch the delta
	require.NoFileExists(t, e.store.Path())
}
