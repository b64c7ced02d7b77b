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

package stats

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "synchrontp"

// PrometheusStats implements Stats with prometheus metrics in its own registry
type PrometheusStats struct {
	registry    *prometheus.Registry
	queries     prometheus.Counter
	queryErrors prometheus.Counter
	cacheHits   prometheus.Counter
	cacheMisses prometheus.Counter
	offset      prometheus.Gauge
}

// NewPrometheusStats creates PrometheusStats with all metrics registered
func NewPrometheusStats() *PrometheusStats {
	s := &PrometheusStats{
		registry: prometheus.NewRegistry(),
		queries: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ntp_queries_total",
			Help:      "NTP queries sent to measure the delta",
		}),
		queryErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "ntp_query_errors_total",
			Help:      "NTP queries that failed",
		}),
		cacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_hits_total",
			Help:      "Delta resolutions served from the delta file",
		}),
		cacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "cache_misses_total",
			Help:      "Delta resolutions which needed a fresh measurement",
		}),
		offset: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "offset_seconds",
			Help:      "Current delta between local clock and the NTP server",
		}),
	}
	s.registry.MustRegister(s.queries, s.queryErrors, s.cacheHits, s.cacheMisses, s.offset)
	return s
}

// Handler returns http handler exposing the metrics
func (s *PrometheusStats) Handler() http.Handler {
	return promhttp.HandlerFor(
		s.registry,
		promhttp.HandlerOpts{
			// Opt into OpenMetrics to support exemplars.
			EnableOpenMetrics: true,
		},
	)
}

// IncQueries atomically add 1 to the counter
func (s *PrometheusStats) IncQueries() {
	s.queries.Inc()
}

// IncQueryErrors atomically add 1 to the counter
func (s *PrometheusStats) IncQueryErrors() {
	s.queryErrors.Inc()
}

// IncCacheHits atomically add 1 to the counter
func (s *PrometheusStats) IncCacheHits() {
	s.cacheHits.Inc()
}

// IncCacheMisses atomically add 1 to the counter
func (s *PrometheusStats) IncCacheMisses() {
	s.cacheMisses.Inc()
}

// SetOffset sets the offset gauge
func (s *PrometheusStats) SetOffset(offset float64) {
	s.offset.Set(offset)
}
