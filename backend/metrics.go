// Copyright (c) 2026 TTBT Enterprises LLC
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//      http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package backend

import (
	"net/http"
	"sync"
	"time"
)

const LatencyBuckets = 21
const LatencyBucketSize = 5 * time.Millisecond

type Histogram struct {
	Buckets [LatencyBuckets]uint64 `json:"b"`
	Count   uint64                 `json:"c"`
	Sum     float64                `json:"s"` // Sum of durations in milliseconds
}

func (h *Histogram) Add(d time.Duration) {
	idx := int(d / LatencyBucketSize)
	if idx >= LatencyBuckets {
		idx = LatencyBuckets - 1
	}
	h.Buckets[idx]++
	h.Count++
	h.Sum += float64(d) / float64(time.Millisecond)
}

// MetricsPayload is served at /api/metrics.
type MetricsPayload struct {
	Timestamp int64             `json:"timestamp"`
	Requests  map[string]uint64 `json:"requests"`
	NotFound  uint64            `json:"notFound"`
	Latency   Histogram         `json:"latency"`
}

// Metrics counts requests per path. Tests use it to check which assets a
// page fetched.
type Metrics struct {
	mu       sync.Mutex
	requests map[string]uint64
	notFound uint64
	latency  Histogram
}

func NewMetrics() *Metrics {
	return &Metrics{requests: make(map[string]uint64)}
}

func (m *Metrics) Observe(path string, status int, d time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requests[path]++
	if status == http.StatusNotFound {
		m.notFound++
	}
	m.latency.Add(d)
}

// Requests returns how many times path was requested.
func (m *Metrics) Requests(path string) uint64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.requests[path]
}

func (m *Metrics) Snapshot() MetricsPayload {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := MetricsPayload{
		Timestamp: time.Now().Unix(),
		Requests:  make(map[string]uint64, len(m.requests)),
		NotFound:  m.notFound,
		Latency:   m.latency,
	}
	for k, v := range m.requests {
		p.Requests[k] = v
	}
	return p
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func metricsMiddleware(m *Metrics, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		if r.URL.Path != "/api/metrics" {
			m.Observe(r.URL.Path, rec.status, time.Since(start))
		}
	})
}
