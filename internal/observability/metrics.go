package observability

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Metrics provides basic in-memory counters.
type Metrics struct {
	mu           sync.Mutex
	started      time.Time
	requestCount map[string]int64
	errorCount   map[string]int64
	latencyTotal map[string]time.Duration
}

// Counter is one labelled counter in a Snapshot.
type Counter struct {
	Route  string `json:"route"`
	Method string `json:"method"`
	Label  string `json:"label"`
	Count  int64  `json:"count"`
}

// RouteLatency is the mean latency for a route and method.
type RouteLatency struct {
	Route  string  `json:"route"`
	Method string  `json:"method"`
	MeanMs float64 `json:"meanMs"`
}

// Snapshot is a point-in-time copy of all counters.
type Snapshot struct {
	UptimeSeconds int64          `json:"uptimeSeconds"`
	Requests      []Counter      `json:"requests"`
	Errors        []Counter      `json:"errors"`
	Latency       []RouteLatency `json:"latency"`
}

// NewMetrics initializes metrics storage.
func NewMetrics() *Metrics {
	return &Metrics{
		started:      time.Now(),
		requestCount: make(map[string]int64),
		errorCount:   make(map[string]int64),
		latencyTotal: make(map[string]time.Duration),
	}
}

// RecordRequest increments counters for requests.
func (m *Metrics) RecordRequest(path, method string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.requestCount[counterKey(path, method, strconv.Itoa(status))]++
	m.latencyTotal[path+"|"+method] += duration
}

// RecordError increments error counters.
func (m *Metrics) RecordError(path, method, code string) {
	if m == nil {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.errorCount[counterKey(path, method, code)]++
}

// Snapshot copies the counters in a stable order.
func (m *Metrics) Snapshot() Snapshot {
	if m == nil {
		return Snapshot{}
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	snap := Snapshot{
		UptimeSeconds: int64(time.Since(m.started).Seconds()),
		Requests:      toCounters(m.requestCount),
		Errors:        toCounters(m.errorCount),
	}

	perRoute := make(map[string]int64)
	for key, count := range m.requestCount {
		route, method, _ := splitKey(key)
		perRoute[route+"|"+method] += count
	}
	for key, total := range m.latencyTotal {
		n := perRoute[key]
		if n == 0 {
			continue
		}
		route, method, _ := strings.Cut(key, "|")
		snap.Latency = append(snap.Latency, RouteLatency{
			Route:  route,
			Method: method,
			MeanMs: float64(total) / float64(n) / float64(time.Millisecond),
		})
	}
	sort.Slice(snap.Latency, func(i, j int) bool {
		if snap.Latency[i].Route != snap.Latency[j].Route {
			return snap.Latency[i].Route < snap.Latency[j].Route
		}
		return snap.Latency[i].Method < snap.Latency[j].Method
	})
	return snap
}

func toCounters(counts map[string]int64) []Counter {
	out := make([]Counter, 0, len(counts))
	for key, count := range counts {
		route, method, label := splitKey(key)
		out = append(out, Counter{Route: route, Method: method, Label: label, Count: count})
	}
	sort.Slice(out, func(i, j int) bool {
		a, b := out[i], out[j]
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		if a.Method != b.Method {
			return a.Method < b.Method
		}
		return a.Label < b.Label
	})
	return out
}

func counterKey(path, method, label string) string {
	return path + "|" + method + "|" + label
}

func splitKey(key string) (path, method, label string) {
	parts := strings.SplitN(key, "|", 3)
	for len(parts) < 3 {
		parts = append(parts, "")
	}
	return parts[0], parts[1], parts[2]
}
