package middleware

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// ══════════════════════════════════════════════════════════════════════════════
// METRICS MIDDLEWARE
// Counts handled events, errors and latency per route. Exposed on /healthz.
// ══════════════════════════════════════════════════════════════════════════════

// MetricsMiddleware collects and exposes metrics.
type MetricsMiddleware struct {
	startedAt time.Time

	totalRequests  atomic.Int64
	totalErrors    atomic.Int64
	totalPanics    atomic.Int64
	activeRequests atomic.Int64

	routes sync.Map // map[string]*RouteMetrics
}

// RouteMetrics holds metrics for one route.
type RouteMetrics struct {
	TotalCount    atomic.Int64
	ErrorCount    atomic.Int64
	TotalDuration atomic.Int64 // nanoseconds
	MaxDuration   atomic.Int64 // nanoseconds
}

// NewMetricsMiddleware creates a new metrics middleware.
func NewMetricsMiddleware() *MetricsMiddleware {
	return &MetricsMiddleware{startedAt: time.Now()}
}

// RequestContext tracks one request.
type RequestContext struct {
	Route     string
	StartTime time.Time

	middleware *MetricsMiddleware
}

// Start begins tracking a new request.
func (m *MetricsMiddleware) Start(route string) *RequestContext {
	m.totalRequests.Add(1)
	m.activeRequests.Add(1)
	return &RequestContext{Route: route, StartTime: time.Now(), middleware: m}
}

// End completes tracking for a request.
func (rc *RequestContext) End(err error) {
	m := rc.middleware
	d := time.Since(rc.StartTime).Nanoseconds()

	m.activeRequests.Add(-1)

	rm := m.route(rc.Route)
	rm.TotalCount.Add(1)
	rm.TotalDuration.Add(d)
	if err != nil {
		rm.ErrorCount.Add(1)
		m.totalErrors.Add(1)
	}

	for {
		cur := rm.MaxDuration.Load()
		if cur >= d || rm.MaxDuration.CompareAndSwap(cur, d) {
			break
		}
	}
}

// RecordPanic counts a recovered panic.
func (m *MetricsMiddleware) RecordPanic() {
	m.totalPanics.Add(1)
}

func (m *MetricsMiddleware) route(name string) *RouteMetrics {
	if v, ok := m.routes.Load(name); ok {
		return v.(*RouteMetrics)
	}
	v, _ := m.routes.LoadOrStore(name, &RouteMetrics{})
	return v.(*RouteMetrics)
}

// MetricsSnapshot is a point-in-time view of the metrics.
type MetricsSnapshot struct {
	Uptime         string          `json:"uptime"`
	TotalRequests  int64           `json:"total_requests"`
	TotalErrors    int64           `json:"total_errors"`
	TotalPanics    int64           `json:"total_panics"`
	ActiveRequests int64           `json:"active_requests"`
	Routes         []RouteSnapshot `json:"routes"`
}

// RouteSnapshot is a point-in-time view of one route.
type RouteSnapshot struct {
	Route        string  `json:"route"`
	Count        int64   `json:"count"`
	Errors       int64   `json:"errors"`
	AvgLatencyMs float64 `json:"avg_latency_ms"`
	MaxLatencyMs float64 `json:"max_latency_ms"`
}

// Snapshot returns the current metrics, routes sorted by name.
func (m *MetricsMiddleware) Snapshot() *MetricsSnapshot {
	s := &MetricsSnapshot{
		Uptime:         time.Since(m.startedAt).Round(time.Second).String(),
		TotalRequests:  m.totalRequests.Load(),
		TotalErrors:    m.totalErrors.Load(),
		TotalPanics:    m.totalPanics.Load(),
		ActiveRequests: m.activeRequests.Load(),
	}

	m.routes.Range(func(key, value any) bool {
		rm := value.(*RouteMetrics)
		rs := RouteSnapshot{
			Route:        key.(string),
			Count:        rm.TotalCount.Load(),
			Errors:       rm.ErrorCount.Load(),
			MaxLatencyMs: float64(rm.MaxDuration.Load()) / float64(time.Millisecond),
		}
		if rs.Count > 0 {
			rs.AvgLatencyMs = float64(rm.TotalDuration.Load()) / float64(rs.Count) / float64(time.Millisecond)
		}
		s.Routes = append(s.Routes, rs)
		return true
	})
	slices.SortFunc(s.Routes, func(a, b RouteSnapshot) int {
		return cmp.Compare(a.Route, b.Route)
	})

	return s
}
