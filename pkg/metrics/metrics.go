package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// 课次事件标签
const (
	EventCheckIn = "check_in"
	EventUndo    = "undo"
	EventRecord  = "record_at_date"
	EventRenew   = "renew"
)

var (
	HTTPRequests = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gimpogugak", Name: "http_requests_total", Help: "HTTP requests by route and status",
	}, []string{"method", "route", "status"})
	HTTPDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "gimpogugak", Name: "http_request_duration_seconds", Help: "HTTP request latency",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})
	SessionEvents = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "gimpogugak", Name: "lesson_session_events_total", Help: "Lesson session tracker mutations",
	}, []string{"event"})
	LockConflicts = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "gimpogugak", Name: "lesson_lock_conflicts_total", Help: "Lesson updates rejected by version check",
	})
	StatusSubscribers = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "gimpogugak", Name: "status_ws_subscribers", Help: "Open approval status websocket connections",
	})
)

func init() {
	prometheus.MustRegister(HTTPRequests, HTTPDuration, SessionEvents, LockConflicts, StatusSubscribers)
}

func Handler() http.Handler { return promhttp.Handler() }

func ObserveRequest(method, route, status string, d time.Duration) {
	HTTPRequests.WithLabelValues(method, route, status).Inc()
	HTTPDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

func IncSessionEvent(event string) { SessionEvents.WithLabelValues(event).Inc() }

func IncLockConflict() { LockConflicts.Inc() }
