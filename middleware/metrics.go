package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds the HTTP and workflow collectors of the server.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec

	Signups     prometheus.Counter
	Logins      *prometheus.CounterVec
	Denials     prometheus.Counter
	MenuChanges *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menu",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Number of HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "menu",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		Signups: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "menu",
			Name:      "signups_total",
			Help:      "Number of accounts created through signup.",
		}),
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menu",
			Name:      "logins_total",
			Help:      "Login attempts by result.",
		}, []string{"result"}),
		Denials: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "menu",
			Name:      "authorization_denials_total",
			Help:      "Food item operations refused because the caller does not own the item.",
		}),
		MenuChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "menu",
			Name:      "food_item_changes_total",
			Help:      "Food item mutations by operation.",
		}, []string{"op"}),
	}
	reg.MustRegister(m.requests, m.duration, m.Signups, m.Logins, m.Denials, m.MenuChanges)
	return m
}

// Handler records request count and latency, labelled by route pattern.
func (m *Metrics) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		m.requests.WithLabelValues(c.Request.Method, route, strconv.Itoa(c.Writer.Status())).Inc()
		m.duration.WithLabelValues(c.Request.Method, route).Observe(time.Since(start).Seconds())
	}
}
