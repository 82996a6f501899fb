package metrics

import (
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"concert-manager/middleware"

	"github.com/jmoiron/sqlx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the HTTP collectors. Build it with New so each registry gets
// its own set.
type Metrics struct {
	requests *prometheus.CounterVec
	duration *prometheus.HistogramVec
	registry *prometheus.Registry
}

func New() *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "eventbands_http_requests_total",
			Help: "HTTP requests served, by route template, method and status code",
		}, []string{"route", "method", "code"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "eventbands_http_request_duration_seconds",
			Help:    "HTTP request latency in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"route", "method"}),
		registry: prometheus.NewRegistry(),
	}
	m.registry.MustRegister(
		m.requests,
		m.duration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// RegisterDBStats exports the connection pool's sql.DBStats.
func (m *Metrics) RegisterDBStats(db *sqlx.DB) {
	openConns := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "eventbands_db_open_connections",
		Help: "Open connections in the database pool",
	}, func() float64 { return float64(db.Stats().OpenConnections) })
	inUse := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "eventbands_db_in_use_connections",
		Help: "Connections currently held by a request",
	}, func() float64 { return float64(db.Stats().InUse) })
	waits := prometheus.NewCounterFunc(prometheus.CounterOpts{
		Name: "eventbands_db_wait_total",
		Help: "Times a request had to wait for a free connection",
	}, func() float64 { return float64(db.Stats().WaitCount) })

	for _, c := range []prometheus.Collector{openConns, inUse, waits} {
		if err := m.registry.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				slog.Error("can't register database metric", "error", err)
			}
		}
	}
}

// Instrument counts and times every request by its mux route template.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := middleware.NewStatusRecorder(w)
		next.ServeHTTP(rec, r)

		route := middleware.RouteTemplate(r)
		m.requests.WithLabelValues(route, r.Method, strconv.Itoa(rec.Status)).Inc()
		m.duration.WithLabelValues(route, r.Method).Observe(time.Since(start).Seconds())
	})
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
