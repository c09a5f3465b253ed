package controller

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"
)

// Metrics exports the latest telemetry and event counts for scraping
type Metrics struct {
	registry *prometheus.Registry

	force    prometheus.Gauge
	steps    prometheus.Gauge
	runState prometheus.Gauge
	events   *prometheus.CounterVec
	samples  prometheus.Counter
}

// NewMetrics creates the collectors on a private registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		force: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tensile",
			Name:      "force_newtons",
			Help:      "Last reported tared force",
		}),
		steps: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tensile",
			Name:      "steps",
			Help:      "Signed step count of the current run",
		}),
		runState: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "tensile",
			Name:      "run_state",
			Help:      "Last reported state ordinal (0 idle, 1 running, 2 stopped, 3 error, 4 jog)",
		}),
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "tensile",
			Name:      "events_total",
			Help:      "Events received from the instrument",
		}, []string{"name"}),
		samples: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "tensile",
			Name:      "samples_total",
			Help:      "Telemetry records received",
		}),
	}
	m.registry.MustRegister(m.force, m.steps, m.runState, m.events, m.samples)
	return m
}

// Observe updates the collectors from a record
func (m *Metrics) Observe(r Record) {
	switch r := r.(type) {
	case DataRecord:
		m.force.Set(r.ForceN())
		m.steps.Set(float64(r.Steps))
		m.samples.Inc()
	case StatusRecord:
		m.runState.Set(float64(r.State))
	case EventRecord:
		m.events.WithLabelValues(r.Name).Inc()
	}
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Serve exposes /metrics on addr until ctx is done
func (m *Metrics) Serve(ctx context.Context, addr string) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", m.Handler())

	server := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}
	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	log.Infof("serving metrics on %s", addr)
	err := server.ListenAndServe()
	if err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("error serving metrics: %w", err)
	}
	return nil
}
