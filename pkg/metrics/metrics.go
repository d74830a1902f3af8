package metrics

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

const (
	namespace = "colony"
	subsystem = "allocator"
)

// EngineCollector records allocation engine and pass metrics.
// It implements engine.Recorder.
type EngineCollector struct {
	tasksTotal        *prometheus.CounterVec
	taskDuration      *prometheus.HistogramVec
	fallbacksTotal    *prometheus.CounterVec
	commitsTotal      prometheus.Counter
	committedProfiles prometheus.Counter
	workerShortage    *prometheus.GaugeVec
	energyShortage    *prometheus.GaugeVec
}

// NewEngineCollector creates the collector; call Register before serving it
func NewEngineCollector() *EngineCollector {
	return &EngineCollector{
		tasksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "tasks_total",
				Help:      "Allocation tasks computed, by strategy and result",
			},
			[]string{"strategy", "result"},
		),

		taskDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "task_duration_seconds",
				Help:      "Time spent running a strategy on one group",
				Buckets:   []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1.0},
			},
			[]string{"strategy"},
		),

		fallbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "fallbacks_total",
				Help:      "Groups recomputed with uniform_damage_aware after a conservation violation",
			},
			[]string{"strategy"},
		),

		commitsTotal: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "commits_total",
				Help:      "Group write-backs applied",
			},
		),

		committedProfiles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "committed_profiles_total",
				Help:      "Building allocations written back",
			},
		),

		workerShortage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "worker_shortage",
				Help:      "Demanded workers left unallocated in the latest pass",
			},
			[]string{"planet"},
		),

		energyShortage: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "energy_shortage",
				Help:      "Demanded energy left unallocated in the latest pass",
			},
			[]string{"planet"},
		),
	}
}

// Register registers every metric with reg
func (c *EngineCollector) Register(reg prometheus.Registerer) error {
	collectors := []prometheus.Collector{
		c.tasksTotal,
		c.taskDuration,
		c.fallbacksTotal,
		c.commitsTotal,
		c.committedProfiles,
		c.workerShortage,
		c.energyShortage,
	}

	for _, collector := range collectors {
		if err := reg.Register(collector); err != nil {
			return err
		}
	}

	return nil
}

// ObserveTask records one strategy run
func (c *EngineCollector) ObserveTask(strategy string, duration time.Duration, fellBack bool, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}

	c.tasksTotal.WithLabelValues(strategy, result).Inc()
	c.taskDuration.WithLabelValues(strategy).Observe(duration.Seconds())
	if fellBack {
		c.fallbacksTotal.WithLabelValues(strategy).Inc()
	}
}

// ObserveCommit records one write-back
func (c *EngineCollector) ObserveCommit(profiles int) {
	c.commitsTotal.Inc()
	c.committedProfiles.Add(float64(profiles))
}

// ObserveShortage records a planet's shortages after a pass
func (c *EngineCollector) ObserveShortage(planetID string, workers, energy int) {
	c.workerShortage.WithLabelValues(planetID).Set(float64(workers))
	c.energyShortage.WithLabelValues(planetID).Set(float64(energy))
}

// Handler exposes reg in the Prometheus text format
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

// Serve serves /metrics on addr until ctx is cancelled
func Serve(ctx context.Context, addr string, reg *prometheus.Registry, logger *zap.Logger) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", Handler(reg))

	server := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Warn("Metrics server shutdown failed", zap.Error(err))
		}
	}()

	logger.Info("Serving metrics", zap.String("addr", addr))
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
