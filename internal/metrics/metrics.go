package metrics

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/push"
	"surebet/internal/config"
	"surebet/internal/model"
)

const promNamespace = "surebet"

// Recorder collects the metrics of scan runs on a private registry.
type Recorder struct {
	registry *prometheus.Registry
	cfg      config.MetricsConfig

	sourceScrapes *prometheus.CounterVec
	sinkFailures  *prometheus.CounterVec
	opportunities prometheus.Gauge
	bestROI       prometheus.Gauge
	scanDuration  prometheus.Histogram
}

func NewRecorder(cfg config.MetricsConfig) *Recorder {
	registry := prometheus.NewRegistry()
	sourceScrapes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "source_scrapes_total",
		Help:      "Total number of source collections by outcome.",
	}, []string{"status"})
	sinkFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: promNamespace,
		Name:      "sink_failures_total",
		Help:      "Total number of failed writes per sink.",
	}, []string{"sink"})
	opportunities := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "opportunities_found",
		Help:      "Number of opportunities found by the last scan.",
	})
	bestROI := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: promNamespace,
		Name:      "best_roi_percent",
		Help:      "Highest ROI found by the last scan, in percent.",
	})
	scanDuration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: promNamespace,
		Name:      "scan_duration_seconds",
		Help:      "Wall time of a full scan run.",
		Buckets:   []float64{1, 2.5, 5, 10, 20, 30, 60, 120},
	})

	registry.MustRegister(sourceScrapes, sinkFailures, opportunities, bestROI, scanDuration)

	return &Recorder{
		registry:      registry,
		cfg:           cfg,
		sourceScrapes: sourceScrapes,
		sinkFailures:  sinkFailures,
		opportunities: opportunities,
		bestROI:       bestROI,
		scanDuration:  scanDuration,
	}
}

// Registry exposes the underlying registry for gathering.
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// SourceCollected counts one collection as "ok" or "failed".
func (r *Recorder) SourceCollected(batch model.QuoteBatch) {
	status := "ok"
	if !batch.OK() {
		status = "failed"
	}
	r.sourceScrapes.WithLabelValues(status).Inc()
}

func (r *Recorder) SinkFailed(sink string) {
	r.sinkFailures.WithLabelValues(sink).Inc()
}

// ScanFinished records the outcome gauges and the run duration.
func (r *Recorder) ScanFinished(report model.ScanReport) {
	r.opportunities.Set(float64(len(report.Opportunities)))
	r.bestROI.Set(report.BestROI())
	if !report.FinishedAt.IsZero() {
		r.scanDuration.Observe(report.FinishedAt.Sub(report.StartedAt).Seconds())
	}
}

// Push sends the registry to the configured Pushgateway. Without a URL it does nothing.
func (r *Recorder) Push(ctx context.Context) error {
	if r.cfg.PushgatewayURL == "" {
		return nil
	}
	job := r.cfg.Job
	if job == "" {
		job = promNamespace
	}

	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := push.New(r.cfg.PushgatewayURL, job).Gatherer(r.registry).PushContext(ctx); err != nil {
		return fmt.Errorf("metrics: push to %s: %w", r.cfg.PushgatewayURL, err)
	}
	return nil
}
