package scanner

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"surebet/internal/arbitrage"
	"surebet/internal/collector"
	"surebet/internal/config"
	"surebet/internal/database"
	"surebet/internal/model"
)

// Sink names used for the repository writes.
const (
	ObservationsSink  = "observations"
	OpportunitiesSink = "opportunities"
)

// Sink receives the report of every completed run, after the summary is printed.
type Sink interface {
	Name() string
	Publish(ctx context.Context, report model.ScanReport) error
}

// Recorder is the metrics surface the scanner reports to.
type Recorder interface {
	SourceCollected(batch model.QuoteBatch)
	SinkFailed(sink string)
	ScanFinished(report model.ScanReport)
	Push(ctx context.Context) error
}

// Scanner runs one collect, find and persist cycle per call to Run.
type Scanner struct {
	logger    *slog.Logger
	cfg       config.ScanConfig
	sources   []model.Source
	collector collector.Collector
	engine    *arbitrage.Engine
	repo      database.Repository
	sinks     []Sink
	metrics   Recorder
	out       io.Writer

	sleep    func(ctx context.Context, d time.Duration) error
	now      func() time.Time
	newRunID func() string
}

type Option func(*Scanner)

// WithSinks appends auxiliary sinks, published in order after the repository writes.
func WithSinks(sinks ...Sink) Option {
	return func(s *Scanner) { s.sinks = append(s.sinks, sinks...) }
}

func WithMetrics(r Recorder) Option {
	return func(s *Scanner) { s.metrics = r }
}

// WithOutput redirects the run summary, stdout by default.
func WithOutput(w io.Writer) Option {
	return func(s *Scanner) { s.out = w }
}

// New creates a Scanner. repo may be nil to skip database writes.
func New(logger *slog.Logger, cfg config.ScanConfig, sources []model.Source, c collector.Collector, engine *arbitrage.Engine, repo database.Repository, opts ...Option) *Scanner {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 3
	}
	if cfg.SummaryTop <= 0 {
		cfg.SummaryTop = 5
	}
	s := &Scanner{
		logger:    logger,
		cfg:       cfg,
		sources:   sources,
		collector: collector.Guard(logger, c),
		engine:    engine,
		repo:      repo,
		metrics:   noopRecorder{},
		out:       os.Stdout,
		sleep:     sleepContext,
		now:       time.Now,
		newRunID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run performs one scan. Source and sink failures are reported in the Summary;
// the returned error is always fatal and means no results were computed.
func (s *Scanner) Run(ctx context.Context) (Summary, error) {
	report := model.ScanReport{RunID: s.newRunID(), StartedAt: s.now().UTC()}
	logger := s.logger.With("run_id", report.RunID)
	logger.Info("Scanner: starting scan", "sources", len(s.sources), "batch_size", s.cfg.BatchSize)

	batches, err := s.collect(ctx, logger)
	if err != nil {
		return Summary{}, model.NewFatalError(fmt.Errorf("scan interrupted: %w", err))
	}
	report.Batches = batches

	valid := validBatches(batches)
	report.Opportunities = s.engine.FindOpportunities(valid)
	report.FinishedAt = s.now().UTC()

	summary := newSummary(report)
	if err := summary.Write(s.out, s.cfg.SummaryTop); err != nil {
		logger.Warn("Scanner: failed to write summary", "error", err)
	}

	summary.PersistenceFailures = s.persist(ctx, logger, report, valid)

	s.metrics.ScanFinished(report)
	if err := s.metrics.Push(ctx); err != nil {
		logger.Warn("Scanner: failed to push metrics", "error", err)
	}

	logger.Info("Scanner: scan complete",
		"sources_ok", summary.SourcesOK,
		"sources_total", summary.SourcesTotal,
		"opportunities", len(report.Opportunities),
		"best_roi", report.BestROI(),
		"persistence_failures", len(summary.PersistenceFailures),
		"duration", report.FinishedAt.Sub(report.StartedAt))
	return summary, nil
}

// collect runs the sources in groups of BatchSize, concurrently within a group,
// with BatchDelay between groups. Results keep source order.
func (s *Scanner) collect(ctx context.Context, logger *slog.Logger) ([]model.QuoteBatch, error) {
	batches := make([]model.QuoteBatch, len(s.sources))

	for start := 0; start < len(s.sources); start += s.cfg.BatchSize {
		if start > 0 {
			logger.Debug("Scanner: pausing between groups", "delay", s.cfg.BatchDelay)
			if err := s.sleep(ctx, s.cfg.BatchDelay); err != nil {
				return nil, err
			}
		}

		end := min(start+s.cfg.BatchSize, len(s.sources))
		var g errgroup.Group
		for i := start; i < end; i++ {
			i := i
			g.Go(func() error {
				batches[i] = s.collector.Collect(ctx, s.sources[i])
				return nil
			})
		}
		_ = g.Wait()

		if err := ctx.Err(); err != nil {
			return nil, err
		}

		for _, b := range batches[start:end] {
			s.metrics.SourceCollected(b)
			if b.Err != nil {
				logger.Warn("Scanner: source failed", "source", b.Source, "error", b.Err.Detail())
				continue
			}
			logger.Info("Scanner: source collected", "source", b.Source, "quotes", len(b.Quotes))
		}
	}
	return batches, nil
}

// persist runs every sink independently. A failing sink never stops the others.
func (s *Scanner) persist(ctx context.Context, logger *slog.Logger, report model.ScanReport, valid []model.QuoteBatch) []*model.ScanError {
	var failures []*model.ScanError
	record := func(sink string, err error) {
		if err == nil {
			return
		}
		failure := model.NewPersistenceError(sink, err)
		logger.Error("Scanner: persistence failure", "sink", sink, "error", err)
		s.metrics.SinkFailed(sink)
		failures = append(failures, failure)
	}

	if s.repo != nil {
		record(ObservationsSink, s.repo.RecordObservations(ctx, valid))
		record(OpportunitiesSink, s.repo.RecordOpportunities(ctx, report.Opportunities))
	}
	for _, sink := range s.sinks {
		record(sink.Name(), sink.Publish(ctx, report))
	}
	return failures
}

func validBatches(batches []model.QuoteBatch) []model.QuoteBatch {
	valid := make([]model.QuoteBatch, 0, len(batches))
	for _, b := range batches {
		if b.OK() {
			valid = append(valid, b)
		}
	}
	return valid
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type noopRecorder struct{}

func (noopRecorder) SourceCollected(model.QuoteBatch) {}
func (noopRecorder) SinkFailed(string) {}
func (noopRecorder) ScanFinished(model.ScanReport) {}
func (noopRecorder) Push(context.Context) error { return nil }
