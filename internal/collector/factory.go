package collector

import (
	"context"
	"fmt"
	"log/slog"

	"surebet/internal/config"
	"surebet/internal/model"
)

// NewCollector creates a collector for the given source kind.
func NewCollector(kind model.SourceKind, logger *slog.Logger, cfg config.CollectorConfig) (Collector, error) {
	switch kind {
	case model.SourceKindPage, "":
		return NewPageCollector(logger, cfg), nil
	case model.SourceKindStream:
		return NewStreamCollector(logger, cfg), nil
	default:
		return nil, fmt.Errorf("unknown source kind: %s", kind)
	}
}

// Dispatcher routes each source to the collector for its kind.
type Dispatcher struct {
	logger *slog.Logger
	byKind map[model.SourceKind]Collector
}

// NewDispatcher builds one guarded collector per supported kind.
func NewDispatcher(logger *slog.Logger, cfg config.CollectorConfig) *Dispatcher {
	d := &Dispatcher{logger: logger, byKind: make(map[model.SourceKind]Collector)}
	for _, kind := range []model.SourceKind{model.SourceKindPage, model.SourceKindStream} {
		c, err := NewCollector(kind, logger, cfg)
		if err != nil {
			continue
		}
		d.Register(c)
	}
	return d
}

// Register adds or replaces the collector for c.Kind().
func (d *Dispatcher) Register(c Collector) {
	d.byKind[c.Kind()] = Guard(d.logger, c)
}

func (d *Dispatcher) Kind() model.SourceKind {
	return ""
}

func (d *Dispatcher) Collect(ctx context.Context, src model.Source) model.QuoteBatch {
	kind := src.Kind
	if kind == "" {
		kind = model.SourceKindPage
	}
	c, ok := d.byKind[kind]
	if !ok {
		return failed(src, fmt.Errorf("unknown source kind: %s", src.Kind))
	}
	return c.Collect(ctx, src)
}
