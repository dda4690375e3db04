package collector

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"surebet/internal/model"
)

// Collector defines the standard interface for all quote sources.
// Collect never returns an error past its boundary: failures are carried
// in the batch as a collection error with no quotes.
type Collector interface {
	Kind() model.SourceKind
	Collect(ctx context.Context, src model.Source) model.QuoteBatch
}

// Guard wraps c so that a panic inside Collect becomes a failed batch.
func Guard(logger *slog.Logger, c Collector) Collector {
	return guarded{logger: logger, next: c}
}

type guarded struct {
	logger *slog.Logger
	next   Collector
}

func (g guarded) Kind() model.SourceKind {
	return g.next.Kind()
}

func (g guarded) Collect(ctx context.Context, src model.Source) (batch model.QuoteBatch) {
	defer func() {
		if r := recover(); r != nil {
			g.logger.Error("Collector: recovered panic", "source", src.Name, "panic", r)
			batch = failed(src, fmt.Errorf("panic: %v", r))
		}
	}()
	return g.next.Collect(ctx, src)
}

func failed(src model.Source, err error) model.QuoteBatch {
	return model.QuoteBatch{
		Source:     src.Name,
		Quotes:     []float64{},
		ObservedAt: time.Now().UTC(),
		Err:        model.NewCollectionError(src.Name, err),
	}
}

func succeeded(src model.Source, quotes []float64) model.QuoteBatch {
	if quotes == nil {
		quotes = []float64{}
	}
	return model.QuoteBatch{
		Source:     src.Name,
		Quotes:     quotes,
		ObservedAt: time.Now().UTC(),
	}
}
