package collector

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"

	"github.com/gorilla/websocket"
	"surebet/internal/config"
	"surebet/internal/model"
)

// StreamCollector reads quotes from a websocket feed. The source selector names
// the JSON key carrying the price in each frame.
type StreamCollector struct {
	logger *slog.Logger
	cfg    config.CollectorConfig
	dialer *websocket.Dialer
}

// NewStreamCollector creates a new StreamCollector.
func NewStreamCollector(logger *slog.Logger, cfg config.CollectorConfig) *StreamCollector {
	return &StreamCollector{
		logger: logger,
		cfg:    cfg,
		dialer: &websocket.Dialer{
			Proxy:            http.ProxyFromEnvironment,
			HandshakeTimeout: cfg.Timeout,
		},
	}
}

func (s *StreamCollector) Kind() model.SourceKind {
	return model.SourceKindStream
}

// Collect connects to src.URL, sends the optional subscription frame, and reads
// frames until MaxElements candidates arrived or the timeout fires. Quotes read
// before the timeout are kept.
func (s *StreamCollector) Collect(ctx context.Context, src model.Source) model.QuoteBatch {
	s.logger.Info("StreamCollector: connecting to WebSocket", "source", src.Name, "url", src.URL)

	if s.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.cfg.Timeout)
		defer cancel()
	}

	quotes, err := s.read(ctx, src)
	if err != nil {
		s.logger.Error("StreamCollector: collection failed", "source", src.Name, "error", err)
		return failed(src, err)
	}

	s.logger.Info("StreamCollector: quotes found", "source", src.Name, "count", len(quotes))
	return succeeded(src, quotes)
}

func (s *StreamCollector) read(ctx context.Context, src model.Source) ([]float64, error) {
	header := http.Header{}
	if s.cfg.UserAgent != "" {
		header.Set("User-Agent", s.cfg.UserAgent)
	}

	c, _, err := s.dialer.DialContext(ctx, src.URL, header)
	if err != nil {
		return nil, fmt.Errorf("WebSocket connection failed: %w", err)
	}
	defer c.Close()

	// Unblock ReadMessage when the context ends.
	stop := context.AfterFunc(ctx, func() { _ = c.Close() })
	defer stop()

	if deadline, ok := ctx.Deadline(); ok {
		_ = c.SetReadDeadline(deadline)
	}

	if src.Subscribe != "" {
		if err := c.WriteMessage(websocket.TextMessage, []byte(src.Subscribe)); err != nil {
			return nil, fmt.Errorf("failed to send subscription: %w", err)
		}
		s.logger.Debug("StreamCollector: subscription sent", "source", src.Name)
	}

	limit := s.cfg.MaxElements
	if limit <= 0 {
		limit = 10
	}

	var candidates []float64
	for len(candidates) < limit {
		_, message, err := c.ReadMessage()
		if err != nil {
			if len(candidates) > 0 && (ctx.Err() != nil || isTimeout(err)) {
				break
			}
			if ctx.Err() != nil {
				return nil, fmt.Errorf("no quotes before deadline: %w", ctx.Err())
			}
			return nil, fmt.Errorf("failed to read message: %w", err)
		}

		var frame any
		if err := json.Unmarshal(message, &frame); err != nil {
			s.logger.Warn("StreamCollector: failed to parse message", "source", src.Name, "error", err)
			continue
		}
		candidates = append(candidates, jsonCandidates(frame, src.Selector)...)
	}

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}
	return filterQuotes(candidates), nil
}

func isTimeout(err error) bool {
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}
