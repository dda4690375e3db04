package arbitrage

import (
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"
	"surebet/internal/config"
	"surebet/internal/model"
)

// EngineConfig holds the acceptance and sizing parameters for a scan.
type EngineConfig struct {
	AcceptanceThreshold float64
	TotalStake          float64
	MaxResults          int
}

// DefaultEngineConfig returns the standard 2% margin, 500 stake, top-20 setup.
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{AcceptanceThreshold: 0.98, TotalStake: 500, MaxResults: 20}
}

// EngineConfigFrom extracts the engine parameters from the application config.
func EngineConfigFrom(cfg config.ArbitrageConfig) EngineConfig {
	return EngineConfig{
		AcceptanceThreshold: cfg.AcceptanceThreshold,
		TotalStake:          cfg.TotalStake,
		MaxResults:          cfg.MaxResults,
	}
}

func (c EngineConfig) validate() error {
	if !(c.AcceptanceThreshold > 0 && c.AcceptanceThreshold < 1) {
		return fmt.Errorf("acceptance threshold must be in (0,1), got %v", c.AcceptanceThreshold)
	}
	if !(c.TotalStake > 0) || math.IsInf(c.TotalStake, 0) {
		return fmt.Errorf("total stake must be positive, got %v", c.TotalStake)
	}
	if c.MaxResults <= 0 {
		return fmt.Errorf("max results must be positive, got %d", c.MaxResults)
	}
	return nil
}

// Engine finds two-leg surebets across quote batches. It holds no state between calls.
type Engine struct {
	logger *slog.Logger
	cfg    EngineConfig
	now    func() time.Time
}

// NewEngine creates a new Engine after validating cfg.
func NewEngine(logger *slog.Logger, cfg EngineConfig) (*Engine, error) {
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("arbitrage: %w", err)
	}
	return &Engine{logger: logger, cfg: cfg, now: time.Now}, nil
}

// FindOpportunities pairs every quote of source i with every quote of source j (i < j)
// and returns the accepted pairs sorted by descending ROI, capped at MaxResults.
// Quotes carry no event identity, so unrelated matches are paired too.
func (e *Engine) FindOpportunities(batches []model.QuoteBatch) []model.Opportunity {
	discoveredAt := e.now()
	var opportunities []model.Opportunity
	compared := 0

	for i := 0; i < len(batches); i++ {
		if len(batches[i].Quotes) == 0 {
			continue
		}
		for j := i + 1; j < len(batches); j++ {
			if len(batches[j].Quotes) == 0 {
				continue
			}
			for _, p1 := range batches[i].Quotes {
				for _, p2 := range batches[j].Quotes {
					compared++
					opp, ok := e.evaluate(p1, p2)
					if !ok {
						continue
					}
					opp.Event = fmt.Sprintf("Match %d", i+1)
					opp.SourceA = batches[i].Source
					opp.SourceB = batches[j].Source
					opp.DiscoveredAt = discoveredAt
					opportunities = append(opportunities, opp)
				}
			}
		}
	}

	sort.SliceStable(opportunities, func(a, b int) bool {
		return opportunities[a].ROI > opportunities[b].ROI
	})

	accepted := len(opportunities)
	if accepted > e.cfg.MaxResults {
		opportunities = opportunities[:e.cfg.MaxResults]
	}

	e.logger.Debug("Engine: scan evaluated",
		"batches", len(batches),
		"comparisons", compared,
		"accepted", accepted,
		"returned", len(opportunities),
	)
	return opportunities
}

// evaluate applies the acceptance test and stake sizing to a single price pair.
func (e *Engine) evaluate(p1, p2 float64) (model.Opportunity, bool) {
	if !validPrice(p1) || !validPrice(p2) {
		return model.Opportunity{}, false
	}

	implied := 1/p1 + 1/p2
	if implied >= e.cfg.AcceptanceThreshold {
		return model.Opportunity{}, false
	}

	total := e.cfg.TotalStake
	// stakeA is rounded to a whole unit.
	stakeA := math.Round(total / p1 / implied)
	stakeB := total - stakeA

	return model.Opportunity{
		PriceA:             p1,
		PriceB:             p2,
		ImpliedProbability: implied,
		ROI:                round2((1 - implied) * 100),
		TotalStake:         total,
		StakeA:             stakeA,
		StakeB:             stakeB,
		Profit:             round2(stakeA * (p1 - 1)),
	}, true
}

func validPrice(p float64) bool {
	return p > 0 && !math.IsNaN(p) && !math.IsInf(p, 0)
}

func round2(v float64) float64 {
	return decimal.NewFromFloat(v).Round(2).InexactFloat64()
}
