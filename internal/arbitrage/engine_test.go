package arbitrage

import (
	"io"
	"log/slog"
	"math"
	"math/rand"
	"sort"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"surebet/internal/model"
)

var fixedNow = time.Date(2024, 9, 1, 18, 30, 0, 0, time.UTC)

func newTestEngine(t *testing.T, cfg EngineConfig) *Engine {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	engine, err := NewEngine(logger, cfg)
	require.NoError(t, err)
	engine.now = func() time.Time { return fixedNow }
	return engine
}

func batch(source string, quotes ...float64) model.QuoteBatch {
	return model.QuoteBatch{Source: source, Quotes: quotes, ObservedAt: fixedNow}
}

func TestNewEngine_Validation(t *testing.T) {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	cases := map[string]EngineConfig{
		"zero threshold":   {AcceptanceThreshold: 0, TotalStake: 500, MaxResults: 20},
		"threshold of one": {AcceptanceThreshold: 1, TotalStake: 500, MaxResults: 20},
		"nan threshold":    {AcceptanceThreshold: math.NaN(), TotalStake: 500, MaxResults: 20},
		"negative stake":   {AcceptanceThreshold: 0.98, TotalStake: -1, MaxResults: 20},
		"no results":       {AcceptanceThreshold: 0.98, TotalStake: 500, MaxResults: 0},
	}
	for name, cfg := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := NewEngine(logger, cfg)
			assert.Error(t, err)
		})
	}

	_, err := NewEngine(logger, DefaultEngineConfig())
	assert.NoError(t, err)
}

func TestEngine_FindOpportunities(t *testing.T) {
	engine := newTestEngine(t, DefaultEngineConfig())

	t.Run("profitable pair", func(t *testing.T) {
		opps := engine.FindOpportunities([]model.QuoteBatch{batch("A", 2.10), batch("B", 2.05)})
		require.Len(t, opps, 1)

		opp := opps[0]
		assert.Equal(t, "A", opp.SourceA)
		assert.Equal(t, 2.10, opp.PriceA)
		assert.Equal(t, "B", opp.SourceB)
		assert.Equal(t, 2.05, opp.PriceB)
		assert.InDelta(t, 0.9640, opp.ImpliedProbability, 0.0001)
		assert.Equal(t, 3.60, opp.ROI)
		assert.Equal(t, 500.0, opp.TotalStake)
		assert.Equal(t, 247.0, opp.StakeA)
		assert.Equal(t, 253.0, opp.StakeB)
		assert.Equal(t, 271.70, opp.Profit)
		assert.Equal(t, "Match 1", opp.Event)
		assert.Equal(t, fixedNow, opp.DiscoveredAt)
	})

	t.Run("no opportunity", func(t *testing.T) {
		opps := engine.FindOpportunities([]model.QuoteBatch{batch("A", 1.50), batch("B", 1.50)})
		assert.Empty(t, opps)
	})

	t.Run("no sources", func(t *testing.T) {
		assert.Empty(t, engine.FindOpportunities(nil))
		assert.Empty(t, engine.FindOpportunities([]model.QuoteBatch{batch("A"), batch("B")}))
	})

	t.Run("single source", func(t *testing.T) {
		assert.Empty(t, engine.FindOpportunities([]model.QuoteBatch{batch("A", 3.5, 4.0, 10.0)}))
	})

	t.Run("failed source contributes nothing", func(t *testing.T) {
		failed := model.QuoteBatch{
			Source: "Down",
			Err:    model.NewCollectionError("Down", assert.AnError),
		}
		opps := engine.FindOpportunities([]model.QuoteBatch{batch("A", 2.10), failed, batch("B", 2.05)})
		require.Len(t, opps, 1)
		assert.Equal(t, "A", opps[0].SourceA)
		assert.Equal(t, "B", opps[0].SourceB)
	})

	t.Run("same source is never paired with itself", func(t *testing.T) {
		assert.Empty(t, engine.FindOpportunities([]model.QuoteBatch{batch("A", 3.0, 3.0)}))
	})

	t.Run("invalid prices skip only their comparison", func(t *testing.T) {
		opps := engine.FindOpportunities([]model.QuoteBatch{
			batch("A", 0, -2.1, math.NaN(), math.Inf(1), 2.10),
			batch("B", 2.05),
		})
		require.Len(t, opps, 1)
		assert.Equal(t, 2.10, opps[0].PriceA)
	})

	t.Run("threshold is exclusive", func(t *testing.T) {
		// 1/2.5 + 1/2.5 = 0.8
		strict := newTestEngine(t, EngineConfig{AcceptanceThreshold: 0.8, TotalStake: 500, MaxResults: 20})
		assert.Empty(t, strict.FindOpportunities([]model.QuoteBatch{batch("A", 2.5), batch("B", 2.5)}))
	})

	t.Run("equal roi keeps discovery order", func(t *testing.T) {
		opps := engine.FindOpportunities([]model.QuoteBatch{batch("A", 2.10), batch("B", 2.05), batch("C", 2.05)})
		require.Len(t, opps, 3)
		assert.Equal(t, [2]string{"A", "B"}, [2]string{opps[0].SourceA, opps[0].SourceB})
		assert.Equal(t, [2]string{"A", "C"}, [2]string{opps[1].SourceA, opps[1].SourceB})
		assert.Equal(t, [2]string{"B", "C"}, [2]string{opps[2].SourceA, opps[2].SourceB})
		assert.Equal(t, "Match 2", opps[2].Event)
	})

	t.Run("sorted and capped", func(t *testing.T) {
		var batches []model.QuoteBatch
		for _, name := range []string{"A", "B", "C", "D", "E"} {
			batches = append(batches, batch(name, 2.2, 2.4, 2.6, 2.8, 3.0))
		}
		opps := engine.FindOpportunities(batches)
		require.Len(t, opps, 20)
		assert.True(t, sort.SliceIsSorted(opps, func(a, b int) bool { return opps[a].ROI > opps[b].ROI }))
		// 3.0 vs 3.0 is the best available pair
		assert.Equal(t, 33.33, opps[0].ROI)
	})
}

func TestEngine_Properties(t *testing.T) {
	cfg := EngineConfig{AcceptanceThreshold: 0.98, TotalStake: 500, MaxResults: 1 << 20}
	engine := newTestEngine(t, cfg)
	rng := rand.New(rand.NewSource(42))

	randomQuote := func() float64 {
		q := model.MinQuote + 0.01 + rng.Float64()*(model.MaxQuote-model.MinQuote-0.02)
		return decimal.NewFromFloat(q).Round(2).InexactFloat64()
	}

	for n := 0; n < 2000; n++ {
		p1, p2 := randomQuote(), randomQuote()
		implied := 1/p1 + 1/p2
		opps := engine.FindOpportunities([]model.QuoteBatch{batch("A", p1), batch("B", p2)})

		if implied >= cfg.AcceptanceThreshold {
			require.Empty(t, opps, "p1=%v p2=%v implied=%v", p1, p2, implied)
			continue
		}
		require.Len(t, opps, 1, "p1=%v p2=%v implied=%v", p1, p2, implied)

		opp := opps[0]
		assert.Equal(t, cfg.TotalStake, opp.StakeA+opp.StakeB)
		assert.Equal(t, math.Trunc(opp.StakeA), opp.StakeA)
		assert.Greater(t, opp.ROI, 0.0)
		assert.Equal(t, round2((1-opp.ImpliedProbability)*100), opp.ROI)
		assert.Equal(t, round2(opp.StakeA*(p1-1)), opp.Profit)

		// Both legs pay out the same up to the whole-unit rounding of stakeA.
		tolerance := 0.5*(p1+p2) + 1e-9
		assert.InDelta(t, opp.StakeA*p1, opp.StakeB*p2, tolerance, "p1=%v p2=%v", p1, p2)
		assert.Greater(t, opp.StakeA*p1, cfg.TotalStake-tolerance)
	}
}

func TestEngine_CrossProduct(t *testing.T) {
	engine := newTestEngine(t, EngineConfig{AcceptanceThreshold: 0.98, TotalStake: 500, MaxResults: 100})

	// Every pairing in this set clears the threshold: 1/3 + 1/3 < 0.98.
	opps := engine.FindOpportunities([]model.QuoteBatch{
		batch("A", 3.0, 3.5),
		batch("B", 3.0, 4.0, 4.5),
		batch("C", 5.0),
	})
	// A×B = 6, A×C = 2, B×C = 3
	assert.Len(t, opps, 11)
}
