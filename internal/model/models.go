package model

import "time"

// Quote bounds applied by collectors. Values outside (MinQuote, MaxQuote) are not prices.
const (
	MinQuote = 1.01
	MaxQuote = 50.0
)

// SourceKind selects how a source is collected.
type SourceKind string

const (
	SourceKindPage   SourceKind = "page"
	SourceKindStream SourceKind = "stream"
)

// Source describes a single bookmaker feed.
type Source struct {
	Name      string     `mapstructure:"name" json:"name"`
	URL       string     `mapstructure:"url" json:"url"`
	Selector  string     `mapstructure:"selector" json:"selector"`
	Kind      SourceKind `mapstructure:"kind" json:"kind,omitempty"`
	Subscribe string     `mapstructure:"subscribe" json:"subscribe,omitempty"`
}

// QuoteBatch holds the quotes collected from one source in one run.
type QuoteBatch struct {
	Source     string     `json:"source"`
	Quotes     []float64  `json:"quotes"`
	ObservedAt time.Time  `json:"observed_at"`
	Err        *ScanError `json:"error,omitempty"`
}

// OK reports whether the batch can take part in pairing.
func (b QuoteBatch) OK() bool {
	return b.Err == nil && len(b.Quotes) > 0
}

// ValidQuote reports whether q lies strictly inside the plausible price range.
func ValidQuote(q float64) bool {
	return q > MinQuote && q < MaxQuote
}

// Opportunity is a two-leg hedge across distinct sources whose implied
// probabilities sum below the acceptance threshold.
type Opportunity struct {
	Event              string    `json:"event"`
	SourceA            string    `json:"source_a"`
	PriceA             float64   `json:"price_a"`
	SourceB            string    `json:"source_b"`
	PriceB             float64   `json:"price_b"`
	ImpliedProbability float64   `json:"implied_probability"`
	ROI                float64   `json:"roi"`
	TotalStake         float64   `json:"total_stake"`
	StakeA             float64   `json:"stake_a"`
	StakeB             float64   `json:"stake_b"`
	Profit             float64   `json:"profit"`
	DiscoveredAt       time.Time `json:"discovered_at"`
}

// ObservationRow is the persisted shape of a quote batch.
type ObservationRow struct {
	Bookie    string    `json:"bookie" db:"bookie"`
	Event     string    `json:"evento" db:"evento"`
	Sport     string    `json:"sport" db:"sport"`
	Market    string    `json:"mercato" db:"mercato"`
	Quote1    *float64  `json:"quota_1" db:"quota_1"`
	QuoteX    *float64  `json:"quota_x" db:"quota_x"`
	Quote2    *float64  `json:"quota_2" db:"quota_2"`
	Timestamp time.Time `json:"timestamp" db:"timestamp"`
}

// OpportunityRow is the persisted shape of an opportunity.
type OpportunityRow struct {
	Market     string    `json:"market" db:"market"`
	Sport      string    `json:"sport" db:"sport"`
	Event      string    `json:"evento" db:"evento"`
	Bookie1    string    `json:"bookie1" db:"bookie1"`
	Quote1     float64   `json:"quote1" db:"quote1"`
	Bookie2    string    `json:"bookie2" db:"bookie2"`
	Quote2     float64   `json:"quote2" db:"quote2"`
	Implied    float64   `json:"inversa" db:"inversa"`
	ROI        float64   `json:"roi" db:"roi"`
	Profit     float64   `json:"profit" db:"profit"`
	TotalStake float64   `json:"stake_totale" db:"stake_totale"`
	Stake1     float64   `json:"stake1" db:"stake1"`
	Stake2     float64   `json:"stake2" db:"stake2"`
	MarketType string    `json:"mercato_tipo" db:"mercato_tipo"`
	Active     bool      `json:"attiva" db:"attiva"`
	CreatedAt  time.Time `json:"created_at" db:"created_at"`
}

// Labels written alongside every row. Sources carry no event identity.
const (
	ObservationEvent  = "Match Generico"
	Sport             = "calcio"
	MarketType        = "1X2"
	OpportunityMarket = "Calcio - Generico"
)

// NewObservationRow maps the first three quotes positionally to home/draw/away.
func NewObservationRow(b QuoteBatch) ObservationRow {
	row := ObservationRow{
		Bookie:    b.Source,
		Event:     ObservationEvent,
		Sport:     Sport,
		Market:    MarketType,
		Timestamp: b.ObservedAt,
	}
	slots := []**float64{&row.Quote1, &row.QuoteX, &row.Quote2}
	for i, slot := range slots {
		if i < len(b.Quotes) && b.Quotes[i] != 0 {
			q := b.Quotes[i]
			*slot = &q
		}
	}
	return row
}

// NewOpportunityRow builds the persisted row for an opportunity, active by default.
func NewOpportunityRow(o Opportunity) OpportunityRow {
	return OpportunityRow{
		Market:     OpportunityMarket,
		Sport:      Sport,
		Event:      o.Event,
		Bookie1:    o.SourceA,
		Quote1:     o.PriceA,
		Bookie2:    o.SourceB,
		Quote2:     o.PriceB,
		Implied:    o.ImpliedProbability,
		ROI:        o.ROI,
		Profit:     o.Profit,
		TotalStake: o.TotalStake,
		Stake1:     o.StakeA,
		Stake2:     o.StakeB,
		MarketType: MarketType,
		Active:     true,
		CreatedAt:  o.DiscoveredAt,
	}
}
