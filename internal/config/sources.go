package config

import "surebet/internal/model"

// DefaultSources is the bookmaker list scanned when the config names none.
// The selectors are approximate and match the first element class that carries a price.
func DefaultSources() []model.Source {
	return []model.Source{
		{Name: "BetFlag", URL: "https://www.betflag.it/scommesse/calcio", Selector: ".odds-value, .quota", Kind: model.SourceKindPage},
		{Name: "Staryes", URL: "https://www.staryes.it/calcio", Selector: ".quote, .odds", Kind: model.SourceKindPage},
		{Name: "Eurobet", URL: "https://www.eurobet.it/it/scommesse/calcio", Selector: ".odd-value, .odds", Kind: model.SourceKindPage},
		{Name: "Goldbet", URL: "https://www.goldbet.it/scommesse/calcio", Selector: ".quota-value, .quota", Kind: model.SourceKindPage},
		{Name: "BetfairSB", URL: "https://www.betfair.it/sport/calcio", Selector: ".price, .odds", Kind: model.SourceKindPage},
		{Name: "WilliamHill", URL: "https://www.williamhill.it/it/sports/calcio", Selector: ".odds, .price", Kind: model.SourceKindPage},
		{Name: "Gioca7", URL: "https://www.gioca7.it/calcio", Selector: ".quota, .odd", Kind: model.SourceKindPage},
		{Name: "Netwin", URL: "https://www.netwin.it/scommesse/calcio", Selector: ".odds-val, .quota", Kind: model.SourceKindPage},
		{Name: "Vincitu", URL: "https://www.vincitu.it/scommesse/calcio", Selector: ".odds, .quota", Kind: model.SourceKindPage},
		{Name: "Marathon", URL: "https://www.marathonbet.it/su/betting/Football", Selector: ".selection-link, .price", Kind: model.SourceKindPage},
	}
}
