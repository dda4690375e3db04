package collector

import (
	"regexp"
	"strconv"
	"strings"

	"surebet/internal/model"
)

var quotePattern = regexp.MustCompile(`\d+\.\d+`)

// parseQuote returns the first decimal number in text.
func parseQuote(text string) (float64, bool) {
	match := quotePattern.FindString(strings.TrimSpace(text))
	if match == "" {
		return 0, false
	}
	q, err := strconv.ParseFloat(match, 64)
	if err != nil {
		return 0, false
	}
	return q, true
}

// filterQuotes keeps the candidates inside the plausible price range, in order.
func filterQuotes(candidates []float64) []float64 {
	quotes := make([]float64, 0, len(candidates))
	for _, q := range candidates {
		if model.ValidQuote(q) {
			quotes = append(quotes, q)
		}
	}
	return quotes
}

// jsonCandidates pulls the values stored under key from a decoded frame. A value may
// be a number, a numeric string, or an array of those; arrays of objects are searched
// element by element.
func jsonCandidates(frame any, key string) []float64 {
	var out []float64
	switch v := frame.(type) {
	case map[string]any:
		if raw, ok := v[key]; ok {
			out = append(out, jsonValues(raw)...)
		}
	case []any:
		for _, item := range v {
			out = append(out, jsonCandidates(item, key)...)
		}
	}
	return out
}

func jsonValues(raw any) []float64 {
	switch v := raw.(type) {
	case float64:
		return []float64{v}
	case string:
		if q, ok := parseQuote(v); ok {
			return []float64{q}
		}
	case []any:
		var out []float64
		for _, item := range v {
			out = append(out, jsonValues(item)...)
		}
		return out
	}
	return nil
}
