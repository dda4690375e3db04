package scanner

import (
	"bufio"
	"fmt"
	"io"

	"surebet/internal/model"
)

// Summary is what a completed run reports back to the caller.
type Summary struct {
	RunID               string
	SourcesOK           int
	SourcesTotal        int
	Opportunities       []model.Opportunity
	Failed              []model.QuoteBatch
	PersistenceFailures []*model.ScanError
}

func newSummary(report model.ScanReport) Summary {
	s := Summary{
		RunID:         report.RunID,
		SourcesOK:     report.Succeeded(),
		SourcesTotal:  len(report.Batches),
		Opportunities: report.Opportunities,
	}
	for _, b := range report.Batches {
		if !b.OK() {
			s.Failed = append(s.Failed, b)
		}
	}
	return s
}

// Write prints the human-readable run summary with at most top opportunities.
func (s Summary) Write(w io.Writer, top int) error {
	bw := bufio.NewWriter(w)
	fmt.Fprintf(bw, "\n=== SCRAPING COMPLETE: %d/%d sources OK ===\n\n", s.SourcesOK, s.SourcesTotal)
	fmt.Fprintf(bw, "SUREBETS FOUND: %d\n", len(s.Opportunities))

	if len(s.Opportunities) > 0 {
		fmt.Fprintf(bw, "\nTop %d surebets:\n", top)
		for i, o := range s.Opportunities {
			if i == top {
				break
			}
			fmt.Fprintf(bw, "%d. %s %.2f vs %s %.2f | ROI: %.2f%% | Profit: €%.2f\n",
				i+1, o.SourceA, o.PriceA, o.SourceB, o.PriceB, o.ROI, o.Profit)
		}
	}

	if len(s.Failed) > 0 {
		fmt.Fprintln(bw, "\nFailed sources:")
		for _, b := range s.Failed {
			reason := "no quotes found"
			if b.Err != nil {
				reason = b.Err.Detail()
			}
			fmt.Fprintf(bw, "- %s: %s\n", b.Source, reason)
		}
	}
	return bw.Flush()
}
