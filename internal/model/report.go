package model

import "time"

// ScanReport is the outcome of one scan run, handed to the auxiliary sinks.
// Batches holds every source in collection order, failed ones included.
type ScanReport struct {
	RunID         string        `json:"run_id"`
	StartedAt     time.Time     `json:"started_at"`
	FinishedAt    time.Time     `json:"finished_at"`
	Batches       []QuoteBatch  `json:"batches"`
	Opportunities []Opportunity `json:"opportunities"`
}

// Succeeded counts the batches that can take part in pairing.
func (r ScanReport) Succeeded() int {
	n := 0
	for _, b := range r.Batches {
		if b.OK() {
			n++
		}
	}
	return n
}

// BestROI returns the highest ROI in the report, or zero when there is none.
func (r ScanReport) BestROI() float64 {
	if len(r.Opportunities) == 0 {
		return 0
	}
	best := r.Opportunities[0].ROI
	for _, o := range r.Opportunities[1:] {
		if o.ROI > best {
			best = o.ROI
		}
	}
	return best
}
