package testrun

import (
	"slices"
	"sync"

	"go.trai.ch/proof/internal/core/domain"
)

// Results collects test records from concurrently running test nodes.
type Results struct {
	mu      sync.Mutex
	records []domain.TestRecord
}

// Record appends rec. It is safe for concurrent use.
func (r *Results) Record(rec domain.TestRecord) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
}

// Summarize returns the counts and a copy of the records collected so far.
func (r *Results) Summarize() domain.TestSummary {
	r.mu.Lock()
	records := slices.Clone(r.records)
	r.mu.Unlock()

	summary := domain.TestSummary{Total: len(records), Records: records}
	for _, rec := range records {
		if rec.Passed() {
			summary.Passed++
		} else {
			summary.Failed++
		}
	}
	return summary
}
