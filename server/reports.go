package server

import (
	"sync"
	"time"

	"github.com/RocioCM/tinyrust-compiler/compiler"
)

// storedReport is a report kept for later retrieval by ID.
type storedReport struct {
	report   *compiler.Report
	created  time.Time
	lastUsed time.Time
}

// ReportStore keeps recent reports by ID so clients can fetch them after a
// Check call. Entries expire after a period without access.
type ReportStore struct {
	mu      sync.RWMutex
	reports map[string]*storedReport
	now     func() time.Time
}

// NewReportStore creates an empty report store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		reports: make(map[string]*storedReport),
		now:     time.Now,
	}
}

// Add registers a report under its ID.
func (s *ReportStore) Add(r *compiler.Report) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	s.reports[r.ID] = &storedReport{report: r, created: now, lastUsed: now}
}

// Lookup retrieves a report by ID and refreshes its expiry.
func (s *ReportStore) Lookup(id string) (*compiler.Report, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sr, ok := s.reports[id]
	if !ok {
		return nil, false
	}
	sr.lastUsed = s.now()
	return sr.report, true
}

// Release removes a report.
func (s *ReportStore) Release(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.reports, id)
}

// Len returns the number of stored reports.
func (s *ReportStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.reports)
}

// Sweep removes reports that haven't been accessed within the TTL.
func (s *ReportStore) Sweep(ttl time.Duration) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	cutoff := s.now().Add(-ttl)
	removed := 0
	for id, sr := range s.reports {
		if sr.lastUsed.Before(cutoff) {
			delete(s.reports, id)
			removed++
		}
	}
	return removed
}

// StartSweeper runs periodic TTL sweeps in the background.
// Returns a stop function.
func (s *ReportStore) StartSweeper(interval, ttl time.Duration) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})
	go func() {
		for {
			select {
			case <-ticker.C:
				if n := s.Sweep(ttl); n > 0 {
					log.Debugf("swept %d expired reports", n)
				}
			case <-done:
				ticker.Stop()
				return
			}
		}
	}()
	return func() { close(done) }
}
