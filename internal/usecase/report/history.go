package report

import (
	"sync"
	"time"

	"jobscout/internal/domain/entity"
)

// history is the bounded, append-only store of reported records.
type history struct {
	mu         sync.Mutex
	records    []*entity.ErrorRecord
	maxAge     time.Duration
	maxEntries int
}

func newHistory(maxAge time.Duration, maxEntries int) *history {
	return &history{maxAge: maxAge, maxEntries: maxEntries}
}

// append adds rec and evicts entries past the age or count cap.
func (h *history) append(rec *entity.ErrorRecord, now time.Time) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.records = append(h.records, rec)
	if h.maxAge > 0 {
		h.evictLocked(now.Add(-h.maxAge))
	}
	if h.maxEntries > 0 && len(h.records) > h.maxEntries {
		drop := len(h.records) - h.maxEntries
		clear(h.records[:drop])
		h.records = h.records[drop:]
	}
	historySize.Set(float64(len(h.records)))
}

// evictLocked removes records older than cutoff and returns how many were removed.
func (h *history) evictLocked(cutoff time.Time) int {
	kept := h.records[:0]
	for _, r := range h.records {
		if !r.Timestamp.Before(cutoff) {
			kept = append(kept, r)
		}
	}
	removed := len(h.records) - len(kept)
	clear(h.records[len(kept):])
	h.records = kept
	return removed
}

func (h *history) cleanup(cutoff time.Time) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	removed := h.evictLocked(cutoff)
	historySize.Set(float64(len(h.records)))
	return removed
}

// since returns the records at or after cutoff, oldest first.
func (h *history) since(cutoff time.Time) []*entity.ErrorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	out := make([]*entity.ErrorRecord, 0, len(h.records))
	for _, r := range h.records {
		if !r.Timestamp.Before(cutoff) {
			out = append(out, r)
		}
	}
	return out
}

// latest returns up to limit records, newest first. limit <= 0 returns all.
func (h *history) latest(limit int) []*entity.ErrorRecord {
	h.mu.Lock()
	defer h.mu.Unlock()
	n := len(h.records)
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]*entity.ErrorRecord, 0, limit)
	for i := n - 1; i >= n-limit; i-- {
		out = append(out, h.records[i])
	}
	return out
}

func (h *history) len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.records)
}
