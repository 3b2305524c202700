package repository

import (
	"context"
	"sync"

	"HyperTrade/internal/domain/models"
)

// MemoryAuditStore keeps the most recent audit records in a ring buffer. It
// answers admin queries when no ClickHouse store is configured.
type MemoryAuditStore struct {
	mu      sync.RWMutex
	records []models.AuditRecord
	next    int
	full    bool
	stats   models.AuditStats
}

func NewMemoryAuditStore(size int) *MemoryAuditStore {
	if size <= 0 {
		size = 1000
	}
	return &MemoryAuditStore{
		records: make([]models.AuditRecord, size),
		stats: models.AuditStats{
			ByDecision: make(map[models.Decision]int64),
			BySignal:   make(map[string]int64),
		},
	}
}

func (s *MemoryAuditStore) Name() string { return "memory" }

func (s *MemoryAuditStore) Write(_ context.Context, rec models.AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.records[s.next] = rec
	s.next = (s.next + 1) % len(s.records)
	if s.next == 0 {
		s.full = true
	}

	s.stats.Total++
	s.stats.ByDecision[rec.Decision]++
	if rec.Signal != "" {
		s.stats.BySignal[string(rec.Signal)]++
	}
	at := rec.ReceivedAt
	if s.stats.LastAt == nil || at.After(*s.stats.LastAt) {
		s.stats.LastAt = &at
	}
	return nil
}

// Query returns matching records, newest first.
func (s *MemoryAuditStore) Query(_ context.Context, f models.AuditFilter) ([]models.AuditRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	n := s.next
	if s.full {
		n = len(s.records)
	}

	out := make([]models.AuditRecord, 0, min(n, max(f.Limit, 0)))
	for i := 0; i < n; i++ {
		if f.Limit > 0 && len(out) >= f.Limit {
			break
		}
		idx := (s.next - 1 - i + len(s.records)) % len(s.records)
		if rec := s.records[idx]; f.Matches(rec) {
			out = append(out, rec)
		}
	}
	return out, nil
}

// Stats covers every record written since start, not only those retained.
func (s *MemoryAuditStore) Stats(_ context.Context) (models.AuditStats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := models.AuditStats{
		Total:      s.stats.Total,
		ByDecision: make(map[models.Decision]int64, len(s.stats.ByDecision)),
		BySignal:   make(map[string]int64, len(s.stats.BySignal)),
	}
	for k, v := range s.stats.ByDecision {
		out.ByDecision[k] = v
	}
	for k, v := range s.stats.BySignal {
		out.BySignal[k] = v
	}
	if s.stats.LastAt != nil {
		at := *s.stats.LastAt
		out.LastAt = &at
	}
	return out, nil
}
