package store

import (
	"fmt"
	"sync"
	"time"
)

// Defaults for InMemoryDedup.
const (
	DefaultDedupTTL        = 24 * time.Hour
	DefaultDedupMaxRecords = 10000
)

// Compile-time check that InMemoryDedup implements DedupRepo.
var _ DedupRepo = (*InMemoryDedup)(nil)

// InMemoryDedup is a DedupRepo that forgets records after a TTL and never
// holds more than a fixed number of them, dropping the oldest first.
type InMemoryDedup struct {
	mu      sync.Mutex
	records map[string]*DedupRecord
	order   []string
	ttl     time.Duration
	max     int
	now     func() time.Time
}

// NewInMemoryDedup creates a store. Non-positive arguments use the defaults.
func NewInMemoryDedup(ttl time.Duration, maxRecords int) *InMemoryDedup {
	if ttl <= 0 {
		ttl = DefaultDedupTTL
	}
	if maxRecords <= 0 {
		maxRecords = DefaultDedupMaxRecords
	}
	return &InMemoryDedup{
		records: make(map[string]*DedupRecord),
		ttl:     ttl,
		max:     maxRecords,
		now:     time.Now,
	}
}

func (s *InMemoryDedup) IsDuplicate(messageID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	_, ok := s.records[messageID]
	return ok, nil
}

func (s *InMemoryDedup) RecordInbound(messageID, participantID string) (bool, error) {
	if messageID == "" {
		return false, fmt.Errorf("record inbound failed: empty message id")
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	if _, ok := s.records[messageID]; ok {
		return false, nil
	}
	for len(s.order) >= s.max {
		delete(s.records, s.order[0])
		s.order = s.order[1:]
	}
	s.records[messageID] = &DedupRecord{
		MessageID:     messageID,
		ParticipantID: participantID,
		ReceivedAt:    s.now(),
	}
	s.order = append(s.order, messageID)
	return true, nil
}

func (s *InMemoryDedup) MarkProcessed(messageID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[messageID]
	if !ok {
		return fmt.Errorf("mark processed failed: unknown message %q", messageID)
	}
	now := s.now()
	rec.ProcessedAt = &now
	return nil
}

// Get returns a copy of the record for messageID.
func (s *InMemoryDedup) Get(messageID string) (DedupRecord, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec, ok := s.records[messageID]
	if !ok {
		return DedupRecord{}, false
	}
	return *rec, true
}

// Len returns the number of live records.
func (s *InMemoryDedup) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.pruneLocked()
	return len(s.records)
}

// pruneLocked drops expired records. order is sorted by ReceivedAt, so it
// stops at the first live one.
func (s *InMemoryDedup) pruneLocked() {
	cutoff := s.now().Add(-s.ttl)
	i := 0
	for ; i < len(s.order); i++ {
		rec, ok := s.records[s.order[i]]
		if ok && rec.ReceivedAt.After(cutoff) {
			break
		}
		delete(s.records, s.order[i])
	}
	s.order = s.order[i:]
}
