package services

import (
	"fmt"
	"sync"
)

// MemoryTenderStore keeps tender snapshots in memory for aggregator tests
// that do not need a PocketBase app.
type MemoryTenderStore struct {
	mu      sync.RWMutex
	tenders map[string]*TenderSnapshot
}

func NewMemoryTenderStore() *MemoryTenderStore {
	return &MemoryTenderStore{tenders: make(map[string]*TenderSnapshot)}
}

// Put stores a copy of the snapshot under its tender id.
func (s *MemoryTenderStore) Put(snap TenderSnapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tenders[snap.Tender.ID] = cloneSnapshot(&snap)
}

// LoadTenderSnapshot returns a copy, so callers cannot mutate stored state.
func (s *MemoryTenderStore) LoadTenderSnapshot(tenderID string) (*TenderSnapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	snap, ok := s.tenders[tenderID]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTenderNotFound, tenderID)
	}
	return cloneSnapshot(snap), nil
}

func cloneSnapshot(snap *TenderSnapshot) *TenderSnapshot {
	return &TenderSnapshot{
		Tender:      snap.Tender,
		Sections:    append([]Section(nil), snap.Sections...),
		Items:       append([]Item(nil), snap.Items...),
		Submissions: append([]BidSubmission(nil), snap.Submissions...),
		Pricing:     append([]BidPricing(nil), snap.Pricing...),
	}
}
